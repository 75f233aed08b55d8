package diag

import (
	"quill/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	// Chain lists the enclosing extends/use sites, outermost first, when the
	// primary span lives in a template reached through composition.
	Chain []source.Span
}

// IsFatal reports whether d blocks code generation.
func (d *Diagnostic) IsFatal() bool {
	return d != nil && d.Severity >= SevError
}
