package diag

import "quill/internal/source"

func New(sev Severity, code Code, primary source.Span, msg string) *Diagnostic {
	return &Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary source.Span, msg string) *Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d *Diagnostic) WithNote(sp source.Span, msg string) *Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

// WithChain replaces the enclosing file chain of d.
func (d *Diagnostic) WithChain(chain []source.Span) *Diagnostic {
	if len(chain) == 0 {
		d.Chain = nil
		return d
	}
	d.Chain = append([]source.Span(nil), chain...)
	return d
}
