package vm

import (
	"fmt"
	"strings"

	"quill/internal/source"
)

// PanicCode identifies a render failure.
type PanicCode int

// Stable panic codes - do not change values.
const (
	PanicNoRoot         PanicCode = 1001 // VM1001: program has no root unit
	PanicEval           PanicCode = 1002 // VM1002: host expression failed
	PanicNotIterable    PanicCode = 1003 // VM1003: for over a non-iterable value
	PanicIterationLimit PanicCode = 1004 // VM1004: while loop ran too long
	PanicUnknownUnit    PanicCode = 1005 // VM1005: invoke of a unit not in the program
	PanicMissingSection PanicCode = 1006 // VM1006: required section not defined
	PanicTooDeep        PanicCode = 1007 // VM1007: component nesting too deep
	PanicCanceled       PanicCode = 1008 // VM1008: context canceled
)

func (c PanicCode) String() string {
	return fmt.Sprintf("VM%d", c)
}

// BacktraceFrame is one active unit at the time of failure.
type BacktraceFrame struct {
	Unit string
	Span source.Span
}

// VMError is a render failure with the unit stack, innermost first.
type VMError struct {
	Code      PanicCode
	Message   string
	Span      source.Span
	Backtrace []BacktraceFrame
	Err       error
}

func (p *VMError) Error() string {
	if len(p.Backtrace) > 0 {
		return fmt.Sprintf("render %s: %s: %s", p.Backtrace[0].Unit, p.Code, p.Message)
	}
	return fmt.Sprintf("render: %s: %s", p.Code, p.Message)
}

func (p *VMError) Unwrap() error { return p.Err }

// FormatWithFiles formats the failure with resolved positions.
func (p *VMError) FormatWithFiles(files *source.FileSet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "panic %s: %s\n", p.Code, p.Message)
	sb.WriteString("at " + formatSpan(p.Span, files) + "\n")
	if len(p.Backtrace) > 0 {
		sb.WriteString("backtrace:\n")
		for i, f := range p.Backtrace {
			fmt.Fprintf(&sb, "  %d: %s at %s\n", i, f.Unit, formatSpan(f.Span, files))
		}
	}
	return sb.String()
}

func formatSpan(span source.Span, files *source.FileSet) string {
	if files == nil || (span.Start == 0 && span.End == 0) {
		return "<no-span>"
	}
	file := files.Get(span.File)
	if file == nil {
		return "<no-span>"
	}
	start, _ := files.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", file.Path, start.Line, start.Col)
}

func makeError(fr *Frame, code PanicCode, err error, format string, args ...any) *VMError {
	e := &VMError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
	if fr != nil {
		e.Span = fr.Span
	}
	for f := fr; f != nil; f = f.Caller {
		e.Backtrace = append(e.Backtrace, BacktraceFrame{Unit: f.Unit.Path, Span: f.Span})
	}
	return e
}
