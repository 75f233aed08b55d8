package diagfmt

import (
	"quill/internal/source"
)

func formatPath(fs *source.FileSet, id source.FileID, mode PathMode) string {
	f := fs.Get(id)
	if f == nil {
		return "<unknown>"
	}
	switch mode {
	case PathModeAbsolute:
		return f.FormatPath("absolute", "")
	case PathModeRelative:
		return f.FormatPath("relative", fs.BaseDir())
	case PathModeBasename:
		return f.FormatPath("basename", "")
	default:
		return f.FormatPath("auto", "")
	}
}

func validSpan(fs *source.FileSet, span source.Span) bool {
	f := fs.Get(span.File)
	return f != nil && span.Start <= span.End && int(span.End) <= len(f.Content)
}
