package observ

import (
	"encoding/json"
	"fmt"

	"quill/internal/diag"
	"quill/internal/source"
)

// Diagnostic wraps a report as an informational OBS finding whose single
// note carries the JSON payload, for machine-readable output.
func (r Report) Diagnostic(path string) *diag.Diagnostic {
	msg := fmt.Sprintf("timings: total %.2f ms", r.TotalMS)
	if path != "" {
		msg += " for " + path
	}
	d := &diag.Diagnostic{
		Severity: diag.SevInfo,
		Code:     diag.ObsTimings,
		Message:  msg,
	}
	if data, err := json.Marshal(r); err == nil {
		d.Notes = []diag.Note{{Span: source.Span{}, Msg: string(data)}}
	}
	return d
}
