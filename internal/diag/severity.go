package diag

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevInfo is for informational diagnostics (timings and similar).
	SevInfo Severity = iota
	// SevWarning marks hygiene and style findings.
	SevWarning
	// SevCaution marks a likely but unproven mistake; never fatal.
	SevCaution
	// SevError is fatal for the unit it is attached to.
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevCaution:
		return "CAUTION"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// Label is the lower-case form used by short and golden output.
func (s Severity) Label() string {
	switch s {
	case SevError:
		return "error"
	case SevCaution:
		return "caution"
	case SevWarning:
		return "warning"
	default:
		return "info"
	}
}
