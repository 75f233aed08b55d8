package plan

import (
	"io"
	"strings"
)

// escapeTable is the fixed substitution applied to escaped expression output.
var escapeTable = [...]struct {
	ch  byte
	rep string
}{
	{'&', "&amp;"},
	{'<', "&lt;"},
	{'>', "&gt;"},
	{'"', "&quot;"},
	{'\'', "&#39;"},
	{'/', "&#x2F;"},
}

func replacement(b byte) (string, bool) {
	for _, e := range escapeTable {
		if e.ch == b {
			return e.rep, true
		}
	}
	return "", false
}

// Escape applies the substitution table one byte at a time, leaving every
// other byte unchanged.
func Escape(s string) string {
	var sb strings.Builder
	if err := EscapeTo(&sb, s); err != nil {
		return s
	}
	return sb.String()
}

// EscapeTo writes the escaped form of s to w.
func EscapeTo(w io.StringWriter, s string) error {
	last := 0
	for i := 0; i < len(s); i++ {
		rep, ok := replacement(s[i])
		if !ok {
			continue
		}
		if _, err := w.WriteString(s[last:i]); err != nil {
			return err
		}
		if _, err := w.WriteString(rep); err != nil {
			return err
		}
		last = i + 1
	}
	_, err := w.WriteString(s[last:])
	return err
}
