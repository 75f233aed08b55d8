package lexer

import "unicode"

func isIdentStartByte(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isIdentContinueByte(b byte) bool {
	return isIdentStartByte(b) || (b >= '0' && b <= '9')
}

func isIdentStartRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentContinueRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// AtIdentStart reports whether an identifier begins at the cursor.
func AtIdentStart(c *Cursor) bool {
	if c.EOF() {
		return false
	}
	if b := c.Peek(); b < 0x80 {
		return isIdentStartByte(b)
	}
	r, _ := c.PeekRune()
	return isIdentStartRune(r)
}

// ScanIdent consumes an identifier and reports whether one was present.
func ScanIdent(c *Cursor) bool {
	if !AtIdentStart(c) {
		return false
	}
	c.BumpRune()
	for !c.EOF() {
		if b := c.Peek(); b < 0x80 {
			if !isIdentContinueByte(b) {
				break
			}
			c.Off++
			continue
		}
		r, _ := c.PeekRune()
		if !isIdentContinueRune(r) {
			break
		}
		c.BumpRune()
	}
	return true
}

// IsUpperStart reports whether b can start a component tag name.
func IsUpperStart(b byte) bool {
	return b >= 'A' && b <= 'Z'
}

// IsIdentifier reports whether s is a single identifier.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !isIdentStartRune(r) {
			return false
		}
		if !isIdentContinueRune(r) {
			return false
		}
	}
	return true
}
