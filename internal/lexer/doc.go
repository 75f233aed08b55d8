// Package lexer holds the boundary scanners that separate template text
// from embedded host code.
//
// Host code is never tokenised. The scanners track nested (), [] and {}
// groups with a small state machine (literal, string, char, line comment,
// block comment) so delimiters inside literals and comments do not affect
// depth, and report LEX diagnostics for unterminated literals and
// unbalanced delimiters.
package lexer
