// Package diag defines the diagnostic model shared by every compiler phase.
//
// A Diagnostic carries a Severity, a stable Code, a short Message, the
// Primary span it points at, optional Notes, and a Chain of enclosing
// extends/use sites for findings inside composed templates.
//
// Producers emit through a Reporter (BagReporter, DedupReporter,
// ChainReporter) so they stay decoupled from storage. Bag collects, sorts and
// deduplicates results. Rendering lives in internal/diagfmt, apart from the
// single-line short form in golden.go which tests use directly.
//
// Severity ordering is Info < Warning < Caution < Error; only SevError is
// fatal and blocks code generation.
package diag
