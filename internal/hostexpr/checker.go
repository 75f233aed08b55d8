// Package hostexpr is the pluggable sink for embedded host code. The
// template pipeline treats expressions as opaque text; a Checker only
// decides whether the text is plausible, and FieldRoots extracts the
// context names an expression reads.
package hostexpr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr/file"
	"github.com/expr-lang/expr/parser"

	"quill/internal/lexer"
)

// Checker validates host code. Errors are advisory: callers surface them
// as cautions and still compile the code.
type Checker interface {
	CheckExpr(code string) error
	CheckPattern(code string) error
	CheckForHead(code string) error
	CheckStmt(code string) error
}

// Grammar checks delimiter balance and then parses with the expr-lang
// grammar.
type Grammar struct{}

// Default is the checker used when none is configured.
var Default Checker = Grammar{}

func (Grammar) CheckExpr(code string) error {
	if strings.TrimSpace(code) == "" {
		return errors.New("empty expression")
	}
	if err := lexer.Balanced(code); err != nil {
		return err
	}
	_, err := parse(code)
	return err
}

func (g Grammar) CheckPattern(code string) error {
	for _, alt := range SplitAlternatives(code) {
		if alt == "" {
			return errors.New("empty pattern alternative")
		}
		if alt == Wildcard {
			continue
		}
		if err := g.CheckExpr(alt); err != nil {
			return fmt.Errorf("pattern %q: %w", alt, err)
		}
	}
	return nil
}

func (g Grammar) CheckForHead(code string) error {
	if h, ok := SplitForHead(code); ok {
		return g.CheckExpr(h.Iter)
	}
	// Anything else is a condition-style loop head.
	return g.CheckExpr(code)
}

func (g Grammar) CheckStmt(code string) error {
	if err := lexer.Balanced(code); err != nil {
		return err
	}
	for _, stmt := range SplitStatements(code) {
		s := ParseStatement(stmt)
		if err := g.CheckExpr(s.Expr); err != nil {
			return fmt.Errorf("statement %q: %w", stmt, err)
		}
	}
	return nil
}

// Normalize rewrites host idioms the expr-lang grammar lacks: leading
// reference markers are dropped and "::" paths become member access.
func Normalize(code string) string {
	code = strings.TrimSpace(code)
	code = strings.TrimLeft(code, "&")
	return strings.ReplaceAll(code, "::", ".")
}

func parse(code string) (*parser.Tree, error) {
	tree, err := parser.Parse(Normalize(code))
	if err != nil {
		var fe *file.Error
		if errors.As(err, &fe) {
			return nil, errors.New(fe.Message)
		}
		return nil, err
	}
	return tree, nil
}
