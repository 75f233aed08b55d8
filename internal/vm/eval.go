package vm

import (
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/conf"
	exprvm "github.com/expr-lang/expr/vm"

	"quill/internal/hostexpr"
)

// Evaluator runs host code against an environment.
type Evaluator interface {
	Eval(code string, env map[string]any) (any, error)
}

// ExprEvaluator evaluates host code with expr-lang. Compiled programs are
// cached by source text and the set of names in scope.
//
// Names in scope shadow expr-lang builtins, so a field called count or max
// reads the data value.
type ExprEvaluator struct {
	mu    sync.Mutex
	cache map[string]*exprvm.Program
}

func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{cache: make(map[string]*exprvm.Program)}
}

func (e *ExprEvaluator) Eval(code string, env map[string]any) (any, error) {
	prog, err := e.compile(hostexpr.Normalize(code), env)
	if err != nil {
		return nil, err
	}
	return expr.Run(prog, env)
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

func (e *ExprEvaluator) compile(code string, env map[string]any) (*exprvm.Program, error) {
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	slices.Sort(names)
	key := code + "\x00" + strings.Join(names, "\x00")

	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.cache[key]; ok {
		return p, nil
	}
	p, err := expr.Compile(code, expr.Env(env), untyped(names), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	e.cache[key] = p
	return p, nil
}

// untyped declares every name as any so a cached program does not depend
// on the value types seen when it was compiled.
func untyped(names []string) expr.Option {
	return func(c *conf.Config) {
		for _, name := range names {
			c.Types[name] = conf.Tag{Type: anyType}
		}
	}
}

// Cached reports how many distinct expressions were compiled.
func (e *ExprEvaluator) Cached() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}
