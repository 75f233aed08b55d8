package vm

import (
	"maps"

	"quill/internal/plan"
	"quill/internal/source"
)

// Frame is one active unit: the root or an invoked component.
type Frame struct {
	Unit     *plan.Unit
	Scope    *Scope
	Children *Fragment   // child content passed by the caller, if any
	Caller   *Frame      // nil for the root
	Span     source.Span // current instruction
}

// Fragment is template content rendered later in the scope that
// produced it: a block-valued parameter or a component's child content.
type Fragment struct {
	Body  []plan.Instr
	Frame *Frame
	Scope *Scope
}

// Scope is a chain of variable maps; lookups walk outwards.
type Scope struct {
	vars   map[string]any
	parent *Scope
}

func newScope(parent *Scope, vars map[string]any) *Scope {
	if vars == nil {
		vars = make(map[string]any)
	}
	return &Scope{vars: vars, parent: parent}
}

// Child opens a nested scope.
func (s *Scope) Child() *Scope {
	return newScope(s, nil)
}

func (s *Scope) Lookup(name string) (any, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Define binds name in this scope.
func (s *Scope) Define(name string, v any) {
	s.vars[name] = v
}

// Assign updates the nearest scope binding name, defining it here when
// no scope does.
func (s *Scope) Assign(name string, v any) {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.vars[name]; ok {
			sc.vars[name] = v
			return
		}
	}
	s.vars[name] = v
}

// Env flattens the chain into one map, inner bindings shadowing outer.
func (s *Scope) Env() map[string]any {
	var chain []*Scope
	n := 0
	for sc := s; sc != nil; sc = sc.parent {
		chain = append(chain, sc)
		n += len(sc.vars)
	}
	env := make(map[string]any, n)
	for i := len(chain) - 1; i >= 0; i-- {
		maps.Copy(env, chain[i].vars)
	}
	return env
}
