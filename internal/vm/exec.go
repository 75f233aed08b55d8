package vm

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"quill/internal/hostexpr"
	"quill/internal/plan"
)

// flow is the loop-control outcome of executing a stream.
type flow uint8

const (
	flowNext flow = iota
	flowContinue
	flowBreak
)

type run struct {
	vm    *VM
	ctx   context.Context
	out   *bytes.Buffer
	root  *plan.Unit
	data  map[string]any
	depth int
}

// call collects the bindings that precede an OpInvoke.
type call struct {
	args     map[string]any
	children *Fragment
}

func (r *run) exec(fr *Frame, instrs []plan.Instr) (flow, error) {
	var pending call
	for i := range instrs {
		in := &instrs[i]
		fr.Span = in.Span
		switch in.Op {
		case plan.OpText:
			r.out.WriteString(in.Text)

		case plan.OpExpr:
			v, err := r.eval(fr, in.Code)
			if err != nil {
				return flowNext, err
			}
			if err := r.emit(fr, v, in.Escaped); err != nil {
				return flowNext, err
			}

		case plan.OpCode:
			if err := r.code(fr, in.Code); err != nil {
				return flowNext, err
			}

		case plan.OpIf:
			for _, cl := range in.Clauses {
				ok := cl.Kind == plan.ClauseElse
				if !ok {
					v, err := r.eval(fr, cl.Head)
					if err != nil {
						return flowNext, err
					}
					ok = truthy(v)
				}
				if ok {
					f, err := r.nested(fr, cl.Body)
					if err != nil || f != flowNext {
						return f, err
					}
					break
				}
			}

		case plan.OpFor:
			if err := r.forLoop(fr, in); err != nil {
				return flowNext, err
			}

		case plan.OpWhile:
			if err := r.whileLoop(fr, in); err != nil {
				return flowNext, err
			}

		case plan.OpMatch:
			f, err := r.match(fr, in)
			if err != nil || f != flowNext {
				return f, err
			}

		case plan.OpBind:
			v, err := r.bind(fr, in)
			if err != nil {
				return flowNext, err
			}
			if pending.args == nil {
				pending.args = make(map[string]any)
			}
			pending.args[in.Name] = v

		case plan.OpBindChildren:
			pending.children = &Fragment{Body: in.Body, Frame: fr, Scope: fr.Scope}

		case plan.OpInvoke:
			if err := r.invoke(fr, in, pending); err != nil {
				return flowNext, err
			}
			pending = call{}

		case plan.OpInvokeChildren:
			if fr.Children != nil {
				if err := r.fragment(fr.Children); err != nil {
					return flowNext, err
				}
			}

		case plan.OpSplice:
			if err := r.splice(fr, in); err != nil {
				return flowNext, err
			}

		case plan.OpContinue:
			return flowContinue, nil

		case plan.OpBreak:
			return flowBreak, nil
		}
	}
	return flowNext, nil
}

// nested runs a control body in its own scope.
func (r *run) nested(fr *Frame, body []plan.Instr) (flow, error) {
	saved := fr.Scope
	fr.Scope = saved.Child()
	defer func() { fr.Scope = saved }()
	return r.exec(fr, body)
}

func (r *run) eval(fr *Frame, code string) (any, error) {
	v, err := r.vm.opts.Evaluator.Eval(code, fr.Scope.Env())
	if err != nil {
		return nil, makeError(fr, PanicEval, err, "evaluating %q: %v", code, err)
	}
	return v, nil
}

func (r *run) emit(fr *Frame, v any, escaped bool) error {
	if frag, ok := v.(*Fragment); ok {
		return r.fragment(frag)
	}
	s := display(v)
	if escaped && !r.vm.opts.NoEscape {
		return plan.EscapeTo(r.out, s)
	}
	r.out.WriteString(s)
	return nil
}

func (r *run) code(fr *Frame, code string) error {
	for _, stmt := range hostexpr.SplitStatements(code) {
		s := hostexpr.ParseStatement(stmt)
		v, err := r.eval(fr, s.Expr)
		if err != nil {
			return err
		}
		switch s.Kind {
		case hostexpr.StmtLet:
			fr.Scope.Define(s.Name, v)
		case hostexpr.StmtAssign:
			fr.Scope.Assign(s.Name, v)
		}
	}
	return nil
}

func (r *run) forLoop(fr *Frame, in *plan.Instr) error {
	cl := in.Clauses[0]
	head, ok := hostexpr.SplitForHead(cl.Head)
	if !ok {
		return makeError(fr, PanicNotIterable, nil, "loop head %q is not of the form 'x in xs'", cl.Head)
	}
	seq, err := r.eval(fr, head.Iter)
	if err != nil {
		return err
	}
	var loopErr error
	iterErr := iterate(seq, func(key, val any) bool {
		if loopErr = r.ctx.Err(); loopErr != nil {
			loopErr = makeError(fr, PanicCanceled, loopErr, "render canceled")
			return false
		}
		saved := fr.Scope
		fr.Scope = saved.Child()
		if len(head.Vars) == 1 {
			fr.Scope.Define(head.Vars[0], val)
		} else {
			fr.Scope.Define(head.Vars[0], key)
			fr.Scope.Define(head.Vars[1], val)
		}
		var f flow
		f, loopErr = r.exec(fr, cl.Body)
		fr.Scope = saved
		return loopErr == nil && f != flowBreak
	})
	if loopErr != nil {
		return loopErr
	}
	if iterErr != nil {
		return makeError(fr, PanicNotIterable, iterErr, "%s", iterErr.Error())
	}
	return nil
}

func (r *run) whileLoop(fr *Frame, in *plan.Instr) error {
	cl := in.Clauses[0]
	for n := 0; ; n++ {
		if n >= r.vm.opts.MaxIterations {
			return makeError(fr, PanicIterationLimit, nil, "@while %s exceeded %d iterations", cl.Head, r.vm.opts.MaxIterations)
		}
		if err := r.ctx.Err(); err != nil {
			return makeError(fr, PanicCanceled, err, "render canceled")
		}
		v, err := r.eval(fr, cl.Head)
		if err != nil {
			return err
		}
		if !truthy(v) {
			return nil
		}
		f, err := r.nested(fr, cl.Body)
		if err != nil {
			return err
		}
		if f == flowBreak {
			return nil
		}
	}
}

// match runs the first arm whose pattern equals the scrutinee.
func (r *run) match(fr *Frame, in *plan.Instr) (flow, error) {
	head, err := r.eval(fr, in.Code)
	if err != nil {
		return flowNext, err
	}
	for _, arm := range in.Arms {
		for _, alt := range hostexpr.SplitAlternatives(arm.Pattern) {
			hit := alt == hostexpr.Wildcard
			if !hit {
				v, err := r.eval(fr, alt)
				if err != nil {
					return flowNext, err
				}
				hit = equal(head, v)
			}
			if hit {
				return r.nested(fr, arm.Body)
			}
		}
	}
	return flowNext, nil
}

func (r *run) bind(fr *Frame, in *plan.Instr) (any, error) {
	switch in.Bind {
	case plan.BindString:
		return in.Text, nil
	case plan.BindNumber:
		return parseNumber(in.Text), nil
	case plan.BindFlag:
		return true, nil
	case plan.BindExpr:
		return r.eval(fr, in.Code)
	case plan.BindBlock:
		return &Fragment{Body: in.Body, Frame: fr, Scope: fr.Scope}, nil
	}
	return nil, nil
}

func parseNumber(text string) any {
	if !strings.ContainsAny(text, ".eE") {
		if n, err := strconv.Atoi(text); err == nil {
			return n
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return text
	}
	return f
}

// invoke runs a component with a fresh scope over the root data holding
// the bound arguments and the defaults of unbound parameters.
func (r *run) invoke(fr *Frame, in *plan.Instr, c call) error {
	unit := r.vm.P.Units[in.Unit]
	if unit == nil {
		return makeError(fr, PanicUnknownUnit, nil, "component '%s' (%s) is not in the program", in.Name, in.Unit)
	}
	if r.depth >= r.vm.opts.MaxDepth {
		return makeError(fr, PanicTooDeep, nil, "component nesting exceeds %d", r.vm.opts.MaxDepth)
	}
	if err := r.ctx.Err(); err != nil {
		return makeError(fr, PanicCanceled, err, "render canceled")
	}

	callee := &Frame{
		Unit:     unit,
		Scope:    newScope(newScope(nil, r.data), c.args),
		Children: c.children,
		Caller:   fr,
	}
	for _, p := range unit.Params {
		if _, ok := c.args[p.Name]; ok {
			continue
		}
		var v any
		if p.HasDefault {
			var err error
			if v, err = r.eval(callee, p.Default); err != nil {
				return err
			}
		}
		callee.Scope.Define(p.Name, v)
	}

	r.depth++
	defer func() { r.depth-- }()
	_, err := r.exec(callee, unit.Instrs)
	return err
}

// fragment renders deferred content in the scope that produced it.
func (r *run) fragment(f *Fragment) error {
	saved := f.Frame.Scope
	f.Frame.Scope = f.Scope.Child()
	defer func() { f.Frame.Scope = saved }()
	_, err := r.exec(f.Frame, f.Body)
	return err
}

// splice renders a section: from the current unit's chain first, then
// from the root's. An unfilled body slot renders nothing.
func (r *run) splice(fr *Frame, in *plan.Instr) error {
	body, ok := fr.Unit.Sections[in.Name]
	if !ok {
		body, ok = r.root.Sections[in.Name]
	}
	if !ok {
		if in.Optional || in.Name == plan.BodySection {
			return nil
		}
		return makeError(fr, PanicMissingSection, nil, "section '%s' is not defined", in.Name)
	}
	_, err := r.nested(fr, body)
	return err
}
