package plan

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Listing renders the program as an indented, human-readable dump, units in
// Order and sections sorted by name.
func (p *Program) Listing() string {
	var sb strings.Builder
	for _, id := range p.Order {
		u := p.Units[id]
		if u == nil {
			continue
		}
		root := ""
		if id == p.Root {
			root = " (root)"
		}
		fmt.Fprintf(&sb, "unit %s %s%s static=%d\n", u.ID, u.Path, root, u.StaticSize)
		if len(u.Params) > 0 {
			sb.WriteString("  params:")
			for _, prm := range u.Params {
				sb.WriteByte(' ')
				sb.WriteString(prm.Name)
				if prm.HasDefault {
					sb.WriteString("=" + prm.Default)
				}
			}
			sb.WriteByte('\n')
		}
		listInstrs(&sb, u.Instrs, 1)
		names := make([]string, 0, len(u.Sections))
		for name := range u.Sections {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			label := name
			if name == BodySection {
				label = "<body>"
			}
			fmt.Fprintf(&sb, "  section %s\n", label)
			listInstrs(&sb, u.Sections[name], 2)
		}
	}
	return sb.String()
}

func listInstrs(sb *strings.Builder, instrs []Instr, depth int) {
	pad := strings.Repeat("  ", depth)
	for i := range instrs {
		in := &instrs[i]
		sb.WriteString(pad)
		sb.WriteString(in.Op.String())
		switch in.Op {
		case OpText:
			sb.WriteString(" " + strconv.Quote(in.Text))
		case OpExpr:
			if !in.Escaped {
				sb.WriteString(" raw")
			}
			sb.WriteString(" " + in.Code)
		case OpCode:
			sb.WriteString(" " + in.Code)
		case OpMatch:
			sb.WriteString(" " + in.Code)
		case OpBind:
			fmt.Fprintf(sb, " %s %s", in.Name, in.Bind)
			switch in.Bind {
			case BindString:
				sb.WriteString(" " + strconv.Quote(in.Text))
			case BindNumber:
				sb.WriteString(" " + in.Text)
			case BindExpr:
				sb.WriteString(" " + in.Code)
			}
		case OpInvoke:
			sb.WriteString(" " + string(in.Unit) + " " + in.Name)
		case OpSplice:
			if in.Name == BodySection {
				sb.WriteString(" <body>")
			} else {
				sb.WriteString(" " + strconv.Quote(in.Name))
			}
			if in.Optional {
				sb.WriteString(" optional")
			}
		}
		sb.WriteByte('\n')
		for _, c := range in.Clauses {
			sb.WriteString(pad + "  ")
			switch c.Kind {
			case ClauseIf:
				sb.WriteString("when " + c.Head)
			case ClauseElseIf:
				sb.WriteString("else when " + c.Head)
			case ClauseElse:
				sb.WriteString("else")
			default:
				sb.WriteString("head " + c.Head)
			}
			sb.WriteByte('\n')
			listInstrs(sb, c.Body, depth+2)
		}
		for _, a := range in.Arms {
			sb.WriteString(pad + "  arm " + a.Pattern + "\n")
			listInstrs(sb, a.Body, depth+2)
		}
		listInstrs(sb, in.Body, depth+1)
	}
}
