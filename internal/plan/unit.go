package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"

	"quill/internal/source"
)

// UnitID names one render routine. It is derived from the canonical path
// of the template, so every alias of a file shares one routine.
type UnitID string

// UnitIDFor returns the routine identifier of a canonical template path.
func UnitIDFor(canonicalPath string) UnitID {
	sum := sha256.Sum256([]byte(canonicalPath))
	return UnitID("u_" + hex.EncodeToString(sum[:])[:12])
}

// BodySection is the section key a layout's @render_body splices.
const BodySection = ""

// Param is a declared component parameter.
type Param struct {
	Name       string `msgpack:"name" json:"name"`
	Default    string `msgpack:"default,omitempty" json:"default,omitempty"`
	HasDefault bool   `msgpack:"has_default,omitempty" json:"has_default,omitempty"`
}

// Unit is the compiled plan of one template or component file.
type Unit struct {
	ID     UnitID  `msgpack:"id" json:"id"`
	Path   string  `msgpack:"path" json:"path"`
	Params []Param `msgpack:"params" json:"params"`
	Instrs []Instr `msgpack:"instrs" json:"instrs"`
	// StaticSize is the byte count of every literal in Instrs, used to
	// pre-size output buffers.
	StaticSize   int  `msgpack:"static_size" json:"static_size"`
	UsesChildren bool `msgpack:"uses_children,omitempty" json:"uses_children,omitempty"`
	// Sections holds the section definitions of the layout chain; only
	// units that extend a layout have them.
	Sections map[string][]Instr `msgpack:"sections,omitempty" json:"sections,omitempty"`
}

// SortParams orders params by name for a stable call signature.
func (u *Unit) SortParams() {
	slices.SortFunc(u.Params, func(a, b Param) int { return strings.Compare(a.Name, b.Name) })
}

// Param looks up a declared parameter by name.
func (u *Unit) Param(name string) (Param, bool) {
	i, ok := slices.BinarySearchFunc(u.Params, name, func(p Param, n string) int {
		return strings.Compare(p.Name, n)
	})
	if !ok {
		return Param{}, false
	}
	return u.Params[i], true
}

// Program is the composed output of one root template.
type Program struct {
	Root  UnitID           `msgpack:"root" json:"root"`
	Units map[UnitID]*Unit `msgpack:"units" json:"units"`
	// Order lists units callee first; the root comes last.
	Order []UnitID `msgpack:"order" json:"order"`
	// Files maps file ids used in instruction spans to paths.
	Files map[source.FileID]string `msgpack:"files,omitempty" json:"files,omitempty"`
}

func NewProgram() *Program {
	return &Program{Units: make(map[UnitID]*Unit)}
}

// RootUnit returns the entry unit.
func (p *Program) RootUnit() *Unit {
	if p == nil {
		return nil
	}
	return p.Units[p.Root]
}

// Section returns the root's stream stored under name.
func (p *Program) Section(name string) ([]Instr, bool) {
	root := p.RootUnit()
	if root == nil {
		return nil, false
	}
	body, ok := root.Sections[name]
	return body, ok
}
