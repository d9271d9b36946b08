package ir

import (
	"fmt"
	"strings"
)

// PortID identifies a port within its Component. Zero is invalid.
type PortID uint32

// CellID identifies a cell within its Component. Zero is invalid and is
// used as the parent of signature ports.
type CellID uint32

// Invalid ID constants.
const (
	NoPort PortID = 0
	NoCell CellID = 0
)

// IsValid reports whether the ID is non-zero.
func (id PortID) IsValid() bool { return id != NoPort }
func (id CellID) IsValid() bool { return id != NoCell }

// Direction is a port direction as seen from outside the owner.
type Direction int

const (
	Input Direction = iota
	Output
	Inout
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	case Inout:
		return "inout"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection parses "input", "output" or "inout".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "input", "in":
		return Input, nil
	case "output", "out":
		return Output, nil
	case "inout":
		return Inout, nil
	}
	return 0, fmt.Errorf("unknown port direction %q", s)
}

// Port is a fixed-width wire endpoint owned by a Cell or by the signature.
type Port struct {
	ID         PortID
	Name       string
	Width      uint64
	Direction  Direction
	Attributes Attributes
	// Cell is the owning cell, or NoCell for signature ports.
	Cell CellID
}

// PortDef describes a port to be created.
type PortDef struct {
	Name       string
	Width      uint64
	Direction  Direction
	Attributes Attributes
}

// Prototype names what a Cell instantiates.
type Prototype struct {
	// Name is the primitive or component name, e.g. "std_reg".
	Name string
	// Params are primitive parameters in declaration order.
	Params []uint64
	// IsComponent is set when Name refers to a component of the program.
	IsComponent bool
}

func (p Prototype) String() string {
	params := make([]string, len(p.Params))
	for i, v := range p.Params {
		params[i] = fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("%s(%s)", p.Name, strings.Join(params, ", "))
}

// Cell is a named instance nested in a Component.
type Cell struct {
	ID         CellID
	Name       string
	Prototype  Prototype
	Ports      []PortID
	Attributes Attributes
}

// Group is a named bundle of assignments that control nodes enable and
// disable. Its contents are opaque to the traversal core.
type Group struct {
	Name       string
	Attributes Attributes
}

// Assignment drives Dst from Src whenever Guard holds.
type Assignment struct {
	Dst   PortID
	Src   PortID
	Guard Guard
}

// Equal reports whether two assignments connect the same ports under the
// same guard.
func (a Assignment) Equal(b Assignment) bool {
	if a.Dst != b.Dst || a.Src != b.Src {
		return false
	}
	if a.Guard == nil {
		return IsTrue(b.Guard)
	}
	return a.Guard.Equal(b.Guard)
}

// Component is a named unit of structure and schedule.
type Component struct {
	Name       string
	Attributes Attributes

	// Signature holds the component's own ports in declaration order.
	Signature []PortID

	Groups []*Group

	// Continuous assignments are always active (guard true).
	Continuous []Assignment

	// Control is the schedule root; never nil once built by NewComponent.
	Control Control

	cells []*Cell // arena, index 0 unused
	ports []*Port // arena, index 0 unused
	order []CellID
}

// NewComponent creates an empty component whose control is Empty.
func NewComponent(name string) *Component {
	return &Component{
		Name:    name,
		Control: &Empty{},
		cells:   []*Cell{nil},
		ports:   []*Port{nil},
	}
}

func (c *Component) newPort(def PortDef, cell CellID) PortID {
	id := PortID(len(c.ports))
	c.ports = append(c.ports, &Port{
		ID:         id,
		Name:       def.Name,
		Width:      def.Width,
		Direction:  def.Direction,
		Attributes: def.Attributes.Clone(),
		Cell:       cell,
	})
	return id
}

// AddSignaturePort appends a port to the component signature.
func (c *Component) AddSignaturePort(def PortDef) (PortID, error) {
	if _, ok := c.SignaturePort(def.Name); ok {
		return NoPort, fmt.Errorf("component %s: duplicate signature port %q", c.Name, def.Name)
	}
	id := c.newPort(def, NoCell)
	c.Signature = append(c.Signature, id)
	return id, nil
}

// AddCell creates a cell with the given ports.
func (c *Component) AddCell(name string, proto Prototype, ports []PortDef, attrs Attributes) (CellID, error) {
	if _, ok := c.FindCell(name); ok {
		return NoCell, fmt.Errorf("component %s: duplicate cell %q", c.Name, name)
	}
	id := CellID(len(c.cells))
	cell := &Cell{
		ID:         id,
		Name:       name,
		Prototype:  proto,
		Attributes: attrs.Clone(),
	}
	c.cells = append(c.cells, cell)
	for _, def := range ports {
		cell.Ports = append(cell.Ports, c.newPort(def, id))
	}
	c.order = append(c.order, id)
	return id, nil
}

// RemoveCell deletes a cell, its ports, and every continuous assignment
// that references one of those ports. It returns the number of
// assignments dropped.
func (c *Component) RemoveCell(id CellID) (int, error) {
	cell := c.Cell(id)
	if cell == nil {
		return 0, fmt.Errorf("component %s: no cell with id %d", c.Name, id)
	}
	dead := make(map[PortID]bool, len(cell.Ports))
	for _, p := range cell.Ports {
		dead[p] = true
		c.ports[p] = nil
	}
	kept := c.Continuous[:0]
	dropped := 0
	for _, a := range c.Continuous {
		if dead[a.Dst] || dead[a.Src] {
			dropped++
			continue
		}
		kept = append(kept, a)
	}
	c.Continuous = kept
	c.cells[id] = nil
	for i, o := range c.order {
		if o == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return dropped, nil
}

// Cell returns the cell for id, or nil when id is invalid or removed.
func (c *Component) Cell(id CellID) *Cell {
	if int(id) <= 0 || int(id) >= len(c.cells) {
		return nil
	}
	return c.cells[id]
}

// Port returns the port for id, or nil when id is invalid or removed.
func (c *Component) Port(id PortID) *Port {
	if int(id) <= 0 || int(id) >= len(c.ports) {
		return nil
	}
	return c.ports[id]
}

// Cells returns the live cells in insertion order.
func (c *Component) Cells() []*Cell {
	out := make([]*Cell, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.cells[id])
	}
	return out
}

// FindCell looks a cell up by name.
func (c *Component) FindCell(name string) (*Cell, bool) {
	for _, id := range c.order {
		if c.cells[id].Name == name {
			return c.cells[id], true
		}
	}
	return nil, false
}

// SignaturePort looks a signature port up by name.
func (c *Component) SignaturePort(name string) (PortID, bool) {
	for _, id := range c.Signature {
		if c.ports[id].Name == name {
			return id, true
		}
	}
	return NoPort, false
}

// PortByName looks a port of a cell up by name.
func (c *Component) PortByName(cell CellID, name string) (PortID, bool) {
	cl := c.Cell(cell)
	if cl == nil {
		return NoPort, false
	}
	for _, id := range cl.Ports {
		if c.ports[id].Name == name {
			return id, true
		}
	}
	return NoPort, false
}

// SignatureWithAttr returns the signature port carrying attr. Under the
// uniqueness invariant there is at most one; the first is returned.
func (c *Component) SignatureWithAttr(attr string) (PortID, bool) {
	return c.findWithAttr(c.Signature, attr)
}

// FindWithAttr returns the port of cell carrying attr, if any.
func (c *Component) FindWithAttr(cell CellID, attr string) (PortID, bool) {
	cl := c.Cell(cell)
	if cl == nil {
		return NoPort, false
	}
	return c.findWithAttr(cl.Ports, attr)
}

func (c *Component) findWithAttr(ids []PortID, attr string) (PortID, bool) {
	for _, id := range ids {
		if p := c.ports[id]; p != nil && p.Attributes.Has(attr) {
			return id, true
		}
	}
	return NoPort, false
}

// PortName renders a port as "cell.port" or, for signature ports, "port".
func (c *Component) PortName(id PortID) string {
	p := c.Port(id)
	if p == nil {
		return fmt.Sprintf("<dangling:%d>", id)
	}
	if !p.Cell.IsValid() {
		return p.Name
	}
	cell := c.Cell(p.Cell)
	if cell == nil {
		return fmt.Sprintf("<dangling-cell:%d>.%s", p.Cell, p.Name)
	}
	return cell.Name + "." + p.Name
}

// ResolvePort resolves "cell.port" or "port" to a PortID.
func (c *Component) ResolvePort(ref string) (PortID, error) {
	if cellName, portName, ok := strings.Cut(ref, "."); ok {
		cell, found := c.FindCell(cellName)
		if !found {
			return NoPort, fmt.Errorf("component %s: unknown cell %q in %q", c.Name, cellName, ref)
		}
		id, found := c.PortByName(cell.ID, portName)
		if !found {
			return NoPort, fmt.Errorf("component %s: cell %s has no port %q", c.Name, cellName, portName)
		}
		return id, nil
	}
	id, found := c.SignaturePort(ref)
	if !found {
		return NoPort, fmt.Errorf("component %s: unknown signature port %q", c.Name, ref)
	}
	return id, nil
}

// AddGroup declares a named group.
func (c *Component) AddGroup(name string, attrs Attributes) (*Group, error) {
	if _, ok := c.FindGroup(name); ok {
		return nil, fmt.Errorf("component %s: duplicate group %q", c.Name, name)
	}
	g := &Group{Name: name, Attributes: attrs.Clone()}
	c.Groups = append(c.Groups, g)
	return g, nil
}

// FindGroup looks a group up by name.
func (c *Component) FindGroup(name string) (*Group, bool) {
	for _, g := range c.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

// Program is the whole design: components in definition order plus the
// primitive library they instantiate.
type Program struct {
	Components []*Component
	Library    *Library
	Entrypoint string
	DebugMode  bool

	index map[string]int
}

// NewProgram creates an empty program using the default primitive library.
func NewProgram() *Program {
	return &Program{
		Library:    DefaultLibrary(),
		Entrypoint: "main",
		index:      make(map[string]int),
	}
}

// AddComponent appends a component. Names must be unique.
func (p *Program) AddComponent(c *Component) error {
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if _, ok := p.index[c.Name]; ok {
		return fmt.Errorf("duplicate component %q", c.Name)
	}
	p.index[c.Name] = len(p.Components)
	p.Components = append(p.Components, c)
	return nil
}

// Component looks a component up by name.
func (p *Program) Component(name string) (*Component, bool) {
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.Components[i], true
}

// Each calls fn for every component in definition order, stopping at the
// first error.
func (p *Program) Each(fn func(*Component) error) error {
	for _, c := range p.Components {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}
