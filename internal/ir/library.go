package ir

import (
	"fmt"
	"sort"
)

// PrimitivePort is a port of a primitive whose width is either a literal
// or the value of one of the primitive's parameters.
type PrimitivePort struct {
	Name       string
	Width      uint64
	WidthParam string
	Direction  Direction
	Attributes Attributes
}

// Primitive is the signature of a library primitive.
type Primitive struct {
	Name   string
	Params []string
	Ports  []PrimitivePort
}

// Library holds primitive signatures by name.
type Library struct {
	prims map[string]Primitive
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{prims: make(map[string]Primitive)}
}

// Add registers a primitive, replacing any previous definition.
func (l *Library) Add(p Primitive) {
	l.prims[p.Name] = p
}

// Get returns the primitive named name.
func (l *Library) Get(name string) (Primitive, bool) {
	if l == nil {
		return Primitive{}, false
	}
	p, ok := l.prims[name]
	return p, ok
}

// Names returns the primitive names in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.prims))
	for n := range l.prims {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve instantiates the port list of prim for concrete params.
func (p Primitive) Resolve(params []uint64) ([]PortDef, error) {
	if len(params) != len(p.Params) {
		return nil, fmt.Errorf("primitive %s: expected %d params, got %d", p.Name, len(p.Params), len(params))
	}
	binding := make(map[string]uint64, len(params))
	for i, name := range p.Params {
		binding[name] = params[i]
	}
	defs := make([]PortDef, 0, len(p.Ports))
	for _, port := range p.Ports {
		width := port.Width
		if port.WidthParam != "" {
			w, ok := binding[port.WidthParam]
			if !ok {
				return nil, fmt.Errorf("primitive %s: port %s uses unknown param %q", p.Name, port.Name, port.WidthParam)
			}
			width = w
		}
		defs = append(defs, PortDef{
			Name:       port.Name,
			Width:      width,
			Direction:  port.Direction,
			Attributes: port.Attributes.Clone(),
		})
	}
	return defs, nil
}

func clkPort() PrimitivePort {
	return PrimitivePort{Name: "clk", Width: 1, Direction: Input, Attributes: Attributes{AttrClk: 1}}
}

func resetPort() PrimitivePort {
	return PrimitivePort{Name: "reset", Width: 1, Direction: Input, Attributes: Attributes{AttrReset: 1}}
}

// DefaultLibrary returns the subset of the core primitives used by the
// built-in passes and tests.
func DefaultLibrary() *Library {
	lib := NewLibrary()
	lib.Add(Primitive{
		Name:   "std_const",
		Params: []string{"WIDTH", "VALUE"},
		Ports: []PrimitivePort{
			{Name: "out", WidthParam: "WIDTH", Direction: Output},
		},
	})
	lib.Add(Primitive{
		Name:   "std_wire",
		Params: []string{"WIDTH"},
		Ports: []PrimitivePort{
			{Name: "in", WidthParam: "WIDTH", Direction: Input},
			{Name: "out", WidthParam: "WIDTH", Direction: Output},
		},
	})
	lib.Add(Primitive{
		Name:   "std_reg",
		Params: []string{"WIDTH"},
		Ports: []PrimitivePort{
			{Name: "in", WidthParam: "WIDTH", Direction: Input},
			{Name: "write_en", Width: 1, Direction: Input, Attributes: Attributes{AttrGo: 1}},
			clkPort(),
			resetPort(),
			{Name: "out", WidthParam: "WIDTH", Direction: Output},
			{Name: "done", Width: 1, Direction: Output, Attributes: Attributes{AttrDone: 1}},
		},
	})
	lib.Add(Primitive{
		Name:   "std_add",
		Params: []string{"WIDTH"},
		Ports: []PrimitivePort{
			{Name: "left", WidthParam: "WIDTH", Direction: Input},
			{Name: "right", WidthParam: "WIDTH", Direction: Input},
			{Name: "out", WidthParam: "WIDTH", Direction: Output},
		},
	})
	lib.Add(Primitive{
		Name:   "std_lt",
		Params: []string{"WIDTH"},
		Ports: []PrimitivePort{
			{Name: "left", WidthParam: "WIDTH", Direction: Input},
			{Name: "right", WidthParam: "WIDTH", Direction: Input},
			{Name: "out", Width: 1, Direction: Output},
		},
	})
	lib.Add(Primitive{
		Name:   "std_mem_d1",
		Params: []string{"WIDTH", "SIZE", "IDX_SIZE"},
		Ports: []PrimitivePort{
			{Name: "addr0", WidthParam: "IDX_SIZE", Direction: Input},
			{Name: "write_data", WidthParam: "WIDTH", Direction: Input},
			{Name: "write_en", Width: 1, Direction: Input, Attributes: Attributes{AttrGo: 1}},
			clkPort(),
			resetPort(),
			{Name: "read_data", WidthParam: "WIDTH", Direction: Output},
			{Name: "done", Width: 1, Direction: Output, Attributes: Attributes{AttrDone: 1}},
		},
	})
	return lib
}
