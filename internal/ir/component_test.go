package ir

import (
	"strings"
	"testing"
)

func regComponent(t *testing.T) (*Component, CellID) {
	t.Helper()
	comp := NewComponent("main")
	for _, def := range []PortDef{
		{Name: "in", Width: 8, Direction: Input},
		{Name: "out", Width: 8, Direction: Output},
		{Name: "clk", Width: 1, Direction: Input, Attributes: Attributes{AttrClk: 1}},
	} {
		if _, err := comp.AddSignaturePort(def); err != nil {
			t.Fatalf("add signature port: %v", err)
		}
	}
	ports, err := DefaultLibrary().prims["std_reg"].Resolve([]uint64{8})
	if err != nil {
		t.Fatalf("resolve std_reg: %v", err)
	}
	id, err := comp.AddCell("r", Prototype{Name: "std_reg", Params: []uint64{8}}, ports, nil)
	if err != nil {
		t.Fatalf("add cell: %v", err)
	}
	return comp, id
}

func TestNewComponentHasEmptyControl(t *testing.T) {
	comp := NewComponent("c")
	if _, ok := comp.Control.(*Empty); !ok {
		t.Fatalf("expected Empty control, got %T", comp.Control)
	}
	if comp.Cell(NoCell) != nil || comp.Port(NoPort) != nil {
		t.Fatalf("zero ids must not resolve")
	}
}

func TestDuplicateNamesRejected(t *testing.T) {
	comp, _ := regComponent(t)
	if _, err := comp.AddSignaturePort(PortDef{Name: "in", Width: 1}); err == nil {
		t.Fatalf("expected duplicate signature port error")
	}
	if _, err := comp.AddCell("r", Prototype{Name: "std_wire"}, nil, nil); err == nil {
		t.Fatalf("expected duplicate cell error")
	}
	if _, err := comp.AddGroup("g", nil); err != nil {
		t.Fatalf("add group: %v", err)
	}
	if _, err := comp.AddGroup("g", nil); err == nil {
		t.Fatalf("expected duplicate group error")
	}

	prog := NewProgram()
	if err := prog.AddComponent(NewComponent("x")); err != nil {
		t.Fatalf("add component: %v", err)
	}
	if err := prog.AddComponent(NewComponent("x")); err == nil {
		t.Fatalf("expected duplicate component error")
	}
}

func TestPortLookups(t *testing.T) {
	comp, reg := regComponent(t)

	clk, ok := comp.SignatureWithAttr(AttrClk)
	if !ok || comp.Port(clk).Name != "clk" {
		t.Fatalf("signature clk lookup failed")
	}
	regClk, ok := comp.FindWithAttr(reg, AttrClk)
	if !ok {
		t.Fatalf("expected std_reg to carry a clk port")
	}
	if got := comp.PortName(regClk); got != "r.clk" {
		t.Fatalf("expected r.clk, got %s", got)
	}
	if got := comp.PortName(clk); got != "clk" {
		t.Fatalf("expected clk, got %s", got)
	}
	if _, ok := comp.FindWithAttr(reg, AttrStatic); ok {
		t.Fatalf("unexpected static port")
	}

	id, err := comp.ResolvePort("r.out")
	if err != nil {
		t.Fatalf("resolve r.out: %v", err)
	}
	if p := comp.Port(id); p.Direction != Output || p.Width != 8 || p.Cell != reg {
		t.Fatalf("unexpected port %+v", p)
	}
	for _, ref := range []string{"nope", "r.nope", "q.out"} {
		if _, err := comp.ResolvePort(ref); err == nil {
			t.Fatalf("expected error resolving %q", ref)
		}
	}
}

func TestRemoveCellDropsAssignments(t *testing.T) {
	comp, reg := regComponent(t)
	b := NewBuilder(comp, DefaultLibrary())

	clk, _ := comp.SignatureWithAttr(AttrClk)
	regClk, _ := comp.FindWithAttr(reg, AttrClk)
	in, _ := comp.SignaturePort("in")
	out, _ := comp.SignaturePort("out")
	if err := b.AddContinuous(b.BuildAssignment(regClk, clk, nil)); err != nil {
		t.Fatalf("add continuous: %v", err)
	}
	if err := b.AddContinuous(b.BuildAssignment(out, in, nil)); err != nil {
		t.Fatalf("add continuous: %v", err)
	}

	dropped, err := comp.RemoveCell(reg)
	if err != nil {
		t.Fatalf("remove cell: %v", err)
	}
	if dropped != 1 || len(comp.Continuous) != 1 {
		t.Fatalf("expected one dropped and one kept, got dropped=%d kept=%d", dropped, len(comp.Continuous))
	}
	if comp.Cell(reg) != nil || comp.Port(regClk) != nil {
		t.Fatalf("cell or port still reachable after removal")
	}
	if len(comp.Cells()) != 0 {
		t.Fatalf("expected no live cells")
	}
	if !strings.HasPrefix(comp.PortName(regClk), "<dangling") {
		t.Fatalf("expected dangling name, got %s", comp.PortName(regClk))
	}

	// ids are never reused
	id, err := NewBuilder(comp, DefaultLibrary()).AddPrimitive("r", "std_reg", 8)
	if err != nil {
		t.Fatalf("add primitive: %v", err)
	}
	if id == reg {
		t.Fatalf("cell id %d reused", id)
	}
	if _, err := comp.RemoveCell(reg); err == nil {
		t.Fatalf("expected error removing a removed cell")
	}
}

func TestAttributes(t *testing.T) {
	var attrs Attributes
	if attrs.Has(AttrClk) {
		t.Fatalf("nil attributes should be empty")
	}
	attrs.Insert(AttrStatic, 2)
	attrs.Insert(AttrClk, 1)
	if v, ok := attrs.Get(AttrStatic); !ok || v != 2 {
		t.Fatalf("expected static=2, got %d %v", v, ok)
	}
	if got := attrs.String(); got != "@clk @static(2)" {
		t.Fatalf("unexpected rendering %q", got)
	}
	clone := attrs.Clone()
	clone.Insert(AttrDone, 1)
	if attrs.Has(AttrDone) {
		t.Fatalf("clone shares storage with original")
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
		ok   bool
	}{
		{"input", Input, true},
		{"in", Input, true},
		{"Output", Output, true},
		{"inout", Inout, true},
		{"sideways", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("ParseDirection(%q) err=%v", tt.in, err)
		}
		if tt.ok && got != tt.want {
			t.Fatalf("ParseDirection(%q)=%s, want %s", tt.in, got, tt.want)
		}
	}
}

// portGuard holds a slice, so its values are not comparable with ==.
type portGuard struct{ ports []PortID }

func (portGuard) guard() {}

func (g portGuard) String() string { return "ports" }

func (g portGuard) Equal(other Guard) bool {
	o, ok := other.(portGuard)
	if !ok || len(o.ports) != len(g.ports) {
		return false
	}
	for i := range g.ports {
		if g.ports[i] != o.ports[i] {
			return false
		}
	}
	return true
}

func TestAssignmentEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Assignment
		want bool
	}{
		{"nil guard equals true", Assignment{Dst: 1, Src: 2}, Assignment{Dst: 1, Src: 2, Guard: True{}}, true},
		{"true equals nil guard", Assignment{Dst: 1, Src: 2, Guard: True{}}, Assignment{Dst: 1, Src: 2}, true},
		{"different ports", Assignment{Dst: 1, Src: 2}, Assignment{Dst: 1, Src: 3}, false},
		{"uncomparable guards match", Assignment{Dst: 1, Src: 2, Guard: portGuard{[]PortID{4}}}, Assignment{Dst: 1, Src: 2, Guard: portGuard{[]PortID{4}}}, true},
		{"uncomparable guards differ", Assignment{Dst: 1, Src: 2, Guard: portGuard{[]PortID{4}}}, Assignment{Dst: 1, Src: 2, Guard: portGuard{[]PortID{5}}}, false},
		{"uncomparable guard against true", Assignment{Dst: 1, Src: 2}, Assignment{Dst: 1, Src: 2, Guard: portGuard{[]PortID{4}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Fatalf("Equal = %v, want %v", got, tt.want)
			}
		})
	}
}
