package facts

import (
	"testing"

	"github.com/robert-at-pretension-io/calyx-opt/internal/ir"
)

func sampleProgram(t *testing.T) *ir.Program {
	t.Helper()
	prog := ir.NewProgram()
	comp := ir.NewComponent("main")
	for _, def := range []ir.PortDef{
		{Name: "in", Width: 8, Direction: ir.Input},
		{Name: "clk", Width: 1, Direction: ir.Input, Attributes: ir.Attributes{ir.AttrClk: 1}},
	} {
		if _, err := comp.AddSignaturePort(def); err != nil {
			t.Fatalf("add port: %v", err)
		}
	}
	b := ir.NewBuilder(comp, prog.Library)
	if _, err := b.AddPrimitive("r", "std_reg", 8); err != nil {
		t.Fatalf("add reg: %v", err)
	}
	if _, err := comp.AddGroup("incr", nil); err != nil {
		t.Fatalf("add group: %v", err)
	}
	in, _ := comp.SignaturePort("in")
	rin, err := comp.ResolvePort("r.in")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := b.AddContinuous(b.BuildAssignment(rin, in, nil)); err != nil {
		t.Fatalf("add continuous: %v", err)
	}
	comp.Control = ir.NewSeq(
		ir.NewEnable("incr"),
		&ir.While{Port: in, Cond: "cmp", Body: ir.NewEnable("incr")},
	)
	if err := prog.AddComponent(comp); err != nil {
		t.Fatalf("add component: %v", err)
	}
	return prog
}

func TestBuildTablesPopulatesCoreRelations(t *testing.T) {
	tables := BuildTables(sampleProgram(t))

	if len(tables.Components) != 1 || !tables.Components[0].IsEntrypoint {
		t.Fatalf("expected main as entrypoint, got %+v", tables.Components)
	}
	if len(tables.Cells) != 1 || tables.Cells[0].Params != "8" {
		t.Fatalf("expected 1 cell row with params 8, got %+v", tables.Cells)
	}
	// 2 signature ports + 6 std_reg ports
	if len(tables.Ports) != 8 {
		t.Fatalf("expected 8 port rows, got %d", len(tables.Ports))
	}
	clocks := 0
	for _, p := range tables.Ports {
		if p.IsClock {
			clocks++
		}
	}
	if clocks != 2 {
		t.Fatalf("expected 2 clock ports, got %d", clocks)
	}
	if len(tables.Assignments) != 1 {
		t.Fatalf("expected 1 assignment row, got %d", len(tables.Assignments))
	}
	a := tables.Assignments[0]
	if a.Dst != "r.in" || a.Src != "in" || a.DstWidth != 8 || a.Dangling {
		t.Fatalf("unexpected assignment row %+v", a)
	}

	var paths []string
	for _, c := range tables.Controls {
		paths = append(paths, c.Path+":"+c.Kind)
	}
	want := []string{"root:seq", "root.0:enable", "root.1:while", "root.1.body:enable"}
	if len(paths) != len(want) {
		t.Fatalf("control rows = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("control rows = %v, want %v", paths, want)
		}
	}
	if tables.Controls[2].Port != "in" || tables.Controls[2].Cond != "cmp" {
		t.Fatalf("while row missing port or cond: %+v", tables.Controls[2])
	}
}

func TestBuildTablesMarksDanglingAssignments(t *testing.T) {
	prog := sampleProgram(t)
	comp := prog.Components[0]
	r, _ := comp.FindCell("r")
	rclk, _ := comp.FindWithAttr(r.ID, ir.AttrClk)
	clk, _ := comp.SignatureWithAttr(ir.AttrClk)
	// appended directly so RemoveCell cannot clean it up
	comp.Continuous = append(comp.Continuous, ir.Assignment{Dst: rclk + 100, Src: clk, Guard: ir.True{}})

	tables := BuildTables(prog)
	last := tables.Assignments[len(tables.Assignments)-1]
	if !last.Dangling {
		t.Fatalf("expected dangling assignment, got %+v", last)
	}
}
