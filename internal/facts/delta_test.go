package facts

import (
	"testing"

	"github.com/robert-at-pretension-io/calyx-opt/internal/ir"
)

func TestComputeDeltaAddsAndRemoves(t *testing.T) {
	prev := Tables{
		Cells: []CellRow{
			{Component: "main", Name: "a", Prototype: "std_reg"},
		},
		Assignments: []AssignmentRow{
			{Component: "main", Dst: "a.in", Src: "in", Guard: "1'd1"},
		},
	}
	next := Tables{
		Cells: []CellRow{
			{Component: "main", Name: "b", Prototype: "std_reg"},
		},
		Assignments: []AssignmentRow{
			{Component: "main", Dst: "b.clk", Src: "clk", Guard: "1'd1"},
		},
	}

	delta := ComputeDelta(prev, next)

	if len(delta.Added.Cells) != 1 || delta.Added.Cells[0].Name != "b" {
		t.Fatalf("expected cell b added, got %+v", delta.Added.Cells)
	}
	if len(delta.Removed.Cells) != 1 || delta.Removed.Cells[0].Name != "a" {
		t.Fatalf("expected cell a removed, got %+v", delta.Removed.Cells)
	}
	if len(delta.Added.Assignments) != 1 || delta.Added.Assignments[0].Dst != "b.clk" {
		t.Fatalf("expected assignment added, got %+v", delta.Added.Assignments)
	}
	if len(delta.Removed.Assignments) != 1 || delta.Removed.Assignments[0].Dst != "a.in" {
		t.Fatalf("expected assignment removed, got %+v", delta.Removed.Assignments)
	}
	if delta.Empty() {
		t.Fatalf("delta should not be empty")
	}
}

func TestComputeDeltaOfIdenticalSnapshotsIsEmpty(t *testing.T) {
	tables := BuildTables(sampleProgram(t))
	delta := ComputeDelta(tables, tables)
	if !delta.Empty() {
		t.Fatalf("expected empty delta, got %+v", delta)
	}
}

func TestComputeDeltaTracksControlRewrite(t *testing.T) {
	prog := sampleProgram(t)
	before := BuildTables(prog)
	prog.Components[0].Control = ir.NewEnable("incr")
	after := BuildTables(prog)

	delta := ComputeDelta(before, after)
	if len(delta.Added.Controls) != 1 || delta.Added.Controls[0].Kind != "enable" {
		t.Fatalf("expected one added control row, got %+v", delta.Added.Controls)
	}
	if len(delta.Removed.Controls) != 4 {
		t.Fatalf("expected 4 removed control rows, got %+v", delta.Removed.Controls)
	}
	if counts := delta.Removed.Counts(); counts["controls"] != 4 || counts["cells"] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestComputeDeltaCountsDuplicateRows(t *testing.T) {
	prog := sampleProgram(t)
	comp := prog.Components[0]
	if len(comp.Continuous) == 0 {
		t.Fatalf("sample program needs a continuous assignment")
	}
	before := BuildTables(prog)
	comp.Continuous = append(comp.Continuous, comp.Continuous[0])
	after := BuildTables(prog)

	delta := ComputeDelta(before, after)
	if len(delta.Added.Assignments) != 1 {
		t.Fatalf("duplicate assignment should be one added row, got %+v", delta.Added.Assignments)
	}
	if len(delta.Removed.Assignments) != 0 {
		t.Fatalf("nothing was removed, got %+v", delta.Removed.Assignments)
	}

	back := ComputeDelta(after, before)
	if len(back.Removed.Assignments) != 1 || len(back.Added.Assignments) != 0 {
		t.Fatalf("dropping the duplicate should be one removed row, got %+v", back)
	}
}
