package passes

import (
	"github.com/robert-at-pretension-io/calyx-opt/internal/ir"
	"github.com/robert-at-pretension-io/calyx-opt/internal/traversal"
)

// ClkInsertionName is the registered name of ClkInsertion.
const ClkInsertionName = "clk-insertion"

// ClkInsertion wires the component's clock port into the clock port of
// every cell that has one.
//
// Insertion is de-duplicated: a continuous assignment that already exists
// is not added again, so running the pass twice is a no-op the second time.
type ClkInsertion struct {
	traversal.Base

	// Inserted counts the assignments added across all components.
	Inserted int
}

func (*ClkInsertion) Name() string { return ClkInsertionName }

func (p *ClkInsertion) Start(comp *ir.Component, prog *ir.Program) (traversal.Action, error) {
	builder := ir.NewBuilder(comp, prog.Library)
	clk, ok := comp.SignatureWithAttr(ir.AttrClk)
	if !ok {
		return traversal.Stop, nil
	}

	for _, cell := range comp.Cells() {
		port, ok := comp.FindWithAttr(cell.ID, ir.AttrClk)
		if !ok {
			continue
		}
		asgn := builder.BuildAssignment(port, clk, ir.True{})
		if builder.HasContinuous(asgn) {
			continue
		}
		if err := builder.AddContinuous(asgn); err != nil {
			return traversal.Action{}, err
		}
		p.Inserted++
	}

	// the control tree is irrelevant to this pass
	return traversal.Stop, nil
}
