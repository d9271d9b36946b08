package traversal

import (
	"fmt"

	"github.com/robert-at-pretension-io/calyx-opt/internal/ir"
)

// Visit walks the control tree stored in *slot: the start hook, then the
// children in order, then the finish hook. A Change returned by either
// hook of a node is written into slot and reported upward as Continue.
// Stop is returned as soon as any hook or child yields it. Errors are
// returned unchanged and no further hooks run.
func Visit(slot *ir.Control, v Visitor, comp *ir.Component, prog *ir.Program) (Action, error) {
	if slot == nil || *slot == nil {
		return Action{}, &MalformedTreeError{Kind: "nil", Reason: "missing control node"}
	}

	var (
		act Action
		err error
	)
	switch n := (*slot).(type) {
	case *ir.Seq:
		act, err = sequence(
			func() (Action, error) { return v.StartSeq(n, comp, prog) },
			func() (Action, error) { return VisitList(n.Stmts, v, comp, prog) },
			func() (Action, error) { return v.FinishSeq(n, comp, prog) },
		)
	case *ir.Par:
		act, err = sequence(
			func() (Action, error) { return v.StartPar(n, comp, prog) },
			func() (Action, error) { return VisitList(n.Stmts, v, comp, prog) },
			func() (Action, error) { return v.FinishPar(n, comp, prog) },
		)
	case *ir.If:
		act, err = sequence(
			func() (Action, error) { return v.StartIf(n, comp, prog) },
			func() (Action, error) { return Visit(&n.True, v, comp, prog) },
			func() (Action, error) { return Visit(&n.False, v, comp, prog) },
			func() (Action, error) { return v.FinishIf(n, comp, prog) },
		)
	case *ir.Ifen:
		act, err = sequence(
			func() (Action, error) { return v.StartIfen(n, comp, prog) },
			func() (Action, error) { return Visit(&n.True, v, comp, prog) },
			func() (Action, error) { return Visit(&n.False, v, comp, prog) },
			func() (Action, error) { return v.FinishIfen(n, comp, prog) },
		)
	case *ir.While:
		act, err = sequence(
			func() (Action, error) { return v.StartWhile(n, comp, prog) },
			func() (Action, error) { return Visit(&n.Body, v, comp, prog) },
			func() (Action, error) { return v.FinishWhile(n, comp, prog) },
		)
	case *ir.Print:
		act, err = sequence(
			func() (Action, error) { return v.StartPrint(n, comp, prog) },
			func() (Action, error) { return v.FinishPrint(n, comp, prog) },
		)
	case *ir.Enable:
		act, err = sequence(
			func() (Action, error) { return v.StartEnable(n, comp, prog) },
			func() (Action, error) { return v.FinishEnable(n, comp, prog) },
		)
	case *ir.Disable:
		act, err = sequence(
			func() (Action, error) { return v.StartDisable(n, comp, prog) },
			func() (Action, error) { return v.FinishDisable(n, comp, prog) },
		)
	case *ir.Empty:
		act, err = sequence(
			func() (Action, error) { return v.StartEmpty(n, comp, prog) },
			func() (Action, error) { return v.FinishEmpty(n, comp, prog) },
		)
	default:
		return Action{}, &MalformedTreeError{Kind: fmt.Sprintf("%T", n), Reason: "unknown control node"}
	}
	if err != nil {
		return Action{}, err
	}
	return act.apply(slot)
}

// VisitList visits stmts in order. It stops at the first element that
// yields Stop and leaves the remaining elements unvisited. Elements that
// were replaced do not end the list.
func VisitList(stmts []ir.Control, v Visitor, comp *ir.Component, prog *ir.Program) (Action, error) {
	for i := range stmts {
		act, err := Visit(&stmts[i], v, comp, prog)
		if err != nil {
			return Action{}, err
		}
		switch act.Kind() {
		case ActionContinue:
			continue
		case ActionStop:
			return Stop, nil
		default:
			// Visit consumes changes, anything else is a bug in the engine.
			return Action{}, &MalformedTreeError{Kind: kindOf(stmts[i]), Reason: "unconsumed " + act.String()}
		}
	}
	return Continue, nil
}

type step func() (Action, error)

// sequence runs the steps of one node. Continue advances to the next step.
// Stop and Change end the node early and are returned to the caller, which
// propagates Stop and applies Change. An error ends everything.
func sequence(steps ...step) (Action, error) {
	for _, s := range steps {
		act, err := s()
		if err != nil {
			return Action{}, err
		}
		switch act.Kind() {
		case ActionContinue:
		case ActionStop, ActionChange:
			return act, nil
		default:
			return Action{}, fmt.Errorf("%w: unknown action %s", ErrMalformedTree, act)
		}
	}
	return Continue, nil
}

func kindOf(c ir.Control) string {
	if c == nil {
		return "nil"
	}
	return c.Kind()
}
