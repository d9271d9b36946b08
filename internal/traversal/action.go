package traversal

import (
	"fmt"

	"github.com/robert-at-pretension-io/calyx-opt/internal/ir"
)

// ActionKind classifies the outcome of a hook.
type ActionKind int

const (
	// ActionContinue proceeds with the traversal.
	ActionContinue ActionKind = iota
	// ActionStop aborts the rest of the traversal for the component.
	ActionStop
	// ActionChange replaces the current node.
	ActionChange
)

func (k ActionKind) String() string {
	switch k {
	case ActionContinue:
		return "continue"
	case ActionStop:
		return "stop"
	case ActionChange:
		return "change"
	default:
		return fmt.Sprintf("action(%d)", int(k))
	}
}

// Action is the outcome of a visitor hook.
type Action struct {
	kind   ActionKind
	change ir.Control
}

// Continue and Stop are the payload-free outcomes.
var (
	Continue = Action{kind: ActionContinue}
	Stop     = Action{kind: ActionStop}
)

// Change replaces the node the hook was called on with c. The replacement
// is applied at the node's own position and reported upward as Continue.
func Change(c ir.Control) Action {
	return Action{kind: ActionChange, change: c}
}

// Kind returns the outcome kind.
func (a Action) Kind() ActionKind { return a.kind }

// Replacement returns the node carried by a Change, or nil.
func (a Action) Replacement() ir.Control { return a.change }

func (a Action) String() string {
	if a.kind == ActionChange && a.change != nil {
		return "change(" + a.change.Kind() + ")"
	}
	return a.kind.String()
}

// apply consumes a Change by writing it into slot.
func (a Action) apply(slot *ir.Control) (Action, error) {
	if a.kind != ActionChange {
		return a, nil
	}
	if a.change == nil {
		return Action{}, &MalformedTreeError{Kind: kindOf(*slot), Reason: "change to a nil node"}
	}
	*slot = a.change
	return Continue, nil
}
