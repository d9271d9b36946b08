package traversal

import (
	"errors"
	"fmt"

	"github.com/robert-at-pretension-io/calyx-opt/internal/ir"
)

// Error classes. Use errors.Is to classify an error returned by DoPass.
var (
	ErrMalformedTree = errors.New("malformed control tree")
	ErrHookFailure   = errors.New("pass hook failed")
	ErrIOFailure     = errors.New("diagnostic output failed")
)

// MalformedTreeError reports a structurally invalid control node.
type MalformedTreeError struct {
	Kind   string
	Reason string
}

func (e *MalformedTreeError) Error() string {
	return fmt.Sprintf("malformed control tree at %s: %s", e.Kind, e.Reason)
}

func (e *MalformedTreeError) Is(target error) bool { return target == ErrMalformedTree }

// NodeError is a hook failure tied to a control node.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string { return fmt.Sprintf("at %s: %v", e.Node, e.Err) }

func (e *NodeError) Unwrap() error { return e.Err }

func (e *NodeError) Is(target error) bool { return target == ErrHookFailure }

// Failf builds a hook failure for node. Passes return it when one of their
// preconditions does not hold.
func Failf(node ir.Control, format string, args ...any) error {
	return &NodeError{Node: kindOf(node), Err: fmt.Errorf(format, args...)}
}

// HookError wraps any error raised while running a pass on one component.
// The original error stays reachable through errors.Is and errors.As.
type HookError struct {
	Pass      string
	Component string
	Err       error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("pass %s: component %s: %v", e.Pass, e.Component, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// Is classifies plain hook errors as ErrHookFailure. Malformed trees keep
// their own class.
func (e *HookError) Is(target error) bool {
	return target == ErrHookFailure && !errors.Is(e.Err, ErrMalformedTree)
}

// IOError reports a failed diagnostic dump. IR mutations already applied
// by the pass are kept.
type IOError struct {
	Pass string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("pass %s: writing debug dump: %v", e.Pass, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIOFailure }
