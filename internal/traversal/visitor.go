package traversal

import "github.com/robert-at-pretension-io/calyx-opt/internal/ir"

// Visitor is implemented by every pass. For each control node kind X there
// is a StartX hook, called before the node's children are visited, and a
// FinishX hook, called after them. Start and Finish bracket the traversal
// of one component.
//
// Hooks get the node, the component that owns it and the whole program.
// The node belongs to a detached working copy of the control tree, so a
// hook may mutate the component's cells and assignments freely. Writes to
// comp.Control during the walk are overwritten when the copy is committed.
type Visitor interface {
	Name() string

	Start(comp *ir.Component, prog *ir.Program) (Action, error)
	Finish(comp *ir.Component, prog *ir.Program) (Action, error)

	StartSeq(s *ir.Seq, comp *ir.Component, prog *ir.Program) (Action, error)
	FinishSeq(s *ir.Seq, comp *ir.Component, prog *ir.Program) (Action, error)
	StartPar(s *ir.Par, comp *ir.Component, prog *ir.Program) (Action, error)
	FinishPar(s *ir.Par, comp *ir.Component, prog *ir.Program) (Action, error)
	StartIf(s *ir.If, comp *ir.Component, prog *ir.Program) (Action, error)
	FinishIf(s *ir.If, comp *ir.Component, prog *ir.Program) (Action, error)
	StartIfen(s *ir.Ifen, comp *ir.Component, prog *ir.Program) (Action, error)
	FinishIfen(s *ir.Ifen, comp *ir.Component, prog *ir.Program) (Action, error)
	StartWhile(s *ir.While, comp *ir.Component, prog *ir.Program) (Action, error)
	FinishWhile(s *ir.While, comp *ir.Component, prog *ir.Program) (Action, error)
	StartPrint(s *ir.Print, comp *ir.Component, prog *ir.Program) (Action, error)
	FinishPrint(s *ir.Print, comp *ir.Component, prog *ir.Program) (Action, error)
	StartEnable(s *ir.Enable, comp *ir.Component, prog *ir.Program) (Action, error)
	FinishEnable(s *ir.Enable, comp *ir.Component, prog *ir.Program) (Action, error)
	StartDisable(s *ir.Disable, comp *ir.Component, prog *ir.Program) (Action, error)
	FinishDisable(s *ir.Disable, comp *ir.Component, prog *ir.Program) (Action, error)
	StartEmpty(s *ir.Empty, comp *ir.Component, prog *ir.Program) (Action, error)
	FinishEmpty(s *ir.Empty, comp *ir.Component, prog *ir.Program) (Action, error)
}

// Base implements every hook as a no-op returning Continue. Passes embed it
// and override the hooks they care about. Name must still be provided.
type Base struct{}

func (Base) Start(*ir.Component, *ir.Program) (Action, error)  { return Continue, nil }
func (Base) Finish(*ir.Component, *ir.Program) (Action, error) { return Continue, nil }

func (Base) StartSeq(*ir.Seq, *ir.Component, *ir.Program) (Action, error)  { return Continue, nil }
func (Base) FinishSeq(*ir.Seq, *ir.Component, *ir.Program) (Action, error) { return Continue, nil }
func (Base) StartPar(*ir.Par, *ir.Component, *ir.Program) (Action, error)  { return Continue, nil }
func (Base) FinishPar(*ir.Par, *ir.Component, *ir.Program) (Action, error) { return Continue, nil }
func (Base) StartIf(*ir.If, *ir.Component, *ir.Program) (Action, error)    { return Continue, nil }
func (Base) FinishIf(*ir.If, *ir.Component, *ir.Program) (Action, error)   { return Continue, nil }
func (Base) StartIfen(*ir.Ifen, *ir.Component, *ir.Program) (Action, error) {
	return Continue, nil
}
func (Base) FinishIfen(*ir.Ifen, *ir.Component, *ir.Program) (Action, error) {
	return Continue, nil
}
func (Base) StartWhile(*ir.While, *ir.Component, *ir.Program) (Action, error) {
	return Continue, nil
}
func (Base) FinishWhile(*ir.While, *ir.Component, *ir.Program) (Action, error) {
	return Continue, nil
}
func (Base) StartPrint(*ir.Print, *ir.Component, *ir.Program) (Action, error) {
	return Continue, nil
}
func (Base) FinishPrint(*ir.Print, *ir.Component, *ir.Program) (Action, error) {
	return Continue, nil
}
func (Base) StartEnable(*ir.Enable, *ir.Component, *ir.Program) (Action, error) {
	return Continue, nil
}
func (Base) FinishEnable(*ir.Enable, *ir.Component, *ir.Program) (Action, error) {
	return Continue, nil
}
func (Base) StartDisable(*ir.Disable, *ir.Component, *ir.Program) (Action, error) {
	return Continue, nil
}
func (Base) FinishDisable(*ir.Disable, *ir.Component, *ir.Program) (Action, error) {
	return Continue, nil
}
func (Base) StartEmpty(*ir.Empty, *ir.Component, *ir.Program) (Action, error) {
	return Continue, nil
}
func (Base) FinishEmpty(*ir.Empty, *ir.Component, *ir.Program) (Action, error) {
	return Continue, nil
}
