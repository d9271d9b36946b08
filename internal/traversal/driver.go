package traversal

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/robert-at-pretension-io/calyx-opt/internal/ir"
)

const dumpFooter = "================================================"

// Option configures DoPass.
type Option func(*driver)

type driver struct {
	out    io.Writer
	debug  *bool
	logger *zap.Logger
	onComp func(*ir.Component)
}

// WithWriter sets where debug dumps go. Defaults to stdout.
func WithWriter(w io.Writer) Option {
	return func(d *driver) { d.out = w }
}

// WithDebug forces debug dumps on or off, overriding Program.DebugMode.
func WithDebug(on bool) Option {
	return func(d *driver) { d.debug = &on }
}

// WithLogger sets the logger used for per-component diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(d *driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithComponentHook registers fn to be called for each component just before
// its Start hook runs. Components after a failing one are never reported.
func WithComponentHook(fn func(*ir.Component)) Option {
	return func(d *driver) { d.onComp = fn }
}

func newDriver(opts []Option) *driver {
	d := &driver{out: os.Stdout, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DoPass runs v once over every component of prog, in definition order.
//
// For each component: Start; when it returns Continue, the control tree is
// cloned, the clone is walked, written back as the new control root, and
// Finish runs. Stop from Start skips the walk and Finish for that
// component. Stop from inside the tree ends the walk but the clone is
// still committed and Finish still runs.
//
// The first error aborts the whole run. Mutations made before it are not
// rolled back, so the program must then be treated as diagnostic-only.
func DoPass(v Visitor, prog *ir.Program, opts ...Option) error {
	d := newDriver(opts)
	name := v.Name()

	for _, comp := range prog.Components {
		if d.onComp != nil {
			d.onComp(comp)
		}
		if err := d.runComponent(v, comp, prog); err != nil {
			d.logger.Debug("pass failed",
				zap.String("pass", name),
				zap.String("component", comp.Name),
				zap.Error(err),
			)
			return &HookError{Pass: name, Component: comp.Name, Err: err}
		}
	}

	debug := prog.DebugMode
	if d.debug != nil {
		debug = *d.debug
	}
	if debug {
		if err := Dump(d.out, name, prog); err != nil {
			return &IOError{Pass: name, Err: err}
		}
	}
	return nil
}

func (d *driver) runComponent(v Visitor, comp *ir.Component, prog *ir.Program) error {
	act, err := v.Start(comp, prog)
	if err != nil {
		return err
	}
	switch act.Kind() {
	case ActionContinue:
	case ActionStop:
		d.logComponent(v, comp, "stopped at start")
		return nil
	case ActionChange:
		// Replacing the whole tree from Start ends the component like a
		// Change from a node's start hook does.
		if act.Replacement() == nil {
			return &MalformedTreeError{Kind: "component", Reason: "change to a nil node"}
		}
		comp.Control = act.Replacement()
		d.logComponent(v, comp, "replaced at start")
		return nil
	}

	control := ir.CloneControl(comp.Control)
	walk, err := Visit(&control, v, comp, prog)
	if err != nil {
		return err
	}
	comp.Control = control

	act, err = v.Finish(comp, prog)
	if err != nil {
		return err
	}
	if act.Kind() == ActionChange {
		if act.Replacement() == nil {
			return &MalformedTreeError{Kind: "component", Reason: "change to a nil node"}
		}
		comp.Control = act.Replacement()
	}
	d.logComponent(v, comp, walk.String())
	return nil
}

func (d *driver) logComponent(v Visitor, comp *ir.Component, outcome string) {
	d.logger.Debug("component visited",
		zap.String("pass", v.Name()),
		zap.String("component", comp.Name),
		zap.String("outcome", outcome),
	)
}

// Dump writes the whole program framed by the pass name.
func Dump(w io.Writer, pass string, prog *ir.Program) error {
	var b strings.Builder
	b.WriteString("=============== " + pass + " ==============\n")
	if err := ir.Fprint(&b, prog); err != nil {
		return err
	}
	b.WriteString(dumpFooter + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// DoPassDefault default-constructs a visitor of type T, runs it once over
// prog and returns it so callers can inspect any state it collected.
func DoPassDefault[T any, PT interface {
	*T
	Visitor
}](prog *ir.Program, opts ...Option) (PT, error) {
	v := PT(new(T))
	if err := DoPass(v, prog, opts...); err != nil {
		return nil, err
	}
	return v, nil
}
