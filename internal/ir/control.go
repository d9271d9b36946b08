package ir

import "fmt"

// Control is a node of a component's schedule tree. The set of variants is
// closed; see the package documentation.
type Control interface {
	controlNode()
	// Kind returns the lower-case node kind, e.g. "seq".
	Kind() string
}

// Seq runs its statements one after another.
type Seq struct {
	Stmts      []Control
	Attributes Attributes
}

// Par runs its statements in parallel.
type Par struct {
	Stmts      []Control
	Attributes Attributes
}

// If selects a branch using the value of Port once Cond has run.
type If struct {
	Port       PortID
	Cond       string
	True       Control
	False      Control
	Attributes Attributes
}

// Ifen is the enable-style conditional: Cond is enabled alongside the
// branch evaluation.
type Ifen struct {
	Port       PortID
	Cond       string
	True       Control
	False      Control
	Attributes Attributes
}

// While repeats Body while Port holds after running Cond.
type While struct {
	Port       PortID
	Cond       string
	Body       Control
	Attributes Attributes
}

// Print is a diagnostic print of a named value.
type Print struct {
	Var        string
	Attributes Attributes
}

// Enable activates a group.
type Enable struct {
	Group      string
	Attributes Attributes
}

// Disable deactivates a group.
type Disable struct {
	Group      string
	Attributes Attributes
}

// Empty does nothing.
type Empty struct {
	Attributes Attributes
}

func (*Seq) controlNode()     {}
func (*Par) controlNode()     {}
func (*If) controlNode()      {}
func (*Ifen) controlNode()    {}
func (*While) controlNode()   {}
func (*Print) controlNode()   {}
func (*Enable) controlNode()  {}
func (*Disable) controlNode() {}
func (*Empty) controlNode()   {}

func (*Seq) Kind() string     { return "seq" }
func (*Par) Kind() string     { return "par" }
func (*If) Kind() string      { return "if" }
func (*Ifen) Kind() string    { return "ifen" }
func (*While) Kind() string   { return "while" }
func (*Print) Kind() string   { return "print" }
func (*Enable) Kind() string  { return "enable" }
func (*Disable) Kind() string { return "disable" }
func (*Empty) Kind() string   { return "empty" }

// CloneControl returns a deep copy of c. Nil children are preserved as nil
// so that the traversal reports them as malformed.
func CloneControl(c Control) Control {
	switch n := c.(type) {
	case nil:
		return nil
	case *Seq:
		return &Seq{Stmts: cloneList(n.Stmts), Attributes: n.Attributes.Clone()}
	case *Par:
		return &Par{Stmts: cloneList(n.Stmts), Attributes: n.Attributes.Clone()}
	case *If:
		return &If{
			Port:       n.Port,
			Cond:       n.Cond,
			True:       CloneControl(n.True),
			False:      CloneControl(n.False),
			Attributes: n.Attributes.Clone(),
		}
	case *Ifen:
		return &Ifen{
			Port:       n.Port,
			Cond:       n.Cond,
			True:       CloneControl(n.True),
			False:      CloneControl(n.False),
			Attributes: n.Attributes.Clone(),
		}
	case *While:
		return &While{
			Port:       n.Port,
			Cond:       n.Cond,
			Body:       CloneControl(n.Body),
			Attributes: n.Attributes.Clone(),
		}
	case *Print:
		return &Print{Var: n.Var, Attributes: n.Attributes.Clone()}
	case *Enable:
		return &Enable{Group: n.Group, Attributes: n.Attributes.Clone()}
	case *Disable:
		return &Disable{Group: n.Group, Attributes: n.Attributes.Clone()}
	case *Empty:
		return &Empty{Attributes: n.Attributes.Clone()}
	default:
		panic(fmt.Sprintf("ir: unknown control node %T", c))
	}
}

func cloneList(stmts []Control) []Control {
	if stmts == nil {
		return nil
	}
	out := make([]Control, len(stmts))
	for i, s := range stmts {
		out[i] = CloneControl(s)
	}
	return out
}

// NewSeq and NewPar are shorthands used by passes that synthesize control.
func NewSeq(stmts ...Control) *Seq { return &Seq{Stmts: stmts} }
func NewPar(stmts ...Control) *Par { return &Par{Stmts: stmts} }

// NewEnable returns a node enabling group.
func NewEnable(group string) *Enable { return &Enable{Group: group} }
