package ir

import (
	"encoding/json"
	"fmt"
)

// ProgramFile is the JSON interchange form of a Program. It is produced by
// an upstream front-end and consumed by the pass tools.
type ProgramFile struct {
	Entrypoint string          `json:"entrypoint,omitempty"`
	Components []ComponentFile `json:"components"`
}

type ComponentFile struct {
	Name       string       `json:"name"`
	Attributes Attributes   `json:"attributes,omitempty"`
	Signature  []PortFile   `json:"signature"`
	Cells      []CellFile   `json:"cells"`
	Groups     []GroupFile  `json:"groups,omitempty"`
	Wires      []WireFile   `json:"wires"`
	Control    *ControlFile `json:"control,omitempty"`
}

type PortFile struct {
	Name       string     `json:"name"`
	Width      uint64     `json:"width"`
	Direction  string     `json:"direction"`
	Attributes Attributes `json:"attributes,omitempty"`
}

type CellFile struct {
	Name        string     `json:"name"`
	Prototype   string     `json:"prototype"`
	Params      []uint64   `json:"params,omitempty"`
	IsComponent bool       `json:"is_component,omitempty"`
	Attributes  Attributes `json:"attributes,omitempty"`
	// Ports overrides the port list derived from the prototype.
	Ports []PortFile `json:"ports,omitempty"`
}

type GroupFile struct {
	Name       string     `json:"name"`
	Attributes Attributes `json:"attributes,omitempty"`
}

// WireFile is a continuous assignment written as port references
// ("cell.port" or "port").
type WireFile struct {
	Dst   string `json:"dst"`
	Src   string `json:"src"`
	Guard string `json:"guard,omitempty"`
}

// ControlFile is a tagged control node.
type ControlFile struct {
	Kind       string        `json:"kind"`
	Stmts      []ControlFile `json:"stmts,omitempty"`
	Port       string        `json:"port,omitempty"`
	Cond       string        `json:"cond,omitempty"`
	True       *ControlFile  `json:"true,omitempty"`
	False      *ControlFile  `json:"false,omitempty"`
	Body       *ControlFile  `json:"body,omitempty"`
	Var        string        `json:"var,omitempty"`
	Group      string        `json:"group,omitempty"`
	Attributes Attributes    `json:"attributes,omitempty"`
}

// DecodeProgram parses a JSON program file and builds a Program using the
// default primitive library.
func DecodeProgram(data []byte) (*Program, error) {
	var file ProgramFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing program: %w", err)
	}
	return FromFile(file)
}

// FromFile builds a Program from its interchange form. Components must be
// defined before they are instantiated.
func FromFile(file ProgramFile) (*Program, error) {
	prog := NewProgram()
	if file.Entrypoint != "" {
		prog.Entrypoint = file.Entrypoint
	}
	for _, cf := range file.Components {
		comp, err := buildComponent(prog, cf)
		if err != nil {
			return nil, err
		}
		if err := prog.AddComponent(comp); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

func portDefs(files []PortFile) ([]PortDef, error) {
	defs := make([]PortDef, 0, len(files))
	for _, pf := range files {
		dir, err := ParseDirection(pf.Direction)
		if err != nil {
			return nil, fmt.Errorf("port %s: %w", pf.Name, err)
		}
		defs = append(defs, PortDef{Name: pf.Name, Width: pf.Width, Direction: dir, Attributes: pf.Attributes})
	}
	return defs, nil
}

func buildComponent(prog *Program, cf ComponentFile) (*Component, error) {
	comp := NewComponent(cf.Name)
	comp.Attributes = cf.Attributes.Clone()

	sig, err := portDefs(cf.Signature)
	if err != nil {
		return nil, fmt.Errorf("component %s: %w", cf.Name, err)
	}
	for _, def := range sig {
		if _, err := comp.AddSignaturePort(def); err != nil {
			return nil, err
		}
	}

	for _, cell := range cf.Cells {
		ports, err := cellPorts(prog, cell)
		if err != nil {
			return nil, fmt.Errorf("component %s: cell %s: %w", cf.Name, cell.Name, err)
		}
		proto := Prototype{Name: cell.Prototype, Params: cell.Params, IsComponent: cell.IsComponent}
		if _, err := comp.AddCell(cell.Name, proto, ports, cell.Attributes); err != nil {
			return nil, err
		}
	}

	for _, g := range cf.Groups {
		if _, err := comp.AddGroup(g.Name, g.Attributes); err != nil {
			return nil, err
		}
	}

	for _, w := range cf.Wires {
		if w.Guard != "" && w.Guard != "true" && w.Guard != (True{}).String() {
			return nil, fmt.Errorf("component %s: unsupported guard %q on %s", cf.Name, w.Guard, w.Dst)
		}
		dst, err := comp.ResolvePort(w.Dst)
		if err != nil {
			return nil, err
		}
		src, err := comp.ResolvePort(w.Src)
		if err != nil {
			return nil, err
		}
		comp.Continuous = append(comp.Continuous, Assignment{Dst: dst, Src: src, Guard: True{}})
	}

	if cf.Control != nil {
		ctrl, err := buildControl(comp, *cf.Control)
		if err != nil {
			return nil, fmt.Errorf("component %s: control: %w", cf.Name, err)
		}
		comp.Control = ctrl
	}
	return comp, nil
}

func cellPorts(prog *Program, cell CellFile) ([]PortDef, error) {
	if len(cell.Ports) > 0 {
		return portDefs(cell.Ports)
	}
	if cell.IsComponent {
		target, ok := prog.Component(cell.Prototype)
		if !ok {
			return nil, fmt.Errorf("component %q is not defined before use", cell.Prototype)
		}
		defs := make([]PortDef, 0, len(target.Signature))
		for _, id := range target.Signature {
			p := target.Port(id)
			defs = append(defs, PortDef{Name: p.Name, Width: p.Width, Direction: p.Direction, Attributes: p.Attributes})
		}
		return defs, nil
	}
	prim, ok := prog.Library.Get(cell.Prototype)
	if !ok {
		return nil, fmt.Errorf("unknown primitive %q", cell.Prototype)
	}
	return prim.Resolve(cell.Params)
}

func buildControl(comp *Component, cf ControlFile) (Control, error) {
	branch := func(f *ControlFile) (Control, error) {
		if f == nil {
			return &Empty{}, nil
		}
		return buildControl(comp, *f)
	}
	list := func() ([]Control, error) {
		stmts := make([]Control, 0, len(cf.Stmts))
		for _, s := range cf.Stmts {
			c, err := buildControl(comp, s)
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, c)
		}
		return stmts, nil
	}
	attrs := cf.Attributes.Clone()

	switch cf.Kind {
	case "seq":
		stmts, err := list()
		if err != nil {
			return nil, err
		}
		return &Seq{Stmts: stmts, Attributes: attrs}, nil
	case "par":
		stmts, err := list()
		if err != nil {
			return nil, err
		}
		return &Par{Stmts: stmts, Attributes: attrs}, nil
	case "if", "ifen":
		port, err := comp.ResolvePort(cf.Port)
		if err != nil {
			return nil, err
		}
		t, err := branch(cf.True)
		if err != nil {
			return nil, err
		}
		f, err := branch(cf.False)
		if err != nil {
			return nil, err
		}
		if cf.Kind == "if" {
			return &If{Port: port, Cond: cf.Cond, True: t, False: f, Attributes: attrs}, nil
		}
		return &Ifen{Port: port, Cond: cf.Cond, True: t, False: f, Attributes: attrs}, nil
	case "while":
		port, err := comp.ResolvePort(cf.Port)
		if err != nil {
			return nil, err
		}
		body, err := branch(cf.Body)
		if err != nil {
			return nil, err
		}
		return &While{Port: port, Cond: cf.Cond, Body: body, Attributes: attrs}, nil
	case "print":
		return &Print{Var: cf.Var, Attributes: attrs}, nil
	case "enable":
		return &Enable{Group: cf.Group, Attributes: attrs}, nil
	case "disable":
		return &Disable{Group: cf.Group, Attributes: attrs}, nil
	case "empty", "":
		return &Empty{Attributes: attrs}, nil
	}
	return nil, fmt.Errorf("unknown control kind %q", cf.Kind)
}

// ToFile converts prog back into its interchange form. Cell ports are
// written explicitly so the file round-trips without the library. A nil or
// unknown control node is an error: the file form has no way to express it.
func ToFile(prog *Program) (ProgramFile, error) {
	file := ProgramFile{Entrypoint: prog.Entrypoint, Components: []ComponentFile{}}
	for _, comp := range prog.Components {
		cf := ComponentFile{
			Name:       comp.Name,
			Attributes: comp.Attributes,
			Signature:  portFiles(comp, comp.Signature),
			Cells:      []CellFile{},
			Wires:      []WireFile{},
		}
		for _, cell := range comp.Cells() {
			cf.Cells = append(cf.Cells, CellFile{
				Name:        cell.Name,
				Prototype:   cell.Prototype.Name,
				Params:      cell.Prototype.Params,
				IsComponent: cell.Prototype.IsComponent,
				Attributes:  cell.Attributes,
				Ports:       portFiles(comp, cell.Ports),
			})
		}
		for _, g := range comp.Groups {
			cf.Groups = append(cf.Groups, GroupFile{Name: g.Name, Attributes: g.Attributes})
		}
		for _, a := range comp.Continuous {
			cf.Wires = append(cf.Wires, WireFile{Dst: comp.PortName(a.Dst), Src: comp.PortName(a.Src)})
		}
		ctrl, err := controlFile(comp, comp.Control, "root")
		if err != nil {
			return ProgramFile{}, fmt.Errorf("component %s: %w", comp.Name, err)
		}
		cf.Control = ctrl
		file.Components = append(file.Components, cf)
	}
	return file, nil
}

// EncodeProgram renders prog as indented JSON.
func EncodeProgram(prog *Program) ([]byte, error) {
	file, err := ToFile(prog)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling program: %w", err)
	}
	return data, nil
}

func portFiles(comp *Component, ids []PortID) []PortFile {
	out := make([]PortFile, 0, len(ids))
	for _, id := range ids {
		p := comp.Port(id)
		out = append(out, PortFile{Name: p.Name, Width: p.Width, Direction: p.Direction.String(), Attributes: p.Attributes})
	}
	return out
}

// controlFile encodes c; path locates it in error messages.
func controlFile(comp *Component, c Control, path string) (*ControlFile, error) {
	list := func(stmts []Control) ([]ControlFile, error) {
		out := make([]ControlFile, 0, len(stmts))
		for i, s := range stmts {
			cf, err := controlFile(comp, s, fmt.Sprintf("%s.%d", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, *cf)
		}
		return out, nil
	}
	branches := func(t, f Control) (*ControlFile, *ControlFile, error) {
		tf, err := controlFile(comp, t, path+".true")
		if err != nil {
			return nil, nil, err
		}
		ff, err := controlFile(comp, f, path+".false")
		if err != nil {
			return nil, nil, err
		}
		return tf, ff, nil
	}

	switch n := c.(type) {
	case nil:
		return nil, fmt.Errorf("control %s: missing node", path)
	case *Seq:
		stmts, err := list(n.Stmts)
		if err != nil {
			return nil, err
		}
		return &ControlFile{Kind: "seq", Stmts: stmts, Attributes: n.Attributes}, nil
	case *Par:
		stmts, err := list(n.Stmts)
		if err != nil {
			return nil, err
		}
		return &ControlFile{Kind: "par", Stmts: stmts, Attributes: n.Attributes}, nil
	case *If:
		t, f, err := branches(n.True, n.False)
		if err != nil {
			return nil, err
		}
		return &ControlFile{Kind: "if", Port: comp.PortName(n.Port), Cond: n.Cond, True: t, False: f, Attributes: n.Attributes}, nil
	case *Ifen:
		t, f, err := branches(n.True, n.False)
		if err != nil {
			return nil, err
		}
		return &ControlFile{Kind: "ifen", Port: comp.PortName(n.Port), Cond: n.Cond, True: t, False: f, Attributes: n.Attributes}, nil
	case *While:
		body, err := controlFile(comp, n.Body, path+".body")
		if err != nil {
			return nil, err
		}
		return &ControlFile{Kind: "while", Port: comp.PortName(n.Port), Cond: n.Cond, Body: body, Attributes: n.Attributes}, nil
	case *Print:
		return &ControlFile{Kind: "print", Var: n.Var, Attributes: n.Attributes}, nil
	case *Enable:
		return &ControlFile{Kind: "enable", Group: n.Group, Attributes: n.Attributes}, nil
	case *Disable:
		return &ControlFile{Kind: "disable", Group: n.Group, Attributes: n.Attributes}, nil
	case *Empty:
		return &ControlFile{Kind: "empty", Attributes: n.Attributes}, nil
	default:
		return nil, fmt.Errorf("control %s: unknown node %T", path, c)
	}
}
