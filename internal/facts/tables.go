package facts

import (
	"sort"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/calyx-opt/internal/ir"
)

// Tables is the relational fact model of a program.
// Each slice is a relation (table) with flat rows.
type Tables struct {
	Components  []ComponentRow  `json:"components"`
	Cells       []CellRow       `json:"cells"`
	Ports       []PortRow       `json:"ports"`
	Groups      []GroupRow      `json:"groups"`
	Assignments []AssignmentRow `json:"assignments"`
	Controls    []ControlRow    `json:"controls"`
}

type ComponentRow struct {
	Name         string `json:"name"`
	IsEntrypoint bool   `json:"is_entrypoint"`
	Attributes   string `json:"attributes"`
}

type CellRow struct {
	Component   string `json:"component"`
	Name        string `json:"name"`
	Prototype   string `json:"prototype"`
	Params      string `json:"params"`
	IsComponent bool   `json:"is_component"`
	Attributes  string `json:"attributes"`
}

// PortRow is a port of a cell, or of the component signature when Cell is
// empty.
type PortRow struct {
	Component  string `json:"component"`
	Cell       string `json:"cell"`
	Name       string `json:"name"`
	Width      uint64 `json:"width"`
	Direction  string `json:"direction"`
	IsClock    bool   `json:"is_clock"`
	Attributes string `json:"attributes"`
}

type GroupRow struct {
	Component string `json:"component"`
	Name      string `json:"name"`
}

// AssignmentRow is a continuous assignment. Dangling is set when either
// side refers to a port the component no longer owns.
type AssignmentRow struct {
	Component string `json:"component"`
	Dst       string `json:"dst"`
	Src       string `json:"src"`
	Guard     string `json:"guard"`
	DstWidth  uint64 `json:"dst_width"`
	SrcWidth  uint64 `json:"src_width"`
	Dangling  bool   `json:"dangling"`
}

// ControlRow is one node of a control tree. Path locates the node from the
// root, e.g. "root.1.true".
type ControlRow struct {
	Component string `json:"component"`
	Path      string `json:"path"`
	Kind      string `json:"kind"`
	Group     string `json:"group"`
	Port      string `json:"port"`
	Cond      string `json:"cond"`
	Depth     int    `json:"depth"`
}

// BuildTables flattens prog into a normalized relational model. Rows are
// emitted in definition order, components sorted by name.
func BuildTables(prog *ir.Program) Tables {
	tables := emptyTables()

	for _, comp := range prog.Components {
		tables.Components = append(tables.Components, ComponentRow{
			Name:         comp.Name,
			IsEntrypoint: comp.Name == prog.Entrypoint,
			Attributes:   comp.Attributes.String(),
		})

		for _, id := range comp.Signature {
			tables.Ports = append(tables.Ports, portRow(comp, "", comp.Port(id)))
		}

		for _, cell := range comp.Cells() {
			tables.Cells = append(tables.Cells, CellRow{
				Component:   comp.Name,
				Name:        cell.Name,
				Prototype:   cell.Prototype.Name,
				Params:      paramsKey(cell.Prototype.Params),
				IsComponent: cell.Prototype.IsComponent,
				Attributes:  cell.Attributes.String(),
			})
			for _, id := range cell.Ports {
				tables.Ports = append(tables.Ports, portRow(comp, cell.Name, comp.Port(id)))
			}
		}

		for _, g := range comp.Groups {
			tables.Groups = append(tables.Groups, GroupRow{Component: comp.Name, Name: g.Name})
		}

		for _, a := range comp.Continuous {
			dst, src := comp.Port(a.Dst), comp.Port(a.Src)
			row := AssignmentRow{
				Component: comp.Name,
				Dst:       comp.PortName(a.Dst),
				Src:       comp.PortName(a.Src),
				Guard:     guardKey(a.Guard),
				Dangling:  dst == nil || src == nil,
			}
			if dst != nil {
				row.DstWidth = dst.Width
			}
			if src != nil {
				row.SrcWidth = src.Width
			}
			tables.Assignments = append(tables.Assignments, row)
		}

		tables.Controls = appendControl(tables.Controls, comp, comp.Control, "root", 0)
	}

	sort.SliceStable(tables.Components, func(i, j int) bool {
		return tables.Components[i].Name < tables.Components[j].Name
	})

	return tables
}

func portRow(comp *ir.Component, cell string, p *ir.Port) PortRow {
	return PortRow{
		Component:  comp.Name,
		Cell:       cell,
		Name:       p.Name,
		Width:      p.Width,
		Direction:  p.Direction.String(),
		IsClock:    p.Attributes.Has(ir.AttrClk),
		Attributes: p.Attributes.String(),
	}
}

func appendControl(rows []ControlRow, comp *ir.Component, c ir.Control, path string, depth int) []ControlRow {
	row := ControlRow{Component: comp.Name, Path: path, Depth: depth}
	switch n := c.(type) {
	case nil:
		row.Kind = "nil"
		return append(rows, row)
	case *ir.Seq:
		row.Kind = n.Kind()
		rows = append(rows, row)
		for i, s := range n.Stmts {
			rows = appendControl(rows, comp, s, path+"."+strconv.Itoa(i), depth+1)
		}
	case *ir.Par:
		row.Kind = n.Kind()
		rows = append(rows, row)
		for i, s := range n.Stmts {
			rows = appendControl(rows, comp, s, path+"."+strconv.Itoa(i), depth+1)
		}
	case *ir.If:
		row.Kind, row.Port, row.Cond = n.Kind(), comp.PortName(n.Port), n.Cond
		rows = append(rows, row)
		rows = appendControl(rows, comp, n.True, path+".true", depth+1)
		rows = appendControl(rows, comp, n.False, path+".false", depth+1)
	case *ir.Ifen:
		row.Kind, row.Port, row.Cond = n.Kind(), comp.PortName(n.Port), n.Cond
		rows = append(rows, row)
		rows = appendControl(rows, comp, n.True, path+".true", depth+1)
		rows = appendControl(rows, comp, n.False, path+".false", depth+1)
	case *ir.While:
		row.Kind, row.Port, row.Cond = n.Kind(), comp.PortName(n.Port), n.Cond
		rows = append(rows, row)
		rows = appendControl(rows, comp, n.Body, path+".body", depth+1)
	case *ir.Enable:
		row.Kind, row.Group = n.Kind(), n.Group
		rows = append(rows, row)
	case *ir.Disable:
		row.Kind, row.Group = n.Kind(), n.Group
		rows = append(rows, row)
	default:
		row.Kind = c.Kind()
		rows = append(rows, row)
	}
	return rows
}

func paramsKey(params []uint64) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = strconv.FormatUint(p, 10)
	}
	return strings.Join(parts, ",")
}

func guardKey(g ir.Guard) string {
	if ir.IsTrue(g) {
		return ir.True{}.String()
	}
	return g.String()
}
