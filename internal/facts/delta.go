package facts

import "strconv"

// Delta captures added and removed fact rows between two snapshots.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// ComputeDelta computes row-level additions and removals between two snapshots.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

// Empty reports whether the delta has no rows at all.
func (d Delta) Empty() bool {
	return d.Added.RowCount() == 0 && d.Removed.RowCount() == 0
}

// RowCount returns the total number of rows across every relation.
func (t Tables) RowCount() int {
	return len(t.Components) + len(t.Cells) + len(t.Ports) + len(t.Groups) +
		len(t.Assignments) + len(t.Controls)
}

// Counts returns per-relation row counts keyed by JSON table name.
func (t Tables) Counts() map[string]int {
	return map[string]int{
		"components":  len(t.Components),
		"cells":       len(t.Cells),
		"ports":       len(t.Ports),
		"groups":      len(t.Groups),
		"assignments": len(t.Assignments),
		"controls":    len(t.Controls),
	}
}

func diffTables(from, to Tables) Tables {
	out := emptyTables()

	out.Components = diffRows(from.Components, to.Components, func(r ComponentRow) string {
		return r.Name + "|" + boolKey(r.IsEntrypoint) + "|" + r.Attributes
	})
	out.Cells = diffRows(from.Cells, to.Cells, func(r CellRow) string {
		return r.Component + "|" + r.Name + "|" + r.Prototype + "|" + r.Params + "|" + boolKey(r.IsComponent) + "|" + r.Attributes
	})
	out.Ports = diffRows(from.Ports, to.Ports, func(r PortRow) string {
		return r.Component + "|" + r.Cell + "|" + r.Name + "|" + uintKey(r.Width) + "|" + r.Direction + "|" + r.Attributes
	})
	out.Groups = diffRows(from.Groups, to.Groups, func(r GroupRow) string {
		return r.Component + "|" + r.Name
	})
	out.Assignments = diffRows(from.Assignments, to.Assignments, func(r AssignmentRow) string {
		return r.Component + "|" + r.Dst + "|" + r.Src + "|" + r.Guard
	})
	out.Controls = diffRows(from.Controls, to.Controls, func(r ControlRow) string {
		return r.Component + "|" + r.Path + "|" + r.Kind + "|" + r.Group + "|" + r.Port + "|" + r.Cond
	})

	return out
}

func emptyTables() Tables {
	return Tables{
		Components:  []ComponentRow{},
		Cells:       []CellRow{},
		Ports:       []PortRow{},
		Groups:      []GroupRow{},
		Assignments: []AssignmentRow{},
		Controls:    []ControlRow{},
	}
}

// diffRows returns the rows of to that from lacks. Rows are compared as a
// multiset: a key present twice in to and once in from yields one row.
func diffRows[T any](from, to []T, key func(T) string) []T {
	remaining := make(map[string]int, len(from))
	for _, row := range from {
		remaining[key(row)]++
	}
	diff := []T{}
	for _, row := range to {
		rowKey := key(row)
		if remaining[rowKey] > 0 {
			remaining[rowKey]--
			continue
		}
		diff = append(diff, row)
	}
	return diff
}

func boolKey(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func uintKey(v uint64) string {
	return strconv.FormatUint(v, 10)
}
