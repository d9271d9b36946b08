package facts

// FilterTablesByComponents returns a new Tables object containing only rows
// that belong to one of the named components.
func FilterTablesByComponents(tables Tables, comps map[string]bool) Tables {
	if len(comps) == 0 {
		return emptyTables()
	}
	out := emptyTables()

	for _, row := range tables.Components {
		if comps[row.Name] {
			out.Components = append(out.Components, row)
		}
	}
	for _, row := range tables.Cells {
		if comps[row.Component] {
			out.Cells = append(out.Cells, row)
		}
	}
	for _, row := range tables.Ports {
		if comps[row.Component] {
			out.Ports = append(out.Ports, row)
		}
	}
	for _, row := range tables.Groups {
		if comps[row.Component] {
			out.Groups = append(out.Groups, row)
		}
	}
	for _, row := range tables.Assignments {
		if comps[row.Component] {
			out.Assignments = append(out.Assignments, row)
		}
	}
	for _, row := range tables.Controls {
		if comps[row.Component] {
			out.Controls = append(out.Controls, row)
		}
	}

	return out
}

// FilterDeltaByComponents returns a new Delta containing only rows for the
// specified components.
func FilterDeltaByComponents(delta Delta, comps map[string]bool) Delta {
	if len(comps) == 0 {
		return Delta{
			Added:   emptyTables(),
			Removed: emptyTables(),
		}
	}
	return Delta{
		Added:   FilterTablesByComponents(delta.Added, comps),
		Removed: FilterTablesByComponents(delta.Removed, comps),
	}
}
