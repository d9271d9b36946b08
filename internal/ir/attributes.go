package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Well-known attribute names.
const (
	AttrClk      = "clk"
	AttrReset    = "reset"
	AttrGo       = "go"
	AttrDone     = "done"
	AttrStatic   = "static"
	AttrExternal = "external"
)

// Attributes maps an attribute name to its value. Boolean attributes such
// as @clk are stored with value 1.
type Attributes map[string]uint64

// Has reports whether the attribute is present.
func (a Attributes) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Get returns the attribute value.
func (a Attributes) Get(name string) (uint64, bool) {
	v, ok := a[name]
	return v, ok
}

// Insert sets name to val, allocating the map when needed.
func (a *Attributes) Insert(name string, val uint64) {
	if *a == nil {
		*a = make(Attributes)
	}
	(*a)[name] = val
}

// Clone returns an independent copy.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// String renders the attributes in sorted order, e.g. "@clk @static(2)".
func (a Attributes) String() string {
	if len(a) == 0 {
		return ""
	}
	names := make([]string, 0, len(a))
	for k := range a {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		if a[k] == 1 {
			parts = append(parts, "@"+k)
		} else {
			parts = append(parts, fmt.Sprintf("@%s(%d)", k, a[k]))
		}
	}
	return strings.Join(parts, " ")
}
