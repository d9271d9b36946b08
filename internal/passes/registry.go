package passes

import (
	"fmt"
	"sort"
	"sync"

	"github.com/robert-at-pretension-io/calyx-opt/internal/traversal"
)

// Info describes a registered pass.
type Info struct {
	Name        string
	Description string
	New         func() traversal.Visitor
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Info{}
)

func init() {
	Register(Info{
		Name:        ClkInsertionName,
		Description: "inserts assignments from component clk to sub-component clk",
		New:         func() traversal.Visitor { return &ClkInsertion{} },
	})
}

// Register adds a pass. Registering a name twice panics.
func Register(info Info) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[info.Name]; dup {
		panic(fmt.Sprintf("passes: %s registered twice", info.Name))
	}
	registry[info.Name] = info
}

// Lookup returns the pass registered under name.
func Lookup(name string) (Info, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, ok := registry[name]
	return info, ok
}

// Names returns the registered pass names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve maps names to fresh visitors, failing on the first unknown name.
func Resolve(names []string) ([]traversal.Visitor, error) {
	out := make([]traversal.Visitor, 0, len(names))
	for _, n := range names {
		info, ok := Lookup(n)
		if !ok {
			return nil, fmt.Errorf("unknown pass %q", n)
		}
		out = append(out, info.New())
	}
	return out, nil
}
