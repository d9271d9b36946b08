package ir

import (
	"fmt"
	"strconv"
)

// Builder synthesizes structure inside one Component. It is cheap to
// create; passes usually make one per component in their Start hook.
type Builder struct {
	Component *Component
	lib       *Library
}

// NewBuilder binds a builder to comp, instantiating primitives from lib.
func NewBuilder(comp *Component, lib *Library) *Builder {
	return &Builder{Component: comp, lib: lib}
}

// BuildAssignment creates an assignment driving dst from src under g.
// The assignment is not recorded anywhere until the caller adds it.
func (b *Builder) BuildAssignment(dst, src PortID, g Guard) Assignment {
	if g == nil {
		g = True{}
	}
	return Assignment{Dst: dst, Src: src, Guard: g}
}

// AddContinuous records a as a continuous assignment.
func (b *Builder) AddContinuous(a Assignment) error {
	if b.Component.Port(a.Dst) == nil {
		return fmt.Errorf("component %s: assignment destination %d not owned by component", b.Component.Name, a.Dst)
	}
	if b.Component.Port(a.Src) == nil {
		return fmt.Errorf("component %s: assignment source %d not owned by component", b.Component.Name, a.Src)
	}
	b.Component.Continuous = append(b.Component.Continuous, a)
	return nil
}

// HasContinuous reports whether an equal continuous assignment exists.
func (b *Builder) HasContinuous(a Assignment) bool {
	for _, existing := range b.Component.Continuous {
		if existing.Equal(a) {
			return true
		}
	}
	return false
}

// AddPrimitive instantiates a library primitive under a fresh name derived
// from prefix: prefix itself if free, otherwise prefix0, prefix1, ...
func (b *Builder) AddPrimitive(prefix, prim string, params ...uint64) (CellID, error) {
	sig, ok := b.lib.Get(prim)
	if !ok {
		return NoCell, fmt.Errorf("unknown primitive %q", prim)
	}
	ports, err := sig.Resolve(params)
	if err != nil {
		return NoCell, err
	}
	proto := Prototype{Name: prim, Params: append([]uint64(nil), params...)}
	return b.Component.AddCell(b.freshName(prefix), proto, ports, nil)
}

// AddConstant instantiates a std_const cell holding value.
func (b *Builder) AddConstant(value, width uint64) (CellID, error) {
	return b.AddPrimitive("const", "std_const", width, value)
}

func (b *Builder) freshName(prefix string) string {
	if _, taken := b.Component.FindCell(prefix); !taken {
		return prefix
	}
	for i := 0; ; i++ {
		name := prefix + strconv.Itoa(i)
		if _, taken := b.Component.FindCell(name); !taken {
			return name
		}
	}
}
