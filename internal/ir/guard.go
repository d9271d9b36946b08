package ir

// Guard is a boolean condition gating an Assignment. Only the constant
// true guard is modeled; continuous assignments always carry it.
type Guard interface {
	guard()
	String() string
	// Equal reports whether other is the same condition. A nil other is
	// the true guard.
	Equal(other Guard) bool
}

// True is the guard that always holds.
type True struct{}

func (True) guard() {}

func (True) String() string { return "1'd1" }

func (True) Equal(other Guard) bool { return IsTrue(other) }

// IsTrue reports whether g is the constant true guard. A nil guard is
// treated as true.
func IsTrue(g Guard) bool {
	if g == nil {
		return true
	}
	_, ok := g.(True)
	return ok
}
