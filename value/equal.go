package value

// Equal implements the structural equality spec §3 requires: keywords and
// symbols compare namespace and name independently and are never equal to
// one another; collections compare structurally; floats follow ordinary
// IEEE-754 equality (so NaN is never equal to anything, including itself).
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Int:
		switch y := b.(type) {
		case Int:
			return x == y
		case Float:
			return float64(x) == float64(y)
		}
		return false
	case Float:
		switch y := b.(type) {
		case Float:
			return float64(x) == float64(y)
		case Int:
			return float64(x) == float64(y)
		}
		return false
	case Char:
		y, ok := b.(Char)
		return ok && x == y
	case Str:
		y, ok := b.(Str)
		return ok && x == y
	case Keyword:
		y, ok := b.(Keyword)
		return ok && x.Namespace == y.Namespace && x.Name == y.Name
	case Symbol:
		y, ok := b.(Symbol)
		return ok && x.Namespace == y.Namespace && x.Name == y.Name
	case *List:
		y, ok := b.(*List)
		return ok && equalSlice(x.Items, y.Items)
	case *Vector:
		y, ok := b.(*Vector)
		return ok && equalSlice(x.Items, y.Items)
	case *MapVal:
		y, ok := b.(*MapVal)
		return ok && x.equal(y)
	case *SetVal:
		y, ok := b.(*SetVal)
		return ok && x.equal(y)
	case Recur:
		y, ok := b.(Recur)
		return ok && equalSlice(x.Args, y.Args)
	default:
		return a == b
	}
}

func equalSlice(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
