package value

// BindingPairs flattens a `let`/`loop` bindings form into alternating
// name/expr values. It accepts either a Vector of even length (the
// canonical `[name expr ...]` syntax) or a Map, whose entries are read in
// construction order as name/expr pairs — shared by the evaluator and the
// module loader's hygienic rewrite so the two never interpret a bindings
// form differently.
func BindingPairs(form Value) ([]Value, bool) {
	switch t := form.(type) {
	case *Vector:
		if len(t.Items)%2 != 0 {
			return nil, false
		}
		return t.Items, true
	case *MapVal:
		out := make([]Value, 0, t.Len()*2)
		for _, e := range t.Entries() {
			out = append(out, e.Key, e.Val)
		}
		return out, true
	default:
		return nil, false
	}
}
