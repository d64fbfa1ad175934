package modloader

import "github.com/nahharris/vaca/value"

// specialFormHeads lists every head a rewritten call must leave alone
// instead of treating as a mangling target, mirroring eval's own
// dispatch table so the two never drift apart silently.
var specialFormHeads = map[string]bool{
	"def": true, "defn": true, "fn": true, "if": true, "do": true,
	"let": true, "quote": true, "defmacro": true, "deftype": true,
	"use": true, "|>": true, "recur": true, "loop": true,
}

// RewriteForm renames every free reference to a module's exports to its
// mangled name, while leaving binder-introduced names (let/loop/fn/defn
// parameters) alone wherever they shadow an export. By default it does
// not rewrite inside `quote`, since quoted data is not code; defmacro
// bodies are the one exception — `quote` there usually builds the
// expansion's syntax, and a macro that quotes a reference to another
// export in the same module expects it to resolve after hygiene just
// like unquoted code would.
func RewriteForm(form value.Value, mangle map[string]string, shadowed map[string]bool, rewriteInQuote bool) value.Value {
	switch t := form.(type) {
	case value.Symbol:
		if shadowed[t.Ident()] {
			return form
		}
		if mapped, ok := mangle[t.Ident()]; ok {
			return value.Symbol{Name: mapped}
		}
		return form
	case *value.List:
		return rewriteList(t.Items, mangle, shadowed, rewriteInQuote)
	case *value.Vector:
		out := make([]value.Value, len(t.Items))
		for i, item := range t.Items {
			out[i] = RewriteForm(item, mangle, shadowed, rewriteInQuote)
		}
		return &value.Vector{Items: out}
	case *value.MapVal:
		entries := make([]value.MapEntry, 0, t.Len())
		for _, e := range t.Entries() {
			entries = append(entries, value.MapEntry{
				Key: RewriteForm(e.Key, mangle, shadowed, rewriteInQuote),
				Val: RewriteForm(e.Val, mangle, shadowed, rewriteInQuote),
			})
		}
		return value.NewMap(entries)
	case *value.SetVal:
		out := make([]value.Value, 0, t.Len())
		for _, item := range t.Items() {
			out = append(out, RewriteForm(item, mangle, shadowed, rewriteInQuote))
		}
		return value.NewSet(out)
	default:
		return form
	}
}

func rewriteList(items []value.Value, mangle map[string]string, shadowed map[string]bool, rewriteInQuote bool) value.Value {
	if len(items) == 0 {
		return &value.List{}
	}

	headSym, headIsSymbol := items[0].(value.Symbol)
	var head string
	if headIsSymbol {
		head = headSym.Ident()
	}

	if headIsSymbol && head == "quote" && len(items) == 2 && !rewriteInQuote {
		return &value.List{Items: []value.Value{items[0], items[1]}}
	}

	switch {
	case headIsSymbol && head == "def":
		return rewriteDefLike(items, mangle, shadowed, rewriteInQuote, nil)
	case headIsSymbol && head == "defn":
		return rewriteDefLike(items, mangle, shadowed, rewriteInQuote, addParamsToShadow)
	case headIsSymbol && head == "defmacro":
		out := rewriteDefLikeBody(items, mangle, shadowed, true, addParamsToShadow)
		return out
	case headIsSymbol && head == "let":
		return rewriteBindingForm(items, mangle, shadowed, rewriteInQuote)
	case headIsSymbol && head == "loop":
		return rewriteBindingForm(items, mangle, shadowed, rewriteInQuote)
	case headIsSymbol && head == "fn":
		return rewriteFnLike(items, mangle, shadowed, rewriteInQuote)
	case headIsSymbol && head == "quote":
		out := make([]value.Value, len(items))
		out[0] = items[0]
		for i, a := range items[1:] {
			out[i+1] = RewriteForm(a, mangle, shadowed, rewriteInQuote)
		}
		return &value.List{Items: out}
	default:
		out := make([]value.Value, len(items))
		if headIsSymbol && specialFormHeads[head] {
			out[0] = items[0]
		} else {
			out[0] = RewriteForm(items[0], mangle, shadowed, rewriteInQuote)
		}
		for i, v := range items[1:] {
			out[i+1] = RewriteForm(v, mangle, shadowed, rewriteInQuote)
		}
		return &value.List{Items: out}
	}
}

// rewriteDefLike handles (def name expr) and (defn name [params] body...):
// the name is mangled if exported, params (if addShadow is non-nil)
// extend the shadow set for the body, and the head/name/params slots
// are otherwise left untouched.
func rewriteDefLike(items []value.Value, mangle map[string]string, shadowed map[string]bool, rewriteInQuote bool, addShadow func(value.Value, map[string]bool) map[string]bool) value.Value {
	if addShadow == nil {
		if len(items) != 3 {
			return &value.List{Items: items}
		}
		name, ok := items[1].(value.Symbol)
		if !ok {
			return &value.List{Items: items}
		}
		newName := mangledSymbol(name, mangle)
		return &value.List{Items: []value.Value{
			items[0], newName, RewriteForm(items[2], mangle, shadowed, rewriteInQuote),
		}}
	}
	return rewriteDefLikeBody(items, mangle, shadowed, rewriteInQuote, addShadow)
}

func rewriteDefLikeBody(items []value.Value, mangle map[string]string, shadowed map[string]bool, rewriteInQuote bool, addShadow func(value.Value, map[string]bool) map[string]bool) value.Value {
	if len(items) < 4 {
		return &value.List{Items: items}
	}
	name, ok := items[1].(value.Symbol)
	if !ok {
		return &value.List{Items: items}
	}
	newName := mangledSymbol(name, mangle)

	if _, ok := items[2].(*value.Vector); !ok {
		return &value.List{Items: items}
	}
	newShadowed := addShadow(items[2], shadowed)

	out := make([]value.Value, len(items))
	out[0] = items[0]
	out[1] = newName
	out[2] = items[2]
	for i, b := range items[3:] {
		out[i+3] = RewriteForm(b, mangle, newShadowed, rewriteInQuote)
	}
	return &value.List{Items: out}
}

func addParamsToShadow(paramsForm value.Value, shadowed map[string]bool) map[string]bool {
	out := copyShadow(shadowed)
	if vec, ok := paramsForm.(*value.Vector); ok {
		for _, p := range vec.Items {
			if sym, ok := p.(value.Symbol); ok {
				out[sym.Ident()] = true
			}
		}
	}
	return out
}

func rewriteFnLike(items []value.Value, mangle map[string]string, shadowed map[string]bool, rewriteInQuote bool) value.Value {
	if len(items) < 3 {
		return &value.List{Items: items}
	}
	if _, ok := items[1].(*value.Vector); !ok {
		return &value.List{Items: items}
	}
	scoped := addParamsToShadow(items[1], shadowed)

	out := make([]value.Value, len(items))
	out[0] = items[0]
	out[1] = items[1]
	for i, b := range items[2:] {
		out[i+2] = RewriteForm(b, mangle, scoped, rewriteInQuote)
	}
	return &value.List{Items: out}
}

// rewriteBindingForm handles both `let` and `loop`: (head bindings
// body...), where bindings is either a flat Vector of alternating
// name/val forms or a Map whose entries are themselves name/val pairs.
// Each binding's value is rewritten under the bindings visible so far
// (not yet including its own name), then the name joins the shadow set
// for subsequent bindings and the body. The rewritten form keeps the
// same bindings container kind it was given.
func rewriteBindingForm(items []value.Value, mangle map[string]string, shadowed map[string]bool, rewriteInQuote bool) value.Value {
	if len(items) < 3 {
		return &value.List{Items: items}
	}
	pairs, ok := value.BindingPairs(items[1])
	if !ok {
		return &value.List{Items: items}
	}

	scoped := copyShadow(shadowed)
	newPairs := make([]value.Value, 0, len(pairs))
	for i := 0; i < len(pairs); i += 2 {
		name := pairs[i]
		val := pairs[i+1]
		newPairs = append(newPairs, name, RewriteForm(val, mangle, scoped, rewriteInQuote))
		if sym, ok := name.(value.Symbol); ok {
			scoped[sym.Ident()] = true
		}
	}

	out := make([]value.Value, len(items))
	out[0] = items[0]
	if _, isMap := items[1].(*value.MapVal); isMap {
		entries := make([]value.MapEntry, 0, len(newPairs)/2)
		for i := 0; i < len(newPairs); i += 2 {
			entries = append(entries, value.MapEntry{Key: newPairs[i], Val: newPairs[i+1]})
		}
		out[1] = value.NewMap(entries)
	} else {
		out[1] = &value.Vector{Items: newPairs}
	}
	for i, b := range items[2:] {
		out[i+2] = RewriteForm(b, mangle, scoped, rewriteInQuote)
	}
	return &value.List{Items: out}
}

func mangledSymbol(name value.Symbol, mangle map[string]string) value.Value {
	if mapped, ok := mangle[name.Ident()]; ok {
		return value.Symbol{Name: mapped}
	}
	return name
}

func copyShadow(shadowed map[string]bool) map[string]bool {
	out := make(map[string]bool, len(shadowed))
	for k := range shadowed {
		out[k] = true
	}
	return out
}
