package value

import (
	"strconv"
	"strings"

	"github.com/nahharris/vaca/reader"
)

// FromNode lowers a syntax node produced by the reader into the runtime
// form the evaluator and module loader operate on. Annotations attached
// by the `#` dispatch syntax are structural information for typecheck,
// not evaluation, and are dropped here.
func FromNode(n reader.Node) Value {
	switch k := n.Kind.(type) {
	case reader.NilKind:
		return Nil{}
	case reader.BoolKind:
		return Bool(k)
	case reader.CharKind:
		return Char(k)
	case reader.StringKind:
		return Str(k.Value)
	case reader.KeywordKind:
		return Keyword{Namespace: k.Namespace, Name: k.Name}
	case reader.SymbolKind:
		return Symbol{Namespace: k.Namespace, Name: k.Name}
	case reader.NumberKind:
		return numberToValue(k)
	case reader.ListKind:
		items := make([]Value, len(k.Items))
		for i, item := range k.Items {
			items[i] = FromNode(item)
		}
		return &List{Items: items}
	case reader.VectorKind:
		items := make([]Value, len(k.Items))
		for i, item := range k.Items {
			items[i] = FromNode(item)
		}
		return &Vector{Items: items}
	case reader.SetKind:
		items := make([]Value, len(k.Items))
		for i, item := range k.Items {
			items[i] = FromNode(item)
		}
		return NewSet(items)
	case reader.MapKind:
		entries := make([]MapEntry, len(k.Entries))
		for i, e := range k.Entries {
			entries[i] = MapEntry{Key: FromNode(e.Key), Val: FromNode(e.Value)}
		}
		return NewMap(entries)
	default:
		return Nil{}
	}
}

func numberToValue(n reader.NumberKind) Value {
	lexeme := strings.TrimSuffix(strings.TrimSuffix(n.Lexeme, "N"), "M")
	if n.IsFloat {
		f, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			return Float(0)
		}
		return Float(f)
	}
	i, err := strconv.ParseInt(lexeme, 10, 64)
	if err != nil {
		return Int(0)
	}
	return Int(i)
}
