package modloader

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nahharris/vaca/value"
	"github.com/stretchr/testify/require"
)

func sym(name string) value.Symbol { return value.Symbol{Name: name} }

func TestRewriteFormManglesFreeReference(t *testing.T) {
	mangle := map[string]string{"helper": "__use__abc__helper"}
	form := &value.List{Items: []value.Value{sym("helper"), value.Int(1)}}

	out := RewriteForm(form, mangle, map[string]bool{}, false)
	list := out.(*value.List)
	require.Equal(t, value.Symbol{Name: "__use__abc__helper"}, list.Items[0])
}

func TestRewriteFormLeavesShadowedNameAlone(t *testing.T) {
	mangle := map[string]string{"x": "__use__abc__x"}
	form := sym("x")

	out := RewriteForm(form, mangle, map[string]bool{"x": true}, false)
	require.Equal(t, sym("x"), out)
}

func TestRewriteDoesNotDescendIntoQuoteByDefault(t *testing.T) {
	mangle := map[string]string{"x": "__use__abc__x"}
	quoted := &value.List{Items: []value.Value{sym("quote"), &value.List{Items: []value.Value{sym("x")}}}}

	out := RewriteForm(quoted, mangle, map[string]bool{}, false)
	list := out.(*value.List)
	inner := list.Items[1].(*value.List)
	require.Equal(t, sym("x"), inner.Items[0], "quoted data is not code")
}

func TestRewriteDescendsIntoQuoteInsideDefmacro(t *testing.T) {
	mangle := map[string]string{"x": "__use__abc__x"}
	body := &value.List{Items: []value.Value{sym("quote"), &value.List{Items: []value.Value{sym("x")}}}}

	out := RewriteForm(body, mangle, map[string]bool{}, true)
	list := out.(*value.List)
	inner := list.Items[1].(*value.List)
	require.Equal(t, value.Symbol{Name: "__use__abc__x"}, inner.Items[0])
}

func TestRewriteLetShadowsBinderAcrossBody(t *testing.T) {
	mangle := map[string]string{"x": "__use__abc__x"}
	// (let [x 1] x) — the let-bound x must not be mangled even though the
	// module exports an unrelated top-level x.
	form := &value.List{Items: []value.Value{
		sym("let"),
		&value.Vector{Items: []value.Value{sym("x"), value.Int(1)}},
		sym("x"),
	}}

	out := RewriteForm(form, mangle, map[string]bool{}, false)
	list := out.(*value.List)
	body := list.Items[2].(value.Symbol)
	require.Equal(t, "x", body.Name)
}

func TestRewriteLetMapBindingsShadowBinderAcrossBody(t *testing.T) {
	mangle := map[string]string{"x": "__use__abc__x", "id": "__use__abc__id"}
	// (let {x 1} (id x)) — map-literal bindings must hygiene-rewrite just
	// like vector bindings: id is a free reference and gets mangled, x is
	// bound by the let and must not be.
	form := &value.List{Items: []value.Value{
		sym("let"),
		value.NewMap([]value.MapEntry{{Key: sym("x"), Val: value.Int(1)}}),
		&value.List{Items: []value.Value{sym("id"), sym("x")}},
	}}

	out := RewriteForm(form, mangle, map[string]bool{}, false)
	list := out.(*value.List)

	bindings, ok := list.Items[1].(*value.MapVal)
	require.True(t, ok, "bindings stay a map")
	require.Equal(t, 1, bindings.Len())

	body := list.Items[2].(*value.List)
	require.Equal(t, value.Symbol{Name: "__use__abc__id"}, body.Items[0])
	require.Equal(t, sym("x"), body.Items[1], "let-bound x shadows the module export x")
}

func TestRewriteNestedFormStructuralShape(t *testing.T) {
	mangle := map[string]string{"helper": "__use__abc__helper"}
	// (defn wrapper [x] (helper x x)) — only the free reference `helper`
	// is mangled; the parameter `x` shadows itself throughout the body.
	form := &value.List{Items: []value.Value{
		sym("defn"), sym("wrapper"),
		&value.Vector{Items: []value.Value{sym("x")}},
		&value.List{Items: []value.Value{sym("helper"), sym("x"), sym("x")}},
	}}

	want := &value.List{Items: []value.Value{
		sym("defn"), sym("wrapper"),
		&value.Vector{Items: []value.Value{sym("x")}},
		&value.List{Items: []value.Value{sym("__use__abc__helper"), sym("x"), sym("x")}},
	}}

	out := RewriteForm(form, mangle, map[string]bool{}, false)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("rewritten tree differs from expected shape (-want +got):\n%s", diff)
	}
}

func TestRewriteDefnManglesNameAndShadowsParams(t *testing.T) {
	mangle := map[string]string{"double": "__use__abc__double", "x": "__use__abc__x"}
	form := &value.List{Items: []value.Value{
		sym("defn"), sym("double"),
		&value.Vector{Items: []value.Value{sym("x")}},
		&value.List{Items: []value.Value{sym("+"), sym("x"), sym("x")}},
	}}

	out := RewriteForm(form, mangle, map[string]bool{}, false)
	list := out.(*value.List)
	require.Equal(t, value.Symbol{Name: "__use__abc__double"}, list.Items[1])

	body := list.Items[3].(*value.List)
	require.Equal(t, sym("x"), body.Items[1], "param x shadows the module export x")
}
