package vaca

import (
	"testing"

	"github.com/nahharris/vaca/value"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, src string) value.Value {
	t.Helper()
	nodes, err := Parse(src)
	require.NoError(t, err)

	env := NewEnvironment()
	InstallBuiltins(env)

	var last value.Value = value.Nil{}
	for _, n := range nodes {
		last, err = Evaluate(n, env)
		require.NoError(t, err)
	}
	return last
}

func TestEndToEndArithmeticAndClosures(t *testing.T) {
	v := run(t, `
(defn adder [n] (fn [x] (+ x n)))
(def add5 (adder 5))
(add5 37)
`)
	require.Equal(t, value.Int(42), v)
}

func TestEndToEndTailRecursiveLoop(t *testing.T) {
	v := run(t, `
(defn sum-to [n]
  (loop [i n acc 0]
    (if (== i 0) acc (recur (- i 1) (+ acc i)))))
(sum-to 100000)
`)
	require.Equal(t, value.Int(5000050000), v)
}

func TestEndToEndMacroExpansion(t *testing.T) {
	v := run(t, `
(defmacro always-42 [ignored] (quote (+ 40 2)))
(always-42 (this is never evaluated))
`)
	require.Equal(t, value.Int(42), v)
}

func TestApplyInvokesLambdaDirectly(t *testing.T) {
	nodes, err := Parse("(fn [a b] (+ a b))")
	require.NoError(t, err)

	env := NewEnvironment()
	InstallBuiltins(env)

	fn, err := Evaluate(nodes[0], env)
	require.NoError(t, err)

	v, err := Apply(fn, []value.Value{value.Int(2), value.Int(3)}, env)
	require.NoError(t, err)
	require.Equal(t, value.Int(5), v)
}

func TestCheckAnnotationsSmokeTest(t *testing.T) {
	nodes, err := Parse("(defn #int sum [#int a #int b] (+ a b))")
	require.NoError(t, err)

	reg, err := NewTypeRegistry()
	require.NoError(t, err)

	diags, err := CheckAnnotations(nodes, reg)
	require.NoError(t, err)
	require.Empty(t, diags)
}
