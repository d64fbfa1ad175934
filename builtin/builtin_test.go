package builtin

import (
	"testing"

	"github.com/nahharris/vaca/eval"
	"github.com/nahharris/vaca/reader"
	"github.com/nahharris/vaca/value"
	"github.com/nahharris/vaca/vmenv"
	"github.com/stretchr/testify/require"
)

func evalSrc(t *testing.T, env *vmenv.Env, src string) (value.Value, error) {
	t.Helper()
	nodes, err := reader.Parse(src)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	return eval.Evaluate(nodes[0], env)
}

func newEnv() *vmenv.Env {
	env := vmenv.NewRoot()
	Register(env)
	return env
}

func TestArithmeticPromotesToFloatOnMixedArgs(t *testing.T) {
	env := newEnv()

	v, err := evalSrc(t, env, "(+ 1 2 3)")
	require.NoError(t, err)
	require.Equal(t, value.Int(6), v)

	v, err = evalSrc(t, env, "(+ 1 2.0)")
	require.NoError(t, err)
	require.Equal(t, value.Float(3.0), v)

	v, err = evalSrc(t, env, "(* 2 3 4)")
	require.NoError(t, err)
	require.Equal(t, value.Int(24), v)
}

func TestSubtractUnaryNegatesAndVariadicFoldsLeft(t *testing.T) {
	env := newEnv()

	v, err := evalSrc(t, env, "(- 5)")
	require.NoError(t, err)
	require.Equal(t, value.Int(-5), v)

	v, err = evalSrc(t, env, "(- 10 1 2)")
	require.NoError(t, err)
	require.Equal(t, value.Int(7), v)
}

func TestDivisionAlwaysReturnsFloat(t *testing.T) {
	env := newEnv()
	v, err := evalSrc(t, env, "(/ 4 2)")
	require.NoError(t, err)
	require.Equal(t, value.Float(2.0), v)
}

func TestDivisionByZeroIsError(t *testing.T) {
	env := newEnv()
	_, err := evalSrc(t, env, "(/ 1 0)")
	require.Error(t, err)
	everr := err.(*eval.Error)
	require.Equal(t, eval.DivisionByZero, everr.Kind)
}

func TestIntegerDivisionRequiresInts(t *testing.T) {
	env := newEnv()
	v, err := evalSrc(t, env, "(// 7 2)")
	require.NoError(t, err)
	require.Equal(t, value.Int(3), v)

	_, err = evalSrc(t, env, "(// 7.0 2)")
	require.Error(t, err)
}

func TestPowerIntegerAndNegativeExponent(t *testing.T) {
	env := newEnv()
	v, err := evalSrc(t, env, "(^ 2 10)")
	require.NoError(t, err)
	require.Equal(t, value.Int(1024), v)

	v, err = evalSrc(t, env, "(^ 2 -1)")
	require.NoError(t, err)
	require.Equal(t, value.Float(0.5), v)
}

func TestModRequiresInts(t *testing.T) {
	env := newEnv()
	v, err := evalSrc(t, env, "(mod 7 3)")
	require.NoError(t, err)
	require.Equal(t, value.Int(1), v)
}

func TestMaxMinPreserveIntWhenBothInt(t *testing.T) {
	env := newEnv()
	v, err := evalSrc(t, env, "(max 3 7)")
	require.NoError(t, err)
	require.Equal(t, value.Int(7), v)

	v, err = evalSrc(t, env, "(min 3 7.0)")
	require.NoError(t, err)
	require.Equal(t, value.Float(3.0), v)
}

func TestComparisonOperators(t *testing.T) {
	env := newEnv()
	v, err := evalSrc(t, env, "(< 1 2)")
	require.NoError(t, err)
	require.Equal(t, value.Bool(true), v)

	v, err = evalSrc(t, env, "(== 1 1.0)")
	require.NoError(t, err)
	require.Equal(t, value.Bool(true), v, "cross-numeric equality")

	v, err = evalSrc(t, env, `(!= "a" "b")`)
	require.NoError(t, err)
	require.Equal(t, value.Bool(true), v)
}

func TestLogicOperatorsRequireBool(t *testing.T) {
	env := newEnv()
	v, err := evalSrc(t, env, "(& true false)")
	require.NoError(t, err)
	require.Equal(t, value.Bool(false), v)

	_, err = evalSrc(t, env, "(& 1 true)")
	require.Error(t, err)
}

func TestFormatPrintsVectorArgOrVariadicArgs(t *testing.T) {
	env := newEnv()
	v, err := evalSrc(t, env, `(format "a" 1 "b")`)
	require.NoError(t, err)
	require.Equal(t, value.Str("a1b"), v)

	v, err = evalSrc(t, env, `(format ["x" 2])`)
	require.NoError(t, err)
	require.Equal(t, value.Str("x2"), v)
}

func TestParseIntAndFloat(t *testing.T) {
	env := newEnv()
	v, err := evalSrc(t, env, `(parse-int "42")`)
	require.NoError(t, err)
	require.Equal(t, value.Int(42), v)

	v, err = evalSrc(t, env, `(parse-float "3.5")`)
	require.NoError(t, err)
	require.Equal(t, value.Float(3.5), v)

	_, err = evalSrc(t, env, `(parse-int "nope")`)
	require.Error(t, err)
}

func TestConcatAppendPrependAndNth(t *testing.T) {
	env := newEnv()

	v, err := evalSrc(t, env, "(concat [1 2] [3 4])")
	require.NoError(t, err)
	vec := v.(*value.Vector)
	require.Equal(t, []value.Value{value.Int(1), value.Int(2), value.Int(3), value.Int(4)}, vec.Items)

	v, err = evalSrc(t, env, "(append 0 [1 2])")
	require.NoError(t, err)
	require.Equal(t, []value.Value{value.Int(0), value.Int(1), value.Int(2)}, v.(*value.Vector).Items, "append puts its element at the front")

	v, err = evalSrc(t, env, "(prepend 3 [1 2])")
	require.NoError(t, err)
	require.Equal(t, []value.Value{value.Int(1), value.Int(2), value.Int(3)}, v.(*value.Vector).Items, "prepend puts its element at the back")

	v, err = evalSrc(t, env, "(nth 1 [10 20 30])")
	require.NoError(t, err)
	require.Equal(t, value.Int(20), v)

	_, err = evalSrc(t, env, "(nth 5 [10 20 30])")
	require.Error(t, err)
	everr := err.(*eval.Error)
	require.Equal(t, eval.IndexOutOfBounds, everr.Kind)
}

func TestMapReduceScanCallBackIntoLambdas(t *testing.T) {
	env := newEnv()

	v, err := evalSrc(t, env, "(map (fn [x] (* x 2)) [1 2 3])")
	require.NoError(t, err)
	require.Equal(t, []value.Value{value.Int(2), value.Int(4), value.Int(6)}, v.(*value.Vector).Items)

	v, err = evalSrc(t, env, "(reduce (fn [acc x] (+ acc x)) 0 [1 2 3 4])")
	require.NoError(t, err)
	require.Equal(t, value.Int(10), v)

	v, err = evalSrc(t, env, "(scan (fn [acc x] (+ acc x)) 0 [1 2 3])")
	require.NoError(t, err)
	require.Equal(t, []value.Value{value.Int(1), value.Int(3), value.Int(6)}, v.(*value.Vector).Items)
}

func TestAssertFailsOnFalsy(t *testing.T) {
	env := newEnv()
	_, err := evalSrc(t, env, "(assert true 1 \"x\")")
	require.NoError(t, err)

	_, err = evalSrc(t, env, "(assert true 0)")
	require.Error(t, err)
}

func TestPiConstant(t *testing.T) {
	env := newEnv()
	v, err := evalSrc(t, env, "pi")
	require.NoError(t, err)
	require.InDelta(t, 3.14159265, float64(v.(value.Float)), 1e-6)
}
