// Package builtin registers the primitive callables every vaca program
// starts with: arithmetic, comparison, logic, I/O, parsing, collection
// operations, the assert diagnostic helper and the pi constant. None of it is special
// syntax — every name here is an ordinary global binding to a
// *value.Builtin, replaceable by redefinition like anything else.
package builtin

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/nahharris/vaca/eval"
	"github.com/nahharris/vaca/value"
	"github.com/nahharris/vaca/vmenv"
)

// Register binds the full builtin table into env, which should normally
// be the program's root environment.
func Register(env *vmenv.Env) {
	env.DefineGlobal("pi", value.Float(math.Pi))

	def(env, "+", builtinAdd)
	def(env, "-", builtinSub)
	def(env, "*", builtinMul)
	def(env, "/", builtinDiv)
	def(env, "//", builtinIntDiv)
	def(env, "^", builtinPow)
	def(env, "mod", builtinMod)
	def(env, "brt", builtinBrt)
	def(env, "max", builtinMax)
	def(env, "min", builtinMin)

	def(env, ">", builtinGt)
	def(env, "<", builtinLt)
	def(env, ">=", builtinGte)
	def(env, "<=", builtinLte)
	def(env, "==", builtinEq)
	def(env, "!=", builtinNeq)

	def(env, "&", builtinAnd)
	def(env, "|", builtinOr)

	def(env, "readln", builtinReadln)
	def(env, "format", builtinFormat)
	def(env, "print", builtinPrint)
	def(env, "println", builtinPrintln)

	def(env, "parse-int", builtinParseInt)
	def(env, "parse-float", builtinParseFloat)

	def(env, "concat", builtinConcat)
	def(env, "append", builtinAppend)
	def(env, "prepend", builtinPrepend)
	def(env, "nth", builtinNth)
	def(env, "map", builtinMap)
	def(env, "reduce", builtinReduce)
	def(env, "scan", builtinScan)

	def(env, "assert", builtinAssert)
}

func def(env *vmenv.Env, name string, fn value.BuiltinFunc) {
	env.DefineGlobal(name, &value.Builtin{Name: name, Fn: fn})
}

func expectArity(args []value.Value, n int) error {
	if len(args) != n {
		return &eval.Error{Kind: eval.ArityError, ExpectedArity: n, GotArity: len(args)}
	}
	return nil
}

func errType(expected string, got value.Value) error {
	return &eval.Error{Kind: eval.TypeError, Expected: expected, Got: got.TypeName()}
}

func errCustom(format string, args ...interface{}) error {
	return &eval.Error{Kind: eval.Custom, Message: fmt.Sprintf(format, args...)}
}

// promote widens two numbers to float64, reporting whether both were Int
// (so a caller that wants an int-preserving fast path can take it).
func promote(a, b value.Value) (af, bf float64, bothInt bool, err error) {
	ai, aIsInt := a.(value.Int)
	bi, bIsInt := b.(value.Int)
	if aIsInt && bIsInt {
		return float64(ai), float64(bi), true, nil
	}
	af, err = toFloat(a)
	if err != nil {
		return 0, 0, false, err
	}
	bf, err = toFloat(b)
	if err != nil {
		return 0, 0, false, err
	}
	return af, bf, false, nil
}

func toFloat(v value.Value) (float64, error) {
	switch t := v.(type) {
	case value.Int:
		return float64(t), nil
	case value.Float:
		return float64(t), nil
	default:
		return 0, errType("number", v)
	}
}

func saturatingAdd(a, b int64) int64 {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		if b > 0 {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return sum
}

func saturatingMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	p := a * b
	if p/b != a {
		if (a > 0) == (b > 0) {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return p
}

func saturatingPow(base int64, exp int64) int64 {
	if exp <= 0 {
		return 1
	}
	acc := int64(1)
	for i := int64(0); i < exp; i++ {
		acc = saturatingMul(acc, base)
	}
	return acc
}

func builtinAdd(args []value.Value, _ value.Environment) (value.Value, error) {
	if len(args) == 0 {
		return value.Int(0), nil
	}
	var accI int64
	var accF float64
	isFloat := false
	for _, a := range args {
		switch t := a.(type) {
		case value.Int:
			if isFloat {
				accF += float64(t)
			} else {
				accI = saturatingAdd(accI, int64(t))
			}
		case value.Float:
			if !isFloat {
				isFloat = true
				accF = float64(accI)
			}
			accF += float64(t)
		default:
			return nil, errType("number", a)
		}
	}
	if isFloat {
		return value.Float(accF), nil
	}
	return value.Int(accI), nil
}

func builtinSub(args []value.Value, _ value.Environment) (value.Value, error) {
	if len(args) == 0 {
		return nil, &eval.Error{Kind: eval.ArityError, ExpectedArity: 1, GotArity: 0}
	}
	if len(args) == 1 {
		switch t := args[0].(type) {
		case value.Int:
			return value.Int(-t), nil
		case value.Float:
			return value.Float(-t), nil
		default:
			return nil, errType("number", args[0])
		}
	}
	acc := args[0]
	for _, a := range args[1:] {
		ai, aok := acc.(value.Int)
		bi, bok := a.(value.Int)
		if aok && bok {
			acc = value.Int(ai - bi)
			continue
		}
		af, bf, _, err := promote(acc, a)
		if err != nil {
			return nil, err
		}
		acc = value.Float(af - bf)
	}
	return acc, nil
}

func builtinMul(args []value.Value, _ value.Environment) (value.Value, error) {
	if len(args) == 0 {
		return value.Int(1), nil
	}
	var accI int64 = 1
	var accF float64 = 1
	isFloat := false
	for _, a := range args {
		switch t := a.(type) {
		case value.Int:
			if isFloat {
				accF *= float64(t)
			} else {
				accI = saturatingMul(accI, int64(t))
			}
		case value.Float:
			if !isFloat {
				isFloat = true
				accF = float64(accI)
			}
			accF *= float64(t)
		default:
			return nil, errType("number", a)
		}
	}
	if isFloat {
		return value.Float(accF), nil
	}
	return value.Int(accI), nil
}

func builtinDiv(args []value.Value, _ value.Environment) (value.Value, error) {
	if err := expectArity(args, 2); err != nil {
		return nil, err
	}
	a, b, _, err := promote(args[0], args[1])
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, &eval.Error{Kind: eval.DivisionByZero}
	}
	return value.Float(a / b), nil
}

func builtinIntDiv(args []value.Value, _ value.Environment) (value.Value, error) {
	if err := expectArity(args, 2); err != nil {
		return nil, err
	}
	a, ok := args[0].(value.Int)
	if !ok {
		return nil, errType("int", args[0])
	}
	b, ok := args[1].(value.Int)
	if !ok {
		return nil, errType("int", args[1])
	}
	if b == 0 {
		return nil, &eval.Error{Kind: eval.DivisionByZero}
	}
	return value.Int(a / b), nil
}

func builtinPow(args []value.Value, _ value.Environment) (value.Value, error) {
	if err := expectArity(args, 2); err != nil {
		return nil, err
	}
	ai, aIsInt := args[0].(value.Int)
	bi, bIsInt := args[1].(value.Int)
	if aIsInt && bIsInt {
		if bi < 0 {
			return value.Float(math.Pow(float64(ai), float64(bi))), nil
		}
		return value.Int(saturatingPow(int64(ai), int64(bi))), nil
	}
	a, b, _, err := promote(args[0], args[1])
	if err != nil {
		return nil, err
	}
	return value.Float(math.Pow(a, b)), nil
}

func builtinMod(args []value.Value, _ value.Environment) (value.Value, error) {
	if err := expectArity(args, 2); err != nil {
		return nil, err
	}
	a, ok := args[0].(value.Int)
	if !ok {
		return nil, errType("int", args[0])
	}
	b, ok := args[1].(value.Int)
	if !ok {
		return nil, errType("int", args[1])
	}
	if b == 0 {
		return nil, &eval.Error{Kind: eval.DivisionByZero}
	}
	return value.Int(a % b), nil
}

func builtinBrt(args []value.Value, _ value.Environment) (value.Value, error) {
	if err := expectArity(args, 2); err != nil {
		return nil, err
	}
	a, b, _, err := promote(args[0], args[1])
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, &eval.Error{Kind: eval.DivisionByZero}
	}
	return value.Float(math.Pow(a, 1.0/b)), nil
}

func builtinMax(args []value.Value, _ value.Environment) (value.Value, error) {
	if err := expectArity(args, 2); err != nil {
		return nil, err
	}
	ai, aIsInt := args[0].(value.Int)
	bi, bIsInt := args[1].(value.Int)
	if aIsInt && bIsInt {
		if ai > bi {
			return ai, nil
		}
		return bi, nil
	}
	a, b, _, err := promote(args[0], args[1])
	if err != nil {
		return nil, err
	}
	return value.Float(math.Max(a, b)), nil
}

func builtinMin(args []value.Value, _ value.Environment) (value.Value, error) {
	if err := expectArity(args, 2); err != nil {
		return nil, err
	}
	ai, aIsInt := args[0].(value.Int)
	bi, bIsInt := args[1].(value.Int)
	if aIsInt && bIsInt {
		if ai < bi {
			return ai, nil
		}
		return bi, nil
	}
	a, b, _, err := promote(args[0], args[1])
	if err != nil {
		return nil, err
	}
	return value.Float(math.Min(a, b)), nil
}

func numCmp(args []value.Value, op func(a, b float64) bool) (value.Value, error) {
	if err := expectArity(args, 2); err != nil {
		return nil, err
	}
	a, b, _, err := promote(args[0], args[1])
	if err != nil {
		return nil, err
	}
	return value.Bool(op(a, b)), nil
}

func builtinGt(args []value.Value, _ value.Environment) (value.Value, error) {
	return numCmp(args, func(a, b float64) bool { return a > b })
}

func builtinLt(args []value.Value, _ value.Environment) (value.Value, error) {
	return numCmp(args, func(a, b float64) bool { return a < b })
}

func builtinGte(args []value.Value, _ value.Environment) (value.Value, error) {
	return numCmp(args, func(a, b float64) bool { return a >= b })
}

func builtinLte(args []value.Value, _ value.Environment) (value.Value, error) {
	return numCmp(args, func(a, b float64) bool { return a <= b })
}

func builtinEq(args []value.Value, _ value.Environment) (value.Value, error) {
	if err := expectArity(args, 2); err != nil {
		return nil, err
	}
	return value.Bool(value.Equal(args[0], args[1])), nil
}

func builtinNeq(args []value.Value, _ value.Environment) (value.Value, error) {
	if err := expectArity(args, 2); err != nil {
		return nil, err
	}
	return value.Bool(!value.Equal(args[0], args[1])), nil
}

func builtinAnd(args []value.Value, _ value.Environment) (value.Value, error) {
	if err := expectArity(args, 2); err != nil {
		return nil, err
	}
	a, ok := args[0].(value.Bool)
	if !ok {
		return nil, errType("bool", args[0])
	}
	b, ok := args[1].(value.Bool)
	if !ok {
		return nil, errType("bool", args[1])
	}
	return value.Bool(a && b), nil
}

func builtinOr(args []value.Value, _ value.Environment) (value.Value, error) {
	if err := expectArity(args, 2); err != nil {
		return nil, err
	}
	a, ok := args[0].(value.Bool)
	if !ok {
		return nil, errType("bool", args[0])
	}
	b, ok := args[1].(value.Bool)
	if !ok {
		return nil, errType("bool", args[1])
	}
	return value.Bool(a || b), nil
}

func builtinReadln(_ []value.Value, _ value.Environment) (value.Value, error) {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, errCustom("readln failed: %s", err)
	}
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
	}
	return value.Str(line), nil
}

// stringForIO renders a single `format`/`print`/`println` argument:
// strings pass through raw, everything else uses Display.
func stringForIO(v value.Value) string {
	return value.DisplayRaw(v)
}

func builtinFormat(args []value.Value, _ value.Environment) (value.Value, error) {
	if len(args) == 1 {
		if v, ok := args[0].(*value.Vector); ok {
			var out string
			for _, item := range v.Items {
				out += stringForIO(item)
			}
			return value.Str(out), nil
		}
	}
	var out string
	for _, a := range args {
		out += stringForIO(a)
	}
	return value.Str(out), nil
}

func builtinPrint(args []value.Value, env value.Environment) (value.Value, error) {
	s, err := builtinFormat(args, env)
	if err != nil {
		return nil, err
	}
	fmt.Print(string(s.(value.Str)))
	return value.Nil{}, nil
}

func builtinPrintln(args []value.Value, env value.Environment) (value.Value, error) {
	s, err := builtinFormat(args, env)
	if err != nil {
		return nil, err
	}
	fmt.Println(string(s.(value.Str)))
	return value.Nil{}, nil
}

func builtinParseInt(args []value.Value, _ value.Environment) (value.Value, error) {
	if err := expectArity(args, 1); err != nil {
		return nil, err
	}
	s, ok := args[0].(value.Str)
	if !ok {
		return nil, errType("string", args[0])
	}
	n, err := strconv.ParseInt(string(s), 10, 64)
	if err != nil {
		return nil, errCustom("parse-int failed: %s", err)
	}
	return value.Int(n), nil
}

func builtinParseFloat(args []value.Value, _ value.Environment) (value.Value, error) {
	if err := expectArity(args, 1); err != nil {
		return nil, err
	}
	s, ok := args[0].(value.Str)
	if !ok {
		return nil, errType("string", args[0])
	}
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return nil, errCustom("parse-float failed: %s", err)
	}
	return value.Float(f), nil
}

func builtinConcat(args []value.Value, _ value.Environment) (value.Value, error) {
	if err := expectArity(args, 2); err != nil {
		return nil, err
	}
	a, ok := args[0].(*value.Vector)
	if !ok {
		return nil, errType("vector", args[0])
	}
	b, ok := args[1].(*value.Vector)
	if !ok {
		return nil, errType("vector", args[1])
	}
	out := make([]value.Value, 0, len(a.Items)+len(b.Items))
	out = append(out, a.Items...)
	out = append(out, b.Items...)
	return &value.Vector{Items: out}, nil
}

// builtinAppend puts its first argument at the FRONT of the vector —
// named for consistency with the reference implementation it's
// ported from, not for what it does to the back of the list. Use
// builtinPrepend for that.
func builtinAppend(args []value.Value, _ value.Environment) (value.Value, error) {
	if err := expectArity(args, 2); err != nil {
		return nil, err
	}
	elem := args[0]
	v, ok := args[1].(*value.Vector)
	if !ok {
		return nil, errType("vector", args[1])
	}
	out := make([]value.Value, 0, len(v.Items)+1)
	out = append(out, elem)
	out = append(out, v.Items...)
	return &value.Vector{Items: out}, nil
}

// builtinPrepend puts its first argument at the BACK of the vector, the
// mirror image of builtinAppend.
func builtinPrepend(args []value.Value, _ value.Environment) (value.Value, error) {
	if err := expectArity(args, 2); err != nil {
		return nil, err
	}
	elem := args[0]
	v, ok := args[1].(*value.Vector)
	if !ok {
		return nil, errType("vector", args[1])
	}
	out := make([]value.Value, 0, len(v.Items)+1)
	out = append(out, v.Items...)
	out = append(out, elem)
	return &value.Vector{Items: out}, nil
}

func builtinNth(args []value.Value, _ value.Environment) (value.Value, error) {
	if err := expectArity(args, 2); err != nil {
		return nil, err
	}
	n, ok := args[0].(value.Int)
	if !ok {
		return nil, errType("int", args[0])
	}
	v, ok := args[1].(*value.Vector)
	if !ok {
		return nil, errType("vector", args[1])
	}
	if n < 0 {
		return nil, &eval.Error{Kind: eval.IndexOutOfBounds, Index: 0, Len: len(v.Items)}
	}
	idx := int(n)
	if idx >= len(v.Items) {
		return nil, &eval.Error{Kind: eval.IndexOutOfBounds, Index: idx, Len: len(v.Items)}
	}
	return v.Items[idx], nil
}

// applyEnv recovers the concrete environment a callback needs to run in.
// Builtins only ever receive an env fit to be passed straight through to
// eval.Apply, which is always a *vmenv.Env in this implementation.
func applyEnv(env value.Environment) (*vmenv.Env, error) {
	e, ok := env.(*vmenv.Env)
	if !ok {
		return nil, errCustom("callback requires a native environment")
	}
	return e, nil
}

func builtinMap(args []value.Value, env value.Environment) (value.Value, error) {
	if err := expectArity(args, 2); err != nil {
		return nil, err
	}
	f := args[0]
	v, ok := args[1].(*value.Vector)
	if !ok {
		return nil, errType("vector", args[1])
	}
	callEnv, err := applyEnv(env)
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, len(v.Items))
	for i, item := range v.Items {
		r, err := eval.Apply(f, []value.Value{item}, callEnv)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return &value.Vector{Items: out}, nil
}

func builtinReduce(args []value.Value, env value.Environment) (value.Value, error) {
	if err := expectArity(args, 3); err != nil {
		return nil, err
	}
	f := args[0]
	acc := args[1]
	v, ok := args[2].(*value.Vector)
	if !ok {
		return nil, errType("vector", args[2])
	}
	callEnv, err := applyEnv(env)
	if err != nil {
		return nil, err
	}
	for _, item := range v.Items {
		acc, err = eval.Apply(f, []value.Value{acc, item}, callEnv)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func builtinScan(args []value.Value, env value.Environment) (value.Value, error) {
	if err := expectArity(args, 3); err != nil {
		return nil, err
	}
	f := args[0]
	acc := args[1]
	v, ok := args[2].(*value.Vector)
	if !ok {
		return nil, errType("vector", args[2])
	}
	callEnv, err := applyEnv(env)
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, len(v.Items))
	for i, item := range v.Items {
		var err error
		acc, err = eval.Apply(f, []value.Value{acc, item}, callEnv)
		if err != nil {
			return nil, err
		}
		out[i] = acc
	}
	return &value.Vector{Items: out}, nil
}

func builtinAssert(args []value.Value, _ value.Environment) (value.Value, error) {
	for _, a := range args {
		if !value.IsTruthy(a) {
			return nil, errCustom("assertion failed")
		}
	}
	return value.Nil{}, nil
}
