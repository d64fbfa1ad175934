// Package eval implements the tree-walking evaluator: self-evaluating
// atoms, the special-form dispatch table, macro expansion, lexical
// closures, and the tail-call trampoline that makes `recur` iterative
// rather than stack-recursive.
package eval

import (
	"log/slog"

	"github.com/nahharris/vaca/modloader"
	"github.com/nahharris/vaca/reader"
	"github.com/nahharris/vaca/suggest"
	"github.com/nahharris/vaca/value"
	"github.com/nahharris/vaca/vmenv"
)

// MaxDepth bounds recursive evaluation. Crossing it raises StackOverflow
// rather than exhausting the Go call stack.
const MaxDepth = 10_000

var specialFormHeads = map[string]bool{
	"def": true, "defn": true, "fn": true, "if": true, "do": true,
	"let": true, "quote": true, "defmacro": true, "deftype": true,
	"use": true, "|>": true, "recur": true, "loop": true,
}

// Evaluate lowers a syntax node to a form and evaluates it in env. A
// top-level Recur escaping every function and loop boundary is an error:
// recur only makes sense in tail position inside a lambda body or a loop.
func Evaluate(n reader.Node, env *vmenv.Env) (value.Value, error) {
	form := value.FromNode(n)
	return EvaluateForm(form, env)
}

// EvaluateForm evaluates an already-lowered form, for callers (like
// modloader) that construct or rewrite forms directly instead of reading
// them from source.
func EvaluateForm(form value.Value, env *vmenv.Env) (value.Value, error) {
	out, err := evalValueImpl(form, env, 0)
	if err != nil {
		return nil, err
	}
	if _, ok := out.(value.Recur); ok {
		return nil, errCustom("recur must be inside a function body or loop")
	}
	return out, nil
}

// Apply invokes func with already-evaluated args, used both by list-form
// call evaluation and by builtins like `map` and `reduce` that call back
// into user functions.
func Apply(fn value.Value, args []value.Value, env *vmenv.Env) (value.Value, error) {
	return applyImpl(fn, args, env, 0)
}

// Evaluator adapts this package's internal evaluation entry point to the
// small interface modloader.Use needs, avoiding an import cycle between
// eval (which drives `use`) and modloader (which needs to evaluate
// rewritten module forms back in the caller's environment).
type Evaluator struct{}

func (Evaluator) EvalForm(form value.Value, env *vmenv.Env, depth int) (value.Value, error) {
	return evalValueImpl(form, env, depth)
}

func evalValueImpl(form value.Value, env *vmenv.Env, depth int) (value.Value, error) {
	if depth > MaxDepth {
		return nil, errStackOverflow(MaxDepth)
	}

	switch t := form.(type) {
	case value.Nil, value.Bool, value.Int, value.Float, value.Char, value.Str,
		value.Keyword, *value.Builtin, *value.Lambda, *value.Macro, value.Recur:
		return form, nil

	case value.Symbol:
		ident := t.Ident()
		if v, ok := env.Get(ident); ok {
			return v, nil
		}
		slog.Debug("undefined symbol lookup failed", "symbol", ident)
		err := errUndefinedSymbol(ident)
		err.Suggestion = suggest.Closest(ident, env.Names())
		return nil, err

	case *value.Vector:
		out := make([]value.Value, len(t.Items))
		for i, item := range t.Items {
			v, err := evalValueImpl(item, env, depth+1)
			if err != nil {
				return nil, err
			}
			if isRecur(v) {
				return nil, errRecurTailPosition()
			}
			out[i] = v
		}
		return &value.Vector{Items: out}, nil

	case *value.SetVal:
		out := make([]value.Value, 0, t.Len())
		for _, item := range t.Items() {
			v, err := evalValueImpl(item, env, depth+1)
			if err != nil {
				return nil, err
			}
			if isRecur(v) {
				return nil, errRecurTailPosition()
			}
			out = append(out, v)
		}
		return value.NewSet(out), nil

	case *value.MapVal:
		entries := make([]value.MapEntry, 0, t.Len())
		for _, e := range t.Entries() {
			k, err := evalValueImpl(e.Key, env, depth+1)
			if err != nil {
				return nil, err
			}
			if isRecur(k) {
				return nil, errRecurTailPosition()
			}
			v, err := evalValueImpl(e.Val, env, depth+1)
			if err != nil {
				return nil, err
			}
			if isRecur(v) {
				return nil, errRecurTailPosition()
			}
			entries = append(entries, value.MapEntry{Key: k, Val: v})
		}
		return value.NewMap(entries), nil

	case *value.List:
		return evalListImpl(t.Items, env, depth+1)

	default:
		return form, nil
	}
}

func isRecur(v value.Value) bool {
	_, ok := v.(value.Recur)
	return ok
}

func evalListImpl(items []value.Value, env *vmenv.Env, depth int) (value.Value, error) {
	if len(items) == 0 {
		return &value.List{}, nil
	}

	if head, ok := items[0].(value.Symbol); ok && head.Namespace == "" {
		switch head.Name {
		case "def":
			return specialDef(items[1:], env, depth)
		case "defn":
			return specialDefn(items[1:], env, depth)
		case "fn":
			return specialFn(items[1:], env)
		case "if":
			return specialIf(items[1:], env, depth)
		case "do":
			return evalDoFormsImpl(items[1:], env, depth+1)
		case "let":
			return specialLet(items[1:], env, depth)
		case "quote":
			return specialQuote(items[1:])
		case "defmacro":
			return specialDefmacro(items[1:], env)
		case "deftype":
			return value.Nil{}, nil
		case "use":
			v, err := modloader.Use(items[1:], env, depth+1, Evaluator{})
			if err != nil {
				// Faults raised while evaluating a module's own forms (a
				// nested `use` included) are already *Error values and pass
				// through as they are; only modloader's own faults get wrapped.
				if inner, ok := err.(*Error); ok {
					return nil, inner
				}
				return nil, &Error{Kind: Use, Wrapped: err}
			}
			return v, nil
		case "|>":
			return specialPipe(items[1:], env, depth)
		case "recur":
			return specialRecur(items[1:], env, depth)
		case "loop":
			return specialLoop(items[1:], env, depth)
		}
	}

	callee, err := evalValueImpl(items[0], env, depth+1)
	if err != nil {
		return nil, err
	}

	if macro, ok := callee.(*value.Macro); ok {
		expanded, err := applyMacro(macro, items[1:], depth+1)
		if err != nil {
			return nil, err
		}
		return evalValueImpl(expanded, env, depth+1)
	}

	args := make([]value.Value, 0, len(items)-1)
	for _, arg := range items[1:] {
		v, err := evalValueImpl(arg, env, depth+1)
		if err != nil {
			return nil, err
		}
		if isRecur(v) {
			return nil, errRecurTailPosition()
		}
		args = append(args, v)
	}
	return applyImpl(callee, args, env, depth+1)
}

func applyImpl(fn value.Value, args []value.Value, env *vmenv.Env, depth int) (value.Value, error) {
	if depth > MaxDepth {
		return nil, errStackOverflow(MaxDepth)
	}

	switch t := fn.(type) {
	case *value.Builtin:
		return t.Fn(args, env)

	case *value.Lambda:
		if len(args) != len(t.Params) {
			return nil, errArity(len(t.Params), len(args))
		}
		current := args
		for {
			captured, ok := t.Env.(*vmenv.Env)
			if !ok {
				return nil, errCustom("lambda captured a non-native environment")
			}
			callEnv := vmenv.New(captured)
			for i, p := range t.Params {
				callEnv.Define(p, current[i])
			}
			result, err := evalDoFormsImpl(t.Body, callEnv, depth+1)
			if err != nil {
				return nil, err
			}
			recur, ok := result.(value.Recur)
			if !ok {
				return result, nil
			}
			if len(recur.Args) != len(t.Params) {
				return nil, errArity(len(t.Params), len(recur.Args))
			}
			current = recur.Args
		}

	default:
		return nil, errNotCallable(fn.TypeName())
	}
}

func applyMacro(m *value.Macro, rawArgs []value.Value, depth int) (value.Value, error) {
	if len(rawArgs) != len(m.Params) {
		return nil, errArity(len(m.Params), len(rawArgs))
	}
	captured, ok := m.Env.(*vmenv.Env)
	if !ok {
		return nil, errCustom("macro captured a non-native environment")
	}
	macroEnv := vmenv.New(captured)
	for i, p := range m.Params {
		macroEnv.Define(p, rawArgs[i])
	}
	return evalDoFormsImpl(m.Body, macroEnv, depth+1)
}

func evalDoFormsImpl(forms []value.Value, env *vmenv.Env, depth int) (value.Value, error) {
	var last value.Value = value.Nil{}
	for i, form := range forms {
		v, err := evalValueImpl(form, env, depth+1)
		if err != nil {
			return nil, err
		}
		if i+1 != len(forms) && isRecur(v) {
			return nil, errRecurTailPosition()
		}
		last = v
	}
	return last, nil
}
