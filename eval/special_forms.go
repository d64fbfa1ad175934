package eval

import (
	"github.com/nahharris/vaca/value"
	"github.com/nahharris/vaca/vmenv"
)

func specialDef(args []value.Value, env *vmenv.Env, depth int) (value.Value, error) {
	if len(args) != 2 {
		return nil, errArity(2, len(args))
	}
	name, ok := args[0].(value.Symbol)
	if !ok {
		return nil, errType("symbol", args[0].TypeName())
	}
	v, err := evalValueImpl(args[1], env, depth+1)
	if err != nil {
		return nil, err
	}
	if isRecur(v) {
		return nil, errRecurTailPosition()
	}
	env.DefineGlobal(name.Ident(), v)
	return v, nil
}

func specialDefn(args []value.Value, env *vmenv.Env, depth int) (value.Value, error) {
	if len(args) < 3 {
		return nil, errCustom("defn expects: (defn name [params] body...)")
	}
	name, ok := args[0].(value.Symbol)
	if !ok {
		return nil, errType("symbol", args[0].TypeName())
	}
	lambda, err := specialFn(args[1:], env)
	if err != nil {
		return nil, err
	}
	env.DefineGlobal(name.Ident(), lambda)
	return lambda, nil
}

func specialFn(args []value.Value, env *vmenv.Env) (value.Value, error) {
	if len(args) < 2 {
		return nil, errCustom("fn expects: (fn [params] body...)")
	}
	params, err := parseParams(args[0])
	if err != nil {
		return nil, err
	}
	body := append([]value.Value{}, args[1:]...)
	return &value.Lambda{Params: params, Body: body, Env: env}, nil
}

func specialDefmacro(args []value.Value, env *vmenv.Env) (value.Value, error) {
	if len(args) < 3 {
		return nil, errCustom("defmacro expects: (defmacro name [params] body...)")
	}
	name, ok := args[0].(value.Symbol)
	if !ok {
		return nil, errType("symbol", args[0].TypeName())
	}
	params, err := parseParams(args[1])
	if err != nil {
		return nil, err
	}
	body := append([]value.Value{}, args[2:]...)
	macro := &value.Macro{Params: params, Body: body, Env: env}
	env.DefineGlobal(name.Ident(), macro)
	return macro, nil
}

func parseParams(form value.Value) ([]string, error) {
	vec, ok := form.(*value.Vector)
	if !ok {
		return nil, errType("vector", form.TypeName())
	}
	out := make([]string, len(vec.Items))
	for i, item := range vec.Items {
		sym, ok := item.(value.Symbol)
		if !ok {
			return nil, errType("symbol", item.TypeName())
		}
		out[i] = sym.Ident()
	}
	return out, nil
}

func specialIf(args []value.Value, env *vmenv.Env, depth int) (value.Value, error) {
	if len(args) != 3 {
		return nil, errArity(3, len(args))
	}
	cond, err := evalValueImpl(args[0], env, depth+1)
	if err != nil {
		return nil, err
	}
	if isRecur(cond) {
		return nil, errRecurTailPosition()
	}
	if value.IsTruthy(cond) {
		return evalValueImpl(args[1], env, depth+1)
	}
	return evalValueImpl(args[2], env, depth+1)
}

// bindingPairs accepts either a flat Vector of alternating name/expr
// forms or a Map literal whose entries are themselves name/expr pairs —
// `let` and `loop` take either, since their binding form is read as an
// unevaluated syntax shape rather than a value to be evaluated.
func bindingPairs(form value.Value) ([]value.Value, error) {
	pairs, ok := value.BindingPairs(form)
	if !ok {
		return nil, errType("vector or map", form.TypeName())
	}
	return pairs, nil
}

func specialLet(args []value.Value, env *vmenv.Env, depth int) (value.Value, error) {
	if len(args) < 2 {
		return nil, errCustom("let expects: (let [name value ...] body...)")
	}
	pairs, err := bindingPairs(args[0])
	if err != nil {
		return nil, err
	}

	newEnv := vmenv.New(env)
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(value.Symbol)
		if !ok {
			return nil, errType("symbol", pairs[i].TypeName())
		}
		v, err := evalValueImpl(pairs[i+1], newEnv, depth+1)
		if err != nil {
			return nil, err
		}
		if isRecur(v) {
			return nil, errRecurTailPosition()
		}
		newEnv.Define(name.Ident(), v)
	}
	return evalDoFormsImpl(args[1:], newEnv, depth+1)
}

func specialQuote(args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, errArity(1, len(args))
	}
	return args[0], nil
}

func specialPipe(args []value.Value, env *vmenv.Env, depth int) (value.Value, error) {
	if len(args) == 0 {
		return value.Nil{}, nil
	}
	acc, err := evalValueImpl(args[0], env, depth+1)
	if err != nil {
		return nil, err
	}
	if isRecur(acc) {
		return nil, errRecurTailPosition()
	}
	for _, step := range args[1:] {
		var nextForm value.Value
		if list, ok := step.(*value.List); ok && len(list.Items) > 0 {
			items := make([]value.Value, 0, len(list.Items)+1)
			items = append(items, list.Items[0], acc)
			items = append(items, list.Items[1:]...)
			nextForm = &value.List{Items: items}
		} else {
			nextForm = &value.List{Items: []value.Value{step, acc}}
		}
		acc, err = evalValueImpl(nextForm, env, depth+1)
		if err != nil {
			return nil, err
		}
		if isRecur(acc) {
			return nil, errRecurTailPosition()
		}
	}
	return acc, nil
}

func specialRecur(args []value.Value, env *vmenv.Env, depth int) (value.Value, error) {
	out := make([]value.Value, len(args))
	for i, arg := range args {
		v, err := evalValueImpl(arg, env, depth+1)
		if err != nil {
			return nil, err
		}
		if isRecur(v) {
			return nil, errRecurTailPosition()
		}
		out[i] = v
	}
	return value.Recur{Args: out}, nil
}

func specialLoop(args []value.Value, env *vmenv.Env, depth int) (value.Value, error) {
	if len(args) < 2 {
		return nil, errCustom("loop expects: (loop [name value ...] body...)")
	}
	pairs, err := bindingPairs(args[0])
	if err != nil {
		return nil, err
	}

	loopEnv := vmenv.New(env)
	names := make([]string, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(value.Symbol)
		if !ok {
			return nil, errType("symbol", pairs[i].TypeName())
		}
		v, err := evalValueImpl(pairs[i+1], loopEnv, depth+1)
		if err != nil {
			return nil, err
		}
		if isRecur(v) {
			return nil, errRecurTailPosition()
		}
		loopEnv.Define(name.Ident(), v)
		names = append(names, name.Ident())
	}

	for {
		if depth > MaxDepth {
			return nil, errStackOverflow(MaxDepth)
		}
		result, err := evalDoFormsImpl(args[1:], loopEnv, depth+1)
		if err != nil {
			return nil, err
		}
		recur, ok := result.(value.Recur)
		if !ok {
			return result, nil
		}
		if len(recur.Args) != len(names) {
			return nil, errArity(len(names), len(recur.Args))
		}
		for i, name := range names {
			loopEnv.Define(name, recur.Args[i])
		}
	}
}
