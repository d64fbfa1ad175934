package modloader_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nahharris/vaca/eval"
	"github.com/nahharris/vaca/modloader"
	"github.com/nahharris/vaca/reader"
	"github.com/nahharris/vaca/value"
	"github.com/nahharris/vaca/vmenv"
	"github.com/stretchr/testify/require"
)

func writeModule(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".vaca"), []byte(src), 0o644))
}

func evalIn(t *testing.T, env *vmenv.Env, src string) (value.Value, error) {
	t.Helper()
	nodes, err := reader.Parse(src)
	require.NoError(t, err)
	var last value.Value = value.Nil{}
	for _, n := range nodes {
		v, err := eval.Evaluate(n, env)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func addArith(env *vmenv.Env) {
	env.DefineGlobal("+", &value.Builtin{Name: "+", Fn: func(args []value.Value, _ value.Environment) (value.Value, error) {
		var sum int64
		for _, a := range args {
			sum += int64(a.(value.Int))
		}
		return value.Int(sum), nil
	}})
}

func TestUseBindsExportedNamesAtRoot(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "greet", `(def greeting "hi")`)

	env := vmenv.NewRoot()
	env.SetSourceDir(dir)

	_, err := evalIn(t, env, "(use greet)")
	require.NoError(t, err)

	v, err := evalIn(t, env, "greeting")
	require.NoError(t, err)
	require.Equal(t, value.Str("hi"), v)
}

func TestUseWithExplicitImportListAndAlias(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "shapes", `(def pi-ish 3) (def tau-ish 6)`)

	env := vmenv.NewRoot()
	env.SetSourceDir(dir)

	_, err := evalIn(t, env, "(use shapes [pi-ish tau-ish :as tau])")
	require.NoError(t, err)

	require.False(t, env.ContainsLocal("tau-ish"), "aliased import is not bound under its original name")

	v, err := evalIn(t, env, "tau")
	require.NoError(t, err)
	require.Equal(t, value.Int(6), v)
}

func TestUseMissingExportIsError(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "m", `(def x 1)`)

	env := vmenv.NewRoot()
	env.SetSourceDir(dir)

	_, err := evalIn(t, env, "(use m [y])")
	require.Error(t, err)
	everr, ok := err.(*eval.Error)
	require.True(t, ok)
	modErr, ok := everr.Wrapped.(*modloader.Error)
	require.True(t, ok)
	require.Equal(t, modloader.MissingExport, modErr.Kind)
}

func TestUseNameCollisionIsError(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "m", `(def x 1)`)

	env := vmenv.NewRoot()
	env.SetSourceDir(dir)
	env.DefineGlobal("x", value.Int(99))

	_, err := evalIn(t, env, "(use m [x])")
	require.Error(t, err)
	everr, ok := err.(*eval.Error)
	require.True(t, ok)
	modErr, ok := everr.Wrapped.(*modloader.Error)
	require.True(t, ok)
	require.Equal(t, modloader.NameCollision, modErr.Kind)
}

func TestUseCachesModuleAcrossMultipleSites(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "shared", `(def a 1) (def b 2)`)

	env := vmenv.NewRoot()
	env.SetSourceDir(dir)

	_, err := evalIn(t, env, "(use shared [a])")
	require.NoError(t, err)

	// Removing the file proves the second `use` is served from cache, not
	// re-read from disk.
	require.NoError(t, os.Remove(filepath.Join(dir, "shared.vaca")))

	_, err = evalIn(t, env, "(use shared [b])")
	require.NoError(t, err)

	v, err := evalIn(t, env, "b")
	require.NoError(t, err)
	require.Equal(t, value.Int(2), v)
}

func TestUseSuperAscendsOneDirectory(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "top", `(def marker "top-level")`)
	sub := filepath.Join(root, "sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	env := vmenv.NewRoot()
	env.SetSourceDir(sub)

	_, err := evalIn(t, env, "(use super.top)")
	require.NoError(t, err)

	v, err := evalIn(t, env, "marker")
	require.NoError(t, err)
	require.Equal(t, value.Str("top-level"), v)
}

func TestUseCyclicUseIsError(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "a", `(use b [y]) (def x 1)`)
	writeModule(t, dir, "b", `(use a [x]) (def y 1)`)

	env := vmenv.NewRoot()
	env.SetSourceDir(dir)

	_, err := evalIn(t, env, "(use a)")
	require.Error(t, err)
	everr, ok := err.(*eval.Error)
	require.True(t, ok)
	modErr, ok := everr.Wrapped.(*modloader.Error)
	require.True(t, ok)
	require.Equal(t, modloader.CyclicUse, modErr.Kind)
}

func TestUseMacroHygieneDoesNotLeakModuleInternals(t *testing.T) {
	dir := t.TempDir()
	// `m`'s expansion refers to the module's own `id` and introduces its
	// own local `x`; neither should collide with or be shadowed by
	// anything the call site brings in.
	writeModule(t, dir, "b", `
(def x 100)
(defn id [v] v)
(defmacro m [] (quote (let [x 1] (id x))))
`)

	env := vmenv.NewRoot()
	env.SetSourceDir(dir)
	addArith(env)

	_, err := evalIn(t, env, "(use b [m])")
	require.NoError(t, err)

	v, err := evalIn(t, env, "(m)")
	require.NoError(t, err)
	require.Equal(t, value.Int(1), v, "macro's local x must win over the module's top-level x")
}

func TestUseMacroHygieneWithMapBindings(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "b", `
(def x 100)
(defn id [v] v)
(defmacro m [] (quote (let {x 1} (id x))))
`)

	env := vmenv.NewRoot()
	env.SetSourceDir(dir)
	addArith(env)

	_, err := evalIn(t, env, "(use b [m])")
	require.NoError(t, err)

	v, err := evalIn(t, env, "(m)")
	require.NoError(t, err)
	require.Equal(t, value.Int(1), v)
}
