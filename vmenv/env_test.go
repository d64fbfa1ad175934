package vmenv

import (
	"testing"

	"github.com/nahharris/vaca/value"
	"github.com/stretchr/testify/require"
)

func TestGetWalksParentChain(t *testing.T) {
	root := NewRoot()
	root.Define("x", value.Int(1))
	child := New(root)
	grandchild := New(child)

	v, ok := grandchild.Get("x")
	require.True(t, ok)
	require.Equal(t, value.Int(1), v)

	_, ok = grandchild.Get("missing")
	require.False(t, ok)
}

func TestDefineShadowsWithoutMutatingParent(t *testing.T) {
	root := NewRoot()
	root.Define("x", value.Int(1))
	child := New(root)
	child.Define("x", value.Int(2))

	v, _ := child.Get("x")
	require.Equal(t, value.Int(2), v)

	v, _ = root.Get("x")
	require.Equal(t, value.Int(1), v)
}

func TestSetMutatesNearestExistingBinding(t *testing.T) {
	root := NewRoot()
	root.Define("x", value.Int(1))
	child := New(root)

	ok := child.Set("x", value.Int(99))
	require.True(t, ok)

	v, _ := root.Get("x")
	require.Equal(t, value.Int(99), v)

	require.False(t, child.Set("undefined", value.Int(0)))
}

func TestDefineGlobalAlwaysTargetsRoot(t *testing.T) {
	root := NewRoot()
	child := New(root)
	grandchild := New(child)

	grandchild.DefineGlobal("g", value.Int(7))

	require.True(t, root.ContainsLocal("g"))
	require.False(t, child.ContainsLocal("g"))
	require.False(t, grandchild.ContainsLocal("g"))
}

func TestModuleCacheSharedAcrossChain(t *testing.T) {
	root := NewRoot()
	child := New(root)

	root.ModuleCache()["a.vaca"] = &ModuleInfo{Exports: map[string]bool{"f": true}}

	info, ok := child.ModuleCache()["a.vaca"]
	require.True(t, ok)
	require.True(t, info.Exports["f"])
}

func TestSourceDirInheritedByChildren(t *testing.T) {
	root := NewRoot()
	root.SetSourceDir("/src")
	child := New(root)

	dir, ok := child.SourceDir()
	require.True(t, ok)
	require.Equal(t, "/src", dir)
}

func TestRootFromDeepChain(t *testing.T) {
	root := NewRoot()
	child := New(root)
	grandchild := New(child)

	require.Same(t, value.Environment(root), grandchild.Root())
}
