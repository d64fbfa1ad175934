// Package vmenv implements the lexical environment chain evaluation walks:
// nested scopes backed by a parent pointer, plus the module cache and
// in-progress load set shared by every scope descended from the same root.
package vmenv

import "github.com/nahharris/vaca/value"

// ModuleInfo records what a loaded module exported and how each export
// name was mangled for hygienic insertion into the importer's scope.
type ModuleInfo struct {
	Exports   map[string]bool
	MangleMap map[string]string
}

// Env is one lexical scope. The module cache and the module-loading set
// are shared by reference across an entire env chain: a child created
// with New shares its parent's maps instead of copying them, so a module
// loaded from a nested scope is visible to every other scope descended
// from the same root. The source directory is copied into a child when it
// is created.
type Env struct {
	bindings map[string]value.Value
	parent   *Env

	sourceDir     string
	hasSourceDir  bool
	moduleCache   map[string]*ModuleInfo
	moduleLoading map[string]bool
}

// NewRoot creates a fresh top-level environment with its own module cache
// and loading set.
func NewRoot() *Env {
	return &Env{
		bindings:      make(map[string]value.Value),
		moduleCache:   make(map[string]*ModuleInfo),
		moduleLoading: make(map[string]bool),
	}
}

// New creates a child scope of parent, sharing its module cache and
// loading set and starting with a copy of its source directory.
func New(parent *Env) *Env {
	return &Env{
		bindings:      make(map[string]value.Value),
		parent:        parent,
		sourceDir:     parent.sourceDir,
		hasSourceDir:  parent.hasSourceDir,
		moduleCache:   parent.moduleCache,
		moduleLoading: parent.moduleLoading,
	}
}

// Define binds name in this scope only, shadowing any outer binding.
func (e *Env) Define(name string, v value.Value) {
	e.bindings[name] = v
}

// Get resolves name by walking outward from this scope to the root.
func (e *Env) Get(name string) (value.Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if v, ok := cur.bindings[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// ContainsLocal reports whether name is bound in this scope without
// consulting any parent.
func (e *Env) ContainsLocal(name string) bool {
	_, ok := e.bindings[name]
	return ok
}

// Names returns every binding visible from this scope, walking out to the
// root. Used to build "did you mean" suggestions for undefined symbols;
// not on any hot path.
func (e *Env) Names() []string {
	seen := make(map[string]bool)
	for cur := e; cur != nil; cur = cur.parent {
		for name := range cur.bindings {
			seen[name] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	return out
}

// Set reassigns the nearest existing binding of name, walking outward. It
// never creates a new binding; the caller is responsible for reporting an
// undefined-symbol error when Set returns false.
func (e *Env) Set(name string, v value.Value) bool {
	for cur := e; cur != nil; cur = cur.parent {
		if _, ok := cur.bindings[name]; ok {
			cur.bindings[name] = v
			return true
		}
	}
	return false
}

// Parent returns the enclosing scope, or nil at the root.
func (e *Env) Parent() *Env { return e.parent }

// RootEnv walks to the outermost *Env of the chain. It's the native
// counterpart of Root (which returns the value.Environment interface) for
// callers, like modloader, that need the concrete type to reach the
// module cache and source directory.
func (e *Env) RootEnv() *Env {
	cur := e
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// Root walks to the outermost scope of the chain. def, defn, and
// defmacro always bind there regardless of the lexical depth they were
// evaluated at.
func (e *Env) Root() value.Environment {
	cur := e
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// DefineGlobal binds name at the root of e's chain.
func (e *Env) DefineGlobal(name string, v value.Value) {
	e.Root().Define(name, v)
}

// SourceDir returns the directory `use` resolves module paths against,
// and whether one has been set at all.
func (e *Env) SourceDir() (string, bool) { return e.sourceDir, e.hasSourceDir }

// SetSourceDir sets the directory future `use` forms in this env chain
// resolve relative module paths against. It mutates the receiver only;
// scopes created before the call keep seeing their own sourceDir unless
// they're the same *Env.
func (e *Env) SetSourceDir(dir string) {
	e.sourceDir = dir
	e.hasSourceDir = true
}

// ModuleCache returns the cache of already-loaded modules, shared across
// the whole env chain.
func (e *Env) ModuleCache() map[string]*ModuleInfo { return e.moduleCache }

// ModuleLoading returns the set of canonical module paths currently being
// loaded, used to detect `use` cycles.
func (e *Env) ModuleLoading() map[string]bool { return e.moduleLoading }
