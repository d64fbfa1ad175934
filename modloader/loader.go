// Package modloader implements vaca's `use` special form: resolving a
// dotted module path to a source file, loading and caching it once, and
// hygienically rewriting its top-level definitions so that importing it
// twice from different call sites can never collide.
package modloader

import (
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/nahharris/vaca/reader"
	"github.com/nahharris/vaca/value"
	"github.com/nahharris/vaca/vmenv"
)

// Evaluator is the surface modloader needs from the evaluator to run a
// loaded module's forms. eval.Evaluator implements it; defining the
// interface here (rather than importing eval) keeps modloader free of a
// dependency back on its only caller.
type Evaluator interface {
	EvalForm(form value.Value, env *vmenv.Env, depth int) (value.Value, error)
}

// Use implements `(use path.to.module)` and `(use path.to.module
// [name ... | name :as alias ...])`. It always binds imported names at
// the root of env's chain, matching def/defn/defmacro.
func Use(args []value.Value, env *vmenv.Env, depth int, ev Evaluator) (value.Value, error) {
	if len(args) == 0 || len(args) > 2 {
		return nil, &Error{Kind: BadArity, GotArity: len(args)}
	}

	moduleSym, ok := args[0].(value.Symbol)
	if !ok {
		return nil, &Error{Kind: ExpectedModuleSymbol, Got: args[0].TypeName()}
	}
	moduleSpec := moduleSym.Ident()

	root := env.RootEnv()
	modulePath, err := resolveModulePath(moduleSpec, root)
	if err != nil {
		return nil, err
	}
	info, err := ensureModuleLoaded(modulePath, root, depth+1, ev)
	if err != nil {
		return nil, err
	}

	var requested [][2]string
	if len(args) == 1 {
		for orig := range info.Exports {
			requested = append(requested, [2]string{orig, orig})
		}
	} else {
		requested, err = parseImportList(args[1])
		if err != nil {
			return nil, err
		}
	}

	for _, pair := range requested {
		orig, visible := pair[0], pair[1]
		if !info.Exports[orig] {
			return nil, &Error{Kind: MissingExport, Module: moduleSpec, Symbol: orig}
		}
		if root.ContainsLocal(visible) {
			return nil, &Error{Kind: NameCollision, Name: visible}
		}
		mangled, ok := info.MangleMap[orig]
		if !ok {
			return nil, &Error{Kind: Internal, Message: "missing mangle for `" + orig + "`"}
		}
		v, ok := root.Get(mangled)
		if !ok {
			return nil, &Error{Kind: Internal, Message: "missing value for `" + orig + "`"}
		}
		root.DefineGlobal(visible, v)
	}

	return value.Nil{}, nil
}

func parseImportList(form value.Value) ([][2]string, error) {
	vec, ok := form.(*value.Vector)
	if !ok {
		return nil, &Error{Kind: ExpectedImportVector, Got: form.TypeName()}
	}

	var out [][2]string
	items := vec.Items
	i := 0
	for i < len(items) {
		orig, ok := items[i].(value.Symbol)
		if !ok {
			return nil, &Error{Kind: ExpectedImportSymbol, Got: items[i].TypeName()}
		}
		visible := orig.Ident()

		if i+2 < len(items) {
			if kw, ok := items[i+1].(value.Keyword); ok && kw.Namespace == "" && kw.Name == "as" {
				alias, ok := items[i+2].(value.Symbol)
				if !ok {
					return nil, &Error{Kind: ExpectedAliasSymbol, Got: items[i+2].TypeName()}
				}
				out = append(out, [2]string{orig.Ident(), alias.Ident()})
				i += 3
				continue
			}
		}

		// A keyword other than :as after a name is rejected when a symbol
		// follows it, and otherwise skipped.
		if i+1 < len(items) {
			if kw, ok := items[i+1].(value.Keyword); ok && !(kw.Namespace == "" && kw.Name == "as") {
				if i+2 < len(items) {
					if next, ok := items[i+2].(value.Symbol); ok {
						return nil, &Error{Kind: ExpectedAliasSymbol, Got: next.TypeName()}
					}
				}
				out = append(out, [2]string{orig.Ident(), visible})
				i += 2
				continue
			}
		}

		out = append(out, [2]string{orig.Ident(), visible})
		i++
	}
	return out, nil
}

// resolveModulePath maps a dotted module spec to a file path: `a.b.c`
// becomes `<base>/a/b/c.vaca`, and a `super` segment (anywhere but last)
// ascends one directory instead of naming a path component.
func resolveModulePath(moduleSpec string, root *vmenv.Env) (string, error) {
	baseDir, ok := root.SourceDir()
	if !ok {
		wd, err := os.Getwd()
		if err != nil {
			return "", &Error{Kind: FailedToDetermineBaseDir}
		}
		baseDir = wd
	}

	var parts []string
	for _, p := range strings.Split(moduleSpec, ".") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "", &Error{Kind: EmptyModulePath}
	}

	dir := baseDir
	for _, seg := range parts[:len(parts)-1] {
		if seg == "super" {
			parent := filepath.Dir(dir)
			if parent == dir {
				return "", &Error{Kind: SuperBeyondRoot, Path: moduleSpec}
			}
			dir = parent
		} else {
			dir = filepath.Join(dir, seg)
		}
	}

	file := parts[len(parts)-1]
	if file == "super" {
		return "", &Error{Kind: LastSegmentCannotBeSuper}
	}
	return filepath.Join(dir, file+".vaca"), nil
}

func ensureModuleLoaded(modulePath string, root *vmenv.Env, depth int, ev Evaluator) (*vmenv.ModuleInfo, error) {
	canonical, err := filepath.Abs(modulePath)
	if err != nil {
		return nil, &Error{Kind: ResolveFailed, Path: modulePath, Cause: err.Error()}
	}

	cache := root.ModuleCache()
	if info, ok := cache[canonical]; ok {
		return info, nil
	}

	loading := root.ModuleLoading()
	if loading[canonical] {
		return nil, &Error{Kind: CyclicUse, Path: canonical}
	}
	loading[canonical] = true
	defer delete(loading, canonical)

	info, err := loadModule(canonical, root, depth, ev)
	if err != nil {
		return nil, err
	}
	cache[canonical] = info
	return info, nil
}

func loadModule(canonical string, root *vmenv.Env, depth int, ev Evaluator) (*vmenv.ModuleInfo, error) {
	src, err := os.ReadFile(canonical)
	if err != nil {
		return nil, &Error{Kind: ReadFailed, Path: canonical, Cause: err.Error()}
	}

	nodes, perr := reader.Parse(string(src))
	if perr != nil {
		return nil, &Error{Kind: Internal, Message: "parse error: " + perr.Error()}
	}

	forms := make([]value.Value, len(nodes))
	for i, n := range nodes {
		forms[i] = value.FromNode(n)
	}

	exports, err := collectModuleExports(forms)
	if err != nil {
		return nil, err
	}

	moduleKey := moduleKeyHash(canonical)
	mangleMap := make(map[string]string, len(exports))
	for orig := range exports {
		mangleMap[orig] = "__use__" + moduleKey + "__" + orig
	}

	rewritten := make([]value.Value, len(forms))
	for i, f := range forms {
		rewritten[i] = RewriteForm(f, mangleMap, map[string]bool{}, false)
	}

	prevDir, hadPrevDir := root.SourceDir()
	root.SetSourceDir(filepath.Dir(canonical))
	slog.Debug("loading module", "path", canonical, "exports", len(exports))

	for _, f := range rewritten {
		v, err := ev.EvalForm(f, root, depth+1)
		if err != nil {
			return nil, err
		}
		if _, ok := v.(value.Recur); ok {
			return nil, &Error{Kind: Internal, Message: "recur escaped module top level"}
		}
	}

	if hadPrevDir {
		root.SetSourceDir(prevDir)
	}

	return &vmenv.ModuleInfo{Exports: exports, MangleMap: mangleMap}, nil
}

func moduleKeyHash(path string) string {
	sum := blake2b.Sum256([]byte(path))
	return hex.EncodeToString(sum[:8])
}

func collectModuleExports(forms []value.Value) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, form := range forms {
		list, ok := form.(*value.List)
		if !ok || len(list.Items) < 2 {
			continue
		}
		head, ok := list.Items[0].(value.Symbol)
		if !ok {
			continue
		}
		if head.Name != "def" && head.Name != "defn" && head.Name != "defmacro" {
			continue
		}
		name, ok := list.Items[1].(value.Symbol)
		if !ok {
			return nil, &Error{Kind: InvalidExportForm, Head: head.Name}
		}
		out[name.Ident()] = true
	}
	return out, nil
}
