// Package typecheck offers optional, best-effort static validation of a
// parsed form's '#' annotations against named JSON Schemas. It operates
// on reader.Node trees, never on evaluated values, and is never called by
// the evaluator itself — annotations are typing hints for tooling, not
// part of evaluation (spec §4.2).
package typecheck

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nahharris/vaca/reader"
)

// Diagnostic is a single non-fatal finding produced while checking
// annotations against their registered schemas.
type Diagnostic struct {
	Span    reader.Span
	Message string
}

// Registry holds named, compiled JSON Schemas. The zero value is not
// ready for use; call NewRegistry.
type Registry struct {
	schemas map[string]*jsonschema.Schema
}

// NewRegistry returns a Registry preloaded with schemas for the
// primitive annotation names used throughout spec.md's own examples:
// int, float, string, bool, keyword.
func NewRegistry() (*Registry, error) {
	r := &Registry{schemas: make(map[string]*jsonschema.Schema)}
	for name, schema := range builtinSchemas {
		if err := r.RegisterSchema(name, schema); err != nil {
			return nil, fmt.Errorf("typecheck: registering builtin schema %q: %w", name, err)
		}
	}
	return r, nil
}

var builtinSchemas = map[string]json.RawMessage{
	"int":     json.RawMessage(`{"type": "integer"}`),
	"float":   json.RawMessage(`{"type": "number"}`),
	"string":  json.RawMessage(`{"type": "string"}`),
	"bool":    json.RawMessage(`{"type": "boolean"}`),
	"keyword": json.RawMessage(`{"type": "string", "pattern": "^:"}`),
}

// RegisterSchema compiles schema and makes it available under name,
// overwriting any existing schema of the same name.
func (r *Registry) RegisterSchema(name string, schema json.RawMessage) error {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	url := "mem://" + name
	if err := compiler.AddResource(url, strings.NewReader(string(schema))); err != nil {
		return fmt.Errorf("adding schema resource: %w", err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}
	r.schemas[name] = compiled
	return nil
}

// CheckAnnotations walks every node in nodes (recursively, including
// collection elements and nested annotations) and, for each node whose
// annotation names a registered schema, validates the node's literal
// shape against it. Nodes without a recognized annotation head, or whose
// annotation names an unregistered schema, are skipped without error —
// an annotation is a hint, not a contract enforced against a closed
// vocabulary.
func CheckAnnotations(nodes []reader.Node, reg *Registry) ([]Diagnostic, error) {
	var diags []Diagnostic
	for _, n := range nodes {
		walkAnnotations(n, reg, &diags)
	}
	return diags, nil
}

func walkAnnotations(n reader.Node, reg *Registry, diags *[]Diagnostic) {
	if n.Annotation != nil {
		for _, name := range annotationNames(*n.Annotation) {
			schema, ok := reg.schemas[name]
			if !ok {
				continue
			}
			// Annotations on non-literal forms (symbols naming a
			// parameter, arbitrary code) have no shape to check yet —
			// that would need type inference, out of scope here. Only
			// literal nodes (numbers, strings, bools, keywords, nil)
			// are checked.
			raw, ok := toJSONValue(n)
			if !ok {
				continue
			}
			jsonVal, err := roundTripJSON(raw)
			if err != nil {
				*diags = append(*diags, Diagnostic{Span: n.Span, Message: fmt.Sprintf("#%s: %s", name, err)})
				continue
			}
			if err := schema.Validate(jsonVal); err != nil {
				*diags = append(*diags, Diagnostic{
					Span:    n.Span,
					Message: fmt.Sprintf("#%s: %s", name, err.Error()),
				})
			}
		}
	}

	switch k := n.Kind.(type) {
	case reader.ListKind:
		for _, item := range k.Items {
			walkAnnotations(item, reg, diags)
		}
	case reader.VectorKind:
		for _, item := range k.Items {
			walkAnnotations(item, reg, diags)
		}
	case reader.SetKind:
		for _, item := range k.Items {
			walkAnnotations(item, reg, diags)
		}
	case reader.MapKind:
		for _, e := range k.Entries {
			walkAnnotations(e.Key, reg, diags)
			walkAnnotations(e.Value, reg, diags)
		}
	}
}

// annotationNames flattens a single annotation node into the schema
// names it requests. Multiple stacked annotations (`#a #b x`) combine
// into a ListKind per the reader's own combination rule; each item names
// a schema independently.
func annotationNames(ann reader.Node) []string {
	switch k := ann.Kind.(type) {
	case reader.SymbolKind:
		return []string{k.Name}
	case reader.ListKind:
		var out []string
		for _, item := range k.Items {
			out = append(out, annotationNames(item)...)
		}
		return out
	default:
		return nil
	}
}

// toJSONValue lowers a reader.Node's literal shape into a plain Go value
// jsonschema can validate against, for the scalar kinds the builtin
// schemas care about. Compound kinds report not-ok rather than guessing
// a shape, since a schema keyed to a collection's element type would
// need more than spec.md's primitive annotation vocabulary defines.
func toJSONValue(n reader.Node) (interface{}, bool) {
	switch k := n.Kind.(type) {
	case reader.NilKind:
		return nil, true
	case reader.BoolKind:
		return bool(k), true
	case reader.StringKind:
		return k.Value, true
	case reader.KeywordKind:
		return ":" + qualify(k.Namespace, k.Name), true
	case reader.NumberKind:
		return numberJSONValue(k)
	default:
		return nil, false
	}
}

// roundTripJSON forces raw through JSON's own type set (numbers become
// float64) so jsonschema validates it exactly as it would a value decoded
// from the wire, regardless of which native Go type toJSONValue produced.
func roundTripJSON(raw interface{}) (interface{}, error) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding annotated value: %w", err)
	}
	var decoded interface{}
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return nil, fmt.Errorf("decoding annotated value: %w", err)
	}
	return decoded, nil
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "/" + name
}

func numberJSONValue(k reader.NumberKind) (interface{}, bool) {
	lexeme := strings.TrimSuffix(strings.TrimSuffix(k.Lexeme, "N"), "M")
	if k.IsFloat {
		var f float64
		if _, err := fmt.Sscanf(lexeme, "%g", &f); err != nil {
			return nil, false
		}
		return f, true
	}
	var i int64
	if _, err := fmt.Sscanf(lexeme, "%d", &i); err != nil {
		return nil, false
	}
	return i, true
}
