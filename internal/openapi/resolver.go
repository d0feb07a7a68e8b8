package openapi

import (
	"fmt"
	"strconv"
	"strings"
)

// resolver turns normalized raw schema values into SchemaNodes, following
// references. visiting tracks pointers on the active resolution path so a
// re-entered pointer becomes a bounded back-edge instead of an infinite
// expansion; cache holds completed nodes so shared references resolve once.
// Both are scoped to a single Parse call and never shared across calls.
type resolver struct {
	root     map[string]any
	cache    map[string]*SchemaNode
	visiting map[string]bool
}

func newResolver(root map[string]any) *resolver {
	return &resolver{
		root:     root,
		cache:    make(map[string]*SchemaNode),
		visiting: make(map[string]bool),
	}
}

// lookup walks a local JSON Pointer from the document root. References that
// do not start with "#/" point outside the document and are unsupported.
func (r *resolver) lookup(pointer string) (any, error) {
	if !strings.HasPrefix(pointer, "#/") {
		return nil, parseErrorf(ReferenceResolutionError, pointer, "unsupported external reference %q", pointer)
	}
	var cur any = r.root
	for _, seg := range strings.Split(pointer[2:], "/") {
		seg = unescapePointer(seg)
		switch c := cur.(type) {
		case map[string]any:
			next, ok := c[seg]
			if !ok {
				return nil, parseErrorf(ReferenceResolutionError, pointer, "dangling reference: segment %q not found", seg)
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, parseErrorf(ReferenceResolutionError, pointer, "dangling reference: bad index %q", seg)
			}
			cur = c[idx]
		default:
			return nil, parseErrorf(ReferenceResolutionError, pointer, "dangling reference: segment %q has no children", seg)
		}
	}
	return cur, nil
}

// derefMap follows $ref chains on non-schema objects (parameters, request
// bodies, responses, path items) until a concrete mapping appears.
func (r *resolver) derefMap(m map[string]any, ptr string) (map[string]any, error) {
	seen := make(map[string]bool)
	for {
		rv, ok := m["$ref"]
		if !ok {
			return m, nil
		}
		rs, ok := rv.(string)
		if !ok {
			return nil, parseErrorf(ReferenceResolutionError, ptr, "$ref must be a string, got %T", rv)
		}
		if seen[rs] {
			return nil, parseErrorf(ReferenceResolutionError, ptr, "circular reference chain through %q", rs)
		}
		seen[rs] = true
		target, err := r.lookup(rs)
		if err != nil {
			return nil, err
		}
		tm, ok := target.(map[string]any)
		if !ok {
			return nil, parseErrorf(ReferenceResolutionError, rs, "reference target is not a mapping")
		}
		m, ptr = tm, rs
	}
}

// resolveSchema converts one normalized schema value into a SchemaNode.
// ptr locates v for error reporting and doubles as the cycle key when v is
// a reference.
func (r *resolver) resolveSchema(v any, ptr string) (*SchemaNode, error) {
	m, ok := v.(map[string]any)
	if !ok {
		// Boolean schemas and null placeholders carry no constraints.
		return &SchemaNode{Kind: KindUnknown}, nil
	}
	rv, isRef := m["$ref"]
	if !isRef {
		return r.buildNode(m, ptr)
	}
	rs, ok := rv.(string)
	if !ok {
		return nil, parseErrorf(ReferenceResolutionError, ptr, "$ref must be a string, got %T", rv)
	}
	if r.visiting[rs] {
		// Already expanding this pointer higher up the path: emit a
		// back-edge marker so the result stays finite.
		return &SchemaNode{Kind: KindReference, Ref: rs}, nil
	}
	if cached, ok := r.cache[rs]; ok {
		return cached, nil
	}
	target, err := r.lookup(rs)
	if err != nil {
		return nil, err
	}
	r.visiting[rs] = true
	node, err := r.resolveSchema(target, rs)
	delete(r.visiting, rs)
	if err != nil {
		return nil, err
	}
	r.cache[rs] = node
	return node, nil
}

// schemaFieldKeys are the keywords buildNode lifts into typed fields;
// everything else passes through in Extra.
var schemaFieldKeys = map[string]bool{
	"type": true, "title": true, "description": true, "format": true,
	"enum": true, "default": true, "examples": true,
	"minimum": true, "maximum": true, "exclusiveMinimum": true, "exclusiveMaximum": true,
	"properties": true, "required": true, "items": true, "additionalProperties": true,
}

var compositeFieldKeys = map[string]bool{
	"oneOf": true, "anyOf": true, "allOf": true,
	"title": true, "description": true,
}

func (r *resolver) buildNode(m map[string]any, ptr string) (*SchemaNode, error) {
	if comb, list := combinatorOf(m); comb != "" {
		return r.buildComposite(m, comb, list, ptr)
	}

	types := typeSet(m["type"])
	node := &SchemaNode{
		Types:            types,
		Title:            asString(m["title"]),
		Description:      asString(m["description"]),
		Format:           asString(m["format"]),
		Minimum:          toFloatPtr(m["minimum"]),
		Maximum:          toFloatPtr(m["maximum"]),
		ExclusiveMinimum: toFloatPtr(m["exclusiveMinimum"]),
		ExclusiveMaximum: toFloatPtr(m["exclusiveMaximum"]),
		Extra:            extraFields(m, schemaFieldKeys),
	}
	if e, ok := m["enum"].([]any); ok && len(e) > 0 {
		node.Enum = append([]any(nil), e...)
	}
	if d, ok := m["default"]; ok && d != nil {
		node.Default = deepCopyValue(d)
	}
	if ex, ok := m["examples"].([]any); ok && len(ex) > 0 {
		node.Examples = append([]any(nil), ex...)
	}

	hasProps := false
	if props, ok := m["properties"].(map[string]any); ok {
		hasProps = true
		for _, name := range sortedKeys(props) {
			child, err := r.resolveSchema(props[name], ptr+"/properties/"+escapePointer(name))
			if err != nil {
				return nil, err
			}
			node.Properties = append(node.Properties, Property{Name: name, Schema: child})
		}
	}
	if req, ok := m["required"].([]any); ok {
		for _, e := range req {
			if s, ok := e.(string); ok && !containsString(node.Required, s) {
				node.Required = append(node.Required, s)
			}
		}
	}
	if ap, ok := m["additionalProperties"]; ok {
		switch t := ap.(type) {
		case bool:
			node.AdditionalProperties = t
		case map[string]any:
			an, err := r.resolveSchema(t, ptr+"/additionalProperties")
			if err != nil {
				return nil, err
			}
			node.AdditionalProperties = an
		}
	}

	hasItems := false
	if items, ok := m["items"]; ok {
		hasItems = true
		switch t := items.(type) {
		case map[string]any:
			in, err := r.resolveSchema(t, ptr+"/items")
			if err != nil {
				return nil, err
			}
			node.Items = in
		case []any:
			// Tuple-form items: keep the first member as the representative
			// element schema.
			if len(t) > 0 {
				in, err := r.resolveSchema(t[0], ptr+"/items/0")
				if err != nil {
					return nil, err
				}
				node.Items = in
			}
		default:
			node.Items = &SchemaNode{Kind: KindUnknown}
		}
	}

	node.Kind = classifyKind(types, hasProps, hasItems)
	return node, nil
}

func (r *resolver) buildComposite(m map[string]any, comb string, list []any, ptr string) (*SchemaNode, error) {
	node := &SchemaNode{
		Kind:        KindComposite,
		Combinator:  comb,
		Title:       asString(m["title"]),
		Description: asString(m["description"]),
	}
	consumed := compositeFieldKeys
	if inline := inlineShape(m); inline != nil {
		// Keywords declared beside the combinator form an implicit leading
		// member, which keeps allOf base objects in play.
		consumed = make(map[string]bool, len(compositeFieldKeys)+len(inline))
		for k := range compositeFieldKeys {
			consumed[k] = true
		}
		for k := range inline {
			consumed[k] = true
		}
		member, err := r.buildNode(inline, ptr)
		if err != nil {
			return nil, err
		}
		node.Members = append(node.Members, member)
	}
	for i, child := range list {
		cn, err := r.resolveSchema(child, fmt.Sprintf("%s/%s/%d", ptr, comb, i))
		if err != nil {
			return nil, err
		}
		node.Members = append(node.Members, cn)
	}
	node.Extra = extraFields(m, consumed)
	return node, nil
}

// combinatorOf returns the first non-empty combinator list, checking oneOf,
// anyOf, then allOf.
func combinatorOf(m map[string]any) (string, []any) {
	for _, comb := range []string{CombineOneOf, CombineAnyOf, CombineAllOf} {
		if list, ok := m[comb].([]any); ok && len(list) > 0 {
			return comb, list
		}
	}
	return "", nil
}

// inlineShape extracts object/array keywords declared beside a combinator,
// or nil when none are present.
func inlineShape(m map[string]any) map[string]any {
	hasShape := false
	for _, k := range []string{"type", "properties", "items"} {
		if _, ok := m[k]; ok {
			hasShape = true
			break
		}
	}
	if !hasShape {
		return nil
	}
	out := make(map[string]any, 5)
	for _, k := range []string{"type", "properties", "required", "items", "additionalProperties"} {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}

func classifyKind(types []string, hasProps, hasItems bool) Kind {
	primary := ""
	for _, t := range types {
		if t != "null" {
			primary = t
			break
		}
	}
	if primary == "" && len(types) > 0 {
		primary = types[0]
	}
	switch primary {
	case "object":
		return KindObject
	case "array":
		return KindArray
	case "string":
		return KindString
	case "number":
		return KindNumber
	case "integer":
		return KindInteger
	case "boolean":
		return KindBoolean
	case "null":
		return KindNull
	case "":
		if hasProps {
			return KindObject
		}
		if hasItems {
			return KindArray
		}
		return KindUnknown
	}
	return KindUnknown
}

// extraFields copies keys not consumed by the node's typed fields.
func extraFields(m map[string]any, consumed map[string]bool) map[string]any {
	var out map[string]any
	for k, v := range m {
		if consumed[k] {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = deepCopyValue(v)
	}
	return out
}
