package openapi

// Normalized, resolved representation of an OpenAPI document: the route list
// and the schema nodes hanging off it. Everything here is produced by Parse
// and immutable afterwards.

import (
	"bytes"
	"sort"

	"github.com/goccy/go-json"
)

type HttpMethod string

const (
	GET     HttpMethod = "get"
	POST    HttpMethod = "post"
	PUT     HttpMethod = "put"
	DELETE  HttpMethod = "delete"
	PATCH   HttpMethod = "patch"
	HEAD    HttpMethod = "head"
	OPTIONS HttpMethod = "options"
	TRACE   HttpMethod = "trace"
)

// methodOrder is the stable iteration order for operations within a path item.
var methodOrder = []HttpMethod{GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS, TRACE}

// Kind discriminates SchemaNode variants.
type Kind string

const (
	KindObject    Kind = "object"
	KindArray     Kind = "array"
	KindString    Kind = "string"
	KindNumber    Kind = "number"
	KindInteger   Kind = "integer"
	KindBoolean   Kind = "boolean"
	KindNull      Kind = "null"
	KindComposite Kind = "composite"
	KindReference Kind = "reference"
	KindUnknown   Kind = "unknown"
)

// Combinator labels for composite nodes.
const (
	CombineOneOf = "oneOf"
	CombineAnyOf = "anyOf"
	CombineAllOf = "allOf"
)

// SchemaNode is the normalized form of one schema construct. After resolution
// the only reference-kind nodes left are cycle back-edges: a node whose Ref
// names a pointer that is currently being expanded higher up the same path.
type SchemaNode struct {
	Kind  Kind
	Types []string // normalized type set; may include "null"

	// Object shape. Properties preserves a stable order; Required lists
	// property names declared mandatory.
	Properties           []Property
	Required             []string
	AdditionalProperties any // bool, *SchemaNode, or nil when absent

	// Array shape.
	Items *SchemaNode

	// Composite shape.
	Combinator string
	Members    []*SchemaNode

	// Reference back-edge target, e.g. "#/components/schemas/Node".
	Ref string

	Title            string
	Description      string
	Format           string
	Enum             []any
	Default          any
	Examples         []any
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *float64
	ExclusiveMaximum *float64

	// Extra carries recognized-but-unmodeled keywords (pattern, minLength,
	// vendor x- extensions, ...) through to display untouched.
	Extra map[string]any
}

// Property is one named member of an object schema.
type Property struct {
	Name   string
	Schema *SchemaNode
}

// Property returns the schema for the named property, or nil.
func (s *SchemaNode) Property(name string) *SchemaNode {
	if s == nil {
		return nil
	}
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Schema
		}
	}
	return nil
}

// IsRequired reports whether name appears in the node's required set.
func (s *SchemaNode) IsRequired(name string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// HasType reports whether the normalized type set contains t.
func (s *SchemaNode) HasType(t string) bool {
	if s == nil {
		return false
	}
	for _, st := range s.Types {
		if st == t {
			return true
		}
	}
	return false
}

// Nullable reports whether the type set admits null.
func (s *SchemaNode) Nullable() bool { return s.HasType("null") }

// MarshalJSON renders the node as a JSON-Schema-shaped object with a fixed
// key order, so repeated renderings of the same node are byte-identical.
func (s *SchemaNode) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	field := func(key string, v any) error {
		vb, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, _ := json.Marshal(key)
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return nil
	}

	if s.Ref != "" {
		if err := field("$ref", s.Ref); err != nil {
			return nil, err
		}
	}
	switch len(s.Types) {
	case 0:
	case 1:
		if err := field("type", s.Types[0]); err != nil {
			return nil, err
		}
	default:
		if err := field("type", s.Types); err != nil {
			return nil, err
		}
	}
	if s.Format != "" {
		if err := field("format", s.Format); err != nil {
			return nil, err
		}
	}
	if s.Title != "" {
		if err := field("title", s.Title); err != nil {
			return nil, err
		}
	}
	if s.Description != "" {
		if err := field("description", s.Description); err != nil {
			return nil, err
		}
	}
	if len(s.Properties) > 0 {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.WriteString(`"properties":{`)
		for i, p := range s.Properties {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(p.Name)
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := json.Marshal(p.Schema)
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
	}
	if len(s.Required) > 0 {
		if err := field("required", s.Required); err != nil {
			return nil, err
		}
	}
	if s.Items != nil {
		if err := field("items", s.Items); err != nil {
			return nil, err
		}
	}
	if s.AdditionalProperties != nil {
		if err := field("additionalProperties", s.AdditionalProperties); err != nil {
			return nil, err
		}
	}
	if s.Combinator != "" && len(s.Members) > 0 {
		if err := field(s.Combinator, s.Members); err != nil {
			return nil, err
		}
	}
	if len(s.Enum) > 0 {
		if err := field("enum", s.Enum); err != nil {
			return nil, err
		}
	}
	if s.Default != nil {
		if err := field("default", s.Default); err != nil {
			return nil, err
		}
	}
	if len(s.Examples) > 0 {
		if err := field("examples", s.Examples); err != nil {
			return nil, err
		}
	}
	if s.Minimum != nil {
		if err := field("minimum", *s.Minimum); err != nil {
			return nil, err
		}
	}
	if s.Maximum != nil {
		if err := field("maximum", *s.Maximum); err != nil {
			return nil, err
		}
	}
	if s.ExclusiveMinimum != nil {
		if err := field("exclusiveMinimum", *s.ExclusiveMinimum); err != nil {
			return nil, err
		}
	}
	if s.ExclusiveMaximum != nil {
		if err := field("exclusiveMaximum", *s.ExclusiveMaximum); err != nil {
			return nil, err
		}
	}
	if len(s.Extra) > 0 {
		keys := make([]string, 0, len(s.Extra))
		for k := range s.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := field(k, s.Extra[k]); err != nil {
				return nil, err
			}
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParameterInfo is one resolved operation parameter. (Name, In) pairs are
// unique within a route's parameter list.
type ParameterInfo struct {
	Name        string
	In          string // path|query|header|cookie
	Required    bool
	Description string
	Schema      *SchemaNode
}

// RequestBodyInfo is a resolved request body keyed by media type.
type RequestBodyInfo struct {
	Required    bool
	Description string
	Content     map[string]*SchemaNode
}

// ResponseInfo is a resolved response; Content is empty, never nil, for
// content-less responses.
type ResponseInfo struct {
	Description string
	Content     map[string]*SchemaNode
}

// HTTPRoute is one callable operation extracted from the document.
type HTTPRoute struct {
	Method      HttpMethod
	Path        string
	OperationID string
	Summary     string
	Description string
	Tags        []string
	Parameters  []ParameterInfo
	RequestBody *RequestBodyInfo
	Responses   map[string]ResponseInfo
}

// ID returns the stable "method path" identity used for uniqueness checks
// and logging.
func (r HTTPRoute) ID() string { return string(r.Method) + " " + r.Path }

// Info carries document-level metadata alongside the route list.
type Info struct {
	Title       string
	Version     string
	Description string
}
