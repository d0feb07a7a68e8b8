package openapi

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var propScalarTypes = []string{"string", "integer", "number", "boolean"}

func propSchema(rt *rapid.T, label string) map[string]any {
	switch rapid.IntRange(0, 2).Draw(rt, label+"-shape") {
	case 0:
		return map[string]any{"type": rapid.SampledFrom(propScalarTypes).Draw(rt, label+"-type")}
	case 1:
		props := map[string]any{}
		n := rapid.IntRange(1, 3).Draw(rt, label+"-props")
		for i := 0; i < n; i++ {
			props[fmt.Sprintf("f%d", i)] = map[string]any{
				"type": rapid.SampledFrom(propScalarTypes).Draw(rt, fmt.Sprintf("%s-prop%d", label, i)),
			}
		}
		return map[string]any{"type": "object", "properties": props}
	default:
		return map[string]any{
			"type":  "array",
			"items": map[string]any{"type": rapid.SampledFrom(propScalarTypes).Draw(rt, label+"-item")},
		}
	}
}

func propDocument(rt *rapid.T) map[string]any {
	paths := map[string]any{}
	pathCount := rapid.IntRange(1, 3).Draw(rt, "path-count")
	for i := 0; i < pathCount; i++ {
		item := map[string]any{}
		for _, method := range []string{"get", "post", "delete"} {
			if !rapid.Bool().Draw(rt, fmt.Sprintf("has-%s-%d", method, i)) {
				continue
			}
			op := map[string]any{
				"responses": map[string]any{
					"200": map[string]any{
						"description": "ok",
						"content": map[string]any{
							"application/json": map[string]any{
								"schema": propSchema(rt, fmt.Sprintf("resp-%s-%d", method, i)),
							},
						},
					},
				},
			}
			if rapid.Bool().Draw(rt, fmt.Sprintf("has-param-%s-%d", method, i)) {
				op["parameters"] = []any{
					map[string]any{
						"name":   rapid.StringMatching(`[a-z]{1,6}`).Draw(rt, fmt.Sprintf("param-%s-%d", method, i)),
						"in":     rapid.SampledFrom([]string{"query", "header"}).Draw(rt, fmt.Sprintf("loc-%s-%d", method, i)),
						"schema": map[string]any{"type": "string"},
					},
				}
			}
			item[method] = op
		}
		if len(item) == 0 {
			item["get"] = map[string]any{
				"responses": map[string]any{"200": map[string]any{"description": "ok"}},
			}
		}
		paths[fmt.Sprintf("/r%d", i)] = item
	}
	return map[string]any{
		"openapi": "3.0.3",
		"info":    map[string]any{"title": "prop", "version": "1"},
		"paths":   paths,
	}
}

func TestProperty_Parse_Deterministic(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(rt *rapid.T) {
		doc := propDocument(rt)
		first, err1 := Parse(doc)
		second, err2 := Parse(doc)
		if err1 != nil {
			require.Error(rt, err2)
			require.EqualError(rt, err2, err1.Error())
			return
		}
		require.NoError(rt, err2)
		require.Equal(rt, first, second)
	})
}

func TestProperty_Parse_DialectNullableEquivalence(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(rt *rapid.T) {
		typ := rapid.SampledFrom(propScalarTypes).Draw(rt, "type")

		doc := func(version string, schema map[string]any) map[string]any {
			return map[string]any{
				"openapi": version,
				"info":    map[string]any{"title": "prop", "version": "1"},
				"paths": map[string]any{
					"/v": map[string]any{
						"get": map[string]any{
							"parameters": []any{
								map[string]any{"name": "x", "in": "query", "schema": schema},
							},
							"responses": map[string]any{"200": map[string]any{"description": "ok"}},
						},
					},
				},
			}
		}

		r30, err := Parse(doc("3.0.3", map[string]any{"type": typ, "nullable": true}))
		require.NoError(rt, err)
		r31, err := Parse(doc("3.1.0", map[string]any{"type": []any{typ, "null"}}))
		require.NoError(rt, err)
		require.Equal(rt, r30, r31)

		schema := r30[0].Parameters[0].Schema
		require.True(rt, schema.Nullable())
		require.True(rt, schema.HasType(typ))
	})
}

func TestProperty_Parse_OverrideKeepsBaseOrder(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(rt, "param-count")
		base := make([]any, n)
		overridden := make([]bool, n)
		var opParams []any
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("p%d", i)
			base[i] = map[string]any{
				"name": name, "in": "query",
				"description": "base",
				"schema":      map[string]any{"type": "string"},
			}
			if rapid.Bool().Draw(rt, fmt.Sprintf("override-%d", i)) {
				overridden[i] = true
				opParams = append(opParams, map[string]any{
					"name": name, "in": "query",
					"description": "op",
					"schema":      map[string]any{"type": "string"},
				})
			}
		}
		op := map[string]any{
			"responses": map[string]any{"200": map[string]any{"description": "ok"}},
		}
		if len(opParams) > 0 {
			op["parameters"] = opParams
		}
		doc := map[string]any{
			"openapi": "3.0.3",
			"info":    map[string]any{"title": "prop", "version": "1"},
			"paths": map[string]any{
				"/x": map[string]any{"parameters": base, "get": op},
			},
		}

		routes, err := Parse(doc)
		require.NoError(rt, err)
		require.Len(rt, routes, 1)
		params := routes[0].Parameters
		require.Len(rt, params, n)
		for i, p := range params {
			require.Equal(rt, fmt.Sprintf("p%d", i), p.Name)
			want := "base"
			if overridden[i] {
				want = "op"
			}
			require.Equal(rt, want, p.Description)
		}
	})
}

func TestProperty_Resolve_Idempotent(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(rt *rapid.T) {
		schema := propSchema(rt, "component")
		if rapid.Bool().Draw(rt, "self-ref") {
			schema = map[string]any{
				"type": "object",
				"properties": map[string]any{
					"data": propSchema(rt, "inner"),
					"next": map[string]any{"$ref": "#/components/schemas/Thing"},
				},
			}
		}
		doc := map[string]any{
			"openapi": "3.1.0",
			"info":    map[string]any{"title": "prop", "version": "1"},
			"paths": map[string]any{
				"/t": map[string]any{
					"get": map[string]any{
						"responses": map[string]any{
							"200": map[string]any{
								"description": "ok",
								"content": map[string]any{
									"application/json": map[string]any{
										"schema": map[string]any{"$ref": "#/components/schemas/Thing"},
									},
								},
							},
						},
					},
				},
			},
			"components": map[string]any{
				"schemas": map[string]any{"Thing": schema},
			},
		}

		first, err := Parse(doc)
		require.NoError(rt, err)
		second, err := Parse(doc)
		require.NoError(rt, err)
		require.Equal(rt, first, second)
	})
}

func TestProperty_CleanAndExample_Total(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(rt *rapid.T) {
		node := propNode(rt, 0, "root")
		if rapid.Bool().Draw(rt, "cycle") && len(node.Properties) > 0 {
			node.Properties[0].Schema = node
		}
		cleaned := CleanSchemaForDisplay(node)
		require.NotNil(rt, cleaned)
		GenerateExampleFromSchema(node)
	})
}

func propNode(rt *rapid.T, depth int, label string) *SchemaNode {
	kinds := []Kind{KindString, KindInteger, KindNumber, KindBoolean, KindNull, KindUnknown, KindReference}
	if depth < 3 {
		kinds = append(kinds, KindObject, KindArray, KindComposite)
	}
	node := &SchemaNode{Kind: rapid.SampledFrom(kinds).Draw(rt, label+"-kind")}
	switch node.Kind {
	case KindObject:
		n := rapid.IntRange(0, 3).Draw(rt, label+"-props")
		for i := 0; i < n; i++ {
			name := fmt.Sprintf("f%d", i)
			node.Properties = append(node.Properties, Property{
				Name:   name,
				Schema: propNode(rt, depth+1, fmt.Sprintf("%s-%s", label, name)),
			})
			if rapid.Bool().Draw(rt, fmt.Sprintf("%s-req%d", label, i)) {
				node.Required = append(node.Required, name)
			}
		}
	case KindArray:
		node.Items = propNode(rt, depth+1, label+"-items")
	case KindComposite:
		node.Combinator = rapid.SampledFrom([]string{CombineOneOf, CombineAnyOf, CombineAllOf}).Draw(rt, label+"-comb")
		n := rapid.IntRange(1, 2).Draw(rt, label+"-members")
		for i := 0; i < n; i++ {
			node.Members = append(node.Members, propNode(rt, depth+1, fmt.Sprintf("%s-m%d", label, i)))
		}
	case KindReference:
		node.Ref = "#/components/schemas/X"
	case KindString:
		if rapid.Bool().Draw(rt, label+"-enum") {
			node.Enum = []any{"a", "b"}
		}
	}
	return node
}
