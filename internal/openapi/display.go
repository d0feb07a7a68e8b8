package openapi

// displayStripKeys are bookkeeping keywords that never belong in
// human-facing output.
var displayStripKeys = map[string]bool{
	"$schema":     true,
	"$id":         true,
	"$anchor":     true,
	"$comment":    true,
	"$defs":       true,
	"definitions": true,
}

// CleanSchemaForDisplay projects a resolved schema for human- or LLM-facing
// output: titles, dialect bookkeeping, and unresolved-reference markers are
// dropped; type, properties, items, enum, description, required, format,
// default and the remaining constraints survive. Nil in, nil out — this is
// a total function with no failure path.
func CleanSchemaForDisplay(s *SchemaNode) *SchemaNode {
	return cleanSchema(s, make(map[*SchemaNode]bool))
}

func cleanSchema(s *SchemaNode, visited map[*SchemaNode]bool) *SchemaNode {
	if s == nil {
		return nil
	}
	if s.Kind == KindReference || visited[s] {
		// Back-edge markers collapse to an empty node in display output.
		return &SchemaNode{Kind: KindUnknown}
	}
	visited[s] = true
	defer delete(visited, s)

	out := &SchemaNode{
		Kind:             s.Kind,
		Types:            append([]string(nil), s.Types...),
		Required:         append([]string(nil), s.Required...),
		Combinator:       s.Combinator,
		Description:      s.Description,
		Format:           s.Format,
		Enum:             append([]any(nil), s.Enum...),
		Default:          s.Default,
		Examples:         append([]any(nil), s.Examples...),
		Minimum:          s.Minimum,
		Maximum:          s.Maximum,
		ExclusiveMinimum: s.ExclusiveMinimum,
		ExclusiveMaximum: s.ExclusiveMaximum,
	}
	for _, p := range s.Properties {
		out.Properties = append(out.Properties, Property{Name: p.Name, Schema: cleanSchema(p.Schema, visited)})
	}
	out.Items = cleanSchema(s.Items, visited)
	for _, m := range s.Members {
		out.Members = append(out.Members, cleanSchema(m, visited))
	}
	switch ap := s.AdditionalProperties.(type) {
	case bool:
		out.AdditionalProperties = ap
	case *SchemaNode:
		out.AdditionalProperties = cleanSchema(ap, visited)
	}
	for k, v := range s.Extra {
		if displayStripKeys[k] {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]any)
		}
		out.Extra[k] = v
	}
	return out
}

// isEmptySchema reports whether a node carries nothing worth rendering.
func isEmptySchema(s *SchemaNode) bool {
	if s == nil {
		return true
	}
	return len(s.Types) == 0 && len(s.Properties) == 0 && s.Items == nil &&
		len(s.Members) == 0 && len(s.Enum) == 0 && s.Ref == "" &&
		s.Description == "" && s.Format == "" && len(s.Extra) == 0
}
