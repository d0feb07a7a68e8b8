package openapi

// Example synthesis limits.
const (
	maxExampleDepth      = 5
	maxExampleProperties = 10
)

// GenerateExampleFromSchema synthesizes a representative value for a
// resolved schema. Required object properties come first, arrays get a
// single element, strings prefer their first enum value, and composites use
// their first member (allOf merges every member's properties). Reference
// back-edges, unknown shapes, exhausted depth, and revisited nodes all
// yield nil — this is a total function with no failure path.
func GenerateExampleFromSchema(s *SchemaNode) any {
	return generateExample(s, 0, make(map[*SchemaNode]bool))
}

func generateExample(s *SchemaNode, depth int, visited map[*SchemaNode]bool) any {
	if s == nil || depth > maxExampleDepth || visited[s] {
		return nil
	}
	visited[s] = true
	defer delete(visited, s)

	switch s.Kind {
	case KindObject:
		return exampleObject(s, depth, visited)
	case KindArray:
		if s.Items == nil {
			return []any{}
		}
		return []any{generateExample(s.Items, depth+1, visited)}
	case KindString:
		if len(s.Enum) > 0 {
			return s.Enum[0]
		}
		return stringPlaceholder(s.Format)
	case KindInteger:
		if s.Minimum != nil {
			return int64(*s.Minimum)
		}
		return int64(0)
	case KindNumber:
		if s.Minimum != nil {
			return *s.Minimum
		}
		return 0.0
	case KindBoolean:
		return true
	case KindComposite:
		return exampleComposite(s, depth, visited)
	}
	// null, reference, unknown
	return nil
}

func exampleObject(s *SchemaNode, depth int, visited map[*SchemaNode]bool) map[string]any {
	out := make(map[string]any)
	for _, p := range s.Properties {
		if !s.IsRequired(p.Name) {
			continue
		}
		out[p.Name] = generateExample(p.Schema, depth+1, visited)
	}
	for _, p := range s.Properties {
		if len(out) >= maxExampleProperties {
			break
		}
		if _, done := out[p.Name]; done {
			continue
		}
		out[p.Name] = generateExample(p.Schema, depth+1, visited)
	}
	return out
}

func exampleComposite(s *SchemaNode, depth int, visited map[*SchemaNode]bool) any {
	if len(s.Members) == 0 {
		return nil
	}
	if s.Combinator != CombineAllOf {
		return generateExample(s.Members[0], depth+1, visited)
	}
	merged := make(map[string]any)
	produced := false
	for _, m := range s.Members {
		v := generateExample(m, depth+1, visited)
		if vm, ok := v.(map[string]any); ok {
			produced = true
			for k, e := range vm {
				merged[k] = e
			}
		}
	}
	if !produced {
		return nil
	}
	return merged
}

func stringPlaceholder(format string) string {
	switch format {
	case "date":
		return "2024-01-01"
	case "date-time":
		return "2024-01-01T00:00:00Z"
	case "email":
		return "user@example.com"
	case "uuid":
		return "00000000-0000-0000-0000-000000000000"
	case "uri", "url":
		return "https://example.com"
	}
	return "string"
}
