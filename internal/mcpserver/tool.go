package mcpserver

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rajephon/fastmcp/internal/openapi"
	"github.com/rajephon/fastmcp/internal/toolgen"
)

// makeMCPTool translates a generated tool definition into the mcp-go tool
// shape, one typed property option per input schema property.
func makeMCPTool(t toolgen.Tool) mcp.Tool {
	opts := []mcp.ToolOption{}
	if t.Description != "" {
		opts = append(opts, mcp.WithDescription(t.Description))
	}
	if t.InputSchema != nil {
		for _, p := range t.InputSchema.Properties {
			opts = append(opts, propertyOption(p.Name, p.Schema, t.InputSchema.IsRequired(p.Name)))
		}
	}
	return mcp.NewTool(t.Name, opts...)
}

func propertyOption(name string, s *openapi.SchemaNode, required bool) mcp.ToolOption {
	propOpts := []mcp.PropertyOption{}
	if s != nil && s.Description != "" {
		propOpts = append(propOpts, mcp.Description(s.Description))
	}
	if required {
		propOpts = append(propOpts, mcp.Required())
	}
	if s == nil {
		return mcp.WithString(name, propOpts...)
	}

	switch s.Kind {
	case openapi.KindInteger, openapi.KindNumber:
		return mcp.WithNumber(name, propOpts...)
	case openapi.KindBoolean:
		return mcp.WithBoolean(name, propOpts...)
	case openapi.KindObject:
		if len(s.Properties) > 0 {
			props := make(map[string]any, len(s.Properties))
			for _, p := range s.Properties {
				props[p.Name] = schemaValueMap(p.Schema)
			}
			propOpts = append(propOpts, mcp.Properties(props))
		}
		return mcp.WithObject(name, propOpts...)
	case openapi.KindArray:
		if s.Items != nil {
			propOpts = append(propOpts, mcp.Items(schemaValueMap(s.Items)))
		}
		return mcp.WithArray(name, propOpts...)
	case openapi.KindString:
		if len(s.Enum) > 0 {
			values := make([]string, 0, len(s.Enum))
			for _, v := range s.Enum {
				values = append(values, fmt.Sprintf("%v", v))
			}
			propOpts = append(propOpts, mcp.Enum(values...))
		}
		if len(s.Examples) > 0 {
			propOpts = append(propOpts, mcp.DefaultString(fmt.Sprintf("%v", s.Examples[0])))
		}
		return mcp.WithString(name, propOpts...)
	default:
		// Composite, null, and unknown shapes degrade to a string argument.
		return mcp.WithString(name, propOpts...)
	}
}

// schemaValueMap renders a schema node as the generic mapping mcp-go expects
// for nested properties and array items.
func schemaValueMap(s *openapi.SchemaNode) map[string]any {
	if s == nil {
		return map[string]any{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]any{}
	}
	return out
}
