// Package toolgen turns parsed HTTP routes into MCP tool definitions.
package toolgen

import (
	"go.uber.org/zap"

	"github.com/rajephon/fastmcp/internal/openapi"
)

// Tool is one callable tool derived from an HTTP route. InputSchema is a
// JSON-schema object whose properties are the route's parameters plus any
// flattened request-body fields; Mappings records how each argument maps
// back onto the HTTP request.
type Tool struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Method      openapi.HttpMethod  `json:"method"`
	Path        string              `json:"path"`
	BaseURL     string              `json:"baseUrl,omitempty"`
	InputSchema *openapi.SchemaNode `json:"inputSchema"`
	Mappings    []ParamMapping      `json:"mappings,omitempty"`
}

// ParamMapping links a tool argument to its place in the HTTP request.
// Location is one of path, query, header, cookie, or body. An empty
// OpenAPIName with Location "body" means the argument carries the whole
// request body.
type ParamMapping struct {
	ArgName     string `json:"argName"`
	OpenAPIName string `json:"openapiName,omitempty"`
	Location    string `json:"location"`
	IsSuffixed  bool   `json:"isSuffixed,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Options controls tool generation.
type Options struct {
	// NamePrefix is prepended to every tool name, joined with "_".
	NamePrefix string
	// BaseURL is stamped on every generated tool for the executor.
	BaseURL string
	// IncludeTags keeps only routes carrying at least one listed tag.
	IncludeTags []string
	// ExcludeTags drops routes carrying any listed tag.
	ExcludeTags []string
}

// Generator builds tool definitions from routes.
type Generator struct {
	opts   Options
	logger *zap.Logger
}

// NewGenerator returns a Generator. A nil logger falls back to zap.NewNop.
func NewGenerator(opts Options, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		opts:   opts,
		logger: logger.With(zap.String("component", "toolgen")),
	}
}

// Generate produces one tool per route, in route order. Tool names are
// unique: duplicates after sanitization get a numeric suffix.
func (g *Generator) Generate(routes []openapi.HTTPRoute) []Tool {
	tools := make([]Tool, 0, len(routes))
	seen := make(map[string]bool, len(routes))
	for _, route := range routes {
		if !allowByTags(route.Tags, g.opts.IncludeTags, g.opts.ExcludeTags) {
			continue
		}
		name := uniqueName(toolName(route, g.opts.NamePrefix), seen)
		seen[name] = true

		schema, mappings := buildInputSchema(route)
		base := route.Description
		if base == "" {
			base = route.Summary
		}
		tools = append(tools, Tool{
			Name:        name,
			Description: openapi.FormatDescriptionWithResponses(base, route.Responses, route.Parameters, route.RequestBody),
			Method:      route.Method,
			Path:        route.Path,
			BaseURL:     g.opts.BaseURL,
			InputSchema: schema,
			Mappings:    mappings,
		})
		g.logger.Debug("generated tool",
			zap.String("tool", name),
			zap.String("route", route.ID()),
			zap.Int("args", len(mappings)))
	}
	return tools
}

func allowByTags(tags, include, exclude []string) bool {
	if len(include) > 0 {
		ok := false
		for _, t := range tags {
			if containsString(include, t) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, t := range tags {
		if containsString(exclude, t) {
			return false
		}
	}
	return true
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
