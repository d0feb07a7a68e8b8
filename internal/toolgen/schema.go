package toolgen

import (
	"sort"

	"github.com/rajephon/fastmcp/internal/openapi"
)

// jsonMime is the preferred request body media type; other types are used
// in sorted order when it is absent.
const jsonMime = "application/json"

// buildInputSchema assembles the tool's argument schema: one property per
// route parameter, then the request body — flattened into its top-level
// properties when it is an object, or a single "body" argument otherwise.
// A body property whose name collides with a parameter gets a "__body"
// suffix; a parameter colliding with an earlier one gets "__<location>".
func buildInputSchema(route openapi.HTTPRoute) (*openapi.SchemaNode, []ParamMapping) {
	schema := &openapi.SchemaNode{
		Kind:  openapi.KindObject,
		Types: []string{"object"},
	}
	var mappings []ParamMapping
	used := make(map[string]bool)

	addProperty := func(arg string, prop *openapi.SchemaNode, required bool, m ParamMapping) {
		schema.Properties = append(schema.Properties, openapi.Property{Name: arg, Schema: prop})
		if required {
			schema.Required = append(schema.Required, arg)
		}
		used[arg] = true
		m.ArgName = arg
		m.Required = required
		mappings = append(mappings, m)
	}

	for _, p := range route.Parameters {
		arg := p.Name
		suffixed := false
		if used[arg] {
			arg = p.Name + "__" + p.In
			suffixed = true
		}
		addProperty(arg, displayProp(p.Schema, p.Description), p.Required, ParamMapping{
			OpenAPIName: p.Name,
			Location:    p.In,
			IsSuffixed:  suffixed,
		})
	}

	if rb := route.RequestBody; rb != nil {
		body := bodySchema(rb)
		switch {
		case body == nil:
			// No usable media type; the route takes no body arguments.
		case body.Kind == openapi.KindObject && len(body.Properties) > 0:
			for _, prop := range body.Properties {
				arg := prop.Name
				suffixed := false
				if used[arg] {
					arg = prop.Name + "__body"
					suffixed = true
				}
				required := rb.Required && body.IsRequired(prop.Name)
				addProperty(arg, displayProp(prop.Schema, ""), required, ParamMapping{
					OpenAPIName: prop.Name,
					Location:    "body",
					IsSuffixed:  suffixed,
				})
			}
		default:
			arg := "body"
			suffixed := false
			if used[arg] {
				arg = "body__body"
				suffixed = true
			}
			addProperty(arg, displayProp(body, rb.Description), rb.Required, ParamMapping{
				Location:   "body",
				IsSuffixed: suffixed,
			})
		}
	}

	return schema, mappings
}

// bodySchema picks the request body media type to expose: JSON when
// present, else the first media type in sorted order.
func bodySchema(rb *openapi.RequestBodyInfo) *openapi.SchemaNode {
	if s, ok := rb.Content[jsonMime]; ok {
		return s
	}
	mimes := make([]string, 0, len(rb.Content))
	for m := range rb.Content {
		mimes = append(mimes, m)
	}
	sort.Strings(mimes)
	for _, m := range mimes {
		if s := rb.Content[m]; s != nil {
			return s
		}
	}
	return nil
}

// displayProp cleans a schema for client consumption, carrying over the
// parameter description when the schema has none.
func displayProp(s *openapi.SchemaNode, description string) *openapi.SchemaNode {
	cleaned := openapi.CleanSchemaForDisplay(s)
	if cleaned == nil {
		cleaned = &openapi.SchemaNode{Kind: openapi.KindUnknown}
	}
	if cleaned.Description == "" && description != "" {
		cleaned.Description = description
	}
	return cleaned
}
