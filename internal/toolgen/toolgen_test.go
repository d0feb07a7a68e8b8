package toolgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rajephon/fastmcp/internal/openapi"
)

const petstoreDoc = `openapi: 3.0.3
info:
  title: Petstore
  version: "1.0.0"
paths:
  /pets:
    get:
      operationId: listPets
      summary: List pets
      tags: [read]
      parameters:
        - name: limit
          in: query
          description: Max items
          schema: {type: integer}
      responses:
        "200": {description: ok}
    post:
      tags: [write]
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              properties:
                name: {type: string}
                age: {type: integer}
              required: [name]
      responses:
        "201": {description: created}
  /pets/{petId}:
    get:
      tags: [read]
      parameters:
        - name: petId
          in: path
          schema: {type: string}
      responses:
        "200": {description: ok}
`

func parseRoutes(t *testing.T) []openapi.HTTPRoute {
	t.Helper()
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(petstoreDoc), &doc))
	routes, err := openapi.Parse(doc)
	require.NoError(t, err)
	return routes
}

func TestGenerate_FromParsedRoutes(t *testing.T) {
	t.Parallel()
	g := NewGenerator(Options{}, nil)
	tools := g.Generate(parseRoutes(t))
	require.Len(t, tools, 3)

	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	// Route order is deterministic, so tool order is too.
	assert.Equal(t, []string{"listpets", "post_pets", "get_pets_by_petid"}, names)

	list := tools[0]
	assert.Equal(t, openapi.GET, list.Method)
	assert.Equal(t, "/pets", list.Path)
	require.NotNil(t, list.InputSchema)
	require.NotNil(t, list.InputSchema.Property("limit"))
	assert.Equal(t, "Max items", list.InputSchema.Property("limit").Description)
	assert.Contains(t, list.Description, "List pets")
	assert.Contains(t, list.Description, "**Responses:**")
}

func TestGenerate_PathParamsRequired(t *testing.T) {
	t.Parallel()
	tools := NewGenerator(Options{}, nil).Generate(parseRoutes(t))
	byID := tools[2]
	require.Equal(t, "get_pets_by_petid", byID.Name)
	assert.True(t, byID.InputSchema.IsRequired("petId"))
	require.Len(t, byID.Mappings, 1)
	assert.Equal(t, ParamMapping{ArgName: "petId", OpenAPIName: "petId", Location: "path", Required: true}, byID.Mappings[0])
}

func TestGenerate_BodyFlattening(t *testing.T) {
	t.Parallel()
	tools := NewGenerator(Options{}, nil).Generate(parseRoutes(t))
	create := tools[1]
	require.Equal(t, "post_pets", create.Name)

	require.NotNil(t, create.InputSchema.Property("name"))
	require.NotNil(t, create.InputSchema.Property("age"))
	assert.True(t, create.InputSchema.IsRequired("name"))
	assert.False(t, create.InputSchema.IsRequired("age"))

	require.Len(t, create.Mappings, 2)
	for _, m := range create.Mappings {
		assert.Equal(t, "body", m.Location)
		assert.False(t, m.IsSuffixed)
	}
}

func TestGenerate_BodyCollisionSuffix(t *testing.T) {
	t.Parallel()
	route := openapi.HTTPRoute{
		Method: openapi.POST,
		Path:   "/things",
		Parameters: []openapi.ParameterInfo{
			{Name: "name", In: "query", Schema: &openapi.SchemaNode{Kind: openapi.KindString}},
		},
		RequestBody: &openapi.RequestBodyInfo{
			Required: true,
			Content: map[string]*openapi.SchemaNode{
				"application/json": {
					Kind: openapi.KindObject,
					Properties: []openapi.Property{
						{Name: "name", Schema: &openapi.SchemaNode{Kind: openapi.KindString}},
					},
					Required: []string{"name"},
				},
			},
		},
	}
	tools := NewGenerator(Options{}, nil).Generate([]openapi.HTTPRoute{route})
	require.Len(t, tools, 1)

	schema := tools[0].InputSchema
	require.NotNil(t, schema.Property("name"))
	require.NotNil(t, schema.Property("name__body"))

	require.Len(t, tools[0].Mappings, 2)
	body := tools[0].Mappings[1]
	assert.Equal(t, "name__body", body.ArgName)
	assert.Equal(t, "name", body.OpenAPIName)
	assert.Equal(t, "body", body.Location)
	assert.True(t, body.IsSuffixed)
	assert.True(t, body.Required)
}

func TestGenerate_NonObjectBody(t *testing.T) {
	t.Parallel()
	route := openapi.HTTPRoute{
		Method: openapi.PUT,
		Path:   "/raw",
		RequestBody: &openapi.RequestBodyInfo{
			Required: true,
			Content: map[string]*openapi.SchemaNode{
				"text/plain": {Kind: openapi.KindString, Types: []string{"string"}},
			},
		},
	}
	tools := NewGenerator(Options{}, nil).Generate([]openapi.HTTPRoute{route})
	require.Len(t, tools, 1)

	require.NotNil(t, tools[0].InputSchema.Property("body"))
	require.Len(t, tools[0].Mappings, 1)
	m := tools[0].Mappings[0]
	assert.Equal(t, "body", m.ArgName)
	assert.Empty(t, m.OpenAPIName)
	assert.Equal(t, "body", m.Location)
	assert.True(t, m.Required)
}

func TestGenerate_NameCollisionsGetSuffix(t *testing.T) {
	t.Parallel()
	routes := []openapi.HTTPRoute{
		{Method: openapi.GET, Path: "/a", OperationID: "doIt"},
		{Method: openapi.GET, Path: "/b", OperationID: "doIt"},
		{Method: openapi.GET, Path: "/c", OperationID: "do-it!"},
	}
	tools := NewGenerator(Options{}, nil).Generate(routes)
	require.Len(t, tools, 3)
	assert.Equal(t, "doit", tools[0].Name)
	assert.Equal(t, "doit_2", tools[1].Name)
	assert.Equal(t, "do-it", tools[2].Name)
}

func TestGenerate_PrefixAndLengthCap(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("x", 80)
	routes := []openapi.HTTPRoute{
		{Method: openapi.GET, Path: "/a", OperationID: long},
		{Method: openapi.GET, Path: "/b", OperationID: "short"},
	}
	tools := NewGenerator(Options{NamePrefix: "My API"}, nil).Generate(routes)
	require.Len(t, tools, 2)
	assert.LessOrEqual(t, len(tools[0].Name), maxToolNameLen)
	assert.True(t, strings.HasPrefix(tools[0].Name, "my_api_"))
	assert.Equal(t, "my_api_short", tools[1].Name)
}

func TestGenerate_TagFiltering(t *testing.T) {
	t.Parallel()
	routes := parseRoutes(t)

	readOnly := NewGenerator(Options{IncludeTags: []string{"read"}}, nil).Generate(routes)
	require.Len(t, readOnly, 2)
	for _, tool := range readOnly {
		assert.Equal(t, openapi.GET, tool.Method)
	}

	noWrite := NewGenerator(Options{ExcludeTags: []string{"write"}}, nil).Generate(routes)
	require.Len(t, noWrite, 2)
}

func TestGenerate_BaseURLStamped(t *testing.T) {
	t.Parallel()
	tools := NewGenerator(Options{BaseURL: "https://api.example.com"}, nil).Generate(parseRoutes(t))
	for _, tool := range tools {
		assert.Equal(t, "https://api.example.com", tool.BaseURL)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()
	routes := parseRoutes(t)
	g := NewGenerator(Options{}, nil)
	assert.Equal(t, g.Generate(routes), g.Generate(routes))
}
