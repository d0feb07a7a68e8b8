package openapi

import (
	"errors"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

const sampleDoc = `openapi: 3.0.0
info:
  title: Sample API
  version: "1.0.0"
  description: Demo
servers:
  - url: https://api.example.com/v1
paths:
  /pets:
    parameters:
      - in: query
        name: limit
        required: false
        description: Max items
        schema:
          type: integer
    get:
      operationId: listPets
      summary: List pets
      description: Returns all pets
      tags: [read, animal]
      parameters:
        - in: query
          name: limit
          required: true
          schema:
            type: integer
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: array
                items:
                  $ref: '#/components/schemas/Pet'
    post:
      operationId: createPet
      summary: Create pet
      tags: [write, animal]
      requestBody:
        required: true
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/Pet'
      responses:
        "201":
          description: created
  /admin:
    get:
      summary: Admin only
      tags: [admin]
      responses:
        "200": { description: ok }
components:
  schemas:
    Pet:
      type: object
      required: [id, name]
      properties:
        id:
          type: integer
          format: int64
        name:
          type: string
`

func decodeDoc(t *testing.T, src string) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return doc
}

func TestParse_Basic(t *testing.T) {
	t.Parallel()
	doc := decodeDoc(t, sampleDoc)

	routes, err := Parse(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(routes) != 3 {
		t.Fatalf("routes: got %d", len(routes))
	}

	// Sorted paths, canonical method order within a path.
	wantOrder := []string{"get /admin", "get /pets", "post /pets"}
	for i, want := range wantOrder {
		if routes[i].ID() != want {
			t.Fatalf("order[%d]: got %q want %q", i, routes[i].ID(), want)
		}
	}

	get := routes[1]
	if get.OperationID != "listPets" || get.Summary != "List pets" {
		t.Errorf("get /pets: metadata %q %q", get.OperationID, get.Summary)
	}
	if len(get.Tags) != 2 || get.Tags[0] != "read" {
		t.Errorf("get /pets: tags %v", get.Tags)
	}
	resp, ok := get.Responses["200"]
	if !ok {
		t.Fatalf("get /pets: missing 200 response")
	}
	arr := resp.Content["application/json"]
	if arr == nil || arr.Kind != KindArray {
		t.Fatalf("200 schema: got %+v", arr)
	}
	pet := arr.Items
	if pet == nil || pet.Kind != KindObject {
		t.Fatalf("200 items: expected resolved object, got %+v", pet)
	}
	if pet.Property("id") == nil || pet.Property("name") == nil {
		t.Errorf("pet: missing properties, got %+v", pet.Properties)
	}
	if !pet.IsRequired("id") || !pet.IsRequired("name") {
		t.Errorf("pet: required %v", pet.Required)
	}

	post := routes[2]
	if post.RequestBody == nil || !post.RequestBody.Required {
		t.Fatalf("post /pets: expected required request body")
	}
	body := post.RequestBody.Content["application/json"]
	if body == nil || body.Kind != KindObject {
		t.Fatalf("post /pets: body schema %+v", body)
	}
	created, ok := post.Responses["201"]
	if !ok || created.Description != "created" {
		t.Fatalf("post /pets: 201 response %+v", created)
	}
	if created.Content == nil || len(created.Content) != 0 {
		t.Errorf("post /pets: content-less response should have empty content map, got %v", created.Content)
	}
}

func TestParse_ParameterOverride(t *testing.T) {
	t.Parallel()
	doc := decodeDoc(t, sampleDoc)

	routes, err := Parse(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	get := routes[1] // get /pets
	var limits []ParameterInfo
	for _, p := range get.Parameters {
		if p.In == "query" && p.Name == "limit" {
			limits = append(limits, p)
		}
	}
	if len(limits) != 1 {
		t.Fatalf("limit: expected exactly one entry, got %d", len(limits))
	}
	if !limits[0].Required {
		t.Errorf("limit: operation-level override lost")
	}
}

const overridePositionDoc = `openapi: 3.0.0
info: {title: T, version: "1"}
paths:
  /things/{id}:
    parameters:
      - name: id
        in: path
        required: true
        description: old
        schema: {type: string}
      - name: verbose
        in: query
        schema: {type: boolean}
    get:
      parameters:
        - name: id
          in: path
          required: true
          description: new
          schema: {type: string}
      responses:
        "200": {description: ok}
`

func TestParse_OverrideKeepsFirstSeenPosition(t *testing.T) {
	t.Parallel()
	routes, err := Parse(decodeDoc(t, overridePositionDoc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	params := routes[0].Parameters
	if len(params) != 2 {
		t.Fatalf("params: got %d", len(params))
	}
	if params[0].Name != "id" || params[0].Description != "new" {
		t.Fatalf("params[0]: got %q description %q", params[0].Name, params[0].Description)
	}
	if params[1].Name != "verbose" {
		t.Fatalf("params[1]: got %q", params[1].Name)
	}
}

func TestParse_Deterministic(t *testing.T) {
	t.Parallel()
	doc := decodeDoc(t, sampleDoc)

	first, err := Parse(doc)
	if err != nil {
		t.Fatalf("parse 1: %v", err)
	}
	second, err := Parse(doc)
	if err != nil {
		t.Fatalf("parse 2: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("parses differ")
	}
}

func TestParse_DuplicateMethodCasing(t *testing.T) {
	t.Parallel()
	doc := decodeDoc(t, `
openapi: 3.0.0
info: {title: T, version: "1"}
paths:
  /pets:
    get:
      responses: {"200": {description: ok}}
    GET:
      responses: {"200": {description: ok}}
`)
	_, err := Parse(doc)
	if !errors.Is(err, ErrOperationShape) {
		t.Fatalf("expected OperationShapeError, got %v", err)
	}
}

func TestParse_DuplicateTemplatePath(t *testing.T) {
	t.Parallel()
	doc := decodeDoc(t, `
openapi: 3.0.0
info: {title: T, version: "1"}
paths:
  /users/{id}:
    get:
      responses: {"200": {description: ok}}
  /users/{userId}:
    get:
      responses: {"200": {description: ok}}
`)
	_, err := Parse(doc)
	if !errors.Is(err, ErrOperationShape) {
		t.Fatalf("expected OperationShapeError, got %v", err)
	}
}

func TestParse_DeclaredMethodWithoutOperation(t *testing.T) {
	t.Parallel()
	doc := decodeDoc(t, `
openapi: 3.0.0
info: {title: T, version: "1"}
paths:
  /pets:
    get:
`)
	_, err := Parse(doc)
	if !errors.Is(err, ErrOperationShape) {
		t.Fatalf("expected OperationShapeError, got %v", err)
	}
}

func TestParse_ParameterWithoutNameAndLocation(t *testing.T) {
	t.Parallel()
	doc := decodeDoc(t, `
openapi: 3.0.0
info: {title: T, version: "1"}
paths:
  /pets:
    get:
      parameters:
        - description: neither name nor in
      responses:
        "200": {description: ok}
`)
	_, err := Parse(doc)
	if !errors.Is(err, ErrOperationShape) {
		t.Fatalf("expected OperationShapeError, got %v", err)
	}
}

func TestParse_TagFiltering(t *testing.T) {
	t.Parallel()
	doc := decodeDoc(t, sampleDoc)

	routes, err := Parse(doc, WithIncludeTags([]string{"read"}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(routes) != 1 || routes[0].ID() != "get /pets" {
		t.Fatalf("include tags: got %d routes", len(routes))
	}

	routes, err = Parse(doc, WithExcludeTags([]string{"admin"}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, r := range routes {
		if r.Path == "/admin" {
			t.Fatalf("exclude tags: /admin should be filtered out")
		}
	}
}

func TestParse_MethodAndPathFilters(t *testing.T) {
	t.Parallel()
	doc := decodeDoc(t, sampleDoc)

	routes, err := Parse(doc, WithMethods([]HttpMethod{POST}), WithPathPatterns([]string{"^/pets$"}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(routes) != 1 || routes[0].ID() != "post /pets" {
		t.Fatalf("filters: got %v", routes)
	}
}

func TestParse_ComponentParameterRef(t *testing.T) {
	t.Parallel()
	doc := decodeDoc(t, `
openapi: 3.1.0
info: {title: T, version: "1"}
paths:
  /pets:
    get:
      parameters:
        - $ref: '#/components/parameters/Limit'
      responses:
        "200": {description: ok}
components:
  parameters:
    Limit:
      name: limit
      in: query
      required: true
      schema: {type: integer}
`)
	routes, err := Parse(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	params := routes[0].Parameters
	if len(params) != 1 || params[0].Name != "limit" || !params[0].Required {
		t.Fatalf("deref parameter: got %+v", params)
	}
	if params[0].Schema == nil || params[0].Schema.Kind != KindInteger {
		t.Fatalf("deref parameter schema: got %+v", params[0].Schema)
	}
}

func TestDocInfoAndServerURLs(t *testing.T) {
	t.Parallel()
	doc := decodeDoc(t, sampleDoc)

	info := DocInfo(doc)
	if info.Title != "Sample API" || info.Version != "1.0.0" {
		t.Fatalf("info: %+v", info)
	}
	urls := ServerURLs(doc)
	if len(urls) != 1 || urls[0] != "https://api.example.com/v1" {
		t.Fatalf("servers: %v", urls)
	}
}
