package openapi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// FormatJSONForDescription renders v inside a fenced json code block using
// the given indent width (2 when indent <= 0). Values that cannot be
// marshaled fall back to their fmt rendering inside the fence; this never
// returns an error.
func FormatJSONForDescription(v any, indent int) string {
	if indent <= 0 {
		indent = 2
	}
	body := ""
	if b, err := json.MarshalIndent(v, "", strings.Repeat(" ", indent)); err == nil {
		body = string(b)
	} else {
		body = fmt.Sprintf("%v", v)
	}
	return "```json\n" + body + "\n```"
}

// FormatDescriptionWithResponses assembles operation documentation from the
// base description plus the three record groups, in a fixed order: base
// text, Parameters, Request Body, Responses. A section whose source data is
// empty is omitted entirely, never emitted blank.
func FormatDescriptionWithResponses(base string, responses map[string]ResponseInfo, parameters []ParameterInfo, requestBody *RequestBodyInfo) string {
	var sections []string
	if s := strings.TrimSpace(base); s != "" {
		sections = append(sections, s)
	}
	if s := formatParametersSection(parameters); s != "" {
		sections = append(sections, s)
	}
	if s := formatRequestBodySection(requestBody); s != "" {
		sections = append(sections, s)
	}
	if s := formatResponsesSection(responses); s != "" {
		sections = append(sections, s)
	}
	return strings.Join(sections, "\n\n")
}

func formatParametersSection(parameters []ParameterInfo) string {
	if len(parameters) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("**Parameters:**")
	for _, p := range parameters {
		b.WriteString("\n- **")
		b.WriteString(p.Name)
		b.WriteString("** (")
		b.WriteString(p.In)
		if p.Required {
			b.WriteString(", required")
		}
		b.WriteString(")")
		if p.Description != "" {
			b.WriteString(": ")
			b.WriteString(p.Description)
		}
	}
	return b.String()
}

func formatRequestBodySection(rb *RequestBodyInfo) string {
	if rb == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("**Request Body**")
	if rb.Required {
		b.WriteString(" (required)")
	}
	if rb.Description != "" {
		b.WriteString(": ")
		b.WriteString(rb.Description)
	}
	for _, mime := range sortedSchemaKeys(rb.Content) {
		schema := rb.Content[mime]
		if isEmptySchema(schema) {
			continue
		}
		b.WriteString("\n\nContent-Type: ")
		b.WriteString(mime)
		b.WriteString("\n")
		b.WriteString(FormatJSONForDescription(CleanSchemaForDisplay(schema), 2))
	}
	return b.String()
}

func formatResponsesSection(responses map[string]ResponseInfo) string {
	if len(responses) == 0 {
		return ""
	}
	statuses := make([]string, 0, len(responses))
	for code := range responses {
		statuses = append(statuses, code)
	}
	sort.Strings(statuses)

	var b strings.Builder
	b.WriteString("**Responses:**")
	for _, code := range statuses {
		resp := responses[code]
		b.WriteString("\n\n**")
		b.WriteString(code)
		b.WriteString("**")
		if resp.Description != "" {
			b.WriteString(": ")
			b.WriteString(resp.Description)
		}
		for _, mime := range sortedSchemaKeys(resp.Content) {
			schema := resp.Content[mime]
			if isEmptySchema(schema) {
				continue
			}
			b.WriteString("\n\nContent-Type: ")
			b.WriteString(mime)
			b.WriteString("\n")
			if example := GenerateExampleFromSchema(schema); example != nil {
				b.WriteString("Example:\n")
				b.WriteString(FormatJSONForDescription(example, 2))
			} else {
				b.WriteString("Schema:\n")
				b.WriteString(FormatJSONForDescription(CleanSchemaForDisplay(schema), 2))
			}
		}
	}
	return b.String()
}

func sortedSchemaKeys(m map[string]*SchemaNode) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
