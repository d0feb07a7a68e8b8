package openapi

import (
	"fmt"
	"sort"
	"strings"
)

// extractOperation builds one route from an operation object plus the
// path-level parameters already extracted for its path item.
func (r *resolver) extractOperation(path string, method HttpMethod, op map[string]any, pathParams []ParameterInfo, ptr string) (HTTPRoute, error) {
	route := HTTPRoute{
		Method:      method,
		Path:        path,
		OperationID: asString(op["operationId"]),
		Summary:     asString(op["summary"]),
		Description: asString(op["description"]),
	}
	if tags, ok := op["tags"].([]any); ok {
		for _, t := range tags {
			s := asString(t)
			if s == "" || containsString(route.Tags, s) {
				continue
			}
			route.Tags = append(route.Tags, s)
		}
	}

	opParams, err := r.extractParameters(op["parameters"], ptr+"/parameters")
	if err != nil {
		return HTTPRoute{}, err
	}
	route.Parameters = mergeParameters(pathParams, opParams)

	route.RequestBody, err = r.extractRequestBody(op["requestBody"], ptr+"/requestBody")
	if err != nil {
		return HTTPRoute{}, err
	}
	route.Responses, err = r.extractResponses(op["responses"], ptr+"/responses")
	if err != nil {
		return HTTPRoute{}, err
	}
	return route, nil
}

// extractParameters resolves one declared parameter list. Entries may be
// references to components.parameters.
func (r *resolver) extractParameters(v any, ptr string) ([]ParameterInfo, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, parseErrorf(OperationShapeError, ptr, "parameters must be a sequence, got %T", v)
	}
	out := make([]ParameterInfo, 0, len(list))
	for i, entry := range list {
		eptr := fmt.Sprintf("%s/%d", ptr, i)
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, parseErrorf(OperationShapeError, eptr, "parameter entry must be a mapping, got %T", entry)
		}
		m, err := r.derefMap(m, eptr)
		if err != nil {
			return nil, err
		}
		name := asString(m["name"])
		in := strings.ToLower(asString(m["in"]))
		if name == "" && in == "" {
			return nil, parseErrorf(OperationShapeError, eptr, "parameter entry lacks both name and location")
		}
		p := ParameterInfo{
			Name:        name,
			In:          in,
			Description: asString(m["description"]),
		}
		if b, ok := asBool(m["required"]); ok {
			p.Required = b
		}
		if in == "path" {
			// Path parameters are mandatory regardless of the declared flag.
			p.Required = true
		}
		switch {
		case m["schema"] != nil:
			s, err := r.resolveSchema(m["schema"], eptr+"/schema")
			if err != nil {
				return nil, err
			}
			p.Schema = s
		case m["content"] != nil:
			content, err := r.extractContent(m["content"], eptr+"/content")
			if err != nil {
				return nil, err
			}
			mimes := make([]string, 0, len(content))
			for k := range content {
				mimes = append(mimes, k)
			}
			sort.Strings(mimes)
			if len(mimes) > 0 {
				p.Schema = content[mimes[0]]
			}
		}
		if p.Schema == nil {
			p.Schema = &SchemaNode{Kind: KindUnknown}
		}
		out = append(out, p)
	}
	return out, nil
}

// mergeParameters overlays operation-level parameters onto path-level ones.
// An override replaces the base entry at its original position; new entries
// append in declaration order.
func mergeParameters(base, overrides []ParameterInfo) []ParameterInfo {
	if len(base) == 0 && len(overrides) == 0 {
		return nil
	}
	out := make([]ParameterInfo, len(base))
	copy(out, base)
	index := make(map[string]int, len(out))
	for i, p := range out {
		index[paramKey(p.In, p.Name)] = i
	}
	for _, p := range overrides {
		key := paramKey(p.In, p.Name)
		if i, ok := index[key]; ok {
			out[i] = p
			continue
		}
		index[key] = len(out)
		out = append(out, p)
	}
	return out
}

func paramKey(in, name string) string { return in + ":" + name }

func (r *resolver) extractRequestBody(v any, ptr string) (*RequestBodyInfo, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, parseErrorf(OperationShapeError, ptr, "requestBody must be a mapping, got %T", v)
	}
	m, err := r.derefMap(m, ptr)
	if err != nil {
		return nil, err
	}
	rb := &RequestBodyInfo{Description: asString(m["description"])}
	if b, ok := asBool(m["required"]); ok {
		rb.Required = b
	}
	rb.Content, err = r.extractContent(m["content"], ptr+"/content")
	if err != nil {
		return nil, err
	}
	return rb, nil
}

func (r *resolver) extractResponses(v any, ptr string) (map[string]ResponseInfo, error) {
	out := make(map[string]ResponseInfo)
	if v == nil {
		return out, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, parseErrorf(OperationShapeError, ptr, "responses must be a mapping, got %T", v)
	}
	for status, rv := range m {
		sptr := ptr + "/" + escapePointer(status)
		rm, ok := rv.(map[string]any)
		if !ok {
			return nil, parseErrorf(OperationShapeError, sptr, "response must be a mapping, got %T", rv)
		}
		rm, err := r.derefMap(rm, sptr)
		if err != nil {
			return nil, err
		}
		info := ResponseInfo{Description: asString(rm["description"])}
		info.Content, err = r.extractContent(rm["content"], sptr+"/content")
		if err != nil {
			return nil, err
		}
		out[status] = info
	}
	return out, nil
}

// extractContent resolves a content mapping's media-type schemas. Media
// types with no schema get an unknown-kind placeholder.
func (r *resolver) extractContent(v any, ptr string) (map[string]*SchemaNode, error) {
	out := make(map[string]*SchemaNode)
	m, ok := v.(map[string]any)
	if !ok {
		return out, nil
	}
	for mime, mt := range m {
		mm, ok := mt.(map[string]any)
		if !ok || mm["schema"] == nil {
			out[mime] = &SchemaNode{Kind: KindUnknown}
			continue
		}
		s, err := r.resolveSchema(mm["schema"], ptr+"/"+escapePointer(mime)+"/schema")
		if err != nil {
			return nil, err
		}
		out[mime] = s
	}
	return out, nil
}
