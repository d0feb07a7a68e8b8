package openapi

import (
	"fmt"
	"sort"
	"strings"
)

// The adapter rewrites 3.0-isms (nullable flags, boolean exclusive bounds,
// singular examples) into the 3.1 shape once, up front, so the resolver and
// extractor never branch on dialect. Reference strings pass through untouched.

type dialect int

const (
	dialect30 dialect = iota + 1
	dialect31
)

// detectDialect reads the document's version marker and rejects anything
// outside the 3.0.x / 3.1.x range.
func detectDialect(doc map[string]any) (dialect, error) {
	v, ok := doc["openapi"]
	if !ok {
		return 0, parseErrorf(SchemaVersionError, "#/openapi", "missing openapi version field")
	}
	s, ok := v.(string)
	if !ok {
		return 0, parseErrorf(SchemaVersionError, "#/openapi", "openapi version must be a string, got %T", v)
	}
	switch {
	case strings.HasPrefix(s, "3.0"):
		return dialect30, nil
	case strings.HasPrefix(s, "3.1"):
		return dialect31, nil
	}
	return 0, parseErrorf(SchemaVersionError, "#/openapi", "unsupported openapi version %q (expected 3.0.x or 3.1.x)", s)
}

// normalizeDocument returns a normalized deep copy of doc. The input map is
// never mutated; every schema position is rewritten via normalizeSchema.
func normalizeDocument(doc map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		switch k {
		case "paths", "webhooks":
			pm, ok := v.(map[string]any)
			if !ok {
				out[k] = deepCopyValue(v)
				continue
			}
			np := make(map[string]any, len(pm))
			for p, item := range pm {
				ni, err := normalizePathItem(item, "#/"+k+"/"+escapePointer(p))
				if err != nil {
					return nil, err
				}
				np[p] = ni
			}
			out[k] = np
		case "components":
			cm, ok := v.(map[string]any)
			if !ok {
				out[k] = deepCopyValue(v)
				continue
			}
			nc, err := normalizeComponents(cm, "#/components")
			if err != nil {
				return nil, err
			}
			out[k] = nc
		default:
			out[k] = deepCopyValue(v)
		}
	}
	return out, nil
}

func normalizeComponents(m map[string]any, ptr string) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for section, v := range m {
		sm, ok := v.(map[string]any)
		if !ok {
			out[section] = deepCopyValue(v)
			continue
		}
		sptr := ptr + "/" + section
		ns := make(map[string]any, len(sm))
		var err error
		for name, entry := range sm {
			eptr := sptr + "/" + escapePointer(name)
			switch section {
			case "schemas":
				ns[name], err = normalizeSchema(entry, eptr)
			case "parameters", "headers":
				ns[name], err = normalizeParameter(entry, eptr)
			case "requestBodies":
				ns[name], err = normalizeRequestBody(entry, eptr)
			case "responses":
				ns[name], err = normalizeResponse(entry, eptr)
			case "pathItems":
				ns[name], err = normalizePathItem(entry, eptr)
			default:
				ns[name] = deepCopyValue(entry)
			}
			if err != nil {
				return nil, err
			}
		}
		out[section] = ns
	}
	return out, nil
}

func normalizePathItem(v any, ptr string) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return deepCopyValue(v), nil
	}
	out := make(map[string]any, len(m))
	for k, item := range m {
		switch {
		case k == "parameters":
			np, err := normalizeParameterList(item, ptr+"/parameters")
			if err != nil {
				return nil, err
			}
			out[k] = np
		case isMethodKey(k):
			no, err := normalizeOperation(item, ptr+"/"+escapePointer(k))
			if err != nil {
				return nil, err
			}
			out[k] = no
		default:
			out[k] = deepCopyValue(item)
		}
	}
	return out, nil
}

func normalizeOperation(v any, ptr string) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return deepCopyValue(v), nil
	}
	out := make(map[string]any, len(m))
	for k, item := range m {
		var err error
		switch k {
		case "parameters":
			out[k], err = normalizeParameterList(item, ptr+"/parameters")
		case "requestBody":
			out[k], err = normalizeRequestBody(item, ptr+"/requestBody")
		case "responses":
			rm, isMap := item.(map[string]any)
			if !isMap {
				out[k] = deepCopyValue(item)
				break
			}
			nr := make(map[string]any, len(rm))
			for status, resp := range rm {
				nr[status], err = normalizeResponse(resp, ptr+"/responses/"+escapePointer(status))
				if err != nil {
					return nil, err
				}
			}
			out[k] = nr
		default:
			out[k] = deepCopyValue(item)
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func normalizeParameterList(v any, ptr string) (any, error) {
	list, ok := v.([]any)
	if !ok {
		return deepCopyValue(v), nil
	}
	out := make([]any, len(list))
	for i, entry := range list {
		np, err := normalizeParameter(entry, fmt.Sprintf("%s/%d", ptr, i))
		if err != nil {
			return nil, err
		}
		out[i] = np
	}
	return out, nil
}

func normalizeParameter(v any, ptr string) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return deepCopyValue(v), nil
	}
	if _, isRef := m["$ref"]; isRef {
		return deepCopyValue(m), nil
	}
	out := make(map[string]any, len(m))
	for k, item := range m {
		var err error
		switch k {
		case "schema":
			out[k], err = normalizeSchema(item, ptr+"/schema")
		case "content":
			out[k], err = normalizeContent(item, ptr+"/content")
		default:
			out[k] = deepCopyValue(item)
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func normalizeRequestBody(v any, ptr string) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return deepCopyValue(v), nil
	}
	if _, isRef := m["$ref"]; isRef {
		return deepCopyValue(m), nil
	}
	out := make(map[string]any, len(m))
	for k, item := range m {
		if k == "content" {
			nc, err := normalizeContent(item, ptr+"/content")
			if err != nil {
				return nil, err
			}
			out[k] = nc
			continue
		}
		out[k] = deepCopyValue(item)
	}
	return out, nil
}

func normalizeResponse(v any, ptr string) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return deepCopyValue(v), nil
	}
	if _, isRef := m["$ref"]; isRef {
		return deepCopyValue(m), nil
	}
	out := make(map[string]any, len(m))
	for k, item := range m {
		var err error
		switch k {
		case "content":
			out[k], err = normalizeContent(item, ptr+"/content")
		case "headers":
			hm, isMap := item.(map[string]any)
			if !isMap {
				out[k] = deepCopyValue(item)
				break
			}
			nh := make(map[string]any, len(hm))
			for name, hdr := range hm {
				nh[name], err = normalizeParameter(hdr, ptr+"/headers/"+escapePointer(name))
				if err != nil {
					return nil, err
				}
			}
			out[k] = nh
		default:
			out[k] = deepCopyValue(item)
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func normalizeContent(v any, ptr string) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return deepCopyValue(v), nil
	}
	out := make(map[string]any, len(m))
	for mime, mt := range m {
		mm, isMap := mt.(map[string]any)
		if !isMap {
			out[mime] = deepCopyValue(mt)
			continue
		}
		nm := make(map[string]any, len(mm))
		for k, item := range mm {
			if k == "schema" {
				ns, err := normalizeSchema(item, ptr+"/"+escapePointer(mime)+"/schema")
				if err != nil {
					return nil, err
				}
				nm[k] = ns
				continue
			}
			nm[k] = deepCopyValue(item)
		}
		out[mime] = nm
	}
	return out, nil
}

// normalizeSchema rewrites one schema value and recurses into every nested
// schema position. Property names are container keys, never keywords, so the
// walk only descends into property values.
func normalizeSchema(v any, ptr string) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		// Boolean schemas and malformed scalars pass through for the
		// resolver to classify.
		return deepCopyValue(v), nil
	}
	if _, isRef := m["$ref"]; isRef {
		return deepCopyValue(m), nil
	}

	out := make(map[string]any, len(m))
	var singular, examplesRaw any
	var hasSingular, hasExamples bool
	for k, sv := range m {
		var err error
		switch k {
		case "properties", "patternProperties", "$defs", "definitions":
			pm, isMap := sv.(map[string]any)
			if !isMap {
				out[k] = deepCopyValue(sv)
				break
			}
			np := make(map[string]any, len(pm))
			for name, child := range pm {
				np[name], err = normalizeSchema(child, ptr+"/"+k+"/"+escapePointer(name))
				if err != nil {
					return nil, err
				}
			}
			out[k] = np
		case "items", "not", "contains", "propertyNames":
			out[k], err = normalizeSchemaOrList(sv, ptr+"/"+k)
		case "allOf", "anyOf", "oneOf", "prefixItems":
			out[k], err = normalizeSchemaOrList(sv, ptr+"/"+k)
		case "additionalProperties":
			if _, isMap := sv.(map[string]any); isMap {
				out[k], err = normalizeSchema(sv, ptr+"/additionalProperties")
			} else {
				out[k] = deepCopyValue(sv)
			}
		case "nullable":
			// folded into the type set below
		case "example":
			singular, hasSingular = sv, true
		case "examples":
			examplesRaw, hasExamples = sv, true
		default:
			out[k] = deepCopyValue(sv)
		}
		if err != nil {
			return nil, err
		}
	}

	if nb, ok := asBool(m["nullable"]); ok && nb {
		switch tv := out["type"].(type) {
		case string:
			out["type"] = []any{tv, "null"}
		case []any:
			if !containsValue(tv, "null") {
				out["type"] = append(append([]any{}, tv...), "null")
			}
		}
	}

	foldExclusiveBound(out, "exclusiveMinimum", "minimum")
	foldExclusiveBound(out, "exclusiveMaximum", "maximum")

	if hasSingular || hasExamples {
		list := collectExamples(singular, hasSingular, examplesRaw)
		if len(list) > 0 {
			out["examples"] = list
		}
	}

	types := typeSet(out["type"])
	if len(types) > 0 {
		if _, has := out["properties"]; has && !containsString(types, "object") {
			return nil, parseErrorf(SchemaTypeError, ptr, "schema declares properties but type set %v does not admit object", types)
		}
		if _, has := out["items"]; has && !containsString(types, "array") {
			return nil, parseErrorf(SchemaTypeError, ptr, "schema declares items but type set %v does not admit array", types)
		}
	}
	return out, nil
}

func normalizeSchemaOrList(v any, ptr string) (any, error) {
	if list, ok := v.([]any); ok {
		out := make([]any, len(list))
		for i, child := range list {
			nc, err := normalizeSchema(child, fmt.Sprintf("%s/%d", ptr, i))
			if err != nil {
				return nil, err
			}
			out[i] = nc
		}
		return out, nil
	}
	return normalizeSchema(v, ptr)
}

// foldExclusiveBound rewrites a 3.0 boolean exclusive flag into the 3.1
// numeric form, consuming the paired bound when the flag is true.
func foldExclusiveBound(m map[string]any, flagKey, boundKey string) {
	b, ok := asBool(m[flagKey])
	if !ok {
		return
	}
	delete(m, flagKey)
	if !b {
		return
	}
	if bound, exists := m[boundKey]; exists {
		m[flagKey] = bound
		delete(m, boundKey)
	}
}

// collectExamples flattens singular example plus list- or mapping-form
// examples into one ordered value list, singular first.
func collectExamples(singular any, hasSingular bool, examplesRaw any) []any {
	list := make([]any, 0, 2)
	if hasSingular {
		list = append(list, deepCopyValue(singular))
	}
	switch ev := examplesRaw.(type) {
	case []any:
		for _, e := range ev {
			list = append(list, deepCopyValue(e))
		}
	case map[string]any:
		names := sortedKeys(ev)
		for _, n := range names {
			entry := ev[n]
			if em, ok := entry.(map[string]any); ok {
				if val, exists := em["value"]; exists {
					list = append(list, deepCopyValue(val))
					continue
				}
			}
			list = append(list, deepCopyValue(entry))
		}
	}
	return list
}

func isMethodKey(k string) bool {
	switch HttpMethod(strings.ToLower(k)) {
	case GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS, TRACE:
		return true
	}
	return false
}

// typeSet reads a normalized type keyword as a string set.
func typeSet(v any) []string {
	switch tv := v.(type) {
	case string:
		return []string{tv}
	case []any:
		out := make([]string, 0, len(tv))
		for _, e := range tv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func deepCopyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, e := range tv {
			out[k] = deepCopyValue(e)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}

func escapePointer(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}

func unescapePointer(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~1", "/"), "~0", "~")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func containsValue(list []any, want string) bool {
	for _, v := range list {
		if s, ok := v.(string); ok && s == want {
			return true
		}
	}
	return false
}

func toFloatPtr(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case float32:
		f := float64(n)
		return &f
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case uint64:
		f := float64(n)
		return &f
	}
	return nil
}
