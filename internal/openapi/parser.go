package openapi

import (
	"regexp"
	"strings"
)

// ParseOption configures route assembly.
type ParseOption func(*parseConfig)

type parseConfig struct {
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	methods     map[HttpMethod]struct{}
	pathRes     []*regexp.Regexp
}

// WithIncludeTags keeps only routes that carry at least one of the given tags.
func WithIncludeTags(tags []string) ParseOption {
	return func(c *parseConfig) {
		if len(tags) == 0 {
			return
		}
		if c.includeTags == nil {
			c.includeTags = make(map[string]struct{}, len(tags))
		}
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			c.includeTags[t] = struct{}{}
		}
	}
}

// WithExcludeTags removes routes that carry any of the given tags.
func WithExcludeTags(tags []string) ParseOption {
	return func(c *parseConfig) {
		if len(tags) == 0 {
			return
		}
		if c.excludeTags == nil {
			c.excludeTags = make(map[string]struct{}, len(tags))
		}
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			c.excludeTags[t] = struct{}{}
		}
	}
}

// WithMethods keeps only routes using one of the provided HTTP methods.
func WithMethods(methods []HttpMethod) ParseOption {
	return func(c *parseConfig) {
		if len(methods) == 0 {
			return
		}
		if c.methods == nil {
			c.methods = make(map[HttpMethod]struct{}, len(methods))
		}
		for _, m := range methods {
			c.methods[HttpMethod(strings.ToLower(string(m)))] = struct{}{}
		}
	}
}

// WithPathPatterns keeps only routes whose path matches at least one of the
// provided regular expressions.
func WithPathPatterns(patterns []string) ParseOption {
	return func(c *parseConfig) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			re, err := regexp.Compile(p)
			if err != nil {
				// Surface invalid patterns as never-matching rather than
				// panicking in an option.
				re = regexp.MustCompile("a^$")
			}
			c.pathRes = append(c.pathRes, re)
		}
	}
}

// Parse converts a decoded OpenAPI 3.0/3.1 document into the resolved route
// list. The input map is read, never mutated; every call builds its own
// resolution state, so concurrent calls on separate documents are safe.
// Route order is stable across repeated parses of the same input: paths in
// sorted order, methods in canonical order within a path.
func Parse(doc map[string]any, opts ...ParseOption) ([]HTTPRoute, error) {
	if doc == nil {
		return nil, parseErrorf(SchemaVersionError, "", "nil document")
	}
	if _, err := detectDialect(doc); err != nil {
		return nil, err
	}
	norm, err := normalizeDocument(doc)
	if err != nil {
		return nil, err
	}

	cfg := &parseConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	r := newResolver(norm)

	pathsVal, ok := norm["paths"]
	if !ok || pathsVal == nil {
		return nil, nil
	}
	paths, ok := pathsVal.(map[string]any)
	if !ok {
		return nil, parseErrorf(OperationShapeError, "#/paths", "paths must be a mapping, got %T", pathsVal)
	}

	var routes []HTTPRoute
	seen := make(map[string]string) // route shape -> first declared identity
	for _, p := range sortedKeys(paths) {
		item := paths[p]
		if item == nil {
			continue
		}
		iptr := "#/paths/" + escapePointer(p)
		im, ok := item.(map[string]any)
		if !ok {
			return nil, parseErrorf(OperationShapeError, iptr, "path item must be a mapping, got %T", item)
		}
		im, err := r.derefMap(im, iptr)
		if err != nil {
			return nil, err
		}

		pathParams, err := r.extractParameters(im["parameters"], iptr+"/parameters")
		if err != nil {
			return nil, err
		}

		for _, method := range methodOrder {
			opVal, declared, err := operationForMethod(im, method, iptr)
			if err != nil {
				return nil, err
			}
			if !declared {
				continue
			}
			mptr := iptr + "/" + string(method)
			if opVal == nil {
				return nil, parseErrorf(OperationShapeError, mptr, "declared method %s has no operation object", strings.ToUpper(string(method)))
			}
			om, ok := opVal.(map[string]any)
			if !ok {
				return nil, parseErrorf(OperationShapeError, mptr, "operation must be a mapping, got %T", opVal)
			}

			if len(cfg.methods) > 0 {
				if _, ok := cfg.methods[method]; !ok {
					continue
				}
			}
			if len(cfg.pathRes) > 0 && !matchAnyPath(cfg.pathRes, p) {
				continue
			}

			route, err := r.extractOperation(p, method, om, pathParams, mptr)
			if err != nil {
				return nil, err
			}
			if !allowByTags(route.Tags, cfg) {
				continue
			}

			key := string(method) + " " + normalizePathShape(p)
			if prev, dup := seen[key]; dup {
				return nil, parseErrorf(OperationShapeError, mptr, "duplicate route %s conflicts with %s", route.ID(), prev)
			}
			seen[key] = route.ID()
			routes = append(routes, route)
		}
	}
	return routes, nil
}

// operationForMethod finds the operation declared for method, matching keys
// case-insensitively. Two spellings of the same method on one path item are
// a duplicate declaration.
func operationForMethod(item map[string]any, method HttpMethod, ptr string) (any, bool, error) {
	var val any
	found := false
	for k, v := range item {
		if HttpMethod(strings.ToLower(k)) != method {
			continue
		}
		if found {
			return nil, false, parseErrorf(OperationShapeError, ptr, "method %s declared more than once", strings.ToUpper(string(method)))
		}
		val, found = v, true
	}
	return val, found, nil
}

// normalizePathShape collapses template placeholders so /users/{id} and
// /users/{userId} count as the same route shape.
func normalizePathShape(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		if len(s) > 1 && strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			segs[i] = "{}"
		}
	}
	return strings.Join(segs, "/")
}

func matchAnyPath(res []*regexp.Regexp, path string) bool {
	for _, re := range res {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func allowByTags(tags []string, cfg *parseConfig) bool {
	if len(cfg.includeTags) > 0 {
		ok := false
		for _, t := range tags {
			if _, yes := cfg.includeTags[t]; yes {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(cfg.excludeTags) > 0 {
		for _, t := range tags {
			if _, blocked := cfg.excludeTags[t]; blocked {
				return false
			}
		}
	}
	return true
}

// DocInfo reads document-level metadata without a full parse.
func DocInfo(doc map[string]any) Info {
	info, _ := doc["info"].(map[string]any)
	return Info{
		Title:       asString(info["title"]),
		Version:     asString(info["version"]),
		Description: asString(info["description"]),
	}
}

// ServerURLs lists declared server URLs in declaration order.
func ServerURLs(doc map[string]any) []string {
	servers, _ := doc["servers"].([]any)
	var out []string
	for _, s := range servers {
		sm, ok := s.(map[string]any)
		if !ok {
			continue
		}
		if u := asString(sm["url"]); u != "" {
			out = append(out, u)
		}
	}
	return out
}
