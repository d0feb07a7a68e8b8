package toolgen

import (
	"fmt"
	"strings"

	"github.com/rajephon/fastmcp/internal/openapi"
)

// maxToolNameLen matches the common MCP client limit on tool names.
const maxToolNameLen = 64

// toolName derives a tool name from the route's operation id, falling back
// to method plus path segments. Path templates render as "by_<param>".
func toolName(route openapi.HTTPRoute, prefix string) string {
	base := sanitizeName(route.OperationID)
	if base == "" {
		base = nameFromRoute(route)
	}
	if prefix != "" {
		if p := sanitizeName(prefix); p != "" {
			base = p + "_" + base
		}
	}
	return capName(base, maxToolNameLen)
}

func nameFromRoute(route openapi.HTTPRoute) string {
	parts := []string{string(route.Method)}
	for _, seg := range strings.Split(route.Path, "/") {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			parts = append(parts, "by_"+sanitizeName(strings.Trim(seg, "{}")))
			continue
		}
		parts = append(parts, sanitizeName(seg))
	}
	return strings.Join(parts, "_")
}

// sanitizeName lowercases and keeps alnum, dash, underscore only.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ToLower(name)
	b := strings.Builder{}
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), "-_")
	if out == "" {
		return ""
	}
	return out
}

// uniqueName appends a numeric suffix until the name is unused, keeping the
// result within the name length cap.
func uniqueName(name string, seen map[string]bool) string {
	if name == "" {
		name = "tool"
	}
	if !seen[name] {
		return name
	}
	for i := 2; ; i++ {
		suffix := fmt.Sprintf("_%d", i)
		candidate := capName(name, maxToolNameLen-len(suffix)) + suffix
		if !seen[candidate] {
			return candidate
		}
	}
}

func capName(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	return strings.Trim(name[:limit], "-_")
}
