package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the union of settings a fastmcp.yaml may carry. Each command
// applies the subset it understands; unknown keys are rejected up front so
// typos surface instead of being silently ignored.
type fileConfig struct {
	Input         string
	Out           string
	Pretty        bool
	IncludeTags   []string
	ExcludeTags   []string
	Methods       []string
	PathPatterns  []string
	BaseURL       string
	NamePrefix    string
	DryRun        bool
	Verbose       bool
	ServerName    string
	ServerVersion string
	Timeout       time.Duration

	present map[string]bool
}

func (fc *fileConfig) has(key string) bool { return fc.present[key] }

func parseFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	fc := &fileConfig{present: make(map[string]bool, len(raw))}
	for key, value := range raw {
		normalized := normalizeKey(key)
		var err error
		switch normalized {
		case "input":
			fc.Input, err = valueAsString(value)
		case "out":
			fc.Out, err = valueAsString(value)
		case "pretty":
			fc.Pretty, err = valueAsBool(value)
		case "includetags":
			fc.IncludeTags, err = valueAsStringSlice(value)
		case "excludetags":
			fc.ExcludeTags, err = valueAsStringSlice(value)
		case "methods":
			fc.Methods, err = valueAsStringSlice(value)
		case "pathpatterns":
			fc.PathPatterns, err = valueAsStringSlice(value)
		case "baseurl":
			fc.BaseURL, err = valueAsString(value)
		case "nameprefix":
			fc.NamePrefix, err = valueAsString(value)
		case "dryrun":
			fc.DryRun, err = valueAsBool(value)
		case "verbose":
			fc.Verbose, err = valueAsBool(value)
		case "servername":
			fc.ServerName, err = valueAsString(value)
		case "serverversion":
			fc.ServerVersion, err = valueAsString(value)
		case "timeout":
			fc.Timeout, err = valueAsDuration(value)
		default:
			return nil, newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
		if err != nil {
			return nil, newUsageError(fmt.Sprintf("config field %q: %v", key, err))
		}
		fc.present[normalized] = true
	}

	return fc, nil
}

func (fc *fileConfig) applyToGenerate(cfg *GenerateConfig) {
	if fc.has("input") {
		cfg.Input = fc.Input
	}
	if fc.has("out") {
		cfg.Out = fc.Out
	}
	if fc.has("pretty") {
		cfg.Pretty = fc.Pretty
	}
	if fc.has("includetags") {
		cfg.IncludeTags = fc.IncludeTags
	}
	if fc.has("excludetags") {
		cfg.ExcludeTags = fc.ExcludeTags
	}
	if fc.has("methods") {
		cfg.Methods = fc.Methods
	}
	if fc.has("pathpatterns") {
		cfg.PathPatterns = fc.PathPatterns
	}
	if fc.has("baseurl") {
		cfg.BaseURL = fc.BaseURL
	}
	if fc.has("nameprefix") {
		cfg.NamePrefix = fc.NamePrefix
	}
	if fc.has("dryrun") {
		cfg.DryRun = fc.DryRun
	}
	if fc.has("verbose") {
		cfg.Verbose = fc.Verbose
	}
}

func (fc *fileConfig) applyToServe(cfg *ServeConfig) {
	if fc.has("input") {
		cfg.Input = fc.Input
	}
	if fc.has("baseurl") {
		cfg.BaseURL = fc.BaseURL
	}
	if fc.has("servername") {
		cfg.ServerName = fc.ServerName
	}
	if fc.has("serverversion") {
		cfg.ServerVersion = fc.ServerVersion
	}
	if fc.has("timeout") {
		cfg.Timeout = fc.Timeout
	}
	if fc.has("includetags") {
		cfg.IncludeTags = fc.IncludeTags
	}
	if fc.has("excludetags") {
		cfg.ExcludeTags = fc.ExcludeTags
	}
	if fc.has("methods") {
		cfg.Methods = fc.Methods
	}
	if fc.has("pathpatterns") {
		cfg.PathPatterns = fc.PathPatterns
	}
	if fc.has("nameprefix") {
		cfg.NamePrefix = fc.NamePrefix
	}
	if fc.has("verbose") {
		cfg.Verbose = fc.Verbose
	}
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func valueAsDuration(v any) (time.Duration, error) {
	switch val := v.(type) {
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", val)
		}
		return d, nil
	case int:
		return time.Duration(val) * time.Second, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected duration string or seconds, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

func sanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func lowercaseAll(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = strings.ToLower(item)
	}
	return out
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}
