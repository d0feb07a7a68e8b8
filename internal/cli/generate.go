package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/rajephon/fastmcp/internal/openapi"
	"github.com/rajephon/fastmcp/internal/spec"
	"github.com/rajephon/fastmcp/internal/toolgen"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Input        string
	Out          string
	Pretty       bool
	IncludeTags  []string
	ExcludeTags  []string
	Methods      []string
	PathPatterns []string
	BaseURL      string
	NamePrefix   string
	ConfigPath   string
	DryRun       bool
	Verbose      bool
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Out: "-", Pretty: true}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate MCP tool definitions from an OpenAPI/Swagger document",
		Long: "Generate MCP tool definitions from an OpenAPI/Swagger document and write them as JSON. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  fastmcp generate --input spec.yaml --out tools.json
  fastmcp --config fastmcp.yaml generate --pretty=false --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", `Path or URL to the Swagger/OpenAPI document ("-" for stdin)`)
	flags.String("out", "-", `Output file for the tool JSON ("-" for stdout)`)
	flags.Bool("pretty", true, "Indent the JSON output")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	flags.StringSlice("methods", nil, "Only include these HTTP methods (e.g. get,post)")
	flags.StringSlice("path-patterns", nil, "Only include routes whose path matches one of these glob patterns")
	flags.String("base-url", "", "Upstream base URL stamped into every tool")
	flags.String("name-prefix", "", "Prefix prepended to every tool name")
	flags.Bool("dry-run", false, "Preview the generated tools without writing output")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		fc, err := parseFileConfig(configPath)
		if err != nil {
			return nil, err
		}
		fc.applyToGenerate(&cfg)
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	if flags.Changed("input") {
		value, err := flags.GetString("input")
		if err != nil {
			return err
		}
		cfg.Input = strings.TrimSpace(value)
	}
	if flags.Changed("out") {
		value, err := flags.GetString("out")
		if err != nil {
			return err
		}
		cfg.Out = strings.TrimSpace(value)
	}
	if flags.Changed("pretty") {
		value, err := flags.GetBool("pretty")
		if err != nil {
			return err
		}
		cfg.Pretty = value
	}
	if flags.Changed("include-tags") {
		value, err := flags.GetStringSlice("include-tags")
		if err != nil {
			return err
		}
		cfg.IncludeTags = sanitizeTags(value)
	}
	if flags.Changed("exclude-tags") {
		value, err := flags.GetStringSlice("exclude-tags")
		if err != nil {
			return err
		}
		cfg.ExcludeTags = sanitizeTags(value)
	}
	if flags.Changed("methods") {
		value, err := flags.GetStringSlice("methods")
		if err != nil {
			return err
		}
		cfg.Methods = sanitizeTags(value)
	}
	if flags.Changed("path-patterns") {
		value, err := flags.GetStringSlice("path-patterns")
		if err != nil {
			return err
		}
		cfg.PathPatterns = sanitizeTags(value)
	}
	if flags.Changed("base-url") {
		value, err := flags.GetString("base-url")
		if err != nil {
			return err
		}
		cfg.BaseURL = strings.TrimSpace(value)
	}
	if flags.Changed("name-prefix") {
		value, err := flags.GetString("name-prefix")
		if err != nil {
			return err
		}
		cfg.NamePrefix = strings.TrimSpace(value)
	}
	if flags.Changed("dry-run") {
		value, err := flags.GetBool("dry-run")
		if err != nil {
			return err
		}
		cfg.DryRun = value
	}
	if flags.Changed("verbose") {
		value, err := flags.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Out = strings.TrimSpace(c.Out)
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	c.NamePrefix = strings.TrimSpace(c.NamePrefix)
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
	c.Methods = lowercaseAll(sanitizeTags(c.Methods))
	c.PathPatterns = sanitizeTags(c.PathPatterns)
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag or config file)")
	}
	if c.Out == "" {
		c.Out = "-"
	}
	if err := validateMethods(c.Methods); err != nil {
		return err
	}
	if err := validatePatterns(c.PathPatterns); err != nil {
		return err
	}
	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("generate: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}

	return nil
}

func validateMethods(methods []string) error {
	for _, m := range methods {
		switch openapi.HttpMethod(m) {
		case openapi.GET, openapi.POST, openapi.PUT, openapi.DELETE,
			openapi.PATCH, openapi.HEAD, openapi.OPTIONS, openapi.TRACE:
		default:
			return newUsageError(fmt.Sprintf("unsupported method %q (allowed: get, post, put, delete, patch, head, options, trace)", m))
		}
	}
	return nil
}

func validatePatterns(patterns []string) error {
	for _, p := range patterns {
		if _, err := path.Match(p, "/"); err != nil {
			return newUsageError(fmt.Sprintf("invalid path pattern %q: %v", p, err))
		}
	}
	return nil
}

// pipelineConfig is the subset of settings shared by generate and serve: how
// to load the document and how to shape the resulting tools.
type pipelineConfig struct {
	Input        string
	BaseURL      string
	NamePrefix   string
	IncludeTags  []string
	ExcludeTags  []string
	Methods      []string
	PathPatterns []string
}

// loadAndGenerate runs the document-to-tools pipeline: load, parse, filter
// routes, generate tool definitions. Structured loader and parser errors are
// mapped into friendly usage errors.
func loadAndGenerate(ctx context.Context, logger *zap.Logger, cfg pipelineConfig) ([]toolgen.Tool, []openapi.HTTPRoute, error) {
	doc, err := spec.Load(ctx, cfg.Input)
	if err != nil {
		var se *spec.SpecError
		if errors.As(err, &se) {
			msg := fmt.Sprintf("spec: %s", se.Message)
			if se.Location != "" {
				msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
			}
			return nil, nil, newUsageError(msg)
		}
		return nil, nil, err
	}

	routes, err := openapi.Parse(doc)
	if err != nil {
		var pe *openapi.ParseError
		if errors.As(err, &pe) {
			msg := fmt.Sprintf("parse: %s", pe.Message)
			if pe.JSONPointer != "" {
				msg = fmt.Sprintf("%s\nPointer: %s", msg, pe.JSONPointer)
			}
			return nil, nil, newUsageError(msg)
		}
		return nil, nil, err
	}

	routes = filterRoutes(routes, cfg.Methods, cfg.PathPatterns)

	gen := toolgen.NewGenerator(toolgen.Options{
		NamePrefix:  cfg.NamePrefix,
		BaseURL:     cfg.BaseURL,
		IncludeTags: cfg.IncludeTags,
		ExcludeTags: cfg.ExcludeTags,
	}, logger)
	return gen.Generate(routes), routes, nil
}

func filterRoutes(routes []openapi.HTTPRoute, methods, patterns []string) []openapi.HTTPRoute {
	if len(methods) == 0 && len(patterns) == 0 {
		return routes
	}
	allowed := make(map[string]bool, len(methods))
	for _, m := range methods {
		allowed[m] = true
	}
	kept := make([]openapi.HTTPRoute, 0, len(routes))
	for _, r := range routes {
		if len(allowed) > 0 && !allowed[string(r.Method)] {
			continue
		}
		if len(patterns) > 0 && !matchesAny(patterns, r.Path) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func matchesAny(patterns []string, p string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, p); err == nil && ok {
			return true
		}
	}
	return false
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	logger := buildLogger(cfg.Verbose)
	defer func() { _ = logger.Sync() }()

	tools, routes, err := loadAndGenerate(ctx, logger, pipelineConfig{
		Input:        cfg.Input,
		BaseURL:      cfg.BaseURL,
		NamePrefix:   cfg.NamePrefix,
		IncludeTags:  cfg.IncludeTags,
		ExcludeTags:  cfg.ExcludeTags,
		Methods:      cfg.Methods,
		PathPatterns: cfg.PathPatterns,
	})
	if err != nil {
		return err
	}

	if cfg.DryRun {
		printPlan(tools, len(routes))
		return nil
	}

	var data []byte
	if cfg.Pretty {
		data, err = json.MarshalIndent(tools, "", "  ")
	} else {
		data, err = json.Marshal(tools)
	}
	if err != nil {
		return fmt.Errorf("generate: marshal tools: %w", err)
	}
	data = append(data, '\n')

	if cfg.Out == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return writeToolFile(cfg.Out, data, len(tools))
}

func printPlan(tools []toolgen.Tool, routeCount int) {
	fmt.Fprintf(os.Stdout, "Planned %d tools from %d routes:\n", len(tools), routeCount)
	for _, t := range tools {
		fmt.Fprintf(os.Stdout, "- %s (%s %s)\n", t.Name, strings.ToUpper(string(t.Method)), t.Path)
	}
}

// writeToolFile writes atomically via temp + rename so a failed run never
// leaves a truncated tool file behind.
func writeToolFile(out string, data []byte, count int) error {
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("generate: resolve output path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("generate: cannot create parent directory: %v", err))
	}
	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return newUsageError(fmt.Sprintf("generate: cannot write %s: %v\nHint: choose a different --out or check directory permissions.", tmp, err))
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return newUsageError(fmt.Sprintf("generate: cannot place file at %s: %v", absPath, err))
	}
	fmt.Fprintf(os.Stdout, "Wrote %d tools to %s\n", count, absPath)
	return nil
}
