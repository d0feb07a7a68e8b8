package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rajephon/fastmcp/internal/mcpserver"
)

// ServeConfig captures the options for the serve command after merging
// defaults, config file values, and CLI overrides.
type ServeConfig struct {
	Input         string
	BaseURL       string
	ServerName    string
	ServerVersion string
	Timeout       time.Duration
	IncludeTags   []string
	ExcludeTags   []string
	Methods       []string
	PathPatterns  []string
	NamePrefix    string
	ConfigPath    string
	Verbose       bool
}

func defaultServeConfig() ServeConfig {
	return ServeConfig{
		ServerName:    "fastmcp",
		ServerVersion: "dev",
		Timeout:       30 * time.Second,
	}
}

var serveRunner = runServe

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an OpenAPI/Swagger document as MCP tools over stdio",
		Long: "Serve an OpenAPI/Swagger document as MCP tools over stdio. " +
			"Each operation becomes a callable tool that proxies to the upstream API.",
		Example: strings.TrimSpace(`  fastmcp serve --input spec.yaml --base-url https://api.example.com
  fastmcp --config fastmcp.yaml serve --verbose`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveServeConfig(cmd)
			if err != nil {
				return err
			}
			return serveRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the Swagger/OpenAPI document")
	flags.String("base-url", "", "Upstream base URL tool calls are sent to")
	flags.String("server-name", "fastmcp", "Server name reported to MCP clients")
	flags.String("server-version", "dev", "Server version reported to MCP clients")
	flags.Duration("timeout", 30*time.Second, "Timeout for upstream HTTP calls")

	return cmd
}

func resolveServeConfig(cmd *cobra.Command) (*ServeConfig, error) {
	cfg := defaultServeConfig()

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
		fc.applyToServe(&cfg)
	}

	if err := applyServeFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyServeFlagOverrides(flags *pflag.FlagSet, cfg *ServeConfig) error {
	if flags.Changed("input") {
		value, err := flags.GetString("input")
		if err != nil {
			return err
		}
		cfg.Input = strings.TrimSpace(value)
	}
	if flags.Changed("base-url") {
		value, err := flags.GetString("base-url")
		if err != nil {
			return err
		}
		cfg.BaseURL = strings.TrimSpace(value)
	}
	if flags.Changed("server-name") {
		value, err := flags.GetString("server-name")
		if err != nil {
			return err
		}
		cfg.ServerName = strings.TrimSpace(value)
	}
	if flags.Changed("server-version") {
		value, err := flags.GetString("server-version")
		if err != nil {
			return err
		}
		cfg.ServerVersion = strings.TrimSpace(value)
	}
	if flags.Changed("timeout") {
		value, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = value
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

func (c *ServeConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	c.ServerName = strings.TrimSpace(c.ServerName)
	c.ServerVersion = strings.TrimSpace(c.ServerVersion)
	c.NamePrefix = strings.TrimSpace(c.NamePrefix)
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
	c.Methods = lowercaseAll(sanitizeTags(c.Methods))
	c.PathPatterns = sanitizeTags(c.PathPatterns)
}

func (c *ServeConfig) validate() error {
	if c.Input == "" {
		return newUsageError("serve: --input is required (set via flag or config file)")
	}
	if c.Input == "-" {
		return newUsageError("serve: cannot read the document from stdin, stdio carries the MCP session")
	}
	if c.Timeout <= 0 {
		return newUsageError("serve: --timeout must be positive")
	}
	if err := validateMethods(c.Methods); err != nil {
		return err
	}
	if err := validatePatterns(c.PathPatterns); err != nil {
		return err
	}
	if overlap := intersect(c.IncludeTags, c.ExcludeTags); len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("serve: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}

	return nil
}

func runServe(ctx context.Context, cfg *ServeConfig) error {
	logger := buildLogger(cfg.Verbose)
	defer func() { _ = logger.Sync() }()

	tools, _, err := loadAndGenerate(ctx, logger, pipelineConfig{
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
	if len(tools) == 0 {
		logger.Warn("no tools generated, serving an empty tool list")
	}

	srv := mcpserver.New(tools, mcpserver.Options{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	}, logger)
	return srv.ServeStdio()
}
