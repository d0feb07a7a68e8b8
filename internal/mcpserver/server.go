package mcpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/rajephon/fastmcp/internal/toolgen"
)

// Options configures the MCP server assembly.
type Options struct {
	// Name and Version identify the server to MCP clients. Defaults:
	// "fastmcp" / "dev".
	Name    string
	Version string
	// BaseURL is the upstream API root used when a tool carries none.
	BaseURL string
	// Timeout bounds each upstream HTTP call.
	Timeout time.Duration
}

// Server wires generated tools into an MCP server speaking stdio.
type Server struct {
	mcp      *server.MCPServer
	executor *Executor
	logger   *zap.Logger
}

// New builds a Server with one registered MCP tool per generated tool.
// A nil logger falls back to zap.NewNop.
func New(tools []toolgen.Tool, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "mcpserver"))

	name := opts.Name
	if name == "" {
		name = "fastmcp"
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	s := &Server{
		mcp:      server.NewMCPServer(name, version),
		executor: NewExecutor(opts.BaseURL, &http.Client{Timeout: timeout}, logger),
		logger:   logger,
	}
	for _, tool := range tools {
		s.mcp.AddTool(makeMCPTool(tool), s.handler(tool))
		logger.Debug("registered tool", zap.String("tool", tool.Name))
	}
	return s
}

// Handle invokes the handler for one tool directly, bypassing the stdio
// transport. Lets embedders and tests exercise tool calls in-process.
func (s *Server) Handle(ctx context.Context, tool toolgen.Tool, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handler(tool)(ctx, request)
}

func (s *Server) handler(tool toolgen.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := s.executor.Execute(ctx, tool, request.Params.Arguments)
		if err != nil {
			s.logger.Error("tool call failed", zap.String("tool", tool.Name), zap.Error(err))
			return nil, err
		}
		return mcp.NewToolResultText(fmt.Sprintf("status code: %d\nresponse body: %s", res.Status, res.Body)), nil
	}
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("serving over stdio")
	return server.ServeStdio(s.mcp)
}
