// Package mcpserver exposes generated tools over the Model Context Protocol
// and relays tool calls to the upstream HTTP API.
package mcpserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/rajephon/fastmcp/internal/toolgen"
)

const defaultHTTPTimeout = 30 * time.Second

// ExecutionResult carries the upstream response back to the tool caller.
type ExecutionResult struct {
	Status int
	Body   string
}

// Executor turns a tool call into an HTTP request against the upstream API.
type Executor struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewExecutor returns an Executor. A nil client gets a default timeout; a
// nil logger falls back to zap.NewNop.
func NewExecutor(baseURL string, client *http.Client, logger *zap.Logger) *Executor {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger.With(zap.String("component", "executor")),
	}
}

// Execute maps args onto the tool's route via its param mappings, performs
// the HTTP request, and returns the response status and body text.
func (e *Executor) Execute(ctx context.Context, tool toolgen.Tool, args map[string]any) (*ExecutionResult, error) {
	base := strings.TrimRight(tool.BaseURL, "/")
	if base == "" {
		base = e.baseURL
	}
	if base == "" {
		return nil, fmt.Errorf("tool %s: no base URL configured", tool.Name)
	}

	path := tool.Path
	query := url.Values{}
	header := http.Header{}
	var cookies []*http.Cookie
	bodyFields := make(map[string]any)
	var rawBody any
	hasRawBody := false

	for _, m := range tool.Mappings {
		v, ok := args[m.ArgName]
		if !ok {
			if m.Required {
				return nil, fmt.Errorf("tool %s: missing required argument %q", tool.Name, m.ArgName)
			}
			continue
		}
		switch m.Location {
		case "path":
			path = strings.ReplaceAll(path, "{"+m.OpenAPIName+"}", url.PathEscape(fmt.Sprintf("%v", v)))
		case "query":
			query.Add(m.OpenAPIName, fmt.Sprintf("%v", v))
		case "header":
			header.Add(m.OpenAPIName, fmt.Sprintf("%v", v))
		case "cookie":
			cookies = append(cookies, &http.Cookie{Name: m.OpenAPIName, Value: fmt.Sprintf("%v", v)})
		case "body":
			if m.OpenAPIName == "" {
				rawBody = v
				hasRawBody = true
			} else {
				bodyFields[m.OpenAPIName] = v
			}
		}
	}

	fullURL := base + path
	if q := query.Encode(); q != "" {
		fullURL += "?" + q
	}

	var reader io.Reader
	contentType := ""
	switch {
	case hasRawBody:
		if s, ok := rawBody.(string); ok {
			reader = strings.NewReader(s)
			contentType = "text/plain"
		} else {
			b, err := json.Marshal(rawBody)
			if err != nil {
				return nil, fmt.Errorf("tool %s: marshal body: %w", tool.Name, err)
			}
			reader = bytes.NewReader(b)
			contentType = "application/json"
		}
	case len(bodyFields) > 0:
		b, err := json.Marshal(bodyFields)
		if err != nil {
			return nil, fmt.Errorf("tool %s: marshal body: %w", tool.Name, err)
		}
		reader = bytes.NewReader(b)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(string(tool.Method)), fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("tool %s: build request: %w", tool.Name, err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tool %s: request failed: %w", tool.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tool %s: read response: %w", tool.Name, err)
	}

	e.logger.Debug("upstream call complete",
		zap.String("tool", tool.Name),
		zap.String("url", fullURL),
		zap.Int("status", resp.StatusCode))

	return &ExecutionResult{Status: resp.StatusCode, Body: string(body)}, nil
}
