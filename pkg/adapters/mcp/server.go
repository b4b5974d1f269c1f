// Package mcp exposes a Controller as a Model Context Protocol server.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/loadkit"
	"github.com/aretw0/loadkit/internal/logging"
	"github.com/aretw0/loadkit/pkg/adapters/file"
	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// HistoryURI is the resource listing the journal.
const HistoryURI = "loadkit://history"

// DefaultWait bounds load_urls and load_files when wait is requested.
const DefaultWait = 2 * time.Minute

// LoadResponse is the structured result of the load tools.
type LoadResponse struct {
	Status loadkit.Status     `json:"status" jsonschema_description:"Session status right after the load started"`
	Record *domain.LoadRecord `json:"record,omitempty" jsonschema_description:"Journal record, present when wait was requested"`
}

// AbortResponse is the structured result of abort_load.
type AbortResponse struct {
	Acknowledged bool `json:"acknowledged" jsonschema_description:"Whether the backend finished unwinding within the wait"`
}

// Controller is the part of loadkit.Controller the server needs.
type Controller interface {
	LoadFiles(ctx context.Context, paths []string) error
	LoadURLs(ctx context.Context, urls []string, headers []domain.Header) error
	AbortLoad() <-chan struct{}
	Status() loadkit.Status
	Journal() ports.JournalStore
	FileRoot() string
	Await(ctx context.Context, start func(ctx context.Context) error) (domain.LoadRecord, error)
}

// Server wraps a Controller and exposes it as an MCP Server.
type Server struct {
	ctl       Controller
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(ctl Controller, opts ...Option) *Server {
	s := &Server{
		ctl:       ctl,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("loadkit-mcp", strings.TrimSpace(loadkit.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, for custom transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	// TOOL: load_urls
	s.mcpServer.AddTool(mcp.NewTool("load_urls",
		mcp.WithDescription("Load an imaging dataset (or a saved .json state) from URLs."),
		mcp.WithString("urls", mcp.Required(), mcp.Description("JSON array of URLs, or a comma separated list")),
		mcp.WithString("headers", mcp.Description(`JSON array of request headers, e.g. [{"name":"Authorization","value":"Bearer x"}]`)),
		mcp.WithBoolean("wait", mcp.Description("Block until the load ends and return its journal record")),
		mcp.WithOutputSchema[LoadResponse](),
	), mcp.NewStructuredToolHandler(s.handleLoadURLs))

	// TOOL: load_files
	s.mcpServer.AddTool(mcp.NewTool("load_files",
		mcp.WithDescription("Load an imaging dataset (or a saved .json state) from files below the server's file root."),
		mcp.WithString("paths", mcp.Required(), mcp.Description("JSON array of paths relative to the file root, or a comma separated list")),
		mcp.WithBoolean("wait", mcp.Description("Block until the load ends and return its journal record")),
		mcp.WithOutputSchema[LoadResponse](),
	), mcp.NewStructuredToolHandler(s.handleLoadFiles))

	// TOOL: abort_load
	s.mcpServer.AddTool(mcp.NewTool("abort_load",
		mcp.WithDescription("Abort the load in progress. No-op when idle."),
		mcp.WithNumber("wait_seconds", mcp.Description("How long to wait for the backend to acknowledge")),
		mcp.WithOutputSchema[AbortResponse](),
	), mcp.NewStructuredToolHandler(s.handleAbort))

	// TOOL: load_status
	s.mcpServer.AddTool(mcp.NewTool("load_status",
		mcp.WithDescription("Report whether a load is active and whether the last dataset is mono-slice."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.ctl.Status())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleLoadURLs(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (LoadResponse, error) {
	raw, _ := args["urls"].(string)
	urls := splitList(raw)

	var headers []domain.Header
	if h, ok := args["headers"].(string); ok && h != "" {
		if err := json.Unmarshal([]byte(h), &headers); err != nil {
			return LoadResponse{}, fmt.Errorf("invalid headers: %w", err)
		}
	}

	wait, _ := args["wait"].(bool)
	return s.start(ctx, wait, func(ctx context.Context) error {
		return s.ctl.LoadURLs(ctx, urls, headers)
	})
}

func (s *Server) handleLoadFiles(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (LoadResponse, error) {
	raw, _ := args["paths"].(string)
	paths := splitList(raw)
	if err := file.Confined(s.ctl.FileRoot(), paths); err != nil {
		s.logger.Warn("MCP file load refused", "error", err)
		return LoadResponse{}, err
	}
	wait, _ := args["wait"].(bool)
	return s.start(ctx, wait, func(ctx context.Context) error {
		return s.ctl.LoadFiles(ctx, paths)
	})
}

func (s *Server) start(ctx context.Context, wait bool, load func(ctx context.Context) error) (LoadResponse, error) {
	// loads outlive the tool call
	loadCtx := context.WithoutCancel(ctx)
	if !wait {
		if err := load(loadCtx); err != nil {
			s.logger.Warn("MCP load rejected", "error", err)
			return LoadResponse{}, fmt.Errorf("load failed: %w", err)
		}
		return LoadResponse{Status: s.ctl.Status()}, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, DefaultWait)
	defer cancel()
	var status loadkit.Status
	rec, err := s.ctl.Await(waitCtx, func(context.Context) error {
		if err := load(loadCtx); err != nil {
			return err
		}
		status = s.ctl.Status()
		return nil
	})
	if err != nil {
		s.logger.Warn("MCP load failed", "error", err)
		return LoadResponse{}, fmt.Errorf("load failed: %w", err)
	}
	return LoadResponse{Status: status, Record: &rec}, nil
}

func (s *Server) handleAbort(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (AbortResponse, error) {
	ack := s.ctl.AbortLoad()
	select {
	case <-ack:
		return AbortResponse{Acknowledged: true}, nil
	default:
	}

	wait, _ := args["wait_seconds"].(float64)
	timer := time.NewTimer(time.Duration(wait * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-ack:
		return AbortResponse{Acknowledged: true}, nil
	case <-timer.C:
	case <-ctx.Done():
	}
	return AbortResponse{}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: loadkit://history
	s.mcpServer.AddResource(mcp.NewResource(HistoryURI, "Load Journal",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		records, err := s.ctl.Journal().List(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list journal: %w", err)
		}
		jsonBytes, _ := json.Marshal(records)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      HistoryURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

// splitList accepts a JSON array or a comma separated list.
func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			return list
		}
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
