package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"docexport/internal/etl"
)

// Exporter is the service surface the MCP tools drive.
type Exporter interface {
	RunExport(ctx context.Context) (*etl.ExportResult, error)
	ListCollections(ctx context.Context) ([]string, error)
	Preview(ctx context.Context, collection string, maxRows int) (*etl.Table, error)
	ListRuns(limit int) ([]etl.ExportRun, error)
}

// Server is the MCP server for docexport.
// It exposes tools and resources so AI agents can inspect the store and trigger exports.
type Server struct {
	mcp    *server.MCPServer
	export Exporter
	log    zerolog.Logger
}

// New creates and configures a new MCP server with all tools and resources.
func New(export Exporter, log zerolog.Logger, version string) *Server {
	s := &Server{
		export: export,
		log:    log.With().Str("component", "mcp").Logger(),
	}

	s.mcp = server.NewMCPServer(
		"docexport-mcp",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerExportTools()
	s.registerResources()
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info().Msg("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// textResult wraps a plain string in a tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(v bool) *bool { return &v }
