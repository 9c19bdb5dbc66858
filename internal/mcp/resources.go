package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

const latestRunURI = "docexport://runs/latest"

func (s *Server) registerResources() {
	// ── docexport://runs/latest ────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		latestRunURI,
		"Latest export run",
		mcp.WithMIMEType("application/json"),
	), s.handleLatestRunResource)
}

func (s *Server) handleLatestRunResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	runs, err := s.export.ListRuns(1)
	if err != nil {
		return nil, err
	}

	text := "null"
	if len(runs) > 0 {
		data, _ := json.MarshalIndent(runs[0], "", "  ")
		text = string(data)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      latestRunURI,
			MIMEType: "application/json",
			Text:     text,
		},
	}, nil
}
