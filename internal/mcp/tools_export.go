package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"docexport/internal/etl"
)

func (s *Server) registerExportTools() {
	s.mcp.AddTool(mcp.NewTool("list_collections",
		mcp.WithDescription("List the top-level collections of the configured document store"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListCollections)

	s.mcp.AddTool(mcp.NewTool("run_export",
		mcp.WithDescription("Export every top-level collection into the configured CSV file, replacing it. Returns the run summary."),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRunExport)

	s.mcp.AddTool(mcp.NewTool("preview_collection",
		mcp.WithDescription("Flatten the first documents of one collection without writing anything. Returns columns and rows as they would appear in the CSV."),
		mcp.WithString("collection", mcp.Description("Collection id"), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Maximum documents to read (default 10)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handlePreviewCollection)

	s.mcp.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List recent export runs, newest first"),
		mcp.WithNumber("limit", mcp.Description("Maximum runs to return (default 20)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListRuns)
}

func (s *Server) handleListCollections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.export.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return jsonResult(names)
}

func (s *Server) handleRunExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.export.RunExport(ctx)
	if err != nil {
		if result == nil {
			return nil, fmt.Errorf("run export: %w", err)
		}
		// Fatal failures still carry a summary worth showing.
		s.log.Warn().Err(err).Msg("export failed")
	}
	return jsonResult(result)
}

// PreviewResult is the response from preview_collection.
type PreviewResult struct {
	Collection string     `json:"collection"`
	Columns    []string   `json:"columns"`
	Rows       [][]string `json:"rows"`
	Error      string     `json:"error,omitempty"`
}

func (s *Server) handlePreviewCollection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection := req.GetString("collection", "")
	if collection == "" {
		return nil, fmt.Errorf("collection is required")
	}
	limit := req.GetInt("limit", 10)

	table, err := s.export.Preview(ctx, collection, limit)
	if table == nil {
		return nil, fmt.Errorf("preview collection: %w", err)
	}
	return jsonResult(previewOf(collection, table, err))
}

func previewOf(collection string, table *etl.Table, err error) PreviewResult {
	res := PreviewResult{Collection: collection, Columns: table.Columns(), Rows: make([][]string, 0, table.Len())}
	for i := 0; i < table.Len(); i++ {
		res.Rows = append(res.Rows, table.Row(i))
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func (s *Server) handleListRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs, err := s.export.ListRuns(req.GetInt("limit", 20))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		return textResult("No export runs recorded yet"), nil
	}
	return jsonResult(runs)
}
