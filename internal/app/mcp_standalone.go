package app

import (
	mcpserver "docexport/internal/mcp"
)

// ServeMCP runs the export service as an MCP server on stdin/stdout until
// the client disconnects.
func (a *App) ServeMCP(version string) error {
	srv := mcpserver.New(a.Export, a.log, version)
	return srv.ServeStdio()
}
