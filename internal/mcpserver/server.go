package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all FinPol tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("finpol", "1.0.0")
	client := NewFinPolClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolAnalyzeTransaction, h.HandleAnalyzeTransaction)
	s.AddTool(ToolSearchRegulations, h.HandleSearchRegulations)
	s.AddTool(ToolGetTransaction, h.HandleGetTransaction)
	s.AddTool(ToolListTransactions, h.HandleListTransactions)
	s.AddTool(ToolComplianceReport, h.HandleComplianceReport)

	return s
}
