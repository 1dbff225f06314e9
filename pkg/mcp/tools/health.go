package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type healthResult struct {
	Status            string `json:"status"`
	Version           string `json:"version"`
	RendererAvailable bool   `json:"renderer_available"`
	LLMConfigured     bool   `json:"llm_configured"`
}

// HealthToolDeps reports what the health tool probes.
type HealthToolDeps struct {
	Version string
	// RendererAvailable is called on every request; nil means no renderer.
	RendererAvailable func() bool
	LLMConfigured     bool
}

// RegisterHealthTool adds a health check tool to the MCP server.
func RegisterHealthTool(s *server.MCPServer, deps HealthToolDeps) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and whether diagrams and expression conversion are available"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := healthResult{
			Status:        "ok",
			Version:       deps.Version,
			LLMConfigured: deps.LLMConfigured,
		}
		if deps.RendererAvailable != nil {
			res.RendererAvailable = deps.RendererAvailable()
		}
		result, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
