package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// MCPServer is a user-defined MCP server.
type MCPServer struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ToolInputSchema is the JSON schema of a tool's arguments.
type ToolInputSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required"`
}

// ToolHandler describes the HTTP call a tool performs.
type ToolHandler struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Method string `json:"method"`
	Key    string `json:"key"`
}

// Tool is a tool exposed by an MCP server.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema ToolInputSchema `json:"inputSchema"`
	Handler     ToolHandler     `json:"handler"`
}

// ParseTool decodes a tool definition from JSON text.
func ParseTool(data []byte) (Tool, error) {
	var t Tool
	if err := json.Unmarshal(data, &t); err != nil {
		return Tool{}, fmt.Errorf("invalid tool definition: %w", err)
	}
	if t.Name == "" {
		return Tool{}, fmt.Errorf("invalid tool definition: name is required")
	}
	return t, nil
}

// MCP wraps the MCP server management endpoints.
type MCP struct {
	sender Sender
}

// NewMCP creates the MCP API.
func NewMCP(sender Sender) *MCP {
	return &MCP{sender: sender}
}

// Create registers a new MCP server.
func (m *MCP) Create(ctx context.Context, name string) error {
	_, err := post[any](ctx, m.sender, "/manager_mcp/create", name)
	return err
}

// Delete removes an MCP server.
func (m *MCP) Delete(ctx context.Context, id int) error {
	_, err := post[any](ctx, m.sender, "/manager_mcp/delete", id)
	return err
}

// List returns the current user's MCP servers.
func (m *MCP) List(ctx context.Context) ([]MCPServer, error) {
	return get[[]MCPServer](ctx, m.sender, "/manager_mcp/list", nil)
}

// CorrelateTool adds a tool to an MCP server.
func (m *MCP) CorrelateTool(ctx context.Context, mcpServerID int, tool Tool) error {
	body := struct {
		MCPServerID int  `json:"mcp_server_id"`
		Tool        Tool `json:"tool"`
	}{mcpServerID, tool}
	_, err := post[any](ctx, m.sender, "/manager_mcp/corr_tool", body)
	return err
}

// DiscorrelateTool removes a tool from an MCP server.
func (m *MCP) DiscorrelateTool(ctx context.Context, mcpServerID int, toolName string) error {
	body := struct {
		MCPServerID int    `json:"mcp_server_id"`
		ToolName    string `json:"tool_name"`
	}{mcpServerID, toolName}
	_, err := post[any](ctx, m.sender, "/manager_mcp/discorr_tool", body)
	return err
}

// ListTools returns the tools of an MCP server.
func (m *MCP) ListTools(ctx context.Context, mcpServerID int) ([]Tool, error) {
	return get[[]Tool](ctx, m.sender, "/manager_mcp/tool/list",
		url.Values{"mcp_server_id": {strconv.Itoa(mcpServerID)}})
}
