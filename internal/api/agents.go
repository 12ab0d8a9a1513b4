package api

import (
	"context"
	"net/url"
	"strconv"
)

// Agent is an agent card owned by the current user.
type Agent struct {
	ID          int      `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Version     string   `json:"version,omitempty"`
	Streaming   bool     `json:"streaming"`
	Examples    []string `json:"examples,omitempty"`
	LLMName     string   `json:"llm_name,omitempty"`
	LLMURL      string   `json:"llm_url,omitempty"`
	LLMKey      string   `json:"llm_key,omitempty"`
}

// Agents wraps the agent card endpoints.
type Agents struct {
	sender  Sender
	askPath string
}

// NewAgents creates the agent API.
func NewAgents(sender Sender, endpoints Endpoints) *Agents {
	return &Agents{sender: sender, askPath: endpoints.WithDefaults().Ask}
}

// Create registers a new agent card. The server echoes nothing back.
func (a *Agents) Create(ctx context.Context, agent Agent) error {
	if agent.Version == "" {
		agent.Version = "1.0.0"
	}
	_, err := post[struct{}](ctx, a.sender, "/agent/create", agent)
	return err
}

// List returns the current user's agents.
func (a *Agents) List(ctx context.Context) ([]Agent, error) {
	return get[[]Agent](ctx, a.sender, "/agent/list", nil)
}

// Delete removes the agent with the given id.
func (a *Agents) Delete(ctx context.Context, id int) error {
	_, err := post[struct{}](ctx, a.sender, "/agent/delete", id)
	return err
}

// CorrelateMCP attaches an MCP server to an agent.
func (a *Agents) CorrelateMCP(ctx context.Context, agentID, mcpServerID int) error {
	body := map[string]int{
		"agent_card_id": agentID,
		"mcp_server_id": mcpServerID,
	}
	_, err := post[struct{}](ctx, a.sender, "/agent/corr_mcp", body)
	return err
}

// FindMCP lists the MCP servers attached to an agent.
func (a *Agents) FindMCP(ctx context.Context, agentID int) ([]MCPServer, error) {
	return get[[]MCPServer](ctx, a.sender, "/agent/find_mcp",
		url.Values{"agent_card_id": {strconv.Itoa(agentID)}})
}

// Ask sends a question to the user's agents and waits for the whole answer.
func (a *Agents) Ask(ctx context.Context, question string) (string, error) {
	return get[string](ctx, a.sender, a.askPath, url.Values{"question": {question}})
}
