package formatting

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"agentdesk/internal/api"
	"agentdesk/internal/session"
	pkgstrings "agentdesk/pkg/strings"
)

const (
	descriptionWidth = 48
	contentWidth     = 72
)

// AgentList renders agents. LLM keys never leave the process in clear.
type AgentList []api.Agent

func (l AgentList) Columns() []string {
	return []string{"ID", "Name", "Version", "Streaming", "LLM", "Description"}
}

func (l AgentList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, a := range l {
		rows = append(rows, []string{
			strconv.Itoa(a.ID),
			a.Name,
			OrDash(a.Version),
			YesNo(a.Streaming),
			OrDash(a.LLMName),
			pkgstrings.Truncate(a.Description, descriptionWidth),
		})
	}
	return rows
}

func (l AgentList) MarshalJSON() ([]byte, error) {
	out := make([]api.Agent, len(l))
	for i, a := range l {
		if a.LLMKey != "" {
			a.LLMKey = session.NewSecret(a.LLMKey).String()
		}
		out[i] = a
	}
	return json.Marshal(out)
}

// SessionList renders chat history sessions.
type SessionList []api.Session

func (l SessionList) Columns() []string {
	return []string{"Session", "Title", "Created", "Messages"}
}

func (l SessionList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		rows = append(rows, []string{
			s.ID,
			OrDash(pkgstrings.Truncate(s.Title, descriptionWidth)),
			OrDash(s.CreatedAt),
			strconv.Itoa(len(s.Messages)),
		})
	}
	return rows
}

// Transcript renders the messages of one session.
type Transcript api.Session

func (t Transcript) Columns() []string {
	return []string{"Role", "Type", "Content", "Time"}
}

func (t Transcript) Rows() [][]string {
	rows := make([][]string, 0, len(t.Messages))
	for _, m := range t.Messages {
		rows = append(rows, []string{
			m.Role,
			OrDash(m.Type),
			pkgstrings.Truncate(m.Content, contentWidth),
			OrDash(m.Timestamp),
		})
	}
	return rows
}

func (t Transcript) MarshalJSON() ([]byte, error) {
	return json.Marshal(api.Session(t))
}

// MCPServerList renders MCP server registrations.
type MCPServerList []api.MCPServer

func (l MCPServerList) Columns() []string {
	return []string{"ID", "Name"}
}

func (l MCPServerList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		rows = append(rows, []string{strconv.Itoa(s.ID), s.Name})
	}
	return rows
}

// ToolList renders the tools attached to an MCP server.
type ToolList []api.Tool

func (l ToolList) Columns() []string {
	return []string{"Name", "Handler", "Parameters", "Description"}
}

func (l ToolList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, t := range l {
		handler := strings.TrimSpace(strings.ToUpper(t.Handler.Method) + " " + t.Handler.URL)
		params := make([]string, 0, len(t.InputSchema.Properties))
		for name := range t.InputSchema.Properties {
			params = append(params, name)
		}
		slices.Sort(params)
		rows = append(rows, []string{
			t.Name,
			OrDash(handler),
			OrDash(strings.Join(params, ",")),
			pkgstrings.Truncate(t.Description, descriptionWidth),
		})
	}
	return rows
}

// Profile renders the signed-in user as field/value pairs.
type Profile session.User

func (p Profile) Columns() []string {
	return []string{"Field", "Value"}
}

func (p Profile) Rows() [][]string {
	key := "-"
	if p.CoreLLMKey.IsSet() {
		key = p.CoreLLMKey.String()
	}
	return [][]string{
		{"ID", strconv.Itoa(p.ID)},
		{"Name", p.Name},
		{"Core LLM", OrDash(p.CoreLLMName)},
		{"Core LLM URL", OrDash(p.CoreLLMURL)},
		{"Core LLM Key", key},
	}
}

func (p Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(session.User(p))
}
