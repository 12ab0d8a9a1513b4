package cmd

import (
	"fmt"
	"io"
	"os"

	"agentdesk/internal/api"
	"agentdesk/internal/cli"
	"agentdesk/internal/formatting"

	"github.com/spf13/cobra"
)

func newMCPCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Manage MCP servers and their tools",
	}
	cmd.AddCommand(
		newMCPListCmd(rt),
		newMCPCreateCmd(rt),
		newMCPDeleteCmd(rt),
		newMCPToolsCmd(rt),
		newMCPAddToolCmd(rt),
		newMCPRemoveToolCmd(rt),
	)
	return cmd
}

func newMCPListCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your MCP servers",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(rt, cmd, "listing MCP servers")
			if err != nil {
				return err
			}
			servers, err := app.MCP.List(cmd.Context())
			if err != nil {
				return err
			}
			return rt.Print(cmd, formatting.MCPServerList(servers))
		},
	}
	cli.RegisterOutputFlags(cmd, &rt.flags)
	return cmd
}

func newMCPCreateCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Register an MCP server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(rt, cmd, "creating MCP servers")
			if err != nil {
				return err
			}
			if err := app.MCP.Create(cmd.Context(), args[0]); err != nil {
				return err
			}
			rt.Status(cmd, cli.FormatSuccess(fmt.Sprintf("MCP server %s created", args[0])))
			return nil
		},
	}
}

func newMCPDeleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <mcp-server-id>",
		Aliases: []string{"rm"},
		Short:   "Delete an MCP server",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("MCP server", args[0])
			if err != nil {
				return err
			}
			app, err := requireApp(rt, cmd, "deleting MCP servers")
			if err != nil {
				return err
			}
			if err := app.MCP.Delete(cmd.Context(), id); err != nil {
				return err
			}
			rt.Status(cmd, cli.FormatSuccess(fmt.Sprintf("MCP server %d deleted", id)))
			return nil
		},
	}
}

func newMCPToolsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools <mcp-server-id>",
		Short: "List the tools of an MCP server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("MCP server", args[0])
			if err != nil {
				return err
			}
			app, err := requireApp(rt, cmd, "listing tools")
			if err != nil {
				return err
			}
			tools, err := app.MCP.ListTools(cmd.Context(), id)
			if err != nil {
				return err
			}
			return rt.Print(cmd, formatting.ToolList(tools))
		},
	}
	cli.RegisterOutputFlags(cmd, &rt.flags)
	return cmd
}

func newMCPAddToolCmd(rt *runtime) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "add-tool <mcp-server-id>",
		Short: "Add a tool to an MCP server from a JSON definition",
		Long: `Add a tool to an MCP server. The definition is read from --file, or
from stdin when --file is "-".

Example definition:
  {
    "name": "forecast",
    "description": "Daily forecast for a city",
    "inputSchema": {"type": "object", "properties": {"city": {"type": "string"}}, "required": ["city"]},
    "handler": {"type": "http", "url": "https://weather.example.com/forecast", "method": "GET", "key": ""}
  }`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("MCP server", args[0])
			if err != nil {
				return err
			}
			data, err := readDefinition(cmd, file)
			if err != nil {
				return err
			}
			tool, err := api.ParseTool(data)
			if err != nil {
				return err
			}
			app, err := requireApp(rt, cmd, "adding tools")
			if err != nil {
				return err
			}
			if err := app.MCP.CorrelateTool(cmd.Context(), id, tool); err != nil {
				return err
			}
			rt.Status(cmd, cli.FormatSuccess(fmt.Sprintf("Tool %s added to MCP server %d", tool.Name, id)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Tool definition file, - for stdin")
	return cmd
}

func newMCPRemoveToolCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-tool <mcp-server-id> <tool-name>",
		Short: "Remove a tool from an MCP server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("MCP server", args[0])
			if err != nil {
				return err
			}
			app, err := requireApp(rt, cmd, "removing tools")
			if err != nil {
				return err
			}
			if err := app.MCP.DiscorrelateTool(cmd.Context(), id, args[1]); err != nil {
				return err
			}
			rt.Status(cmd, cli.FormatSuccess(fmt.Sprintf("Tool %s removed from MCP server %d", args[1], id)))
			return nil
		},
	}
}

func readDefinition(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "-" || file == "" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read tool definition: %w", err)
	}
	return data, nil
}
