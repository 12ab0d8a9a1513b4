package cmd

import (
	"fmt"
	"strings"

	"agentdesk/internal/api"
	"agentdesk/internal/cli"
	"agentdesk/internal/formatting"

	"github.com/spf13/cobra"
)

func newAgentsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "agents",
		Aliases: []string{"agent"},
		Short:   "Manage your agents",
	}
	cmd.AddCommand(
		newAgentsListCmd(rt),
		newAgentsCreateCmd(rt),
		newAgentsDeleteCmd(rt),
		newAgentsLinkCmd(rt),
		newAgentsServersCmd(rt),
		newAgentsAskCmd(rt),
	)
	return cmd
}

// requireApp builds the App and checks that a user is signed in.
func requireApp(rt *runtime, cmd *cobra.Command, operation string) (*cli.App, error) {
	app, err := rt.App(cmd)
	if err != nil {
		return nil, err
	}
	if _, err := app.Guard.Require(cmd.Context(), operation); err != nil {
		return nil, err
	}
	return app, nil
}

func newAgentsListCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your agents",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(rt, cmd, "listing agents")
			if err != nil {
				return err
			}
			agents, err := app.Agents.List(cmd.Context())
			if err != nil {
				return err
			}
			return rt.Print(cmd, formatting.AgentList(agents))
		},
	}
	cli.RegisterOutputFlags(cmd, &rt.flags)
	return cmd
}

func newAgentsCreateCmd(rt *runtime) *cobra.Command {
	var agent api.Agent
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Register a new agent",
		Long: `Register a new agent card.

Examples:
  agentdesk agents create weather --description "Forecasts" --llm-name gpt-4o \
    --llm-url https://api.openai.com/v1 --llm-key "$KEY" --example "Rain in Paris?"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(rt, cmd, "creating agents")
			if err != nil {
				return err
			}
			agent.Name = args[0]
			if err := app.Agents.Create(cmd.Context(), agent); err != nil {
				return err
			}
			rt.Status(cmd, cli.FormatSuccess(fmt.Sprintf("Agent %s created", agent.Name)))
			return nil
		},
	}
	cmd.Flags().StringVar(&agent.Description, "description", "", "What the agent does")
	cmd.Flags().StringVar(&agent.Version, "agent-version", "", "Agent version (default 1.0.0)")
	cmd.Flags().BoolVar(&agent.Streaming, "streaming", false, "The agent streams its answers")
	cmd.Flags().StringSliceVar(&agent.Examples, "example", nil, "Example question (repeatable)")
	cmd.Flags().StringVar(&agent.LLMName, "llm-name", "", "Model backing the agent")
	cmd.Flags().StringVar(&agent.LLMURL, "llm-url", "", "Base URL of the model")
	cmd.Flags().StringVar(&agent.LLMKey, "llm-key", "", "API key of the model")
	return cmd
}

func newAgentsDeleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <agent-id>",
		Aliases: []string{"rm"},
		Short:   "Delete an agent",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("agent", args[0])
			if err != nil {
				return err
			}
			app, err := requireApp(rt, cmd, "deleting agents")
			if err != nil {
				return err
			}
			if err := app.Agents.Delete(cmd.Context(), id); err != nil {
				return err
			}
			rt.Status(cmd, cli.FormatSuccess(fmt.Sprintf("Agent %d deleted", id)))
			return nil
		},
	}
}

func newAgentsLinkCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "link <agent-id> <mcp-server-id>",
		Short: "Give an agent the tools of an MCP server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			agentID, err := parseID("agent", args[0])
			if err != nil {
				return err
			}
			serverID, err := parseID("MCP server", args[1])
			if err != nil {
				return err
			}
			app, err := requireApp(rt, cmd, "linking MCP servers")
			if err != nil {
				return err
			}
			if err := app.Agents.CorrelateMCP(cmd.Context(), agentID, serverID); err != nil {
				return err
			}
			rt.Status(cmd, cli.FormatSuccess(fmt.Sprintf("MCP server %d linked to agent %d", serverID, agentID)))
			return nil
		},
	}
}

func newAgentsServersCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers <agent-id>",
		Short: "List the MCP servers linked to an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("agent", args[0])
			if err != nil {
				return err
			}
			app, err := requireApp(rt, cmd, "listing agent MCP servers")
			if err != nil {
				return err
			}
			servers, err := app.Agents.FindMCP(cmd.Context(), id)
			if err != nil {
				return err
			}
			return rt.Print(cmd, formatting.MCPServerList(servers))
		},
	}
	cli.RegisterOutputFlags(cmd, &rt.flags)
	return cmd
}

func newAgentsAskCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>...",
		Short: "Ask your agents without streaming",
		Long: `Ask your agents and print the answer once it is complete. Use the
top-level ask command to stream answers and attach files.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(rt, cmd, "asking agents")
			if err != nil {
				return err
			}
			stop := cli.StartSpinner(cmd.ErrOrStderr(), rt.flags.Quiet, "Waiting for the answer...")
			answer, err := app.Agents.Ask(cmd.Context(), strings.Join(args, " "))
			stop()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}
