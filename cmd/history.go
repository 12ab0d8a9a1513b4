package cmd

import (
	"fmt"

	"agentdesk/internal/cli"
	"agentdesk/internal/formatting"

	"github.com/spf13/cobra"
)

func newHistoryCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse and manage chat history sessions",
	}
	cmd.AddCommand(
		newHistoryListCmd(rt),
		newHistoryShowCmd(rt),
		newHistoryNewCmd(rt),
		newHistoryDeleteCmd(rt),
	)
	return cmd
}

func newHistoryListCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List history sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(rt, cmd, "listing history")
			if err != nil {
				return err
			}
			sessions, err := app.History.List(cmd.Context())
			if err != nil {
				return err
			}
			return rt.Print(cmd, formatting.SessionList(sessions))
		},
	}
	cli.RegisterOutputFlags(cmd, &rt.flags)
	return cmd
}

func newHistoryShowCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the messages of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(rt, cmd, "loading history")
			if err != nil {
				return err
			}
			s, err := app.History.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return rt.Print(cmd, formatting.Transcript(s))
		},
	}
	cli.RegisterOutputFlags(cmd, &rt.flags)
	return cmd
}

func newHistoryNewCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new history session and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(rt, cmd, "creating history sessions")
			if err != nil {
				return err
			}
			s, err := app.History.Create(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.ID)
			return nil
		},
	}
}

func newHistoryDeleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <session-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a history session",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(rt, cmd, "deleting history")
			if err != nil {
				return err
			}
			if err := app.History.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			rt.Status(cmd, cli.FormatSuccess(fmt.Sprintf("Session %s deleted", args[0])))
			return nil
		},
	}
}
