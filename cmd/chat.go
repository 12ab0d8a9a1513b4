package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"agentdesk/internal/chat"
	"agentdesk/internal/cli"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

// lineReader is the part of *readline.Instance the REPL uses.
type lineReader interface {
	Readline() (string, error)
	Close() error
}

// newLineReader opens the interactive prompt; tests replace it.
var newLineReader = func(cmd *cobra.Command) (lineReader, error) {
	return readline.NewEx(&readline.Config{
		Prompt:          "you> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".agentdesk_chat_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          cmd.OutOrStdout(),
	})
}

const chatHelp = `Commands:
  /new     start a new history session
  /session show the current session id
  /help    show this help
  /exit    leave the chat`

func newChatCmd(rt *runtime) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat with your agents",
		Long: `Start an interactive chat. Each line is sent as a question and the
answer is streamed back. Questions share one history session so agents see
the earlier conversation. Type /help for commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.App(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			user, err := app.Guard.Require(ctx, "chatting")
			if err != nil {
				return err
			}
			app.WatchCredentials(ctx)

			if sessionID == "" {
				s, err := app.History.Create(ctx)
				if err != nil {
					return fmt.Errorf("failed to start a history session: %w", err)
				}
				sessionID = s.ID
			}

			rl, err := newLineReader(cmd)
			if err != nil {
				return fmt.Errorf("failed to create readline instance: %w", err)
			}
			defer rl.Close()

			out := cmd.OutOrStdout()
			rt.Status(cmd, fmt.Sprintf("Chatting as %s in session %s. Type /help for commands.", user.Name, sessionID))

			for {
				if ctx.Err() != nil {
					return nil
				}
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return fmt.Errorf("readline error: %w", err)
				}

				input := strings.TrimSpace(line)
				switch input {
				case "":
					continue
				case "/exit", "/quit":
					return nil
				case "/help":
					fmt.Fprintln(out, chatHelp)
					continue
				case "/session":
					fmt.Fprintln(out, sessionID)
					continue
				case "/new":
					s, err := app.History.Create(ctx)
					if err != nil {
						fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatError(err))
						continue
					}
					sessionID = s.ID
					rt.Status(cmd, fmt.Sprintf("New session %s", sessionID))
					continue
				}

				_, err = streamAnswer(ctx, app.Chat, chat.AskRequest{Question: input, SessionID: sessionID}, out)
				if err != nil {
					// A dead session ends the chat; anything else is shown and the chat goes on.
					if cli.ExitCode(err) == cli.ExitCodeAuthRequired {
						return err
					}
					fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatError(err))
				}
				if !app.Session.IsAuthenticated() {
					_, err := app.Guard.Require(ctx, "chatting")
					return err
				}
			}
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Continue an existing history session")
	return cmd
}
