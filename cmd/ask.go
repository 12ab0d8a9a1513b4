package cmd

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"agentdesk/internal/chat"
	"agentdesk/internal/cli"

	"github.com/spf13/cobra"
)

type askFlags struct {
	file        string
	session     string
	timeSeries  bool
	docAnalysis bool
	noStream    bool
}

func newAskCmd(rt *runtime) *cobra.Command {
	var f askFlags
	cmd := &cobra.Command{
		Use:   "ask <question>...",
		Short: "Ask your agents a question and stream the answer",
		Long: `Ask your agents a question. The answer is printed as it arrives;
document and image links are listed once it is complete. Press Ctrl+C to
stop a long answer.

Examples:
  agentdesk ask "What is the weather in Berlin?"
  agentdesk ask --file sales.csv --time-series "Forecast the next quarter"
  agentdesk ask --session 3f2a... "And the week after?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.App(cmd)
			if err != nil {
				return err
			}
			if _, err := app.Guard.Require(cmd.Context(), "asking agents"); err != nil {
				return err
			}

			req := chat.AskRequest{
				Question:    strings.Join(args, " "),
				SessionID:   f.session,
				TimeSeries:  f.timeSeries,
				DocAnalysis: f.docAnalysis,
			}
			if f.file != "" {
				file, err := os.Open(f.file)
				if err != nil {
					return fmt.Errorf("failed to open attachment: %w", err)
				}
				defer file.Close()
				req.File = &chat.Attachment{
					Name:        filepath.Base(f.file),
					ContentType: contentType(f.file),
					Content:     file,
				}
			}

			ctx := cmd.Context()
			if d := app.Config.StreamTimeout; d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}

			if f.noStream {
				stop := cli.StartSpinner(cmd.ErrOrStderr(), rt.flags.Quiet, "Waiting for the answer...")
				reply, err := app.Chat.Ask(ctx, req)
				if err != nil {
					stop()
					return err
				}
				answer, err := chat.Collect(reply)
				stop()
				printAnswer(cmd.OutOrStdout(), answer)
				return err
			}

			_, err = streamAnswer(ctx, app.Chat, req, cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Attach a file to the question")
	cmd.Flags().StringVarP(&f.session, "session", "s", "", "Continue a chat history session")
	cmd.Flags().BoolVar(&f.timeSeries, "time-series", false, "Forecast the attached CSV")
	cmd.Flags().BoolVar(&f.docAnalysis, "doc-analysis", false, "Analyse the attached document")
	cmd.Flags().BoolVar(&f.noStream, "no-stream", false, "Wait for the whole answer before printing")
	return cmd
}

// streamAnswer prints text events as they arrive and the collected links at
// the end. The partial answer is returned with any error.
func streamAnswer(ctx context.Context, c *chat.Client, req chat.AskRequest, out io.Writer) (chat.Answer, error) {
	reply, err := c.Ask(ctx, req)
	if err != nil {
		return chat.Answer{}, err
	}
	defer reply.Close()

	var (
		answer chat.Answer
		text   strings.Builder
	)
	finish := func() {
		answer.Text = text.String()
		if answer.Text != "" && !strings.HasSuffix(answer.Text, "\n") {
			fmt.Fprintln(out)
		}
		printLinks(out, answer)
	}

	for ev, err := range reply.Events() {
		if err != nil {
			finish()
			return answer, err
		}
		switch ev.Type {
		case chat.EventText:
			text.WriteString(ev.Data)
			fmt.Fprint(out, ev.Data)
		case chat.EventDoc:
			answer.Documents = append(answer.Documents, ev.Data)
		case chat.EventImage:
			answer.Images = append(answer.Images, ev.Data)
		case chat.EventError:
			finish()
			return answer, ev.Err()
		}
	}
	finish()
	return answer, nil
}

func printAnswer(out io.Writer, a chat.Answer) {
	if a.Text != "" {
		fmt.Fprintln(out, strings.TrimRight(a.Text, "\n"))
	}
	printLinks(out, a)
}

func printLinks(out io.Writer, a chat.Answer) {
	if len(a.Documents) > 0 {
		fmt.Fprintln(out, "\nDocuments:")
		for _, d := range a.Documents {
			fmt.Fprintf(out, "  %s\n", d)
		}
	}
	if len(a.Images) > 0 {
		fmt.Fprintln(out, "\nImages:")
		for _, i := range a.Images {
			fmt.Fprintf(out, "  %s\n", i)
		}
	}
}

func contentType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
