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

// newPrompter returns the prompter for cmd: stdin lines with
// --password-stdin, the terminal otherwise.
var newPrompter = func(cmd *cobra.Command, fromStdin bool) cli.Prompter {
	if fromStdin {
		return cli.NewReaderPrompter(cmd.InOrStdin())
	}
	in, ok := cmd.InOrStdin().(io.ReadCloser)
	if !ok {
		in = os.Stdin
	}
	return cli.TerminalPrompter{In: in, Out: cmd.ErrOrStderr()}
}

func newLoginCmd(rt *runtime) *cobra.Command {
	var passwordStdin bool
	cmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Sign in with a username and password",
		Long: `Sign in to the agent platform. The tokens are stored in the
credentials file so later commands reuse the session; an expired access
token is renewed automatically.

Examples:
  agentdesk login ada
  echo "$PASSWORD" | agentdesk login ada --password-stdin`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.App(cmd)
			if err != nil {
				return err
			}
			p := newPrompter(cmd, passwordStdin)

			username := ""
			if len(args) == 1 {
				username = args[0]
			} else if username, err = p.Line("Username: "); err != nil {
				return err
			}
			if username == "" {
				return fmt.Errorf("username is required")
			}
			password, err := p.Password("Password: ")
			if err != nil {
				return err
			}

			stop := cli.StartSpinner(cmd.ErrOrStderr(), rt.flags.Quiet, "Signing in...")
			err = app.Session.Login(cmd.Context(), username, password)
			stop()
			if err != nil {
				return err
			}

			user, _ := app.Session.User()
			rt.Status(cmd, cli.FormatSuccess(fmt.Sprintf("Logged in as %s", user.Name)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newRegisterCmd(rt *runtime) *cobra.Command {
	var (
		user          api.UserCreate
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account and sign in with it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.App(cmd)
			if err != nil {
				return err
			}
			user.Name = args[0]
			if user.Password, err = newPrompter(cmd, passwordStdin).Password("Password: "); err != nil {
				return err
			}
			if user.Password == "" {
				return fmt.Errorf("password is required")
			}

			if err := app.Session.Register(cmd.Context(), user); err != nil {
				return err
			}
			rt.Status(cmd, cli.FormatSuccess(fmt.Sprintf("Registered and logged in as %s", user.Name)))
			return nil
		},
	}
	cmd.Flags().StringVar(&user.CoreLLMName, "core-llm-name", "", "Model that routes questions to agents")
	cmd.Flags().StringVar(&user.CoreLLMURL, "core-llm-url", "", "Base URL of the routing model")
	cmd.Flags().StringVar(&user.CoreLLMKey, "core-llm-key", "", "API key of the routing model")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.App(cmd)
			if err != nil {
				return err
			}
			if err := app.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			rt.Status(cmd, cli.FormatSuccess("Logged out"))
			return nil
		},
	}
}

func newWhoamiCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.App(cmd)
			if err != nil {
				return err
			}
			user, err := app.Guard.Require(cmd.Context(), "whoami")
			if err != nil {
				return err
			}
			return rt.Print(cmd, formatting.Profile(user))
		},
	}
	cli.RegisterOutputFlags(cmd, &rt.flags)
	return cmd
}
