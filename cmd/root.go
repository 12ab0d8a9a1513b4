package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"agentdesk/internal/cli"
	"agentdesk/internal/formatting"

	"github.com/spf13/cobra"
)

// version is set by main from the build.
var version = "dev"

// extraAppOptions are appended to every cli.NewApp call. Tests use it to
// inject a credential store.
var extraAppOptions []cli.AppOption

// runtime carries the global flags and the lazily built App through one
// invocation.
type runtime struct {
	flags       cli.CommandFlags
	showMetrics bool
	app         *cli.App
}

// App builds the application on first use so commands like version never
// touch the configuration.
func (r *runtime) App(cmd *cobra.Command) (*cli.App, error) {
	if r.app != nil {
		return r.app, nil
	}
	cfg, err := cli.LoadConfig(&r.flags, cli.Getenv)
	if err != nil {
		return nil, err
	}
	cli.InitLogging(cfg, cmd.ErrOrStderr())

	opts := append([]cli.AppOption{cli.WithUserAgent("agentdesk/" + version)}, extraAppOptions...)
	app, err := cli.NewApp(cfg, opts...)
	if err != nil {
		return nil, err
	}
	r.app = app
	return app, nil
}

// Print writes res to stdout in the format selected by --output.
func (r *runtime) Print(cmd *cobra.Command, res formatting.Resource) error {
	opts, err := r.flags.FormatOptions()
	if err != nil {
		return err
	}
	return formatting.New(opts).Format(cmd.OutOrStdout(), res)
}

// Status writes a progress or confirmation line to stderr unless --quiet.
func (r *runtime) Status(cmd *cobra.Command, msg string) {
	if !r.flags.Quiet {
		fmt.Fprintln(cmd.ErrOrStderr(), msg)
	}
}

func (r *runtime) printMetrics(cmd *cobra.Command) error {
	if !r.showMetrics || r.app == nil {
		return nil
	}
	snap, err := cli.Snapshot(r.app.Registry)
	if err != nil {
		return err
	}
	opts, err := r.flags.FormatOptions()
	if err != nil {
		opts = formatting.Options{}
	}
	return formatting.New(opts).Format(cmd.ErrOrStderr(), snap)
}

// rootCmd represents the base command for the agentdesk application.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	rt := &runtime{}
	cmd := &cobra.Command{
		Use:   "agentdesk",
		Short: "Talk to your agents from the terminal",
		Long: `agentdesk is a command-line client for the agent platform API.
It signs you in, keeps your session fresh, streams answers from your agents
and manages agents, MCP servers and chat history.`,
		// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return rt.printMetrics(cmd)
		},
	}
	cmd.SetVersionTemplate(`{{printf "agentdesk version %s\n" .Version}}`)

	cli.RegisterGlobalFlags(cmd, &rt.flags)
	cmd.PersistentFlags().BoolVar(&rt.showMetrics, "show-metrics", false, "Print request, refresh and stream metrics to stderr on exit")

	cmd.AddCommand(
		newVersionCmd(),
		newSelfUpdateCmd(),
		newLoginCmd(rt),
		newRegisterCmd(rt),
		newLogoutCmd(rt),
		newWhoamiCmd(rt),
		newAskCmd(rt),
		newChatCmd(rt),
		newAgentsCmd(rt),
		newHistoryCmd(rt),
		newMCPCmd(rt),
	)
	return cmd
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return version
}

// Execute is the main entry point for the CLI application.
// Ctrl+C cancels the running command; a stream in progress is closed.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		os.Exit(cli.ExitCode(err))
	}
}

// parseID parses a numeric resource id argument.
func parseID(kind, s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, s)
	}
	return id, nil
}
