// Package cli holds the pieces shared by the agentdesk commands.
//
// # Wiring
//
// LoadConfig merges the config file, the environment and the global flags.
// NewApp turns the result into one credential store shared by the request
// dispatcher, the stream client and the session facade, and registers the
// facade as the dispatcher's auth-expired listener:
//
//	cfg, err := cli.LoadConfig(&flags, cli.Getenv)
//	app, err := cli.NewApp(cfg)
//	if err := app.Session.Init(ctx); err != nil { ... }
//	user, err := app.Guard.Require(ctx, "listing agents")
//
// # Terminal helpers
//
//   - StartSpinner for progress while waiting on the server
//   - TerminalPrompter for readline prompts, with unechoed passwords
//   - ExitCode and FormatError for consistent failure reporting
//   - Snapshot for printing the process metrics
package cli
