// Package logging provides the structured logging setup shared by the
// agentdesk CLI and library packages.
//
// It is a thin layer over log/slog. Every entry carries a subsystem attribute
// so output from the dispatcher, the refresh coordinator, the stream consumer
// and the session facade can be told apart.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//	logging.Info("config", "Loaded configuration from %s", path)
//	logging.Error("session", err, "Logout request failed")
//
// Components that accept a *slog.Logger option can be given a tagged logger:
//
//	c := client.New(baseURL, store, client.WithLogger(logging.Logger("client")))
//
// Token values must never be passed to any of these functions.
package logging
