package cli

import (
	"agentdesk/internal/formatting"

	"github.com/spf13/cobra"
)

// CommandFlags holds the flag values shared by every command.
type CommandFlags struct {
	// ConfigPath is the configuration file (default ~/.config/agentdesk/config.yaml)
	ConfigPath string
	// BaseURL overrides the API server address from the config file
	BaseURL string
	// LogLevel overrides the configured log level
	LogLevel string
	// OutputFormat specifies the desired output format (table, plain, json, yaml)
	OutputFormat string
	// NoHeaders suppresses the header row in table output
	NoHeaders bool
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
	// NoColor disables colored output
	NoColor bool
}

// RegisterGlobalFlags registers the persistent flags on the root command.
//
// The registered flags are:
//   - --config: Configuration file
//   - --base-url: API server address (env: AGENTDESK_BASE_URL)
//   - --log-level: debug, info, warn or error (env: AGENTDESK_LOG_LEVEL)
//   - --quiet/-q: Suppress non-essential output
//   - --no-color: Disable colored output
func RegisterGlobalFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "Configuration file (default ~/.config/agentdesk/config.yaml)")
	cmd.PersistentFlags().StringVar(&flags.BaseURL, "base-url", "", "API server address (env: AGENTDESK_BASE_URL)")
	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn or error (env: AGENTDESK_LOG_LEVEL)")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().BoolVar(&flags.NoColor, "no-color", false, "Disable colored output")
}

// RegisterOutputFlags registers the formatting flags for commands that print
// resources.
//
// The registered flags are:
//   - --output/-o: Output format (table, plain, json, yaml), default: "table"
//   - --no-headers: Suppress header row in table output
func RegisterOutputFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", "table", "Output format (table, plain, json, yaml)")
	cmd.Flags().BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress header row in table output")
}

// FormatOptions converts the flags to formatting options.
func (f *CommandFlags) FormatOptions() (formatting.Options, error) {
	format, err := formatting.ParseFormat(f.OutputFormat)
	if err != nil {
		return formatting.Options{}, err
	}
	return formatting.Options{
		Format:    format,
		NoHeaders: f.NoHeaders,
		Color:     !f.NoColor,
	}, nil
}
