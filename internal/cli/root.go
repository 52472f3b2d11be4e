// Package cli implements the streakbot command line.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	// ConfigPath is an optional YAML/TOML/JSON file. Environment variables
	// override its values.
	ConfigPath string
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "streakbot",
		Short: "Daily drawing streak bot for Discord",
		Long: `streakbot tracks daily image posts in Discord channels, awards XP for
every day a member posts, keeps per-guild scoreboards and resets missed
streaks once a day.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a config file (env vars override it)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewImportLegacyCommand(opts))

	return cmd
}
