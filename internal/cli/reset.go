package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dailydraw/streak-bot/internal/application/command"
)

// ResetOptions holds flags for the reset command.
type ResetOptions struct {
	*RootOptions
	Force bool
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Run the daily reset once",
		Long: `Run the daily reset for the current day in the configured timezone.

Without --force the run is skipped when the day was already reset. No
banners are posted; the bot announces scheduled resets only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			app, err := newApp(ctx, opts.RootOptions)
			if err != nil {
				return err
			}
			defer app.Close()

			if _, err := app.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			reset := command.NewDailyResetHandler(app.Store, app.Cache, nil, app.Clock)
			summary, err := reset.Handle(ctx, command.DailyResetCommand{
				Force:   opts.Force,
				Trigger: command.TriggerCLI,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if summary.Skipped {
				fmt.Fprintf(out, "reset for %s already applied, use --force to run it again\n", summary.Day)
				return nil
			}
			fmt.Fprintf(out, "reset for %s done: %d records, %d kept their streak, %d lost it\n",
				summary.Day, summary.Total, summary.Kept, summary.Missed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "run even if today's reset was already applied")

	return cmd
}
