package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dailydraw/streak-bot/internal/infrastructure/persistence/sqlite"
	"github.com/dailydraw/streak-bot/pkg/logger"
)

// ImportOptions holds flags for the import-legacy command.
type ImportOptions struct {
	*RootOptions
	Path  string
	Table string
}

// NewImportLegacyCommand creates the import-legacy command.
func NewImportLegacyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import-legacy",
		Short: "Copy records from a database of the previous bot",
		Long: `Copy every record from the single-table SQLite database written by the
previous bot into the configured record store. Existing records with the
same user and guild are overwritten.

Example:
  streakbot import-legacy --path ./daily_challenge_data.db --table daily_challenge`,
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

			reader, err := sqlite.OpenLegacy(opts.Path, opts.Table, app.StoreOptions)
			if err != nil {
				return err
			}
			defer reader.Close()

			records, err := reader.ReadAll(ctx)
			if err != nil {
				return err
			}

			n, err := app.Store.Import(ctx, records)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			if err := app.Cache.InvalidateAll(ctx); err != nil {
				app.Log.Warn("scoreboard cache invalidation failed", logger.Err(err))
			}

			app.Log.Info("legacy records imported",
				logger.String("path", opts.Path),
				logger.String("table", opts.Table),
				logger.Int("count", n),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d record(s) from %s\n", n, opts.Table)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Path, "path", "", "path to the legacy SQLite database (required)")
	cmd.Flags().StringVar(&opts.Table, "table", "daily_challenge", "legacy table name")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}
