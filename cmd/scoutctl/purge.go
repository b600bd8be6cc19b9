package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fixturescout/scout/internal/reminder"
	"github.com/fixturescout/scout/pkg/database"
)

func newPurgeCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every reminder whose fixture has not kicked off yet",
		Long: "Deletes all reminders for future fixtures directly in the database, " +
			"regardless of status. Past reminders are kept for audit.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to purge without --yes")
			}

			dsn := viper.GetString("db_dsn")
			if dsn == "" {
				return fmt.Errorf("SCOUT_DB_DSN (or --db-dsn) is required")
			}
			db, err := database.Connect(dsn)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer db.Close()

			deleted, err := reminder.NewRepository(db).DeleteFutureKickoffs(cmd.Context(), time.Now().UTC())
			if err != nil {
				return fmt.Errorf("purge: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d reminders\n", deleted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the purge")
	return cmd
}
