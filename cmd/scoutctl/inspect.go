package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fixturescout/scout/internal/fixture"
	"github.com/fixturescout/scout/internal/reminder"
	"github.com/fixturescout/scout/internal/user"
	"github.com/fixturescout/scout/pkg/database"
)

type ownerView struct {
	ID        string `json:"user_id"`
	Reachable bool   `json:"reachable"`
}

type inspectView struct {
	Reminder *reminder.Reminder `json:"reminder"`
	Fixture  *fixture.Fixture   `json:"fixture,omitempty"`
	Owner    *ownerView         `json:"owner,omitempty"`
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <reminder-id>",
		Short: "Show a reminder with its fixture and owner",
		Long: "Loads one reminder directly from the database, together with its " +
			"fixture and whether the owning user is still reachable on any channel.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn := viper.GetString("db_dsn")
			if dsn == "" {
				return fmt.Errorf("SCOUT_DB_DSN (or --db-dsn) is required")
			}
			db, err := database.Connect(dsn)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer db.Close()

			ctx := cmd.Context()
			rem, err := reminder.NewRepository(db).GetByID(ctx, args[0])
			if err != nil {
				return fmt.Errorf("load reminder: %w", err)
			}
			if rem == nil {
				return fmt.Errorf("reminder %s not found", args[0])
			}

			view := inspectView{Reminder: rem}

			f, err := fixture.NewRepository(db).GetByID(ctx, rem.FixtureID)
			if err != nil {
				return fmt.Errorf("load fixture: %w", err)
			}
			view.Fixture = f

			owner, err := user.NewRepository(db).GetByID(ctx, rem.UserID)
			switch {
			case errors.Is(err, user.ErrNotFound):
				view.Owner = &ownerView{ID: rem.UserID}
			case err != nil:
				return fmt.Errorf("load owner: %w", err)
			default:
				view.Owner = &ownerView{ID: owner.ID, Reachable: owner.HasContact()}
			}

			out, err := json.MarshalIndent(view, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
