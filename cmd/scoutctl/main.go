package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "scoutctl",
		Short: "Operational CLI for the fixture-reminder pipeline",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			viper.SetEnvPrefix("SCOUT")
			viper.AutomaticEnv()
		},
	}

	root.PersistentFlags().String("scout-url", "http://localhost:8081", "base URL of the scout service")
	root.PersistentFlags().String("scheduler-url", "http://localhost:8082", "base URL of the scheduler service")
	root.PersistentFlags().String("db-dsn", "", "postgres DSN (overrides SCOUT_DB_DSN)")
	viper.BindPFlag("scout_url", root.PersistentFlags().Lookup("scout-url"))
	viper.BindPFlag("scheduler_url", root.PersistentFlags().Lookup("scheduler-url"))
	viper.BindPFlag("db_dsn", root.PersistentFlags().Lookup("db-dsn"))

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newDispatchCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newPurgeCmd())
	return root
}
