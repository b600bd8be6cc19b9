package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <user-id>",
		Short: "Run reminder generation for a user",
		Long:  "Calls the scout service, which replaces the user's pending reminders based on their stored selection criteria.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := fmt.Sprintf("%s/scout/users/%s/run",
				viper.GetString("scout_url"), url.PathEscape(args[0]))
			return postAndPrint(cmd, endpoint, 2*time.Minute)
		},
	}
	return cmd
}

func newDispatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Run one dispatch cycle on the scheduler",
		Long:  "Calls the scheduler service, which queries due pending reminders and publishes them to their mode queues.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := viper.GetString("scheduler_url") + "/scheduler/run"
			return postAndPrint(cmd, endpoint, 60*time.Second)
		},
	}
	return cmd
}

func postAndPrint(cmd *cobra.Command, endpoint string, timeout time.Duration) error {
	client := &http.Client{Timeout: timeout}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(body))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s returned %s", endpoint, resp.Status)
	}
	return nil
}
