package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	var sandbox bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a crmbridge.yaml configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(sandbox)
		},
	}
	cmd.Flags().BoolVar(&sandbox, "sandbox", false, "Configure the local postgres sandbox instead of a live organization")
	return cmd
}

func runInit(sandbox bool) error {
	configPath := "crmbridge.yaml"
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}

	contents := "version: 1\n\ndataverse:\n  url: https://yourorg.crm.dynamics.com\n  token_env: DATAVERSE_TOKEN\n\ncache:\n  ttl: 1h\n\nassistant:\n  session_timeout: 30m\n  sweep_interval: 5m\n\ndefaults:\n  page_size: 50\n  order_by: createdon desc\n"
	if sandbox {
		contents = "version: 1\n\nsandbox:\n  enabled: true\n  dsn: postgres://localhost:5432/crmbridge\n\ncache:\n  ttl: 1h\n\nassistant:\n  session_timeout: 30m\n  sweep_interval: 5m\n\ndefaults:\n  page_size: 50\n  order_by: createdon desc\n"
	}

	if err := os.WriteFile(configPath, []byte(contents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	return nil
}
