package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "crmbridge",
		Short: "CRM Web API bridge for AI agents",
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().String("config", "crmbridge.yaml", "Path to the configuration file")
	root.AddCommand(serveCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(askCmd())
	root.AddCommand(entitiesCmd())
	root.AddCommand(fieldsCmd())
	root.AddCommand(modelCmd())
	root.AddCommand(initCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
