package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <shorthand command>",
		Short: "Run a shorthand command, e.g. 'account:list cidade=Lisboa'",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, err := openServices(ctx, cmd)
			if err != nil {
				return err
			}
			defer svc.close()

			result := svc.shorthand.Process(ctx, strings.Join(args, " "))
			return printJSON(result)
		},
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <free text>",
		Short: "Run a natural-language query, e.g. 'listar contas de Lisboa top 10'",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, err := openServices(ctx, cmd)
			if err != nil {
				return err
			}
			defer svc.close()

			result := svc.nl.Process(ctx, strings.Join(args, " "))
			return printJSON(result)
		},
	}
}

func printJSON(value any) error {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(encoded))
	return nil
}
