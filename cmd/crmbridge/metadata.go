package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"crmbridge/internal/metadata"
)

func entitiesCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List the organization's entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, err := openServices(ctx, cmd)
			if err != nil {
				return err
			}
			defer svc.close()

			entities, err := svc.cache.ListEntities(ctx, refresh)
			if err != nil {
				return err
			}
			for _, entity := range entities {
				fmt.Fprintf(os.Stdout, "%s\t%s\n", entity.Name, entity.DisplayName)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Force a metadata refresh")
	return cmd
}

func fieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields <entity>",
		Short: "Show an entity's attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, err := openServices(ctx, cmd)
			if err != nil {
				return err
			}
			defer svc.close()

			schema, err := svc.cache.GetEntityDetails(ctx, args[0], metadata.DetailOptions{
				IncludeAttributes: true,
				IncludeOptionSets: true,
			})
			if err != nil {
				return err
			}
			return printJSON(schema)
		},
	}
}

func modelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "model [entity ...]",
		Short: "Generate a compact data model for the given entities",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, err := openServices(ctx, cmd)
			if err != nil {
				return err
			}
			defer svc.close()

			model, err := svc.cache.GenerateDataModel(ctx, args)
			if err != nil {
				return err
			}
			return printJSON(model)
		},
	}
}
