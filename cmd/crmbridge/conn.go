package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"crmbridge/internal/assistant"
	"crmbridge/internal/config"
	"crmbridge/internal/connector"
	"crmbridge/internal/lexicon"
	"crmbridge/internal/metadata"
	"crmbridge/internal/nlquery"
	"crmbridge/internal/shorthand"
)

// services bundles everything a command needs to run queries.
type services struct {
	cfg       *config.Config
	conn      connector.Connector
	cache     *metadata.Cache
	shorthand *shorthand.Processor
	nl        *nlquery.Processor
	assistant *assistant.Assistant
	close     func()
}

func openServices(ctx context.Context, cmd *cobra.Command) (*services, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	var conn connector.Connector
	closeConn := func() {}
	if cfg.Sandbox.Enabled {
		sandbox, err := connector.NewSandbox(ctx, cfg.Sandbox.DSN)
		if err != nil {
			return nil, err
		}
		conn = sandbox
		closeConn = sandbox.Close
	} else {
		token := cfg.Token()
		if token == "" {
			return nil, fmt.Errorf("no token found in $%s", cfg.Dataverse.TokenEnv)
		}
		conn = connector.NewDataverse(cfg.Dataverse.URL, token)
	}

	lex, err := lexicon.Load()
	if err != nil {
		closeConn()
		return nil, err
	}

	cache := metadata.NewCache(conn, lex, cfg.Cache.TTL.Std())
	defaults := shorthand.Defaults{PageSize: cfg.Defaults.PageSize, OrderBy: cfg.Defaults.OrderBy}
	asst := assistant.New(conn, cache, lex, assistant.Options{
		SessionTimeout: cfg.Assistant.SessionTimeout.Std(),
		SweepInterval:  cfg.Assistant.SweepInterval.Std(),
		PageSize:       cfg.Defaults.PageSize,
		OrderBy:        cfg.Defaults.OrderBy,
	})

	return &services{
		cfg:       cfg,
		conn:      conn,
		cache:     cache,
		shorthand: shorthand.NewProcessor(conn, cache, lex, defaults),
		nl: nlquery.NewProcessor(
			nlquery.NewParser(lex, false),
			conn,
			nlquery.Defaults{PageSize: cfg.Defaults.PageSize, OrderBy: cfg.Defaults.OrderBy},
		),
		assistant: asst,
		close: func() {
			asst.Close()
			closeConn()
		},
	}, nil
}
