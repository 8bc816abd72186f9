package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"crmbridge/internal/assistant"
	"crmbridge/internal/metadata"
	"crmbridge/internal/nlquery"
	"crmbridge/internal/shorthand"
)

type Server struct {
	shorthand *shorthand.Processor
	nl        *nlquery.Processor
	assistant *assistant.Assistant
	cache     *metadata.Cache
	mcp       *sdk.Server
}

func NewServer(sh *shorthand.Processor, nl *nlquery.Processor, asst *assistant.Assistant, cache *metadata.Cache, version string) *Server {
	s := &Server{
		shorthand: sh,
		nl:        nl,
		assistant: asst,
		cache:     cache,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "crmbridge",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
