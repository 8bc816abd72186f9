package nlquery

import (
	"context"
	"fmt"
	"log/slog"

	"crmbridge/internal/connector"
	"crmbridge/internal/query"
)

// Result is the structured outcome of a natural-language query. Like the
// shorthand surface, failures are results, not errors.
type Result struct {
	Success bool               `json:"success"`
	Entity  string             `json:"entity,omitempty"`
	Count   int                `json:"count,omitempty"`
	Results []connector.Record `json:"results,omitempty"`
	Message string             `json:"message,omitempty"`
}

// Defaults mirror the shorthand defaults for page size and ordering.
type Defaults struct {
	PageSize int
	OrderBy  string
}

// Processor parses and executes natural-language queries.
type Processor struct {
	parser   *Parser
	conn     connector.Connector
	defaults Defaults
}

func NewProcessor(parser *Parser, conn connector.Connector, defaults Defaults) *Processor {
	if defaults.PageSize <= 0 {
		defaults.PageSize = 50
	}
	if defaults.OrderBy == "" {
		defaults.OrderBy = "createdon desc"
	}
	return &Processor{parser: parser, conn: conn, defaults: defaults}
}

// Process runs a free-text query end to end. Supported actions are list, get,
// and count; anything else parsed out of the text falls back to list.
func (p *Processor) Process(ctx context.Context, text string) Result {
	parsed := p.parser.Parse(text)
	if parsed.Entity == "" {
		return Result{
			Success: false,
			Message: "Não consegui identificar a entidade. Tente algo como: listar contas de São Paulo",
		}
	}

	opts := connector.QueryOptions{
		Filter:  query.Build(parsed.Entity, parsed.Filters),
		OrderBy: p.defaults.OrderBy,
		Top:     p.defaults.PageSize,
		Select:  parsed.Fields,
	}
	if parsed.Limit > 0 {
		opts.Top = parsed.Limit
	}

	switch parsed.Action {
	case "count":
		opts.Select = []string{query.IDField(parsed.Entity)}
		opts.OrderBy = ""
		opts.Top = 1000
	case "get":
		opts.Top = 1
	}

	records, err := p.conn.QueryEntities(ctx, parsed.Entity, opts)
	if err != nil {
		slog.Error("natural-language query failed",
			slog.String("entity", parsed.Entity),
			slog.String("action", parsed.Action),
			slog.String("error", err.Error()),
		)
		return Result{
			Success: false,
			Entity:  parsed.Entity,
			Message: fmt.Sprintf("Falha ao consultar %s: %v", parsed.Entity, err),
		}
	}

	if parsed.Action == "count" {
		return Result{Success: true, Entity: parsed.Entity, Count: len(records)}
	}
	return Result{Success: true, Entity: parsed.Entity, Count: len(records), Results: records}
}
