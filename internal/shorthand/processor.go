package shorthand

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"crmbridge/internal/connector"
	"crmbridge/internal/lexicon"
	"crmbridge/internal/metadata"
	"crmbridge/internal/query"
)

// countCap bounds the count action's fetch. The count is the length of a
// capped retrieve, not a server-side aggregate, so results above the cap
// read as "1000 or more".
const countCap = 1000

// reservedParams are shorthand parameters that shape the query instead of
// becoming filter clauses.
var reservedParams = map[string]struct{}{
	"top": {}, "limit": {}, "orderby": {}, "order": {},
	"select": {}, "fields": {}, "expand": {},
}

var validActions = []string{"list", "get", "create", "update", "delete", "count", "fields"}

// Defaults are the query defaults applied when a command does not set them.
type Defaults struct {
	PageSize int
	OrderBy  string
}

// Result is the structured outcome of processing one shorthand command.
// Failures are results with Success=false, never panics or raw errors: the
// surface is tool-call-friendly.
type Result struct {
	Success bool               `json:"success"`
	Entity  string             `json:"entity,omitempty"`
	Action  string             `json:"action,omitempty"`
	Count   int                `json:"count,omitempty"`
	Results []connector.Record `json:"results,omitempty"`
	Result  connector.Record   `json:"result,omitempty"`
	Fields  []FieldDescriptor  `json:"fields,omitempty"`
	Message string             `json:"message,omitempty"`
}

// FieldDescriptor is the flat per-field projection the fields action returns.
type FieldDescriptor struct {
	Name        string              `json:"name"`
	DisplayName string              `json:"displayName"`
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Required    bool                `json:"required"`
	MaxLength   int                 `json:"maxLength,omitempty"`
	Precision   int                 `json:"precision,omitempty"`
	OptionSet   *metadata.OptionSet `json:"optionSet,omitempty"`
}

// Processor executes shorthand commands.
type Processor struct {
	conn     connector.Connector
	cache    *metadata.Cache
	lex      *lexicon.Lexicon
	defaults Defaults
}

func NewProcessor(conn connector.Connector, cache *metadata.Cache, lex *lexicon.Lexicon, defaults Defaults) *Processor {
	if defaults.PageSize <= 0 {
		defaults.PageSize = 50
	}
	if defaults.OrderBy == "" {
		defaults.OrderBy = "createdon desc"
	}
	return &Processor{conn: conn, cache: cache, lex: lex, defaults: defaults}
}

// Process parses and executes one shorthand command.
func (p *Processor) Process(ctx context.Context, command string) Result {
	cmd := Parse(p.lex, command)
	if cmd.Entity == "" || cmd.Action == "" {
		return Result{Success: false, Message: "Formato inválido. Use entidade:ação [id] [campo=valor ...], por exemplo: account:list cidade=Lisboa"}
	}

	switch cmd.Action {
	case "list":
		return p.list(ctx, cmd)
	case "get":
		return p.get(ctx, cmd)
	case "create":
		return p.create(ctx, cmd)
	case "update":
		return p.update(ctx, cmd)
	case "delete":
		return p.delete(ctx, cmd)
	case "count":
		return p.count(ctx, cmd)
	case "fields":
		return p.fields(ctx, cmd)
	default:
		return Result{
			Success: false,
			Entity:  cmd.Entity,
			Message: fmt.Sprintf("Ação desconhecida: %q. Ações válidas: %s", cmd.Action, strings.Join(validActions, ", ")),
		}
	}
}

func (p *Processor) list(ctx context.Context, cmd Command) Result {
	opts := p.queryOptions(cmd)
	records, err := p.conn.QueryEntities(ctx, cmd.Entity, opts)
	if err != nil {
		return p.connectorFailure(cmd, "consultar", err)
	}
	return Result{Success: true, Entity: cmd.Entity, Action: cmd.Action, Count: len(records), Results: records}
}

func (p *Processor) get(ctx context.Context, cmd Command) Result {
	id, ok := cmd.Params["id"].(string)
	if !ok || id == "" {
		return Result{Success: false, Entity: cmd.Entity, Action: cmd.Action, Message: "A ação get exige um id, por exemplo: account:get <guid>"}
	}

	filter := query.Build(cmd.Entity, query.Filters{"id": {Op: query.OpEq, Value: id}})
	records, err := p.conn.QueryEntities(ctx, cmd.Entity, connector.QueryOptions{Filter: filter, Top: 1})
	if err != nil {
		return p.connectorFailure(cmd, "consultar", err)
	}
	if len(records) == 0 {
		return Result{Success: false, Entity: cmd.Entity, Action: cmd.Action, Message: fmt.Sprintf("Registro %s não encontrado em %s", id, cmd.Entity)}
	}
	return Result{Success: true, Entity: cmd.Entity, Action: cmd.Action, Result: records[0]}
}

func (p *Processor) create(ctx context.Context, cmd Command) Result {
	data := dataParams(cmd.Params)
	if len(data) == 0 {
		return Result{Success: false, Entity: cmd.Entity, Action: cmd.Action, Message: "A ação create exige pelo menos um campo, por exemplo: account:create name=Contoso"}
	}
	created, err := p.conn.CreateEntity(ctx, cmd.Entity, data)
	if err != nil {
		return p.connectorFailure(cmd, "criar", err)
	}
	return Result{Success: true, Entity: cmd.Entity, Action: cmd.Action, Result: created}
}

func (p *Processor) update(ctx context.Context, cmd Command) Result {
	id, ok := cmd.Params["id"].(string)
	if !ok || id == "" {
		return Result{Success: false, Entity: cmd.Entity, Action: cmd.Action, Message: "A ação update exige um id e pelo menos um campo, por exemplo: contact:update <guid> firstname=Ana"}
	}
	data := dataParams(cmd.Params)
	if len(data) == 0 {
		return Result{Success: false, Entity: cmd.Entity, Action: cmd.Action, Message: "A ação update exige pelo menos um campo além do id"}
	}
	if err := p.conn.UpdateEntity(ctx, cmd.Entity, id, data); err != nil {
		return p.connectorFailure(cmd, "atualizar", err)
	}
	return Result{Success: true, Entity: cmd.Entity, Action: cmd.Action, Message: fmt.Sprintf("Registro %s atualizado", id)}
}

func (p *Processor) delete(ctx context.Context, cmd Command) Result {
	id, ok := cmd.Params["id"].(string)
	if !ok || id == "" {
		return Result{Success: false, Entity: cmd.Entity, Action: cmd.Action, Message: "A ação delete exige um id, por exemplo: account:delete <guid>"}
	}
	if err := p.conn.DeleteEntity(ctx, cmd.Entity, id); err != nil {
		return p.connectorFailure(cmd, "excluir", err)
	}
	return Result{Success: true, Entity: cmd.Entity, Action: cmd.Action, Message: fmt.Sprintf("Registro %s excluído", id)}
}

func (p *Processor) count(ctx context.Context, cmd Command) Result {
	opts := p.queryOptions(cmd)
	opts.Select = []string{query.IDField(cmd.Entity)}
	opts.OrderBy = ""
	opts.Top = countCap

	records, err := p.conn.QueryEntities(ctx, cmd.Entity, opts)
	if err != nil {
		return p.connectorFailure(cmd, "contar", err)
	}
	message := ""
	if len(records) == countCap {
		message = fmt.Sprintf("A contagem é aproximada: o resultado foi limitado a %d registros", countCap)
	}
	return Result{Success: true, Entity: cmd.Entity, Action: cmd.Action, Count: len(records), Message: message}
}

func (p *Processor) fields(ctx context.Context, cmd Command) Result {
	schema, err := p.cache.GetEntityDetails(ctx, cmd.Entity, metadata.DetailOptions{
		IncludeAttributes: true,
		IncludeOptionSets: true,
	})
	if err != nil {
		return p.connectorFailure(cmd, "obter o esquema de", err)
	}

	descriptors := make([]FieldDescriptor, 0, len(schema.Attributes))
	for _, attr := range schema.Attributes {
		descriptors = append(descriptors, FieldDescriptor{
			Name:        attr.LogicalName,
			DisplayName: attr.DisplayName,
			Type:        string(attr.Type),
			Description: attr.Description,
			Required:    attr.Required,
			MaxLength:   attr.MaxLength,
			Precision:   attr.Precision,
			OptionSet:   attr.OptionSet,
		})
	}
	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].Name < descriptors[j].Name })
	return Result{Success: true, Entity: cmd.Entity, Action: cmd.Action, Count: len(descriptors), Fields: descriptors}
}

// queryOptions derives OData query options from the command parameters.
// Every non-reserved parameter becomes a filter clause; string values with
// '*' wildcards translate to contains/startswith/endswith.
func (p *Processor) queryOptions(cmd Command) connector.QueryOptions {
	filters := query.Filters{}
	opts := connector.QueryOptions{Top: p.defaults.PageSize, OrderBy: p.defaults.OrderBy}

	for key, value := range cmd.Params {
		lower := strings.ToLower(key)
		if _, reserved := reservedParams[lower]; reserved {
			switch lower {
			case "top", "limit":
				if n, ok := value.(int); ok && n > 0 {
					opts.Top = n
				}
			case "orderby", "order":
				if s, ok := value.(string); ok && s != "" {
					opts.OrderBy = s
				}
			case "select", "fields":
				if s, ok := value.(string); ok && s != "" {
					opts.Select = strings.Split(s, ",")
				}
			case "expand":
				if s, ok := value.(string); ok {
					opts.Expand = s
				}
			}
			continue
		}
		switch v := value.(type) {
		case string:
			filters[key] = query.FromWildcard(v)
		default:
			filters[key] = query.FilterEntry{Op: query.OpEq, Value: fmt.Sprintf("%v", v)}
		}
	}

	opts.Filter = query.Build(cmd.Entity, filters)
	return opts
}

// dataParams returns the command parameters that represent record fields,
// excluding the id and the reserved query parameters.
func dataParams(params map[string]any) connector.Record {
	data := connector.Record{}
	for key, value := range params {
		if key == "id" {
			continue
		}
		if _, reserved := reservedParams[strings.ToLower(key)]; reserved {
			continue
		}
		data[key] = value
	}
	return data
}

func (p *Processor) connectorFailure(cmd Command, verb string, err error) Result {
	slog.Error("shorthand command failed",
		slog.String("entity", cmd.Entity),
		slog.String("action", cmd.Action),
		slog.String("error", err.Error()),
	)
	return Result{
		Success: false,
		Entity:  cmd.Entity,
		Action:  cmd.Action,
		Message: fmt.Sprintf("Falha ao %s %s: %v", verb, cmd.Entity, err),
	}
}
