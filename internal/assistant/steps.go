package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"crmbridge/internal/connector"
	"crmbridge/internal/lexicon"
	"crmbridge/internal/metadata"
	"crmbridge/internal/query"
)

const (
	msgSessionNotFound = "Sessão não encontrada ou expirada. Inicie uma nova consulta."
	msgAskEntity       = "Vamos montar sua consulta. Qual entidade você quer consultar? (ex.: contas, contatos, casos)"
	msgAskAction       = "Qual ação? Responda 1 (listar), 2 (buscar por id) ou 3 (contar)."
	msgAskID           = "Informe o id do registro."
	msgAskFilter       = "Descreva um filtro (ex.: cidade igual a Lisboa) ou responda 'sem filtro'."
	msgAskFields       = "Quais campos retornar? Separe por vírgula ou responda 'todos'."
	msgAskOrderBy      = "Qual ordenação? (ex.: name asc) ou responda 'padrão' para createdon desc."
	msgAskLimit        = "Quantos registros no máximo? Informe um número ou responda 'padrão' para 50."
)

var (
	noFilterWords    = wordSet("sem filtro", "sem", "nenhum", "nenhuma", "nao", "pular")
	allFieldsWords   = wordSet("todos", "todas", "tudo")
	defaultWords     = wordSet("padrao", "default")
	affirmativeWords = wordSet("sim", "s", "yes", "y", "ok", "confirmar", "confirmo", "pode")
	negativeWords    = wordSet("nao", "n", "no", "cancelar", "cancela", "voltar")
)

var orderByPattern = regexp.MustCompile(`^(\S+)(?:\s+(asc|desc))?$`)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// step dispatches the input to the handler for the session's current step.
// Unrecognized input leaves the state unchanged and re-prompts.
func (a *Assistant) step(ctx context.Context, s *Session, input string) StepResult {
	switch s.Step {
	case StepEntity:
		return a.stepEntity(ctx, s, input)
	case StepAction:
		return a.stepAction(s, input)
	case StepFilter:
		return a.stepFilter(s, input)
	case StepFields:
		return a.stepFields(s, input)
	case StepOrderBy:
		return a.stepOrderBy(s, input)
	case StepLimit:
		return a.stepLimit(s, input)
	case StepConfirm:
		return a.stepConfirm(ctx, s, input)
	default:
		return StepResult{Message: msgAskEntity}
	}
}

func (a *Assistant) stepEntity(ctx context.Context, s *Session, input string) StepResult {
	word := lexicon.Normalize(input)
	entitySet, ok := a.lex.CollectionFor(word)
	if !ok {
		entitySet = lexicon.Singularize(word) + "s"
	}

	schema, err := a.cache.GetEntityDetails(ctx, entitySet, metadata.DetailOptions{})
	if err != nil {
		return StepResult{Message: fmt.Sprintf("Não encontrei a entidade %q. %s", input, msgAskEntity)}
	}
	if schema.EntitySetName != "" {
		entitySet = schema.EntitySetName
	}

	s.Entity = entitySet
	s.Step = StepAction
	return StepResult{Message: msgAskAction}
}

func (a *Assistant) stepAction(s *Session, input string) StepResult {
	word := lexicon.Normalize(input)
	action := ""
	switch word {
	case "1":
		action = "list"
	case "2":
		action = "get"
	case "3":
		action = "count"
	default:
		if mapped, ok := a.lex.ActionFor(word); ok {
			switch mapped {
			case "list", "get", "count":
				action = mapped
			}
		}
	}
	if action == "" {
		return StepResult{Message: "Não entendi a ação. " + msgAskAction}
	}

	s.Action = action
	s.Step = StepFilter
	if action == "get" {
		return StepResult{Message: msgAskID}
	}
	return StepResult{Message: msgAskFilter}
}

func (a *Assistant) stepFilter(s *Session, input string) StepResult {
	normalized := lexicon.Normalize(input)

	if _, skip := noFilterWords[normalized]; skip && s.Action != "get" {
		s.Step = StepFields
		return StepResult{Message: msgAskFields}
	}

	if s.Action == "get" {
		id := strings.Trim(strings.TrimSpace(input), `"'`)
		if id == "" {
			return StepResult{Message: msgAskID}
		}
		s.Filters = query.Filters{"id": {Op: query.OpEq, Value: id}}
		s.Step = StepFields
		return StepResult{Message: msgAskFields}
	}

	for _, rule := range a.phrases {
		match := rule.Pattern.FindStringSubmatch(normalized)
		if match == nil {
			continue
		}
		field := a.lex.FieldFor(s.Entity, match[1])
		value := strings.Trim(strings.TrimSpace(match[2]), `"'`)
		s.Filters[field] = query.FilterEntry{Op: rule.Op, Value: value}
		s.Step = StepFields
		return StepResult{Message: msgAskFields}
	}

	return StepResult{Message: "Não entendi o filtro. " + msgAskFilter}
}

func (a *Assistant) stepFields(s *Session, input string) StepResult {
	normalized := lexicon.Normalize(input)
	if _, all := allFieldsWords[normalized]; !all {
		fields := make([]string, 0)
		for _, part := range strings.Split(normalized, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			fields = append(fields, a.lex.FieldFor(s.Entity, part))
		}
		if len(fields) == 0 {
			return StepResult{Message: msgAskFields}
		}
		s.Fields = fields
	}

	// get and count have no meaningful ordering or paging to collect.
	if s.Action == "get" || s.Action == "count" {
		s.Step = StepConfirm
		return StepResult{Message: a.summary(s)}
	}
	s.Step = StepOrderBy
	return StepResult{Message: msgAskOrderBy}
}

func (a *Assistant) stepOrderBy(s *Session, input string) StepResult {
	normalized := lexicon.Normalize(input)
	if _, useDefault := defaultWords[normalized]; useDefault {
		s.OrderBy = a.opts.OrderBy
		s.Step = StepLimit
		return StepResult{Message: msgAskLimit}
	}

	match := orderByPattern.FindStringSubmatch(normalized)
	if match == nil {
		return StepResult{Message: "Não entendi a ordenação. " + msgAskOrderBy}
	}
	direction := match[2]
	if direction == "" {
		direction = "asc"
	}
	s.OrderBy = a.lex.FieldFor(s.Entity, match[1]) + " " + direction
	s.Step = StepLimit
	return StepResult{Message: msgAskLimit}
}

func (a *Assistant) stepLimit(s *Session, input string) StepResult {
	normalized := lexicon.Normalize(input)
	if _, useDefault := defaultWords[normalized]; useDefault {
		s.Limit = a.opts.PageSize
		s.Step = StepConfirm
		return StepResult{Message: a.summary(s)}
	}

	n, err := strconv.Atoi(normalized)
	if err != nil || n <= 0 {
		return StepResult{Message: "Informe um número positivo. " + msgAskLimit}
	}
	s.Limit = n
	s.Step = StepConfirm
	return StepResult{Message: a.summary(s)}
}

func (a *Assistant) stepConfirm(ctx context.Context, s *Session, input string) StepResult {
	normalized := lexicon.Normalize(input)

	if _, no := negativeWords[normalized]; no {
		s.Entity = ""
		s.Action = ""
		s.Filters = query.Filters{}
		s.Fields = nil
		s.OrderBy = ""
		s.Limit = 0
		s.Step = StepEntity
		return StepResult{Message: "Consulta descartada. " + msgAskEntity}
	}

	if _, yes := affirmativeWords[normalized]; !yes {
		return StepResult{Message: "Responda sim para executar ou não para recomeçar. " + a.summary(s)}
	}

	result, err := a.execute(ctx, s)
	if err != nil {
		// The session stays in confirm so the user can retry or cancel.
		slog.Error("assistant query failed",
			slog.String("session", s.ID),
			slog.String("entity", s.Entity),
			slog.String("error", err.Error()),
		)
		return StepResult{Message: fmt.Sprintf("Falha ao executar a consulta: %v. Responda sim para tentar novamente ou não para recomeçar.", err)}
	}

	s.Completed = true
	return StepResult{
		Message:   fmt.Sprintf("Consulta executada: %d registro(s) de %s.", result.Count, result.Entity),
		Completed: true,
		Result:    result,
	}
}

func (a *Assistant) execute(ctx context.Context, s *Session) (*ExecResult, error) {
	opts := connector.QueryOptions{
		Filter: query.Build(s.Entity, s.Filters),
		Select: s.Fields,
	}

	switch s.Action {
	case "get":
		opts.Top = 1
	case "count":
		opts.Select = []string{query.IDField(s.Entity)}
		opts.Top = 1000
	default:
		opts.OrderBy = s.OrderBy
		if opts.OrderBy == "" {
			opts.OrderBy = a.opts.OrderBy
		}
		opts.Top = s.Limit
		if opts.Top <= 0 {
			opts.Top = a.opts.PageSize
		}
	}

	records, err := a.conn.QueryEntities(ctx, s.Entity, opts)
	if err != nil {
		return nil, err
	}

	result := &ExecResult{Entity: s.Entity, Count: len(records), Records: records}
	if s.Action == "count" {
		result.Records = nil
	}
	return result, nil
}

func (a *Assistant) summary(s *Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Resumo: %s em %s", s.Action, s.Entity)
	if filter := query.Build(s.Entity, s.Filters); filter != "" {
		fmt.Fprintf(&b, ", filtro: %s", filter)
	}
	if len(s.Fields) > 0 {
		fmt.Fprintf(&b, ", campos: %s", strings.Join(s.Fields, ", "))
	}
	if s.OrderBy != "" {
		fmt.Fprintf(&b, ", ordenação: %s", s.OrderBy)
	}
	if s.Limit > 0 {
		fmt.Fprintf(&b, ", limite: %d", s.Limit)
	}
	return b.String() + ". Confirma a execução? (sim/não)"
}
