package query

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"crmbridge/internal/lexicon"
)

// Operator is a comparison operator tag carried by a filter entry.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpGt         Operator = "gt"
	OpLt         Operator = "lt"
	OpGe         Operator = "ge"
	OpLe         Operator = "le"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startswith"
	OpEndsWith   Operator = "endswith"
)

// FilterEntry is one parsed filter clause: an operator and a raw value token.
type FilterEntry struct {
	Op    Operator
	Value string
}

// Filters maps an API field name to its filter entry.
type Filters map[string]FilterEntry

// ParseOperator converts an operator tag string (as carried by the lexicon
// tables) into an Operator.
func ParseOperator(tag string) (Operator, bool) {
	switch Operator(tag) {
	case OpEq, OpNe, OpGt, OpLt, OpGe, OpLe, OpContains, OpStartsWith, OpEndsWith:
		return Operator(tag), true
	}
	return "", false
}

// FromWildcard builds a filter entry from a raw string value, translating
// leading/trailing '*' wildcards into the matching string function:
// "*x*" -> contains, "x*" -> startswith, "*x" -> endswith, else eq.
func FromWildcard(value string) FilterEntry {
	leading := strings.HasPrefix(value, "*")
	trailing := strings.HasSuffix(value, "*")
	trimmed := strings.Trim(value, "*")
	switch {
	case leading && trailing:
		return FilterEntry{Op: OpContains, Value: trimmed}
	case trailing:
		return FilterEntry{Op: OpStartsWith, Value: trimmed}
	case leading:
		return FilterEntry{Op: OpEndsWith, Value: trimmed}
	default:
		return FilterEntry{Op: OpEq, Value: value}
	}
}

// IDField returns the primary-id field name for an entity-set name, e.g.
// "accounts" -> "accountid".
func IDField(entitySet string) string {
	return lexicon.Singularize(entitySet) + "id"
}

// Build renders a filter map as an OData $filter string. Comparison operators
// render as `field op 'value'`; string functions render as
// `op(field, 'value')`. Clauses are joined with " and " in sorted field order
// so the same input always produces the same string.
//
// The "id" pseudo-field is special-cased to `<singular>id eq <value>` with no
// quotes: the value is assumed to be a GUID literal. Entries with an operator
// outside the supported set are dropped with a warning; the resulting filter
// is simply missing that clause.
func Build(entitySet string, filters Filters) string {
	fields := make([]string, 0, len(filters))
	for field := range filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	clauses := make([]string, 0, len(filters))
	for _, field := range fields {
		entry := filters[field]
		if field == "id" {
			clauses = append(clauses, fmt.Sprintf("%s eq %s", IDField(entitySet), entry.Value))
			continue
		}
		switch entry.Op {
		case OpEq, OpNe, OpGt, OpLt, OpGe, OpLe:
			clauses = append(clauses, fmt.Sprintf("%s %s '%s'", field, entry.Op, escape(entry.Value)))
		case OpContains, OpStartsWith, OpEndsWith:
			clauses = append(clauses, fmt.Sprintf("%s(%s, '%s')", entry.Op, field, escape(entry.Value)))
		default:
			slog.Warn("dropping filter clause with unsupported operator",
				slog.String("field", field),
				slog.String("op", string(entry.Op)),
			)
		}
	}
	return strings.Join(clauses, " and ")
}

// escape doubles single quotes per OData string-literal rules.
func escape(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}
