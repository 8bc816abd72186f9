// Package nlquery turns Portuguese free-text queries into structured query
// intents. The scan is a single greedy left-to-right pass: tokens that match
// no rule are silently discarded, so only a total failure (no entity found)
// is observable to the caller.
package nlquery

import (
	"regexp"
	"strconv"
	"strings"

	"crmbridge/internal/lexicon"
	"crmbridge/internal/query"
)

// limitKeywords introduce a record limit when followed by a positive integer.
var limitKeywords = map[string]struct{}{
	"top": {}, "limite": {}, "limitar": {}, "limitado": {}, "maximo": {}, "max": {},
}

var fieldListPattern = regexp.MustCompile(`campos\s+([^.]+)`)

// Parsed is the structured intent extracted from a free-text query.
type Parsed struct {
	Entity  string
	Action  string
	Filters query.Filters
	Fields  []string
	Limit   int
	// Trace records which rule consumed which tokens when diagnostics are
	// enabled. Discarded tokens appear with rule "discarded".
	Trace []TraceEntry
}

// TraceEntry is one diagnostic record of the token scan.
type TraceEntry struct {
	Rule   string
	Tokens []string
}

type Parser struct {
	lex   *lexicon.Lexicon
	trace bool
}

// NewParser builds a parser over the lexicon tables. With trace enabled,
// Parse records rule-by-rule token consumption; the parse result itself is
// unchanged.
func NewParser(lex *lexicon.Lexicon, trace bool) *Parser {
	return &Parser{lex: lex, trace: trace}
}

// Parse scans the query text. Rules, in order per token position: first
// unclaimed action verb, first unclaimed entity word, a limit keyword
// followed by a positive integer, then a [field] [operator-phrase] [value]
// window. The action defaults to "list". A trailing `campos ...` phrase in
// the original text overrides any field list. Everything unmatched is
// dropped.
func (p *Parser) Parse(text string) Parsed {
	normalized := lexicon.Normalize(text)
	parsed := Parsed{Action: "", Filters: query.Filters{}}

	tokens := make([]string, 0)
	for _, token := range strings.Fields(normalized) {
		if p.lex.IsStopWord(token) {
			continue
		}
		tokens = append(tokens, token)
	}

	for i := 0; i < len(tokens); {
		token := tokens[i]

		if parsed.Action == "" {
			if action, ok := p.lex.ActionFor(token); ok {
				parsed.Action = action
				p.record(&parsed, "action", tokens[i:i+1])
				i++
				continue
			}
		}

		if parsed.Entity == "" {
			if set, ok := p.lex.CollectionFor(token); ok {
				parsed.Entity = set
				p.record(&parsed, "entity", tokens[i:i+1])
				i++
				continue
			}
		}

		if _, ok := limitKeywords[token]; ok && i+1 < len(tokens) {
			if n, err := strconv.Atoi(tokens[i+1]); err == nil && n > 0 {
				parsed.Limit = n
				p.record(&parsed, "limit", tokens[i:i+2])
				i += 2
				continue
			}
		}

		if consumed := p.tryFilter(&parsed, tokens[i:]); consumed > 0 {
			i += consumed
			continue
		}

		p.record(&parsed, "discarded", tokens[i:i+1])
		i++
	}

	if parsed.Action == "" {
		parsed.Action = "list"
	}

	if match := fieldListPattern.FindStringSubmatch(normalized); match != nil {
		parsed.Fields = p.fieldList(parsed.Entity, match[1])
	}

	return parsed
}

// tryFilter tests a [field] [operator-phrase] [value] window starting at
// tokens[0]. Operator phrases may span several tokens; the whole window is
// consumed on a match.
func (p *Parser) tryFilter(parsed *Parsed, tokens []string) int {
	if len(tokens) < 3 {
		return 0
	}
	op, opTokens, ok := p.lex.MatchOperator(tokens[1:])
	if !ok || 1+opTokens >= len(tokens) {
		return 0
	}
	operator, ok := query.ParseOperator(op)
	if !ok {
		return 0
	}

	field := p.lex.FieldFor(parsed.Entity, tokens[0])
	value := strings.Trim(tokens[1+opTokens], `"'`)
	parsed.Filters[field] = query.FilterEntry{Op: operator, Value: value}

	consumed := 2 + opTokens
	p.record(parsed, "filter", tokens[:consumed])
	return consumed
}

func (p *Parser) fieldList(entity, raw string) []string {
	fields := make([]string, 0)
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part == "" || part == "e" {
			continue
		}
		fields = append(fields, p.lex.FieldFor(entity, part))
	}
	return fields
}

func (p *Parser) record(parsed *Parsed, rule string, tokens []string) {
	if !p.trace {
		return
	}
	parsed.Trace = append(parsed.Trace, TraceEntry{Rule: rule, Tokens: append([]string{}, tokens...)})
}
