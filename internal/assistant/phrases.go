package assistant

import (
	"regexp"

	"crmbridge/internal/query"
)

// PhraseRule matches one filter phrase shape. Pattern runs against the
// normalized (lowercased, diacritic-free) input and must capture the field in
// group 1 and the value in group 2.
type PhraseRule struct {
	Pattern *regexp.Regexp
	Op      query.Operator
}

// DefaultPhraseRules is the Portuguese filter phrase bank. Rules are ordered:
// the first match wins, so the compound comparison phrases come before their
// single-word prefixes and the symbolic forms come after the verbal ones.
func DefaultPhraseRules() []PhraseRule {
	return []PhraseRule{
		{regexp.MustCompile(`^(\S+)\s+contem\s+(.+)$`), query.OpContains},
		{regexp.MustCompile(`^(\S+)\s+comeca\s+com\s+(.+)$`), query.OpStartsWith},
		{regexp.MustCompile(`^(\S+)\s+termina\s+com\s+(.+)$`), query.OpEndsWith},
		{regexp.MustCompile(`^(\S+)\s+maior\s+ou\s+igual\s+(?:a\s+)?(.+)$`), query.OpGe},
		{regexp.MustCompile(`^(\S+)\s+menor\s+ou\s+igual\s+(?:a\s+)?(.+)$`), query.OpLe},
		{regexp.MustCompile(`^(\S+)\s+maior\s+que\s+(.+)$`), query.OpGt},
		{regexp.MustCompile(`^(\S+)\s+menor\s+que\s+(.+)$`), query.OpLt},
		{regexp.MustCompile(`^(\S+)\s+diferente\s+(?:de\s+)?(.+)$`), query.OpNe},
		{regexp.MustCompile(`^(\S+)\s+igual\s+(?:a\s+)?(.+)$`), query.OpEq},
		{regexp.MustCompile(`^(\S+)\s+apos\s+(.+)$`), query.OpGt},
		{regexp.MustCompile(`^(\S+)\s+depois\s+de\s+(.+)$`), query.OpGt},
		{regexp.MustCompile(`^(\S+)\s+antes\s+de\s+(.+)$`), query.OpLt},
		{regexp.MustCompile(`^(\S+)\s*>=\s*(.+)$`), query.OpGe},
		{regexp.MustCompile(`^(\S+)\s*<=\s*(.+)$`), query.OpLe},
		{regexp.MustCompile(`^(\S+)\s*!=\s*(.+)$`), query.OpNe},
		{regexp.MustCompile(`^(\S+)\s*=\s*(.+)$`), query.OpEq},
		{regexp.MustCompile(`^(\S+)\s*>\s*(.+)$`), query.OpGt},
		{regexp.MustCompile(`^(\S+)\s*<\s*(.+)$`), query.OpLt},
	}
}
