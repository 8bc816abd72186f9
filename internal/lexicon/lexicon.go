package lexicon

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// OperatorPhrase maps a natural-language phrase (possibly multi-word, already
// in normalized form) to a comparison operator tag.
type OperatorPhrase struct {
	Phrase string `yaml:"phrase"`
	Op     string `yaml:"op"`
}

// Lexicon holds the static synonym tables used by the shorthand and
// natural-language parsers and by metadata entity-name normalization.
//
// Two independent entity tables exist on purpose: Collections resolves to the
// Web API's pluralized entity-set names (what queryEntities consumes), while
// LogicalNames resolves to the singular logical names the metadata endpoints
// expect. Keeping them separate is what lets each downstream consumer get the
// casing/pluralization it actually needs.
type Lexicon struct {
	Collections  map[string]string            `yaml:"collections"`
	LogicalNames map[string]string            `yaml:"logical_names"`
	Actions      map[string]string            `yaml:"actions"`
	Operators    []OperatorPhrase             `yaml:"operators"`
	Fields       map[string]map[string]string `yaml:"fields"`
	StopWords    []string                     `yaml:"stop_words"`

	stopWords map[string]struct{}
	maxOpLen  int
}

var (
	cachedLexicon *Lexicon
	lexiconOnce   sync.Once
	lexiconErr    error
)

// Load parses the embedded lexicon tables. The result is cached; subsequent
// calls return the same instance. The lexicon is immutable after load and safe
// for concurrent use.
func Load() (*Lexicon, error) {
	lexiconOnce.Do(func() {
		var lex Lexicon
		if err := yaml.Unmarshal(defaultLexiconYAML, &lex); err != nil {
			lexiconErr = fmt.Errorf("parsing lexicon.yaml: %w", err)
			return
		}
		lex.stopWords = make(map[string]struct{}, len(lex.StopWords))
		for _, w := range lex.StopWords {
			lex.stopWords[w] = struct{}{}
		}
		// Longest phrases first so "maior ou igual" wins over "maior".
		sort.SliceStable(lex.Operators, func(i, j int) bool {
			return phraseLen(lex.Operators[i].Phrase) > phraseLen(lex.Operators[j].Phrase)
		})
		for _, op := range lex.Operators {
			if n := phraseLen(op.Phrase); n > lex.maxOpLen {
				lex.maxOpLen = n
			}
		}
		cachedLexicon = &lex
	})
	return cachedLexicon, lexiconErr
}

// MustLoad returns the lexicon or panics. The tables are embedded in the
// binary, so a failure here is a build defect, not a runtime condition.
func MustLoad() *Lexicon {
	lex, err := Load()
	if err != nil {
		panic(err)
	}
	return lex
}

func phraseLen(phrase string) int {
	return len(strings.Fields(phrase))
}

// CollectionFor resolves a user word to a pluralized entity-set name.
func (l *Lexicon) CollectionFor(word string) (string, bool) {
	set, ok := l.Collections[Normalize(word)]
	return set, ok
}

// LogicalNameFor normalizes an entity name to its singular logical name:
// lowercase, synonym table first, then the strip-trailing-s heuristic, with
// the synonym table also consulted on the singularized form. Unknown names
// pass through singularized and lowercased.
func (l *Lexicon) LogicalNameFor(name string) string {
	n := Normalize(name)
	if logical, ok := l.LogicalNames[n]; ok {
		return logical
	}
	singular := Singularize(n)
	if logical, ok := l.LogicalNames[singular]; ok {
		return logical
	}
	return singular
}

// ActionFor resolves a verb token to a canonical action name.
func (l *Lexicon) ActionFor(word string) (string, bool) {
	action, ok := l.Actions[Normalize(word)]
	return action, ok
}

// FieldFor translates a natural-language field token to the entity's API
// field name. Unmapped tokens pass through unchanged: they are assumed to
// already be valid API field names.
func (l *Lexicon) FieldFor(entitySet, word string) string {
	if fields, ok := l.Fields[entitySet]; ok {
		if api, ok := fields[Normalize(word)]; ok {
			return api
		}
	}
	return Normalize(word)
}

// IsStopWord reports whether a normalized token is on the stop-word list.
func (l *Lexicon) IsStopWord(word string) bool {
	_, ok := l.stopWords[word]
	return ok
}

// MatchOperator tries to match an operator phrase at the start of tokens,
// preferring the longest phrase. It returns the operator tag and how many
// tokens the phrase consumed.
func (l *Lexicon) MatchOperator(tokens []string) (op string, consumed int, ok bool) {
	limit := l.maxOpLen
	if limit > len(tokens) {
		limit = len(tokens)
	}
	for n := limit; n >= 1; n-- {
		candidate := strings.Join(tokens[:n], " ")
		for _, phrase := range l.Operators {
			if phrase.Phrase == candidate {
				return phrase.Op, n, true
			}
		}
	}
	return "", 0, false
}
