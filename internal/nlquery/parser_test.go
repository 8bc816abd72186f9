package nlquery

import (
	"reflect"
	"testing"

	"crmbridge/internal/lexicon"
	"crmbridge/internal/query"
)

func TestParse(t *testing.T) {
	lex := lexicon.MustLoad()
	p := NewParser(lex, false)

	t.Run("action and entity from portuguese verbs", func(t *testing.T) {
		parsed := p.Parse("listar contas em São Paulo")
		if parsed.Entity != "accounts" || parsed.Action != "list" {
			t.Fatalf("got entity %q action %q", parsed.Entity, parsed.Action)
		}
	})

	t.Run("action defaults to list", func(t *testing.T) {
		parsed := p.Parse("contas de Lisboa")
		if parsed.Entity != "accounts" || parsed.Action != "list" {
			t.Fatalf("got entity %q action %q", parsed.Entity, parsed.Action)
		}
	})

	t.Run("count verbs", func(t *testing.T) {
		parsed := p.Parse("quantos casos abertos")
		if parsed.Entity != "incidents" || parsed.Action != "count" {
			t.Fatalf("got entity %q action %q", parsed.Entity, parsed.Action)
		}
	})

	t.Run("limit keyword followed by a number", func(t *testing.T) {
		parsed := p.Parse("listar casos top 5")
		if parsed.Entity != "incidents" || parsed.Limit != 5 {
			t.Fatalf("got entity %q limit %d", parsed.Entity, parsed.Limit)
		}
		// The limit rule consumes both tokens: nothing left over to misread
		// as a filter window.
		if len(parsed.Filters) != 0 {
			t.Fatalf("got filters %+v", parsed.Filters)
		}
		parsed = p.Parse("mostrar contas limite 20")
		if parsed.Limit != 20 || len(parsed.Filters) != 0 {
			t.Fatalf("got limit %d filters %+v", parsed.Limit, parsed.Filters)
		}
	})

	t.Run("limit keyword without a number is dropped", func(t *testing.T) {
		parsed := p.Parse("listar contas top")
		if parsed.Limit != 0 {
			t.Fatalf("got limit %d", parsed.Limit)
		}
	})

	t.Run("single-token operator filter", func(t *testing.T) {
		parsed := p.Parse("listar contas cidade igual Lisboa")
		want := query.Filters{"address1_city": {Op: query.OpEq, Value: "lisboa"}}
		if !reflect.DeepEqual(parsed.Filters, want) {
			t.Fatalf("got filters %+v, want %+v", parsed.Filters, want)
		}
	})

	t.Run("multi-token operator phrase", func(t *testing.T) {
		parsed := p.Parse("contas com receita maior que 1000000")
		want := query.Filters{"revenue": {Op: query.OpGt, Value: "1000000"}}
		if !reflect.DeepEqual(parsed.Filters, want) {
			t.Fatalf("got filters %+v, want %+v", parsed.Filters, want)
		}
	})

	t.Run("stop words inside operator phrases survive", func(t *testing.T) {
		// "ou" and "a" are stop words, so the phrase arrives as "maior igual".
		parsed := p.Parse("listar oportunidades valor maior ou igual a 5000")
		want := query.Filters{"estimatedvalue": {Op: query.OpGe, Value: "5000"}}
		if !reflect.DeepEqual(parsed.Filters, want) {
			t.Fatalf("got filters %+v, want %+v", parsed.Filters, want)
		}
	})

	t.Run("string function operators", func(t *testing.T) {
		parsed := p.Parse("listar contas nome contem tech")
		want := query.Filters{"name": {Op: query.OpContains, Value: "tech"}}
		if !reflect.DeepEqual(parsed.Filters, want) {
			t.Fatalf("got filters %+v, want %+v", parsed.Filters, want)
		}
		parsed = p.Parse("contatos nome começa com ana")
		want = query.Filters{"fullname": {Op: query.OpStartsWith, Value: "ana"}}
		if !reflect.DeepEqual(parsed.Filters, want) {
			t.Fatalf("got filters %+v, want %+v", parsed.Filters, want)
		}
	})

	t.Run("campos phrase selects fields", func(t *testing.T) {
		parsed := p.Parse("listar contas campos nome, cidade")
		want := []string{"name", "address1_city"}
		if !reflect.DeepEqual(parsed.Fields, want) {
			t.Fatalf("got fields %v, want %v", parsed.Fields, want)
		}
	})

	t.Run("unmatched tokens are silently dropped", func(t *testing.T) {
		parsed := p.Parse("listar contas por favor rapidamente")
		if parsed.Entity != "accounts" || len(parsed.Filters) != 0 {
			t.Fatalf("got %+v", parsed)
		}
	})

	t.Run("no entity yields empty entity", func(t *testing.T) {
		parsed := p.Parse("listar tudo rapidamente")
		if parsed.Entity != "" {
			t.Fatalf("got entity %q", parsed.Entity)
		}
	})

	t.Run("trace disabled records nothing", func(t *testing.T) {
		parsed := p.Parse("listar contas xyz")
		if parsed.Trace != nil {
			t.Fatalf("got trace %+v", parsed.Trace)
		}
	})
}

func TestParseTrace(t *testing.T) {
	p := NewParser(lexicon.MustLoad(), true)

	parsed := p.Parse("listar contas xyz cidade igual Lisboa")
	rules := make([]string, 0, len(parsed.Trace))
	for _, entry := range parsed.Trace {
		rules = append(rules, entry.Rule)
	}
	want := []string{"action", "entity", "discarded", "filter"}
	if !reflect.DeepEqual(rules, want) {
		t.Fatalf("got rules %v, want %v", rules, want)
	}
	if !reflect.DeepEqual(parsed.Trace[3].Tokens, []string{"cidade", "igual", "lisboa"}) {
		t.Fatalf("got filter tokens %v", parsed.Trace[3].Tokens)
	}
}
