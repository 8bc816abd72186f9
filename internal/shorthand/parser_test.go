package shorthand

import (
	"reflect"
	"testing"

	"crmbridge/internal/lexicon"
)

func TestParse(t *testing.T) {
	lex := lexicon.MustLoad()

	t.Run("entity action and id", func(t *testing.T) {
		cmd := Parse(lex, "account:get 123")
		if cmd.Entity != "accounts" || cmd.Action != "get" {
			t.Fatalf("got entity %q action %q", cmd.Entity, cmd.Action)
		}
		if !reflect.DeepEqual(cmd.Params, map[string]any{"id": "123"}) {
			t.Fatalf("got params %+v", cmd.Params)
		}
	})

	t.Run("id plus field pairs", func(t *testing.T) {
		cmd := Parse(lex, "contact:update 456 firstname=João")
		if cmd.Entity != "contacts" || cmd.Action != "update" {
			t.Fatalf("got entity %q action %q", cmd.Entity, cmd.Action)
		}
		want := map[string]any{"id": "456", "firstname": "João"}
		if !reflect.DeepEqual(cmd.Params, want) {
			t.Fatalf("got params %+v, want %+v", cmd.Params, want)
		}
	})

	t.Run("portuguese synonyms resolve", func(t *testing.T) {
		cmd := Parse(lex, "conta:listar")
		if cmd.Entity != "accounts" || cmd.Action != "list" {
			t.Fatalf("got entity %q action %q", cmd.Entity, cmd.Action)
		}
	})

	t.Run("unknown entity and action pass through normalized", func(t *testing.T) {
		cmd := Parse(lex, "Widgets:Frob")
		if cmd.Entity != "widgets" || cmd.Action != "frob" {
			t.Fatalf("got entity %q action %q", cmd.Entity, cmd.Action)
		}
	})

	t.Run("value coercion", func(t *testing.T) {
		cmd := Parse(lex, "account:create a=true b=false c=10 d=1.5 e=texto")
		want := map[string]any{"a": true, "b": false, "c": 10, "d": 1.5, "e": "texto"}
		if !reflect.DeepEqual(cmd.Params, want) {
			t.Fatalf("got params %+v, want %+v", cmd.Params, want)
		}
	})

	t.Run("malformed command", func(t *testing.T) {
		for _, input := range []string{"bad-command", "", "   ", ":list", "account:"} {
			cmd := Parse(lex, input)
			if cmd.Entity != "" || cmd.Action != "" {
				t.Fatalf("Parse(%q): got entity %q action %q, want empty", input, cmd.Entity, cmd.Action)
			}
			if cmd.Params == nil || len(cmd.Params) != 0 {
				t.Fatalf("Parse(%q): params = %+v, want empty non-nil map", input, cmd.Params)
			}
		}
	})

	t.Run("only the first bare token becomes the id", func(t *testing.T) {
		cmd := Parse(lex, "account:get abc def")
		if !reflect.DeepEqual(cmd.Params, map[string]any{"id": "abc"}) {
			t.Fatalf("got params %+v", cmd.Params)
		}
	})

	t.Run("pairs with empty keys are skipped", func(t *testing.T) {
		cmd := Parse(lex, "account:list =oops name=Contoso")
		if !reflect.DeepEqual(cmd.Params, map[string]any{"name": "Contoso"}) {
			t.Fatalf("got params %+v", cmd.Params)
		}
	})
}
