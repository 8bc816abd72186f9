// Package shorthand parses the compact `entity:action key=value` command
// grammar and executes the resulting commands against the CRM connector.
package shorthand

import (
	"strconv"
	"strings"

	"crmbridge/internal/lexicon"
)

// Command is a parsed shorthand command. Entity is the pluralized entity-set
// name; an empty Entity and Action means the first token was not an
// `entity:action` pair and the command is malformed.
type Command struct {
	Entity string
	Action string
	Params map[string]any
}

// Parse splits a shorthand command into entity, action, and parameters.
// The first whitespace-delimited token must be `entity:action`. Among the
// remaining tokens, the first one without '=' is captured as Params["id"];
// `key=value` tokens are coerced: "true"/"false" to bool, numeric strings to
// numbers, everything else stays a string.
func Parse(lex *lexicon.Lexicon, command string) Command {
	cmd := Command{Params: map[string]any{}}

	tokens := strings.Fields(strings.TrimSpace(command))
	if len(tokens) == 0 {
		return cmd
	}

	entityToken, actionToken, ok := strings.Cut(tokens[0], ":")
	if !ok || entityToken == "" || actionToken == "" {
		return cmd
	}

	if set, found := lex.CollectionFor(entityToken); found {
		cmd.Entity = set
	} else {
		cmd.Entity = lexicon.Normalize(entityToken)
	}
	if action, found := lex.ActionFor(actionToken); found {
		cmd.Action = action
	} else {
		cmd.Action = lexicon.Normalize(actionToken)
	}

	idCaptured := false
	for _, token := range tokens[1:] {
		key, value, isPair := strings.Cut(token, "=")
		if !isPair {
			if !idCaptured {
				cmd.Params["id"] = token
				idCaptured = true
			}
			continue
		}
		if key == "" {
			continue
		}
		cmd.Params[key] = coerce(value)
	}
	return cmd
}

func coerce(value string) any {
	switch value {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}
