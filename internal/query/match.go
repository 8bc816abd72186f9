package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Match evaluates a filter string in the grammar Build emits against a flat
// record. It exists for the sandbox connector, which stores records locally
// and has no query engine behind it. Supported forms: `field op value`,
// `field op 'value'`, `fn(field, 'value')`, joined by top-level " and ".
// String comparison is case-insensitive, matching the CRM API's collation.
func Match(filter string, record map[string]any) (bool, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true, nil
	}
	for _, clause := range splitAnd(filter) {
		ok, err := matchClause(clause, record)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// splitAnd splits on " and " outside single-quoted literals.
func splitAnd(filter string) []string {
	var parts []string
	var quoted bool
	start := 0
	for i := 0; i < len(filter); i++ {
		if filter[i] == '\'' {
			quoted = !quoted
			continue
		}
		if !quoted && strings.HasPrefix(filter[i:], " and ") {
			parts = append(parts, filter[start:i])
			i += len(" and ") - 1
			start = i + 1
		}
	}
	parts = append(parts, filter[start:])
	return parts
}

func matchClause(clause string, record map[string]any) (bool, error) {
	clause = strings.TrimSpace(clause)

	for _, fn := range []Operator{OpContains, OpStartsWith, OpEndsWith} {
		prefix := string(fn) + "("
		if strings.HasPrefix(clause, prefix) && strings.HasSuffix(clause, ")") {
			inner := clause[len(prefix) : len(clause)-1]
			field, literal, ok := strings.Cut(inner, ",")
			if !ok {
				return false, fmt.Errorf("malformed filter clause: %q", clause)
			}
			value := strings.ToLower(unquote(strings.TrimSpace(literal)))
			current := strings.ToLower(fieldString(record, strings.TrimSpace(field)))
			switch fn {
			case OpContains:
				return strings.Contains(current, value), nil
			case OpStartsWith:
				return strings.HasPrefix(current, value), nil
			default:
				return strings.HasSuffix(current, value), nil
			}
		}
	}

	tokens := strings.SplitN(clause, " ", 3)
	if len(tokens) != 3 {
		return false, fmt.Errorf("malformed filter clause: %q", clause)
	}
	field, op, literal := tokens[0], Operator(tokens[1]), unquote(tokens[2])
	current := fieldString(record, field)

	if cn, err1 := strconv.ParseFloat(current, 64); err1 == nil {
		if vn, err2 := strconv.ParseFloat(literal, 64); err2 == nil {
			return compareFloat(op, cn, vn)
		}
	}
	return compareString(op, strings.ToLower(current), strings.ToLower(literal))
}

func compareFloat(op Operator, a, b float64) (bool, error) {
	switch op {
	case OpEq:
		return a == b, nil
	case OpNe:
		return a != b, nil
	case OpGt:
		return a > b, nil
	case OpLt:
		return a < b, nil
	case OpGe:
		return a >= b, nil
	case OpLe:
		return a <= b, nil
	}
	return false, fmt.Errorf("unsupported operator: %q", op)
}

func compareString(op Operator, a, b string) (bool, error) {
	switch op {
	case OpEq:
		return a == b, nil
	case OpNe:
		return a != b, nil
	case OpGt:
		return a > b, nil
	case OpLt:
		return a < b, nil
	case OpGe:
		return a >= b, nil
	case OpLe:
		return a <= b, nil
	}
	return false, fmt.Errorf("unsupported operator: %q", op)
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

func fieldString(record map[string]any, field string) string {
	value, ok := record[field]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
