// Package filter implements the record query language used by the
// collections API: conjunctions of "field op literal" comparisons, e.g.
//
//	status != "delivered" && created >= "2024-01-01 00:00:00"
//
// Supported operators: = != > >= < <=. Literals are double-quoted strings,
// numbers, or the booleans true/false. Only && conjunction is supported.
package filter

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type Op string

const (
	OpEqual        Op = "="
	OpNotEqual     Op = "!="
	OpGreater      Op = ">"
	OpGreaterEqual Op = ">="
	OpLess         Op = "<"
	OpLessEqual    Op = "<="
)

// Condition is a single "field op literal" comparison.
type Condition struct {
	Field string
	Op    Op
	Value any // string, float64 or bool
}

// Expr is a conjunction of conditions. An empty Expr matches everything.
type Expr struct {
	Conds []Condition
}

type token struct {
	kind  tokenKind
	text  string
	value any
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokOp
	tokString
	tokNumber
	tokBool
	tokAnd
)

// Parse parses a filter expression. An empty input yields an empty Expr.
func Parse(input string) (*Expr, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return &Expr{}, nil
	}

	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}

	expr := &Expr{}
	i := 0
	for {
		if len(tokens)-i < 3 {
			return nil, fmt.Errorf("incomplete condition at end of filter")
		}
		ident, op, lit := tokens[i], tokens[i+1], tokens[i+2]
		if ident.kind != tokIdent {
			return nil, fmt.Errorf("expected field name, got %q", ident.text)
		}
		if op.kind != tokOp {
			return nil, fmt.Errorf("expected operator after %q, got %q", ident.text, op.text)
		}
		if lit.kind != tokString && lit.kind != tokNumber && lit.kind != tokBool {
			return nil, fmt.Errorf("expected literal after %q %s, got %q", ident.text, op.text, lit.text)
		}
		expr.Conds = append(expr.Conds, Condition{
			Field: ident.text,
			Op:    Op(op.text),
			Value: lit.value,
		})

		i += 3
		if i == len(tokens) {
			return expr, nil
		}
		if tokens[i].kind != tokAnd {
			return nil, fmt.Errorf("expected && between conditions, got %q", tokens[i].text)
		}
		i++
		if i == len(tokens) {
			return nil, fmt.Errorf("dangling && at end of filter")
		}
	}
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)
	i := 0

	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case r == '&':
			if i+1 >= len(runes) || runes[i+1] != '&' {
				return nil, fmt.Errorf("unexpected single & at position %d", i)
			}
			tokens = append(tokens, token{kind: tokAnd, text: "&&"})
			i += 2

		case r == '"':
			end := -1
			for j := i + 1; j < len(runes); j++ {
				if runes[j] == '"' {
					end = j
					break
				}
			}
			if end == -1 {
				return nil, fmt.Errorf("unterminated string literal")
			}
			s := string(runes[i+1 : end])
			tokens = append(tokens, token{kind: tokString, text: s, value: s})
			i = end + 1

		case r == '=' || r == '!' || r == '>' || r == '<':
			op := string(r)
			if i+1 < len(runes) && runes[i+1] == '=' {
				op += "="
				i++
			}
			i++
			if op == "!" {
				return nil, fmt.Errorf("unexpected ! without =")
			}
			tokens = append(tokens, token{kind: tokOp, text: op})

		case unicode.IsDigit(r) || r == '-' || r == '.':
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.' || runes[i] == '-') {
				i++
			}
			text := string(runes[start:i])
			n, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", text)
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, value: n})

		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			text := string(runes[start:i])
			switch text {
			case "true":
				tokens = append(tokens, token{kind: tokBool, text: text, value: true})
			case "false":
				tokens = append(tokens, token{kind: tokBool, text: text, value: false})
			default:
				tokens = append(tokens, token{kind: tokIdent, text: text})
			}

		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", r, i)
		}
	}

	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty filter")
	}
	return tokens, nil
}

// Match evaluates the expression against a flattened record: system fields
// (id, created, updated) plus the data fields. Timestamps must be passed as
// second-granularity "2006-01-02 15:04:05" strings so range comparisons
// against filter literals work lexically.
func (e *Expr) Match(fields map[string]any) bool {
	for _, c := range e.Conds {
		if !c.match(fields) {
			return false
		}
	}
	return true
}

func (c Condition) match(fields map[string]any) bool {
	actual, ok := fields[c.Field]
	if !ok || actual == nil {
		// A missing field only satisfies "!=".
		return c.Op == OpNotEqual && c.Value != nil
	}

	switch c.Op {
	case OpEqual:
		return looseEqual(actual, c.Value)
	case OpNotEqual:
		return !looseEqual(actual, c.Value)
	}

	// Ordering: numeric when both sides are numbers, lexical otherwise.
	an, aok := toFloat(actual)
	bn, bok := toFloat(c.Value)
	if aok && bok {
		switch c.Op {
		case OpGreater:
			return an > bn
		case OpGreaterEqual:
			return an >= bn
		case OpLess:
			return an < bn
		case OpLessEqual:
			return an <= bn
		}
	}

	as, bs := toString(actual), toString(c.Value)
	switch c.Op {
	case OpGreater:
		return as > bs
	case OpGreaterEqual:
		return as >= bs
	case OpLess:
		return as < bs
	case OpLessEqual:
		return as <= bs
	}
	return false
}

func looseEqual(a, b any) bool {
	if an, ok := toFloat(a); ok {
		if bn, ok := toFloat(b); ok {
			return an == bn
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return ab == bb
		}
	}
	return toString(a) == toString(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		if s {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
