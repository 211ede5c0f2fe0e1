// Package filter compiles the user-facing filter grammar into the native
// filter syntax of the remote product search backend.
//
// The grammar is the backend's supported subset: zero or more clauses of the
// form key="value" joined by the case-sensitive keyword AND. OR, nesting and
// negation are rejected rather than approximated -- callers needing OR
// semantics must issue multiple queries and merge client-side.
package filter

import (
	"fmt"
	"strings"

	"github.com/yow-cloud/shoplens/internal/domain"
	"github.com/yow-cloud/shoplens/internal/domain/product"
)

// Clause is a single key="value" equality condition.
type Clause struct {
	key   string
	value string
}

// Key returns the attribute name.
func (c Clause) Key() string { return c.key }

// Value returns the required attribute value.
func (c Clause) Value() string { return c.value }

// Expression is a compiled conjunction of clauses. The zero value matches all.
type Expression struct {
	clauses []Clause
}

// IsEmpty reports whether the expression has no clauses (match-all).
func (e Expression) IsEmpty() bool { return len(e.clauses) == 0 }

// Clauses returns the clauses in original order.
func (e Expression) Clauses() []Clause { return e.clauses }

// Native renders the backend filter string, clauses in original order.
func (e Expression) Native() string {
	if len(e.clauses) == 0 {
		return ""
	}
	parts := make([]string, len(e.clauses))
	for i, c := range e.clauses {
		v := c.value
		if strings.ContainsAny(v, " \t") {
			v = `"` + v + `"`
		}
		parts[i] = c.key + "=" + v
	}
	return strings.Join(parts, " AND ")
}

// Compile parses a raw filter expression and validates every key against the
// vocabulary. Empty input compiles to the match-all Expression. Compilation is
// deterministic and total over well-formed input.
func Compile(raw string, vocab product.Vocabulary) (Expression, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Expression{}, nil
	}

	var clauses []Clause
	for {
		clause, rest, err := scanClause(s)
		if err != nil {
			return Expression{}, err
		}
		if !vocab.Contains(clause.key) {
			return Expression{}, fmt.Errorf("%w: %q", domain.ErrUnknownAttribute, clause.key)
		}
		clauses = append(clauses, clause)

		rest = strings.TrimLeft(rest, " \t")
		if rest == "" {
			break
		}
		keyword, after, found := strings.Cut(rest, " ")
		if !found || keyword != "AND" {
			return Expression{}, fmt.Errorf("%w: expected AND before %q", domain.ErrFilterParse, rest)
		}
		s = strings.TrimLeft(after, " \t")
		if s == "" {
			return Expression{}, fmt.Errorf("%w: dangling AND", domain.ErrFilterParse)
		}
	}

	return Expression{clauses: clauses}, nil
}

// scanClause consumes one key="value" clause and returns the remainder.
func scanClause(s string) (Clause, string, error) {
	eq := strings.IndexByte(s, '=')
	if eq <= 0 {
		return Clause{}, "", fmt.Errorf("%w: expected key=\"value\" at %q", domain.ErrFilterParse, truncate(s))
	}
	key := s[:eq]
	if !validKey(key) {
		return Clause{}, "", fmt.Errorf("%w: bad key at %q", domain.ErrFilterParse, truncate(s))
	}

	rest := s[eq+1:]
	if len(rest) == 0 || rest[0] != '"' {
		return Clause{}, "", fmt.Errorf("%w: value must be quoted at %q", domain.ErrFilterParse, truncate(s))
	}
	rest = rest[1:]
	closing := strings.IndexByte(rest, '"')
	if closing < 0 {
		return Clause{}, "", fmt.Errorf("%w: unterminated quote at %q", domain.ErrFilterParse, truncate(s))
	}
	value := rest[:closing]
	if value == "" {
		return Clause{}, "", fmt.Errorf("%w: empty value for key %q", domain.ErrFilterParse, key)
	}

	return Clause{key: key, value: value}, rest[closing+1:], nil
}

func validKey(key string) bool {
	for i, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return key != ""
}

func truncate(s string) string {
	const max = 32
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
