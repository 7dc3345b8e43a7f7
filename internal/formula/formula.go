// Package formula defines the declarative model formula and derives the
// fixed/random formula pair every model specification compiles into.
//
// Grammar (whitespace-insensitive):
//
//	[response] ~ rhs
//	rhs        = term ("+" term)*
//	term       = "1" | "0" | "-1"            intercept control
//	           | name                        main effect
//	           | name (":" name)+            interaction
//	           | "(" rhs "|" name ")"        grouping (random) term
//
// One source specification always yields two formulas: grouping terms move
// to the random-effects formula (expanded against the group factor), every
// other term stays on the fixed-effects formula.
package formula

import (
	"fmt"
	"strings"
)

// Term is one expanded formula term. A single factor is a main effect;
// several factors form an interaction.
type Term struct {
	Factors []string
}

// String renders the term in formula notation.
func (t Term) String() string { return strings.Join(t.Factors, ":") }

// Formula is a parsed effect specification over column names.
type Formula struct {
	Response  string
	Intercept bool
	Terms     []Term

	// Random marks the group-varying half of a derived pair.
	Random bool

	// GroupFactors lists factors introduced by grouping terms. The matrix
	// builder expands these without dropping a reference level.
	GroupFactors []string
}

// Empty reports whether the formula contributes no design columns.
func (f *Formula) Empty() bool {
	return f == nil || (!f.Intercept && len(f.Terms) == 0)
}

// ColumnNames returns every column name the formula references.
func (f *Formula) ColumnNames() []string {
	if f == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, t := range f.Terms {
		for _, fac := range t.Factors {
			if _, ok := seen[fac]; ok {
				continue
			}
			seen[fac] = struct{}{}
			out = append(out, fac)
		}
	}
	return out
}

// Pair couples the fixed- and random-effects formulas derived from one
// source specification. Either half may be empty.
type Pair struct {
	Fixed  *Formula
	Random *Formula
}

// Parse parses a single-sided formula (no grouping terms are split off;
// they are rejected). Use Derive for full specifications.
func Parse(src string) (*Formula, error) {
	pair, err := Derive(src)
	if err != nil {
		return nil, err
	}
	if !pair.Random.Empty() {
		return nil, fmt.Errorf("formula: %q contains grouping terms; use Derive", src)
	}
	return pair.Fixed, nil
}

// Derive parses a source specification and splits it into the fixed/random
// formula pair.
//
// Grouping terms expand against their group factor:
//   - (1 | g)     -> random term g (intercept varies by group)
//   - (1 + x | g) -> random terms g and x:g
//   - (x | g)     -> random term x:g; the varying intercept is spelled out
//
// The random formula keeps an intercept so its design matrix carries the
// reference column the serializer always excludes from the effective count.
func Derive(src string) (Pair, error) {
	response, rhs, err := splitTilde(src)
	if err != nil {
		return Pair{}, err
	}

	fixed := &Formula{Response: response, Intercept: true}
	random := &Formula{Response: response, Intercept: false, Random: true}

	terms, err := splitTopLevel(rhs, '+')
	if err != nil {
		return Pair{}, err
	}

	for _, raw := range terms {
		tok := strings.TrimSpace(raw)
		switch tok {
		case "":
			continue
		case "1":
			fixed.Intercept = true
			continue
		case "0", "-1":
			fixed.Intercept = false
			continue
		}

		if strings.HasPrefix(tok, "(") {
			inner, group, err := parseGroupTerm(tok)
			if err != nil {
				return Pair{}, err
			}
			if err := appendGroupExpansion(random, inner, group); err != nil {
				return Pair{}, err
			}
			continue
		}

		t, err := parseInteraction(tok)
		if err != nil {
			return Pair{}, err
		}
		fixed.Terms = append(fixed.Terms, t)
	}

	if len(random.Terms) > 0 {
		random.Intercept = true
	}

	return Pair{Fixed: fixed, Random: random}, nil
}

func splitTilde(src string) (response, rhs string, err error) {
	parts := strings.SplitN(src, "~", 2)
	if len(parts) == 1 {
		return "", strings.TrimSpace(parts[0]), nil
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

// splitTopLevel splits on sep outside parentheses.
func splitTopLevel(s string, sep byte) ([]string, error) {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("formula: unbalanced ')' in %q", s)
			}
		case sep:
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("formula: unbalanced '(' in %q", s)
	}
	out = append(out, s[start:])
	return out, nil
}

func parseGroupTerm(tok string) (inner []string, group string, err error) {
	if !strings.HasSuffix(tok, ")") {
		return nil, "", fmt.Errorf("formula: malformed grouping term %q", tok)
	}
	body := tok[1 : len(tok)-1]
	parts := strings.SplitN(body, "|", 2)
	if len(parts) != 2 {
		return nil, "", fmt.Errorf("formula: grouping term %q needs '|'", tok)
	}
	group = strings.TrimSpace(parts[1])
	if group == "" {
		return nil, "", fmt.Errorf("formula: grouping term %q has empty group", tok)
	}
	innerTerms, err := splitTopLevel(strings.TrimSpace(parts[0]), '+')
	if err != nil {
		return nil, "", err
	}
	for _, it := range innerTerms {
		it = strings.TrimSpace(it)
		if it != "" {
			inner = append(inner, it)
		}
	}
	if len(inner) == 0 {
		inner = []string{"1"}
	}
	return inner, group, nil
}

func appendGroupExpansion(random *Formula, inner []string, group string) error {
	random.GroupFactors = append(random.GroupFactors, group)
	for _, it := range inner {
		switch it {
		case "1":
			random.Terms = append(random.Terms, Term{Factors: []string{group}})
		case "0", "-1":
			// No varying intercept for this group.
		default:
			t, err := parseInteraction(it)
			if err != nil {
				return err
			}
			t.Factors = append(t.Factors, group)
			random.Terms = append(random.Terms, t)
		}
	}
	return nil
}

func parseInteraction(tok string) (Term, error) {
	parts := strings.Split(tok, ":")
	t := Term{Factors: make([]string, 0, len(parts))}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return Term{}, fmt.Errorf("formula: empty factor in term %q", tok)
		}
		if strings.ContainsAny(p, "()|~") {
			return Term{}, fmt.Errorf("formula: invalid factor %q in term %q", p, tok)
		}
		t.Factors = append(t.Factors, p)
	}
	return t, nil
}
