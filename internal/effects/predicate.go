package effects

import (
	"regexp"
	"strings"
)

// MatchConfig parameterizes the shipped predicates. Alternative predicates
// may interpret it however they like or ignore it entirely.
type MatchConfig struct {
	// Prefix is the literal effect-name prefix for PrefixMatch.
	Prefix string

	// Pattern is the regular expression for RegexMatch.
	Pattern string

	// Names is the explicit effect set for SetMatch.
	Names []string
}

// Predicate selects a subset of effect names. Implementations must return
// one flag per input name, in order.
type Predicate func(names []string, cfg MatchConfig) []bool

// PrefixMatch is the default predicate: an effect matches when its name
// starts with cfg.Prefix. An empty prefix matches nothing rather than
// everything, so a zero MatchConfig is inert.
func PrefixMatch(names []string, cfg MatchConfig) []bool {
	out := make([]bool, len(names))
	if cfg.Prefix == "" {
		return out
	}
	for i, n := range names {
		out[i] = strings.HasPrefix(n, cfg.Prefix)
	}
	return out
}

// RegexMatch matches effect names against cfg.Pattern. An invalid or empty
// pattern matches nothing.
func RegexMatch(names []string, cfg MatchConfig) []bool {
	out := make([]bool, len(names))
	if cfg.Pattern == "" {
		return out
	}
	re, err := regexp.Compile(cfg.Pattern)
	if err != nil {
		return out
	}
	for i, n := range names {
		out[i] = re.MatchString(n)
	}
	return out
}

// SetMatch matches effect names contained in cfg.Names.
func SetMatch(names []string, cfg MatchConfig) []bool {
	set := make(map[string]struct{}, len(cfg.Names))
	for _, n := range cfg.Names {
		set[n] = struct{}{}
	}
	out := make([]bool, len(names))
	for i, n := range names {
		_, out[i] = set[n]
	}
	return out
}
