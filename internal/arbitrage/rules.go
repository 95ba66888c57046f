package arbitrage

import (
	"fmt"
	"os"
	"path"

	"github.com/goccy/go-json"

	"github.com/mselser95/kalshi-arb/pkg/types"
)

// RuleKind classifies the logical relation a correlation rule asserts
// between two markets.
type RuleKind string

const (
	// RuleImplies asserts that A resolving YES forces B to resolve YES.
	RuleImplies RuleKind = "implies"
	// RuleExcludes asserts that A and B cannot both resolve YES.
	RuleExcludes RuleKind = "excludes"
	// RuleEquivalent asserts that A and B always resolve the same way.
	RuleEquivalent RuleKind = "equivalent"
)

// CorrelationRule relates two ticker glob patterns by a logical rule.
// Patterns use path.Match syntax; tickers never contain '/', so the
// globs behave like plain shell globs.
type CorrelationRule struct {
	PatternA    string   `json:"pattern_a"`
	PatternB    string   `json:"pattern_b"`
	Kind        RuleKind `json:"kind"`
	Description string   `json:"description,omitempty"`
}

// orient maps an unordered market pair onto the rule's (A, B) slots,
// trying both orderings. Orientation matters: IMPLIES is directional.
func (r CorrelationRule) orient(x, y *types.Market) (a, b *types.Market, ok bool) {
	if matchPattern(r.PatternA, x.Ticker) && matchPattern(r.PatternB, y.Ticker) {
		return x, y, true
	}
	if matchPattern(r.PatternA, y.Ticker) && matchPattern(r.PatternB, x.Ticker) {
		return y, x, true
	}
	return nil, nil, false
}

// matchPattern treats malformed patterns as non-matching; LoadRules
// rejects them up front.
func matchPattern(pattern, ticker string) bool {
	ok, err := path.Match(pattern, ticker)
	return err == nil && ok
}

func (r CorrelationRule) validate() error {
	switch r.Kind {
	case RuleImplies, RuleExcludes, RuleEquivalent:
	default:
		return fmt.Errorf("unknown rule kind %q", r.Kind)
	}

	for _, pattern := range []string{r.PatternA, r.PatternB} {
		if pattern == "" {
			return fmt.Errorf("empty ticker pattern")
		}
		if _, err := path.Match(pattern, "x"); err != nil {
			return fmt.Errorf("bad ticker pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// LoadRules reads correlation rules from a JSON file: an array of
// {pattern_a, pattern_b, kind, description} objects.
func LoadRules(filePath string) ([]CorrelationRule, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var rules []CorrelationRule
	err = json.Unmarshal(data, &rules)
	if err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}

	for i, rule := range rules {
		err = rule.validate()
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}

	return rules, nil
}
