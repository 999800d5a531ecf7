// Package credibility maps source domains to trust tiers and numeric
// weights. The table is loaded once at startup and never mutated, so
// concurrent workflow instances share it without locking.
package credibility

import (
	"strings"

	"github.com/pbriand/verifai/internal/model"
)

// Scorer classifies domains against an ordered pattern table. Score is a
// pure function of the table and its input.
type Scorer struct {
	rules map[string]model.DomainRule // keyed by pattern
}

// NewScorer builds a scorer from the built-in table plus any configured
// overrides. Overrides win over built-in rules for the same pattern.
func NewScorer(cfg *model.CredibilityConfig) *Scorer {
	s := &Scorer{rules: make(map[string]model.DomainRule)}

	for _, r := range defaultTable() {
		s.rules[normalizePattern(r.Pattern)] = r
	}
	if cfg != nil {
		for _, r := range cfg.Overrides {
			s.rules[normalizePattern(r.Pattern)] = r
		}
	}
	return s
}

// Score returns the tier and weight for a bare domain (scheme/path stripped,
// lowercased). An unknown domain gets TierUnlisted and DefaultWeight. When
// multiple patterns match, the longest matching suffix wins.
func (s *Scorer) Score(domain string) (model.Tier, float64) {
	domain = strings.ToLower(strings.TrimPrefix(domain, "www."))
	if domain == "" {
		return model.TierUnlisted, DefaultWeight
	}

	var best model.DomainRule
	bestLen := -1

	for pattern, rule := range s.rules {
		if !matches(domain, pattern) {
			continue
		}
		if len(pattern) > bestLen {
			best = rule
			bestLen = len(pattern)
		}
	}
	if bestLen >= 0 {
		return best.Tier, best.Weight
	}

	// Generic academic/government TLDs not in the table.
	if strings.HasSuffix(domain, ".gov") || strings.HasSuffix(domain, ".edu") ||
		strings.HasSuffix(domain, ".ac.uk") {
		return model.TierAcademic, weightAcademic
	}

	return model.TierUnlisted, DefaultWeight
}

// ScoreURL is a convenience wrapper that derives the domain first.
func (s *Scorer) ScoreURL(rawURL string) (model.Tier, float64) {
	return s.Score(model.DomainOf(rawURL))
}

// matches reports whether domain equals pattern or ends with ".pattern".
func matches(domain, pattern string) bool {
	return domain == pattern || strings.HasSuffix(domain, "."+pattern)
}

// normalizePattern strips the optional "*." prefix accepted in config files.
func normalizePattern(p string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(p), "*."))
}
