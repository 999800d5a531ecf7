package model

import (
	"net/url"
	"strings"
)

// Stance is a source's position toward the claim under verification.
type Stance string

const (
	StanceConfirms Stance = "CONFIRMS"
	StanceRefutes  Stance = "REFUTES"
	StanceNeutral  Stance = "NEUTRAL"
	StanceUnknown  Stance = "UNKNOWN"
)

// Tier is a discrete credibility bucket for a source domain.
// Lower number = more trusted; TierUnlisted is the lowest-trust default.
type Tier int

const (
	TierGovernment   Tier = 1 // National governments, international institutions
	TierAcademic     Tier = 2 // Scientific journals, universities, research bodies
	TierFactChecker  Tier = 3 // Dedicated fact-checking organizations
	TierSpecialized  Tier = 4 // Recognized specialized organizations (IPCC, IMF, WHO-adjacent)
	TierPremiumMedia Tier = 5 // Wire agencies and established quality press
	TierEncyclopedia Tier = 6 // Collaborative and editorial encyclopedias
	TierUnlisted     Tier = 7 // Not in the table
	TierBlocked      Tier = 8 // Known low-quality or non-primary sources
)

func (t Tier) String() string {
	switch t {
	case TierGovernment:
		return "government"
	case TierAcademic:
		return "academic"
	case TierFactChecker:
		return "factcheck"
	case TierSpecialized:
		return "specialized"
	case TierPremiumMedia:
		return "media"
	case TierEncyclopedia:
		return "encyclopedia"
	case TierBlocked:
		return "blocked"
	default:
		return "unlisted"
	}
}

// SourceRecord is one retrieved reference, enriched in place by the
// credibility scorer and the analysis provider. Owned by a single workflow
// instance; immutable once enrichment completes.
type SourceRecord struct {
	URL     string `json:"url"`
	Domain  string `json:"domain"`
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`

	Tier   Tier    `json:"tier"`
	Weight float64 `json:"weight"`

	Stance           Stance  `json:"stance"`
	StanceConfidence float64 `json:"stance_confidence"` // 0..1
}

// DomainOf extracts the bare domain from a URL: scheme and path stripped,
// lowercased, leading www. removed. Returns "" for unparseable input.
func DomainOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}
