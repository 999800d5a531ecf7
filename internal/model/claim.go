package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Claim length bounds, in characters of the normalized form.
const (
	MinClaimLength = 10
	MaxClaimLength = 500
)

var bareURLPattern = regexp.MustCompile(`^https?://\S+$`)

// Claim is the factual statement under verification. It is immutable:
// created once at workflow start, never mutated.
type Claim struct {
	Text       string `json:"text"`       // Raw input text, whitespace-trimmed
	Normalized string `json:"normalized"` // Lowercased, whitespace-collapsed; cache/dedup key
}

// NewClaim validates raw claim text and derives its normalized form.
// A claim must be free text between MinClaimLength and MaxClaimLength
// characters; a bare URL is rejected.
func NewClaim(text string) (Claim, error) {
	clean := strings.Join(strings.Fields(text), " ")

	if len(clean) < MinClaimLength {
		return Claim{}, fmt.Errorf("claim too short: %d chars (min %d)", len(clean), MinClaimLength)
	}
	if len(clean) > MaxClaimLength {
		return Claim{}, fmt.Errorf("claim too long: %d chars (max %d)", len(clean), MaxClaimLength)
	}
	if bareURLPattern.MatchString(clean) {
		return Claim{}, fmt.Errorf("claim looks like a bare URL, expected free text")
	}

	return Claim{
		Text:       clean,
		Normalized: strings.ToLower(clean),
	}, nil
}

// NormalizeClaim returns the cache/dedup key for raw claim text without
// validating it.
func NormalizeClaim(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
