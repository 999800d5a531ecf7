// Package provider defines the pluggable search and stance-analysis
// backends plus reference adapters for Tavily and OpenAI.
package provider

import (
	"context"

	"github.com/pbriand/verifai/internal/model"
)

// SearchProvider retrieves candidate evidence for a claim.
type SearchProvider interface {
	// Name returns the provider name used for rate limiting and logs
	Name() string

	// Search returns up to maxResults candidate sources for the query
	Search(ctx context.Context, query string, maxResults int) (*SearchResponse, error)
}

// SearchResult is one raw hit from a search backend.
type SearchResult struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"` // Backend relevance score, informational only
}

// SearchResponse contains the hits plus the backend's synthetic answer
// when it produces one.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Answer  string         `json:"answer,omitempty"`
}

// AnalysisProvider classifies the stance of each source toward a claim.
type AnalysisProvider interface {
	// Name returns the provider name used for rate limiting and logs
	Name() string

	// AnalyzeStances labels every source in the request with a stance
	AnalyzeStances(ctx context.Context, req StanceRequest) (*StanceResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// StanceRequest carries the claim and the sources to classify.
type StanceRequest struct {
	Claim   string
	Sources []model.SourceRecord

	// Model overrides the configured model when set
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// StanceResult is the classification of one source.
type StanceResult struct {
	URL        string       `json:"url"`
	Stance     model.Stance `json:"stance"`
	Confidence float64      `json:"confidence"`
}

// StanceResponse contains the classifications and usage accounting.
type StanceResponse struct {
	Stances    []StanceResult `json:"stances"`
	Model      string         `json:"model,omitempty"`
	TokensUsed int            `json:"tokens_used,omitempty"`
}
