package provider

import (
	"fmt"
	"strings"

	"github.com/pbriand/verifai/internal/model"
)

// NewSearchProvider creates a search provider based on configuration
func NewSearchProvider(cfg model.SearchConfig) (SearchProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "tavily", "":
		return NewTavilyProvider(cfg)

	default:
		return nil, fmt.Errorf("unknown search provider: %s (supported: tavily)", cfg.Provider)
	}
}

// NewAnalysisProvider creates an analysis provider based on configuration.
// An empty provider name disables stance analysis.
func NewAnalysisProvider(cfg model.AnalysisConfig) (AnalysisProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(cfg)

	case "":
		// No provider configured - stance analysis disabled
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown analysis provider: %s (supported: openai)", cfg.Provider)
	}
}
