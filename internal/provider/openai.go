package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pbriand/verifai/internal/model"
)

// OpenAIProvider implements AnalysisProvider using OpenAI chat models.
type OpenAIProvider struct {
	client *openai.Client
	config model.AnalysisConfig
}

// NewOpenAIProvider creates a new OpenAI stance-analysis provider
func NewOpenAIProvider(cfg model.AnalysisConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the provider is properly configured and accessible
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// AnalyzeStances classifies every source's stance toward the claim in a
// single chat completion.
func (p *OpenAIProvider) AnalyzeStances(ctx context.Context, req StanceRequest) (*StanceResponse, error) {
	if len(req.Sources) == 0 {
		return &StanceResponse{}, nil
	}

	chatModel := req.Model
	if chatModel == "" {
		chatModel = p.config.Model
	}
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 1000
	}

	timeout := p.config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You classify whether web sources confirm, refute, or are neutral toward a factual claim. Answer with JSON only.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildStancePrompt(req.Claim, req.Sources),
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.1,
	}

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, chatReq)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	stances, err := parseStanceReply(resp.Choices[0].Message.Content, req.Sources)
	if err != nil {
		return nil, err
	}

	return &StanceResponse{
		Stances:    stances,
		Model:      chatModel,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

func buildStancePrompt(claim string, sources []model.SourceRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Claim: %q\n\nSources:\n", claim)
	for i, src := range sources {
		snippet := truncateRunes(src.Snippet, 400)
		fmt.Fprintf(&b, "%d. url: %s\n   title: %s\n   excerpt: %s\n", i+1, src.URL, src.Title, snippet)
	}
	b.WriteString(`
For each source decide its stance toward the claim: CONFIRMS, REFUTES, NEUTRAL, or UNKNOWN when the excerpt is unrelated or too thin to tell.

Reply with a JSON array only, one object per source, in the same order:
[{"url": "...", "stance": "CONFIRMS", "confidence": 0.9}]
confidence is 0..1.`)
	return b.String()
}

// parseStanceReply extracts the JSON array from the model's reply. Sources
// the model skipped or mislabeled come back as UNKNOWN rather than failing
// the whole analysis.
func parseStanceReply(reply string, sources []model.SourceRecord) ([]StanceResult, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in analysis reply")
	}

	var raw []struct {
		URL        string  `json:"url"`
		Stance     string  `json:"stance"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("decode analysis reply: %w", err)
	}

	byURL := make(map[string]StanceResult, len(raw))
	for _, r := range raw {
		byURL[r.URL] = StanceResult{
			URL:        r.URL,
			Stance:     normalizeStance(r.Stance),
			Confidence: clamp01(r.Confidence),
		}
	}

	out := make([]StanceResult, 0, len(sources))
	for _, src := range sources {
		if res, ok := byURL[src.URL]; ok {
			out = append(out, res)
			continue
		}
		out = append(out, StanceResult{URL: src.URL, Stance: model.StanceUnknown})
	}
	return out, nil
}

func normalizeStance(s string) model.Stance {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(model.StanceConfirms):
		return model.StanceConfirms
	case string(model.StanceRefutes):
		return model.StanceRefutes
	case string(model.StanceNeutral):
		return model.StanceNeutral
	default:
		return model.StanceUnknown
	}
}

// truncateRunes cuts s after at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
