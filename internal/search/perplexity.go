package search

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const perplexityBaseURL = "https://api.perplexity.ai"

// PerplexityProvider queries Perplexity's OpenAI-compatible online model. The
// model synthesizes an answer from the web, so a search yields one
// content-rich result rather than a link list.
type PerplexityProvider struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	apiKey  string
}

func NewPerplexityProvider(apiKey, model string, timeoutSec int) *PerplexityProvider {
	if model == "" {
		model = "llama-3.1-sonar-small-128k-online"
	}
	timeout := time.Duration(timeoutSec) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var client *openai.Client
	if apiKey != "" {
		cfg := openai.DefaultConfig(apiKey)
		cfg.BaseURL = perplexityBaseURL
		client = openai.NewClientWithConfig(cfg)
	}

	return &PerplexityProvider{
		client:  client,
		model:   model,
		timeout: timeout,
		apiKey:  apiKey,
	}
}

func (p *PerplexityProvider) Name() string {
	return "perplexity"
}

func (p *PerplexityProvider) Available() bool {
	return p.apiKey != ""
}

func (p *PerplexityProvider) Search(ctx context.Context, query string) ([]Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a helpful assistant that provides detailed mathematical solutions with step-by-step explanations. Always cite sources when providing information from the web.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Find comprehensive information about: %s. Provide step-by-step mathematical solution if applicable. Include relevant formulas and examples.", query),
			},
		},
		MaxTokens:   1000,
		Temperature: 0.2,
		TopP:        0.9,
	})
	if err != nil {
		return nil, fmt.Errorf("perplexity search failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("perplexity returned no choices")
	}

	content := resp.Choices[0].Message.Content

	return []Result{
		{
			Title:   "Perplexity Mathematical Solution",
			URL:     "https://perplexity.ai",
			Content: content,
		},
	}, nil
}
