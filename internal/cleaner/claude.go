package cleaner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
)

// claudeProvider cleans text through the Anthropic Claude API.
type claudeProvider struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    anthropic.Client
	timeout   time.Duration
	maxTokens int
}

// newClaudeProvider creates a Claude-backed cleaning provider.
func newClaudeProvider(config *common.ClaudeConfig, logger arbor.ILogger) (*claudeProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY or claude.api_key in config)")
	}

	if config.Model == "" {
		config.Model = "claude-sonnet-4-20250514"
	}

	timeout := 120 * time.Second
	if config.Timeout != "" {
		parsed, err := time.ParseDuration(config.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
		}
		timeout = parsed
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
	)

	provider := &claudeProvider{
		config:    config,
		logger:    logger,
		client:    client,
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Int("max_tokens", maxTokens).
		Msg("Claude cleaning provider initialized")

	return provider, nil
}

func (p *claudeProvider) Name() string {
	return "claude"
}

// Complete sends text with the cleaning system prompt at zero temperature
// and returns the model's response text.
func (p *claudeProvider) Complete(ctx context.Context, text string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	}
	params.Temperature = anthropic.Float(float64(p.config.Temperature))
	params.System = []anthropic.TextBlockParam{
		{Text: systemPrompt},
	}

	resp, err := p.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", fmt.Errorf("claude completion failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if response.Len() == 0 {
		return "", fmt.Errorf("no text content in claude response")
	}
	return response.String(), nil
}
