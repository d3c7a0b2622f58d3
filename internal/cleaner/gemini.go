package cleaner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/colligo/internal/common"
)

// geminiProvider cleans text through the Google Gemini API.
type geminiProvider struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
}

// newGeminiProvider creates a Gemini-backed cleaning provider.
func newGeminiProvider(ctx context.Context, config *common.GeminiConfig, logger arbor.ILogger) (*geminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or gemini.api_key in config)")
	}

	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}

	timeout := 120 * time.Second
	if config.Timeout != "" {
		parsed, err := time.ParseDuration(config.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
		}
		timeout = parsed
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	provider := &geminiProvider{
		config:  config,
		logger:  logger,
		client:  client,
		timeout: timeout,
	}

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Msg("Gemini cleaning provider initialized")

	return provider, nil
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

// Complete sends text with the cleaning system prompt and returns the first
// candidate's text.
func (p *geminiProvider) Complete(ctx context.Context, text string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(text)},
		},
	}
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(p.config.Temperature),
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}

	resp, err := p.client.Models.GenerateContent(timeoutCtx, p.config.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}

	var response strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}
	if response.Len() == 0 {
		return "", fmt.Errorf("no text content in gemini response")
	}
	return response.String(), nil
}
