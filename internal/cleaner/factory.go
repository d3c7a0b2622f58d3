package cleaner

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
)

// Provider is one backing LLM. Implementations send a single cleaning
// request and return the model's text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, text string) (string, error)
}

// NewProvider selects and initializes the configured LLM provider.
func NewProvider(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (Provider, error) {
	switch cfg.LLM.Provider {
	case "claude":
		return newClaudeProvider(&cfg.Claude, logger)
	case "gemini":
		return newGeminiProvider(ctx, &cfg.Gemini, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLM.Provider)
	}
}
