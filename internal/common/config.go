package common

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Crawl       CrawlConfig   `toml:"crawl"`
	LLM         LLMConfig     `toml:"llm"`
	Claude      ClaudeConfig  `toml:"claude"`
	Gemini      GeminiConfig  `toml:"gemini"`
	Storage     StorageConfig `toml:"storage"`
	Coda        CodaConfig    `toml:"coda"`
	Logging     LoggingConfig `toml:"logging"`
}

// CrawlConfig contains traversal and fetch configuration
type CrawlConfig struct {
	SeedURL          string   `toml:"seed_url" validate:"omitempty,url"`
	OutputFile       string   `toml:"output_file"`
	Strategy         string   `toml:"strategy" validate:"oneof=bfs recursive"` // "bfs" or "recursive"
	UserAgent        string   `toml:"user_agent" validate:"required"`
	MaxDepth         int      `toml:"max_depth" validate:"gte=0"`  // 0 = unlimited
	MaxPages         int      `toml:"max_pages" validate:"gte=0"`  // 0 = unlimited
	PolitenessDelay  Duration `toml:"politeness_delay"`            // minimum delay between requests to same host
	RequestTimeout   Duration `toml:"request_timeout"`             // HTTP request timeout
	MaxRetries       int      `toml:"max_retries" validate:"gt=0"` // fetch attempts before giving up
	RetryBaseDelay   Duration `toml:"retry_base_delay"`            // first backoff step
	RetryMaxDelay    Duration `toml:"retry_max_delay"`             // backoff cap
	BinaryExtensions []string `toml:"binary_extensions"`           // path suffixes excluded from the crawl
}

// LLMConfig selects the cleaning provider and bounds calls against its quota
type LLMConfig struct {
	Provider      string   `toml:"provider" validate:"oneof=claude gemini"`
	MaxCalls      int      `toml:"max_calls" validate:"gt=0"` // admissions per window
	Window        Duration `toml:"window"`                    // sliding window length
	MaxConcurrent int64    `toml:"max_concurrent" validate:"gt=0"`
	MaxRetries    int      `toml:"max_retries" validate:"gt=0"`
	RetryDelay    Duration `toml:"retry_delay"`
	FailureLimit  int      `toml:"failure_limit" validate:"gt=0"` // consecutive failures before aborting the run
	Strict        bool     `toml:"strict"`                        // return empty text on clean exhaustion instead of the original
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// StorageConfig controls the optional Badger page-record store
type StorageConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// CodaConfig contains the document API client configuration
type CodaConfig struct {
	APIToken string `toml:"api_token"`
	BaseURL  string `toml:"base_url" validate:"omitempty,url"`
	DocID    string `toml:"doc_id"`
}

type LoggingConfig struct {
	Level string `toml:"level"` // "debug", "info", "warn", "error"
}

// NewDefaultConfig returns a Config populated with defaults matching the
// external cleaning service's quota (25 calls per minute, 20 in flight).
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "production",
		Crawl: CrawlConfig{
			OutputFile:       "docs_output.txt",
			Strategy:         "recursive",
			UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
			MaxDepth:         0,
			MaxPages:         0,
			PolitenessDelay:  Duration(2 * time.Second),
			RequestTimeout:   Duration(30 * time.Second),
			MaxRetries:       5,
			RetryBaseDelay:   Duration(3 * time.Second),
			RetryMaxDelay:    Duration(60 * time.Second),
			BinaryExtensions: []string{".pdf", ".jpg", ".jpeg", ".png", ".gif"},
		},
		LLM: LLMConfig{
			Provider:      "claude",
			MaxCalls:      25,
			Window:        Duration(60 * time.Second),
			MaxConcurrent: 20,
			MaxRetries:    5,
			RetryDelay:    Duration(3 * time.Second),
			FailureLimit:  18,
			Strict:        false,
		},
		Claude: ClaudeConfig{
			Model:     "claude-sonnet-4-20250514",
			Timeout:   "120s",
			MaxTokens: 8192,
		},
		Gemini: GeminiConfig{
			Model:   "gemini-2.0-flash",
			Timeout: "120s",
		},
		Storage: StorageConfig{
			Enabled: false,
			Path:    "data/records",
		},
		Coda: CodaConfig{
			BaseURL: "https://coda.io/apis/v1",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier ones; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// Credentials are expected from the environment in most deployments.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("COLLIGO_ENV"); env != "" {
		config.Environment = env
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if token := os.Getenv("CODA_API_TOKEN"); token != "" {
		config.Coda.APIToken = token
	}
	if level := os.Getenv("COLLIGO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if out := os.Getenv("COLLIGO_OUTPUT_FILE"); out != "" {
		config.Crawl.OutputFile = out
	}
}

// Validate checks struct tags plus the cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Crawl.PolitenessDelay < 0 {
		return fmt.Errorf("crawl.politeness_delay must be >= 0")
	}
	if c.Crawl.RequestTimeout <= 0 {
		return fmt.Errorf("crawl.request_timeout must be > 0")
	}
	if c.LLM.Window <= 0 {
		return fmt.Errorf("llm.window must be > 0")
	}
	return nil
}

// RequireCleanerCredential fails fast when the selected provider has no API key.
// Called before any network activity so a missing credential never surfaces
// mid-crawl.
func (c *Config) RequireCleanerCredential() error {
	switch c.LLM.Provider {
	case "claude":
		if c.Claude.APIKey == "" {
			return fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY or claude.api_key in config)")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or gemini.api_key in config)")
		}
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}
	return nil
}
