package app

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds runtime configuration for the service.
type Config struct {
	// Server
	Addr string

	// Search
	SearchProvider string // "duckduckgo" or "searxng"
	SearxURL       string
	SearxKey       string
	UserAgent      string

	// LLM
	LLMProvider string // "gemini" or "openai"
	LLMBaseURL  string
	LLMModel    string
	LLMAPIKey   string
	Temperature float64

	// Aggregation limits
	PerSourceChars int
	TotalCapChars  int
	Workers        int
	Throttle       time.Duration

	// Report store
	StoreCapacity int

	Verbose bool
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		SearchProvider: "duckduckgo",
		LLMProvider:    "gemini",
		LLMModel:       "gemini-1.5-flash",
		Temperature:    0.6,
	}
}

// Validate reports configuration errors that would only surface later as
// confusing runtime failures.
func (c Config) Validate() error {
	switch c.SearchProvider {
	case "duckduckgo":
	case "searxng":
		if strings.TrimSpace(c.SearxURL) == "" {
			return errors.New("searxng provider selected but no searx url configured")
		}
	default:
		return fmt.Errorf("unknown search provider %q", c.SearchProvider)
	}
	switch c.LLMProvider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}
	if strings.TrimSpace(c.LLMAPIKey) == "" {
		return errors.New("llm api key not configured")
	}
	return nil
}

// ApplyEnv overlays environment variables onto the configuration. Flags and
// file values lose to the environment, matching the deployment convention of
// secret injection via env.
func (c *Config) ApplyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.Addr, "SAGEVIEW_ADDR")
	setString(&c.SearchProvider, "SAGEVIEW_SEARCH_PROVIDER")
	setString(&c.SearxURL, "SAGEVIEW_SEARX_URL")
	setString(&c.SearxKey, "SAGEVIEW_SEARX_KEY")
	setString(&c.UserAgent, "SAGEVIEW_USER_AGENT")
	setString(&c.LLMProvider, "SAGEVIEW_LLM_PROVIDER")
	setString(&c.LLMBaseURL, "SAGEVIEW_LLM_BASE_URL")
	setString(&c.LLMModel, "SAGEVIEW_LLM_MODEL")
	setString(&c.LLMAPIKey, "GEMINI_API_KEY")
	setString(&c.LLMAPIKey, "SAGEVIEW_LLM_API_KEY")
}

// LoadEnvFiles loads dotenv files of KEY=VALUE pairs into the process
// environment before ApplyEnv runs. Missing files are skipped; existing
// environment variables win over file values.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if err := loadEnvFile(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

func loadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.Trim(strings.TrimSpace(line[eq+1:]), `"'`)
		if _, present := os.LookupEnv(key); present {
			continue
		}
		if err := os.Setenv(key, val); err != nil {
			return err
		}
	}
	return scanner.Err()
}
