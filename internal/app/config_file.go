package app

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML configuration schema. Every field is
// optional; zero values leave the corresponding Config field untouched.
type FileConfig struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Search struct {
		Provider  string `yaml:"provider"`
		SearxURL  string `yaml:"searxURL"`
		SearxKey  string `yaml:"searxKey"`
		UserAgent string `yaml:"userAgent"`
	} `yaml:"search"`

	LLM struct {
		Provider    string  `yaml:"provider"`
		BaseURL     string  `yaml:"base"`
		Model       string  `yaml:"model"`
		APIKey      string  `yaml:"key"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Limits struct {
		PerSourceChars int           `yaml:"perSourceChars"`
		TotalChars     int           `yaml:"totalChars"`
		Workers        int           `yaml:"workers"`
		Throttle       time.Duration `yaml:"throttle"`
		StoreCapacity  int           `yaml:"storeCapacity"`
	} `yaml:"limits"`

	Verbose bool `yaml:"verbose"`
}

// LoadConfigFile parses a YAML configuration file.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}

// ApplyFileConfig overlays non-zero file values onto cfg.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	setString(&cfg.Addr, fc.Server.Addr)
	setString(&cfg.SearchProvider, fc.Search.Provider)
	setString(&cfg.SearxURL, fc.Search.SearxURL)
	setString(&cfg.SearxKey, fc.Search.SearxKey)
	setString(&cfg.UserAgent, fc.Search.UserAgent)
	setString(&cfg.LLMProvider, fc.LLM.Provider)
	setString(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	setString(&cfg.LLMModel, fc.LLM.Model)
	setString(&cfg.LLMAPIKey, fc.LLM.APIKey)
	if fc.LLM.Temperature != 0 {
		cfg.Temperature = fc.LLM.Temperature
	}
	setInt(&cfg.PerSourceChars, fc.Limits.PerSourceChars)
	setInt(&cfg.TotalCapChars, fc.Limits.TotalChars)
	setInt(&cfg.Workers, fc.Limits.Workers)
	if fc.Limits.Throttle != 0 {
		cfg.Throttle = fc.Limits.Throttle
	}
	setInt(&cfg.StoreCapacity, fc.Limits.StoreCapacity)
	if fc.Verbose {
		cfg.Verbose = true
	}
}
