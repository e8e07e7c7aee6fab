package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sageview/sageview/internal/app"
	"github.com/sageview/sageview/internal/server"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := app.DefaultConfig()
	var (
		configPath string
		envFile    string
	)
	flag.StringVar(&configPath, "config", "", "Path to optional YAML config file")
	flag.StringVar(&envFile, "env-file", ".env", "Path to optional dotenv file")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	flag.StringVar(&cfg.SearchProvider, "search.provider", cfg.SearchProvider, "Search provider: duckduckgo or searxng")
	flag.StringVar(&cfg.SearxURL, "searx.url", cfg.SearxURL, "SearxNG base URL (searxng provider)")
	flag.StringVar(&cfg.SearxKey, "searx.key", cfg.SearxKey, "SearxNG API key (optional)")
	flag.StringVar(&cfg.UserAgent, "ua", cfg.UserAgent, "Custom User-Agent for outbound requests")
	flag.StringVar(&cfg.LLMProvider, "llm.provider", cfg.LLMProvider, "LLM provider: gemini or openai")
	flag.StringVar(&cfg.LLMBaseURL, "llm.base", cfg.LLMBaseURL, "OpenAI-compatible base URL (openai provider)")
	flag.StringVar(&cfg.LLMModel, "llm.model", cfg.LLMModel, "Model name")
	flag.StringVar(&cfg.LLMAPIKey, "llm.key", cfg.LLMAPIKey, "LLM API key")
	flag.Float64Var(&cfg.Temperature, "llm.temperature", cfg.Temperature, "Sampling temperature")
	flag.IntVar(&cfg.PerSourceChars, "max.perSourceChars", cfg.PerSourceChars, "Maximum characters retained per source (0 = default)")
	flag.IntVar(&cfg.TotalCapChars, "max.totalChars", cfg.TotalCapChars, "Maximum characters across all sources (0 = default)")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent extraction workers (0 = sequential)")
	flag.DurationVar(&cfg.Throttle, "throttle", cfg.Throttle, "Delay between extraction attempts (0 = default, negative disables)")
	flag.IntVar(&cfg.StoreCapacity, "store.capacity", cfg.StoreCapacity, "Maximum reports held in memory (0 = default)")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	flag.Parse()

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := app.LoadEnvFiles(envFile); err != nil {
		log.Fatal().Err(err).Msg("loading env file")
	}
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("loading config file")
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	cfg.ApplyEnv()

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}

	srv := server.New(a, a.Store)
	log.Info().Str("addr", cfg.Addr).Msg("starting server")
	if err := srv.Start(cfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
