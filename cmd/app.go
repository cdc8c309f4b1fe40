package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-analyzer/internal/ai"
	"github.com/spigell/resume-analyzer/internal/ai/gemini"
	"github.com/spigell/resume-analyzer/internal/apperr"
	"github.com/spigell/resume-analyzer/internal/logger"
	"github.com/spigell/resume-analyzer/internal/secrets"
)

var apiKeyEnv = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

// bootstrap builds the logger and the config shared by all commands that
// talk to the model. Any failure here is fatal.
func bootstrap() (*zap.Logger, *Config) {
	l, err := logger.New(logger.Options{JSON: viper.GetBool("json"), Debug: viper.GetBool("debug")})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}

	l.Info("starting the resume-analyzer", zap.String("version", version), zap.String("profile", config.Profile))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	l.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return l, config
}

func newGenerator(ctx context.Context, cfg *AIConfig, l *zap.Logger) (ai.Generator, error) {
	if cfg.Provider != "" && cfg.Provider != gemini.ProviderName {
		return nil, apperr.NewConfiguration(fmt.Sprintf("unsupported ai provider: %s", cfg.Provider), nil)
	}

	opts := gemini.Options{
		Backend:  cfg.Gemini.Backend,
		Project:  cfg.Gemini.Project,
		Location: cfg.Gemini.Location,
	}

	if opts.Backend != gemini.BackendVertexAI {
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			File:  cfg.Gemini.APIKeyFile,
			Value: cfg.Gemini.APIKey,
			Env:   apiKeyEnv,
		})
		if err != nil {
			return nil, apperr.NewConfiguration("set ai.gemini.api-key, ai.gemini.api-key-file or GEMINI_API_KEY", err)
		}
		opts.APIKey = apiKey
	}

	return gemini.NewGenerator(ctx, opts, l)
}
