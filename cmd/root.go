package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/resume-analyzer/internal/analyzer"
	"github.com/spigell/resume-analyzer/internal/document"
	"github.com/spigell/resume-analyzer/internal/server"
)

const (
	app       = "resume-analyzer"
	envPrefix = "RESUME_ANALYZER"
)

type Config struct {
	Profile  string                    `mapstructure:"profile" json:"profile"`
	Profiles map[string]map[string]any `mapstructure:"profiles" json:"-"`
	AI       *AIConfig                 `mapstructure:"ai" json:"ai"`
	Pipeline *analyzer.Config          `mapstructure:"pipeline" json:"pipeline"`
	Server   *server.Config            `mapstructure:"server" json:"server"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider" json:"provider" validate:"omitempty,oneof=gemini"`
	Gemini   *GeminiConfig `mapstructure:"gemini" json:"gemini"`
}

type GeminiConfig struct {
	APIKey        string `mapstructure:"api-key" json:"-"`
	APIKeyFile    string `mapstructure:"api-key-file" json:"api-key-file"`
	Backend       string `mapstructure:"backend" json:"backend" validate:"omitempty,oneof=gemini-api vertex-ai"`
	Project       string `mapstructure:"project" json:"project"`
	Location      string `mapstructure:"location" json:"location"`
	PrimaryModel  string `mapstructure:"primary-model" json:"primary-model" validate:"required"`
	FallbackModel string `mapstructure:"fallback-model" json:"fallback-model"`
	MaxLogLength  int    `mapstructure:"max-log-length" json:"max-log-length" validate:"gte=0"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-analyzer compares a resume with a job description using Gemini",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-analyzer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("profile", "", "deployment profile from the profiles section")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	p := analyzer.DefaultConfig()

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.backend", "gemini-api")
	v.SetDefault("ai.gemini.project", "")
	v.SetDefault("ai.gemini.location", "")
	v.SetDefault("ai.gemini.primary-model", p.PrimaryModel)
	v.SetDefault("ai.gemini.fallback-model", p.FallbackModel)
	v.SetDefault("ai.gemini.max-log-length", 200)

	v.SetDefault("pipeline.input-mode", string(p.InputMode))
	v.SetDefault("pipeline.page-cap", p.PageCap)
	v.SetDefault("pipeline.dpi", p.DPI)
	v.SetDefault("pipeline.jpeg-quality", p.JPEGQuality)
	v.SetDefault("pipeline.max-upload-bytes", p.MaxUploadBytes)
	v.SetDefault("pipeline.min-interval", p.MinInterval)
	v.SetDefault("pipeline.max-analyses", p.MaxAnalyses)
	v.SetDefault("pipeline.request-timeout", p.RequestTimeout)

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.allowed-origins", []string{"*"})
	v.SetDefault("server.max-sessions", 1000)

	v.SetDefault("profile", "")
}

func initConfig() {
	// A missing .env is fine; a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if err := readConfig(viper.GetViper(), cfgFile); err != nil {
		log.Fatal(err)
	}
}

func readConfig(v *viper.Viper, file string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %q: %w", file, err)
		}
		return nil
	}

	v.AddConfigPath(".")
	v.SetConfigName(app)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}

	return nil
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

// decodeConfig unmarshals v, overlays the selected profile and validates the
// result.
func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if config == nil {
		config = &Config{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Pipeline == nil {
		p := analyzer.DefaultConfig()
		config.Pipeline = &p
	}
	if config.Server == nil {
		config.Server = &server.Config{}
	}

	if err := applyProfile(config); err != nil {
		return nil, err
	}

	config.Pipeline.PrimaryModel = config.AI.Gemini.PrimaryModel
	config.Pipeline.FallbackModel = config.AI.Gemini.FallbackModel
	config.Pipeline.MaxLogLength = config.AI.Gemini.MaxLogLength
	config.Server.MaxUploadBytes = config.Pipeline.MaxUploadBytes
	if config.Pipeline.InputMode == "" {
		config.Pipeline.InputMode = document.ModeText
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}
