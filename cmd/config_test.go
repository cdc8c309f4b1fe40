package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-analyzer/internal/analyzer"
	"github.com/spigell/resume-analyzer/internal/apperr"
	"github.com/spigell/resume-analyzer/internal/document"
)

func newTestViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	return v
}

func TestDecodeConfigDefaults(t *testing.T) {
	config, err := decodeConfig(newTestViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, document.ModeText, config.Pipeline.InputMode)
	assert.Equal(t, analyzer.DefaultMaxAnalyses, config.Pipeline.MaxAnalyses)
	assert.Equal(t, analyzer.DefaultMinInterval, config.Pipeline.MinInterval)
	assert.Equal(t, analyzer.DefaultPrimaryModel, config.Pipeline.PrimaryModel)
	assert.Equal(t, analyzer.DefaultFallbackModel, config.Pipeline.FallbackModel)
	assert.Equal(t, ":8080", config.Server.Address)
	assert.Equal(t, config.Pipeline.MaxUploadBytes, config.Server.MaxUploadBytes)
}

func TestDecodeConfigFromYAML(t *testing.T) {
	config, err := decodeConfig(newTestViper(t, `
ai:
  gemini:
    primary-model: gemini-2.5-pro
    fallback-model: gemini-2.5-flash
pipeline:
  input-mode: image
  page-cap: 1
  min-interval: 5s
  max-analyses: 20
`))
	require.NoError(t, err)

	assert.Equal(t, document.ModeImage, config.Pipeline.InputMode)
	assert.Equal(t, 1, config.Pipeline.PageCap)
	assert.Equal(t, 5*time.Second, config.Pipeline.MinInterval)
	assert.Equal(t, 20, config.Pipeline.MaxAnalyses)
	assert.Equal(t, "gemini-2.5-pro", config.Pipeline.PrimaryModel)
}

func TestDecodeConfigProfile(t *testing.T) {
	v := newTestViper(t, `
profile: demo
pipeline:
  max-analyses: 10
profiles:
  demo:
    pipeline:
      max-analyses: 20
      min-interval: 1s
    server:
      allowed-origins: https://a.example,https://b.example
`)

	config, err := decodeConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 20, config.Pipeline.MaxAnalyses)
	assert.Equal(t, time.Second, config.Pipeline.MinInterval)
	assert.Equal(t, analyzer.DefaultConfig().PageCap, config.Pipeline.PageCap)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, config.Server.AllowedOrigins)
}

func TestDecodeConfigUnknownProfile(t *testing.T) {
	v := newTestViper(t, `
profile: missing
profiles:
  demo:
    pipeline:
      max-analyses: 20
`)

	_, err := decodeConfig(v)
	var cfgErr *apperr.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "demo")
}

func TestDecodeConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "input mode", yaml: "pipeline:\n  input-mode: audio\n"},
		{name: "jpeg quality", yaml: "pipeline:\n  jpeg-quality: 150\n"},
		{name: "negative quota", yaml: "pipeline:\n  max-analyses: -1\n"},
		{name: "empty model", yaml: "ai:\n  gemini:\n    primary-model: \"\"\n"},
		{name: "backend", yaml: "ai:\n  gemini:\n    backend: openai\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeConfig(newTestViper(t, tt.yaml))
			var cfgErr *apperr.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("RESUME_ANALYZER_PIPELINE_MAX_ANALYSES", "15")

	v := viper.New()
	setDefaults(v)
	require.NoError(t, readConfig(v, ""))

	config, err := decodeConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 15, config.Pipeline.MaxAnalyses)
}

func TestReadConfigMissingExplicitFile(t *testing.T) {
	err := readConfig(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestSaveResult(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	path, err := saveResult(dir, "summary_20260301-091500.txt", "Resume Summary\n\nok\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "summary_20260301-091500.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Resume Summary\n\nok\n", string(data))
}
