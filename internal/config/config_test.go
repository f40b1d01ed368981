package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PROVIDER", "MODEL", "MAX_STEPS", "QUESTION_DELAY", "SCORING_API_URL", "CODE_SANDBOX", "MONGODB_URI"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.Model)
	assert.Equal(t, 10, cfg.MaxSteps)
	assert.Equal(t, time.Second, cfg.QuestionDelay)
	assert.Equal(t, 120*time.Second, cfg.ModelTimeout)
	assert.Equal(t, "https://agents-course-unit4-scoring.hf.space", cfg.ScoringAPIURL)
	assert.Equal(t, SandboxLocal, cfg.CodeSandbox)
	assert.Equal(t, 0.5, cfg.KnowledgeThreshold)
	assert.Empty(t, cfg.MongoURI)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PROVIDER", "OpenAI")
	t.Setenv("MAX_STEPS", "4")
	t.Setenv("QUESTION_DELAY", "2.5")
	t.Setenv("MODEL_TIMEOUT", "90s")
	t.Setenv("SCORING_API_URL", "http://localhost:9000/")
	t.Setenv("KNOWLEDGE_THRESHOLD", "0.3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, 4, cfg.MaxSteps)
	assert.Equal(t, 2500*time.Millisecond, cfg.QuestionDelay)
	assert.Equal(t, 90*time.Second, cfg.ModelTimeout)
	assert.Equal(t, "http://localhost:9000", cfg.ScoringAPIURL)
	assert.Equal(t, 0.3, cfg.KnowledgeThreshold)
}

func TestLoadReportsAllMalformedValues(t *testing.T) {
	t.Setenv("MAX_STEPS", "ten")
	t.Setenv("RETRY_BACKOFF", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_STEPS")
	assert.Contains(t, err.Error(), "RETRY_BACKOFF")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Provider:           ProviderGemini,
			ToolChoice:         "auto",
			CodeSandbox:        SandboxDocker,
			MaxSteps:           1,
			Concurrency:        1,
			KnowledgeThreshold: 1,
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"provider", func(c *Config) { c.Provider = "anthropic" }, `unknown PROVIDER "anthropic"`},
		{"tool choice", func(c *Config) { c.ToolChoice = "any" }, `unknown TOOL_CHOICE "any"`},
		{"sandbox", func(c *Config) { c.CodeSandbox = "vm" }, `unknown CODE_SANDBOX "vm"`},
		{"max steps", func(c *Config) { c.MaxSteps = 0 }, "MAX_STEPS must be positive"},
		{"concurrency", func(c *Config) { c.Concurrency = -1 }, "CONCURRENCY must be positive"},
		{"retry", func(c *Config) { c.RetryMax = -1 }, "RETRY_MAX must not be negative"},
		{"threshold", func(c *Config) { c.KnowledgeThreshold = 0 }, "KNOWLEDGE_THRESHOLD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.ErrorContains(t, c.Validate(), tt.want)
		})
	}
}
