package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m2tx/benchagent/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Provider:           config.ProviderOpenAI,
		Model:              "test-model",
		OpenAIAPIKey:       "test",
		OpenAIBaseURL:      "http://127.0.0.1:1/",
		TranscriptDir:      filepath.Join(t.TempDir(), "transcripts"),
		ScoringAPIURL:      "http://127.0.0.1:1",
		MaxSteps:           5,
		ToolChoice:         "auto",
		ModelTimeout:       time.Second,
		ToolTimeout:        time.Second,
		Concurrency:        1,
		CodeSandbox:        config.SandboxLocal,
		PythonPath:         "python3",
		KnowledgeThreshold: 0.5,
		LogLevel:           "error",
	}
}

func TestNewWithoutGemini(t *testing.T) {
	cfg := testConfig(t)
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "notes.md"), []byte("# Notes\n\nThe answer is blue."), 0o644))
	cfg.DocsDir = docs

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	names := a.Agent.Tools()
	assert.Contains(t, names, "retrieve_knowledge")
	assert.Contains(t, names, "execute_code")
	assert.Contains(t, names, "analyze_chess")
	assert.NotContains(t, names, "transcribe_audio")

	matches, err := a.Knowledge.Search(context.Background(), "answer blue", 1, 0.1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Contains(t, matches[0].Text, "blue")

	assert.NotNil(t, a.Runner("ada", "code", true))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxSteps = 0
	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "MAX_STEPS")
}

func TestEmbeddingModelNeedsGemini(t *testing.T) {
	cfg := testConfig(t)
	cfg.EmbeddingModel = "gemini-embedding-001"
	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "needs a Gemini API key")
}
