// Package config reads the process configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	SandboxLocal  = "local"
	SandboxDocker = "docker"
)

// Config holds every setting of the server and the batch runner.
type Config struct {
	Provider      string
	Model         string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
	YouTubeAPIKey string

	HTTPPort      string
	MongoURI      string
	MongoDB       string
	TranscriptDir string

	ScoringAPIURL  string
	AttachmentsDir string
	MetadataPath   string
	QuestionDelay  time.Duration
	Concurrency    int

	MaxSteps     int
	ToolChoice   string
	ModelTimeout time.Duration
	ToolTimeout  time.Duration
	RetryMax     int
	RetryBackoff time.Duration

	StockfishPath string
	PythonPath    string
	CodeSandbox   string
	DockerImage   string

	EmbeddingModel     string
	KnowledgeThreshold float64
	DocsDir            string

	LogLevel string
}

// Load reads the environment. Malformed numbers and durations are reported
// together.
func Load() (*Config, error) {
	var errs []error
	p := parser{errs: &errs}

	cfg := &Config{
		Provider:      strings.ToLower(getEnv("PROVIDER", ProviderGemini)),
		Model:         getEnv("MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		YouTubeAPIKey: os.Getenv("YOUTUBE_API_KEY"),

		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDB:       getEnv("MONGODB_DB", "benchagent"),
		TranscriptDir: getEnv("TRANSCRIPT_DIR", "./transcripts"),

		ScoringAPIURL:  strings.TrimRight(getEnv("SCORING_API_URL", "https://agents-course-unit4-scoring.hf.space"), "/"),
		AttachmentsDir: getEnv("ATTACHMENTS_DIR", "./attachments"),
		MetadataPath:   getEnv("METADATA_PATH", "./metadata.jsonl"),
		QuestionDelay:  p.duration("QUESTION_DELAY", time.Second),
		Concurrency:    p.int("CONCURRENCY", 1),

		MaxSteps:     p.int("MAX_STEPS", 10),
		ToolChoice:   strings.ToLower(getEnv("TOOL_CHOICE", "auto")),
		ModelTimeout: p.duration("MODEL_TIMEOUT", 120*time.Second),
		ToolTimeout:  p.duration("TOOL_TIMEOUT", 60*time.Second),
		RetryMax:     p.int("RETRY_MAX", 0),
		RetryBackoff: p.duration("RETRY_BACKOFF", time.Second),

		StockfishPath: getEnv("STOCKFISH_PATH", "stockfish"),
		PythonPath:    getEnv("PYTHON_PATH", "python3"),
		CodeSandbox:   strings.ToLower(getEnv("CODE_SANDBOX", SandboxLocal)),
		DockerImage:   getEnv("DOCKER_IMAGE", "python:3.12-slim"),

		EmbeddingModel:     os.Getenv("EMBEDDING_MODEL"),
		KnowledgeThreshold: p.float("KNOWLEDGE_THRESHOLD", 0.5),
		DocsDir:            os.Getenv("DOCS_DIR"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown PROVIDER %q", c.Provider))
	}
	switch c.ToolChoice {
	case "auto", "required", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown TOOL_CHOICE %q", c.ToolChoice))
	}
	switch c.CodeSandbox {
	case SandboxLocal, SandboxDocker:
	default:
		errs = append(errs, fmt.Errorf("unknown CODE_SANDBOX %q", c.CodeSandbox))
	}
	if c.MaxSteps <= 0 {
		errs = append(errs, fmt.Errorf("MAX_STEPS must be positive, got %d", c.MaxSteps))
	}
	if c.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("CONCURRENCY must be positive, got %d", c.Concurrency))
	}
	if c.RetryMax < 0 {
		errs = append(errs, fmt.Errorf("RETRY_MAX must not be negative, got %d", c.RetryMax))
	}
	if c.KnowledgeThreshold <= 0 || c.KnowledgeThreshold > 1 {
		errs = append(errs, fmt.Errorf("KNOWLEDGE_THRESHOLD must be in (0, 1], got %v", c.KnowledgeThreshold))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

type parser struct {
	errs *[]error
}

func (p parser) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p parser) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

// duration accepts Go durations ("1500ms") and plain seconds ("2", "0.5").
func (p parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return time.Duration(secs * float64(time.Second))
}
