// Package app wires configuration into a ready agent, its stores and the
// scoring client. Both binaries start from here.
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/genai"

	"github.com/m2tx/benchagent/assets"
	"github.com/m2tx/benchagent/internal/agent"
	"github.com/m2tx/benchagent/internal/config"
	"github.com/m2tx/benchagent/internal/functions"
	"github.com/m2tx/benchagent/internal/knowledge"
	"github.com/m2tx/benchagent/internal/llm"
	"github.com/m2tx/benchagent/internal/llm/gemini"
	"github.com/m2tx/benchagent/internal/llm/openaicompat"
	"github.com/m2tx/benchagent/internal/log"
	"github.com/m2tx/benchagent/internal/repository"
	"github.com/m2tx/benchagent/internal/runner"
	"github.com/m2tx/benchagent/internal/scoring"
	"github.com/m2tx/benchagent/internal/tools"
)

type App struct {
	Config      *config.Config
	Agent       *agent.Agent
	Transcripts repository.TranscriptRepository
	Knowledge   *knowledge.Base
	Scoring     *scoring.Client

	closers []func(context.Context) error
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.SetLevel(cfg.LogLevel)

	a := &App{
		Config:  cfg,
		Scoring: scoring.NewClient(cfg.ScoringAPIURL, nil),
	}
	if err := a.build(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	genaiClient, err := a.genaiClient(ctx)
	if err != nil {
		return err
	}

	var (
		store knowledge.Store
		db    *mongo.Database
	)
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fmt.Errorf("app: mongodb connect: %w", err)
		}
		a.closers = append(a.closers, mongoClient.Disconnect)
		db = mongoClient.Database(cfg.MongoDB)

		a.Transcripts = repository.NewMongoTranscriptRepository(db, "transcripts")
		store = knowledge.NewMongoStore(db, "knowledge")
	} else {
		repo, err := repository.NewFileTranscriptRepository(cfg.TranscriptDir)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		a.Transcripts = repo
		store = knowledge.NewMemoryStore()
	}

	var embedder knowledge.Embedder = knowledge.HashEmbedder{}
	if cfg.EmbeddingModel != "" {
		if genaiClient == nil {
			return fmt.Errorf("app: EMBEDDING_MODEL %q needs a Gemini API key", cfg.EmbeddingModel)
		}
		embedder = gemini.NewEmbedder(genaiClient, cfg.EmbeddingModel)
	}
	a.Knowledge = knowledge.New(store, embedder)

	if cfg.DocsDir != "" {
		n, err := a.Knowledge.IndexDir(ctx, cfg.DocsDir)
		if err != nil {
			return fmt.Errorf("app: index %s: %w", cfg.DocsDir, err)
		}
		log.Infof("app: indexed %d chunks from %s", n, cfg.DocsDir)
	}

	deps := functions.Deps{
		HTTPClient:         &http.Client{Timeout: cfg.ToolTimeout},
		Knowledge:          a.Knowledge,
		KnowledgeThreshold: cfg.KnowledgeThreshold,
		ChessEngine:        functions.NewChessEngine(cfg.StockfishPath),
	}
	if genaiClient != nil {
		deps.Transcriber = gemini.NewTranscriber(genaiClient, multimodalModel(cfg))
		deps.VideoAnalyzer = gemini.NewVideoAnalyzer(genaiClient, multimodalModel(cfg))
	}
	if cfg.YouTubeAPIKey != "" {
		deps.YouTube = functions.NewYouTube(deps.HTTPClient, cfg.YouTubeAPIKey)
	}
	switch cfg.CodeSandbox {
	case config.SandboxDocker:
		sandbox, err := functions.NewDockerPython(cfg.DockerImage)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return sandbox.Close() })
		deps.CodeRunner = sandbox
	default:
		deps.CodeRunner = functions.LocalPython{Interpreter: cfg.PythonPath}
	}

	registry, err := tools.New(functions.Default(deps), tools.WithTimeout(cfg.ToolTimeout))
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}

	var m llm.Model
	switch cfg.Provider {
	case config.ProviderOpenAI:
		m = openaicompat.New(openaicompat.Options{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.Model,
			Timeout: cfg.ModelTimeout,
		})
	default:
		m = gemini.New(genaiClient, cfg.Model)
	}
	m = llm.WithRetry(m, llm.RetryPolicy{MaxRetries: cfg.RetryMax, Backoff: cfg.RetryBackoff})

	a.Agent = agent.New(m, registry, assets.SystemInstruction,
		agent.WithMaxSteps(cfg.MaxSteps),
		agent.WithToolChoice(llm.ToolChoice(cfg.ToolChoice)),
		agent.WithModelTimeout(cfg.ModelTimeout),
		agent.WithRepository(a.Transcripts),
	)
	log.Infof("app: %s model %s with tools %v", cfg.Provider, cfg.Model, a.Agent.Tools())
	return nil
}

// genaiClient is required for the gemini provider and optional otherwise,
// where it only backs audio, video and embeddings.
func (a *App) genaiClient(ctx context.Context) (*genai.Client, error) {
	cfg := a.Config
	if cfg.Provider != config.ProviderGemini && cfg.GeminiAPIKey == "" {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("app: gemini client: %w", err)
	}
	return client, nil
}

func multimodalModel(cfg *config.Config) string {
	if cfg.Provider == config.ProviderGemini {
		return cfg.Model
	}
	return "gemini-2.5-flash"
}

// Runner returns a batch runner over the app's agent.
func (a *App) Runner(username, agentCode string, dryRun bool) *runner.Runner {
	return runner.New(a.Agent, a.Scoring, runner.Options{
		Username:       username,
		AgentCode:      agentCode,
		AttachmentsDir: a.Config.AttachmentsDir,
		MetadataPath:   a.Config.MetadataPath,
		Delay:          a.Config.QuestionDelay,
		Concurrency:    a.Config.Concurrency,
		DryRun:         dryRun,
	})
}

func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Warnf("app: close: %v", err)
		}
	}
	a.closers = nil
}
