package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/genai"

	"github.com/calmcare/calm-agent/db"
	"github.com/calmcare/calm-agent/internal/agent"
	"github.com/calmcare/calm-agent/internal/config"
	"github.com/calmcare/calm-agent/internal/knowledge"
	"github.com/calmcare/calm-agent/internal/observability"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing is set up before Genkit initialization so the span
	// processor is registered by the time the first flow runs.
	if cfg.Tracing.Enabled {
		shutdown, err := observability.Setup(ctx, observability.Config{
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.Tracing.ServiceName,
			Environment: cfg.Tracing.Environment,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
		a.otelShutdown = shutdown
	}

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	a.Knowledge = provideKnowledgeStore(pool, embedder, cfg, logger)
	a.Engine = provideEngine(g, a.Knowledge, cfg, logger)

	return a, nil
}

// provideDBPool runs migrations and creates a PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
// Supports gemini (default), ollama, and openai providers.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		for _, name := range modelNames(cfg) {
			ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
				Name: name,
				Type: "chat",
			}, nil)
		}
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // "gemini"
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// modelNames returns the distinct chat models the agent uses.
func modelNames(cfg *config.Config) []string {
	if cfg.IntermediateModel == "" || cfg.IntermediateModel == cfg.ModelName {
		return []string{cfg.ModelName}
	}
	return []string{cfg.ModelName, cfg.IntermediateModel}
}

// provideEmbedder looks up the embedder registered by the AI provider plugin.
// Each provider registers embedders differently:
//   - gemini: GoogleAIEmbedder(g, modelName)
//   - ollama: registered in provideGenkit, keyed by server address
//   - openai: auto-registered in Init(), looked up by model name
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default: // "gemini"
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// provideKnowledgeStore wraps the connection pool and embedder in a
// pgvector-backed document store.
func provideKnowledgeStore(pool *pgxpool.Pool, embedder ai.Embedder, cfg *config.Config, logger *slog.Logger) *knowledge.Store {
	var opts []knowledge.StoreOption
	if cfg.Provider == config.ProviderGemini || cfg.Provider == "" {
		// gemini-embedding-001 defaults to 3072 dimensions; truncate
		// to match the vector(768) column.
		dim := knowledge.VectorDimension
		opts = append(opts, knowledge.WithEmbedConfig(&genai.EmbedContentConfig{
			OutputDimensionality: &dim,
		}))
	}
	return knowledge.New(knowledge.NewQueries(pool), embedder, logger, opts...)
}

// provideEngine assembles the agent engine from its model-backed
// capabilities. Routing, grading, and expansion run on the cheaper
// intermediate model; synthesis runs on the main model.
func provideEngine(g *genkit.Genkit, store *knowledge.Store, cfg *config.Config, logger *slog.Logger) *agent.Engine {
	intermediate := cfg.IntermediateModel
	if intermediate == "" {
		intermediate = cfg.ModelName
	}

	opts := []agent.Option{agent.WithLogger(logger)}
	if cfg.Provider == config.ProviderGemini || cfg.Provider == "" {
		opts = append(opts, agent.WithModelConfig(&genai.GenerateContentConfig{
			Temperature: genai.Ptr(float32(cfg.Temperature)),
		}))
	}

	router := agent.NewIntentRouter(g, qualifiedModel(cfg.Provider, intermediate), opts...)
	judge := agent.NewRelevanceJudge(g, qualifiedModel(cfg.Provider, intermediate), opts...)
	expander := agent.NewQueryExpander(g, qualifiedModel(cfg.Provider, intermediate), opts...)
	synthesizer := agent.NewAnswerSynthesizer(g, qualifiedModel(cfg.Provider, cfg.ModelName), opts...)

	return agent.NewEngine(router, store, judge, expander, synthesizer, logger)
}

// qualifiedModel prepends the provider prefix Genkit expects, e.g.
// "gemini-2.5-flash" becomes "googleai/gemini-2.5-flash". Names that
// already carry a prefix pass through unchanged.
func qualifiedModel(provider, name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	switch provider {
	case config.ProviderOllama:
		return "ollama/" + name
	case config.ProviderOpenAI:
		return "openai/" + name
	default: // "gemini"
		return "googleai/" + name
	}
}
