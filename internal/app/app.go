// Package app provides application initialization and dependency
// wiring. Setup builds the full component graph (tracing, database,
// Genkit, knowledge store, agent engine) and App.Close releases it in
// reverse order.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calmcare/calm-agent/internal/agent"
	"github.com/calmcare/calm-agent/internal/config"
	"github.com/calmcare/calm-agent/internal/knowledge"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	// Core services
	Genkit    *genkit.Genkit
	Embedder  ai.Embedder
	Pool      *pgxpool.Pool
	Knowledge *knowledge.Store
	Engine    *agent.Engine

	otelShutdown func(context.Context) error
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.otelShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(shutdownCtx); err != nil && a.Logger != nil {
			a.Logger.Warn("shutting down tracer provider", "error", err)
		}
		cancel()
		a.otelShutdown = nil
	}

	if a.Pool != nil {
		a.Pool.Close()
		a.Pool = nil
		if a.Logger != nil {
			a.Logger.Info("database pool closed")
		}
	}

	return nil
}
