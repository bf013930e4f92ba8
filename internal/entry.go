// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/agent"
	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/knowledge"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/metrics"
	"github.com/starford/ansuz/internal/scraper"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/watch"
)

func newLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// buildKnowledge creates the knowledge store and gated service over the
// configured root, creating the root directory if needed.
func buildKnowledge(cfg *Config, logger *slog.Logger) (*knowledge.Store, *knowledge.Service, error) {
	if err := os.MkdirAll(cfg.Knowledge.Root, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create knowledge root: %w", err)
	}
	fs, err := storage.NewFS(cfg.Knowledge.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	store := knowledge.NewStore(fs, knowledge.Layout{
		InstructionsFile: cfg.Knowledge.InstructionsFile,
		URLIndexFile:     cfg.Knowledge.URLIndexFile,
		Topics:           cfg.Knowledge.TopicSet(),
	})
	svc := knowledge.NewService(store, cfg.Knowledge.Thresholds(), logger)
	return store, svc, nil
}

func newScraper(cfg *Config) *scraper.Scraper {
	return scraper.New(
		time.Duration(cfg.Scraper.TimeoutSeconds)*time.Second,
		cfg.Scraper.UserAgent,
		cfg.Scraper.MaxContentLength,
	)
}

// Run starts the HTTP dashboard server, the filesystem watcher, and the SSE
// broker, and blocks until the context is cancelled or a signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	logger := newLogger(cfg)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("knowledge_root", cfg.Knowledge.Root),
		slog.String("metrics_path", cfg.Metrics.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, svc, err := buildKnowledge(cfg, logger)
	if err != nil {
		return err
	}

	db, err := metrics.Open(cfg.Metrics.Path)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build API service and router.
	apiSvc := api.NewService(store, svc, db)
	apiRouter := api.NewRouter(apiSvc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start knowledge root watcher feeding the SSE broker.
	watcher := watch.New(cfg.Knowledge.Root, store.Layout(), broker, logger)
	g.Go(func() error {
		if err := watcher.Run(gCtx); err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the knowledge tools over MCP stdio. Logs go to stderr so
// stdout stays clean for the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	_, svc, err := buildKnowledge(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("Starting MCP stdio server", slog.String("knowledge_root", cfg.Knowledge.Root))
	srv := mcpserver.New(svc, newScraper(cfg))
	return srv.ServeStdio()
}

// RunChat runs an interactive terminal chat session against the configured
// Ollama endpoint, with the knowledge tools wired in. Tool invocations are
// recorded in the metrics database under a fresh session ID.
func RunChat(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	logger := newLogger(cfg)

	_, svc, err := buildKnowledge(cfg, logger)
	if err != nil {
		return err
	}

	db, err := metrics.Open(cfg.Metrics.Path)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer db.Close()

	registry := agent.NewRegistry(logger)
	agent.RegisterKnowledgeTools(registry, svc)
	agent.RegisterScraperTool(registry, newScraper(cfg))

	sessionID := metrics.NewSessionID()
	registry.SetRecorder(db, sessionID)

	a := agent.New(cfg.Models.Ollama.Host, cfg.Models.Ollama.Model, registry, logger)

	fmt.Printf("Chatting with %s (session %s). Type 'exit' to quit.\n",
		cfg.Models.Ollama.Model, sessionID)

	var history []openai.ChatCompletionMessage
	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		reply, updated, err := a.Send(ctx, history, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			fmt.Printf("error: %v\n", err)
			continue
		}
		history = updated
		fmt.Println(reply)
	}

	if summary, err := db.SessionSummary(sessionID); err == nil && summary.Total > 0 {
		fmt.Printf("Session %s: %d tool calls.\n", sessionID, summary.Total)
	}
	return sc.Err()
}
