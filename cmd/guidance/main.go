package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/storm-guidance-service/internal/adapter/gemini"
	httpadapter "github.com/couchcryptid/storm-guidance-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-guidance-service/internal/adapter/kafka"
	"github.com/couchcryptid/storm-guidance-service/internal/adapter/mapbox"
	"github.com/couchcryptid/storm-guidance-service/internal/answer"
	"github.com/couchcryptid/storm-guidance-service/internal/catalog"
	"github.com/couchcryptid/storm-guidance-service/internal/config"
	"github.com/couchcryptid/storm-guidance-service/internal/domain"
	"github.com/couchcryptid/storm-guidance-service/internal/journal"
	"github.com/couchcryptid/storm-guidance-service/internal/observability"
)

// readyFunc adapts a function to the readiness checker interface.
type readyFunc func(ctx context.Context) error

func (f readyFunc) CheckReadiness(ctx context.Context) error { return f(ctx) }

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	cat, err := loadCatalog(cfg)
	if err != nil {
		logger.Error("failed to load catalog", "error", err, "dir", cfg.CatalogDir)
		os.Exit(1)
	}
	for _, f := range cat.Lint() {
		logger.Warn("catalog lint", "kind", f.Kind, "subject", f.Subject, "message", f.Message)
	}

	tips := domain.NewTipsService(domain.NewRuleEngine(cat.Rules()), cat)
	fallback := answer.NewRuleBasedProvider(cat, tips)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Preferred provider (feature-flagged via GEMINI_ENABLED / GEMINI_API_KEY).
	var preferred answer.Provider
	if cfg.GeminiEnabled {
		p, err := gemini.New(ctx, gemini.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.GeminiTimeout,
		}, answer.NewPromptBuilder(tips), logger)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
			os.Exit(1)
		}
		preferred = p
		logger.Info("gemini provider enabled", "model", cfg.GeminiModel, "timeout", cfg.GeminiTimeout)
	} else {
		logger.Info("gemini provider disabled, answering from reference data")
	}

	orchestrator := answer.NewOrchestrator(preferred, fallback, logger, metrics)
	assistant := answer.NewStreamOrchestrator(orchestrator, answer.WithWordDelay(cfg.StreamWordDelay))

	// Region locator (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var locator domain.RegionLocator
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		locator = mapbox.NewCachedLocator(client, cfg.MapboxCacheSize, metrics)
		logger.Info("mapbox region lookup enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox region lookup disabled")
	}

	deps := httpadapter.Deps{
		Regions:   cat,
		Tips:      tips,
		Assistant: assistant,
		Locator:   locator,
		Metrics:   metrics,
		Ready:     readyFunc(func(context.Context) error { return nil }),
	}

	// Conversation journal (enabled when KAFKA_BROKERS is set).
	var (
		writer *kafkaadapter.Writer
		jrnl   *journal.Journal
	)
	if cfg.JournalEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		jrnl = journal.New(writer, logger, metrics, cfg.BatchSize, cfg.BatchFlushInterval)
		deps.Journal = jrnl
		deps.Ready = jrnl
		logger.Info("conversation journal enabled", "topic", cfg.KafkaAnswerTopic, "brokers", cfg.KafkaBrokers)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, deps, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start journal loop. It outlives the signal so exchanges still in
	// flight during server shutdown are recorded.
	journalCtx, stopJournal := context.WithCancel(context.Background())
	defer stopJournal()
	journalDone := make(chan struct{})
	go func() {
		defer close(journalDone)
		if jrnl == nil {
			return
		}
		if err := jrnl.Run(journalCtx); err != nil {
			logger.Error("journal error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	shutdown(shutdownCtx, srv, assistant, stopJournal, journalDone, logger)
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

type conversationEnder interface {
	EndConversation()
}

// shutdown stops the HTTP server, ends the conversation, and only then stops
// the journal and waits for it to drain.
func shutdown(ctx context.Context, srv shutdowner, conv conversationEnder, stopJournal context.CancelFunc, journalDone <-chan struct{}, logger *slog.Logger) {
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	conv.EndConversation()

	stopJournal()
	select {
	case <-journalDone:
	case <-ctx.Done():
		logger.Warn("journal did not drain before shutdown timeout")
	}
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogDir == "" {
		return catalog.Embedded()
	}
	return catalog.Load(os.DirFS(cfg.CatalogDir))
}
