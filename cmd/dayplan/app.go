package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/api/option"

	"github.com/chris/dayplan/config"
	"github.com/chris/dayplan/internal/llm"
	"github.com/chris/dayplan/internal/metrics"
	"github.com/chris/dayplan/internal/planner"
	"github.com/chris/dayplan/internal/sources/gcal"
	"github.com/chris/dayplan/internal/sources/todoist"
	"github.com/chris/dayplan/internal/store"
)

// app holds the components shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	planner  *planner.Planner
	closers  []io.Closer
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	level, _ := config.ParseLogLevel(cfg.LogLevel) // checked by Validate
	logger := config.NewLogger(os.Stderr, level)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	sessions, err := a.openSessionStore()
	if err != nil {
		return nil, err
	}

	gen, err := llm.NewGenerator(llm.ProviderConfig{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.LLMAPIKey(),
		Model:    cfg.LLMModel,
		BaseURL:  cfg.LLMBaseURL,
		Options: llm.Options{
			Timeout:     cfg.LLMTimeout,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
		},
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}
	gen = llm.Instrument(gen, cfg.LLMProvider, logger, a.metrics)

	loc, err := cfg.Location()
	if err != nil {
		a.Close()
		return nil, err
	}
	opts := []planner.Option{
		planner.WithLocation(loc),
		planner.WithLogger(logger),
		planner.WithMetrics(a.metrics),
	}

	if cfg.TodoistToken != "" {
		opts = append(opts, planner.WithTaskSource(todoist.New(cfg.TodoistToken, "")))
	} else {
		logger.Info("todoist not configured, plans will have no tasks")
	}

	if cfg.GoogleCredentials != "" {
		events, err := gcal.New(ctx, cfg.GoogleCalendarIDs, logger,
			option.WithCredentialsJSON([]byte(cfg.GoogleCredentials)))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating calendar client: %w", err)
		}
		opts = append(opts, planner.WithEventSource(events))
	} else {
		logger.Info("google calendar not configured, plans will have no events")
	}

	a.planner = planner.New(gen, sessions, opts...)
	return a, nil
}

func (a *app) openSessionStore() (planner.SessionStore, error) {
	switch a.cfg.SessionStore {
	case "sqlite":
		db, err := store.Open(a.cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("opening session store: %w", err)
		}
		a.closers = append(a.closers, db)
		a.logger.Info("session store", "kind", "sqlite", "path", a.cfg.DatabasePath)
		return db, nil
	default:
		a.logger.Info("session store", "kind", "memory")
		return planner.NewMemoryStore(), nil
	}
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("closing", "error", err)
		}
	}
	a.closers = nil
}
