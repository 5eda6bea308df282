package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/chris/dayplan/internal/metrics"
)

// levelTrace matches config.LevelTrace; full prompt and output bodies are
// only logged at this level.
const levelTrace = slog.Level(-8)

type instrumented struct {
	next    Generator
	backend string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Instrument wraps g so every call is logged and counted.
func Instrument(g Generator, backend string, logger *slog.Logger, m *metrics.Metrics) Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &instrumented{next: g, backend: backend, logger: logger, metrics: m}
}

func (g *instrumented) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	g.logger.Debug("generating",
		"backend", g.backend,
		"prompt_size", humanize.Bytes(uint64(len(prompt))),
		"prompt_tokens_est", EstimateTokens(prompt),
	)

	g.logger.Log(ctx, levelTrace, "prompt body", "backend", g.backend, "prompt", prompt)

	text, err := g.next.Generate(ctx, prompt)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		var gerr *GenerationError
		if errors.As(err, &gerr) {
			outcome = gerr.Kind.String()
		}
		g.logger.Warn("generation failed", "backend", g.backend, "outcome", outcome, "elapsed", elapsed, "error", err)
	} else {
		g.logger.Info("generation finished", "backend", g.backend, "elapsed", elapsed, "output_tokens_est", EstimateTokens(text))
		g.logger.Log(ctx, levelTrace, "generated body", "backend", g.backend, "text", text)
	}
	g.metrics.ObserveGeneration(g.backend, outcome, elapsed)
	return text, err
}
