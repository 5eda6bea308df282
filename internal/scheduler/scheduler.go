// Package scheduler pushes a freshly built plan to a configured user on a
// cron schedule.
package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/chris/dayplan/internal/bot"
)

const (
	runTimeout      = 2 * time.Minute
	webhookMaxLen   = 2000
	webhookTimeout  = 15 * time.Second
	defaultPushName = "daily-plan"
)

// PlanBuilder produces a plan (or an apology) for a user.
type PlanBuilder interface {
	BuildPlan(ctx context.Context, userID, extra string) string
}

type Config struct {
	// CronExpr is a standard five-field cron expression.
	CronExpr string
	Location *time.Location
	// UserID is whose instructions and stored plan the push uses.
	UserID string
	// ConversationID is where the sink delivers the plan. When empty, or
	// when the sink fails, the plan goes to WebhookURL.
	ConversationID string
	WebhookURL     string
}

type Scheduler struct {
	cron       *cron.Cron
	cfg        Config
	planner    PlanBuilder
	sink       bot.Sink
	logger     *slog.Logger
	httpClient *http.Client
}

func New(cfg Config, p PlanBuilder, sink bot.Sink, logger *slog.Logger) *Scheduler {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		cfg:        cfg,
		planner:    p,
		sink:       sink,
		logger:     logger.With("component", "scheduler", "schedule", defaultPushName),
		httpClient: &http.Client{Timeout: webhookTimeout},
	}
}

// Start registers the push and starts the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.CronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("invalid cron %q: %w", s.cfg.CronExpr, err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "cron", s.cfg.CronExpr, "user", s.cfg.UserID)
	return nil
}

// Stop halts the runner and waits for a running push to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce builds the plan for the configured user and delivers it.
func (s *Scheduler) RunOnce(ctx context.Context) {
	plan := s.planner.BuildPlan(ctx, s.cfg.UserID, "")
	s.deliver(ctx, plan)
	s.logger.Info("completed")
}

func (s *Scheduler) deliver(ctx context.Context, content string) {
	// Try the chat transport first
	if s.sink != nil && s.cfg.ConversationID != "" {
		if err := s.sink.Send(ctx, s.cfg.ConversationID, content); err != nil {
			s.logger.Warn("sink delivery failed", "error", err)
		} else {
			return
		}
	}
	// Fall back to webhook
	if s.cfg.WebhookURL != "" {
		if err := s.postWebhook(ctx, content); err != nil {
			s.logger.Error("webhook failed", "error", err)
		}
		return
	}
	s.logger.Warn("no delivery method available (no conversation and no webhook)")
}

func (s *Scheduler) postWebhook(ctx context.Context, content string) error {
	for _, chunk := range bot.SplitMessage(content, webhookMaxLen) {
		body, err := json.Marshal(map[string]string{"content": chunk})
		if err != nil {
			return fmt.Errorf("marshaling webhook payload: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("creating webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("posting webhook: %w", err)
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
	}
	return nil
}
