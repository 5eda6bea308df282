// Package planner builds and revises daily schedules: it normalizes tasks
// and calendar events, renders them into a prompt, asks a Generator for a
// time-blocked plan and remembers the result per user so that later
// adjustments have a baseline.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chris/dayplan/internal/llm"
	"github.com/chris/dayplan/internal/metrics"
)

// PlanWindow is how far ahead events are fetched when building a plan.
const PlanWindow = 24 * time.Hour

// Replies sent back to the user.
const (
	MsgInstructionsCleared = "Instructions cleared."
	MsgInstructionsSaved   = "Instructions saved."
	MsgDescribeChanges     = "Describe what changes should be made to the schedule."
	MsgBuildPlanFirst      = "Request a plan with /plan first, then try again."

	msgBuildFailed        = "Could not build a schedule with the model: %v. Please try again later."
	msgAdjustFailed       = "Could not apply the changes with the model: %v. Please try again later."
	msgInstructionsFailed = "Could not update instructions: %v. Please try again later."
)

// TaskSource lists outstanding tasks.
type TaskSource interface {
	FetchTasks(ctx context.Context) ([]RawTask, error)
}

// EventSource lists calendar events in [start, end), ordered by start.
type EventSource interface {
	FetchEvents(ctx context.Context, start, end time.Time) ([]RawEvent, error)
}

type Planner struct {
	gen      llm.Generator
	store    SessionStore
	tasks    TaskSource
	events   EventSource
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Planner)

func WithTaskSource(s TaskSource) Option { return func(p *Planner) { p.tasks = s } }

func WithEventSource(s EventSource) Option { return func(p *Planner) { p.events = s } }

// WithLocation sets the zone used when no planning item carries one.
func WithLocation(loc *time.Location) Option { return func(p *Planner) { p.location = loc } }

func WithClock(now func() time.Time) Option { return func(p *Planner) { p.now = now } }

func WithLogger(l *slog.Logger) Option { return func(p *Planner) { p.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(p *Planner) { p.metrics = m } }

func New(gen llm.Generator, store SessionStore, opts ...Option) *Planner {
	p := &Planner{
		gen:      gen,
		store:    store,
		location: time.UTC,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "planner")
	return p
}

// BuildPlan generates a fresh schedule for the next day. extra is appended
// to the user's standing instructions for this request only. The returned
// text is either the plan or an apology describing the failure; the stored
// plan only changes on success.
func (p *Planner) BuildPlan(ctx context.Context, userID, extra string) string {
	log := p.logger.With("user", userID, "op", "build")

	now := p.now()
	tasks, events := p.fetchSources(ctx, log, now)
	items := Normalize(tasks, events)
	loc := ResolveTimezone(items, p.location)

	instructions := p.standingInstructions(ctx, log, userID)
	if extra = strings.TrimSpace(extra); extra != "" {
		if instructions != "" {
			instructions = instructions + ". " + extra
		} else {
			instructions = extra
		}
	}

	prompt := RenderBuildPrompt(BuildRequest{
		Now:          now,
		Location:     loc,
		Items:        items,
		Instructions: instructions,
	})
	log.Debug("rendered build prompt", "items", len(items), "timezone", loc.String())

	plan, err := p.gen.Generate(ctx, prompt)
	if err != nil {
		log.Warn("plan generation failed", "error", err)
		return fmt.Sprintf(msgBuildFailed, err)
	}
	if err := p.store.SetLastPlan(ctx, userID, plan); err != nil {
		log.Error("storing plan", "error", err)
	}
	return plan
}

// SetInstructions stores standing instructions, or clears them when text
// is blank.
func (p *Planner) SetInstructions(ctx context.Context, userID, text string) string {
	if strings.TrimSpace(text) == "" {
		if err := p.store.ClearInstructions(ctx, userID); err != nil {
			p.logger.Error("clearing instructions", "user", userID, "error", err)
			return fmt.Sprintf(msgInstructionsFailed, err)
		}
		return MsgInstructionsCleared
	}
	if err := p.store.SetInstructions(ctx, userID, text); err != nil {
		p.logger.Error("saving instructions", "user", userID, "error", err)
		return fmt.Sprintf(msgInstructionsFailed, err)
	}
	return MsgInstructionsSaved
}

// AdjustPlan asks the model to apply modifications to the user's last
// plan and stores the revision on success.
func (p *Planner) AdjustPlan(ctx context.Context, userID, modifications string) string {
	if strings.TrimSpace(modifications) == "" {
		return MsgDescribeChanges
	}
	log := p.logger.With("user", userID, "op", "adjust")

	previous, ok, err := p.store.LastPlan(ctx, userID)
	if err != nil {
		log.Error("loading last plan", "error", err)
		return fmt.Sprintf(msgAdjustFailed, err)
	}
	if !ok || previous == "" {
		return MsgBuildPlanFirst
	}

	prompt := RenderRevisePrompt(RevisionRequest{
		PreviousPlan:  previous,
		Modifications: modifications,
		Instructions:  p.standingInstructions(ctx, log, userID),
	})

	revised, err := p.gen.Generate(ctx, prompt)
	if err != nil {
		log.Warn("plan revision failed", "error", err)
		return fmt.Sprintf(msgAdjustFailed, err)
	}
	if err := p.store.SetLastPlan(ctx, userID, revised); err != nil {
		log.Error("storing revised plan", "error", err)
	}
	return revised
}

func (p *Planner) standingInstructions(ctx context.Context, log *slog.Logger, userID string) string {
	text, _, err := p.store.Instructions(ctx, userID)
	if err != nil {
		log.Error("loading instructions", "error", err)
		return ""
	}
	return text
}

// fetchSources queries both sources concurrently. A failing source is
// logged and contributes nothing.
func (p *Planner) fetchSources(ctx context.Context, log *slog.Logger, now time.Time) ([]RawTask, []RawEvent) {
	var (
		tasks  []RawTask
		events []RawEvent
		g      errgroup.Group
	)
	if p.tasks != nil {
		g.Go(func() error {
			t, err := p.tasks.FetchTasks(ctx)
			if err != nil {
				log.Warn("skipping task source", "error", err)
				p.metrics.ObserveSourceFailure("tasks")
				return nil
			}
			tasks = t
			return nil
		})
	}
	if p.events != nil {
		g.Go(func() error {
			e, err := p.events.FetchEvents(ctx, now, now.Add(PlanWindow))
			if err != nil {
				log.Warn("skipping event source", "error", err)
				p.metrics.ObserveSourceFailure("events")
				return nil
			}
			events = e
			return nil
		})
	}
	_ = g.Wait() // sources never return errors; failures are skipped above
	return tasks, events
}
