// Package bot routes chat commands to the planner and sends exactly one
// reply per inbound message, whatever the transport.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/chris/dayplan/internal/metrics"
	"github.com/chris/dayplan/internal/planner"
)

const (
	MsgGreeting = "Hi! Use /plan to get a plan for the day. " +
		"/set_instructions saves standing preferences, " +
		"and /adjust_plan refines a schedule you already have."
	MsgUnknownCommand = "Unknown command. Use /plan, /set_instructions or /adjust_plan."
)

// Sink delivers a reply to a conversation.
type Sink interface {
	Send(ctx context.Context, conversationID, text string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, conversationID, text string) error

func (f SinkFunc) Send(ctx context.Context, conversationID, text string) error {
	return f(ctx, conversationID, text)
}

type Dispatcher struct {
	planner *planner.Planner
	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewDispatcher(p *planner.Planner, sink Sink, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{planner: p, sink: sink, logger: logger.With("component", "bot"), metrics: m}
}

// HandleIncomingMessage answers one inbound message through the sink.
func (d *Dispatcher) HandleIncomingMessage(ctx context.Context, conversationID, userID, text string) {
	log := d.logger.With("request_id", uuid.NewString(), "conversation", conversationID, "user", userID)
	ctx = withLogger(ctx, log)

	reply := d.Reply(ctx, userID, text)
	if err := d.sink.Send(ctx, conversationID, reply); err != nil {
		log.Error("sending reply", "error", err)
	}
}

// Reply computes the answer to text without sending it.
func (d *Dispatcher) Reply(ctx context.Context, userID, text string) string {
	log := loggerFrom(ctx, d.logger)
	command, args := ParseCommand(text)
	log.Info("command received", "command", commandLabel(command))
	d.metrics.ObserveCommand(commandLabel(command))

	switch command {
	case "/plan":
		return d.planner.BuildPlan(ctx, userID, args)
	case "/set_instructions":
		return d.planner.SetInstructions(ctx, userID, args)
	case "/adjust_plan":
		return d.planner.AdjustPlan(ctx, userID, args)
	case "/start", "/help":
		return MsgGreeting
	default:
		return MsgUnknownCommand
	}
}

// ParseCommand splits "/cmd@bot args" into a lower-cased command and the
// remaining text. Text that is not a command yields an empty command.
func ParseCommand(text string) (command, args string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	command = text
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		command, args = text[:i], text[i+1:]
	}
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	return strings.ToLower(command), strings.TrimSpace(args)
}

func commandLabel(command string) string {
	switch command {
	case "/plan", "/set_instructions", "/adjust_plan", "/start", "/help":
		return strings.TrimPrefix(command, "/")
	default:
		return "unknown"
	}
}

// SplitMessage breaks s into chunks of at most maxLen bytes, preferring to
// split after a newline and never inside a UTF-8 sequence.
func SplitMessage(s string, maxLen int) []string {
	if len(s) <= maxLen {
		return []string{s}
	}
	var chunks []string
	for len(s) > 0 {
		end := maxLen
		if end > len(s) {
			end = len(s)
		}
		for end > 1 && end < len(s) && !utf8.RuneStart(s[end]) {
			end--
		}
		// Try to split at a newline
		if idx := strings.LastIndex(s[:end], "\n"); idx > 0 {
			end = idx + 1
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func loggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return fallback
}
