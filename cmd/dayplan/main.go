package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chris/dayplan/internal/bot"
	"github.com/chris/dayplan/internal/discord"
	"github.com/chris/dayplan/internal/scheduler"
	"github.com/chris/dayplan/internal/server"
	"github.com/chris/dayplan/internal/telegram"
)

const cliUser = "cli"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dayplan",
		Short:         "Chat assistant that builds time-blocked daily plans",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newChatCmd(), newPlanCmd())
	return root
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Serve the chat transports, HTTP endpoints and scheduled plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(cmd.Context(), a)
		},
	}
}

func newChatCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			d := bot.NewDispatcher(a.planner, nil, a.logger, a.metrics)
			interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
			return chatLoop(cmd.Context(), d, user, os.Stdin, cmd.OutOrStdout(), interactive)
		},
	}
	cmd.Flags().StringVar(&user, "user", cliUser, "user id whose instructions and plan are used")
	return cmd
}

func newPlanCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "plan [instructions...]",
		Short: "Print a plan for the day and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintln(cmd.OutOrStdout(), a.planner.BuildPlan(cmd.Context(), user, strings.Join(args, " ")))
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", cliUser, "user id whose instructions are applied")
	return cmd
}

func setup(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, logger)
}

// chatLoop reads one message per line and prints each reply. Bare text
// without a leading slash is treated as /plan instructions.
func chatLoop(ctx context.Context, d *bot.Dispatcher, user string, in io.Reader, out io.Writer, interactive bool) error {
	scanner := bufio.NewScanner(in)
	prompt := func() {
		if interactive {
			fmt.Fprint(out, "dayplan> ")
		}
	}

	prompt()
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			prompt()
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		if !strings.HasPrefix(input, "/") {
			input = "/plan " + input
		}
		fmt.Fprintln(out, d.Reply(ctx, user, input))
		if ctx.Err() != nil {
			return nil
		}
		prompt()
	}
	return scanner.Err()
}

func serve(ctx context.Context, a *app) error {
	cfg, logger := a.cfg, a.logger
	g, ctx := errgroup.WithContext(ctx)

	var (
		pushSink bot.Sink
		webhook  telegram.Handler
	)

	if cfg.TelegramToken != "" {
		tg := telegram.NewClient(cfg.TelegramToken, "")
		d := bot.NewDispatcher(a.planner, tg, logger, a.metrics)
		pushSink = tg
		if cfg.TelegramMode == "webhook" {
			webhook = d
			logger.Info("telegram updates via webhook")
		} else {
			g.Go(func() error { return telegram.NewPoller(tg, d, logger).Run(ctx) })
		}
	}

	if cfg.DiscordToken != "" {
		dc, err := discord.NewBot(cfg.DiscordToken, logger)
		if err != nil {
			return err
		}
		if err := dc.Open(bot.NewDispatcher(a.planner, dc, logger, a.metrics)); err != nil {
			return err
		}
		defer dc.Close()
		if pushSink == nil {
			pushSink = dc
		}
	}

	if cfg.TelegramToken == "" && cfg.DiscordToken == "" {
		logger.Warn("no chat transport configured, serving HTTP endpoints only")
	}

	srv := server.New(server.Config{
		Addr:     cfg.HTTPAddr,
		Webhook:  webhook,
		Gatherer: a.registry,
	}, logger)
	g.Go(func() error { return srv.Run(ctx) })

	if cfg.PlanCron != "" {
		loc, _ := cfg.Location() // checked by Validate
		sched := scheduler.New(scheduler.Config{
			CronExpr:       cfg.PlanCron,
			Location:       loc,
			UserID:         cfg.PlanPushUser,
			ConversationID: cfg.PlanPushConversation,
			WebhookURL:     cfg.DiscordWebhook,
		}, a.planner, pushSink, logger)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	logger.Info("dayplan is running, press Ctrl+C to exit")
	err := g.Wait()
	logger.Info("shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
