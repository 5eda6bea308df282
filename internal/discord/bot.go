package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/chris/dayplan/internal/bot"
)

// maxMessageLen is Discord's per-message character limit.
const maxMessageLen = 2000

// Handler answers one inbound message; bot.Dispatcher satisfies it.
type Handler interface {
	HandleIncomingMessage(ctx context.Context, conversationID, userID, text string)
}

type Bot struct {
	session *discordgo.Session
	handler Handler
	logger  *slog.Logger
}

// NewBot creates the session without connecting, so the bot can serve as
// the reply sink of the handler it feeds. Call Open to start receiving.
func NewBot(token string, logger *slog.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bot{session: s, logger: logger.With("component", "discord")}
	s.AddHandler(b.onMessage)
	s.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	return b, nil
}

// Open connects to the gateway and starts routing messages to h.
func (b *Bot) Open(h Handler) error {
	b.handler = h
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening Discord connection: %w", err)
	}
	b.logger.Info("connected", "user", b.session.State.User.Username)
	return nil
}

func (b *Bot) Close() {
	b.session.Close()
}

// Send posts text to a channel, splitting it to fit Discord's limit.
func (b *Bot) Send(ctx context.Context, channelID, text string) error {
	for _, chunk := range bot.SplitMessage(text, maxMessageLen) {
		if _, err := b.session.ChannelMessageSend(channelID, chunk, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("sending to channel %s: %w", channelID, err)
		}
	}
	return nil
}

// SendDM opens (or reuses) a direct-message channel with a user and posts
// text there.
func (b *Bot) SendDM(ctx context.Context, userID, text string) error {
	ch, err := b.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("opening DM channel: %w", err)
	}
	return b.Send(ctx, ch.ID, text)
}
