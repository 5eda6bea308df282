package discord

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore own messages
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}

	// Only respond to DMs or when mentioned
	isDM := m.GuildID == ""
	isMentioned := false
	for _, u := range m.Mentions {
		if u.ID == s.State.User.ID {
			isMentioned = true
			break
		}
	}
	if !isDM && !isMentioned {
		return
	}

	content := normalizeCommand(stripMention(m.Content, s.State.User.ID))
	if content == "" {
		return
	}

	// Show typing indicator
	_ = s.ChannelTyping(m.ChannelID)

	if b.handler == nil {
		return
	}
	b.handler.HandleIncomingMessage(context.Background(), m.ChannelID, m.Author.ID, content)
}

func stripMention(s, userID string) string {
	s = strings.ReplaceAll(s, "<@"+userID+">", "")
	s = strings.ReplaceAll(s, "<@!"+userID+">", "")
	return s
}

// normalizeCommand trims the message and accepts "!plan" as "/plan", since
// Discord clients capture a leading slash for application commands.
func normalizeCommand(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "!") {
		s = "/" + s[1:]
	}
	return s
}
