// Package telegram talks to the Telegram Bot API over plain HTTP: sending
// replies and long-polling for updates.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chris/dayplan/internal/bot"
)

const (
	defaultAPIURL = "https://api.telegram.org"

	// MaxMessageLen is Telegram's per-message character limit.
	MaxMessageLen = 4096

	pollTimeout  = 30 * time.Second
	pollBackoff  = 5 * time.Second
	sendTimeout  = 15 * time.Second
	errBodyLimit = 300
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

// Update is one entry of getUpdates or a webhook delivery. Only messages
// are of interest; other update kinds leave Message nil.
type Update struct {
	UpdateID      int64    `json:"update_id"`
	Message       *Message `json:"message,omitempty"`
	EditedMessage *Message `json:"edited_message,omitempty"`
}

// IncomingMessage returns the message carried by u, preferring a new
// message over an edit.
func (u Update) IncomingMessage() *Message {
	if u.Message != nil {
		return u.Message
	}
	return u.EditedMessage
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

type Client struct {
	token      string
	apiURL     string
	httpClient *http.Client
}

// NewClient returns a Bot API client. apiURL may be empty to use the
// public endpoint.
func NewClient(token, apiURL string) *Client {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Client{
		token:  token,
		apiURL: strings.TrimRight(apiURL, "/"),
		// Long polls hold the connection for pollTimeout; per-call
		// deadlines come from the context.
		httpClient: &http.Client{},
	}
}

// Send delivers text to a chat, splitting it to fit Telegram's limit. It
// satisfies bot.Sink with the chat ID as the conversation ID.
func (c *Client) Send(ctx context.Context, chatID, text string) error {
	for _, chunk := range bot.SplitMessage(text, MaxMessageLen) {
		if err := c.sendMessage(ctx, chatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) sendMessage(ctx context.Context, chatID, text string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	body := map[string]any{"chat_id": chatID, "text": text}
	if _, err := c.call(ctx, "sendMessage", body); err != nil {
		return fmt.Errorf("sending to chat %s: %w", chatID, err)
	}
	return nil
}

// GetUpdates long-polls for updates with IDs >= offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout+10*time.Second)
	defer cancel()

	body := map[string]any{
		"timeout":         int(timeout / time.Second),
		"allowed_updates": []string{"message", "edited_message"},
	}
	if offset > 0 {
		body["offset"] = offset
	}
	raw, err := c.call(ctx, "getUpdates", body)
	if err != nil {
		return nil, fmt.Errorf("getting updates: %w", err)
	}
	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("decoding updates: %w", err)
	}
	return updates, nil
}

func (c *Client) call(ctx context.Context, method string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	url := c.apiURL + "/bot" + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL embeds the token; keep it out of the error.
		return nil, fmt.Errorf("%s: request failed", method)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var ar apiResponse
	if err := json.Unmarshal(respBody, &ar); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s: HTTP %d: %s", method, resp.StatusCode, truncate(string(respBody), errBodyLimit))
		}
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if !ar.OK {
		code := ar.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return nil, fmt.Errorf("%s: error %d: %s", method, code, ar.Description)
	}
	return ar.Result, nil
}

// Handler answers one inbound message; bot.Dispatcher satisfies it.
type Handler interface {
	HandleIncomingMessage(ctx context.Context, conversationID, userID, text string)
}

// Dispatch routes the message in u to h. It reports false when the update
// carries no usable text message.
func Dispatch(ctx context.Context, h Handler, u Update) bool {
	msg := u.IncomingMessage()
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return false
	}
	userID := msg.Chat.ID
	if msg.From != nil {
		userID = msg.From.ID
	}
	h.HandleIncomingMessage(ctx, strconv.FormatInt(msg.Chat.ID, 10), strconv.FormatInt(userID, 10), msg.Text)
	return true
}

// Poller long-polls getUpdates and hands every message to a Handler.
type Poller struct {
	client  *Client
	handler Handler
	logger  *slog.Logger
	backoff time.Duration
	timeout time.Duration
}

func NewPoller(c *Client, h Handler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		client:  c,
		handler: h,
		logger:  logger.With("component", "telegram"),
		backoff: pollBackoff,
		timeout: pollTimeout,
	}
}

// Run polls until ctx is cancelled. Failed polls are retried after a
// fixed backoff. Updates are handled one at a time, in order.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("polling for updates")
	var offset int64
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		updates, err := p.client.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Warn("poll failed", "error", err, "retry_in", p.backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.backoff):
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			Dispatch(ctx, p.handler, u)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
