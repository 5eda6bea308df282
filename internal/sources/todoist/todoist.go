// Package todoist reads outstanding tasks from the Todoist REST API.
package todoist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chris/dayplan/internal/planner"
)

const (
	tasksAPI       = "https://api.todoist.com/api/v1/tasks"
	defaultTimeout = 10 * time.Second
	maxPages       = 20
)

var _ planner.TaskSource = (*Client)(nil)

type Client struct {
	token string
	url   string
	http  *http.Client
}

// New returns a client for the tasks endpoint at apiURL, or the public
// API when apiURL is empty.
func New(token, apiURL string) *Client {
	if apiURL == "" {
		apiURL = tasksAPI
	}
	return &Client{
		token: token,
		url:   apiURL,
		http:  &http.Client{Timeout: defaultTimeout},
	}
}

type apiTask struct {
	ID      json.RawMessage `json:"id"`
	Content string          `json:"content"`
	Due     *apiDue         `json:"due"`
}

type apiDue struct {
	Date     string `json:"date"`
	Datetime string `json:"datetime"`
}

type apiPage struct {
	Results    []apiTask `json:"results"`
	NextCursor *string   `json:"next_cursor"`
}

// FetchTasks returns all active tasks. Both the paginated v1 response and
// the plain array returned by the older REST API are understood.
func (c *Client) FetchTasks(ctx context.Context) ([]planner.RawTask, error) {
	var tasks []planner.RawTask
	cursor := ""
	for page := 0; page < maxPages; page++ {
		body, err := c.get(ctx, cursor)
		if err != nil {
			return nil, err
		}

		var batch []apiTask
		next := ""
		if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &batch); err != nil {
				return nil, fmt.Errorf("parsing tasks: %w", err)
			}
		} else {
			var p apiPage
			if err := json.Unmarshal(trimmed, &p); err != nil {
				return nil, fmt.Errorf("parsing tasks: %w", err)
			}
			batch = p.Results
			if p.NextCursor != nil {
				next = *p.NextCursor
			}
		}

		for _, t := range batch {
			tasks = append(tasks, planner.RawTask{
				ID:    taskID(t.ID),
				Title: t.Content,
				Due:   parseDue(t.Due),
			})
		}
		if next == "" {
			return tasks, nil
		}
		cursor = next
	}
	return tasks, nil
}

func (c *Client) get(ctx context.Context, cursor string) ([]byte, error) {
	u := c.url
	if cursor != "" {
		u += "?cursor=" + url.QueryEscape(cursor)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("todoist request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("todoist tasks: %s %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// taskID accepts both string and numeric ids.
func taskID(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

var dueLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDue prefers the exact datetime over the date. Values without an
// offset are taken as UTC; anything unparseable means no due instant.
func parseDue(d *apiDue) *time.Time {
	if d == nil {
		return nil
	}
	s := d.Datetime
	if s == "" {
		s = d.Date
	}
	if s == "" {
		return nil
	}
	for _, layout := range dueLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
