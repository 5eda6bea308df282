// Package gcal reads events from one or more Google calendars.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/chris/dayplan/internal/planner"
)

var _ planner.EventSource = (*Client)(nil)

type Client struct {
	svc         *calendar.Service
	calendarIDs []string
	logger      *slog.Logger
}

// New creates a read-only calendar client. Credentials and endpoint are
// passed as client options, e.g. option.WithCredentialsJSON.
func New(ctx context.Context, calendarIDs []string, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	var ids []string
	for _, id := range calendarIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, errors.New("at least one Google Calendar ID must be configured")
	}
	opts = append([]option.ClientOption{option.WithScopes(calendar.CalendarReadonlyScope)}, opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{svc: svc, calendarIDs: ids, logger: logger.With("component", "gcal")}, nil
}

// FetchEvents lists single (expanded) events of every calendar in
// [start, end), merged and ordered by start. Calendars that cannot be read
// are skipped; an error is returned only when none could be read.
func (c *Client) FetchEvents(ctx context.Context, start, end time.Time) ([]planner.RawEvent, error) {
	var (
		events []planner.RawEvent
		errs   []error
		read   int
	)
	for _, id := range c.calendarIDs {
		err := c.svc.Events.List(id).
			TimeMin(start.UTC().Format(time.RFC3339)).
			TimeMax(end.UTC().Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			Pages(ctx, func(page *calendar.Events) error {
				for _, item := range page.Items {
					if ev, ok := convertEvent(item); ok {
						events = append(events, ev)
					}
				}
				return nil
			})
		if err != nil {
			var gerr *googleapi.Error
			if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
				c.logger.Warn("calendar not found, skipping", "calendar", id)
			} else {
				c.logger.Warn("reading calendar failed, skipping", "calendar", id, "error", err)
			}
			errs = append(errs, fmt.Errorf("calendar %s: %w", id, err))
			continue
		}
		read++
	}
	if read == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(*events[j].Start)
	})
	return events, nil
}

// convertEvent maps an API event to a RawEvent. All-day events span
// 00:00 of the start date to 23:59 of the end date, in UTC. Events without
// both a start and an end are dropped.
func convertEvent(item *calendar.Event) (planner.RawEvent, bool) {
	if item == nil || item.Start == nil || item.End == nil {
		return planner.RawEvent{}, false
	}
	start, ok := parseEventTime(item.Start, "T00:00:00Z")
	if !ok {
		return planner.RawEvent{}, false
	}
	end, ok := parseEventTime(item.End, "T23:59:00Z")
	if !ok {
		return planner.RawEvent{}, false
	}
	return planner.RawEvent{
		ID:    item.Id,
		Title: item.Summary,
		Start: &start,
		End:   &end,
	}, true
}

func parseEventTime(t *calendar.EventDateTime, allDaySuffix string) (time.Time, bool) {
	s := t.DateTime
	if s == "" {
		if t.Date == "" {
			return time.Time{}, false
		}
		s = t.Date + allDaySuffix
	}
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return v, true
}
