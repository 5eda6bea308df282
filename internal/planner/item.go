package planner

import (
	"strings"
	"time"
)

// UntitledPlaceholder replaces an empty task or event title.
const UntitledPlaceholder = "Untitled"

type Kind string

const (
	KindTask  Kind = "task"
	KindEvent Kind = "event"
)

// Item is one schedulable thing. For events Start and End are both set
// or both nil; tasks never have an End, and Start holds the due instant.
type Item struct {
	Title string
	Kind  Kind
	Start *time.Time
	End   *time.Time
}

// RawTask is a task as handed over by a task source.
type RawTask struct {
	ID    string
	Title string
	Due   *time.Time
}

// RawEvent is a calendar event as handed over by an event source.
type RawEvent struct {
	ID    string
	Title string
	Start *time.Time
	End   *time.Time
}

// Normalize converts raw tasks and events into planning items: events
// first, then tasks, each in the order given. Events carrying only one of
// start/end are dropped.
func Normalize(tasks []RawTask, events []RawEvent) []Item {
	items := make([]Item, 0, len(tasks)+len(events))
	for _, e := range events {
		if (e.Start == nil) != (e.End == nil) {
			continue
		}
		items = append(items, Item{
			Title: titleOrPlaceholder(e.Title),
			Kind:  KindEvent,
			Start: e.Start,
			End:   e.End,
		})
	}
	for _, t := range tasks {
		items = append(items, Item{
			Title: titleOrPlaceholder(t.Title),
			Kind:  KindTask,
			Start: t.Due,
		})
	}
	return items
}

// Partition splits items by kind, keeping relative order.
func Partition(items []Item) (events, tasks []Item) {
	for _, it := range items {
		switch it.Kind {
		case KindEvent:
			events = append(events, it)
		case KindTask:
			tasks = append(tasks, it)
		}
	}
	return events, tasks
}

// ResolveTimezone returns the zone of the first item carrying an instant,
// looking at Start before End, or fallback when no item has one.
func ResolveTimezone(items []Item, fallback *time.Location) *time.Location {
	for _, it := range items {
		if it.Start != nil {
			return it.Start.Location()
		}
		if it.End != nil {
			return it.End.Location()
		}
	}
	if fallback == nil {
		return time.UTC
	}
	return fallback
}

func titleOrPlaceholder(title string) string {
	if strings.TrimSpace(title) == "" {
		return UntitledPlaceholder
	}
	return title
}
