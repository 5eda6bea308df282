package planner

import (
	"fmt"
	"strings"
	"time"
)

// Fallback tokens. The rendered instructions refer to them, so they are
// part of the prompt format and must not change casually.
const (
	NotSpecified     = "not specified"
	NoneToken        = "none"
	NoEventsLine     = "- no events"
	NoTasksLine      = "1. No tasks, but add useful habits"
	DaySummaryHeader = "Day Summary"
)

const instantLayout = "2006-01-02 15:04"

// BuildRequest is everything the initial schedule prompt is rendered from.
type BuildRequest struct {
	Now          time.Time
	Location     *time.Location
	Items        []Item
	Instructions string
}

// RevisionRequest is everything the revision prompt is rendered from.
type RevisionRequest struct {
	PreviousPlan  string
	Modifications string
	Instructions  string
}

// RenderBuildPrompt renders the prompt asking for a one-day time-blocked
// schedule. Events are listed before tasks.
func RenderBuildPrompt(req BuildRequest) string {
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}
	now := req.Now.In(loc)
	tz := zoneLabel(now)
	events, tasks := Partition(req.Items)

	var b strings.Builder
	b.WriteString("You are a personal time-management assistant. Build a detailed schedule for one day using the time-blocking method. Follow these rules:\n")
	fmt.Fprintf(&b, "- Always use local time (%s) and the format `HH:MM–HH:MM — block description`, one block per line.\n", tz)
	b.WriteString("- Sort all blocks strictly by start time.\n")
	b.WriteString("- Merge the calendar events and the tasks, spreading them evenly across the day. Respect deadlines.\n")
	b.WriteString("- Add the necessary daily routines: waking up, breakfast, lunch, dinner, rest, winding down before sleep.\n")
	b.WriteString("- If there are free windows, fill them with useful activities or recovery.\n")
	fmt.Fprintf(&b, "- Finish with a short \"%s\" block reminding what matters most today.\n", DaySummaryHeader)
	fmt.Fprintf(&b, "\nCurrent time: %s (%s).\n", now.Format(instantLayout), tz)

	b.WriteString("\nCalendar events for today and tomorrow:\n")
	if len(events) == 0 {
		b.WriteString(NoEventsLine + "\n")
	}
	for _, ev := range events {
		fmt.Fprintf(&b, "- %s (from %s to %s)\n", ev.Title, formatInstant(ev.Start, loc), formatInstant(ev.End, loc))
	}

	b.WriteString("\nTasks:\n")
	if len(tasks) == 0 {
		b.WriteString(NoTasksLine + "\n")
	}
	for i, t := range tasks {
		fmt.Fprintf(&b, "%d. %s (due by %s)\n", i+1, t.Title, formatInstant(t.Start, loc))
	}

	fmt.Fprintf(&b, "\nAdditional user instructions: %s.\n", instructionsOrNone(req.Instructions))
	b.WriteString("\nOutput only the schedule, without any extra commentary.")

	return strings.TrimSpace(b.String())
}

// RenderRevisePrompt renders the prompt asking the model to apply the
// user's modifications to a previously generated schedule.
func RenderRevisePrompt(req RevisionRequest) string {
	var b strings.Builder
	b.WriteString("You are a personal time-management assistant. Below is a one-day schedule built with the time-blocking method. Apply the requested changes and return the updated schedule, following these rules:\n")
	b.WriteString("- Always keep the format `HH:MM–HH:MM — block description`, one block per line, sorted strictly by start time.\n")
	b.WriteString("- Keep the blocks of the current schedule unless the requested changes remove or alter them.\n")
	b.WriteString("- Respect the relative order of blocks, deadlines and the user's standing preferences.\n")
	fmt.Fprintf(&b, "- Keep the closing \"%s\" block, updated to match the new schedule.\n", DaySummaryHeader)

	b.WriteString("\nCurrent schedule:\n")
	b.WriteString(req.PreviousPlan)
	b.WriteString("\n")

	fmt.Fprintf(&b, "\nRequested changes: %s.\n", strings.TrimSpace(req.Modifications))
	fmt.Fprintf(&b, "Standing user instructions: %s.\n", instructionsOrNone(req.Instructions))
	b.WriteString("\nReturn only the updated schedule, without any extra commentary.")

	return strings.TrimSpace(b.String())
}

func formatInstant(t *time.Time, loc *time.Location) string {
	if t == nil {
		return NotSpecified
	}
	local := t.In(loc)
	return fmt.Sprintf("%s (%s)", local.Format(instantLayout), zoneLabel(local))
}

// zoneLabel names the zone of t, falling back to its numeric offset for
// unnamed fixed zones.
func zoneLabel(t time.Time) string {
	if name, _ := t.Zone(); name != "" {
		return name
	}
	return t.Format("-07:00")
}

func instructionsOrNone(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return NoneToken
	}
	return s
}
