package planner

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2025, 3, 10, 7, 15, 0, 0, time.UTC)

func TestRenderBuildPrompt_EventOnly(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	items := Normalize(nil, []RawEvent{{Title: "Standup", Start: &start, End: &end}})

	got := RenderBuildPrompt(BuildRequest{
		Now:      testNow,
		Location: ResolveTimezone(items, time.Local),
		Items:    items,
	})

	assert.Contains(t, got, "- Standup (from 2025-03-10 09:00 (UTC) to 2025-03-10 09:30 (UTC))")
	assert.Contains(t, got, "\nTasks:\n"+NoTasksLine+"\n")
	assert.NotContains(t, got, NoEventsLine)
	assert.Contains(t, got, "Current time: 2025-03-10 07:15 (UTC).")
	assert.Contains(t, got, "Additional user instructions: none.")
}

func TestRenderBuildPrompt_Empty(t *testing.T) {
	got := RenderBuildPrompt(BuildRequest{Now: testNow, Location: time.UTC})

	assert.Equal(t, 1, strings.Count(got, "Calendar events for today and tomorrow:\n"+NoEventsLine+"\n"))
	assert.Equal(t, 1, strings.Count(got, "Tasks:\n"+NoTasksLine+"\n"))
}

func TestRenderBuildPrompt_TasksAndOrdering(t *testing.T) {
	kyiv := time.FixedZone("EET", 2*3600)
	due := time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)
	s1 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	e1 := time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)

	items := []Item{
		{Title: "Pay rent", Kind: KindTask, Start: &due},
		{Title: "Lunch with Sam", Kind: KindEvent, Start: &s1, End: &e1},
		{Title: "Read", Kind: KindTask},
		{Title: "Floating", Kind: KindEvent},
	}
	got := RenderBuildPrompt(BuildRequest{Now: testNow, Location: kyiv, Items: items, Instructions: "  no meetings before 10  "})

	assert.Contains(t, got, "- Lunch with Sam (from 2025-03-10 14:00 (EET) to 2025-03-10 15:00 (EET))\n- Floating (from not specified to not specified)\n")
	assert.Contains(t, got, "1. Pay rent (due by 2025-03-10 18:00 (EET))\n2. Read (due by not specified)\n")
	assert.Contains(t, got, "Current time: 2025-03-10 09:15 (EET).")
	assert.Contains(t, got, "local time (EET)")
	assert.Contains(t, got, "Additional user instructions: no meetings before 10.")
	assert.Less(t, strings.Index(got, "Lunch with Sam"), strings.Index(got, "Pay rent"))
	assert.NotContains(t, got, NoEventsLine)
	assert.NotContains(t, got, NoTasksLine)
}

func TestRenderBuildPrompt_Rules(t *testing.T) {
	got := RenderBuildPrompt(BuildRequest{Now: testNow, Location: time.UTC})

	for _, want := range []string{
		"`HH:MM–HH:MM — block description`",
		"strictly by start time",
		"Respect deadlines",
		"waking up, breakfast, lunch, dinner, rest",
		`"Day Summary"`,
		"Output only the schedule",
	} {
		assert.Contains(t, got, want)
	}
	assert.Equal(t, strings.TrimSpace(got), got)
}

func TestRenderBuildPrompt_UnnamedZoneUsesOffset(t *testing.T) {
	ts := time.Date(2025, 3, 10, 9, 0, 0, 0, time.FixedZone("", 5*3600+1800))
	items := []Item{{Title: "Call", Kind: KindEvent, Start: &ts, End: &ts}}

	got := RenderBuildPrompt(BuildRequest{Now: testNow, Location: ResolveTimezone(items, time.UTC), Items: items})
	assert.Contains(t, got, "- Call (from 2025-03-10 09:00 (+05:30) to 2025-03-10 09:00 (+05:30))")
}

func TestRenderBuildPrompt_Deterministic(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	req := BuildRequest{
		Now:          testNow,
		Location:     time.UTC,
		Items:        []Item{{Title: "a", Kind: KindEvent, Start: &start, End: &start}, {Title: "b", Kind: KindTask}},
		Instructions: "x",
	}
	assert.Equal(t, RenderBuildPrompt(req), RenderBuildPrompt(req))
}

func TestRenderRevisePrompt(t *testing.T) {
	previous := "07:00–07:30 — Wake up\n09:00–09:30 — Standup\n\nDay Summary: ship it"
	got := RenderRevisePrompt(RevisionRequest{
		PreviousPlan:  previous,
		Modifications: "  move standup to 10:00 \n",
	})

	assert.Contains(t, got, "Current schedule:\n"+previous+"\n")
	assert.Contains(t, got, "Requested changes: move standup to 10:00.")
	assert.Contains(t, got, "Standing user instructions: none.")
	assert.Contains(t, got, "`HH:MM–HH:MM — block description`")
	assert.Contains(t, got, `"Day Summary"`)
	assert.Contains(t, got, "unless the requested changes remove or alter them")
	assert.Contains(t, got, "Return only the updated schedule")
	assert.Equal(t, strings.TrimSpace(got), got)

	again := RenderRevisePrompt(RevisionRequest{PreviousPlan: previous, Modifications: "  move standup to 10:00 \n"})
	assert.Equal(t, got, again)
}

func TestRenderRevisePrompt_WithInstructions(t *testing.T) {
	got := RenderRevisePrompt(RevisionRequest{PreviousPlan: "p", Modifications: "m", Instructions: "gym at 18"})
	assert.Contains(t, got, "Standing user instructions: gym at 18.")
}
