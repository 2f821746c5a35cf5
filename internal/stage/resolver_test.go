package stage

import (
	"reflect"
	"testing"
	"time"

	"github.com/nhle/jira-metrics/internal/model"
)

var t0 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func at(days float64) time.Time {
	return t0.Add(time.Duration(days * float64(24*time.Hour)))
}

func TestResolve_NoEvents(t *testing.T) {
	got := Resolve(t0, "Open", nil, at(2))

	if len(got) != 1 {
		t.Fatalf("expected 1 stage, got %d", len(got))
	}
	rec := got[0]
	if rec.Name != "Open" {
		t.Errorf("expected stage Open, got %q", rec.Name)
	}
	if rec.Recurrence != 1 {
		t.Errorf("expected recurrence 1, got %d", rec.Recurrence)
	}
	if len(rec.Intervals) != 1 || !rec.Intervals[0].Open() {
		t.Errorf("expected one open interval, got %+v", rec.Intervals)
	}
	if rec.TotalDays != 2 {
		t.Errorf("expected 2 days measured against asOf, got %v", rec.TotalDays)
	}
	if !rec.FirstStart.Equal(t0) {
		t.Errorf("expected first start %v, got %v", t0, rec.FirstStart)
	}
}

func TestResolve_ReentryCountsAgain(t *testing.T) {
	events := []model.ChangeEvent{
		{At: at(1), FromStatus: "Open", ToStatus: "In Progress"},
		{At: at(3), FromStatus: "In Progress", ToStatus: "Open"},
		{At: at(4), FromStatus: "Open", ToStatus: "In Progress"},
		{At: at(4.5), FromStatus: "In Progress", ToStatus: "Done"},
	}

	got := Resolve(t0, "Done", events, at(10))

	wantOrder := []string{"Open", "In Progress", "Done"}
	if len(got) != len(wantOrder) {
		t.Fatalf("expected %d stages, got %d", len(wantOrder), len(got))
	}
	for i, name := range wantOrder {
		if got[i].Name != name {
			t.Errorf("stage %d: expected %q, got %q", i, name, got[i].Name)
		}
	}

	tests := []struct {
		name       string
		recurrence int
		days       float64
	}{
		{"Open", 2, 2},
		{"In Progress", 2, 2.5},
		{"Done", 1, 5.5},
	}
	for _, tt := range tests {
		rec := got[indexOf(got, tt.name)]
		if rec.Recurrence != tt.recurrence {
			t.Errorf("%s: expected recurrence %d, got %d", tt.name, tt.recurrence, rec.Recurrence)
		}
		if rec.TotalDays != tt.days {
			t.Errorf("%s: expected %v days, got %v", tt.name, tt.days, rec.TotalDays)
		}
	}

	inProgress := got[1]
	if !inProgress.FirstStart.Equal(at(1)) {
		t.Errorf("expected In Progress first start %v, got %v", at(1), inProgress.FirstStart)
	}
	if !got[2].Intervals[0].Open() {
		t.Error("expected the final stage to stay open")
	}
}

func TestResolve_SortsOutOfOrderEvents(t *testing.T) {
	sorted := []model.ChangeEvent{
		{At: at(1), FromStatus: "Open", ToStatus: "In Progress"},
		{At: at(2), FromStatus: "In Progress", ToStatus: "Review"},
		{At: at(3), FromStatus: "Review", ToStatus: "Done"},
	}
	shuffled := []model.ChangeEvent{sorted[2], sorted[0], sorted[1]}

	want := Resolve(t0, "Done", sorted, at(5))
	got := Resolve(t0, "Done", shuffled, at(5))

	if !reflect.DeepEqual(want, got) {
		t.Errorf("expected sorting to normalize input\nwant %+v\ngot  %+v", want, got)
	}
	if shuffled[0].ToStatus != "Done" {
		t.Error("Resolve must not reorder the caller's slice")
	}
}

func TestResolve_CreationMarkerIsNotCounted(t *testing.T) {
	events := []model.ChangeEvent{
		{At: t0, FromStatus: "", ToStatus: "Backlog"},
		{At: at(1), FromStatus: "Backlog", ToStatus: "Done"},
	}

	got := Resolve(t0, "Done", events, at(3))

	if len(got) != 2 {
		t.Fatalf("expected 2 stages, got %d: %+v", len(got), got)
	}
	if got[0].Name != "Backlog" || got[0].Recurrence != 1 {
		t.Errorf("expected Backlog once, got %+v", got[0])
	}
	if got[0].TotalDays != 1 {
		t.Errorf("expected Backlog to last 1 day, got %v", got[0].TotalDays)
	}
	total := 0
	for _, r := range got {
		total += r.Recurrence
	}
	if total != 2 {
		t.Errorf("expected recurrence sum 2 (one real transition), got %d", total)
	}
}

func TestResolve_CreationStatusFromFirstChange(t *testing.T) {
	events := []model.ChangeEvent{
		{At: at(1), FromStatus: "To Do", ToStatus: "Doing"},
	}

	got := Resolve(t0, "Doing", events, at(2))

	if got[0].Name != "To Do" {
		t.Errorf("expected creation status from first change, got %q", got[0].Name)
	}
	if !got[0].FirstStart.Equal(t0) {
		t.Errorf("expected creation stage to start at created, got %v", got[0].FirstStart)
	}
}

func TestResolve_NegativeGapCountsAsZero(t *testing.T) {
	events := []model.ChangeEvent{
		{At: t0.Add(-time.Hour), FromStatus: "Open", ToStatus: "Done"},
	}

	got := Resolve(t0, "Done", events, t0)

	if got[0].TotalDays != 0 {
		t.Errorf("expected a clamped zero duration, got %v", got[0].TotalDays)
	}
}

func indexOf(recs []model.StageRecord, name string) int {
	for i, r := range recs {
		if r.Name == name {
			return i
		}
	}
	return -1
}
