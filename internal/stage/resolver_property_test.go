package stage

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/nhle/jira-metrics/internal/model"
	"pgregory.net/rapid"
)

var statuses = []string{"Open", "In Progress", "In Review", "Blocked", "Done"}

// genHistory generates a chronologically ordered chain of transitions
// where each event leaves the status the previous one entered.
func genHistory(t *rapid.T) (time.Time, string, []model.ChangeEvent) {
	created := time.Unix(rapid.Int64Range(1_500_000_000, 1_800_000_000).Draw(t, "created"), 0).UTC()
	n := rapid.IntRange(0, 30).Draw(t, "n")

	current := rapid.SampledFrom(statuses).Draw(t, "initial")
	when := created
	events := make([]model.ChangeEvent, 0, n)
	for i := 0; i < n; i++ {
		when = when.Add(time.Duration(rapid.Int64Range(0, 72*3600).Draw(t, fmt.Sprintf("gap_%d", i))) * time.Second)
		next := rapid.SampledFrom(statuses).Draw(t, fmt.Sprintf("to_%d", i))
		events = append(events, model.ChangeEvent{At: when, FromStatus: current, ToStatus: next})
		current = next
	}
	return created, current, events
}

// Property: N transitions yield N+1 intervals and a recurrence sum of N+1.
func TestProperty_IntervalCount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		created, current, events := genHistory(t)
		asOf := created.Add(365 * 24 * time.Hour * 10)

		recs := Resolve(created, current, events, asOf)

		intervals, recurrences, open := 0, 0, 0
		for _, r := range recs {
			intervals += len(r.Intervals)
			recurrences += r.Recurrence
			if r.Recurrence != len(r.Intervals) {
				t.Fatalf("stage %q: recurrence %d != %d intervals", r.Name, r.Recurrence, len(r.Intervals))
			}
			for _, iv := range r.Intervals {
				if iv.Open() {
					open++
				}
			}
		}
		if intervals != len(events)+1 {
			t.Fatalf("expected %d intervals, got %d", len(events)+1, intervals)
		}
		if recurrences != len(events)+1 {
			t.Fatalf("expected recurrence sum %d, got %d", len(events)+1, recurrences)
		}
		if open != 1 {
			t.Fatalf("expected exactly one open interval, got %d", open)
		}
	})
}

// Property: identical histories resolve to identical records.
func TestProperty_Deterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		created, current, events := genHistory(t)
		asOf := created.Add(24 * time.Hour * 1000)

		first := Resolve(created, current, events, asOf)
		second := Resolve(created, current, events, asOf)

		if !reflect.DeepEqual(first, second) {
			t.Fatalf("resolve is not deterministic:\n%+v\n%+v", first, second)
		}
	})
}

// Property: the open interval belongs to the status the item is in now,
// and TotalDays matches the summed interval durations.
func TestProperty_FinalStageAndTotals(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		created, current, events := genHistory(t)
		asOf := created.Add(24 * time.Hour * 1000)

		recs := Resolve(created, current, events, asOf)

		for _, r := range recs {
			var sum time.Duration
			for _, iv := range r.Intervals {
				sum += iv.Duration(asOf)
				if iv.Open() && r.Name != current {
					t.Fatalf("open interval on %q, expected %q", r.Name, current)
				}
			}
			if Days(sum) != r.TotalDays {
				t.Fatalf("stage %q: total %v != summed %v", r.Name, r.TotalDays, Days(sum))
			}
			if !r.FirstStart.Equal(r.Intervals[0].Start) {
				t.Fatalf("stage %q: first start mismatch", r.Name)
			}
		}
	})
}
