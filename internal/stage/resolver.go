// Package stage rebuilds an issue's workflow history from its status
// changes.
package stage

import (
	"sort"
	"time"

	"github.com/nhle/jira-metrics/internal/model"
)

// day is the unit TotalDays is expressed in.
const day = 24 * time.Hour

// Resolve walks an issue's status changes and returns one StageRecord per
// visited stage, ordered by first entry.
//
// The issue's creation is the implicit first event: the item is in its
// creation status from created until the first change. The creation status
// is taken from the first change's FromStatus, or currentStatus when there
// are no changes. A leading event with an empty FromStatus that is not
// later than created is read as an explicit creation marker: it names the
// creation status and is not counted as a transition.
//
// Every change closes the current interval and opens a new one, so N
// transitions produce N+1 intervals. The last interval stays open and is
// measured against asOf.
func Resolve(
	created time.Time,
	currentStatus string,
	events []model.ChangeEvent,
	asOf time.Time,
) []model.StageRecord {
	ordered := make([]model.ChangeEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].At.Before(ordered[j].At)
	})

	status := currentStatus
	entered := created

	if len(ordered) > 0 {
		first := ordered[0]
		switch {
		case first.FromStatus == "" && (created.IsZero() || !first.At.After(created)):
			status = first.ToStatus
			if created.IsZero() {
				entered = first.At
			}
			ordered = ordered[1:]
		case first.FromStatus != "":
			status = first.FromStatus
		}
	}
	if entered.IsZero() && len(ordered) > 0 {
		entered = ordered[0].At
	}

	b := newBuilder()
	for _, ev := range ordered {
		end := ev.At
		b.add(status, model.StageInterval{Start: entered, End: &end})
		status = ev.ToStatus
		entered = ev.At
	}
	b.add(status, model.StageInterval{Start: entered})

	return b.records(asOf)
}

// builder accumulates intervals per stage while remembering the order in
// which stages were first entered.
type builder struct {
	order     []string
	intervals map[string][]model.StageInterval
}

func newBuilder() *builder {
	return &builder{intervals: make(map[string][]model.StageInterval)}
}

func (b *builder) add(name string, iv model.StageInterval) {
	if _, ok := b.intervals[name]; !ok {
		b.order = append(b.order, name)
	}
	b.intervals[name] = append(b.intervals[name], iv)
}

func (b *builder) records(asOf time.Time) []model.StageRecord {
	out := make([]model.StageRecord, 0, len(b.order))
	for _, name := range b.order {
		ivs := b.intervals[name]
		var total time.Duration
		for _, iv := range ivs {
			total += iv.Duration(asOf)
		}
		out = append(out, model.StageRecord{
			Name:       name,
			Intervals:  ivs,
			TotalDays:  Days(total),
			Recurrence: len(ivs),
			FirstStart: ivs[0].Start,
		})
	}
	return out
}

// Days converts a duration to fractional days.
func Days(d time.Duration) float64 {
	return float64(d) / float64(day)
}
