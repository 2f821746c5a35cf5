package model

import "time"

// StageInterval is one continuous occupancy of a workflow stage.
// End is nil while the stage is still occupied.
type StageInterval struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

// Open reports whether the interval has not been closed yet.
func (i StageInterval) Open() bool {
	return i.End == nil
}

// Duration returns the interval length. Open intervals are measured
// against asOf. Negative lengths (out of order clocks) count as zero.
func (i StageInterval) Duration(asOf time.Time) time.Duration {
	end := asOf
	if i.End != nil {
		end = *i.End
	}
	d := end.Sub(i.Start)
	if d < 0 {
		return 0
	}
	return d
}

// StageRecord aggregates every visit an item made to one stage.
type StageRecord struct {
	// Name is the stage (status) name.
	Name string `json:"name"`

	// Intervals holds the visits in the order they happened.
	Intervals []StageInterval `json:"intervals"`

	// TotalDays is the summed duration of all intervals, in days.
	TotalDays float64 `json:"total_days"`

	// Recurrence is how many times the stage was entered.
	Recurrence int `json:"recurrence"`

	// FirstStart is the start of the first interval.
	FirstStart time.Time `json:"first_start"`
}
