package export

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nhle/jira-metrics/internal/model"
	"pgregory.net/rapid"
)

func genItem(t *rapid.T, i int) model.WorkItem {
	names := rapid.SliceOfDistinct(
		rapid.StringMatching(`[A-Za-z ,\n]{1,12}`),
		func(s string) string { return s },
	).Draw(t, fmt.Sprintf("stages_%d", i))

	stages := make([]model.StageRecord, 0, len(names))
	for j, n := range names {
		stages = append(stages, model.StageRecord{
			Name:       n,
			TotalDays:  rapid.Float64Range(0, 400).Draw(t, fmt.Sprintf("days_%d_%d", i, j)),
			Recurrence: rapid.IntRange(1, 5).Draw(t, fmt.Sprintf("rec_%d_%d", i, j)),
			FirstStart: time.Unix(rapid.Int64Range(0, 2_000_000_000).Draw(t, fmt.Sprintf("start_%d_%d", i, j)), 0),
		})
	}

	return model.WorkItem{
		ID:     fmt.Sprintf("ABC-%d", i),
		Name:   rapid.StringMatching(`[a-z ,\r\n]{0,20}`).Draw(t, fmt.Sprintf("name_%d", i)),
		Type:   rapid.SampledFrom([]string{"Story", "Bug", "Task"}).Draw(t, fmt.Sprintf("type_%d", i)),
		Stages: stages,
		Attributes: map[string]string{
			"Priority": rapid.StringMatching(`[A-Za-z,\n]{0,8}`).Draw(t, fmt.Sprintf("prio_%d", i)),
		},
	}
}

// Property: every row has as many fields as the header.
func TestProperty_RowWidthMatchesHeader(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "items")
		items := make([]model.WorkItem, n)
		for i := range items {
			items[i] = genItem(t, i)
		}
		labels := []string{"Priority", "Missing"}

		out := Serialize(items, labels)
		if !strings.HasSuffix(out, "\n") {
			t.Fatal("output must end with a newline")
		}
		lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
		if len(lines) != n+1 {
			t.Fatalf("expected %d lines, got %d", n+1, len(lines))
		}

		width := len(strings.Split(lines[0], Separator))
		wantWidth := 4 + 3*len(StageNames(items)) + len(labels)
		if width != wantWidth {
			t.Fatalf("header has %d fields, expected %d", width, wantWidth)
		}
		for i, line := range lines[1:] {
			if got := len(strings.Split(line, Separator)); got != width {
				t.Fatalf("row %d has %d fields, header has %d", i, got, width)
			}
		}
	})
}
