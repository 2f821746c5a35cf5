// Package export renders extracted work items as CSV.
package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/nhle/jira-metrics/internal/model"
)

// Separator joins the fields of a row.
const Separator = ","

// identityColumns lead every row.
var identityColumns = []string{"ID", "Link", "Name", "Type"}

// sanitizer keeps field text from breaking the row structure.
var sanitizer = strings.NewReplacer(
	Separator, "-",
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

// Sanitize replaces the separator with "-" and line breaks with spaces.
func Sanitize(s string) string {
	return sanitizer.Replace(s)
}

// StageNames returns every stage visited by any item, deduplicated, in
// order of first observation across items.
func StageNames(items []model.WorkItem) []string {
	seen := make(map[string]bool)
	var names []string
	for _, it := range items {
		for _, s := range it.Stages {
			if seen[s.Name] {
				continue
			}
			seen[s.Name] = true
			names = append(names, s.Name)
		}
	}
	return names
}

// Header returns the column names for the given stages and attribute
// labels: identity columns, then the days, start and recurrence column of
// every stage (grouped by kind), then one column per attribute.
func Header(stages, labels []string) []string {
	cols := make([]string, 0, len(identityColumns)+3*len(stages)+len(labels))
	cols = append(cols, identityColumns...)
	for _, s := range stages {
		cols = append(cols, "Stage "+s+" days")
	}
	for _, s := range stages {
		cols = append(cols, "Stage "+s+" start")
	}
	for _, s := range stages {
		cols = append(cols, "Stage "+s+" recurrence")
	}
	cols = append(cols, labels...)
	return cols
}

// Row renders one item against a fixed stage list. Stages the item never
// visited render as zero days, blank start and zero recurrence.
func Row(item model.WorkItem, stages, labels []string) []string {
	row := make([]string, 0, len(identityColumns)+3*len(stages)+len(labels))
	row = append(row, item.ID, item.Link, item.Name, item.Type)

	recs := make([]*model.StageRecord, len(stages))
	for i, name := range stages {
		if rec, ok := item.Stage(name); ok {
			recs[i] = &rec
		}
	}

	for _, rec := range recs {
		if rec == nil {
			row = append(row, "0")
			continue
		}
		row = append(row, FormatDays(rec.TotalDays))
	}
	for _, rec := range recs {
		if rec == nil {
			row = append(row, "")
			continue
		}
		row = append(row, FormatTime(rec.FirstStart))
	}
	for _, rec := range recs {
		if rec == nil {
			row = append(row, "0")
			continue
		}
		row = append(row, strconv.Itoa(rec.Recurrence))
	}

	for _, l := range labels {
		row = append(row, item.Attributes[l])
	}
	return row
}

// Serialize renders the header and one row per item. The stage columns
// are discovered from all items first, so every row has exactly as many
// fields as the header.
func Serialize(items []model.WorkItem, labels []string) string {
	stages := StageNames(items)

	var b strings.Builder
	writeLine(&b, Header(stages, labels))
	for _, it := range items {
		writeLine(&b, Row(it, stages, labels))
	}
	return b.String()
}

func writeLine(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteString(Separator)
		}
		b.WriteString(Sanitize(f))
	}
	b.WriteByte('\n')
}

// FormatDays renders a day count with two decimals.
func FormatDays(days float64) string {
	return strconv.FormatFloat(days, 'f', 2, 64)
}

// FormatTime renders a stage start in UTC, RFC 3339.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
