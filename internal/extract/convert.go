package extract

import (
	"time"

	"github.com/nhle/jira-metrics/internal/attribute"
	"github.com/nhle/jira-metrics/internal/model"
	"github.com/nhle/jira-metrics/internal/source"
	"github.com/nhle/jira-metrics/internal/stage"
)

// Convert builds the WorkItem for one issue. Open stage intervals are
// measured against asOf.
func Convert(issue source.Issue, attrs []model.Attribute, asOf time.Time) model.WorkItem {
	return model.WorkItem{
		ID:         issue.Key,
		Link:       issue.Link,
		Name:       issue.Summary,
		Type:       issue.Type,
		Stages:     stage.Resolve(issue.Created, issue.Status, issue.Changes, asOf),
		Attributes: attribute.Project(issue.Fields, attrs),
	}
}
