package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/jira-metrics/internal/model"
	"github.com/nhle/jira-metrics/internal/source"
)

// changelogPageSize is the page size used when an issue's embedded
// changelog is truncated and the rest must be fetched separately.
const changelogPageSize = 100

// statusField is the changelog field name for workflow transitions.
const statusField = "status"

// Adapter implements source.Source for Jira Cloud and Server/DC.
type Adapter struct {
	client  *Client
	baseURL string
	log     zerolog.Logger
}

// NewAdapter creates a Jira source adapter rooted at baseURL.
func NewAdapter(baseURL string, client *Client, log zerolog.Logger) *Adapter {
	return &Adapter{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// Type returns the source type identifier for Jira.
func (a *Adapter) Type() source.SourceType {
	return source.SourceTypeJira
}

// SearchURL builds the JQL search URL for q.
func (a *Adapter) SearchURL(q source.Query) string {
	return BuildSearchURL(SearchOptions{
		Root:      a.baseURL,
		JQL:       q.Filter,
		Cursor:    q.Cursor,
		BatchSize: q.PageSize,
	})
}

// FetchPage retrieves one search page and decodes its issues. A 400
// response carrying Jira error messages (rejected JQL, an expired page
// token) is returned as a *source.RejectedError.
func (a *Adapter) FetchPage(
	ctx context.Context,
	pageURL string,
	creds source.Credentials,
) (*source.Page, error) {
	var resp SearchResponse
	if err := a.client.Get(ctx, pageURL, creds, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			return nil, &source.RejectedError{
				SourceType: source.SourceTypeJira,
				StatusCode: apiErr.StatusCode,
				Messages:   apiErrorMessages(apiErr),
			}
		}
		return nil, fmt.Errorf("fetching Jira search page: %w", err)
	}

	page := &source.Page{
		NextCursor:    resp.NextPageToken,
		IsLast:        resp.IsLast,
		ErrorMessages: resp.ErrorMessages,
	}
	if resp.Issues == nil {
		return page, nil
	}

	page.Issues = make([]source.Issue, 0, len(resp.Issues))
	for _, raw := range resp.Issues {
		issue, err := a.toIssue(ctx, raw, creds)
		if err != nil {
			return nil, err
		}
		page.Issues = append(page.Issues, issue)
	}
	return page, nil
}

// toIssue decodes the fields of a raw issue and collects its status
// transitions, fetching the remainder of a truncated changelog.
func (a *Adapter) toIssue(
	ctx context.Context,
	raw Issue,
	creds source.Credentials,
) (source.Issue, error) {
	var fields IssueFields
	var all map[string]any
	if len(raw.Fields) > 0 {
		if err := json.Unmarshal(raw.Fields, &fields); err != nil {
			return source.Issue{}, fmt.Errorf("decoding fields of %s: %w", raw.Key, err)
		}
		if err := json.Unmarshal(raw.Fields, &all); err != nil {
			return source.Issue{}, fmt.Errorf("decoding fields of %s: %w", raw.Key, err)
		}
	}

	var histories []History
	if raw.Changelog != nil {
		histories = raw.Changelog.Histories
		if raw.Changelog.Total > len(histories) {
			rest, err := a.fetchChangelog(ctx, raw.Key, creds)
			if err != nil {
				return source.Issue{}, err
			}
			histories = rest
		}
	}

	return source.Issue{
		Key:     raw.Key,
		Link:    a.baseURL + "/browse/" + raw.Key,
		Summary: fields.Summary,
		Type:    fields.IssueType.Name,
		Status:  fields.Status.Name,
		Created: parseJiraTime(fields.Created),
		Changes: statusChanges(histories),
		Fields:  all,
	}, nil
}

// fetchChangelog pages through the full change history of one issue.
func (a *Adapter) fetchChangelog(
	ctx context.Context,
	key string,
	creds source.Credentials,
) ([]History, error) {
	var all []History
	startAt := 0
	for {
		q := url.Values{}
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(changelogPageSize))
		u := a.baseURL + "/rest/api/3/issue/" + url.PathEscape(key) + "/changelog?" + q.Encode()

		var page ChangelogPage
		if err := a.client.Get(ctx, u, creds, &page); err != nil {
			return nil, fmt.Errorf("fetching changelog of %s: %w", key, err)
		}
		all = append(all, page.Values...)

		a.log.Debug().
			Str("issue", key).
			Int("start_at", startAt).
			Int("histories", len(page.Values)).
			Msg("fetched changelog page")

		startAt += len(page.Values)
		if page.IsLast || len(page.Values) == 0 || startAt >= page.Total {
			return all, nil
		}
	}
}

// statusChanges extracts the status transitions from change histories.
func statusChanges(histories []History) []model.ChangeEvent {
	var events []model.ChangeEvent
	for _, h := range histories {
		at := parseJiraTime(h.Created)
		for _, item := range h.Items {
			if item.Field != statusField {
				continue
			}
			events = append(events, model.ChangeEvent{
				At:         at,
				FromStatus: item.FromString,
				ToStatus:   item.ToString,
			})
		}
	}
	return events
}

func apiErrorMessages(e *APIError) []string {
	if len(e.Messages) > 0 {
		return e.Messages
	}
	return []string{e.Error()}
}

// parseJiraTime parses a Jira timestamp string. Jira uses the format
// "2006-01-02T15:04:05.000-0700".
func parseJiraTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}

	layouts := []string{
		"2006-01-02T15:04:05.000-0700",
		"2006-01-02T15:04:05-0700",
		time.RFC3339Nano,
		time.RFC3339,
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}
