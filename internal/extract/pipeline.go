// Package extract drives the paginated search and turns every returned
// issue into a WorkItem.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/jira-metrics/internal/model"
	"github.com/nhle/jira-metrics/internal/source"
)

// probeSize is the page size of the validation request.
const probeSize = 1

// Options configures one extraction run.
type Options struct {
	// Endpoint is the root URL of the tracker, checked by Validate.
	Endpoint string

	// Filter is the search expression (JQL).
	Filter string

	// PageSize is the number of issues requested per page.
	PageSize int

	Credentials source.Credentials

	// Attributes lists the fields projected onto every item.
	Attributes []model.Attribute

	// Now returns the reference time for open intervals. Defaults to
	// time.Now; it is read once per run.
	Now func() time.Time
}

// PageEvent describes one fetched page.
type PageEvent struct {
	// Index is the 1-based page number.
	Index  int
	Cursor string

	// Items is the number of issues the page returned. Added counts the
	// ones that became new work items, so duplicates are excluded.
	Items int
	Added int
	Total int

	Malformed bool
	Elapsed   time.Duration
}

// Observer is notified after every page. Observers run on the
// extraction goroutine and must not block.
type Observer interface {
	PageFetched(ev PageEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev PageEvent)

// PageFetched calls f(ev).
func (f ObserverFunc) PageFetched(ev PageEvent) { f(ev) }

// Stats summarizes a finished run.
type Stats struct {
	Pages          int
	MalformedPages int
	Items          int
	Duplicates     int
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Pipeline fetches pages sequentially and accumulates WorkItems. Page N+1
// can only be requested once page N has returned its cursor, so there is
// no fan-out. A Pipeline is single-use.
type Pipeline struct {
	src       source.Source
	opts      Options
	log       zerolog.Logger
	observers []Observer

	items []model.WorkItem
	seen  map[string]bool
	stats Stats
}

// New creates a pipeline over src.
func New(src source.Source, opts Options, log zerolog.Logger, observers ...Observer) *Pipeline {
	if opts.PageSize <= 0 {
		opts.PageSize = model.DefaultBatchSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		src:       src,
		opts:      opts,
		log:       log,
		observers: observers,
		seen:      make(map[string]bool),
	}
}

// Stats returns counters for the last run.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// Validate issues a single small probe request and fails with a
// ConfigurationError when the endpoint is unusable, the source rejects the
// filter, or the filter matches no issues.
func (p *Pipeline) Validate(ctx context.Context) error {
	if err := checkEndpoint(p.opts.Endpoint); err != nil {
		return err
	}
	if strings.TrimSpace(p.opts.Filter) == "" {
		return &ConfigurationError{Reason: "no JQL filter configured"}
	}

	probeURL := p.src.SearchURL(source.Query{Filter: p.opts.Filter, PageSize: probeSize})
	page, err := p.src.FetchPage(ctx, probeURL, p.opts.Credentials)
	var rejected *source.RejectedError
	if errors.As(err, &rejected) {
		return &ConfigurationError{Reason: strings.Join(rejected.Messages, "\n")}
	}
	if err != nil {
		return &ConfigurationError{
			Reason: fmt.Sprintf("calling %s API at %s", p.src.Type(), p.opts.Endpoint),
			Err:    err,
		}
	}

	if len(page.ErrorMessages) > 0 {
		return &ConfigurationError{Reason: strings.Join(page.ErrorMessages, "\n")}
	}
	if page.Malformed() {
		return &ConfigurationError{
			Reason: fmt.Sprintf("no issue collection returned from %s using JQL: %s", probeURL, p.opts.Filter),
		}
	}
	if len(page.Issues) == 0 && page.IsLast {
		return &ConfigurationError{
			Reason: fmt.Sprintf("no issues found with the generated JQL:\n%s\nplease modify your configuration", p.opts.Filter),
		}
	}

	return nil
}

// ExtractAll validates the configuration, then follows cursors until the
// source returns an empty one. Items keep first-seen order: page order,
// then issue order within a page.
//
// A page without an issue collection is logged and skipped; its cursor is
// still followed when present. A failed fetch aborts the run with a
// TransportError and no items. Termination relies on the source
// eventually returning an empty cursor.
func (p *Pipeline) ExtractAll(ctx context.Context) ([]model.WorkItem, error) {
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}

	asOf := p.opts.Now()
	p.stats = Stats{StartedAt: asOf}
	p.items = p.items[:0]
	p.seen = make(map[string]bool)

	p.log.Debug().Str("jql", p.opts.Filter).Int("page_size", p.opts.PageSize).Msg("starting extraction")

	cursor := ""
	for {
		index := p.stats.Pages + 1
		pageURL := p.src.SearchURL(source.Query{
			Filter:   p.opts.Filter,
			Cursor:   cursor,
			PageSize: p.opts.PageSize,
		})

		start := time.Now()
		page, err := p.src.FetchPage(ctx, pageURL, p.opts.Credentials)
		if err != nil {
			return nil, &TransportError{Page: index, Cursor: cursor, Err: err}
		}
		p.stats.Pages++

		added := 0
		if page.Malformed() {
			p.stats.MalformedPages++
			p.log.Warn().
				Int("page", index).
				Str("cursor", cursor).
				Str("next_cursor", page.NextCursor).
				Strs("errors", page.ErrorMessages).
				Msg("page returned no issue collection, skipping")
		} else {
			if index == 1 && len(page.Issues) > 0 {
				p.logSample(page.Issues[0])
			}
			added = p.accumulate(page.Issues, asOf)
			p.log.Debug().
				Int("page", index).
				Str("cursor", cursor).
				Int("items", added).
				Msg("extracted page")
		}

		p.notify(PageEvent{
			Index:     index,
			Cursor:    cursor,
			Items:     len(page.Issues),
			Added:     added,
			Total:     len(p.items),
			Malformed: page.Malformed(),
			Elapsed:   time.Since(start),
		})

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	p.stats.Items = len(p.items)
	p.stats.FinishedAt = p.opts.Now()

	out := make([]model.WorkItem, len(p.items))
	copy(out, p.items)
	return out, nil
}

// accumulate converts issues and appends them. An issue key already seen
// in this run is dropped so item IDs stay unique.
func (p *Pipeline) accumulate(issues []source.Issue, asOf time.Time) int {
	added := 0
	for _, issue := range issues {
		if p.seen[issue.Key] {
			p.stats.Duplicates++
			p.log.Warn().Str("issue", issue.Key).Msg("issue returned twice, keeping the first copy")
			continue
		}
		p.seen[issue.Key] = true
		p.items = append(p.items, Convert(issue, p.opts.Attributes, asOf))
		added++
	}
	return added
}

func (p *Pipeline) notify(ev PageEvent) {
	for _, o := range p.observers {
		o.PageFetched(ev)
	}
}

func (p *Pipeline) logSample(issue source.Issue) {
	if p.log.GetLevel() > zerolog.DebugLevel {
		return
	}
	sample, err := json.Marshal(issue.Fields)
	if err != nil {
		return
	}
	p.log.Debug().Str("issue", issue.Key).RawJSON("fields", sample).Msg("first sample")
}

// checkEndpoint requires an absolute http(s) URL.
func checkEndpoint(endpoint string) error {
	if strings.TrimSpace(endpoint) == "" {
		return &ConfigurationError{Reason: "URL for extraction not set"}
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return &ConfigurationError{Reason: "invalid URL " + endpoint, Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigurationError{Reason: fmt.Sprintf("invalid URL %q: expected http(s)://host", endpoint)}
	}
	return nil
}
