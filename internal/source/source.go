package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/jira-metrics/internal/model"
)

// AuthError indicates that the source rejected the supplied credentials.
type AuthError struct {
	SourceType SourceType
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.SourceType, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// RejectedError reports a request the tracker refused as invalid, such as
// a JQL syntax error or an expired page token. Messages are the tracker's
// own explanations.
type RejectedError struct {
	SourceType SourceType
	StatusCode int
	Messages   []string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("request rejected by %s (%d): %s", e.SourceType, e.StatusCode, strings.Join(e.Messages, "; "))
}

// SourceType identifies the kind of issue tracker.
type SourceType string

const (
	SourceTypeJira SourceType = "jira"
)

// Credentials is the opaque bundle handed to the fetcher. Token takes
// precedence over Username/Password.
type Credentials struct {
	Username string
	Password string
	Token    string
}

// Empty reports whether no secret is present.
func (c Credentials) Empty() bool {
	return c.Token == "" && c.Password == ""
}

// Query describes one page request.
type Query struct {
	// Filter is the tracker's filter expression (JQL for Jira).
	Filter string

	// Cursor is the opaque continuation token. Empty for the first page.
	Cursor string

	// PageSize is the maximum number of issues to return.
	PageSize int
}

// Issue is one issue decoded from a search page.
type Issue struct {
	Key     string
	Link    string
	Summary string
	Type    string

	// Status is the issue's current status.
	Status string

	// Created is when the issue was created.
	Created time.Time

	// Changes holds the status transitions found in the change history,
	// as returned by the source.
	Changes []model.ChangeEvent

	// Fields holds every raw field of the issue for attribute projection.
	Fields map[string]any
}

// Page is the decoded result of one search request.
type Page struct {
	// Issues is nil when the response carried no issue collection at all,
	// and empty when the source legitimately returned zero issues.
	Issues []Issue

	// NextCursor continues the search. Empty when the source is exhausted.
	NextCursor string

	// IsLast is the source's own end-of-results flag.
	IsLast bool

	// ErrorMessages holds API level errors reported in the body.
	ErrorMessages []string
}

// Malformed reports whether the page is missing its issue collection.
func (p *Page) Malformed() bool {
	return p.Issues == nil
}

// Source defines the fetch collaborator contract of the extractor.
type Source interface {
	// Type returns the source type identifier.
	Type() SourceType

	// SearchURL builds the request URL for a page query.
	SearchURL(q Query) string

	// FetchPage retrieves and decodes one page. Transport and
	// authentication failures are returned as errors.
	FetchPage(ctx context.Context, url string, creds Credentials) (*Page, error)
}
