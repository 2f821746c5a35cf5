package jira

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/jira-metrics/internal/source"
)

const searchPage = `{
	"isLast": false,
	"nextPageToken": "tok-2",
	"issues": [
		{
			"id": "10001",
			"key": "ABC-1",
			"fields": {
				"summary": "Login page",
				"status": {"name": "Done"},
				"issuetype": {"name": "Story"},
				"created": "2025-03-03T09:00:00.000+0000",
				"customfield_10016": 3
			},
			"changelog": {
				"startAt": 0, "maxResults": 100, "total": 1,
				"histories": [
					{
						"id": "1",
						"created": "2025-03-04T09:00:00.000+0000",
						"items": [
							{"field": "assignee", "fromString": null, "toString": "Ana"},
							{"field": "status", "fromString": "Open", "toString": "Done"}
						]
					}
				]
			}
		},
		{
			"id": "10002",
			"key": "ABC-2",
			"fields": {
				"summary": "Checkout",
				"status": {"name": "Review"},
				"issuetype": {"name": "Bug"},
				"created": "2025-03-01T09:00:00.000+0000"
			},
			"changelog": {
				"startAt": 0, "maxResults": 1, "total": 2,
				"histories": [
					{"id": "7", "created": "2025-03-02T09:00:00.000+0000",
					 "items": [{"field": "status", "fromString": "Open", "toString": "In Progress"}]}
				]
			}
		}
	]
}`

const changelogPage = `{
	"startAt": 0, "maxResults": 100, "total": 2, "isLast": true,
	"values": [
		{"id": "7", "created": "2025-03-02T09:00:00.000+0000",
		 "items": [{"field": "status", "fromString": "Open", "toString": "In Progress"}]},
		{"id": "8", "created": "2025-03-05T09:00:00.000+0000",
		 "items": [{"field": "status", "fromString": "In Progress", "toString": "Review"}]}
	]
}`

func newTestAdapter(t *testing.T, handler http.HandlerFunc) (*Adapter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(5*time.Second, zerolog.Nop())
	return NewAdapter(srv.URL+"/", client, zerolog.Nop()), srv
}

func TestFetchPage_DecodesIssuesAndTruncatedChangelog(t *testing.T) {
	var changelogCalls int
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/rest/api/3/search/jql":
			if r.URL.Query().Get("expand") != "changelog" {
				t.Errorf("expected changelog expansion, got %q", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(searchPage))
		case "/rest/api/3/issue/ABC-2/changelog":
			changelogCalls++
			_, _ = w.Write([]byte(changelogPage))
		default:
			http.NotFound(w, r)
		}
	})

	u := a.SearchURL(source.Query{Filter: "project = ABC", PageSize: 2})
	page, err := a.FetchPage(context.Background(), u, source.Credentials{Username: "alice", Password: "secret"})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	if page.Malformed() {
		t.Fatal("expected an issue collection")
	}
	if page.NextCursor != "tok-2" || page.IsLast {
		t.Errorf("unexpected paging state: cursor=%q last=%v", page.NextCursor, page.IsLast)
	}
	if len(page.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(page.Issues))
	}

	first := page.Issues[0]
	if first.Key != "ABC-1" || first.Summary != "Login page" || first.Type != "Story" || first.Status != "Done" {
		t.Errorf("unexpected first issue: %+v", first)
	}
	if first.Link != a.baseURL+"/browse/ABC-1" {
		t.Errorf("unexpected link %q", first.Link)
	}
	if len(first.Changes) != 1 || first.Changes[0].ToStatus != "Done" {
		t.Errorf("expected only the status change, got %+v", first.Changes)
	}
	wantCreated := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	if !first.Created.Equal(wantCreated) {
		t.Errorf("expected created %v, got %v", wantCreated, first.Created)
	}
	if first.Fields["customfield_10016"] != float64(3) {
		t.Errorf("expected raw fields to be kept, got %v", first.Fields["customfield_10016"])
	}

	second := page.Issues[1]
	if changelogCalls != 1 {
		t.Errorf("expected one changelog request, got %d", changelogCalls)
	}
	if len(second.Changes) != 2 || second.Changes[1].ToStatus != "Review" {
		t.Errorf("expected the full changelog, got %+v", second.Changes)
	}
}

func TestFetchPage_MissingIssuesIsMalformed(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"nextPageToken": "tok-9"}`))
	})

	page, err := a.FetchPage(context.Background(), a.SearchURL(source.Query{Filter: "x", PageSize: 1}), source.Credentials{Token: "pat"})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if !page.Malformed() {
		t.Error("expected a page without issues to be malformed")
	}
	if page.NextCursor != "tok-9" {
		t.Errorf("expected cursor to survive, got %q", page.NextCursor)
	}
}

func TestFetchPage_EmptyIssuesIsNotMalformed(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"issues": [], "isLast": true}`))
	})

	page, err := a.FetchPage(context.Background(), a.SearchURL(source.Query{Filter: "x", PageSize: 1}), source.Credentials{Token: "pat"})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if page.Malformed() || len(page.Issues) != 0 || !page.IsLast {
		t.Errorf("expected a legitimate empty last page, got %+v", page)
	}
}

func TestFetchPage_RejectedJQL(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer pat" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorMessages": ["Field 'projekt' does not exist."]}`))
	})

	page, err := a.FetchPage(context.Background(), a.SearchURL(source.Query{Filter: "projekt = X", PageSize: 1}), source.Credentials{Token: "pat"})
	if page != nil {
		t.Errorf("expected no page for a rejected request, got %+v", page)
	}
	var rejected *source.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rejected.StatusCode != http.StatusBadRequest ||
		len(rejected.Messages) != 1 || rejected.Messages[0] != "Field 'projekt' does not exist." {
		t.Errorf("unexpected rejection %+v", rejected)
	}
}

func TestFetchPage_AuthFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "status 401",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "html login page",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html><head><title>Unauthorized (401)</title></head></html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestAdapter(t, tt.handler)
			_, err := a.FetchPage(context.Background(), a.SearchURL(source.Query{Filter: "x", PageSize: 1}), source.Credentials{})
			if !source.IsAuthError(err) {
				t.Errorf("expected an auth error, got %v", err)
			}
		})
	}
}

func TestFetchPage_ServerError(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})

	_, err := a.FetchPage(context.Background(), a.SearchURL(source.Query{Filter: "x", PageSize: 1}), source.Credentials{})
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}

func TestParseJiraTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-03T09:00:00.000+0000", time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)},
		{"2025-03-03T11:00:00.000+0200", time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)},
		{"2025-03-03T09:00:00Z", time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)},
		{"", time.Time{}},
		{"not a time", time.Time{}},
	}
	for _, tt := range tests {
		if got := parseJiraTime(tt.in); !got.Equal(tt.want) {
			t.Errorf("parseJiraTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
