package jira

import (
	"net/url"
	"strconv"
	"strings"
)

// searchPath is the enhanced JQL search endpoint, which paginates with
// nextPageToken instead of startAt.
const searchPath = "/rest/api/3/search/jql"

// SearchOptions holds everything needed to address one search page.
type SearchOptions struct {
	Root      string
	JQL       string
	Cursor    string
	BatchSize int
}

// BuildSearchURL returns the search URL for one page, expanding the
// changelog and requesting all fields.
func BuildSearchURL(opts SearchOptions) string {
	root := strings.TrimRight(opts.Root, "/")

	var b strings.Builder
	b.WriteString(root)
	b.WriteString(searchPath)
	b.WriteString("?jql=")
	b.WriteString(escape(opts.JQL))
	b.WriteString("&nextPageToken=")
	b.WriteString(escape(opts.Cursor))
	b.WriteString("&maxResults=")
	b.WriteString(strconv.Itoa(opts.BatchSize))
	b.WriteString("&expand=changelog&fields=*all")
	return b.String()
}

// escape percent-encodes s for use as a query value, with spaces as %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
