package extract

import "fmt"

// ConfigurationError reports a run that cannot start: a missing or
// unreachable endpoint, a filter the source rejects, or a filter that
// matches nothing. It is raised before any paginated fetch.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// TransportError reports a page fetch that failed outright during
// extraction. The whole run is abandoned; no partial result is returned.
type TransportError struct {
	Page   int
	Cursor string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetching page %d (cursor %q): %v", e.Page, e.Cursor, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
