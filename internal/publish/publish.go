// Package publish delivers the finished CSV to optional destinations
// after it has been written locally.
package publish

import "context"

// Publisher uploads a report and returns a location describing where it went.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, name string, data []byte) (string, error)
}
