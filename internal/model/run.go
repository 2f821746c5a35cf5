package model

import "time"

// Run status values.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Run records the outcome of one extraction. It is written for auditing
// and is never read back by an extraction.
type Run struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Endpoint string `json:"endpoint"`
	JQL      string `json:"jql"`
	Status   string `json:"status"`

	Pages          int `json:"pages"`
	MalformedPages int `json:"malformed_pages"`
	Items          int `json:"items"`
	Stages         int `json:"stages"`

	OutputPath string `json:"output_path"`
	UploadedTo string `json:"uploaded_to"`
	Error      string `json:"error"`
}
