package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/jira-metrics/internal/model"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// runRow mirrors the runs table.
type runRow struct {
	ID             string       `db:"id"`
	StartedAt      time.Time    `db:"started_at"`
	FinishedAt     sql.NullTime `db:"finished_at"`
	Endpoint       string       `db:"endpoint"`
	JQL            string       `db:"jql"`
	Status         string       `db:"status"`
	Pages          int          `db:"pages"`
	MalformedPages int          `db:"malformed_pages"`
	Items          int          `db:"items"`
	Stages         int          `db:"stages"`
	OutputPath     string       `db:"output_path"`
	UploadedTo     string       `db:"uploaded_to"`
	Error          string       `db:"error"`
}

func (r runRow) toModel() model.Run {
	run := model.Run{
		ID:             r.ID,
		StartedAt:      r.StartedAt,
		Endpoint:       r.Endpoint,
		JQL:            r.JQL,
		Status:         r.Status,
		Pages:          r.Pages,
		MalformedPages: r.MalformedPages,
		Items:          r.Items,
		Stages:         r.Stages,
		OutputPath:     r.OutputPath,
		UploadedTo:     r.UploadedTo,
		Error:          r.Error,
	}
	if r.FinishedAt.Valid {
		t := r.FinishedAt.Time
		run.FinishedAt = &t
	}
	return run
}

// CreateRun inserts a run in the running state and returns its ID.
// If the run has no ID, a new UUID is generated.
func (s *SQLiteStore) CreateRun(ctx context.Context, run model.Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, endpoint, jql, status, output_path)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.Endpoint, run.JQL,
		model.RunStatusRunning, run.OutputPath,
	)
	if err != nil {
		return "", fmt.Errorf("creating run: %w", err)
	}
	return run.ID, nil
}

// FinishRun records the final status and counters of a run.
func (s *SQLiteStore) FinishRun(ctx context.Context, run model.Run) error {
	finished := time.Now()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			finished_at = ?, status = ?,
			pages = ?, malformed_pages = ?, items = ?, stages = ?,
			output_path = ?, uploaded_to = ?, error = ?
		WHERE id = ?`,
		finished.UTC(), run.Status,
		run.Pages, run.MalformedPages, run.Items, run.Stages,
		run.OutputPath, run.UploadedTo, run.Error,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", run.ID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("finishing run %s: %w", run.ID, ErrRunNotFound)
	}
	return nil
}

// GetRuns lists runs, newest first.
func (s *SQLiteStore) GetRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}

	query := "SELECT * FROM runs"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY started_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}

	runs := make([]model.Run, 0, len(rows))
	for _, r := range rows {
		runs = append(runs, r.toModel())
	}
	return runs, nil
}

// GetRunByID retrieves a single run.
func (s *SQLiteStore) GetRunByID(ctx context.Context, id string) (*model.Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", id, err)
	}

	run := row.toModel()
	return &run, nil
}
