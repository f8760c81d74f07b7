package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lox/sgweather/internal/ingest"
	"github.com/lox/sgweather/internal/models"
)

// IngestRun represents a single upstream forecast fetch for auditing.
type IngestRun struct {
	ID                int64
	StartedAt         time.Time
	FinishedAt        sql.NullTime
	Horizon           string
	Endpoint          string
	HTTPStatus        sql.NullInt64
	ResponseSizeBytes sql.NullInt64
	RecordsParsed     sql.NullInt64
	QualityFlags      sql.NullString
	Success           bool
	ErrorMessage      sql.NullString
}

// StartIngestRun creates a new ingest run record and returns it.
func (s *Store) StartIngestRun(horizon models.Horizon, endpoint string, startedAt time.Time) (*IngestRun, error) {
	run := &IngestRun{
		StartedAt: startedAt.UTC(),
		Horizon:   string(horizon),
		Endpoint:  endpoint,
	}

	err := withRetry(func() error {
		result, err := s.db.Exec(`
			INSERT INTO ingest_runs (started_at, horizon, endpoint, success)
			VALUES (?, ?, ?, FALSE)
		`, run.StartedAt, run.Horizon, run.Endpoint)
		if err != nil {
			return err
		}
		run.ID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteIngestRun updates the ingest run with results.
func (s *Store) CompleteIngestRun(run *IngestRun) error {
	if run == nil {
		return nil
	}
	if !run.FinishedAt.Valid {
		run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	return withRetry(func() error {
		_, err := s.db.Exec(`
			UPDATE ingest_runs SET
				finished_at = ?,
				http_status = ?,
				response_size_bytes = ?,
				records_parsed = ?,
				quality_flags = ?,
				success = ?,
				error_message = ?
			WHERE id = ?
		`, run.FinishedAt, run.HTTPStatus, run.ResponseSizeBytes, run.RecordsParsed,
			run.QualityFlags, run.Success, run.ErrorMessage, run.ID)
		return err
	})
}

// RecordFetch stores the audit row for one gateway call and archives its
// response body.
func (s *Store) RecordFetch(ctx context.Context, rec models.FetchRecord) error {
	run, err := s.StartIngestRun(rec.Horizon, rec.Endpoint, rec.StartedAt)
	if err != nil {
		return fmt.Errorf("start ingest run: %w", err)
	}

	run.Success = rec.Success()
	if !rec.FinishedAt.IsZero() {
		run.FinishedAt = sql.NullTime{Time: rec.FinishedAt.UTC(), Valid: true}
	}
	run.HTTPStatus = sql.NullInt64{Int64: int64(rec.HTTPStatus), Valid: rec.HTTPStatus > 0}
	run.ResponseSizeBytes = sql.NullInt64{Int64: int64(rec.ResponseSize), Valid: rec.ResponseSize > 0}
	run.RecordsParsed = sql.NullInt64{Int64: int64(rec.RecordCount), Valid: run.Success}
	if flags := ingest.QualityFlagsToJSON(rec.QualityFlags); flags != "" {
		run.QualityFlags = sql.NullString{String: flags, Valid: true}
	}
	if rec.Error != "" {
		run.ErrorMessage = sql.NullString{String: rec.Error, Valid: true}
	}

	if err := s.CompleteIngestRun(run); err != nil {
		return fmt.Errorf("complete ingest run: %w", err)
	}

	if len(rec.Payload) == 0 {
		return nil
	}
	if _, err := s.StoreRawPayload(&run.ID, rec.Horizon, rec.Endpoint, rec.Payload); err != nil {
		return err
	}
	return nil
}

// IngestHealthSummary represents a daily ingest health summary.
type IngestHealthSummary struct {
	Date         string
	Horizon      string
	TotalRuns    int
	SuccessRuns  int
	FailedRuns   int
	TotalRecords int64
	FlaggedRuns  int
}

// GetIngestHealth returns per-horizon ingest health summaries for the last
// N local days, newest first.
func (s *Store) GetIngestHealth(days int) ([]IngestHealthSummary, error) {
	now := time.Now().In(s.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	since := midnight.AddDate(0, 0, -(days - 1)).UTC()

	rows, err := s.db.Query(`
		SELECT started_at, horizon, success, COALESCE(records_parsed, 0), quality_flags
		FROM ingest_runs
		WHERE started_at >= ?
		ORDER BY started_at DESC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []IngestHealthSummary
	index := make(map[string]int)
	for rows.Next() {
		var (
			startedAt time.Time
			horizon   string
			success   bool
			records   int64
			flags     sql.NullString
		)
		if err := rows.Scan(&startedAt, &horizon, &success, &records, &flags); err != nil {
			return nil, err
		}

		date := startedAt.In(s.loc).Format("2006-01-02")
		key := date + "|" + horizon
		i, ok := index[key]
		if !ok {
			results = append(results, IngestHealthSummary{Date: date, Horizon: horizon})
			i = len(results) - 1
			index[key] = i
		}

		h := &results[i]
		h.TotalRuns++
		if success {
			h.SuccessRuns++
		} else {
			h.FailedRuns++
		}
		h.TotalRecords += records
		if flags.Valid && flags.String != "" {
			h.FlaggedRuns++
		}
	}
	return results, rows.Err()
}

// GetRecentIngestErrors returns recent failed ingest runs.
func (s *Store) GetRecentIngestErrors(limit int) ([]IngestRun, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, horizon, endpoint,
			   http_status, response_size_bytes, records_parsed, quality_flags,
			   success, error_message
		FROM ingest_runs
		WHERE success = FALSE
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []IngestRun
	for rows.Next() {
		var r IngestRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Horizon, &r.Endpoint,
			&r.HTTPStatus, &r.ResponseSizeBytes, &r.RecordsParsed, &r.QualityFlags,
			&r.Success, &r.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
