package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lox/sgweather/internal/models"
)

// RawPayload represents a stored upstream response body.
type RawPayload struct {
	ID                int64
	IngestRunID       sql.NullInt64
	FetchedAt         time.Time
	Horizon           models.Horizon
	Endpoint          string
	PayloadCompressed []byte
	PayloadHash       string
	SchemaVersion     int
}

// Payload returns the decompressed response body.
func (p *RawPayload) Payload() ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(p.PayloadCompressed))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

// StoreRawPayload stores a compressed response body.
// Returns the payload ID, or 0 if the payload was a duplicate (same hash).
func (s *Store) StoreRawPayload(runID *int64, horizon models.Horizon, endpoint string, payload []byte) (int64, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return 0, fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("close gzip: %w", err)
	}
	compressed := buf.Bytes()

	hash := sha256.Sum256(payload)
	hashHex := hex.EncodeToString(hash[:])

	var ingestRunID sql.NullInt64
	if runID != nil {
		ingestRunID = sql.NullInt64{Int64: *runID, Valid: true}
	}

	var id int64
	err := withRetry(func() error {
		result, err := s.db.Exec(`
			INSERT INTO raw_payloads
			(ingest_run_id, fetched_at, horizon, endpoint, payload_compressed, payload_hash, schema_version)
			VALUES (?, ?, ?, ?, ?, ?, 1)
			ON CONFLICT(payload_hash) DO NOTHING
		`, ingestRunID, time.Now().UTC(), string(horizon), endpoint, compressed, hashHex)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			id = 0
			return nil
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert raw payload: %w", err)
	}
	return id, nil
}

// GetRawPayload retrieves and decompresses a stored payload by ID.
func (s *Store) GetRawPayload(id int64) ([]byte, error) {
	var compressed []byte
	err := s.db.QueryRow(`SELECT payload_compressed FROM raw_payloads WHERE id = ?`, id).
		Scan(&compressed)
	if err != nil {
		return nil, err
	}
	p := RawPayload{PayloadCompressed: compressed}
	return p.Payload()
}

// LatestRawPayload returns the most recently archived payload for a horizon,
// or nil when none has been archived yet.
func (s *Store) LatestRawPayload(horizon models.Horizon) (*RawPayload, error) {
	row := s.db.QueryRow(`
		SELECT id, ingest_run_id, fetched_at, horizon, endpoint,
		       payload_compressed, payload_hash, schema_version
		FROM raw_payloads WHERE horizon = ?
		ORDER BY id DESC LIMIT 1
	`, string(horizon))

	var p RawPayload
	var h string
	err := row.Scan(&p.ID, &p.IngestRunID, &p.FetchedAt, &h, &p.Endpoint,
		&p.PayloadCompressed, &p.PayloadHash, &p.SchemaVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Horizon = models.Horizon(h)
	return &p, nil
}

// RawPayloadStats contains storage statistics for raw payloads.
type RawPayloadStats struct {
	TotalCount      int
	TotalSizeBytes  int64
	OldestFetchedAt time.Time
	NewestFetchedAt time.Time
	CountByHorizon  map[string]int
	SizeByHorizon   map[string]int64
}

// GetRawPayloadStats returns storage statistics for raw payloads.
func (s *Store) GetRawPayloadStats() (*RawPayloadStats, error) {
	stats := &RawPayloadStats{
		CountByHorizon: make(map[string]int),
		SizeByHorizon:  make(map[string]int64),
	}

	rows, err := s.db.Query(`
		SELECT horizon, COUNT(*), SUM(LENGTH(payload_compressed)), MIN(id), MAX(id)
		FROM raw_payloads
		GROUP BY horizon
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var oldestID, newestID int64
	for rows.Next() {
		var horizon string
		var count int
		var size, minID, maxID int64
		if err := rows.Scan(&horizon, &count, &size, &minID, &maxID); err != nil {
			return nil, err
		}
		stats.CountByHorizon[horizon] = count
		stats.SizeByHorizon[horizon] = size
		stats.TotalCount += count
		stats.TotalSizeBytes += size
		if oldestID == 0 || minID < oldestID {
			oldestID = minID
		}
		if maxID > newestID {
			newestID = maxID
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if stats.TotalCount == 0 {
		return stats, nil
	}

	if err := s.db.QueryRow(`SELECT fetched_at FROM raw_payloads WHERE id = ?`, oldestID).Scan(&stats.OldestFetchedAt); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow(`SELECT fetched_at FROM raw_payloads WHERE id = ?`, newestID).Scan(&stats.NewestFetchedAt); err != nil {
		return nil, err
	}
	return stats, nil
}

// CleanupOldRawPayloads deletes raw payloads older than the specified number of days.
// Returns the number of deleted records.
func (s *Store) CleanupOldRawPayloads(retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	var n int64
	err := withRetry(func() error {
		result, err := s.db.Exec(`DELETE FROM raw_payloads WHERE fetched_at < ?`, cutoff)
		if err != nil {
			return err
		}
		n, err = result.RowsAffected()
		return err
	})
	return n, err
}
