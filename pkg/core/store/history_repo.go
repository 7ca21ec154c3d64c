package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// SearchRecord is one row of the search history.
type SearchRecord struct {
	ID             string      `json:"id"`
	Query          string      `json:"query"`
	Status         string      `json:"status"`
	TotalDocuments int         `json:"total_documents"`
	DurationMS     int64       `json:"duration_ms"`
	Detail         interface{} `json:"detail,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// SearchHistoryRepository persists completed searches.
type SearchHistoryRepository interface {
	Save(ctx context.Context, record SearchRecord) error
	Recent(ctx context.Context, limit int) ([]SearchRecord, error)
}

// HistoryRepo stores search history in Postgres.
type HistoryRepo struct{}

func NewHistoryRepo() *HistoryRepo {
	return &HistoryRepo{}
}

// Save inserts one search record. The detail payload goes into a JSONB
// column so the schema survives response shape changes.
//
// Schema assumption:
// CREATE TABLE IF NOT EXISTS search_history (
//   id UUID PRIMARY KEY,
//   query TEXT NOT NULL,
//   status TEXT NOT NULL,
//   total_documents INT NOT NULL,
//   duration_ms BIGINT NOT NULL,
//   detail_json JSONB,
//   created_at TIMESTAMPTZ NOT NULL
// );
func (r *HistoryRepo) Save(ctx context.Context, record SearchRecord) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	detailJSON, err := json.Marshal(record.Detail)
	if err != nil {
		return fmt.Errorf("failed to marshal search detail: %w", err)
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO search_history (id, query, status, total_documents, duration_ms, detail_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err = pool.Exec(ctx, query, record.ID, record.Query, record.Status,
		record.TotalDocuments, record.DurationMS, detailJSON, createdAt)
	if err != nil {
		return fmt.Errorf("failed to save search record: %w", err)
	}
	return nil
}

// Recent returns the newest records, newest first.
func (r *HistoryRepo) Recent(ctx context.Context, limit int) ([]SearchRecord, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, query, status, total_documents, duration_ms, created_at
		FROM search_history
		ORDER BY created_at DESC
		LIMIT $1;
	`
	rows, err := pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load search history: %w", err)
	}
	defer rows.Close()

	var out []SearchRecord
	for rows.Next() {
		var record SearchRecord
		if err := rows.Scan(&record.ID, &record.Query, &record.Status,
			&record.TotalDocuments, &record.DurationMS, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search record: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
