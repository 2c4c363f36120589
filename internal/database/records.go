package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRecordNotFound is returned when a history record does not exist or
// belongs to a different user.
var ErrRecordNotFound = errors.New("record not found")

// Record kinds stored in the history table. Payloads are opaque server-side;
// the client's result normalizers are the compatibility boundary.
const (
	KindBazi       = "bazi"
	KindZiwei      = "ziwei"
	KindYijing     = "yijing"
	KindPsychology = "psychology"
	KindFusion     = "fusion"
)

// ValidKind reports whether kind names a known analysis record kind.
func ValidKind(kind string) bool {
	switch kind {
	case KindBazi, KindZiwei, KindYijing, KindPsychology, KindFusion:
		return true
	}
	return false
}

// AnalysisRecord is one saved analysis result.
type AnalysisRecord struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Kind      string          `json:"kind"`
	Title     string          `json:"title"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// RecordRepository handles all database operations for analysis history.
type RecordRepository struct {
	db Service
}

// NewRecordRepository creates a history records repository.
func NewRecordRepository(db Service) *RecordRepository {
	return &RecordRepository{db: db}
}

// Insert saves an analysis record for a user.
func (r *RecordRepository) Insert(ctx context.Context, userID uuid.UUID, kind, title string, payload json.RawMessage) (*AnalysisRecord, error) {
	query := `
		INSERT INTO analysis_records (user_id, kind, title, payload, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, user_id, kind, title, payload, created_at
	`
	rec := &AnalysisRecord{}
	err := r.db.QueryRow(ctx, query, userID, kind, title, payload).Scan(
		&rec.ID, &rec.UserID, &rec.Kind, &rec.Title, &rec.Payload, &rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

// ListByUser returns a user's records of one kind, newest first.
func (r *RecordRepository) ListByUser(ctx context.Context, userID uuid.UUID, kind string, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, kind, title, payload, created_at
		FROM analysis_records
		WHERE user_id = $1 AND kind = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, userID, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records := []AnalysisRecord{}
	for rows.Next() {
		var rec AnalysisRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Kind, &rec.Title, &rec.Payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes a record owned by userID. Deleting another user's record
// reports ErrRecordNotFound rather than leaking its existence.
func (r *RecordRepository) Delete(ctx context.Context, userID, recordID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM analysis_records WHERE id = $1 AND user_id = $2`,
		recordID, userID)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// CountByUser returns per-kind record counts for the stats endpoint.
func (r *RecordRepository) CountByUser(ctx context.Context, userID uuid.UUID) (map[string]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT kind, COUNT(*) FROM analysis_records WHERE user_id = $1 GROUP BY kind`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}
