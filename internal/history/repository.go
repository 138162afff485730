package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DefaultPageSize is the number of entries List returns when limit is 0.
const DefaultPageSize = 100

// timeLayout is fixed width so created_at sorts and compares as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Repository defines message history persistence operations.
type Repository interface {
	Record(ctx context.Context, e *Entry) error
	List(ctx context.Context, brokerID int64, limit, offset int) ([]Entry, error)
	Clear(ctx context.Context, brokerID int64) (int64, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db          *sql.DB
	maxPageSize int
}

// NewSQLiteRepository creates a SQLite-backed history repository. List
// clamps limits to maxPageSize.
func NewSQLiteRepository(db *sql.DB, maxPageSize int) *SQLiteRepository {
	if maxPageSize < 1 {
		maxPageSize = DefaultPageSize
	}
	return &SQLiteRepository{db: db, maxPageSize: maxPageSize}
}

// Record inserts e and sets its ID. A zero CreatedAt is set to now.
func (r *SQLiteRepository) Record(ctx context.Context, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.PayloadFormat == "" {
		e.PayloadFormat = DetectFormat(e.Payload)
	}
	payload := e.Payload
	if payload == nil {
		payload = []byte{}
	}

	const query = `INSERT INTO message_history
		(broker_id, direction, topic, payload, payload_format, qos, retain, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		e.BrokerID, string(e.Direction), e.Topic, payload, string(e.PayloadFormat),
		e.QoS, e.Retain, e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting history for broker %d: %w", e.BrokerID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading history id: %w", err)
	}
	e.ID = id
	return nil
}

// List returns the broker's entries newest first. limit 0 means
// DefaultPageSize; larger limits are clamped to the configured maximum.
func (r *SQLiteRepository) List(ctx context.Context, brokerID int64, limit, offset int) ([]Entry, error) {
	limit, offset = r.page(limit, offset)

	const query = `SELECT id, broker_id, direction, topic, payload, payload_format, qos, retain, created_at
		FROM message_history WHERE broker_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, brokerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var direction, format, createdAt string
		if err := rows.Scan(&e.ID, &e.BrokerID, &direction, &e.Topic, &e.Payload,
			&format, &e.QoS, &e.Retain, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.Direction = Direction(direction)
		e.PayloadFormat = Format(format)
		e.CreatedAt, _ = time.Parse(timeLayout, createdAt) //nolint:errcheck // zero time on bad data
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history rows: %w", err)
	}
	return entries, nil
}

func (r *SQLiteRepository) page(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > r.maxPageSize:
		limit = r.maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Clear deletes every entry for the broker and returns how many were removed.
func (r *SQLiteRepository) Clear(ctx context.Context, brokerID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM message_history WHERE broker_id = ?`, brokerID)
	if err != nil {
		return 0, fmt.Errorf("clearing history for broker %d: %w", brokerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// Prune deletes entries created before olderThan.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM message_history WHERE created_at < ?`,
		olderThan.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}
