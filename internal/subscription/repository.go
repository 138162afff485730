package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Repository defines subscription persistence operations.
type Repository interface {
	ListByBroker(ctx context.Context, brokerID int64) ([]Subscription, error)
	GetByID(ctx context.Context, id int64) (*Subscription, error)
	Create(ctx context.Context, s *Subscription) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed subscription repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// ListByBroker returns the broker's subscriptions ordered by topic.
func (r *SQLiteRepository) ListByBroker(ctx context.Context, brokerID int64) ([]Subscription, error) {
	const query = `SELECT id, broker_id, topic, qos, is_active, created_at
		FROM subscriptions WHERE broker_id = ? ORDER BY topic`
	rows, err := r.db.QueryContext(ctx, query, brokerID)
	if err != nil {
		return nil, fmt.Errorf("querying subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []Subscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning subscription row: %w", err)
		}
		subs = append(subs, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscription rows: %w", err)
	}
	return subs, nil
}

// GetByID returns one subscription.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Subscription, error) {
	const query = `SELECT id, broker_id, topic, qos, is_active, created_at
		FROM subscriptions WHERE id = ?`
	s, err := scanSubscription(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("getting subscription %d: %w", id, err)
	}
	return s, nil
}

// Create inserts s and sets its ID and CreatedAt.
func (r *SQLiteRepository) Create(ctx context.Context, s *Subscription) error {
	now := time.Now().UTC()
	const query = `INSERT INTO subscriptions (broker_id, topic, qos, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		s.BrokerID, s.Topic, s.QoS, s.IsActive, now.Format(time.RFC3339Nano))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: %s", ErrSubscriptionExists, s.Topic)
		}
		return fmt.Errorf("inserting subscription %q: %w", s.Topic, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading subscription id: %w", err)
	}
	s.ID = id
	s.CreatedAt = now
	return nil
}

// SetActive toggles whether the subscription is restored on connect.
func (r *SQLiteRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE subscriptions SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("updating subscription %d: %w", id, err)
	}
	return requireRow(res)
}

// Delete removes the subscription.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting subscription %d: %w", id, err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubscription(sc scanner) (*Subscription, error) {
	var s Subscription
	var createdAt string
	if err := sc.Scan(&s.ID, &s.BrokerID, &s.Topic, &s.QoS, &s.IsActive, &createdAt); err != nil {
		return nil, err
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt) //nolint:errcheck // zero time on bad data
	return &s, nil
}
