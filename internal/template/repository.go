package template

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/mqttdesk/internal/history"
)

// Repository defines template persistence operations.
type Repository interface {
	ListByBroker(ctx context.Context, brokerID int64, category string) ([]Template, error)
	GetByID(ctx context.Context, id int64) (*Template, error)
	Create(ctx context.Context, t *Template) error
	Update(ctx context.Context, t *Template) error
	Delete(ctx context.Context, id int64) error
	MarkUsed(ctx context.Context, id int64, at time.Time) error
	Categories(ctx context.Context, brokerID int64) ([]string, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed template repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `SELECT id, broker_id, name, topic, payload, payload_format, qos, retain,
	description, category, use_count, last_used_at, created_at, updated_at
	FROM command_templates`

// ListByBroker returns the broker's templates ordered by category then
// name. A non-empty category limits the result to that category.
func (r *SQLiteRepository) ListByBroker(ctx context.Context, brokerID int64, category string) ([]Template, error) {
	query := selectColumns + ` WHERE broker_id = ?`
	args := []any{brokerID}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY category, name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	templates := []Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning template row: %w", err)
		}
		templates = append(templates, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating template rows: %w", err)
	}
	return templates, nil
}

// GetByID returns one template.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Template, error) {
	t, err := scanTemplate(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("getting template %d: %w", id, err)
	}
	return t, nil
}

// Create inserts t and sets its ID and timestamps. Usage statistics start
// from zero.
func (r *SQLiteRepository) Create(ctx context.Context, t *Template) error {
	now := time.Now().UTC()
	ts := now.Format(time.RFC3339Nano)
	const query = `INSERT INTO command_templates
		(broker_id, name, topic, payload, payload_format, qos, retain, description, category,
		 use_count, last_used_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		t.BrokerID, t.Name, t.Topic, t.Payload, string(t.PayloadFormat), t.QoS, t.Retain,
		t.Description, t.Category, ts, ts)
	if err != nil {
		return fmt.Errorf("inserting template %q: %w", t.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading template id: %w", err)
	}
	t.ID = id
	t.UseCount = 0
	t.LastUsedAt = nil
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// Update saves the editable fields of t and bumps UpdatedAt.
func (r *SQLiteRepository) Update(ctx context.Context, t *Template) error {
	now := time.Now().UTC()
	const query = `UPDATE command_templates SET
		name = ?, topic = ?, payload = ?, payload_format = ?, qos = ?, retain = ?,
		description = ?, category = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		t.Name, t.Topic, t.Payload, string(t.PayloadFormat), t.QoS, t.Retain,
		t.Description, t.Category, now.Format(time.RFC3339Nano), t.ID)
	if err != nil {
		return fmt.Errorf("updating template %d: %w", t.ID, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	t.UpdatedAt = now
	return nil
}

// Delete removes the template.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM command_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting template %d: %w", id, err)
	}
	return requireRow(res)
}

// MarkUsed increments the use counter and records when it was used.
func (r *SQLiteRepository) MarkUsed(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE command_templates SET use_count = use_count + 1, last_used_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, at.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("marking template %d used: %w", id, err)
	}
	return requireRow(res)
}

// Categories returns the broker's distinct non-empty categories, sorted.
func (r *SQLiteRepository) Categories(ctx context.Context, brokerID int64) ([]string, error) {
	const query = `SELECT DISTINCT category FROM command_templates
		WHERE broker_id = ? AND category != '' ORDER BY category`
	rows, err := r.db.QueryContext(ctx, query, brokerID)
	if err != nil {
		return nil, fmt.Errorf("querying template categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning template category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating template categories: %w", err)
	}
	return categories, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(sc scanner) (*Template, error) {
	var t Template
	var format, createdAt, updatedAt string
	var lastUsed sql.NullString
	if err := sc.Scan(&t.ID, &t.BrokerID, &t.Name, &t.Topic, &t.Payload, &format, &t.QoS, &t.Retain,
		&t.Description, &t.Category, &t.UseCount, &lastUsed, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	t.PayloadFormat = history.Format(format)
	if lastUsed.Valid {
		if at, err := time.Parse(time.RFC3339Nano, lastUsed.String); err == nil {
			t.LastUsedAt = &at
		}
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt) //nolint:errcheck // zero time on bad data
	t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt) //nolint:errcheck // zero time on bad data
	return &t, nil
}
