package envvar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Repository defines variable persistence operations.
type Repository interface {
	ListByBroker(ctx context.Context, brokerID int64) ([]Variable, error)
	GetByID(ctx context.Context, id int64) (*Variable, error)
	Create(ctx context.Context, v *Variable) error
	Update(ctx context.Context, v *Variable) error
	Delete(ctx context.Context, id int64) error
	Values(ctx context.Context, brokerID int64) (map[string]string, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed variable repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `SELECT id, broker_id, name, value, description, created_at, updated_at
	FROM env_variables`

// ListByBroker returns the broker's variables ordered by name.
func (r *SQLiteRepository) ListByBroker(ctx context.Context, brokerID int64) ([]Variable, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE broker_id = ? ORDER BY name`, brokerID)
	if err != nil {
		return nil, fmt.Errorf("querying variables: %w", err)
	}
	defer rows.Close()

	vars := []Variable{}
	for rows.Next() {
		v, err := scanVariable(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning variable row: %w", err)
		}
		vars = append(vars, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating variable rows: %w", err)
	}
	return vars, nil
}

// GetByID returns one variable.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Variable, error) {
	v, err := scanVariable(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVariableNotFound
		}
		return nil, fmt.Errorf("getting variable %d: %w", id, err)
	}
	return v, nil
}

// Create inserts v and sets its ID and timestamps.
func (r *SQLiteRepository) Create(ctx context.Context, v *Variable) error {
	now := time.Now().UTC()
	ts := now.Format(time.RFC3339Nano)
	const query = `INSERT INTO env_variables (broker_id, name, value, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, v.BrokerID, v.Name, v.Value, v.Description, ts, ts)
	if err != nil {
		return mapWriteError(err, v.Name, "inserting")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading variable id: %w", err)
	}
	v.ID = id
	v.CreatedAt = now
	v.UpdatedAt = now
	return nil
}

// Update saves the name, value and description of v and bumps UpdatedAt.
func (r *SQLiteRepository) Update(ctx context.Context, v *Variable) error {
	now := time.Now().UTC()
	const query = `UPDATE env_variables SET name = ?, value = ?, description = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, v.Name, v.Value, v.Description, now.Format(time.RFC3339Nano), v.ID)
	if err != nil {
		return mapWriteError(err, v.Name, "updating")
	}
	if err := requireRow(res); err != nil {
		return err
	}
	v.UpdatedAt = now
	return nil
}

// Delete removes the variable.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM env_variables WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting variable %d: %w", id, err)
	}
	return requireRow(res)
}

// Values returns the broker's variables as a name to value map for Expand.
func (r *SQLiteRepository) Values(ctx context.Context, brokerID int64) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, value FROM env_variables WHERE broker_id = ?`, brokerID)
	if err != nil {
		return nil, fmt.Errorf("querying variable values: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scanning variable value: %w", err)
		}
		values[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating variable values: %w", err)
	}
	return values, nil
}

func mapWriteError(err error, name, op string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %s", ErrVariableExists, name)
	}
	return fmt.Errorf("%s variable %q: %w", op, name, err)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrVariableNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVariable(sc scanner) (*Variable, error) {
	var v Variable
	var createdAt, updatedAt string
	if err := sc.Scan(&v.ID, &v.BrokerID, &v.Name, &v.Value, &v.Description, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt) //nolint:errcheck // zero time on bad data
	v.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt) //nolint:errcheck // zero time on bad data
	return &v, nil
}
