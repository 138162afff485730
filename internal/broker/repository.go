package broker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// Repository defines broker persistence operations.
type Repository interface {
	List(ctx context.Context) ([]Broker, error)
	GetByID(ctx context.Context, id int64) (*Broker, error)
	Create(ctx context.Context, b *Broker) error
	Update(ctx context.Context, b *Broker) error
	Delete(ctx context.Context, id int64) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a SQLite-backed broker repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const brokerColumns = `id, name, host, port, protocol_version, keep_alive, clean_session,
	client_id, username, password, use_tls, ca_cert, client_cert, client_key,
	created_at, updated_at`

// List returns all brokers ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Broker, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+brokerColumns+` FROM brokers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying brokers: %w", err)
	}
	defer rows.Close()

	brokers := []Broker{}
	for rows.Next() {
		b, err := scanBroker(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning broker row: %w", err)
		}
		brokers = append(brokers, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating broker rows: %w", err)
	}
	return brokers, nil
}

// GetByID returns one broker. Returns ErrBrokerNotFound if it does not exist.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Broker, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+brokerColumns+` FROM brokers WHERE id = ?`, id)
	b, err := scanBroker(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBrokerNotFound
		}
		return nil, fmt.Errorf("getting broker %d: %w", id, err)
	}
	return b, nil
}

// Create inserts b and sets its ID and timestamps.
func (r *SQLiteRepository) Create(ctx context.Context, b *Broker) error {
	now := time.Now().UTC()
	const query = `INSERT INTO brokers (name, host, port, protocol_version, keep_alive,
		clean_session, client_id, username, password, use_tls, ca_cert, client_cert,
		client_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		b.Name, b.Host, b.Port, b.ProtocolVersion, b.KeepAlive,
		b.CleanSession, b.ClientID, b.Username, b.Password, b.UseTLS,
		b.CACert, b.ClientCert, b.ClientKey,
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrBrokerExists, b.Name)
		}
		return fmt.Errorf("inserting broker %q: %w", b.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading broker id: %w", err)
	}
	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// Update overwrites every field of the broker with b.ID.
func (r *SQLiteRepository) Update(ctx context.Context, b *Broker) error {
	now := time.Now().UTC()
	const query = `UPDATE brokers SET name = ?, host = ?, port = ?, protocol_version = ?,
		keep_alive = ?, clean_session = ?, client_id = ?, username = ?, password = ?,
		use_tls = ?, ca_cert = ?, client_cert = ?, client_key = ?, updated_at = ?
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query,
		b.Name, b.Host, b.Port, b.ProtocolVersion, b.KeepAlive,
		b.CleanSession, b.ClientID, b.Username, b.Password, b.UseTLS,
		b.CACert, b.ClientCert, b.ClientKey,
		now.Format(time.RFC3339Nano), b.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrBrokerExists, b.Name)
		}
		return fmt.Errorf("updating broker %d: %w", b.ID, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	b.UpdatedAt = now
	return nil
}

// Delete removes the broker with id. Saved subscriptions and history
// cascade.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM brokers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting broker %d: %w", id, err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrBrokerNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBroker(s scanner) (*Broker, error) {
	var b Broker
	var createdAt, updatedAt string
	err := s.Scan(
		&b.ID, &b.Name, &b.Host, &b.Port, &b.ProtocolVersion, &b.KeepAlive,
		&b.CleanSession, &b.ClientID, &b.Username, &b.Password, &b.UseTLS,
		&b.CACert, &b.ClientCert, &b.ClientKey, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return &b, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
