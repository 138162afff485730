package broker

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Logger defines the logging interface used by the Store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}

const defaultCacheSize = 64

// Store is a read-through cache over a Repository. Writes go to the
// repository first and then update or evict the cached entry.
//
// Cached values are copies; callers may modify what they receive.
type Store struct {
	repo   Repository
	cache  *lru.Cache[int64, Broker]
	logger Logger
}

// NewStore creates a Store holding up to size brokers in memory.
func NewStore(repo Repository, size int) (*Store, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[int64, Broker](size)
	if err != nil {
		return nil, fmt.Errorf("creating broker cache: %w", err)
	}
	return &Store{repo: repo, cache: cache, logger: noopLogger{}}, nil
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Get returns the broker with id. Returns ErrBrokerNotFound if it does not
// exist.
func (s *Store) Get(ctx context.Context, id int64) (*Broker, error) {
	if b, ok := s.cache.Get(id); ok {
		return &b, nil
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, *b)
	s.logger.Debug("broker cached", "broker_id", id)
	return b, nil
}

// List returns every broker from the repository.
func (s *Store) List(ctx context.Context) ([]Broker, error) {
	return s.repo.List(ctx)
}

// Create applies defaults, validates and persists b.
func (s *Store) Create(ctx context.Context, b *Broker) error {
	ApplyDefaults(b)
	if err := Validate(b); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return err
	}
	s.cache.Add(b.ID, *b)
	s.logger.Info("broker created", "broker_id", b.ID, "name", b.Name)
	return nil
}

// Update replaces the stored broker with b. A password or client key equal
// to the redaction marker keeps the stored secret.
func (s *Store) Update(ctx context.Context, b *Broker) error {
	current, err := s.Get(ctx, b.ID)
	if err != nil {
		return err
	}
	if b.Password == redacted {
		b.Password = current.Password
	}
	if b.ClientKey == redacted {
		b.ClientKey = current.ClientKey
	}

	ApplyDefaults(b)
	if err := Validate(b); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, b); err != nil {
		s.cache.Remove(b.ID)
		return err
	}
	b.CreatedAt = current.CreatedAt
	s.cache.Add(b.ID, *b)
	s.logger.Info("broker updated", "broker_id", b.ID)
	return nil
}

// Delete removes the broker with id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.cache.Remove(id)
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("broker deleted", "broker_id", id)
	return nil
}
