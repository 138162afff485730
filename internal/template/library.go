package template

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Logger defines the logging interface used by the Library.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Library manages a broker's templates. Every method takes the broker id
// and treats a template owned by another broker as not found.
type Library struct {
	repo   Repository
	logger Logger
	now    func() time.Time
}

// NewLibrary creates a Library over repo.
func NewLibrary(repo Repository) *Library {
	return &Library{repo: repo, logger: noopLogger{}, now: time.Now}
}

// SetLogger sets the logger used to report skipped imports.
func (l *Library) SetLogger(logger Logger) {
	l.logger = logger
}

// List returns the broker's templates, optionally limited to one category.
func (l *Library) List(ctx context.Context, brokerID int64, category string) ([]Template, error) {
	return l.repo.ListByBroker(ctx, brokerID, strings.TrimSpace(category))
}

// Get returns one of the broker's templates.
func (l *Library) Get(ctx context.Context, brokerID, id int64) (*Template, error) {
	return l.owned(ctx, brokerID, id)
}

// Create validates and saves t.
func (l *Library) Create(ctx context.Context, t *Template) error {
	if err := Validate(t); err != nil {
		return err
	}
	return l.repo.Create(ctx, t)
}

// Update applies p to a saved template and returns the result.
func (l *Library) Update(ctx context.Context, brokerID, id int64, p Patch) (*Template, error) {
	t, err := l.owned(ctx, brokerID, id)
	if err != nil {
		return nil, err
	}
	if err := p.apply(t); err != nil {
		return nil, err
	}
	if err := Validate(t); err != nil {
		return nil, err
	}
	if err := l.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes one of the broker's templates.
func (l *Library) Delete(ctx context.Context, brokerID, id int64) error {
	if _, err := l.owned(ctx, brokerID, id); err != nil {
		return err
	}
	return l.repo.Delete(ctx, id)
}

// Use records a use of the template and returns it with updated counters.
func (l *Library) Use(ctx context.Context, brokerID, id int64) (*Template, error) {
	if _, err := l.owned(ctx, brokerID, id); err != nil {
		return nil, err
	}
	if err := l.repo.MarkUsed(ctx, id, l.now()); err != nil {
		return nil, err
	}
	return l.repo.GetByID(ctx, id)
}

// Categories returns the broker's template categories.
func (l *Library) Categories(ctx context.Context, brokerID int64) ([]string, error) {
	return l.repo.Categories(ctx, brokerID)
}

// Duplicate copies a template under a new name. An empty name appends
// " (copy)" to the original. The copy starts with no usage.
func (l *Library) Duplicate(ctx context.Context, brokerID, id int64, name string) (*Template, error) {
	src, err := l.owned(ctx, brokerID, id)
	if err != nil {
		return nil, err
	}
	dup := *src
	dup.ID = 0
	dup.Name = strings.TrimSpace(name)
	if dup.Name == "" {
		dup.Name = src.Name + " (copy)"
	}
	if err := l.Create(ctx, &dup); err != nil {
		return nil, err
	}
	return &dup, nil
}

// Export returns the broker's templates as an indented JSON array.
func (l *Library) Export(ctx context.Context, brokerID int64) ([]byte, error) {
	templates, err := l.repo.ListByBroker(ctx, brokerID, "")
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(templates, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding templates: %w", err)
	}
	return data, nil
}

// Import creates a template on brokerID for every entry of a JSON array as
// produced by Export. Ids, owners and usage in the document are ignored.
// Entries that fail validation are skipped; the count of created templates
// is returned.
func (l *Library) Import(ctx context.Context, brokerID int64, data []byte) (int, error) {
	var entries []Template
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	imported := 0
	for i := range entries {
		t := entries[i]
		t.ID = 0
		t.BrokerID = brokerID
		if err := l.Create(ctx, &t); err != nil {
			if ctx.Err() != nil {
				return imported, ctx.Err()
			}
			l.logger.Warn("skipping imported template",
				"broker_id", brokerID,
				"index", i,
				"name", t.Name,
				"error", err,
			)
			continue
		}
		imported++
	}
	return imported, nil
}

func (l *Library) owned(ctx context.Context, brokerID, id int64) (*Template, error) {
	t, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.BrokerID != brokerID {
		return nil, ErrTemplateNotFound
	}
	return t, nil
}
