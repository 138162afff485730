package subscription

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/nerrad567/mqttdesk/internal/infrastructure/config"
	"github.com/nerrad567/mqttdesk/internal/infrastructure/database"
	"github.com/nerrad567/mqttdesk/migrations"
)

// setupTestDB opens a migrated in-memory database with brokers 1 and 2.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{Path: database.MemoryPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	ctx := context.Background()
	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO brokers (id, name, host, created_at, updated_at) VALUES
			(1, 'one', 'localhost', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z'),
			(2, 'two', 'localhost', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`); err != nil {
		t.Fatalf("failed to seed brokers: %v", err)
	}
	return db.DB
}

func TestSQLiteRepository_CreateAndList(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	for _, s := range []*Subscription{
		{BrokerID: 1, Topic: "sensors/#", QoS: 1, IsActive: true},
		{BrokerID: 1, Topic: "alerts", QoS: 2, IsActive: false},
		{BrokerID: 2, Topic: "other", IsActive: true},
	} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create(%s) error = %v", s.Topic, err)
		}
		if s.ID == 0 || s.CreatedAt.IsZero() {
			t.Errorf("Create(%s) did not set ID/CreatedAt", s.Topic)
		}
	}

	subs, err := repo.ListByBroker(ctx, 1)
	if err != nil {
		t.Fatalf("ListByBroker() error = %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("ListByBroker() returned %d, want 2", len(subs))
	}
	if subs[0].Topic != "alerts" || subs[0].QoS != 2 || subs[0].IsActive {
		t.Errorf("subs[0] = %+v", subs[0])
	}
	if subs[1].Topic != "sensors/#" || subs[1].QoS != 1 || !subs[1].IsActive {
		t.Errorf("subs[1] = %+v", subs[1])
	}

	none, err := repo.ListByBroker(ctx, 99)
	if err != nil {
		t.Fatalf("ListByBroker(99) error = %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("ListByBroker(99) = %v, want empty non-nil", none)
	}
}

func TestSQLiteRepository_DuplicateTopic(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, &Subscription{BrokerID: 1, Topic: "a"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := repo.Create(ctx, &Subscription{BrokerID: 1, Topic: "a"})
	if !errors.Is(err, ErrSubscriptionExists) {
		t.Errorf("duplicate Create() error = %v, want ErrSubscriptionExists", err)
	}
	if err := repo.Create(ctx, &Subscription{BrokerID: 2, Topic: "a"}); err != nil {
		t.Errorf("same topic on another broker: %v", err)
	}
}

func TestSQLiteRepository_SetActiveAndDelete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	s := &Subscription{BrokerID: 1, Topic: "t", IsActive: true}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.SetActive(ctx, s.ID, false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	got, err := repo.GetByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.IsActive {
		t.Error("IsActive = true after SetActive(false)")
	}

	if err := repo.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, s.ID); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("GetByID() after Delete error = %v", err)
	}
	if err := repo.SetActive(ctx, s.ID, true); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("SetActive() on deleted error = %v", err)
	}
	if err := repo.Delete(ctx, s.ID); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestSQLiteRepository_CascadeOnBrokerDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, &Subscription{BrokerID: 2, Topic: "x"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM brokers WHERE id = 2`); err != nil {
		t.Fatalf("deleting broker: %v", err)
	}
	subs, err := repo.ListByBroker(ctx, 2)
	if err != nil {
		t.Fatalf("ListByBroker() error = %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("subscriptions survived broker delete: %v", subs)
	}
}
