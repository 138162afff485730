package history

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/mqttdesk/internal/infrastructure/config"
	"github.com/nerrad567/mqttdesk/internal/infrastructure/database"
	"github.com/nerrad567/mqttdesk/migrations"
)

// setupTestDB opens a migrated in-memory database with brokers 1 and 2.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{Path: database.MemoryPath, BusyTimeout: 5})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	ctx := context.Background()
	_, err = db.Migrate(ctx, migrations.FS)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO brokers (id, name, host, created_at, updated_at) VALUES
			(1, 'one', 'localhost', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z'),
			(2, 'two', 'localhost', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)
	return db.DB
}

func TestSQLiteRepository_RecordAndList(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t), 1000)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	for i := range 3 {
		e := &Entry{
			BrokerID:  1,
			Direction: DirectionReceive,
			Topic:     fmt.Sprintf("t/%d", i),
			Payload:   []byte(fmt.Sprintf(`{"n":%d}`, i)),
			QoS:       1,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Record(ctx, e))
		assert.NotZero(t, e.ID)
		assert.Equal(t, FormatJSON, e.PayloadFormat, "format detected when unset")
	}
	require.NoError(t, repo.Record(ctx, &Entry{BrokerID: 2, Direction: DirectionPublish, Topic: "other"}))

	entries, err := repo.List(ctx, 1, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "t/2", entries[0].Topic, "newest first")
	assert.Equal(t, "t/0", entries[2].Topic)
	assert.Equal(t, DirectionReceive, entries[0].Direction)
	assert.Equal(t, []byte(`{"n":2}`), entries[0].Payload)
	assert.Equal(t, byte(1), entries[0].QoS)
	assert.True(t, entries[0].CreatedAt.Equal(base.Add(2*time.Second)))

	other, err := repo.List(ctx, 2, 0, 0)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, []byte{}, other[0].Payload)
}

func TestSQLiteRepository_ListPaging(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t), 3)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	for i := range 5 {
		require.NoError(t, repo.Record(ctx, &Entry{
			BrokerID: 1, Direction: DirectionReceive, Topic: fmt.Sprintf("t/%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		}))
	}

	clamped, err := repo.List(ctx, 1, 50, 0)
	require.NoError(t, err)
	assert.Len(t, clamped, 3, "limit clamped to max page size")

	page, err := repo.List(ctx, 1, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "t/2", page[0].Topic)
	assert.Equal(t, "t/1", page[1].Topic)

	negative, err := repo.List(ctx, 1, 1, -4)
	require.NoError(t, err)
	require.Len(t, negative, 1)
	assert.Equal(t, "t/4", negative[0].Topic)
}

func TestSQLiteRepository_Clear(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t), 100)
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, &Entry{BrokerID: 1, Direction: DirectionReceive, Topic: "a"}))
	require.NoError(t, repo.Record(ctx, &Entry{BrokerID: 1, Direction: DirectionPublish, Topic: "b"}))
	require.NoError(t, repo.Record(ctx, &Entry{BrokerID: 2, Direction: DirectionReceive, Topic: "c"}))

	n, err := repo.Clear(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := repo.List(ctx, 1, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, left)

	kept, err := repo.List(ctx, 2, 0, 0)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestSQLiteRepository_Prune(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t), 100)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Record(ctx, &Entry{BrokerID: 1, Direction: DirectionReceive, Topic: "old", CreatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, repo.Record(ctx, &Entry{BrokerID: 1, Direction: DirectionReceive, Topic: "new", CreatedAt: now}))

	n, err := repo.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := repo.List(ctx, 1, 0, 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].Topic)
}
