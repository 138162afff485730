package connection

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/mqttdesk/internal/infrastructure/mqtt"
)

func TestRegistry_MissingID(t *testing.T) {
	r := NewRegistry()

	engine, ok := r.Client(1)
	assert.False(t, ok)
	assert.Nil(t, engine)
	assert.False(t, r.Contains(1))
	assert.Zero(t, r.Len())
}

func TestRegistry_InsertOverwrites(t *testing.T) {
	r := NewRegistry()
	first := newHandle(newFakeEngine(mqtt.Options{}))
	second := newHandle(newFakeEngine(mqtt.Options{}))

	r.insert(1, first)
	r.insert(1, second)

	engine, ok := r.Client(1)
	require.True(t, ok)
	assert.Same(t, second.engine, engine)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RemoveHandleOnlyRemovesOwnEntry(t *testing.T) {
	r := NewRegistry()
	old := newHandle(newFakeEngine(mqtt.Options{}))
	current := newHandle(newFakeEngine(mqtt.Options{}))

	r.insert(1, current)

	assert.False(t, r.removeHandle(1, old), "stale handle must not evict its successor")
	assert.True(t, r.Contains(1))

	assert.True(t, r.removeHandle(1, current))
	assert.False(t, r.Contains(1))
}

func TestRegistry_IDsSorted(t *testing.T) {
	r := NewRegistry()
	for _, id := range []int64{9, 2, 5} {
		r.insert(id, newHandle(newFakeEngine(mqtt.Options{})))
	}
	assert.Equal(t, []int64{2, 5, 9}, r.IDs())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(2)
		go func(id int64) {
			defer wg.Done()
			h := newHandle(newFakeEngine(mqtt.Options{}))
			r.insert(id, h)
			r.removeHandle(id, h)
		}(i)
		go func(id int64) {
			defer wg.Done()
			_ = r.Contains(id)
			_, _ = r.Client(id)
		}(i)
	}
	wg.Wait()
	assert.Zero(t, r.Len())
}

func TestHandle_SignalIdempotent(t *testing.T) {
	h := newHandle(newFakeEngine(mqtt.Options{}))
	assert.False(t, h.signalled())
	h.signal()
	h.signal()
	assert.True(t, h.signalled())
}
