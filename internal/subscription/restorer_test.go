package subscription

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/mqttdesk/internal/connection"
)

type call struct {
	op    string
	id    int64
	topic string
	qos   byte
}

// fakeSubscriber records requests and can be made to fail.
type fakeSubscriber struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeSubscriber) Subscribe(_ context.Context, id int64, topic string, qos byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: "sub", id: id, topic: topic, qos: qos})
	return f.err
}

func (f *fakeSubscriber) Unsubscribe(_ context.Context, id int64, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: "unsub", id: id, topic: topic})
	return f.err
}

func (f *fakeSubscriber) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func newTestRestorer(t *testing.T) (*Restorer, *fakeSubscriber) {
	t.Helper()
	client := &fakeSubscriber{}
	return NewRestorer(NewSQLiteRepository(setupTestDB(t)), client), client
}

func connected(id int64) connection.StateEvent {
	return connection.StateEvent{BrokerID: id, Status: connection.StatusConnected}
}

func disconnected(id int64) connection.StateEvent {
	return connection.StateEvent{BrokerID: id, Status: connection.StatusDisconnected}
}

func TestRestorer_RestoresActiveOnConnect(t *testing.T) {
	r, client := newTestRestorer(t)
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, &Subscription{BrokerID: 1, Topic: "a/#", QoS: 1, IsActive: true}))
	require.NoError(t, r.Add(ctx, &Subscription{BrokerID: 1, Topic: "b", IsActive: false}))
	require.NoError(t, r.Add(ctx, &Subscription{BrokerID: 2, Topic: "c", IsActive: true}))
	assert.Empty(t, client.snapshot(), "nothing is sent while disconnected")

	r.ConnectionStateChanged(connection.StateEvent{BrokerID: 1, Status: connection.StatusConnecting})
	r.ConnectionStateChanged(connected(1))
	r.Wait()

	assert.Equal(t, []call{{op: "sub", id: 1, topic: "a/#", qos: 1}}, client.snapshot())
}

func TestRestorer_RestoresAgainAfterReconnect(t *testing.T) {
	r, client := newTestRestorer(t)
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, &Subscription{BrokerID: 1, Topic: "t", IsActive: true}))

	r.ConnectionStateChanged(connected(1))
	r.Wait()
	r.ConnectionStateChanged(connected(1))
	r.Wait()
	assert.Len(t, client.snapshot(), 1, "duplicate connected event should not restore twice")

	r.ConnectionStateChanged(disconnected(1))
	r.ConnectionStateChanged(connected(1))
	r.Wait()
	assert.Len(t, client.snapshot(), 2)
}

func TestRestorer_StopsWhenSessionGone(t *testing.T) {
	r, client := newTestRestorer(t)
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, &Subscription{BrokerID: 1, Topic: "a", IsActive: true}))
	require.NoError(t, r.Add(ctx, &Subscription{BrokerID: 1, Topic: "b", IsActive: true}))

	client.err = connection.ErrNotConnected
	r.ConnectionStateChanged(connected(1))
	r.Wait()

	assert.Len(t, client.snapshot(), 1)
}

func TestRestorer_AddWhileConnected(t *testing.T) {
	r, client := newTestRestorer(t)
	ctx := context.Background()

	r.ConnectionStateChanged(connected(1))
	r.Wait()

	require.NoError(t, r.Add(ctx, &Subscription{BrokerID: 1, Topic: "live", QoS: 2, IsActive: true}))
	require.NoError(t, r.Add(ctx, &Subscription{BrokerID: 1, Topic: "paused", IsActive: false}))

	assert.Equal(t, []call{{op: "sub", id: 1, topic: "live", qos: 2}}, client.snapshot())
}

func TestRestorer_AddRejectsInvalid(t *testing.T) {
	r, _ := newTestRestorer(t)

	err := r.Add(context.Background(), &Subscription{BrokerID: 1, Topic: "a/#/b"})
	assert.ErrorIs(t, err, ErrInvalidSubscription)

	subs, err := r.List(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestRestorer_SetActiveWhileConnected(t *testing.T) {
	r, client := newTestRestorer(t)
	ctx := context.Background()

	s := &Subscription{BrokerID: 1, Topic: "t", QoS: 1, IsActive: true}
	require.NoError(t, r.Add(ctx, s))
	r.ConnectionStateChanged(connected(1))
	r.Wait()

	got, err := r.SetActive(ctx, 1, s.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = r.SetActive(ctx, 1, s.ID, false)
	require.NoError(t, err)

	_, err = r.SetActive(ctx, 1, s.ID, true)
	require.NoError(t, err)

	assert.Equal(t, []call{
		{op: "sub", id: 1, topic: "t", qos: 1},
		{op: "unsub", id: 1, topic: "t"},
		{op: "sub", id: 1, topic: "t", qos: 1},
	}, client.snapshot())
}

func TestRestorer_SetActiveScopedToBroker(t *testing.T) {
	r, _ := newTestRestorer(t)
	ctx := context.Background()

	s := &Subscription{BrokerID: 1, Topic: "t", IsActive: true}
	require.NoError(t, r.Add(ctx, s))

	_, err := r.SetActive(ctx, 2, s.ID, false)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
	assert.ErrorIs(t, r.Delete(ctx, 2, s.ID), ErrSubscriptionNotFound)
}

func TestRestorer_DeleteWhileConnected(t *testing.T) {
	r, client := newTestRestorer(t)
	ctx := context.Background()

	s := &Subscription{BrokerID: 1, Topic: "t", IsActive: true}
	require.NoError(t, r.Add(ctx, s))
	r.ConnectionStateChanged(connected(1))
	r.Wait()

	require.NoError(t, r.Delete(ctx, 1, s.ID))
	calls := client.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "unsub", calls[1].op)

	subs, err := r.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestRestorer_LiveFailureKeepsRecord(t *testing.T) {
	r, client := newTestRestorer(t)
	ctx := context.Background()

	r.ConnectionStateChanged(connected(1))
	r.Wait()
	client.err = errors.New("boom")

	err := r.Add(ctx, &Subscription{BrokerID: 1, Topic: "t", IsActive: true})
	require.Error(t, err)

	subs, err := r.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}
