package connection

import (
	"context"
	"sync"

	"github.com/nerrad567/mqttdesk/internal/infrastructure/mqtt"
)

type pollResult struct {
	ev  mqtt.Event
	err error
}

type publishCall struct {
	topic   string
	payload []byte
	qos     byte
	retain  bool
}

// fakeEngine is a scripted Engine. Tests push events with emit/fail and
// inspect the requests it received.
type fakeEngine struct {
	opts   mqtt.Options
	events chan pollResult
	closed chan struct{}

	closeOnce sync.Once

	mu           sync.Mutex
	published    []publishCall
	subscribed   []string
	unsubscribed []string
	requestErr   error
}

func newFakeEngine(opts mqtt.Options) *fakeEngine {
	return &fakeEngine{
		opts:   opts,
		events: make(chan pollResult, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeEngine) emit(ev mqtt.Event) { f.events <- pollResult{ev: ev} }
func (f *fakeEngine) fail(err error)     { f.events <- pollResult{err: err} }

func (f *fakeEngine) accept() {
	f.emit(mqtt.Event{Kind: mqtt.EventConnAck})
}

func (f *fakeEngine) Poll(ctx context.Context) (mqtt.Event, error) {
	select {
	case r := <-f.events:
		return r.ev, r.err
	case <-f.closed:
		return mqtt.Event{}, mqtt.ErrSessionClosed
	case <-ctx.Done():
		return mqtt.Event{}, ctx.Err()
	}
}

func (f *fakeEngine) Publish(_ context.Context, topic string, payload []byte, qos byte, retain bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.requestErr != nil {
		return f.requestErr
	}
	f.published = append(f.published, publishCall{topic: topic, payload: payload, qos: qos, retain: retain})
	return nil
}

func (f *fakeEngine) Subscribe(_ context.Context, topic string, _ byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.requestErr != nil {
		return f.requestErr
	}
	f.subscribed = append(f.subscribed, topic)
	return nil
}

func (f *fakeEngine) Unsubscribe(_ context.Context, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.requestErr != nil {
		return f.requestErr
	}
	f.unsubscribed = append(f.unsubscribed, topic)
	return nil
}

func (f *fakeEngine) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeEngine) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeEngine) requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published) + len(f.subscribed) + len(f.unsubscribed)
}

// engineRecorder is an EngineFactory that keeps every engine it creates.
type engineRecorder struct {
	mu      sync.Mutex
	engines []*fakeEngine

	// onCreate runs before the new engine is recorded.
	onCreate func(previous []*fakeEngine)
}

func (r *engineRecorder) factory(opts mqtt.Options) (Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.onCreate != nil {
		r.onCreate(r.engines)
	}
	e := newFakeEngine(opts)
	r.engines = append(r.engines, e)
	return e, nil
}

func (r *engineRecorder) all() []*fakeEngine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*fakeEngine(nil), r.engines...)
}

func (r *engineRecorder) last() *fakeEngine {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.engines) == 0 {
		return nil
	}
	return r.engines[len(r.engines)-1]
}

// recordingSink captures every event it receives.
type recordingSink struct {
	mu       sync.Mutex
	states   []StateEvent
	messages []Message
}

func (s *recordingSink) ConnectionStateChanged(ev StateEvent) {
	s.mu.Lock()
	s.states = append(s.states, ev)
	s.mu.Unlock()
}

func (s *recordingSink) MessageReceived(msg Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

func (s *recordingSink) statuses(id int64) []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Status
	for _, ev := range s.states {
		if ev.BrokerID == id {
			out = append(out, ev.Status)
		}
	}
	return out
}

func (s *recordingSink) lastState(id int64) (StateEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.states) - 1; i >= 0; i-- {
		if s.states[i].BrokerID == id {
			return s.states[i], true
		}
	}
	return StateEvent{}, false
}

func (s *recordingSink) received() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}
