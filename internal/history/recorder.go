package history

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/mqttdesk/internal/connection"
)

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

const (
	defaultQueueSize = 1024
	writeTimeout     = 5 * time.Second
	pruneInterval    = time.Hour

	// dropLogEvery limits drop warnings to one per this many dropped entries.
	dropLogEvery = 1000
)

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	// QueueSize bounds the number of entries waiting to be written.
	QueueSize int

	// Retention is how long entries are kept; zero keeps them forever.
	Retention time.Duration
}

// Recorder writes message history in the background. It implements
// connection.Sink.
type Recorder struct {
	repo      Repository
	logger    Logger
	retention time.Duration

	mu      sync.RWMutex // guards closed and sends on queue
	closed  bool
	started bool
	queue   chan Entry
	done    chan struct{}

	dropped atomic.Int64
}

// NewRecorder creates a Recorder. Call Start to begin writing.
func NewRecorder(repo Repository, cfg RecorderConfig) *Recorder {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = defaultQueueSize
	}
	return &Recorder{
		repo:      repo,
		logger:    noopLogger{},
		retention: cfg.Retention,
		queue:     make(chan Entry, cfg.QueueSize),
		done:      make(chan struct{}),
	}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Start launches the writer. Entries queued before Start are kept.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRecorderClosed
	}
	if r.started {
		return nil
	}
	r.started = true
	go r.run()
	return nil
}

// Close stops accepting entries and waits for the queue to drain or ctx to
// end.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	started := r.started
	close(r.queue)
	r.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("draining history queue: %w", ctx.Err())
	}
}

// Dropped returns how many entries were discarded because the queue was full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// ConnectionStateChanged implements connection.Sink.
func (r *Recorder) ConnectionStateChanged(connection.StateEvent) {}

// MessageReceived implements connection.Sink.
func (r *Recorder) MessageReceived(msg connection.Message) {
	r.enqueue(Entry{
		BrokerID:      msg.BrokerID,
		Direction:     DirectionReceive,
		Topic:         msg.Topic,
		Payload:       msg.Payload,
		PayloadFormat: DetectFormat(msg.Payload),
		QoS:           msg.QoS,
		Retain:        msg.Retain,
		CreatedAt:     msg.Timestamp,
	})
}

// RecordPublish queues an outbound message. An empty format is detected from
// the payload.
func (r *Recorder) RecordPublish(brokerID int64, topic string, payload []byte, format Format, qos byte, retain bool) {
	if format == "" {
		format = DetectFormat(payload)
	}
	r.enqueue(Entry{
		BrokerID:      brokerID,
		Direction:     DirectionPublish,
		Topic:         topic,
		Payload:       payload,
		PayloadFormat: format,
		QoS:           qos,
		Retain:        retain,
		CreatedAt:     time.Now().UTC(),
	})
}

func (r *Recorder) enqueue(e Entry) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- e:
	default:
		if n := r.dropped.Add(1); n%dropLogEvery == 1 {
			r.logger.Warn("history queue full, dropping messages",
				"broker_id", e.BrokerID,
				"dropped_total", n,
			)
		}
	}
}

func (r *Recorder) run() {
	defer close(r.done)

	var prune <-chan time.Time
	if r.retention > 0 {
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()
		prune = ticker.C
		r.prune()
	}

	for {
		select {
		case e, ok := <-r.queue:
			if !ok {
				return
			}
			r.write(e)
		case <-prune:
			r.prune()
		}
	}
}

func (r *Recorder) write(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.repo.Record(ctx, &e); err != nil {
		r.logger.Error("recording message failed",
			"broker_id", e.BrokerID,
			"topic", e.Topic,
			"error", err,
		)
	}
}

func (r *Recorder) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	n, err := r.repo.Prune(ctx, time.Now().Add(-r.retention))
	if err != nil {
		r.logger.Error("pruning history failed", "error", err)
		return
	}
	if n > 0 {
		r.logger.Info("history pruned", "deleted", n, "retention", r.retention.String())
	}
}
