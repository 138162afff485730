package connection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/mqttdesk/internal/infrastructure/mqtt"
)

// Logger defines the logging interface used by the connection package.
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

// defaultClientIDPrefix is prepended to generated client identifiers.
const defaultClientIDPrefix = "mqtt_client_"

// Settings are the session parameters shared by every broker.
type Settings struct {
	ConnectTimeout    time.Duration
	DisconnectQuiesce time.Duration
	EventBuffer       int
	ClientIDPrefix    string
}

// Manager is the command surface over all broker sessions.
//
// Operations on different brokers are independent. Connect calls for the same
// broker are serialized, and each one stops and waits for the previous
// driver before registering a new handle, so a broker never has more than
// one live session.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Sink callbacks run on driver goroutines and must not block.
type Manager struct {
	registry  *Registry
	sink      Sink
	newEngine EngineFactory
	settings  Settings
	logger    Logger

	locks keyedMutex

	// base parents every driver; Shutdown cancels it after signalling.
	base    context.Context
	stop    context.CancelFunc
	drivers sync.WaitGroup

	mu     sync.Mutex // guards closed, registry inserts and drivers.Add
	closed bool
}

// NewManager creates a Manager with no sessions.
//
// Parameters:
//   - registry: Live handle table, usually from NewRegistry
//   - sink: Receives every state change and inbound message; nil discards
//   - newEngine: Builds one engine per connect (PahoEngine in production)
//   - settings: Timeouts, event buffer and client id prefix shared by all
//     brokers; zero values take defaults
//
// Returns:
//   - *Manager: Ready to accept Connect calls
func NewManager(registry *Registry, sink Sink, newEngine EngineFactory, settings Settings) *Manager {
	if sink == nil {
		sink = NopSink{}
	}
	if settings.ClientIDPrefix == "" {
		settings.ClientIDPrefix = defaultClientIDPrefix
	}
	base, stop := context.WithCancel(context.Background())
	return &Manager{
		registry:  registry,
		sink:      sink,
		newEngine: newEngine,
		settings:  settings,
		logger:    noopLogger{},
		locks:     keyedMutex{locks: make(map[int64]*sync.Mutex)},
		base:      base,
		stop:      stop,
	}
}

// SetLogger sets the logger for the manager and its drivers.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Connect starts a session for cfg and returns without waiting for the
// broker. Progress arrives through the sink: connecting first, then
// connected or error.
//
// Any existing session for cfg.ID is stopped first; ctx bounds the wait for
// it to exit. Invalid TLS material fails synchronously with ErrTLSConfig
// after an error state has been emitted.
//
// Parameters:
//   - ctx: Bounds the wait for a previous session to stop
//   - cfg: Broker endpoint, credentials, TLS material and session options
//
// Returns:
//   - error: ErrMissingID, ErrTLSConfig, ErrManagerClosed, an engine
//     creation failure, or ctx.Err() while waiting; nil once the driver runs
func (m *Manager) Connect(ctx context.Context, cfg BrokerConfig) error {
	if cfg.ID == 0 {
		return ErrMissingID
	}
	if m.isClosed() {
		return ErrManagerClosed
	}

	unlock := m.locks.lock(cfg.ID)
	defer unlock()

	if err := m.retire(ctx, cfg.ID); err != nil {
		return err
	}

	m.emit(cfg.ID, StatusConnecting, nil)

	opts, err := m.sessionOptions(cfg)
	if err != nil {
		m.emit(cfg.ID, StatusError, err)
		return err
	}

	engine, err := m.newEngine(opts)
	if err != nil {
		err = fmt.Errorf("creating session for broker %d: %w", cfg.ID, err)
		m.emit(cfg.ID, StatusError, err)
		return err
	}

	h := newHandle(engine)
	if !m.track(cfg.ID, h) {
		_ = engine.Close()
		m.emit(cfg.ID, StatusDisconnected, nil)
		return ErrManagerClosed
	}

	d := &driver{
		id:       cfg.ID,
		handle:   h,
		registry: m.registry,
		sink:     m.sink,
		logger:   m.logger,
	}
	go func() {
		defer m.drivers.Done()
		d.run(m.base)
	}()

	m.logger.Info("broker session started",
		"broker_id", cfg.ID,
		"broker", opts.BrokerURL(),
		"client_id", opts.ClientID,
	)
	return nil
}

// track registers h and counts its driver unless the manager is shut down.
func (m *Manager) track(id int64, h *handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.registry.insert(id, h)
	m.drivers.Add(1)
	return true
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// retire stops the session for id, if any, and waits for its driver to exit.
func (m *Manager) retire(ctx context.Context, id int64) error {
	h, ok := m.registry.handle(id)
	if !ok {
		return nil
	}
	h.signal()
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for previous session of broker %d: %w", id, ctx.Err())
	}
}

// Disconnect signals the session for id to stop and returns immediately.
// It is a no-op when no session exists.
func (m *Manager) Disconnect(id int64) {
	if h, ok := m.registry.handle(id); ok {
		h.signal()
	}
}

// DisconnectWait stops the session for id and waits until its driver has
// exited, so the final Disconnected event has been delivered to the sink
// when it returns. It is a no-op when no session exists.
func (m *Manager) DisconnectWait(ctx context.Context, id int64) error {
	return m.retire(ctx, id)
}

// Publish submits a message to the broker's session.
func (m *Manager) Publish(ctx context.Context, id int64, topic string, payload []byte, qos byte, retain bool) error {
	h, err := m.lookup(id, topic, qos)
	if err != nil {
		return err
	}
	if err := h.engine.Publish(ctx, topic, payload, qos, retain); err != nil {
		return requestError(id, h, err)
	}
	return nil
}

// Subscribe submits a subscription request.
func (m *Manager) Subscribe(ctx context.Context, id int64, topic string, qos byte) error {
	h, err := m.lookup(id, topic, qos)
	if err != nil {
		return err
	}
	if err := h.engine.Subscribe(ctx, topic, qos); err != nil {
		return requestError(id, h, err)
	}
	return nil
}

// Unsubscribe submits an unsubscribe request.
func (m *Manager) Unsubscribe(ctx context.Context, id int64, topic string) error {
	h, err := m.lookup(id, topic, 0)
	if err != nil {
		return err
	}
	if err := h.engine.Unsubscribe(ctx, topic); err != nil {
		return requestError(id, h, err)
	}
	return nil
}

// lookup validates a request and returns the broker's handle. Checks run
// before any network interaction: session, then QoS, then topic.
func (m *Manager) lookup(id int64, topic string, qos byte) (*handle, error) {
	h, ok := m.registry.handle(id)
	if !ok {
		return nil, ErrNotConnected
	}
	if qos > mqtt.MaxQoS {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQoS, qos)
	}
	if topic == "" {
		return nil, ErrInvalidTopic
	}
	return h, nil
}

// requestError classifies an engine rejection. Until the broker has accepted
// the session a rejected request means the session is not connected yet.
func requestError(id int64, h *handle, err error) error {
	if !h.accepted.Load() {
		return fmt.Errorf("%w: broker %d has not accepted the session yet: %w", ErrNotConnected, id, err)
	}
	return &TransportError{Connected: true, Err: err}
}

// IsConnected reports whether a driver is running for id. This includes the
// connecting phase, before the broker has accepted the session.
func (m *Manager) IsConnected(id int64) bool {
	return m.registry.Contains(id)
}

// Connected returns the ids of all brokers with a running driver.
func (m *Manager) Connected() []int64 {
	return m.registry.IDs()
}

// Shutdown stops every session and waits for all drivers to exit or ctx to
// end. Connect fails with ErrManagerClosed afterwards.
//
// Parameters:
//   - ctx: Deadline for the drivers to finish
//
// Returns:
//   - error: nil when every driver exited, ctx.Err() otherwise
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	ids := m.registry.IDs()
	m.mu.Unlock()

	for _, id := range ids {
		m.Disconnect(id)
	}

	done := make(chan struct{})
	go func() {
		m.drivers.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.stop()
		return nil
	case <-ctx.Done():
		m.stop()
		return fmt.Errorf("waiting for broker sessions: %w", ctx.Err())
	}
}

// sessionOptions translates a broker config into engine options.
func (m *Manager) sessionOptions(cfg BrokerConfig) (mqtt.Options, error) {
	level, exact := mqtt.ProtocolVersion(cfg.ProtocolVersion)
	if !exact {
		m.logger.Warn("unsupported protocol version, using 3.1.1",
			"broker_id", cfg.ID,
			"protocol_version", cfg.ProtocolVersion,
		)
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = m.settings.ClientIDPrefix + uuid.NewString()
	}

	opts := mqtt.Options{
		Host:              cfg.Host,
		Port:              cfg.Port,
		ClientID:          clientID,
		ProtocolVersion:   level,
		KeepAlive:         time.Duration(cfg.KeepAliveSeconds) * time.Second,
		CleanSession:      cfg.CleanSession,
		ConnectTimeout:    m.settings.ConnectTimeout,
		DisconnectQuiesce: m.settings.DisconnectQuiesce,
		EventBuffer:       m.settings.EventBuffer,
	}

	if cfg.Username != "" {
		opts.Username = cfg.Username
		opts.Password = cfg.Password
	}

	if cfg.UseTLS {
		tlsCfg, err := mqtt.BuildTLSConfig(mqtt.TLSMaterial{
			CACert:     cfg.CACert,
			ClientCert: cfg.ClientCert,
			ClientKey:  cfg.ClientKey,
		})
		if err != nil {
			return mqtt.Options{}, fmt.Errorf("%w: %w", ErrTLSConfig, err)
		}
		opts.TLS = tlsCfg
	}

	return opts, nil
}

func (m *Manager) emit(id int64, status Status, cause error) {
	ev := StateEvent{
		BrokerID:  id,
		Status:    status,
		Timestamp: time.Now().UTC(),
		Err:       cause,
	}
	if cause != nil {
		ev.Error = cause.Error()
	}
	m.sink.ConnectionStateChanged(ev)
}

// keyedMutex hands out one mutex per broker id. Entries are never removed;
// the set of ids is bounded by the configured brokers.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (k *keyedMutex) lock(id int64) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &sync.Mutex{}
		k.locks[id] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
