package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/mqttdesk/internal/broker"
	"github.com/nerrad567/mqttdesk/internal/connection"
	"github.com/nerrad567/mqttdesk/internal/envvar"
	"github.com/nerrad567/mqttdesk/internal/history"
	"github.com/nerrad567/mqttdesk/internal/infrastructure/config"
	"github.com/nerrad567/mqttdesk/internal/infrastructure/logging"
	"github.com/nerrad567/mqttdesk/internal/subscription"
	"github.com/nerrad567/mqttdesk/internal/template"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// BrokerStore is the broker persistence surface used by the API.
// *broker.Store satisfies it.
type BrokerStore interface {
	List(ctx context.Context) ([]broker.Broker, error)
	Get(ctx context.Context, id int64) (*broker.Broker, error)
	Create(ctx context.Context, b *broker.Broker) error
	Update(ctx context.Context, b *broker.Broker) error
	Delete(ctx context.Context, id int64) error
}

// Sessions is the command surface over live broker sessions.
// *connection.Manager satisfies it.
type Sessions interface {
	Connect(ctx context.Context, cfg connection.BrokerConfig) error
	Disconnect(id int64)
	DisconnectWait(ctx context.Context, id int64) error
	Publish(ctx context.Context, id int64, topic string, payload []byte, qos byte, retain bool) error
	Subscribe(ctx context.Context, id int64, topic string, qos byte) error
	Unsubscribe(ctx context.Context, id int64, topic string) error
	IsConnected(id int64) bool
	Connected() []int64
}

// Subscriptions manages saved subscriptions. *subscription.Restorer
// satisfies it.
type Subscriptions interface {
	List(ctx context.Context, brokerID int64) ([]subscription.Subscription, error)
	Add(ctx context.Context, s *subscription.Subscription) error
	SetActive(ctx context.Context, brokerID, id int64, active bool) (*subscription.Subscription, error)
	Delete(ctx context.Context, brokerID, id int64) error
}

// Templates manages saved publish commands. *template.Library satisfies it.
type Templates interface {
	List(ctx context.Context, brokerID int64, category string) ([]template.Template, error)
	Get(ctx context.Context, brokerID, id int64) (*template.Template, error)
	Create(ctx context.Context, t *template.Template) error
	Update(ctx context.Context, brokerID, id int64, p template.Patch) (*template.Template, error)
	Delete(ctx context.Context, brokerID, id int64) error
	Use(ctx context.Context, brokerID, id int64) (*template.Template, error)
	Categories(ctx context.Context, brokerID int64) ([]string, error)
	Duplicate(ctx context.Context, brokerID, id int64, name string) (*template.Template, error)
	Export(ctx context.Context, brokerID int64) ([]byte, error)
	Import(ctx context.Context, brokerID int64, data []byte) (int, error)
}

// Variables stores the values expanded into {{NAME}} placeholders.
// *envvar.SQLiteRepository satisfies it.
type Variables interface {
	ListByBroker(ctx context.Context, brokerID int64) ([]envvar.Variable, error)
	GetByID(ctx context.Context, id int64) (*envvar.Variable, error)
	Create(ctx context.Context, v *envvar.Variable) error
	Update(ctx context.Context, v *envvar.Variable) error
	Delete(ctx context.Context, id int64) error
	Values(ctx context.Context, brokerID int64) (map[string]string, error)
}

// MessageLog reads and clears message history. *history.SQLiteRepository
// satisfies it.
type MessageLog interface {
	List(ctx context.Context, brokerID int64, limit, offset int) ([]history.Entry, error)
	Clear(ctx context.Context, brokerID int64) (int64, error)
}

// PublishRecorder records outbound messages. *history.Recorder satisfies it.
type PublishRecorder interface {
	RecordPublish(brokerID int64, topic string, payload []byte, format history.Format, qos byte, retain bool)
}

// HealthChecker reports whether a backing service responds.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger

	Brokers       BrokerStore
	Sessions      Sessions
	Subscriptions Subscriptions
	Templates     Templates
	Variables     Variables
	Messages      MessageLog
	Recorder      PublishRecorder // optional
	Database      HealthChecker   // optional

	// Hub must be the same hub registered as a connection sink so that
	// session events reach WebSocket clients. One is created when nil.
	Hub *Hub

	Version string
}

// Server is the HTTP API server for mqttdesk.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	brokers   BrokerStore
	sessions  Sessions
	subs      Subscriptions
	templates Templates
	variables Variables
	messages  MessageLog
	recorder  PublishRecorder
	database  HealthChecker
	hub       *Hub
	version   string

	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Configuration, logger and collaborators; Recorder, Database and
//     Hub are optional
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If a required dependency is missing
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	case deps.Brokers == nil:
		return nil, fmt.Errorf("broker store is required")
	case deps.Sessions == nil:
		return nil, fmt.Errorf("session manager is required")
	case deps.Subscriptions == nil:
		return nil, fmt.Errorf("subscription service is required")
	case deps.Templates == nil:
		return nil, fmt.Errorf("template library is required")
	case deps.Variables == nil:
		return nil, fmt.Errorf("variable store is required")
	case deps.Messages == nil:
		return nil, fmt.Errorf("message log is required")
	}

	hub := deps.Hub
	if hub == nil {
		hub = NewHub(deps.WS, deps.Logger)
	}

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		brokers:   deps.Brokers,
		sessions:  deps.Sessions,
		subs:      deps.Subscriptions,
		templates: deps.Templates,
		variables: deps.Variables,
		messages:  deps.Messages,
		recorder:  deps.Recorder,
		database:  deps.Database,
		hub:       hub,
		version:   deps.Version,
	}, nil
}

// Handler returns the routed HTTP handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start binds the listen address and serves in the background. A bind
// failure (port in use) is returned directly.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server starting", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close gracefully shuts down the API server. It waits up to 10 seconds for
// in-flight requests, then closes remaining connections. WebSocket clients
// are disconnected.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
