package subscription

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/mqttdesk/internal/connection"
)

// Logger defines the logging interface used by the Restorer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Subscriber submits subscription requests to live sessions.
// connection.Manager satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, id int64, topic string, qos byte) error
	Unsubscribe(ctx context.Context, id int64, topic string) error
}

const restoreTimeout = 30 * time.Second

// Restorer manages saved subscriptions and keeps live sessions in step with
// them. It implements connection.Sink.
type Restorer struct {
	repo   Repository
	client Subscriber
	logger Logger

	mu        sync.Mutex
	connected map[int64]bool

	restores sync.WaitGroup
}

// NewRestorer creates a Restorer. The subscriber is usually the
// connection.Manager that delivers events to this Restorer, so it may be set
// after construction with SetSubscriber.
func NewRestorer(repo Repository, client Subscriber) *Restorer {
	return &Restorer{
		repo:      repo,
		client:    client,
		logger:    noopLogger{},
		connected: make(map[int64]bool),
	}
}

// SetLogger sets the logger for the restorer.
func (r *Restorer) SetLogger(logger Logger) {
	r.logger = logger
}

// SetSubscriber sets the client used for live requests. Call before any
// session is started.
func (r *Restorer) SetSubscriber(client Subscriber) {
	r.client = client
}

// ConnectionStateChanged implements connection.Sink. A connected event
// starts a background restore of the broker's active subscriptions.
func (r *Restorer) ConnectionStateChanged(ev connection.StateEvent) {
	r.mu.Lock()
	was := r.connected[ev.BrokerID]
	if ev.Status == connection.StatusConnected {
		r.connected[ev.BrokerID] = true
	} else {
		delete(r.connected, ev.BrokerID)
	}
	r.mu.Unlock()

	if ev.Status == connection.StatusConnected && !was {
		r.restores.Add(1)
		go func() {
			defer r.restores.Done()
			r.restore(ev.BrokerID)
		}()
	}
}

// MessageReceived implements connection.Sink.
func (r *Restorer) MessageReceived(connection.Message) {}

// Wait blocks until every in-flight restore has finished.
func (r *Restorer) Wait() {
	r.restores.Wait()
}

func (r *Restorer) restore(brokerID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()

	subs, err := r.repo.ListByBroker(ctx, brokerID)
	if err != nil {
		r.logger.Warn("loading saved subscriptions failed", "broker_id", brokerID, "error", err)
		return
	}

	restored := 0
	for _, s := range subs {
		if !s.IsActive {
			continue
		}
		if err := r.client.Subscribe(ctx, brokerID, s.Topic, s.QoS); err != nil {
			if errors.Is(err, connection.ErrNotConnected) {
				r.logger.Debug("session ended during restore", "broker_id", brokerID)
				return
			}
			r.logger.Warn("restoring subscription failed",
				"broker_id", brokerID,
				"topic", s.Topic,
				"error", err,
			)
			continue
		}
		restored++
	}
	if restored > 0 {
		r.logger.Info("subscriptions restored", "broker_id", brokerID, "count", restored)
	}
}

func (r *Restorer) isConnected(brokerID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected[brokerID]
}

// List returns the broker's saved subscriptions.
func (r *Restorer) List(ctx context.Context, brokerID int64) ([]Subscription, error) {
	return r.repo.ListByBroker(ctx, brokerID)
}

// Add saves s. An active subscription is also sent to the broker when its
// session is connected; a failure there is returned after the record is
// saved.
func (r *Restorer) Add(ctx context.Context, s *Subscription) error {
	if err := Validate(s); err != nil {
		return err
	}
	if err := r.repo.Create(ctx, s); err != nil {
		return err
	}
	if s.IsActive && r.isConnected(s.BrokerID) {
		if err := r.client.Subscribe(ctx, s.BrokerID, s.Topic, s.QoS); err != nil {
			return fmt.Errorf("subscribing %q: %w", s.Topic, err)
		}
	}
	return nil
}

// SetActive toggles a saved subscription and applies the change to a
// connected session. brokerID scopes the lookup.
func (r *Restorer) SetActive(ctx context.Context, brokerID, id int64, active bool) (*Subscription, error) {
	s, err := r.owned(ctx, brokerID, id)
	if err != nil {
		return nil, err
	}
	if err := r.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	changed := s.IsActive != active
	s.IsActive = active

	if changed && r.isConnected(brokerID) {
		if active {
			err = r.client.Subscribe(ctx, brokerID, s.Topic, s.QoS)
		} else {
			err = r.client.Unsubscribe(ctx, brokerID, s.Topic)
		}
		if err != nil {
			return s, fmt.Errorf("applying %q to session: %w", s.Topic, err)
		}
	}
	return s, nil
}

// Delete removes a saved subscription, unsubscribing a connected session
// first when it was active.
func (r *Restorer) Delete(ctx context.Context, brokerID, id int64) error {
	s, err := r.owned(ctx, brokerID, id)
	if err != nil {
		return err
	}
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.IsActive && r.isConnected(brokerID) {
		if err := r.client.Unsubscribe(ctx, brokerID, s.Topic); err != nil {
			return fmt.Errorf("unsubscribing %q: %w", s.Topic, err)
		}
	}
	return nil
}

func (r *Restorer) owned(ctx context.Context, brokerID, id int64) (*Subscription, error) {
	s, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.BrokerID != brokerID {
		return nil, ErrSubscriptionNotFound
	}
	return s, nil
}
