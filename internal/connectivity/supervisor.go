// Package connectivity keeps the transport and the broker session up, in
// that order, and publishes a single readiness signal for the rest of the
// actuator.
package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/pump-actuator/internal/model"
	"github.com/LeonardoBeccarini/pump-actuator/pkg/broker"
)

var errNotYet = errors.New("not yet")

// Session is the broker session the supervisor drives. *broker.Session
// satisfies it.
type Session interface {
	Connect() broker.Pending
	IsConnected() bool
	Subscribe(topic string, qos byte, handler broker.MessageHandler) error
}

type Config struct {
	// PollInterval spaces transport polls and bounds each session wait.
	PollInterval time.Duration
	// MaxPolls bounds how long one tick waits on a connect request.
	MaxPolls int

	CommandTopic string
	CommandQoS   byte

	// BreakerFailures consecutive failed session connects open the breaker
	// for BreakerCooldown; ticks in that window skip the attempt.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Status is a point-in-time view for health reporting.
type Status struct {
	Transport         model.ConnectionState `json:"transport"`
	Session           model.ConnectionState `json:"session"`
	Ready             bool                  `json:"ready"`
	TransportAttempts uint64                `json:"transport_attempts"`
	SessionAttempts   uint64                `json:"session_attempts"`
}

// Supervisor brings the transport and the broker session up in order and
// keeps the command subscription in place while both are up.
type Supervisor struct {
	cfg       Config
	transport Transport
	session   Session
	handler   broker.MessageHandler
	breaker   *gobreaker.CircuitBreaker
	log       *logrus.Entry

	tick sync.Mutex // one reconnection sequence at a time

	mu             sync.RWMutex
	transportState model.ConnectionState
	sessionState   model.ConnectionState
	subscribed     bool // cleared whenever the session leaves Connected

	transportAttempts atomic.Uint64
	sessionAttempts   atomic.Uint64
}

// NewSupervisor starts with both layers Disconnected. handler receives the
// messages of the command subscription made after every successful connect.
func NewSupervisor(cfg Config, transport Transport, session Session, handler broker.MessageHandler, log *logrus.Entry) *Supervisor {
	if cfg.MaxPolls < 1 {
		cfg.MaxPolls = 1
	}
	if cfg.BreakerFailures < 1 {
		cfg.BreakerFailures = 1
	}
	s := &Supervisor{
		cfg:            cfg,
		transport:      transport,
		session:        session,
		handler:        handler,
		log:            log,
		transportState: model.Disconnected,
		sessionState:   model.Disconnected,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mqtt-session",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Infof("breaker %s: %s -> %s", name, from, to)
		},
	})
	return s
}

// Tick runs one bounded reconnection step: transport first, then the session.
// It returns nil when both layers are up after the step.
func (s *Supervisor) Tick(ctx context.Context) error {
	s.tick.Lock()
	defer s.tick.Unlock()

	if !s.transport.Ready() {
		s.OnTransportLost()
		if err := s.connectTransport(ctx); err != nil {
			return err
		}
	} else {
		s.setTransport(model.Connected)
	}

	if s.session.IsConnected() {
		// up already, possibly from a connect that outlived an earlier tick
		s.setSession(model.Connected)
		s.ensureSubscribed()
		return nil
	}
	return s.connectSession(ctx)
}

func (s *Supervisor) connectTransport(ctx context.Context) error {
	s.setTransport(model.Connecting)
	s.transportAttempts.Add(1)
	s.transport.Connect()

	b := backoff.NewConstantBackOff(s.cfg.PollInterval)
	if err := s.poll(ctx, b, s.transport.Ready); err != nil {
		s.setTransport(model.Disconnected)
		return errors.Wrapf(model.ErrTransportUnavailable, "not ready after %d polls", s.cfg.MaxPolls)
	}
	s.setTransport(model.Connected)
	return nil
}

func (s *Supervisor) connectSession(ctx context.Context) error {
	s.setSession(model.Connecting)
	_, err := s.breaker.Execute(func() (interface{}, error) {
		s.sessionAttempts.Add(1)
		pending := s.session.Connect()
		wait := func() bool { return pending.WaitTimeout(s.cfg.PollInterval) }
		if err := s.poll(ctx, &backoff.ZeroBackOff{}, wait); err != nil {
			return nil, errors.Wrap(model.ErrSessionUnavailable, "connect timed out")
		}
		if err := pending.Error(); err != nil {
			return nil, errors.Wrap(model.ErrSessionUnavailable, err.Error())
		}
		return nil, nil
	})
	if err != nil {
		s.setSession(model.Disconnected)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return errors.Wrap(model.ErrSessionUnavailable, "connect attempts suspended")
		}
		return err
	}
	s.setSession(model.Connected)
	s.ensureSubscribed()
	return nil
}

// poll retries cond up to MaxPolls times in total.
func (s *Supervisor) poll(ctx context.Context, b backoff.BackOff, cond func() bool) error {
	op := func() error {
		if cond() {
			return nil
		}
		return errNotYet
	}
	bounded := backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.cfg.MaxPolls-1)), ctx)
	return backoff.Retry(op, bounded)
}

// ensureSubscribed places the command subscription once per connected
// session. Only Tick calls it, so two subscribes never race.
func (s *Supervisor) ensureSubscribed() {
	if s.cfg.CommandTopic == "" {
		return
	}
	s.mu.RLock()
	done := s.subscribed
	s.mu.RUnlock()
	if done {
		return
	}
	if err := s.session.Subscribe(s.cfg.CommandTopic, s.cfg.CommandQoS, s.handler); err != nil {
		s.log.Warnf("command subscription failed, retrying on next tick: %v", err)
		return
	}
	s.mu.Lock()
	s.subscribed = s.sessionState == model.Connected
	s.mu.Unlock()
}

// OnSessionUp records a session reported up by the broker client.
func (s *Supervisor) OnSessionUp() {
	s.setSession(model.Connected)
}

// OnSessionLost records a dropped session. Repeated reports are no-ops.
func (s *Supervisor) OnSessionLost(err error) {
	if s.setSession(model.Disconnected) {
		s.log.Warnf("session lost: %v", err)
	}
}

// OnTransportLost marks both layers down; the session cannot outlive the link.
func (s *Supervisor) OnTransportLost() {
	s.mu.Lock()
	changed := s.transportState != model.Disconnected
	s.transportState = model.Disconnected
	s.sessionState = model.Disconnected
	s.subscribed = false
	s.mu.Unlock()
	if changed {
		s.log.Warn("transport lost")
	}
}

// IsReady is true only while both the transport and the session are up.
func (s *Supervisor) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transportState == model.Connected && s.sessionState == model.Connected
}

// Status reports both layers and the attempt counters.
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Transport:         s.transportState,
		Session:           s.sessionState,
		Ready:             s.transportState == model.Connected && s.sessionState == model.Connected,
		TransportAttempts: s.transportAttempts.Load(),
		SessionAttempts:   s.sessionAttempts.Load(),
	}
}

func (s *Supervisor) setTransport(state model.ConnectionState) bool {
	s.mu.Lock()
	changed := s.transportState != state
	s.transportState = state
	s.mu.Unlock()
	if changed {
		s.log.Infof("transport %s", state)
	}
	return changed
}

func (s *Supervisor) setSession(state model.ConnectionState) bool {
	s.mu.Lock()
	changed := s.sessionState != state
	s.sessionState = state
	if state != model.Connected {
		s.subscribed = false
	}
	s.mu.Unlock()
	if changed {
		s.log.Infof("session %s", state)
	}
	return changed
}
