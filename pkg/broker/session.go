package broker

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/LeonardoBeccarini/pump-actuator/pkg/dedup"
)

var (
	ErrNotConnected    = errors.New("mqtt session not connected")
	ErrPublishFailed   = errors.New("mqtt publish failed")
	ErrSubscribeFailed = errors.New("mqtt subscribe failed")
)

const (
	availabilityOnline  = "online"
	availabilityOffline = "offline"
	disconnectQuiesceMs = 250
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string

	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	PublishTimeout time.Duration

	// AvailabilityTopic carries a retained "online"/"offline" marker; empty disables it.
	AvailabilityTopic string
}

// Pending is an in-flight broker operation. mqtt.Token satisfies it.
type Pending interface {
	WaitTimeout(d time.Duration) bool
	Error() error
}

// Session owns the MQTT client. Automatic reconnection is disabled: whoever
// calls Connect owns the retry policy.
type Session struct {
	cfg     Config
	client  mqtt.Client
	log     *logrus.Entry
	deduper *dedup.Deduper

	mu     sync.RWMutex
	onUp   func()
	onLost func(error)
}

func NewSession(cfg Config, log *logrus.Entry) *Session {
	s := &Session{
		cfg:     cfg,
		log:     log,
		deduper: dedup.New(2*time.Minute, 1024),
	}
	s.client = mqtt.NewClient(s.options())
	return s
}

func (s *Session) options() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", s.cfg.Host, s.cfg.Port))
	opts.SetUsername(s.cfg.User)
	opts.SetPassword(s.cfg.Password)
	opts.SetClientID(s.cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	if s.cfg.KeepAlive > 0 {
		opts.SetKeepAlive(s.cfg.KeepAlive)
	}
	if s.cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(s.cfg.ConnectTimeout)
	}
	if s.cfg.AvailabilityTopic != "" {
		opts.SetWill(s.cfg.AvailabilityTopic, availabilityOffline, 1, true)
	}
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		s.log.Infof("connected to MQTT broker at %s:%d", s.cfg.Host, s.cfg.Port)
		s.publishAvailability(availabilityOnline)
		s.mu.RLock()
		up := s.onUp
		s.mu.RUnlock()
		if up != nil {
			up()
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.log.Warnf("MQTT connection lost: %v", err)
		s.mu.RLock()
		lost := s.onLost
		s.mu.RUnlock()
		if lost != nil {
			lost(err)
		}
	})
	return opts
}

// SetNotifier registers the connection-state callbacks. They run on the
// client's network goroutine and must not block.
func (s *Session) SetNotifier(onUp func(), onLost func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUp = onUp
	s.onLost = onLost
}

// Connect issues a connection request and returns without waiting for it.
func (s *Session) Connect() Pending {
	return s.client.Connect()
}

func (s *Session) IsConnected() bool {
	return s.client.IsConnectionOpen()
}

// Close publishes the offline marker and disconnects.
func (s *Session) Close() {
	if !s.client.IsConnected() {
		return
	}
	s.publishAvailability(availabilityOffline)
	s.client.Disconnect(disconnectQuiesceMs)
	s.log.Info("MQTT connection closed")
}

func (s *Session) publishAvailability(state string) {
	if s.cfg.AvailabilityTopic == "" {
		return
	}
	token := s.client.Publish(s.cfg.AvailabilityTopic, 1, true, state)
	if !token.WaitTimeout(s.publishTimeout()) || token.Error() != nil {
		s.log.Warnf("availability %q not published on %s", state, s.cfg.AvailabilityTopic)
	}
}

func (s *Session) publishTimeout() time.Duration {
	if s.cfg.PublishTimeout > 0 {
		return s.cfg.PublishTimeout
	}
	return 2 * time.Second
}
