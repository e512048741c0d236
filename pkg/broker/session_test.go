package broker

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/LeonardoBeccarini/pump-actuator/pkg/dedup"
	"github.com/LeonardoBeccarini/pump-actuator/pkg/logging"
)

func newTestSession() *Session {
	return NewSession(Config{
		Host:           "127.0.0.1",
		Port:           1,
		ClientID:       "test",
		ConnectTimeout: 50 * time.Millisecond,
		PublishTimeout: 50 * time.Millisecond,
	}, logging.Discard())
}

func TestPublishWithoutConnectionFails(t *testing.T) {
	s := newTestSession()

	err := s.Publish("pompe/etat", "ON")
	assert.True(t, errors.Is(err, ErrNotConnected))
	assert.False(t, s.IsConnected())
}

func TestSubscribeWithoutConnectionFails(t *testing.T) {
	s := newTestSession()

	err := s.Subscribe("pompe/commande", 1, func(string, []byte) {})
	assert.True(t, errors.Is(err, ErrNotConnected))
}

func TestAcceptDropsOnlyRedeliveredIDs(t *testing.T) {
	s := &Session{deduper: dedup.New(time.Minute, 16)}

	assert.True(t, s.accept(false, 0), "qos0 messages carry no id")
	assert.True(t, s.accept(true, 0))
	assert.True(t, s.accept(false, 5))
	assert.False(t, s.accept(true, 5), "duplicate flag with a seen id")
	assert.True(t, s.accept(false, 5), "id reused by a new message")
	assert.True(t, s.accept(true, 6), "duplicate of a message never delivered")
}

func TestReusedIDRestartsRedeliveryWindow(t *testing.T) {
	s := &Session{deduper: dedup.New(200*time.Millisecond, 16)}

	assert.True(t, s.accept(false, 9))
	time.Sleep(120 * time.Millisecond)
	assert.True(t, s.accept(false, 9), "new message reusing the id")
	time.Sleep(120 * time.Millisecond)
	// past the first message's TTL, inside the second one's
	assert.False(t, s.accept(true, 9))
}

func TestConnectToUnreachableBrokerReportsError(t *testing.T) {
	s := newTestSession()

	pending := s.Connect()
	if assert.True(t, pending.WaitTimeout(2*time.Second)) {
		assert.Error(t, pending.Error())
	}
	assert.False(t, s.IsConnected())
}
