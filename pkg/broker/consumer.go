package broker

import (
	"strconv"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
)

// MessageHandler receives inbound messages on the client's network goroutine.
type MessageHandler func(topic string, payload []byte)

// Subscribe registers handler for topic. QoS 1 redeliveries that carry an
// already seen message id are dropped before reaching the handler.
func (s *Session) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if !s.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	token := s.client.Subscribe(topic, qos, s.wrap(handler))
	if !token.WaitTimeout(s.publishTimeout()) {
		return errors.Wrapf(ErrSubscribeFailed, "topic %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(ErrSubscribeFailed, "topic %s: %v", topic, err)
	}
	s.log.Infof("successfully subscribed to topic %s", topic)
	return nil
}

func (s *Session) wrap(handler MessageHandler) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		if !s.accept(msg.Duplicate(), msg.MessageID()) {
			s.log.Debugf("dropping redelivered message %d on %s", msg.MessageID(), msg.Topic())
			return
		}
		handler(msg.Topic(), msg.Payload())
	}
}

// accept records every QoS>0 message id so a later duplicate can be recognised.
// A new message restarts the TTL of the id it reuses.
func (s *Session) accept(duplicate bool, id uint16) bool {
	if id == 0 {
		return true
	}
	key := strconv.Itoa(int(id))
	if !duplicate {
		s.deduper.Mark(key)
		return true
	}
	return s.deduper.ShouldProcess(key)
}
