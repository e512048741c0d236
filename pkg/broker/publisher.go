package broker

import (
	"github.com/pkg/errors"
)

// Publish sends payload at QoS 0 (best effort) and waits a bounded time for
// the client to hand it to the network.
func (s *Session) Publish(topic, payload string) error {
	if !s.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	token := s.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(s.publishTimeout()) {
		return errors.Wrapf(ErrPublishFailed, "topic %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(ErrPublishFailed, "topic %s: %v", topic, err)
	}
	s.log.Debugf("published '%s' to topic '%s'", payload, topic)
	return nil
}
