package mocks

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/LeonardoBeccarini/pump-actuator/internal/model"
)

// PublisherMock captures published messages in order.
type PublisherMock struct {
	mock.Mock
	mu   sync.Mutex
	sent []model.TelemetryMessage
}

func (p *PublisherMock) Publish(topic, payload string) error {
	args := p.Called(topic, payload)
	if args.Error(0) == nil {
		p.mu.Lock()
		p.sent = append(p.sent, model.TelemetryMessage{Topic: topic, Payload: payload})
		p.mu.Unlock()
	}
	return args.Error(0)
}

func (p *PublisherMock) Sent() []model.TelemetryMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.TelemetryMessage, len(p.sent))
	copy(out, p.sent)
	return out
}

type ReadinessMock struct {
	mock.Mock
}

func (r *ReadinessMock) IsReady() bool {
	args := r.Called()
	return args.Bool(0)
}
