package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/LeonardoBeccarini/pump-actuator/pkg/broker"
)

type TransportMock struct {
	mock.Mock
}

func (t *TransportMock) Connect() {
	t.Called()
}

func (t *TransportMock) Ready() bool {
	args := t.Called()
	return args.Bool(0)
}

type SessionMock struct {
	mock.Mock
}

func (s *SessionMock) Connect() broker.Pending {
	args := s.Called()
	return args.Get(0).(broker.Pending)
}

func (s *SessionMock) IsConnected() bool {
	args := s.Called()
	return args.Bool(0)
}

func (s *SessionMock) Subscribe(topic string, qos byte, handler broker.MessageHandler) error {
	args := s.Called(topic, qos, handler)
	return args.Error(0)
}

// Pending is a canned connect result: it completes after Polls waits.
type Pending struct {
	Polls int
	Err   error
	waits int
}

func (p *Pending) WaitTimeout(time.Duration) bool {
	p.waits++
	return p.Polls >= 0 && p.waits >= p.Polls
}

func (p *Pending) Error() error { return p.Err }

func (p *Pending) Waits() int { return p.waits }

type SupervisorMock struct {
	mock.Mock
}

func (s *SupervisorMock) Tick(ctx context.Context) error {
	args := s.Called(ctx)
	return args.Error(0)
}

func (s *SupervisorMock) IsReady() bool {
	args := s.Called()
	return args.Bool(0)
}
