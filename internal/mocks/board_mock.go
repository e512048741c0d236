package mocks

import (
	"sync"

	"github.com/stretchr/testify/mock"
)

type ReaderMock struct {
	mock.Mock
}

func (r *ReaderMock) ReadRaw(channel int) (int, error) {
	args := r.Called(channel)
	return args.Int(0), args.Error(1)
}

// RelayMock records every level written so tests can assert the final state.
type RelayMock struct {
	mock.Mock
	mu     sync.Mutex
	writes []bool
}

func (r *RelayMock) SetRelay(on bool) error {
	r.mu.Lock()
	r.writes = append(r.writes, on)
	r.mu.Unlock()
	args := r.Called(on)
	return args.Error(0)
}

func (r *RelayMock) Writes() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bool, len(r.writes))
	copy(out, r.writes)
	return out
}

// IsOn returns the last level written, false if never written.
func (r *RelayMock) IsOn() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.writes) == 0 {
		return false
	}
	return r.writes[len(r.writes)-1]
}
