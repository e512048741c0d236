package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/pump-actuator/internal/interlock"
	"github.com/LeonardoBeccarini/pump-actuator/internal/mocks"
	"github.com/LeonardoBeccarini/pump-actuator/internal/model"
	"github.com/LeonardoBeccarini/pump-actuator/internal/sensor"
	"github.com/LeonardoBeccarini/pump-actuator/internal/telemetry"
	"github.com/LeonardoBeccarini/pump-actuator/pkg/logging"
)

const (
	stateTopic = "pompe/etat"
	alert      = "ALERT: water level too low"
)

var zones = model.Thresholds{Dry: 20, Wet: 60, Direction: 1}

type fixture struct {
	s      *Scheduler
	il     *interlock.Interlock
	relay  *mocks.RelayMock
	reader *mocks.ReaderMock
	sup    *mocks.SupervisorMock
	pub    *mocks.PublisherMock
}

func newFixture(t *testing.T, ready bool) *fixture {
	t.Helper()
	f := &fixture{
		relay:  &mocks.RelayMock{},
		reader: &mocks.ReaderMock{},
		sup:    &mocks.SupervisorMock{},
		pub:    &mocks.PublisherMock{},
	}
	f.relay.On("SetRelay", mock.Anything).Return(nil)
	f.pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	f.sup.On("IsReady").Return(ready)
	if ready {
		f.sup.On("Tick", mock.Anything).Return(nil)
	} else {
		f.sup.On("Tick", mock.Anything).Return(model.ErrTransportUnavailable)
	}

	water := model.Sensor{Name: "water", Channel: 4, Kind: model.KindZone, Low: 0, High: 4095, Precision: 1}
	gw := sensor.NewGateway(f.reader, []model.Sensor{water}, zones)
	f.il = interlock.New(zones, f.relay, false, logging.Discard())
	tel := telemetry.NewPublisher(telemetry.Config{}, gw, f.pub, f.sup, f.il, logging.Discard())
	f.s = New(Config{
		Interval:     time.Millisecond,
		LevelSensor:  "water",
		StateTopic:   stateTopic,
		AlertPayload: alert,
	}, f.sup, f.il, gw, tel, f.pub, logging.Discard())
	return f
}

func TestTripDuringStepPublishesAlert(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.il.RequestPump(true)
	require.NoError(t, err)
	f.reader.On("ReadRaw", 4).Return(0, nil)

	res := f.s.Step(context.Background())

	assert.True(t, res.Evaluation.Tripped)
	assert.False(t, f.relay.IsOn())
	snap := f.il.Snapshot()
	assert.Equal(t, model.PumpOff, snap.Pump)
	assert.Equal(t, model.InterlockBlocked, snap.Interlock)
	assert.Contains(t, f.pub.Sent(), model.TelemetryMessage{Topic: stateTopic, Payload: alert})
}

func TestRefillClearsBlockWithoutRelayChange(t *testing.T) {
	f := newFixture(t, true)
	f.reader.On("ReadRaw", 4).Return(0, nil).Once()
	f.s.Step(context.Background())
	writes := len(f.relay.Writes())

	f.reader.On("ReadRaw", 4).Return(4095, nil)
	res := f.s.Step(context.Background())

	assert.Equal(t, model.InterlockClear, res.Evaluation.Status)
	assert.True(t, res.Evaluation.Changed)
	assert.Len(t, f.relay.Writes(), writes)
	assert.NotContains(t, f.pub.Sent(), model.TelemetryMessage{Topic: stateTopic, Payload: alert})
}

func TestInterlockRunsWhileLinkDown(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.il.RequestPump(true)
	require.NoError(t, err)
	f.reader.On("ReadRaw", 4).Return(0, nil)

	res := f.s.Step(context.Background())

	assert.True(t, res.Evaluation.Tripped)
	assert.True(t, errors.Is(res.ConnErr, model.ErrTransportUnavailable))
	assert.True(t, res.Telemetry.Skipped)
	assert.Empty(t, f.pub.Sent())
	assert.False(t, f.relay.IsOn())
}

func TestLevelReadFailureLeavesInterlockAlone(t *testing.T) {
	f := newFixture(t, true)
	f.reader.On("ReadRaw", 4).Return(0, errors.New("adc timeout"))

	res := f.s.Step(context.Background())

	assert.False(t, res.Evaluated)
	assert.Equal(t, model.InterlockClear, f.il.Snapshot().Interlock)
	f.sup.AssertCalled(t, "Tick", mock.Anything)
}

func TestRunSwitchesPumpOffOnShutdown(t *testing.T) {
	f := newFixture(t, true)
	f.reader.On("ReadRaw", 4).Return(4095, nil)
	_, err := f.il.RequestPump(true)
	require.NoError(t, err)

	steps := make(chan StepResult, 16)
	f.s.SetAfterStep(func(r StepResult) {
		select {
		case steps <- r:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.s.Run(ctx) }()

	<-steps
	<-steps
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, model.PumpOff, f.il.Snapshot().Pump)
	assert.False(t, f.relay.IsOn())
}
