package command

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/pump-actuator/internal/interlock"
	"github.com/LeonardoBeccarini/pump-actuator/internal/mocks"
	"github.com/LeonardoBeccarini/pump-actuator/internal/model"
	"github.com/LeonardoBeccarini/pump-actuator/pkg/logging"
)

const (
	cmdTopic   = "pompe/commande"
	stateTopic = "pompe/etat"
	alert      = "ALERT: water level too low"
)

type fixture struct {
	h      *Handler
	il     *interlock.Interlock
	relay  *mocks.RelayMock
	pub    *mocks.PublisherMock
	ready  *mocks.ReadinessMock
	record []string
}

func newFixture(t *testing.T, ready bool) *fixture {
	t.Helper()
	f := &fixture{
		relay: &mocks.RelayMock{},
		pub:   &mocks.PublisherMock{},
		ready: &mocks.ReadinessMock{},
	}
	f.relay.On("SetRelay", mock.Anything).Return(nil)
	f.pub.On("Publish", stateTopic, mock.Anything).Return(nil)
	f.ready.On("IsReady").Return(ready)
	f.il = interlock.New(model.Thresholds{Dry: 20, Wet: 60, Direction: 1}, f.relay, false, logging.Discard())
	f.h = NewHandler(Config{CommandTopic: cmdTopic, StateTopic: stateTopic, AlertPayload: alert},
		f.il, f.pub, f.ready, logging.Discard())
	f.h.SetRecorder(func(cmd model.Command, outcome string) {
		f.record = append(f.record, string(cmd)+":"+outcome)
	})
	return f
}

func TestRoundTripOnThenOff(t *testing.T) {
	f := newFixture(t, true)

	f.h.OnMessage(cmdTopic, []byte("ON"))
	assert.True(t, f.relay.IsOn())
	f.h.OnMessage(cmdTopic, []byte("OFF"))

	assert.Equal(t, []model.TelemetryMessage{
		{Topic: stateTopic, Payload: "ON"},
		{Topic: stateTopic, Payload: "OFF"},
	}, f.pub.Sent())
	assert.False(t, f.relay.IsOn())
	assert.Equal(t, model.PumpOff, f.il.Snapshot().Pump)
	assert.Equal(t, []string{"ON:accepted", "OFF:accepted"}, f.record)
}

func TestTurnOnWhileBlockedPublishesAlert(t *testing.T) {
	f := newFixture(t, true)
	f.il.Evaluate(0)
	writes := len(f.relay.Writes())

	f.h.OnMessage(cmdTopic, []byte("ON"))

	assert.Equal(t, []model.TelemetryMessage{{Topic: stateTopic, Payload: alert}}, f.pub.Sent())
	assert.Len(t, f.relay.Writes(), writes, "relay must not be touched")
	assert.Equal(t, model.PumpOff, f.il.Snapshot().Pump)
	assert.Equal(t, []string{"ON:rejected"}, f.record)
}

func TestUnrecognizedPayloadIsIgnored(t *testing.T) {
	f := newFixture(t, true)
	writes := len(f.relay.Writes())

	for _, p := range []string{"toggle", "on", " ON", "", "OFF\n"} {
		f.h.OnMessage(cmdTopic, []byte(p))
	}

	assert.Empty(t, f.pub.Sent())
	assert.Len(t, f.relay.Writes(), writes)
	assert.Empty(t, f.record)
}

func TestOtherTopicsAreIgnored(t *testing.T) {
	f := newFixture(t, true)

	f.h.OnMessage("capteur/sol", []byte("ON"))

	assert.Empty(t, f.pub.Sent())
	assert.False(t, f.relay.IsOn())
}

func TestNotReadyDropsOnButHonorsOff(t *testing.T) {
	f := newFixture(t, false)

	f.h.OnMessage(cmdTopic, []byte("ON"))
	assert.False(t, f.relay.IsOn())

	f.h.OnMessage(cmdTopic, []byte("OFF"))
	assert.Equal(t, model.PumpOff, f.il.Snapshot().Pump)
	assert.Empty(t, f.pub.Sent(), "nothing is published while the link is down")
	assert.Equal(t, []string{"ON:dropped", "OFF:accepted"}, f.record)
}

func TestPublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, true)
	f.pub.ExpectedCalls = nil
	f.pub.On("Publish", stateTopic, mock.Anything).Return(model.ErrPublishFailed)

	f.h.OnMessage(cmdTopic, []byte("ON"))

	assert.True(t, f.relay.IsOn())
	assert.Empty(t, f.pub.Sent())
}

func TestRelayFaultReportsActualState(t *testing.T) {
	f := newFixture(t, true)
	f.relay.ExpectedCalls = nil
	f.relay.On("SetRelay", true).Return(errors.New("gpio busy"))
	f.relay.On("SetRelay", false).Return(nil)

	f.h.OnMessage(cmdTopic, []byte("ON"))

	require.Len(t, f.pub.Sent(), 1)
	assert.Equal(t, "OFF", f.pub.Sent()[0].Payload)
	assert.Equal(t, []string{"ON:fault"}, f.record)
}
