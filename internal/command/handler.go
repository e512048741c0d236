// Package command turns pump commands from the bus into interlock requests
// and reports the resulting state.
package command

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/LeonardoBeccarini/pump-actuator/internal/model"
)

// Outcomes reported to the recorder.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFault    = "fault"
	OutcomeDropped  = "dropped"
)

type Pump interface {
	RequestPump(on bool) (model.PumpState, error)
}

type Publisher interface {
	Publish(topic, payload string) error
}

type Readiness interface {
	IsReady() bool
}

type Config struct {
	CommandTopic string
	StateTopic   string
	AlertPayload string
}

// Handler runs on the broker client's delivery goroutine. It never touches
// the connection; when the link is not ready it only acts on TurnOff.
type Handler struct {
	cfg    Config
	pump   Pump
	pub    Publisher
	ready  Readiness
	log    *logrus.Entry
	record func(cmd model.Command, outcome string)
}

func NewHandler(cfg Config, pump Pump, pub Publisher, ready Readiness, log *logrus.Entry) *Handler {
	return &Handler{cfg: cfg, pump: pump, pub: pub, ready: ready, log: log}
}

// SetRecorder registers a hook called once per decoded command.
func (h *Handler) SetRecorder(fn func(cmd model.Command, outcome string)) {
	h.record = fn
}

// OnMessage matches broker.MessageHandler.
func (h *Handler) OnMessage(topic string, payload []byte) {
	if topic != h.cfg.CommandTopic {
		return
	}
	cmd, err := model.ParseCommand(payload)
	if err != nil {
		h.log.Debugf("ignoring payload %q on %s", payload, topic)
		return
	}

	switch cmd {
	case model.TurnOn:
		h.turnOn()
	case model.TurnOff:
		h.turnOff()
	}
}

func (h *Handler) turnOn() {
	if !h.ready.IsReady() {
		h.log.Warn("dropping pump ON: link not ready")
		h.recordOutcome(model.TurnOn, OutcomeDropped)
		return
	}
	state, err := h.pump.RequestPump(true)
	switch {
	case errors.Is(err, model.ErrInterlockRejected):
		h.log.Warn("pump ON refused: water level too low")
		h.recordOutcome(model.TurnOn, OutcomeRejected)
		h.publishState(h.cfg.AlertPayload)
	case err != nil:
		h.log.Errorf("pump ON failed: %v", err)
		h.recordOutcome(model.TurnOn, OutcomeFault)
		h.publishState(string(state))
	default:
		h.log.Info("pump on")
		h.recordOutcome(model.TurnOn, OutcomeAccepted)
		h.publishState(string(state))
	}
}

func (h *Handler) turnOff() {
	state, err := h.pump.RequestPump(false)
	if err != nil {
		h.log.Errorf("pump OFF: %v", err)
		h.recordOutcome(model.TurnOff, OutcomeFault)
	} else {
		h.log.Info("pump off")
		h.recordOutcome(model.TurnOff, OutcomeAccepted)
	}
	h.publishState(string(state))
}

// publishState is best effort and skipped while the link is down.
func (h *Handler) publishState(payload string) {
	if !h.ready.IsReady() {
		h.log.Debugf("state %q not published: link not ready", payload)
		return
	}
	if err := h.pub.Publish(h.cfg.StateTopic, payload); err != nil {
		h.log.Warnf("state %q not published: %v", payload, err)
	}
}

func (h *Handler) recordOutcome(cmd model.Command, outcome string) {
	if h.record != nil {
		h.record(cmd, outcome)
	}
}
