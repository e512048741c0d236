package messages

import (
	"time"

	"github.com/LeonardoBeccarini/pump-actuator/internal/model/entities"
)

// PumpEventKind classifies entries written to the event sink.
type PumpEventKind string

const (
	EventStateChange    PumpEventKind = "pump.state_change"
	EventInterlockTrip  PumpEventKind = "interlock.trip"
	EventInterlockClear PumpEventKind = "interlock.clear"
	EventRejected       PumpEventKind = "interlock.rejected"
)

// PumpEvent records a transition of the pump/interlock record.
type PumpEvent struct {
	EventID   string                   `json:"event_id"`
	Kind      PumpEventKind            `json:"kind"`
	Source    string                   `json:"source"` // command | interlock | shutdown
	Pump      entities.PumpState       `json:"pump"`
	Interlock entities.InterlockStatus `json:"interlock"`
	Level     float64                  `json:"level_pct"`
	Timestamp time.Time                `json:"timestamp"`
}
