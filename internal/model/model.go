package model

import (
	"github.com/LeonardoBeccarini/pump-actuator/internal/model/entities"
	"github.com/LeonardoBeccarini/pump-actuator/internal/model/messages"
)

// Aliases exposing the common types to the services.

type (
	ConnectionState  = entities.ConnectionState
	InterlockStatus  = entities.InterlockStatus
	PumpState        = entities.PumpState
	Sensor           = entities.Sensor
	SensorKind       = entities.SensorKind
	SensorReading    = entities.SensorReading
	PumpEvent        = messages.PumpEvent
	PumpEventKind    = messages.PumpEventKind
	TelemetryMessage = messages.TelemetryMessage
)

const (
	Disconnected = entities.Disconnected
	Connecting   = entities.Connecting
	Connected    = entities.Connected

	InterlockClear   = entities.InterlockClear
	InterlockBlocked = entities.InterlockBlocked

	PumpOff = entities.PumpOff
	PumpOn  = entities.PumpOn

	KindPercent = entities.KindPercent
	KindScaled  = entities.KindScaled
	KindZone    = entities.KindZone

	EventStateChange    = messages.EventStateChange
	EventInterlockTrip  = messages.EventInterlockTrip
	EventInterlockClear = messages.EventInterlockClear
	EventRejected       = messages.EventRejected
)

// Numeric builds a fixed-precision numeric telemetry message.
func Numeric(topic string, v float64, precision int) TelemetryMessage {
	return messages.Numeric(topic, v, precision)
}

// Text builds a telemetry message from the state vocabulary.
func Text(topic, payload string) TelemetryMessage {
	return messages.Text(topic, payload)
}

// NumericPayload renders v with a fixed number of decimals.
func NumericPayload(v float64, precision int) string {
	return messages.Numeric("", v, precision).Payload
}
