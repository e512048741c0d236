package entities

// ConnectionState tracks the transport link and the broker session.
type ConnectionState string

const (
	Disconnected ConnectionState = "disconnected"
	Connecting   ConnectionState = "connecting"
	Connected    ConnectionState = "connected"
)

// InterlockStatus says whether the water supply allows the pump to run.
type InterlockStatus string

const (
	InterlockClear   InterlockStatus = "clear"
	InterlockBlocked InterlockStatus = "blocked"
)

// PumpState is the commanded relay state. The string values are also the
// payloads published on the pump state topic.
type PumpState string

const (
	PumpOff PumpState = "OFF"
	PumpOn  PumpState = "ON"
)

// Bool returns true when the relay must be driven high.
func (p PumpState) Bool() bool { return p == PumpOn }

// PumpStateOf maps a relay level to its state.
func PumpStateOf(on bool) PumpState {
	if on {
		return PumpOn
	}
	return PumpOff
}
