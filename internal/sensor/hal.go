// Package sensor turns raw analog samples into published values and provides
// a simulated board for running without hardware.
package sensor

// Reader samples an analog channel of the board.
type Reader interface {
	ReadRaw(channel int) (int, error)
}

// Relay drives the pump relay output.
type Relay interface {
	SetRelay(on bool) error
}

// Board is the full hardware boundary.
type Board interface {
	Reader
	Relay
}
