package model

import (
	"github.com/pkg/errors"

	"github.com/LeonardoBeccarini/pump-actuator/pkg/broker"
)

// Recoverable conditions; none of them is fatal for the actuator.
var (
	ErrTransportUnavailable = errors.New("transport unavailable")
	ErrSessionUnavailable   = errors.New("messaging session unavailable")
	ErrPublishFailed        = broker.ErrPublishFailed
	ErrSubscribeFailed      = broker.ErrSubscribeFailed
	ErrInterlockRejected    = errors.New("pump request rejected: water level too low")
	ErrUnrecognizedPayload  = errors.New("unrecognized payload")
	ErrActuatorFault        = errors.New("relay write failed")
	ErrUnknownSensor        = errors.New("unknown sensor")
	ErrCalibration          = errors.New("invalid sensor calibration")
)
