package messages

import "strconv"

// TelemetryMessage is handed to the transport and not retained.
type TelemetryMessage struct {
	Topic   string
	Payload string
}

// Numeric formats v as a fixed-precision decimal payload.
func Numeric(topic string, v float64, precision int) TelemetryMessage {
	if precision < 0 {
		precision = 0
	}
	return TelemetryMessage{Topic: topic, Payload: strconv.FormatFloat(v, 'f', precision, 64)}
}

// Text wraps a payload from the fixed state vocabulary.
func Text(topic, payload string) TelemetryMessage {
	return TelemetryMessage{Topic: topic, Payload: payload}
}
