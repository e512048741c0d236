package model

// Command is a pump request decoded from the command topic.
type Command string

const (
	TurnOn  Command = "ON"
	TurnOff Command = "OFF"
)

// ParseCommand accepts only the literal payloads "ON" and "OFF".
func ParseCommand(payload []byte) (Command, error) {
	switch Command(payload) {
	case TurnOn:
		return TurnOn, nil
	case TurnOff:
		return TurnOff, nil
	}
	return "", ErrUnrecognizedPayload
}
