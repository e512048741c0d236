package model

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		payload string
		want    Command
		ok      bool
	}{
		{"ON", TurnOn, true},
		{"OFF", TurnOff, true},
		{"toggle", "", false},
		{"on", "", false},
		{" ON", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		cmd, err := ParseCommand([]byte(tc.payload))
		if tc.ok {
			assert.NoError(t, err, tc.payload)
			assert.Equal(t, tc.want, cmd)
		} else {
			assert.True(t, errors.Is(err, ErrUnrecognizedPayload), tc.payload)
		}
	}
}

func TestThresholdsDirection(t *testing.T) {
	rising := Thresholds{Dry: 20, Wet: 60, Direction: 1}
	assert.True(t, rising.Insufficient(20))
	assert.True(t, rising.Insufficient(0))
	assert.False(t, rising.Insufficient(21))
	assert.True(t, rising.Sufficient(60))
	assert.False(t, rising.Sufficient(59.9))

	falling := Thresholds{Dry: 80, Wet: 30, Direction: -1}
	assert.True(t, falling.Insufficient(80))
	assert.True(t, falling.Insufficient(100))
	assert.False(t, falling.Insufficient(79))
	assert.True(t, falling.Sufficient(30))
	assert.True(t, falling.Sufficient(0))
	assert.False(t, falling.Sufficient(31))
}

func TestThresholdsZone(t *testing.T) {
	th := Thresholds{Dry: 20, Wet: 60, Direction: 1}
	assert.Equal(t, 0.0, th.Zone(10))
	assert.Equal(t, 50.0, th.Zone(40))
	assert.Equal(t, 100.0, th.Zone(75))
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, Thresholds{Dry: 20, Wet: 60, Direction: 1}.Validate())
	assert.NoError(t, Thresholds{Dry: 60, Wet: 20, Direction: -1}.Validate())
	assert.Error(t, Thresholds{Dry: 60, Wet: 20, Direction: 1}.Validate())
	assert.Error(t, Thresholds{Dry: 20, Wet: 20, Direction: 1}.Validate())
	assert.Error(t, Thresholds{Dry: 20, Wet: 60, Direction: 0}.Validate())
}

func TestNumericPayload(t *testing.T) {
	assert.Equal(t, "57.00", NumericPayload(57, 2))
	assert.Equal(t, "50.0", NumericPayload(50, 1))
	assert.Equal(t, "22", NumericPayload(21.6, 0))
}
