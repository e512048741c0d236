package sensor

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/LeonardoBeccarini/pump-actuator/internal/model"
)

// ====== Tunables ======
const (
	// drainPerMin: reservoir fraction pumped out per minute while the relay is on.
	drainPerMin = 0.05
	// refillPerMin: reservoir fraction recovered per minute while the relay is off.
	refillPerMin = 0.01
	// gainPerMin: soil moisture gained per minute of watering.
	gainPerMin = 0.02
	// moistureHalfLife: exponential drying while not watering.
	moistureHalfLife = 2 * time.Hour
)

// SimChannels says which configured sensor each simulated signal is rendered on.
type SimChannels struct {
	Soil     model.Sensor
	Light    model.Sensor
	Temp     model.Sensor
	Humidity model.Sensor
	Water    model.Sensor
}

// Simulator is a Board whose water reservoir drains while the pump runs.
type Simulator struct {
	mu        sync.Mutex
	ch        SimChannels
	relay     bool
	last      time.Time
	reservoir float64 // [0..1]
	moisture  float64 // [0..1]
	now       func() time.Time
}

func NewSimulator(ch SimChannels, reservoir, moisture float64) *Simulator {
	return &Simulator{
		ch:        ch,
		reservoir: clamp(reservoir, 0, 1),
		moisture:  clamp(moisture, 0, 1),
		now:       time.Now,
	}
}

// SetRelay switches the simulated pump.
func (s *Simulator) SetRelay(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	s.relay = on
	return nil
}

// RelayOn reports the last relay level written.
func (s *Simulator) RelayOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relay
}

// SetReservoir overrides the reservoir fill fraction.
func (s *Simulator) SetReservoir(fill float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	s.reservoir = clamp(fill, 0, 1)
}

func (s *Simulator) ReadRaw(channel int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.advance()

	switch channel {
	case s.ch.Water.Channel:
		return renderPercent(s.ch.Water, s.reservoir*100), nil
	case s.ch.Soil.Channel:
		return renderPercent(s.ch.Soil, s.moisture*100), nil
	case s.ch.Light.Channel:
		// daylight curve peaking at 13:00
		h := float64(t.Hour()) + float64(t.Minute())/60
		light := math.Max(0, math.Cos((h-13)/24*2*math.Pi)) * 100
		return renderPercent(s.ch.Light, light), nil
	case s.ch.Temp.Channel:
		h := float64(t.Hour())
		return renderScaled(s.ch.Temp, 21+4*math.Sin((h-9)/24*2*math.Pi)), nil
	case s.ch.Humidity.Channel:
		return renderScaled(s.ch.Humidity, 55+10*s.moisture), nil
	}
	return 0, errors.Errorf("simulator: no signal on channel %d", channel)
}

// advance integrates reservoir and soil state up to now. Caller holds mu.
func (s *Simulator) advance() time.Time {
	now := s.now()
	if s.last.IsZero() {
		s.last = now
		return now
	}
	dtMin := now.Sub(s.last).Minutes()
	if dtMin < 0 {
		dtMin = 0
	}
	if s.relay {
		s.reservoir = clamp(s.reservoir-drainPerMin*dtMin, 0, 1)
		if s.reservoir > 0 {
			s.moisture = clamp(s.moisture+gainPerMin*dtMin, 0, 1)
		}
	} else {
		s.reservoir = clamp(s.reservoir+refillPerMin*dtMin, 0, 1)
		decay := math.Log(2) / moistureHalfLife.Minutes()
		s.moisture = clamp(s.moisture*math.Exp(-decay*dtMin), 0, 1)
	}
	s.last = now
	return now
}

// renderPercent inverts the calibration map so the gateway reads back p.
func renderPercent(sn model.Sensor, p float64) int {
	return sn.Low + int(math.Round(p*float64(sn.High-sn.Low)/100))
}

func renderScaled(sn model.Sensor, v float64) int {
	if sn.Scale == 0 {
		return 0
	}
	return int(math.Round((v - sn.Offset) / sn.Scale))
}
