package sensor

import (
	"time"

	"github.com/pkg/errors"

	"github.com/LeonardoBeccarini/pump-actuator/internal/model"
)

// Percent maps raw onto 0..100 with the integer linear map used by the
// firmware (truncating division), then clamps. Low may be above High.
func Percent(raw, low, high int) (float64, error) {
	if low == high {
		return 0, errors.Wrapf(model.ErrCalibration, "low and high both %d", low)
	}
	p := (raw - low) * 100 / (high - low)
	return clamp(float64(p), 0, 100), nil
}

// Convert applies the channel's kind to a raw sample.
func Convert(s model.Sensor, raw int, zones model.Thresholds) (float64, error) {
	switch s.Kind {
	case model.KindPercent:
		return Percent(raw, s.Low, s.High)
	case model.KindZone:
		p, err := Percent(raw, s.Low, s.High)
		if err != nil {
			return 0, err
		}
		return zones.Zone(p), nil
	case model.KindScaled:
		return float64(raw)*s.Scale + s.Offset, nil
	default:
		return 0, errors.Wrapf(model.ErrCalibration, "sensor %s: unknown kind %q", s.Name, s.Kind)
	}
}

// Gateway reads configured channels through the board.
type Gateway struct {
	reader  Reader
	sensors map[string]model.Sensor
	order   []model.Sensor
	zones   model.Thresholds
	now     func() time.Time
}

func NewGateway(reader Reader, sensors []model.Sensor, zones model.Thresholds) *Gateway {
	g := &Gateway{
		reader:  reader,
		sensors: make(map[string]model.Sensor, len(sensors)),
		zones:   zones,
		now:     time.Now,
	}
	for _, s := range sensors {
		g.sensors[s.Name] = s
		g.order = append(g.order, s)
	}
	return g
}

// Sensors returns the configured channels in configuration order.
func (g *Gateway) Sensors() []model.Sensor {
	out := make([]model.Sensor, len(g.order))
	copy(out, g.order)
	return out
}

// Read samples a sensor and converts it for publishing.
func (g *Gateway) Read(name string) (model.SensorReading, error) {
	s, ok := g.sensors[name]
	if !ok {
		return model.SensorReading{}, errors.Wrap(model.ErrUnknownSensor, name)
	}
	raw, err := g.reader.ReadRaw(s.Channel)
	if err != nil {
		return model.SensorReading{}, errors.Wrapf(err, "read %s (channel %d)", name, s.Channel)
	}
	v, err := Convert(s, raw, g.zones)
	if err != nil {
		return model.SensorReading{}, err
	}
	return model.SensorReading{Name: name, Raw: raw, Value: v, Timestamp: g.now().UTC()}, nil
}

// Level samples a percent or zone channel and returns the clamped percentage
// before any zoning. This is the value fed to the interlock.
func (g *Gateway) Level(name string) (float64, error) {
	s, ok := g.sensors[name]
	if !ok {
		return 0, errors.Wrap(model.ErrUnknownSensor, name)
	}
	raw, err := g.reader.ReadRaw(s.Channel)
	if err != nil {
		return 0, errors.Wrapf(err, "read %s (channel %d)", name, s.Channel)
	}
	if s.Kind == model.KindScaled {
		return clamp(float64(raw)*s.Scale+s.Offset, 0, 100), nil
	}
	return Percent(raw, s.Low, s.High)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
