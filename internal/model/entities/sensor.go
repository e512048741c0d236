package entities

import "time"

// SensorKind selects how a raw sample becomes a published value.
type SensorKind string

const (
	// KindPercent maps raw onto 0..100 between two calibration points.
	KindPercent SensorKind = "percent"
	// KindScaled applies raw*scale+offset (temperature, relative humidity).
	KindScaled SensorKind = "scaled"
	// KindZone is a percent channel reported as one of three supply zones.
	KindZone SensorKind = "zone"
)

// Sensor describes one analog channel of the board.
type Sensor struct {
	Name      string     `yaml:"name" json:"name"`
	Channel   int        `yaml:"channel" json:"channel"`
	Topic     string     `yaml:"topic" json:"topic"`
	Kind      SensorKind `yaml:"kind" json:"kind"`
	Low       int        `yaml:"low" json:"low"`   // raw value reported as 0%
	High      int        `yaml:"high" json:"high"` // raw value reported as 100%
	Scale     float64    `yaml:"scale" json:"scale"`
	Offset    float64    `yaml:"offset" json:"offset"`
	Precision int        `yaml:"precision" json:"precision"` // decimals in the payload
}

// SensorReading is a single sample, consumed within the cycle that produced it.
type SensorReading struct {
	Name      string    `json:"name"`
	Raw       int       `json:"raw"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}
