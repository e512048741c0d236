package model

import "github.com/pkg/errors"

// Thresholds is the dry/wet hysteresis pair applied to a water level in
// percent. Direction is +1 when a higher percentage means more water and -1
// when the channel reads the other way round.
type Thresholds struct {
	Dry       float64 `yaml:"dry" json:"dry"`
	Wet       float64 `yaml:"wet" json:"wet"`
	Direction int     `yaml:"direction" json:"direction"`
}

// Insufficient reports a level at or beyond the dry bound.
func (t Thresholds) Insufficient(level float64) bool {
	d := float64(t.Direction)
	return d*level <= d*t.Dry
}

// Sufficient reports a level at or beyond the wet bound.
func (t Thresholds) Sufficient(level float64) bool {
	d := float64(t.Direction)
	return d*level >= d*t.Wet
}

// Zone reduces a level to the three published supply zones: 0, 50 or 100.
func (t Thresholds) Zone(level float64) float64 {
	switch {
	case t.Insufficient(level):
		return 0
	case t.Sufficient(level):
		return 100
	default:
		return 50
	}
}

func (t Thresholds) Validate() error {
	if t.Direction != 1 && t.Direction != -1 {
		return errors.Errorf("interlock direction must be +1 or -1, got %d", t.Direction)
	}
	d := float64(t.Direction)
	if d*t.Wet <= d*t.Dry {
		return errors.Errorf("wet threshold %.1f must lie beyond dry threshold %.1f for direction %+d", t.Wet, t.Dry, t.Direction)
	}
	return nil
}
