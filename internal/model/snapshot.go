package model

import "time"

// Snapshot is a consistent copy of the pump/interlock record.
type Snapshot struct {
	Pump       PumpState       `json:"pump"`
	Interlock  InterlockStatus `json:"interlock"`
	Level      float64         `json:"level_pct"`
	LevelKnown bool            `json:"level_known"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
