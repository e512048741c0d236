package actuator

import (
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"

	"github.com/LeonardoBeccarini/pump-actuator/internal/model"
)

const eventMeasurement = "pump_event"

// PointWriter is the part of the Influx non-blocking write API the sink uses.
type PointWriter interface {
	WritePoint(point *write.Point)
	Errors() <-chan error
	Flush()
}

// EventWriter forwards pump events to InfluxDB and tracks the last write
// error for /healthz. A nil *EventWriter drops everything.
type EventWriter struct {
	api PointWriter
	log *logrus.Entry

	mu      sync.RWMutex
	lastErr time.Time
	counts  map[model.PumpEventKind]int64
}

func NewEventWriter(w PointWriter, log *logrus.Entry) *EventWriter {
	ew := &EventWriter{
		api:     w,
		log:     log,
		lastErr: time.Now().Add(-24 * time.Hour),
		counts:  make(map[model.PumpEventKind]int64),
	}
	go func() {
		for err := range w.Errors() {
			if err == nil {
				continue
			}
			ew.mu.Lock()
			ew.lastErr = time.Now()
			ew.mu.Unlock()
			log.Warnf("influx write error: %v", err)
		}
	}()
	return ew
}

func (w *EventWriter) Write(e model.PumpEvent) {
	if w == nil {
		return
	}
	w.api.WritePoint(EventToPoint(e))
	w.mu.Lock()
	w.counts[e.Kind]++
	w.mu.Unlock()
}

func (w *EventWriter) Flush() {
	if w == nil {
		return
	}
	w.api.Flush()
}

// LastErrorAge is how long ago the last asynchronous write failed.
func (w *EventWriter) LastErrorAge() time.Duration {
	if w == nil {
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return time.Since(t)
}

func (w *EventWriter) Count(kind model.PumpEventKind) int64 {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.counts[kind]
}

// EventToPoint maps a pump event onto the pump_event measurement.
func EventToPoint(e model.PumpEvent) *write.Point {
	tags := map[string]string{
		"kind":      string(e.Kind),
		"source":    e.Source,
		"pump":      string(e.Pump),
		"interlock": string(e.Interlock),
	}
	pumpOn := int64(0)
	if e.Pump == model.PumpOn {
		pumpOn = 1
	}
	fields := map[string]interface{}{
		"event_id":  e.EventID,
		"level_pct": e.Level,
		"pump_on":   pumpOn,
		"count":     int64(1),
	}
	return influxdb2.NewPoint(eventMeasurement, tags, fields, e.Timestamp)
}
