package actuator

import (
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/pump-actuator/internal/model"
	"github.com/LeonardoBeccarini/pump-actuator/pkg/logging"
)

type fakeWriteAPI struct {
	mu      sync.Mutex
	points  []*write.Point
	errs    chan error
	flushed int
}

func newFakeWriteAPI() *fakeWriteAPI {
	return &fakeWriteAPI{errs: make(chan error, 1)}
}

func (f *fakeWriteAPI) WritePoint(p *write.Point) {
	f.mu.Lock()
	f.points = append(f.points, p)
	f.mu.Unlock()
}

func (f *fakeWriteAPI) Errors() <-chan error { return f.errs }

func (f *fakeWriteAPI) Flush() {
	f.mu.Lock()
	f.flushed++
	f.mu.Unlock()
}

func tripEvent() model.PumpEvent {
	return model.PumpEvent{
		EventID:   "e-1",
		Kind:      model.EventInterlockTrip,
		Source:    "interlock",
		Pump:      model.PumpOff,
		Interlock: model.InterlockBlocked,
		Level:     12.5,
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEventToPoint(t *testing.T) {
	p := EventToPoint(tripEvent())

	assert.Equal(t, eventMeasurement, p.Name())
	assert.Equal(t, tripEvent().Timestamp, p.Time())

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{
		"kind":      "interlock.trip",
		"source":    "interlock",
		"pump":      "OFF",
		"interlock": "blocked",
	}, tags)

	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, 12.5, fields["level_pct"])
	assert.Equal(t, int64(0), fields["pump_on"])
	assert.Equal(t, "e-1", fields["event_id"])
}

func TestEventWriterWritesAndCounts(t *testing.T) {
	api := newFakeWriteAPI()
	w := NewEventWriter(api, logging.Discard())

	w.Write(tripEvent())
	w.Write(tripEvent())
	w.Flush()

	api.mu.Lock()
	assert.Len(t, api.points, 2)
	assert.Equal(t, 1, api.flushed)
	api.mu.Unlock()
	assert.EqualValues(t, 2, w.Count(model.EventInterlockTrip))
	assert.Greater(t, w.LastErrorAge(), time.Hour)
}

func TestEventWriterTracksAsyncErrors(t *testing.T) {
	api := newFakeWriteAPI()
	w := NewEventWriter(api, logging.Discard())

	api.errs <- errors.New("bucket not found")

	require.Eventually(t, func() bool { return w.LastErrorAge() < time.Minute }, time.Second, 5*time.Millisecond)
}

func TestNilEventWriterIsInert(t *testing.T) {
	var w *EventWriter
	w.Write(tripEvent())
	w.Flush()
	assert.Zero(t, w.Count(model.EventInterlockTrip))
	assert.Greater(t, w.LastErrorAge(), time.Hour)
}
