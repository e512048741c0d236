package actuator

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/LeonardoBeccarini/pump-actuator/internal/connectivity"
	"github.com/LeonardoBeccarini/pump-actuator/internal/model"
)

type healthHandler struct {
	status   func() connectivity.Status
	snapshot func() model.Snapshot
	events   *EventWriter
}

// NewHealthHandler reports the link and the pump record. The actuator is
// "ok" when the link is up, "degraded" otherwise; it keeps enforcing the
// interlock either way.
func NewHealthHandler(status func() connectivity.Status, snapshot func() model.Snapshot, events *EventWriter) http.Handler {
	return &healthHandler{status: status, snapshot: snapshot, events: events}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	type body struct {
		Status          string              `json:"status"`
		Link            connectivity.Status `json:"link"`
		Pump            model.Snapshot      `json:"pump"`
		EventSink       bool                `json:"event_sink"`
		LastWriteErrorS float64             `json:"last_write_error_age_sec,omitempty"`
	}
	b := body{
		Link:      h.status(),
		Pump:      h.snapshot(),
		EventSink: h.events != nil,
	}
	if h.events != nil {
		b.LastWriteErrorS = h.events.LastErrorAge().Seconds()
	}
	b.Status = "degraded"
	if b.Link.Ready && (h.events == nil || h.events.LastErrorAge() > 30*time.Second) {
		b.Status = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(b)
}

type readyHandler struct {
	ready func() bool
}

// NewReadyHandler answers 200 only while the link is ready.
func NewReadyHandler(ready func() bool) http.Handler {
	return &readyHandler{ready: ready}
}

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	ready := h.ready()
	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(struct {
		Ready bool `json:"ready"`
	}{Ready: ready})
}
