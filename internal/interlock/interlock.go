// Package interlock owns the pump/interlock record and refuses to run the
// pump while the water supply is insufficient.
//
// Every mutation, including the relay write it implies, happens under one
// mutex, so no caller can observe the pump on while the interlock is
// blocked, and the relay never lags behind the record.
package interlock

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/LeonardoBeccarini/pump-actuator/internal/model"
)

const (
	SourceCommand   = "command"
	SourceInterlock = "interlock"
	SourceShutdown  = "shutdown"
)

// Relay drives the pump output. Writes must be fast; they run under the lock.
type Relay interface {
	SetRelay(on bool) error
}

// Evaluation is the outcome of feeding one level reading.
type Evaluation struct {
	Status  model.InterlockStatus
	Changed bool  // status flipped on this reading
	Tripped bool  // pump was on and has been forced off
	Err     error // relay fault while forcing the pump off
}

// Interlock guards the pump relay against running on an insufficient supply.
type Interlock struct {
	mu         sync.Mutex
	th         model.Thresholds
	relay      Relay
	pump       model.PumpState
	status     model.InterlockStatus
	level      float64
	levelKnown bool
	relayFault bool
	updatedAt  time.Time

	log     *logrus.Entry
	observe func(model.PumpEvent)
	now     func() time.Time
}

// New drives the relay low and starts with the pump off. The interlock
// starts blocked when startBlocked is set, so the pump cannot run before the
// first level reading.
func New(th model.Thresholds, relay Relay, startBlocked bool, log *logrus.Entry) *Interlock {
	il := &Interlock{
		th:     th,
		relay:  relay,
		pump:   model.PumpOff,
		status: model.InterlockClear,
		log:    log,
		now:    time.Now,
	}
	if startBlocked {
		il.status = model.InterlockBlocked
	}
	if err := relay.SetRelay(false); err != nil {
		il.relayFault = true
		log.Errorf("initial relay write failed: %v", err)
	}
	il.updatedAt = il.now()
	return il
}

// SetObserver registers a callback for pump events. It is called after the
// lock is released, in the goroutine that caused the event.
func (il *Interlock) SetObserver(fn func(model.PumpEvent)) {
	il.mu.Lock()
	defer il.mu.Unlock()
	il.observe = fn
}

// Snapshot returns a consistent copy of the record.
func (il *Interlock) Snapshot() model.Snapshot {
	il.mu.Lock()
	defer il.mu.Unlock()
	return il.snapshotLocked()
}

// Evaluate applies a level reading (percent, already clamped). At or beyond
// the dry bound the interlock blocks and a running pump is switched off in
// the same step; at or beyond the wet bound it clears; in between nothing
// changes.
func (il *Interlock) Evaluate(level float64) Evaluation {
	il.mu.Lock()
	il.level, il.levelKnown = level, true
	var (
		ev     = Evaluation{}
		events []model.PumpEvent
	)

	switch {
	case il.th.Insufficient(level):
		if il.status != model.InterlockBlocked {
			il.status = model.InterlockBlocked
			ev.Changed = true
		}
		if il.pump == model.PumpOn {
			ev.Err = il.writeOffLocked()
			il.pump = model.PumpOff
			ev.Tripped = true
		}
		if ev.Changed {
			events = append(events, il.eventLocked(model.EventInterlockTrip, SourceInterlock))
		}
		if ev.Tripped {
			events = append(events, il.eventLocked(model.EventStateChange, SourceInterlock))
		}
	case il.th.Sufficient(level):
		if il.status != model.InterlockClear {
			il.status = model.InterlockClear
			ev.Changed = true
			events = append(events, il.eventLocked(model.EventInterlockClear, SourceInterlock))
		}
	}

	// a failed write leaves the physical relay unknown; keep driving it low
	if il.relayFault && il.pump == model.PumpOff && !ev.Tripped {
		if err := il.writeOffLocked(); err != nil {
			ev.Err = err
		}
	}
	ev.Status = il.status
	il.updatedAt = il.now()
	observe := il.observe
	il.mu.Unlock()

	if ev.Changed || ev.Tripped {
		il.log.WithFields(logrus.Fields{"level": level, "status": ev.Status, "tripped": ev.Tripped}).
			Warn("interlock transition")
	}
	emit(observe, events)
	return ev
}

// RequestPump asks for the pump on or off. Turning on fails with
// model.ErrInterlockRejected while blocked and leaves the pump off. Turning
// off is always accepted; the record is off even if the relay write fails,
// in which case the error wraps model.ErrActuatorFault.
func (il *Interlock) RequestPump(on bool) (model.PumpState, error) {
	return il.request(on, SourceCommand)
}

// Shutdown switches the pump off on the way out.
func (il *Interlock) Shutdown() error {
	_, err := il.request(false, SourceShutdown)
	return err
}

func (il *Interlock) request(on bool, source string) (model.PumpState, error) {
	il.mu.Lock()
	var (
		err    error
		events []model.PumpEvent
		prev   = il.pump
	)

	if on {
		if il.status == model.InterlockBlocked {
			events = append(events, il.eventLocked(model.EventRejected, source))
			state := il.pump
			observe := il.observe
			il.mu.Unlock()
			emit(observe, events)
			return state, model.ErrInterlockRejected
		}
		if werr := il.relay.SetRelay(true); werr != nil {
			il.relayFault = true
			err = errors.Wrap(model.ErrActuatorFault, werr.Error())
		} else {
			il.relayFault = false
			il.pump = model.PumpOn
		}
	} else {
		err = il.writeOffLocked()
		il.pump = model.PumpOff
	}

	if il.pump != prev {
		events = append(events, il.eventLocked(model.EventStateChange, source))
	}
	il.updatedAt = il.now()
	state := il.pump
	observe := il.observe
	il.mu.Unlock()

	emit(observe, events)
	return state, err
}

// writeOffLocked drives the relay low and tracks whether it worked.
func (il *Interlock) writeOffLocked() error {
	if err := il.relay.SetRelay(false); err != nil {
		il.relayFault = true
		return errors.Wrap(model.ErrActuatorFault, err.Error())
	}
	il.relayFault = false
	return nil
}

func (il *Interlock) snapshotLocked() model.Snapshot {
	return model.Snapshot{
		Pump:       il.pump,
		Interlock:  il.status,
		Level:      il.level,
		LevelKnown: il.levelKnown,
		UpdatedAt:  il.updatedAt,
	}
}

func (il *Interlock) eventLocked(kind model.PumpEventKind, source string) model.PumpEvent {
	return model.PumpEvent{
		EventID:   uuid.New().String(),
		Kind:      kind,
		Source:    source,
		Pump:      il.pump,
		Interlock: il.status,
		Level:     il.level,
		Timestamp: il.now().UTC(),
	}
}

func emit(observe func(model.PumpEvent), events []model.PumpEvent) {
	if observe == nil {
		return
	}
	for _, e := range events {
		observe(e)
	}
}
