// Package telemetry publishes sensor readings once per cycle.
package telemetry

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/LeonardoBeccarini/pump-actuator/internal/model"
)

type Gateway interface {
	Sensors() []model.Sensor
	Read(name string) (model.SensorReading, error)
}

type Sink interface {
	Publish(topic, payload string) error
}

type Readiness interface {
	IsReady() bool
}

// Status supplies the interlock state published next to the readings.
type Status interface {
	Snapshot() model.Snapshot
}

type Config struct {
	// InterlockTopic receives "clear" or "blocked" each cycle; empty disables it.
	InterlockTopic string
}

// Result counts what one cycle did.
type Result struct {
	Skipped   bool
	Published int
	Failed    int
}

// Publisher sends one telemetry message per configured sensor each cycle.
type Publisher struct {
	cfg    Config
	gw     Gateway
	sink   Sink
	ready  Readiness
	status Status
	log    *logrus.Entry
}

func NewPublisher(cfg Config, gw Gateway, sink Sink, ready Readiness, status Status, log *logrus.Entry) *Publisher {
	return &Publisher{cfg: cfg, gw: gw, sink: sink, ready: ready, status: status, log: log}
}

// RunCycle publishes every configured sensor on its topic. Nothing is sent
// when the link is not ready. Read and publish failures are logged and the
// cycle moves on; the next cycle is the retry.
func (p *Publisher) RunCycle(ctx context.Context) Result {
	if !p.ready.IsReady() {
		p.log.Debug("telemetry skipped: link not ready")
		return Result{Skipped: true}
	}

	var res Result
	for _, s := range p.gw.Sensors() {
		if ctx.Err() != nil {
			return res
		}
		if s.Topic == "" {
			continue
		}
		reading, err := p.gw.Read(s.Name)
		if err != nil {
			p.log.Warnf("sensor %s not read: %v", s.Name, err)
			res.Failed++
			continue
		}
		msg := model.Numeric(s.Topic, reading.Value, s.Precision)
		p.send(msg, &res)
	}

	if p.cfg.InterlockTopic != "" && p.status != nil {
		snap := p.status.Snapshot()
		p.send(model.Text(p.cfg.InterlockTopic, string(snap.Interlock)), &res)
	}
	return res
}

func (p *Publisher) send(msg model.TelemetryMessage, res *Result) {
	if err := p.sink.Publish(msg.Topic, msg.Payload); err != nil {
		p.log.Warnf("publish %s failed: %v", msg.Topic, err)
		res.Failed++
		return
	}
	p.log.Debugf("published %s -> %s", msg.Topic, msg.Payload)
	res.Published++
}
