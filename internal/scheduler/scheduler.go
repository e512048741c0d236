// Package scheduler runs the periodic context: interlock evaluation,
// connectivity upkeep and telemetry, in that order, once per interval.
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/LeonardoBeccarini/pump-actuator/internal/interlock"
	"github.com/LeonardoBeccarini/pump-actuator/internal/telemetry"
)

type Supervisor interface {
	Tick(ctx context.Context) error
	IsReady() bool
}

type Safety interface {
	Evaluate(level float64) interlock.Evaluation
	Shutdown() error
}

type Levels interface {
	Level(name string) (float64, error)
}

type Telemetry interface {
	RunCycle(ctx context.Context) telemetry.Result
}

type Publisher interface {
	Publish(topic, payload string) error
}

type Config struct {
	Interval     time.Duration
	LevelSensor  string
	StateTopic   string
	AlertPayload string
}

// StepResult summarises one cadence step.
type StepResult struct {
	Evaluated  bool
	Evaluation interlock.Evaluation
	ConnErr    error
	Telemetry  telemetry.Result
}

type Scheduler struct {
	cfg    Config
	sup    Supervisor
	safety Safety
	levels Levels
	tel    Telemetry
	pub    Publisher
	log    *logrus.Entry
	after  func(StepResult)
}

func New(cfg Config, sup Supervisor, safety Safety, levels Levels, tel Telemetry, pub Publisher, log *logrus.Entry) *Scheduler {
	return &Scheduler{cfg: cfg, sup: sup, safety: safety, levels: levels, tel: tel, pub: pub, log: log}
}

// SetAfterStep registers a hook run at the end of every step.
func (s *Scheduler) SetAfterStep(fn func(StepResult)) {
	s.after = fn
}

// Run steps immediately and then every interval until ctx is done. The pump
// is switched off before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Infof("loop started, interval %s", s.cfg.Interval)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.Step(ctx)
	for {
		select {
		case <-ctx.Done():
			if err := s.safety.Shutdown(); err != nil {
				s.log.Errorf("pump not switched off on shutdown: %v", err)
			}
			s.log.Info("loop stopped, pump off")
			return nil
		case <-ticker.C:
			s.Step(ctx)
		}
	}
}

// Step runs one cadence step. The interlock is evaluated whatever the state
// of the link.
func (s *Scheduler) Step(ctx context.Context) StepResult {
	var res StepResult

	level, err := s.levels.Level(s.cfg.LevelSensor)
	if err != nil {
		s.log.Warnf("water level not read, interlock unchanged: %v", err)
	} else {
		res.Evaluated = true
		res.Evaluation = s.safety.Evaluate(level)
		if res.Evaluation.Err != nil {
			s.log.Errorf("relay fault while forcing pump off: %v", res.Evaluation.Err)
		}
	}

	res.ConnErr = s.sup.Tick(ctx)
	if res.ConnErr != nil {
		s.log.Warnf("link not ready: %v", res.ConnErr)
	}

	if res.Evaluation.Tripped {
		s.alert()
	}
	res.Telemetry = s.tel.RunCycle(ctx)

	if s.after != nil {
		s.after(res)
	}
	return res
}

func (s *Scheduler) alert() {
	if !s.sup.IsReady() {
		s.log.Warn("pump forced off, alert not published: link not ready")
		return
	}
	if err := s.pub.Publish(s.cfg.StateTopic, s.cfg.AlertPayload); err != nil {
		s.log.Warnf("trip alert not published: %v", err)
	}
}
