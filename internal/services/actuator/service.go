// Package actuator wires the pump actuator together and runs it: broker
// session, supervisor, interlock, command handler, telemetry, scheduler and
// the operations surface.
package actuator

import (
	"context"
	"net"
	"net/http"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/LeonardoBeccarini/pump-actuator/internal/command"
	"github.com/LeonardoBeccarini/pump-actuator/internal/config"
	"github.com/LeonardoBeccarini/pump-actuator/internal/connectivity"
	"github.com/LeonardoBeccarini/pump-actuator/internal/interlock"
	"github.com/LeonardoBeccarini/pump-actuator/internal/model"
	"github.com/LeonardoBeccarini/pump-actuator/internal/scheduler"
	"github.com/LeonardoBeccarini/pump-actuator/internal/sensor"
	"github.com/LeonardoBeccarini/pump-actuator/internal/telemetry"
	"github.com/LeonardoBeccarini/pump-actuator/pkg/broker"
	"github.com/LeonardoBeccarini/pump-actuator/pkg/logging"
)

const shutdownGrace = 5 * time.Second

type Service struct {
	cfg config.Config
	log *logrus.Entry

	session    *broker.Session
	interlock  *interlock.Interlock
	supervisor *connectivity.Supervisor
	commands   *command.Handler
	scheduler  *scheduler.Scheduler

	metrics *Metrics
	health  *HealthServer
	mux     *http.ServeMux
	influx  influxdb2.Client
	events  *EventWriter
}

// New builds the service around board. Nothing connects until Run.
func New(cfg config.Config, board sensor.Board, logs *logging.Logrus) *Service {
	s := &Service{cfg: cfg, log: logs.Get("service")}

	s.session = broker.NewSession(broker.Config{
		Host:              cfg.MQTT.Host,
		Port:              cfg.MQTT.Port,
		User:              cfg.MQTT.User,
		Password:          cfg.MQTT.Password,
		ClientID:          cfg.MQTT.ClientID,
		KeepAlive:         cfg.MQTT.KeepAlive,
		ConnectTimeout:    cfg.MQTT.ConnectTimeout,
		PublishTimeout:    cfg.MQTT.PublishTimeout,
		AvailabilityTopic: cfg.Topics.Availability,
	}, logs.Get("broker"))

	s.interlock = interlock.New(cfg.Interlock.Thresholds(), board, cfg.Interlock.StartBlocked, logs.Get("interlock"))

	var transport connectivity.Transport = connectivity.AlwaysUp{}
	if cfg.Network.Transport == config.TransportProbe {
		transport = connectivity.NewProbe(cfg.Network.ProbeAddress, cfg.Network.ProbeTimeout,
			cfg.Network.ProbeTTL, logs.Get("transport"))
	}

	// the supervisor subscribes on behalf of the handler, which in turn
	// consults the supervisor for readiness
	var handler *command.Handler
	onMessage := func(topic string, payload []byte) { handler.OnMessage(topic, payload) }
	s.supervisor = connectivity.NewSupervisor(connectivity.Config{
		PollInterval:    cfg.Loop.PollInterval,
		MaxPolls:        cfg.Loop.MaxPolls,
		CommandTopic:    cfg.Topics.Command,
		CommandQoS:      byte(cfg.MQTT.CommandQoS),
		BreakerFailures: uint32(cfg.Loop.BreakerFailures),
		BreakerCooldown: cfg.Loop.BreakerCooldown,
	}, transport, s.session, onMessage, logs.Get("supervisor"))
	s.session.SetNotifier(s.supervisor.OnSessionUp, s.supervisor.OnSessionLost)

	handler = command.NewHandler(command.Config{
		CommandTopic: cfg.Topics.Command,
		StateTopic:   cfg.Topics.State,
		AlertPayload: cfg.Topics.AlertPayload,
	}, s.interlock, s.session, s.supervisor, logs.Get("command"))
	s.commands = handler

	gw := sensor.NewGateway(board, cfg.Sensors, cfg.Interlock.Thresholds())
	tel := telemetry.NewPublisher(telemetry.Config{InterlockTopic: cfg.Topics.Interlock},
		gw, s.session, s.supervisor, s.interlock, logs.Get("telemetry"))
	s.scheduler = scheduler.New(scheduler.Config{
		Interval:     cfg.Loop.Interval,
		LevelSensor:  cfg.Interlock.Sensor,
		StateTopic:   cfg.Topics.State,
		AlertPayload: cfg.Topics.AlertPayload,
	}, s.supervisor, s.interlock, gw, tel, s.session, logs.Get("scheduler"))

	if cfg.Influx.Enabled() {
		s.influx = influxdb2.NewClient(cfg.Influx.URL, cfg.Influx.Token)
		s.events = NewEventWriter(s.influx.WriteAPI(cfg.Influx.Org, cfg.Influx.Bucket), logs.Get("influx"))
	}

	s.metrics = NewMetrics(s.interlock.Snapshot, s.supervisor.Status)
	s.health = NewHealthServer()
	s.wireHooks()

	s.mux = http.NewServeMux()
	s.mux.Handle("/healthz", NewHealthHandler(s.supervisor.Status, s.interlock.Snapshot, s.events))
	s.mux.Handle("/readyz", NewReadyHandler(s.supervisor.IsReady))
	s.mux.Handle("/metrics", s.metrics.Handler())
	return s
}

func (s *Service) wireHooks() {
	s.interlock.SetObserver(func(e model.PumpEvent) {
		s.metrics.RecordEvent(e)
		s.events.Write(e)
	})
	s.commands.SetRecorder(s.metrics.RecordCommand)
	s.scheduler.SetAfterStep(func(res scheduler.StepResult) {
		s.metrics.RecordStep(res)
		s.health.SetReady(s.supervisor.IsReady())
	})
}

// Handler serves /healthz, /readyz and /metrics.
func (s *Service) Handler() http.Handler {
	return s.mux
}

func (s *Service) Interlock() *interlock.Interlock {
	return s.interlock
}

// Run blocks until ctx is done. The pump is off and the session closed when
// it returns.
func (s *Service) Run(ctx context.Context) error {
	var hs *http.Server
	if s.cfg.Ops.HTTPAddr != "" {
		hs = &http.Server{
			Addr:              s.cfg.Ops.HTTPAddr,
			Handler:           s.mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			s.log.Infof("HTTP listening on %s", s.cfg.Ops.HTTPAddr)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Errorf("http server: %v", err)
			}
		}()
	}

	if s.cfg.Ops.GRPCAddr != "" {
		lis, err := net.Listen("tcp", s.cfg.Ops.GRPCAddr)
		if err != nil {
			return errors.Wrapf(err, "listen %s", s.cfg.Ops.GRPCAddr)
		}
		go func() {
			s.log.Infof("gRPC health listening on %s", s.cfg.Ops.GRPCAddr)
			if err := s.health.Serve(lis); err != nil {
				s.log.Errorf("grpc server: %v", err)
			}
		}()
	}

	err := s.scheduler.Run(ctx)

	if hs != nil {
		shCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = hs.Shutdown(shCtx)
	}
	s.health.Stop()
	s.session.Close()
	if s.influx != nil {
		s.events.Flush()
		s.influx.Close()
	}
	return err
}
