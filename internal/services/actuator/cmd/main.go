package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/LeonardoBeccarini/pump-actuator/internal/config"
	"github.com/LeonardoBeccarini/pump-actuator/internal/model"
	"github.com/LeonardoBeccarini/pump-actuator/internal/sensor"
	"github.com/LeonardoBeccarini/pump-actuator/internal/services/actuator"
	"github.com/LeonardoBeccarini/pump-actuator/pkg/logging"
)

func main() {
	var (
		configPath string
		simulate   bool
		logLevel   string
		reservoir  float64
	)
	flags := pflag.NewFlagSet("pump-actuator", pflag.ExitOnError)
	flags.StringVarP(&configPath, "config", "c", os.Getenv("ACTUATOR_CONFIG"), "path to the YAML configuration")
	flags.BoolVar(&simulate, "simulate", true, "run against the simulated board")
	flags.StringVar(&logLevel, "log-level", "", "override the configured log level")
	flags.Float64Var(&reservoir, "sim-reservoir", 0.8, "initial simulated reservoir fill, 0..1")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pump-actuator: %v\n", err)
		os.Exit(2)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logs := logging.NewLogrus(cfg.LogLevel, os.Stdout)
	log := logs.Get("main")

	if !simulate {
		log.Fatal("no hardware board driver is built in; run with --simulate")
	}
	board := sensor.NewSimulator(simChannels(cfg), reservoir, 0.4)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("pump actuator %s starting, broker %s:%d", cfg.MQTT.ClientID, cfg.MQTT.Host, cfg.MQTT.Port)
	svc := actuator.New(cfg, board, logs)
	if err := svc.Run(ctx); err != nil {
		log.Fatalf("actuator stopped: %v", err)
	}
	log.Info("shut down cleanly")
}

// simChannels renders the simulated signals on the configured sensors. An
// absent sensor gets channel -1, which no read ever asks for.
func simChannels(cfg config.Config) sensor.SimChannels {
	byName := make(map[string]model.Sensor, len(cfg.Sensors))
	for _, s := range cfg.Sensors {
		byName[s.Name] = s
	}
	pick := func(name string) model.Sensor {
		if s, ok := byName[name]; ok {
			return s
		}
		return model.Sensor{Name: name, Channel: -1}
	}
	return sensor.SimChannels{
		Soil:     pick("soil"),
		Light:    pick("light"),
		Temp:     pick("temperature"),
		Humidity: pick("humidity"),
		Water:    pick(cfg.Interlock.Sensor),
	}
}
