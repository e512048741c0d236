// Package config loads the actuator configuration: defaults, then an
// optional YAML file, then environment overrides.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/LeonardoBeccarini/pump-actuator/internal/model"
)

const (
	TransportProbe  = "probe"
	TransportStatic = "static"
)

type Config struct {
	LogLevel  string         `yaml:"log_level"`
	MQTT      MQTT           `yaml:"mqtt"`
	Topics    Topics         `yaml:"topics"`
	Loop      Loop           `yaml:"loop"`
	Network   Network        `yaml:"network"`
	Interlock Interlock      `yaml:"interlock"`
	Sensors   []model.Sensor `yaml:"sensors"`
	Ops       Ops            `yaml:"ops"`
	Influx    Influx         `yaml:"influx"`
}

type MQTT struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	ClientID       string        `yaml:"client_id"`
	KeepAlive      time.Duration `yaml:"keep_alive"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
	CommandQoS     int           `yaml:"command_qos"`
}

type Topics struct {
	Command      string `yaml:"command"`
	State        string `yaml:"state"`
	Availability string `yaml:"availability"`
	Interlock    string `yaml:"interlock"`
	AlertPayload string `yaml:"alert_payload"`
}

type Loop struct {
	Interval        time.Duration `yaml:"interval"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPolls        int           `yaml:"max_polls"`
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

type Network struct {
	// Transport is "probe" (TCP dial to ProbeAddress) or "static" (always up).
	Transport    string        `yaml:"transport"`
	ProbeAddress string        `yaml:"probe_address"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	ProbeTTL     time.Duration `yaml:"probe_ttl"`
}

type Interlock struct {
	Sensor       string  `yaml:"sensor"`
	Dry          float64 `yaml:"dry"`
	Wet          float64 `yaml:"wet"`
	Direction    int     `yaml:"direction"`
	StartBlocked bool    `yaml:"start_blocked"`
}

func (i Interlock) Thresholds() model.Thresholds {
	return model.Thresholds{Dry: i.Dry, Wet: i.Wet, Direction: i.Direction}
}

type Ops struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
}

type Influx struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

func (i Influx) Enabled() bool {
	return i.URL != "" && i.Token != ""
}

// Default mirrors the field deployment: 5 s loop, 20 polls of 500 ms per
// connect attempt, firmware calibration constants.
func Default() Config {
	return Config{
		LogLevel: "info",
		MQTT: MQTT{
			Host:           "localhost",
			Port:           1883,
			KeepAlive:      30 * time.Second,
			ConnectTimeout: 5 * time.Second,
			PublishTimeout: 2 * time.Second,
			CommandQoS:     1,
		},
		Topics: Topics{
			Command:      "pompe/commande",
			State:        "pompe/etat",
			Availability: "pompe/disponibilite",
			AlertPayload: "ALERT: water level too low",
		},
		Loop: Loop{
			Interval:        5 * time.Second,
			PollInterval:    500 * time.Millisecond,
			MaxPolls:        20,
			BreakerFailures: 5,
			BreakerCooldown: time.Minute,
		},
		Network: Network{
			Transport:    TransportProbe,
			ProbeTimeout: 2 * time.Second,
			ProbeTTL:     30 * time.Second,
		},
		Interlock: Interlock{
			Sensor:       "water",
			Dry:          20,
			Wet:          60,
			Direction:    1,
			StartBlocked: true,
		},
		Sensors: []model.Sensor{
			{Name: "soil", Channel: 0, Topic: "capteur/sol", Kind: model.KindPercent, Low: 3150, High: 1450, Precision: 2},
			{Name: "light", Channel: 1, Topic: "capteur/lumiere", Kind: model.KindPercent, Low: 4095, High: 40, Precision: 2},
			{Name: "temperature", Channel: 2, Topic: "capteur/temperature", Kind: model.KindScaled, Scale: 0.01, Precision: 2},
			{Name: "humidity", Channel: 3, Topic: "capteur/humidite", Kind: model.KindScaled, Scale: 0.01, Precision: 2},
			{Name: "water", Channel: 4, Topic: "capteur/eau", Kind: model.KindZone, Low: 0, High: 4095, Precision: 1},
		},
		Ops: Ops{
			HTTPAddr: ":8080",
		},
		Influx: Influx{
			Org:    "sdcc",
			Bucket: "pump_events",
		},
	}
}

// Load reads path (skipped when empty), applies the environment and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "read config")
		}
		if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse %s", path)
		}
	}
	applyEnv(&cfg)
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "pump-actuator-" + uuid.NewString()
	}
	if cfg.Network.ProbeAddress == "" {
		cfg.Network.ProbeAddress = net.JoinHostPort(cfg.MQTT.Host, strconv.Itoa(cfg.MQTT.Port))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(c *Config) {
	c.LogLevel = envStr("LOG_LEVEL", c.LogLevel)
	c.MQTT.Host = envStr("MQTT_HOST", c.MQTT.Host)
	c.MQTT.Port = envInt("MQTT_PORT", c.MQTT.Port)
	c.MQTT.User = envStr("MQTT_USER", c.MQTT.User)
	c.MQTT.Password = envStr("MQTT_PASSWORD", c.MQTT.Password)
	c.MQTT.ClientID = envStr("MQTT_CLIENT_ID", c.MQTT.ClientID)
	c.Loop.Interval = envDuration("LOOP_INTERVAL", c.Loop.Interval)
	c.Network.ProbeAddress = envStr("PROBE_ADDRESS", c.Network.ProbeAddress)
	c.Ops.HTTPAddr = envStr("HTTP_ADDR", c.Ops.HTTPAddr)
	c.Ops.GRPCAddr = envStr("GRPC_ADDR", c.Ops.GRPCAddr)
	c.Influx.URL = envStr("INFLUX_URL", c.Influx.URL)
	c.Influx.Token = envStr("INFLUX_TOKEN", c.Influx.Token)
	c.Influx.Org = envStr("INFLUX_ORG", c.Influx.Org)
	c.Influx.Bucket = envStr("INFLUX_BUCKET", c.Influx.Bucket)
}

// Validate rejects configurations the actuator cannot run safely with.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.MQTT.Host == "" {
		add("mqtt.host is empty")
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		add("mqtt.port %d out of range", c.MQTT.Port)
	}
	if c.MQTT.CommandQoS < 0 || c.MQTT.CommandQoS > 2 {
		add("mqtt.command_qos must be 0, 1 or 2")
	}
	if c.Topics.Command == "" || c.Topics.State == "" {
		add("topics.command and topics.state are required")
	}
	if c.Loop.Interval <= 0 || c.Loop.PollInterval <= 0 {
		add("loop.interval and loop.poll_interval must be positive")
	}
	if c.Loop.MaxPolls < 1 {
		add("loop.max_polls must be at least 1")
	}
	// a connect that outlives one tick's wait budget completes unobserved
	if budget := time.Duration(c.Loop.MaxPolls) * c.Loop.PollInterval; budget > 0 && c.MQTT.ConnectTimeout > budget {
		add("mqtt.connect_timeout %s exceeds loop.max_polls*loop.poll_interval (%s)", c.MQTT.ConnectTimeout, budget)
	}
	if c.Loop.BreakerFailures < 1 {
		add("loop.breaker_failures must be at least 1")
	}
	if c.Network.Transport != TransportProbe && c.Network.Transport != TransportStatic {
		add("network.transport %q is neither %q nor %q", c.Network.Transport, TransportProbe, TransportStatic)
	}
	if err := c.Interlock.Thresholds().Validate(); err != nil {
		add("interlock: %v", err)
	}

	seen := make(map[string]bool, len(c.Sensors))
	for _, s := range c.Sensors {
		if seen[s.Name] {
			add("sensor %q defined twice", s.Name)
		}
		seen[s.Name] = true
		switch s.Kind {
		case model.KindPercent, model.KindZone:
			if s.Low == s.High {
				add("sensor %q: low and high calibration are equal", s.Name)
			}
		case model.KindScaled:
			if s.Scale == 0 {
				add("sensor %q: scale is zero", s.Name)
			}
		default:
			add("sensor %q: unknown kind %q", s.Name, s.Kind)
		}
	}
	if !seen[c.Interlock.Sensor] {
		add("interlock sensor %q is not configured", c.Interlock.Sensor)
	}

	if len(problems) > 0 {
		return errors.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
