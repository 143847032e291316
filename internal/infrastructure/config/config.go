package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the parsed config.yaml. Values not present in the file keep the
// defaults from defaultConfig; a listeners list in the file replaces the
// default listeners entirely.
type Config struct {
	Service   ServiceConfig    `yaml:"service"`
	Listeners []ListenerConfig `yaml:"listeners"`
	Output    OutputConfig     `yaml:"output"`
	Database  DatabaseConfig   `yaml:"database"`
	MQTT      MQTTConfig       `yaml:"mqtt"`
	NATS      NATSConfig       `yaml:"nats"`
	API       APIConfig        `yaml:"api"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
	InfluxDB  InfluxDBConfig   `yaml:"influxdb"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// ServiceConfig identifies this bridge instance. ID becomes the MQTT
// presence client and the influx "bridge" tag.
type ServiceConfig struct {
	ID string `yaml:"id"`
}

// ListenerConfig declares one CoT listener created at startup.
type ListenerConfig struct {
	Port     int    `yaml:"port"`
	Protocol string `yaml:"protocol"`

	// Bind is the local address to bind. Empty binds all interfaces.
	Bind string `yaml:"bind"`

	// PacketSize is the UDP datagram buffer size in bytes.
	// Default: 1024
	PacketSize int `yaml:"packet_size"`

	// Debug enables per-message dumps for this listener.
	Debug bool `yaml:"debug"`

	// Autostart starts the listener after it is registered.
	// Default: true
	Autostart *bool `yaml:"autostart"`
}

// ShouldAutostart reports whether the listener starts with the process.
func (l ListenerConfig) ShouldAutostart() bool {
	return l.Autostart == nil || *l.Autostart
}

// OutputConfig controls how enriched events are rendered.
type OutputConfig struct {
	// JSONIndent is the number of spaces per nesting level. Negative
	// values select the default of 3; zero produces compact JSON.
	JSONIndent int `yaml:"json_indent"`
}

// DatabaseConfig selects the SQLite file holding the listener audit trail.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig configures the event and listener-status publisher and the
// optional command topic.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// TopicPrefix is the root of every published and subscribed topic.
	// Default: "cotbridge"
	TopicPrefix string `yaml:"topic_prefix"`

	// Commands enables the listener control topic.
	Commands bool `yaml:"commands"`
}

// MQTTBrokerConfig addresses the broker.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig holds optional broker credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig bounds paho's reconnect backoff, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// NATSConfig configures the event publisher on the NATS bus.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Name    string `yaml:"name"`
	Token   string `yaml:"token"`

	// SubjectPrefix is prepended to "<protocol>.<port>".
	// Default: "cot.events"
	SubjectPrefix string `yaml:"subject_prefix"`

	// MaxReconnects is the reconnect budget; -1 retries forever.
	MaxReconnects int `yaml:"max_reconnects"`

	// ReconnectWait is the delay between reconnect attempts in seconds.
	ReconnectWait int `yaml:"reconnect_wait"`
}

// APIConfig configures the HTTP control plane.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig points at the API certificate pair.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig holds http.Server timeouts in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// ReadTimeout is Read as a Duration. It also bounds header reads.
func (t APITimeoutConfig) ReadTimeout() time.Duration { return seconds(t.Read) }

// WriteTimeout is Write as a Duration.
func (t APITimeoutConfig) WriteTimeout() time.Duration { return seconds(t.Write) }

// IdleTimeout is Idle as a Duration.
func (t APITimeoutConfig) IdleTimeout() time.Duration { return seconds(t.Idle) }

// CORSConfig lists what browsers on other origins may do. An empty
// AllowedOrigins allows any origin.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig configures the event and listener-status stream.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// PingEvery is PingInterval as a Duration.
func (w WebSocketConfig) PingEvery() time.Duration { return seconds(w.PingInterval) }

// PongWait is PongTimeout as a Duration. It also bounds each write.
func (w WebSocketConfig) PongWait() time.Duration { return seconds(w.PongTimeout) }

// InfluxDBConfig configures the time-series sink for message and
// listener-transition points.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig selects level ("debug", "info", "warn", "error"), format
// ("json" or "text") and destination ("stdout" or "stderr").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load builds a Config from defaults, the YAML file at path and then
// COTBRIDGE_* environment variables, in that order, and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return cfg, nil
}

// defaultConfig listens for CoT on UDP 9999 and TCP 9998, serves the API
// on 8080 and enables no external sinks.
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{ID: "cotbridge-001"},
		Listeners: []ListenerConfig{
			{Port: 9999, Protocol: "udp", PacketSize: 1024},
			{Port: 9998, Protocol: "tcp"},
		},
		Output: OutputConfig{JSONIndent: 3},
		Database: DatabaseConfig{
			Path:        "./data/cotbridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker:      MQTTBrokerConfig{Host: "localhost", Port: 1883, ClientID: "cotbridge"},
			QoS:         1,
			Reconnect:   MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 60},
			TopicPrefix: "cotbridge",
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			Name:          "cotbridge",
			SubjectPrefix: "cot.events",
			MaxReconnects: -1,
			ReconnectWait: 2,
		},
		API: APIConfig{
			Enabled:  true,
			Host:     "0.0.0.0",
			Port:     8080,
			Timeouts: APITimeoutConfig{Read: 30, Write: 30, Idle: 60},
		},
		WebSocket: WebSocketConfig{Path: "/ws", MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		InfluxDB:  InfluxDBConfig{BatchSize: 100, FlushInterval: 10},
		Logging:   LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

// envOverrides maps each supported environment variable to the field it
// replaces. Empty variables are ignored.
var envOverrides = []struct {
	name string
	set  func(c *Config, v string)
}{
	{"COTBRIDGE_SERVICE_ID", func(c *Config, v string) { c.Service.ID = v }},
	{"COTBRIDGE_LOG_LEVEL", func(c *Config, v string) { c.Logging.Level = v }},
	{"COTBRIDGE_LOG_FORMAT", func(c *Config, v string) { c.Logging.Format = v }},
	{"COTBRIDGE_DATABASE_PATH", func(c *Config, v string) { c.Database.Path = v }},
	{"COTBRIDGE_MQTT_HOST", func(c *Config, v string) { c.MQTT.Broker.Host = v }},
	{"COTBRIDGE_MQTT_USERNAME", func(c *Config, v string) { c.MQTT.Auth.Username = v }},
	{"COTBRIDGE_MQTT_PASSWORD", func(c *Config, v string) { c.MQTT.Auth.Password = v }},
	{"COTBRIDGE_NATS_URL", func(c *Config, v string) { c.NATS.URL = v }},
	{"COTBRIDGE_NATS_TOKEN", func(c *Config, v string) { c.NATS.Token = v }},
	{"COTBRIDGE_API_HOST", func(c *Config, v string) { c.API.Host = v }},
	{"COTBRIDGE_API_PORT", func(c *Config, v string) { setInt(&c.API.Port, v) }},
	{"COTBRIDGE_INFLUXDB_TOKEN", func(c *Config, v string) { c.InfluxDB.Token = v }},
}

func applyEnvOverrides(cfg *Config) {
	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			o.set(cfg, v)
		}
	}
}

// setInt leaves dst unchanged when v is not a number.
func setInt(dst *int, v string) {
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

// problems collects validation failures keyed by their YAML path.
type problems []error

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Errorf(format, args...))
}

func (p *problems) port(field string, port int) {
	if port < 1 || port > 65535 {
		p.addf("%s must be between 1 and 65535, got %d", field, port)
	}
}

func (p *problems) required(field, value string) {
	if value == "" {
		p.addf("%s is required", field)
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var p problems

	p.required("service.id", c.Service.ID)

	ports := make(map[int]int, len(c.Listeners))
	for i, l := range c.Listeners {
		field := fmt.Sprintf("listeners[%d]", i)
		p.port(field+".port", l.Port)
		if proto := strings.ToLower(l.Protocol); proto != "udp" && proto != "tcp" {
			p.addf("%s.protocol must be udp or tcp, got %q", field, l.Protocol)
		}
		if l.PacketSize < 0 {
			p.addf("%s.packet_size must not be negative", field)
		}
		if first, dup := ports[l.Port]; dup {
			p.addf("%s.port %d is declared more than once (first at listeners[%d])", field, l.Port, first)
			continue
		}
		ports[l.Port] = i
	}

	if c.Database.Enabled {
		p.required("database.path", c.Database.Path)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		p.addf("mqtt.qos must be 0, 1, or 2, got %d", c.MQTT.QoS)
	}
	if c.MQTT.Enabled {
		p.required("mqtt.topic_prefix", c.MQTT.TopicPrefix)
	}
	if c.NATS.Enabled {
		p.required("nats.url", c.NATS.URL)
		p.required("nats.subject_prefix", c.NATS.SubjectPrefix)
	}
	if c.API.Enabled {
		p.port("api.port", c.API.Port)
	}
	if c.InfluxDB.Enabled {
		p.required("influxdb.url", c.InfluxDB.URL)
	}

	return errors.Join(p...)
}
