package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/vcore/internal/errors"
	"github.com/vango-dev/vcore/pkg/liveview"
)

const (
	// JSONFileName is the name of the JSON configuration file.
	JSONFileName = "vcore.json"

	// YAMLFileName is the name of the YAML configuration file.
	YAMLFileName = "vcore.yaml"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default server host.
	DefaultHost = "localhost"
)

// fileNames are searched in order by Load.
var fileNames = []string{JSONFileName, YAMLFileName, "vcore.yml"}

// Config represents the complete vcore configuration.
type Config struct {
	// Name is the application name, used as the page title by default.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Server contains HTTP listener configuration.
	Server ServerConfig `json:"server" yaml:"server"`

	// Liveview contains WebSocket session configuration.
	Liveview LiveviewConfig `json:"liveview" yaml:"liveview"`

	// Engine contains reconciliation engine configuration.
	Engine EngineConfig `json:"engine" yaml:"engine"`

	// Log contains logging configuration.
	Log LogConfig `json:"log" yaml:"log"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Recorder contains session recording configuration.
	Recorder RecorderConfig `json:"recorder" yaml:"recorder"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout Duration `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`
}

// LiveviewConfig contains WebSocket session settings. Zero values take
// the liveview defaults.
type LiveviewConfig struct {
	Title             string   `json:"title,omitempty" yaml:"title,omitempty"`
	SocketPath        string   `json:"socketPath,omitempty" yaml:"socketPath,omitempty"`
	ClientScript      string   `json:"clientScript,omitempty" yaml:"clientScript,omitempty"`
	HandshakeTimeout  Duration `json:"handshakeTimeout,omitempty" yaml:"handshakeTimeout,omitempty"`
	ReadTimeout       Duration `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`
	WriteTimeout      Duration `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`
	HeartbeatInterval Duration `json:"heartbeatInterval,omitempty" yaml:"heartbeatInterval,omitempty"`
	ResumeWindow      Duration `json:"resumeWindow,omitempty" yaml:"resumeWindow,omitempty"`
	MaxMessageSize    int64    `json:"maxMessageSize,omitempty" yaml:"maxMessageSize,omitempty"`
	MaxSessions       int      `json:"maxSessions,omitempty" yaml:"maxSessions,omitempty"`
	MaxEventQueue     int      `json:"maxEventQueue,omitempty" yaml:"maxEventQueue,omitempty"`
	HistorySize       int      `json:"historySize,omitempty" yaml:"historySize,omitempty"`

	// AllowedOrigins lists the hosts allowed to open a WebSocket besides
	// the page's own host. "*" allows any origin.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
}

// EngineConfig contains engine settings.
type EngineConfig struct {
	// Debug enables hook-order checks and verbose frame logging.
	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// RecorderConfig contains session recording settings.
type RecorderConfig struct {
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Backend is disk or s3.
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// Dir is the recordings directory of the disk backend.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Bucket, Prefix, Region and Endpoint configure the s3 backend.
	// Endpoint is only needed for S3-compatible stores.
	Bucket   string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// MaxBytes caps one recording.
	MaxBytes int `json:"maxBytes,omitempty" yaml:"maxBytes,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Name: "vcore",
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Namespace: "vcore",
		},
		Recorder: RecorderConfig{
			Backend: "disk",
			Dir:     "recordings",
		},
	}
}

// Load reads the configuration file in dir. vcore.json is preferred over
// vcore.yaml.
func Load(dir string) (*Config, error) {
	for _, name := range fileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E602").
		WithDetail("No " + JSONFileName + " or " + YAMLFileName + " found in " + dir).
		WithSuggestion("Create one, or run without --config to use the defaults")
}

// LoadFile reads configuration from path. The format follows the file
// extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E602").WithDetail(path).Wrap(err)
	}

	cfg := New()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("E601").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path in the format of its extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E601").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E602").WithDetail(path).Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if c.Liveview.Title == "" {
		c.Liveview.Title = c.Name
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "vcore"
	}
	if c.Recorder.Backend == "" {
		c.Recorder.Backend = "disk"
	}
	if c.Recorder.Dir == "" {
		c.Recorder.Dir = "recordings"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	invalid := func(detail string) error {
		return errors.New("E601").WithDetail(detail)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return invalid("server.port must be between 0 and 65535")
	}
	if p := c.Liveview.SocketPath; p != "" && !strings.HasPrefix(p, "/") {
		return invalid("liveview.socketPath must start with /")
	}
	if c.Liveview.ReadTimeout != 0 && c.Liveview.HeartbeatInterval != 0 &&
		c.Liveview.ReadTimeout <= c.Liveview.HeartbeatInterval {
		return invalid("liveview.readTimeout must be longer than liveview.heartbeatInterval")
	}
	if c.Liveview.MaxSessions < 0 || c.Liveview.MaxEventQueue < 0 || c.Liveview.HistorySize < 0 {
		return invalid("liveview limits must not be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return invalid(err.Error())
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("log.format must be text or json, got " + strconv.Quote(c.Log.Format))
	}
	if c.Recorder.Enabled {
		switch c.Recorder.Backend {
		case "disk":
		case "s3":
			if c.Recorder.Bucket == "" {
				return invalid("recorder.bucket is required for the s3 backend")
			}
		default:
			return invalid("recorder.backend must be disk or s3, got " + strconv.Quote(c.Recorder.Backend))
		}
	}
	return nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// LiveviewConfig converts the liveview section for liveview.New.
func (c *Config) LiveviewConfig() liveview.Config {
	lc := liveview.DefaultConfig()
	l := c.Liveview
	if l.Title != "" {
		lc.Title = l.Title
	}
	if l.SocketPath != "" {
		lc.SocketPath = l.SocketPath
	}
	if l.ClientScript != "" {
		lc.ClientScript = l.ClientScript
	}
	if l.HandshakeTimeout != 0 {
		lc.HandshakeTimeout = l.HandshakeTimeout.Std()
	}
	if l.ReadTimeout != 0 {
		lc.ReadTimeout = l.ReadTimeout.Std()
	}
	if l.WriteTimeout != 0 {
		lc.WriteTimeout = l.WriteTimeout.Std()
	}
	if l.HeartbeatInterval != 0 {
		lc.HeartbeatInterval = l.HeartbeatInterval.Std()
	}
	if l.ResumeWindow != 0 {
		lc.ResumeWindow = l.ResumeWindow.Std()
	}
	if l.MaxMessageSize != 0 {
		lc.MaxMessageSize = l.MaxMessageSize
	}
	lc.MaxSessions = l.MaxSessions
	if l.MaxEventQueue != 0 {
		lc.MaxEventQueue = l.MaxEventQueue
	}
	if l.HistorySize != 0 {
		lc.HistorySize = l.HistorySize
	}
	if len(l.AllowedOrigins) > 0 {
		lc.CheckOrigin = originChecker(l.AllowedOrigins)
	}
	return lc
}

// originChecker allows same-origin requests and the listed hosts.
func originChecker(allowed []string) func(*http.Request) bool {
	hosts := make(map[string]bool, len(allowed))
	for _, h := range allowed {
		hosts[strings.ToLower(h)] = true
	}
	return func(r *http.Request) bool {
		if hosts["*"] || liveview.SameOriginCheck(r) {
			return true
		}
		u, err := url.Parse(r.Header.Get("Origin"))
		if err != nil {
			return false
		}
		return hosts[strings.ToLower(u.Host)] || hosts[strings.ToLower(u.Hostname())]
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

// Logger builds a logger from the log section writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range fileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the directory holding a
// configuration file.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E602").
				WithDetail("No " + JSONFileName + " or " + YAMLFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}
