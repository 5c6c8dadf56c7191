package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/geoalarm/internal/logger"
)

// Config holds the settings shared by the geoalarm binaries.
type Config struct {
	// ServerAddress is the gRPC address the daemon listens on and clients dial.
	ServerAddress string `env:"SERVER_ADDR" yaml:"server_addr"`
	// HTTPAddress enables the position ingest HTTP API when set.
	HTTPAddress string `env:"HTTP_ADDR" yaml:"http_addr,omitempty"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `env:"TIMEOUT" yaml:"timeout"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" yaml:"log_level,omitempty"`
	// LogFormat is console or json.
	LogFormat string `env:"LOG_FORMAT" yaml:"log_format,omitempty"`

	Storage  Storage  `envPrefix:"STORAGE_"  yaml:"storage"`
	Tracking Tracking `envPrefix:"TRACKING_" yaml:"tracking"`
	Alarm    Alarm    `envPrefix:"ALARM_"    yaml:"alarm"`
	Redis    Redis    `envPrefix:"REDIS_"    yaml:"redis"`
}

// Storage selects where checkpoints survive restarts.
type Storage struct {
	// Driver is file, sqlite or memory.
	Driver string `env:"DRIVER" yaml:"driver"`
	// Path is the YAML file or SQLite database location.
	Path string `env:"PATH" yaml:"path"`
}

// Tracking configures the daemon's own position sources.
type Tracking struct {
	// PositionFile is where a GPS bridge writes the latest fix. Empty disables tracking.
	PositionFile string `env:"POSITION_FILE" yaml:"position_file,omitempty"`
	// PollInterval is the foreground polling period.
	PollInterval time.Duration `env:"POLL_INTERVAL" yaml:"poll_interval"`
	// Watch enables background updates on every write of PositionFile.
	Watch bool `env:"WATCH" yaml:"watch"`
}

// Alarm configures the alarm itself.
type Alarm struct {
	// DefaultSnooze applies when a snooze request carries no duration.
	DefaultSnooze time.Duration `env:"DEFAULT_SNOOZE" yaml:"default_snooze"`
	// Command is the argv started while the alarm sounds. Empty picks a per-OS default.
	Command []string `env:"COMMAND" envSeparator:" " yaml:"command,omitempty"`
}

// Redis configures the event notifier. An empty address disables it.
type Redis struct {
	Address    string `env:"ADDR"        yaml:"address,omitempty"`
	Password   string `env:"PASSWORD"    yaml:"password,omitempty"`
	DB         int    `env:"DB"          yaml:"db,omitempty"`
	Key        string `env:"KEY"         yaml:"key,omitempty"`
	BufferSize int    `env:"BUFFER_SIZE" yaml:"buffer_size,omitempty"`
}

// Storage drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "geoalarm-settings.yaml"

	// DefaultCheckpointsFilename is the default file for the YAML checkpoint store.
	DefaultCheckpointsFilename = "geoalarm-checkpoints.yaml"

	// DefaultDatabaseFilename is the default SQLite database.
	DefaultDatabaseFilename = "geoalarm.db"

	// DefaultServerAddress is used when no gRPC address is configured.
	DefaultServerAddress = "localhost:50051"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultPollInterval is the foreground tracking period.
	DefaultPollInterval = 60 * time.Second

	// DefaultSnooze is the snooze length used when none is requested.
	DefaultSnooze = 5 * time.Minute

	// DefaultRedisKey is the list events are pushed to.
	DefaultRedisKey = "geoalarm:events"

	// DefaultRedisBufferSize bounds events waiting for Redis.
	DefaultRedisBufferSize = 128

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// EnvPrefix prefixes every environment variable.
	EnvPrefix = "GEOALARM_"

	// DotEnvFilename is read when present; real environment variables win.
	DotEnvFilename = ".env"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownDriver is returned for unsupported storage drivers.
	errUnknownDriver = errors.New("unknown storage driver")
	// errUnknownLogLevel is returned for unsupported log levels.
	errUnknownLogLevel = errors.New("unknown log level")
	// errUnknownLogFormat is returned for unsupported log formats.
	errUnknownLogFormat = errors.New("unknown log format")
	// errNegativeValue is returned for negative durations and sizes.
	errNegativeValue = errors.New("value must not be negative")
)

// Load reads settings from path, overlays GEOALARM_* environment variables
// (including those from a .env file) and validates the result.
// With an empty path the default file is optional.
func Load(path string) (*Config, error) {
	environ := env.ToMap(os.Environ())

	dotenv, err := godotenv.Read(DotEnvFilename)

	switch {
	case err == nil:
		for key, value := range dotenv {
			if _, ok := environ[key]; !ok {
				environ[key] = value
			}
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read %s: %w", DotEnvFilename, err)
	}

	return load(path, environ)
}

func load(path string, environ map[string]string) (*Config, error) {
	optional := path == ""
	if optional {
		path = DefaultConfigFilename
	}

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err := yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case optional && errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	//nolint:exhaustruct // Only prefix and environment matter here.
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes Settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may carry the Redis password.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks addresses, drivers and durations.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		settings.ServerAddress = DefaultServerAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.HTTPAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.HTTPAddress); err != nil {
			return fmt.Errorf("invalid http socket: %w", err)
		}
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, settings.LogLevel)
	}

	switch logger.Format(strings.ToLower(settings.LogFormat)) {
	case "":
		settings.LogFormat = string(logger.FormatConsole)
	case logger.FormatConsole, logger.FormatJSON:
		settings.LogFormat = strings.ToLower(settings.LogFormat)
	default:
		return fmt.Errorf("%w: %q", errUnknownLogFormat, settings.LogFormat)
	}

	if err := validateStorage(&settings.Storage); err != nil {
		return err
	}

	if settings.Tracking.PollInterval < 0 || settings.Alarm.DefaultSnooze < 0 || settings.Redis.BufferSize < 0 {
		return errNegativeValue
	}

	if settings.Tracking.PollInterval == 0 {
		settings.Tracking.PollInterval = DefaultPollInterval
	}

	if settings.Alarm.DefaultSnooze == 0 {
		settings.Alarm.DefaultSnooze = DefaultSnooze
	}

	if settings.Redis.Address == "" {
		return nil
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.Redis.Address); err != nil {
		return fmt.Errorf("invalid redis address: %w", err)
	}

	if settings.Redis.Key == "" {
		settings.Redis.Key = DefaultRedisKey
	}

	if settings.Redis.BufferSize == 0 {
		settings.Redis.BufferSize = DefaultRedisBufferSize
	}

	return nil
}

func validateStorage(storage *Storage) error {
	storage.Driver = strings.ToLower(strings.TrimSpace(storage.Driver))

	switch storage.Driver {
	case "", DriverFile:
		storage.Driver = DriverFile

		if storage.Path == "" {
			storage.Path = DefaultCheckpointsFilename
		}
	case DriverSQLite:
		if storage.Path == "" {
			storage.Path = DefaultDatabaseFilename
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: %q", errUnknownDriver, storage.Driver)
	}

	return nil
}
