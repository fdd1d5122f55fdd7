package config

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Source  SourceConfig
	Storage StorageConfig
	Notify  NotifyConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host     string
	Port     int
	MaxConns int
	MCPStdio bool
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type SourceConfig struct {
	URL            string
	Timeout        time.Duration
	RatePerSec     float64
	ReportFallback bool
}

type StorageConfig struct {
	Driver      string
	DataDir     string
	PostgresDSN string
}

type NotifyConfig struct {
	Kind         string
	RedisAddr    string
	RedisChannel string
	KafkaBrokers string
	KafkaTopic   string
	S3Bucket     string
	S3Prefix     string
	S3Region     string
}

// Brokers splits the comma-separated broker list.
func (n NotifyConfig) Brokers() []string {
	var out []string
	for _, b := range strings.Split(n.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

type LogConfig struct {
	Level string
}

// SlogLevel maps the configured level name; unknown names mean info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			Port:     10000,
			MaxConns: 256,
		},
		Source: SourceConfig{
			URL:            "https://jsonplaceholder.typicode.com/users",
			Timeout:        10 * time.Second,
			ReportFallback: true,
		},
		Storage: StorageConfig{
			Driver:  "sqlite",
			DataDir: ".",
		},
		Notify: NotifyConfig{
			Kind: "log",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from defaults, then the config file at FilePath,
// then environment variables. PORT selects the listening port; every other
// key has a USERPIPE_* variable.
func Load() (Config, error) {
	return loadFromPath(FilePath())
}

func loadFromPath(path string) (Config, error) {
	return loadWith(newFileBackend(path))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	switch c.Storage.Driver {
	case "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.driver is postgres but no DSN is set; set USERPIPE_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q (want sqlite or postgres)", c.Storage.Driver)
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be positive, got %s", c.Source.Timeout)
	}
	return nil
}
