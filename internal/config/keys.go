package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "USERPIPE_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.max_conns", typ: kInt, env: "USERPIPE_SERVER_MAX_CONNS",
		apply:   func(cfg *Config, v any) { cfg.Server.MaxConns = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MaxConns },
	},
	{
		key: "server.mcp_stdio", typ: kBool, env: "USERPIPE_SERVER_MCP_STDIO",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPStdio = v.(bool) },
		extract: func(cfg Config) any { return cfg.Server.MCPStdio },
	},
	{
		key: "source.url", typ: kString, env: "USERPIPE_SOURCE_URL",
		apply:   func(cfg *Config, v any) { cfg.Source.URL = v.(string) },
		extract: func(cfg Config) any { return cfg.Source.URL },
	},
	{
		key: "source.timeout", typ: kDuration, env: "USERPIPE_SOURCE_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Source.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Source.Timeout },
	},
	{
		key: "source.rate_per_sec", typ: kFloat, env: "USERPIPE_SOURCE_RATE_PER_SEC",
		apply:   func(cfg *Config, v any) { cfg.Source.RatePerSec = v.(float64) },
		extract: func(cfg Config) any { return cfg.Source.RatePerSec },
	},
	{
		key: "source.report_fallback", typ: kBool, env: "USERPIPE_SOURCE_REPORT_FALLBACK",
		apply:   func(cfg *Config, v any) { cfg.Source.ReportFallback = v.(bool) },
		extract: func(cfg Config) any { return cfg.Source.ReportFallback },
	},
	{
		key: "storage.driver", typ: kString, env: "USERPIPE_STORAGE_DRIVER",
		apply:   func(cfg *Config, v any) { cfg.Storage.Driver = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Driver },
	},
	{
		key: "storage.data_dir", typ: kString, env: "USERPIPE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.postgres_dsn", typ: kString, env: "USERPIPE_POSTGRES_DSN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Storage.PostgresDSN = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.PostgresDSN },
	},
	{
		key: "notify.kind", typ: kString, env: "USERPIPE_NOTIFY_KIND",
		apply:   func(cfg *Config, v any) { cfg.Notify.Kind = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.Kind },
	},
	{
		key: "notify.redis_addr", typ: kString, env: "USERPIPE_NOTIFY_REDIS_ADDR",
		apply:   func(cfg *Config, v any) { cfg.Notify.RedisAddr = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.RedisAddr },
	},
	{
		key: "notify.redis_channel", typ: kString, env: "USERPIPE_NOTIFY_REDIS_CHANNEL",
		apply:   func(cfg *Config, v any) { cfg.Notify.RedisChannel = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.RedisChannel },
	},
	{
		key: "notify.kafka_brokers", typ: kString, env: "USERPIPE_NOTIFY_KAFKA_BROKERS",
		apply:   func(cfg *Config, v any) { cfg.Notify.KafkaBrokers = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.KafkaBrokers },
	},
	{
		key: "notify.kafka_topic", typ: kString, env: "USERPIPE_NOTIFY_KAFKA_TOPIC",
		apply:   func(cfg *Config, v any) { cfg.Notify.KafkaTopic = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.KafkaTopic },
	},
	{
		key: "notify.s3_bucket", typ: kString, env: "USERPIPE_NOTIFY_S3_BUCKET",
		apply:   func(cfg *Config, v any) { cfg.Notify.S3Bucket = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.S3Bucket },
	},
	{
		key: "notify.s3_prefix", typ: kString, env: "USERPIPE_NOTIFY_S3_PREFIX",
		apply:   func(cfg *Config, v any) { cfg.Notify.S3Prefix = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.S3Prefix },
	},
	{
		key: "notify.s3_region", typ: kString, env: "USERPIPE_NOTIFY_S3_REGION",
		apply:   func(cfg *Config, v any) { cfg.Notify.S3Region = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.S3Region },
	},
	{
		key: "log.level", typ: kString, env: "USERPIPE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

// parseValue converts raw text to the Go type of t.
func parseValue(t keyType, raw string) (any, error) {
	switch t {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	case kDuration:
		return time.ParseDuration(raw)
	default:
		return raw, nil
	}
}

func typeName(t keyType) string {
	switch t {
	case kInt:
		return "integer"
	case kBool:
		return "bool"
	case kFloat:
		return "float"
	case kDuration:
		return "duration"
	default:
		return "string"
	}
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		default:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if !ok || v == "" {
				continue
			}
			parsed, err := parseValue(s.typ, v)
			if err != nil {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse %s from config key %s=%q: %v. Using default value.\n", typeName(s.typ), s.key, v, err)
				continue
			}
			s.apply(cfg, parsed)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse %s from env var %s=%q: %v. Using default value.\n", typeName(s.typ), s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
