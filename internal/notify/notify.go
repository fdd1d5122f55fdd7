// Package notify delivers the best-effort completion signal emitted after
// every pipeline batch.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Kinds accepted by Open.
const (
	KindLog   = "log"
	KindRedis = "redis"
	KindKafka = "kafka"
	KindS3    = "s3"
)

// Notification describes one completed batch.
type Notification struct {
	RunID       string `json:"run_id"`
	Destination string `json:"destination"`
	ItemCount   int    `json:"item_count"`
	Source      string `json:"source"`
	SentAt      string `json:"sent_at"`
}

func (n Notification) payload() ([]byte, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshalling notification: %w", err)
	}
	return b, nil
}

// Notifier sends completion notifications and owns any connection it opened.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
	Close() error
}

// Options selects and configures a Notifier.
type Options struct {
	Kind string

	RedisAddr    string
	RedisChannel string

	KafkaBrokers []string
	KafkaTopic   string

	S3Bucket string
	S3Prefix string
	S3Region string

	Logger *slog.Logger
}

// Open builds the notifier selected by opts.Kind. An empty kind selects the
// log notifier.
func Open(ctx context.Context, opts Options) (Notifier, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch strings.ToLower(opts.Kind) {
	case "", KindLog:
		return NewLogNotifier(logger), nil
	case KindRedis:
		return opened(NewRedisNotifier(opts.RedisAddr, opts.RedisChannel))
	case KindKafka:
		return opened(NewKafkaNotifier(opts.KafkaBrokers, opts.KafkaTopic))
	case KindS3:
		return opened(NewS3Notifier(ctx, S3Options{
			Bucket: opts.S3Bucket,
			Prefix: opts.S3Prefix,
			Region: opts.S3Region,
		}))
	default:
		return nil, fmt.Errorf("unknown notifier kind %q", opts.Kind)
	}
}

// opened keeps a failed constructor from returning a typed nil Notifier.
func opened[T Notifier](n T, err error) (Notifier, error) {
	if err != nil {
		return nil, err
	}
	return n, nil
}

// LogNotifier writes the notification to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier writing to logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.logger.InfoContext(ctx, "notification sent",
		"run_id", n.RunID,
		"destination", n.Destination,
		"item_count", n.ItemCount,
		"source", n.Source,
	)
	return nil
}

func (l *LogNotifier) Close() error { return nil }
