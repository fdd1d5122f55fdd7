// Package pipeline runs one fetch, analyze, store and notify batch per request
// and reports every per-item and per-batch outcome in a single response.
package pipeline

import "time"

// DefaultSource labels stored rows when a request names no source.
const DefaultSource = "JSONPlaceholder Users"

// TimestampLayout renders ISO-8601 UTC timestamps with a Z suffix.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Request is a validated pipeline invocation.
type Request struct {
	Email  string
	Source string
}

// ItemReport is the outcome for one fetched record.
type ItemReport struct {
	Original  string `json:"original"`
	Analysis  string `json:"analysis"`
	Sentiment string `json:"sentiment"`
	Stored    bool   `json:"stored"`
	Timestamp string `json:"timestamp"`
}

// Response is the full report for one run. Items and Errors are never nil so
// they encode as [] rather than null.
type Response struct {
	Items            []ItemReport `json:"items"`
	NotificationSent bool         `json:"notificationSent"`
	ProcessedAt      string       `json:"processedAt"`
	Errors           []string     `json:"errors"`

	RunID string `json:"-"`
}

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
