package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Result is one row of the append-only results table.
type Result struct {
	ID        int64  `json:"id"`
	Source    string `json:"source"`
	RawData   string `json:"raw_data"` // JSON-serialized source record
	Analysis  string `json:"analysis"`
	Sentiment string `json:"sentiment"`
	Timestamp string `json:"timestamp"`
}

// Store is implemented by every results backend. There are no update or
// delete operations: rows are only ever appended.
type Store interface {
	InsertResult(ctx context.Context, r Result) (int64, error)
	GetResult(ctx context.Context, id int64) (Result, error)
	ListResults(ctx context.Context, limit, offset int) ([]Result, error)
	CountResults(ctx context.Context) (int, error)
	Close() error
}
