package pipeline

import "fmt"

// Stages that can report soft errors.
const (
	StageFetch   = "fetch"
	StageAnalyze = "analyze"
	StageStore   = "store"
	StageNotify  = "notify"
	StageRecord  = "process"
)

// ValidationError rejects a request before any stage runs.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }

// StageError is a soft failure of one stage. Record is the 1-based position of
// the record in the batch, or 0 for batch-level stages.
type StageError struct {
	Stage  string
	Record int
	Err    error
}

func (e *StageError) Error() string {
	if e.Record > 0 {
		return fmt.Sprintf("record %d: %s: %v", e.Record, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
