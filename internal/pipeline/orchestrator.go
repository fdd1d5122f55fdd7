package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/userpipe/internal/analysis"
	"github.com/kalambet/userpipe/internal/notify"
	"github.com/kalambet/userpipe/internal/source"
	"github.com/kalambet/userpipe/internal/storage"
)

// Fetcher supplies the batch. It never fails; a fallback outcome carries the
// reason the live source was skipped.
type Fetcher interface {
	Fetch(ctx context.Context) source.Outcome
}

// Analyzer derives the summary and sentiment for one record.
type Analyzer interface {
	Analyze(rec source.Record) (analysis.Result, error)
}

// ResultStore appends one row per analyzed record.
type ResultStore interface {
	InsertResult(ctx context.Context, r storage.Result) (int64, error)
}

// Notifier emits the completion signal for a batch.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notification) error
}

// Deps wires the orchestrator. Fetcher, Analyzer, Store and Notifier are
// required.
type Deps struct {
	Fetcher  Fetcher
	Analyzer Analyzer
	Store    ResultStore
	Notifier Notifier

	Clock    func() time.Time
	NewRunID func() string
	Logger   *slog.Logger

	// QuietFallback keeps the fetch soft error out of the response; the
	// fallback is still logged.
	QuietFallback bool
}

// Orchestrator sequences the pipeline stages for each request.
type Orchestrator struct {
	fetcher       Fetcher
	analyzer      Analyzer
	store         ResultStore
	notifier      Notifier
	clock         func() time.Time
	newRunID      func() string
	logger        *slog.Logger
	quietFallback bool
}

// New creates an Orchestrator from deps.
func New(deps Deps) *Orchestrator {
	o := &Orchestrator{
		fetcher:       deps.Fetcher,
		analyzer:      deps.Analyzer,
		store:         deps.Store,
		notifier:      deps.Notifier,
		clock:         deps.Clock,
		newRunID:      deps.NewRunID,
		logger:        deps.Logger,
		quietFallback: deps.QuietFallback,
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	if o.newRunID == nil {
		o.newRunID = uuid.NewString
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Run executes one batch. The only error returned is a *ValidationError, in
// which case the response is the rejection body and no stage has run. Every
// other failure is reported in Response.Errors.
//
// Once validated, a run ignores cancellation of ctx and completes.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Response, error) {
	if err := Validate(req); err != nil {
		return o.Reject(err), err
	}
	ctx = context.WithoutCancel(ctx)

	runID := o.newRunID()
	logger := o.logger.With("run_id", runID)
	resp := Response{
		Items:  []ItemReport{},
		Errors: []string{},
		RunID:  runID,
	}
	logger.InfoContext(ctx, "pipeline started", "source", req.Source)
	logger.DebugContext(ctx, "pipeline destination", "destination", req.Email)

	outcome := o.fetcher.Fetch(ctx)
	if outcome.Fallback {
		logger.WarnContext(ctx, "using fallback records", "stage", StageFetch, "error", outcome.Reason)
		if !o.quietFallback {
			err := &StageError{Stage: StageFetch, Err: errors.New(outcome.Reason + "; using fallback data")}
			resp.Errors = append(resp.Errors, err.Error())
		}
	}

	for i, rec := range outcome.Records {
		item, errs := o.processRecord(ctx, logger, i+1, req.Source, rec)
		resp.Items = append(resp.Items, item)
		for _, err := range errs {
			resp.Errors = append(resp.Errors, err.Error())
		}
	}

	err := o.notifier.Notify(ctx, notify.Notification{
		RunID:       runID,
		Destination: req.Email,
		ItemCount:   len(resp.Items),
		Source:      req.Source,
		SentAt:      FormatTimestamp(o.clock()),
	})
	if err != nil {
		logger.WarnContext(ctx, "notification failed", "stage", StageNotify, "error", err)
		resp.Errors = append(resp.Errors, (&StageError{Stage: StageNotify, Err: err}).Error())
	} else {
		resp.NotificationSent = true
	}

	resp.ProcessedAt = FormatTimestamp(o.clock())
	logger.InfoContext(ctx, "pipeline finished",
		"items", len(resp.Items),
		"errors", len(resp.Errors),
		"notification_sent", resp.NotificationSent,
	)
	return resp, nil
}

// Reject builds the response for a request that failed validation.
func (o *Orchestrator) Reject(err error) Response {
	msg := err.Error()
	var ve *ValidationError
	if errors.As(err, &ve) {
		msg = ve.Message
	}
	return Response{
		Items:       []ItemReport{},
		ProcessedAt: FormatTimestamp(o.clock()),
		Errors:      []string{msg},
	}
}

// processRecord analyzes and stores one record. n is the record's 1-based
// position. The item is always returned, degraded to fallback values where a
// stage failed; a panic is recovered into an error for that record.
func (o *Orchestrator) processRecord(ctx context.Context, logger *slog.Logger, n int, src string, rec source.Record) (item ItemReport, errs []error) {
	ts := FormatTimestamp(o.clock())
	item = ItemReport{
		Original:  analysis.DisplayName(rec),
		Analysis:  analysis.FallbackSummary,
		Sentiment: string(analysis.FallbackSentiment),
		Timestamp: ts,
	}

	defer func() {
		if r := recover(); r != nil {
			err := &StageError{Stage: StageRecord, Record: n, Err: fmt.Errorf("panic: %v", r)}
			logger.ErrorContext(ctx, "record processing panicked", "record", n, "error", err)
			errs = append(errs, err)
		}
	}()

	res, err := o.analyzer.Analyze(rec)
	if err != nil {
		logger.WarnContext(ctx, "analysis failed", "record", n, "stage", StageAnalyze, "error", err)
		errs = append(errs, &StageError{Stage: StageAnalyze, Record: n, Err: err})
	} else {
		item.Analysis = res.Summary
		item.Sentiment = string(res.Sentiment)
	}

	raw, err := source.Encode(rec)
	if err != nil {
		logger.WarnContext(ctx, "encoding record failed", "record", n, "stage", StageStore, "error", err)
		errs = append(errs, &StageError{Stage: StageStore, Record: n, Err: err})
		return item, errs
	}

	id, err := o.store.InsertResult(ctx, storage.Result{
		Source:    src,
		RawData:   raw,
		Analysis:  item.Analysis,
		Sentiment: item.Sentiment,
		Timestamp: ts,
	})
	if err != nil {
		logger.WarnContext(ctx, "storing result failed", "record", n, "stage", StageStore, "error", err)
		errs = append(errs, &StageError{Stage: StageStore, Record: n, Err: err})
		return item, errs
	}
	item.Stored = true
	logger.DebugContext(ctx, "stored result", "record", n, "id", id)
	return item, errs
}
