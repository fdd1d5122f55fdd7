package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultURL is the live collection endpoint.
	DefaultURL = "https://jsonplaceholder.typicode.com/users"
	// DefaultTimeout bounds the whole live fetch, including rate-limit waits.
	DefaultTimeout = 10 * time.Second
	// MaxRecords caps every batch regardless of source size.
	MaxRecords = 3

	maxPayloadSize = 5 << 20 // 5MB
)

// Outcome is the tagged result of a fetch: either live records, or the
// fallback set together with the reason the live source was not used.
type Outcome struct {
	Records  []Record
	Fallback bool
	Reason   string
}

// Live reports whether the records came from the live source.
func (o Outcome) Live() bool { return !o.Fallback }

// Options configures a Fetcher. Zero values select the defaults.
type Options struct {
	URL        string
	Timeout    time.Duration
	// RatePerSec caps upstream requests across every Fetch on this Fetcher.
	// Callers sharing one Fetcher share the budget. <= 0 disables limiting.
	RatePerSec float64
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Fetcher obtains a bounded batch of source records.
type Fetcher struct {
	url     string
	timeout time.Duration
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewFetcher creates a Fetcher from opts.
func NewFetcher(opts Options) *Fetcher {
	f := &Fetcher{
		url:     opts.URL,
		timeout: opts.Timeout,
		client:  opts.HTTPClient,
		logger:  opts.Logger,
	}
	if f.url == "" {
		f.url = DefaultURL
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.client == nil {
		f.client = &http.Client{}
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	if opts.RatePerSec > 0 {
		burst := int(opts.RatePerSec)
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}
	return f
}

// Fetch never fails: any problem with the live source yields the fallback set
// and the reason.
func (f *Fetcher) Fetch(ctx context.Context) Outcome {
	records, err := f.fetchLive(ctx)
	if err != nil {
		f.logger.Warn("source unavailable, using fallback records", "url", f.url, "error", err)
		return Outcome{Records: Fallback(), Fallback: true, Reason: err.Error()}
	}
	f.logger.Debug("fetched live records", "url", f.url, "count", len(records))
	return Outcome{Records: records}
}

func (f *Fetcher) fetchLive(ctx context.Context) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var records []Record
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxPayloadSize))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("source returned no records")
	}

	if len(records) > MaxRecords {
		records = records[:MaxRecords]
	}
	return records, nil
}
