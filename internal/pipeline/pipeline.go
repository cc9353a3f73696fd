package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"gocloud.dev/blob"
	"golang.org/x/time/rate"

	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/fetch"
	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/naming"
	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/progress"
)

// ErrAlreadyRunning is returned by Run when a previous run on the same
// Pipeline has not finished.
var ErrAlreadyRunning = errors.New("pipeline: a run is already in progress")

// WriteError is the fatal error returned when the destination rejects a
// write. Unlike a per-URL fetch failure, a broken destination breaks every
// subsequent task too, so the run aborts immediately.
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("pipeline: write %s: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Fetcher fetches one URL. *fetch.Client satisfies this; tests inject fakes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// Options configures the pipeline.
type Options struct {
	// Fetcher performs the HTTP fetches. Defaults to a fetch.Client
	// built from FetchOptions.
	Fetcher Fetcher

	// FetchOptions configures the default fetcher. Ignored when
	// Fetcher is set.
	FetchOptions fetch.Options

	// Progress is an optional snapshot sink, updated after every task.
	Progress *progress.Tracker

	// RateLimit caps fetch starts per second, to stay polite to the
	// image host. 0 disables pacing.
	RateLimit float64
}

// Failure records a URL that could not be downloaded and why.
type Failure struct {
	URL    string
	Reason string
}

// Summary aggregates the outcome of one run.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
	Cancelled bool

	// BytesWritten is the total size of all files written.
	BytesWritten int64

	// StartingNumber is the first sequence number used for this run.
	StartingNumber int

	// Failures lists every failed URL with its reason, in task order.
	Failures []Failure
}

// Pipeline downloads an ordered list of URLs, one at a time, into a bucket.
type Pipeline struct {
	opts    Options
	running atomic.Bool
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts}
}

// Run processes urls in order, writing each image to bucket as
// image_<n>.<ext> with n continuing from previous downloads found there.
//
// Per-URL failures never abort the run; they are counted and recorded in
// the summary. Blank or malformed URLs are skipped without a network call
// and do not consume a sequence number. Cancelling ctx stops the run at the
// next task boundary: the fetch in flight finishes or times out, its file
// is written, and everything already on disk is kept.
//
// A non-nil error means the run itself broke: the destination could not be
// scanned, or a write failed (*WriteError). The summary returned alongside
// a write error reflects the work completed before the abort.
func (p *Pipeline) Run(ctx context.Context, urls []string, bucket *blob.Bucket) (*Summary, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer p.running.Store(false)

	fetcher := p.opts.Fetcher
	if fetcher == nil {
		fetcher = fetch.NewClient(p.opts.FetchOptions)
	}

	var limiter *rate.Limiter
	if p.opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(p.opts.RateLimit), 1)
	}

	num, err := naming.StartingNumber(ctx, bucket)
	if err != nil {
		return nil, err
	}

	summary := &Summary{StartingNumber: num}
	total := len(urls)
	start := time.Now()

	// The task in flight when ctx is cancelled still finishes, fetch and
	// write both; cancellation only stops the next task from starting.
	// The fetch stays bounded by its own per-attempt timeout.
	taskCtx := context.WithoutCancel(ctx)

	for _, raw := range urls {
		// Cancellation is honored at task boundaries only; an
		// in-flight fetch always runs to completion or timeout.
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}

		u := strings.TrimSpace(raw)
		if !wellFormed(u) {
			summary.Skipped++
			p.publish(summary, total, start)
			continue
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				summary.Cancelled = true
				break
			}
		}

		res, err := fetcher.Fetch(taskCtx, u)
		if err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{URL: u, Reason: failureReason(err)})
			p.publish(summary, total, start)
			continue
		}

		ext := naming.ExtensionForURL(res.ContentType, u)
		key := naming.Filename(num, ext)
		if err := bucket.WriteAll(taskCtx, key, res.Body, nil); err != nil {
			return summary, &WriteError{Key: key, Err: err}
		}

		summary.Succeeded++
		summary.BytesWritten += int64(len(res.Body))
		num++
		p.publish(summary, total, start)
	}

	return summary, nil
}

// publish pushes a fresh snapshot into the tracker, if one is configured.
func (p *Pipeline) publish(s *Summary, total int, start time.Time) {
	if p.opts.Progress == nil {
		return
	}

	completed := s.Succeeded + s.Failed + s.Skipped
	elapsed := time.Since(start).Seconds()

	snap := progress.Snapshot{
		Completed: completed,
		Total:     total,
		Succeeded: s.Succeeded,
		Failed:    s.Failed,
		Skipped:   s.Skipped,
		Bytes:     s.BytesWritten,
	}
	if elapsed > 0 {
		snap.BytesPerSecond = float64(s.BytesWritten) / elapsed
	}
	if completed > 0 {
		perTask := elapsed / float64(completed)
		snap.ETA = time.Duration(perTask * float64(total-completed) * float64(time.Second))
		snap.HasETA = true
	}

	p.opts.Progress.Publish(snap)
}

// wellFormed reports whether u looks like a fetchable http(s) URL.
// No network call is made for anything that fails this check.
func wellFormed(u string) bool {
	if u == "" {
		return false
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// failureReason renders a fetch error for the summary's failure list.
func failureReason(err error) string {
	var httpErr *fetch.HTTPError
	var netErr *fetch.NetworkError

	switch {
	case errors.As(err, &httpErr):
		return fmt.Sprintf("http %d", httpErr.StatusCode)
	case errors.Is(err, fetch.ErrTimeout):
		return "timed out"
	case errors.Is(err, fetch.ErrContentTooSmall):
		return "response too small to be an image"
	case errors.As(err, &netErr):
		return "network error: " + netErr.Err.Error()
	default:
		return err.Error()
	}
}
