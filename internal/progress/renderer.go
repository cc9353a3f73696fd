package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// RendererOptions configures the console renderer.
type RendererOptions struct {
	// Output is where to write progress lines.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often the tracker is polled.
	// Default: 500ms
	UpdateInterval time.Duration
}

// Renderer polls a Tracker and prints human-readable progress lines. It runs
// on its own goroutine and never touches the download loop; the two sides
// share nothing beyond the tracker's latest snapshot.
type Renderer struct {
	tracker *Tracker
	opts    RendererOptions

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewRenderer creates a renderer over tracker.
func NewRenderer(tracker *Tracker, opts RendererOptions) *Renderer {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	return &Renderer{
		tracker: tracker,
		opts:    opts,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins polling the tracker.
func (r *Renderer) Start() {
	go r.updateLoop()
}

// Stop halts polling, prints the final status, and waits for the
// render goroutine to exit.
func (r *Renderer) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	<-r.doneCh
}

func (r *Renderer) updateLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinal()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

func (r *Renderer) printProgress() {
	s, ok := r.tracker.Latest()
	if !ok {
		return
	}

	eta := "estimating..."
	if s.HasETA {
		eta = FormatDuration(s.ETA)
	}

	fmt.Fprintf(r.opts.Output, "\r[inatdl] %d/%d images | ok %d failed %d skipped %d | %s/s | ETA: %s    ",
		s.Completed,
		s.Total,
		s.Succeeded,
		s.Failed,
		s.Skipped,
		FormatBytes(int64(s.BytesPerSecond)),
		eta,
	)
}

func (r *Renderer) printFinal() {
	s, ok := r.tracker.Latest()
	if !ok {
		return
	}

	fmt.Fprintf(r.opts.Output, "\r[inatdl] %d/%d images | ok %d failed %d skipped %d | %s written    \n",
		s.Completed,
		s.Total,
		s.Succeeded,
		s.Failed,
		s.Skipped,
		FormatBytes(s.Bytes),
	)
}
