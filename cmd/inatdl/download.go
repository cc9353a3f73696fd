package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/config"
	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/csvsource"
	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/fetch"
	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/pipeline"
	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/preflight"
	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/progress"
)

func runDownload(args []string) int {
	fs := flag.NewFlagSet("download", flag.ExitOnError)

	csvPath := fs.String("csv", "", "CSV file with image URLs (required)")
	dir := fs.String("dir", "", "Destination directory or bucket URL (required)")
	configPath := fs.String("config", "", "YAML config file")
	column := fs.String("column", "", "CSV column to use instead of auto-detection")
	timeout := fs.Duration("timeout", 0, "Per-request timeout (default 30s)")
	retries := fs.Int("retries", 0, "Max attempts for transient failures (default 3)")
	baseDelay := fs.Duration("base-delay", 0, "Initial retry delay, doubled per retry (default 2s)")
	rateLimit := fs.Float64("rate-limit", 0, "Max requests per second, 0 for unlimited")
	userAgent := fs.String("user-agent", "", "User-Agent header")
	showProgress := fs.Bool("progress", false, "Show progress output")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: inatdl download [options]

Download every image linked in a CSV export, one at a time, into a
directory. Files are named image_<n>.<ext>, continuing the numbering of
any images already present.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg := config.Default()
	if *configPath != "" {
		fileCfg, err := config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitInvalidArgs
		}
		cfg = fileCfg
	}
	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	cfg = cfg.Merge(config.Config{
		CSVPath:     *csvPath,
		Destination: *dir,
		Column:      *column,
		Timeout:     *timeout,
		MaxRetries:  *retries,
		BaseDelay:   *baseDelay,
		RateLimit:   *rateLimit,
		UserAgent:   *userAgent,
	})
	// Merge cannot tell a false bool from an absent one, so -progress is
	// applied separately: when passed explicitly it wins either way, which
	// lets the flag switch off progress: true from a config file.
	cfg.Progress = progressSetting(fs, cfg.Progress, *showProgress)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}

	src, err := csvsource.Read(cfg.CSVPath, cfg.Column)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitBadCSV
	}

	// Preflight only applies to local directories; remote buckets manage
	// their own existence and capacity.
	if isLocalPath(cfg.Destination) {
		if err := preflight.Check(cfg.Destination, 0); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitPreflightFailed
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n[inatdl] Received interrupt, finishing current image...")
		cancel()
	}()

	bucket, err := openBucket(ctx, cfg.Destination)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitStorageError
	}
	defer bucket.Close()

	tracker := progress.NewTracker()
	opts := pipeline.Options{
		FetchOptions: fetch.Options{
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  cfg.BaseDelay,
			MinBytes:   cfg.MinBytes,
			UserAgent:  cfg.UserAgent,
		},
		Progress:  tracker,
		RateLimit: cfg.RateLimit,
	}

	var renderer *progress.Renderer
	if cfg.Progress {
		renderer = progress.NewRenderer(tracker, progress.RendererOptions{
			UpdateInterval: 500 * time.Millisecond,
		})
		renderer.Start()
	}

	summary, err := pipeline.New(opts).Run(ctx, src.URLs, bucket)
	if renderer != nil {
		renderer.Stop()
	}

	printSummary(summary)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return exitCodeFor(summary, err)
}

// progressSetting resolves the -progress flag against the merged config:
// the flag wins whenever it was passed on the command line, even as false.
func progressSetting(fs *flag.FlagSet, merged, flagValue bool) bool {
	passed := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "progress" {
			passed = true
		}
	})
	if passed {
		return flagValue
	}
	return merged
}

// exitCodeFor maps a run outcome to a process exit code. Any error out of
// the pipeline is a storage problem: either the destination could not be
// scanned for existing downloads, or a write failed.
func exitCodeFor(s *pipeline.Summary, err error) int {
	if err != nil {
		return ExitStorageError
	}
	if s.Cancelled {
		return ExitCancelled
	}
	return ExitSuccess
}

func printSummary(s *pipeline.Summary) {
	if s == nil {
		return
	}

	status := "Download complete"
	if s.Cancelled {
		status = "Download cancelled"
	}

	fmt.Fprintf(os.Stderr, "[inatdl] %s: %d succeeded, %d failed, %d skipped (%s written)\n",
		status, s.Succeeded, s.Failed, s.Skipped, progress.FormatBytes(s.BytesWritten))

	for _, f := range s.Failures {
		fmt.Fprintf(os.Stderr, "[inatdl]   failed %s: %s\n", f.URL, f.Reason)
	}
}

// isLocalPath reports whether dest names a local directory rather than a
// bucket URL such as s3://photos or file:///tmp/images.
func isLocalPath(dest string) bool {
	return !strings.Contains(dest, "://")
}

// openBucket opens dest as a gocloud bucket. Plain directory paths are
// converted to file:// URLs; anything with a scheme is passed through.
func openBucket(ctx context.Context, dest string) (*blob.Bucket, error) {
	if isLocalPath(dest) {
		abs, err := filepath.Abs(dest)
		if err != nil {
			return nil, fmt.Errorf("resolve destination: %w", err)
		}
		// metadata=skip keeps fileblob from writing .attrs sidecar
		// files next to the downloaded images.
		dest = "file://" + (&url.URL{Path: abs}).EscapedPath() + "?metadata=skip"
	}
	return blob.OpenBucket(ctx, dest)
}
