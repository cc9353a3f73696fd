package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"

	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/fetch"
	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/progress"
)

// fakeFetcher serves canned results without touching the network.
type fakeFetcher struct {
	results map[string]*fetch.Result
	errs    map[string]error
	calls   int
	onFetch func(calls int)
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*fetch.Result, error) {
	f.calls++
	if f.onFetch != nil {
		f.onFetch(f.calls)
	}
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if res, ok := f.results[url]; ok {
		return res, nil
	}
	return nil, &fetch.NetworkError{Err: errors.New("no canned result")}
}

func imageResult(size int, contentType string) *fetch.Result {
	body := make([]byte, size)
	for i := range body {
		body[i] = byte(i % 256)
	}
	return &fetch.Result{Body: body, ContentType: contentType, Attempts: 1}
}

func openMemBucket(t *testing.T) *blob.Bucket {
	t.Helper()
	bucket, err := blob.OpenBucket(context.Background(), "mem://")
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	t.Cleanup(func() { bucket.Close() })
	return bucket
}

func mustExist(t *testing.T, bucket *blob.Bucket, key string) {
	t.Helper()
	ok, err := bucket.Exists(context.Background(), key)
	if err != nil {
		t.Fatalf("exists %s: %v", key, err)
	}
	if !ok {
		t.Errorf("expected %s to exist", key)
	}
}

func mustNotExist(t *testing.T, bucket *blob.Bucket, key string) {
	t.Helper()
	ok, err := bucket.Exists(context.Background(), key)
	if err != nil {
		t.Fatalf("exists %s: %v", key, err)
	}
	if ok {
		t.Errorf("expected %s to not exist", key)
	}
}

func TestRunAllSucceed(t *testing.T) {
	urls := []string{
		"https://example.com/a.png",
		"https://example.com/b",
		"https://example.com/c",
	}
	fetcher := &fakeFetcher{results: map[string]*fetch.Result{
		urls[0]: imageResult(500, "image/png"),
		urls[1]: imageResult(600, "image/jpeg"),
		urls[2]: imageResult(700, "image/gif"),
	}}
	bucket := openMemBucket(t)

	summary, err := New(Options{Fetcher: fetcher}).Run(context.Background(), urls, bucket)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Succeeded != 3 || summary.Failed != 0 || summary.Skipped != 0 {
		t.Errorf("unexpected counts: %+v", summary)
	}
	if summary.Cancelled {
		t.Error("expected Cancelled to be false")
	}
	if summary.StartingNumber != 1 {
		t.Errorf("expected starting number 1, got %d", summary.StartingNumber)
	}
	if summary.BytesWritten != 1800 {
		t.Errorf("expected 1800 bytes written, got %d", summary.BytesWritten)
	}

	mustExist(t, bucket, "image_1.png")
	mustExist(t, bucket, "image_2.jpg")
	mustExist(t, bucket, "image_3.gif")
}

func TestRunResumesNumbering(t *testing.T) {
	bucket := openMemBucket(t)
	ctx := context.Background()
	if err := bucket.WriteAll(ctx, "image_2.jpg", []byte("old"), nil); err != nil {
		t.Fatalf("seed bucket: %v", err)
	}

	url := "https://example.com/a"
	fetcher := &fakeFetcher{results: map[string]*fetch.Result{
		url: imageResult(500, "image/png"),
	}}

	summary, err := New(Options{Fetcher: fetcher}).Run(ctx, []string{url}, bucket)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.StartingNumber != 3 {
		t.Errorf("expected numbering to resume at 3, got %d", summary.StartingNumber)
	}
	mustExist(t, bucket, "image_3.png")
}

func TestRunSkipsUnusableURLs(t *testing.T) {
	urls := []string{
		"",
		"   ",
		"not a url",
		"ftp://example.com/a.png",
		"https://example.com/ok",
	}
	fetcher := &fakeFetcher{results: map[string]*fetch.Result{
		"https://example.com/ok": imageResult(500, "image/png"),
	}}
	bucket := openMemBucket(t)

	summary, err := New(Options{Fetcher: fetcher}).Run(context.Background(), urls, bucket)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Skipped != 4 {
		t.Errorf("expected 4 skipped, got %d", summary.Skipped)
	}
	if summary.Succeeded != 1 {
		t.Errorf("expected 1 succeeded, got %d", summary.Succeeded)
	}
	if fetcher.calls != 1 {
		t.Errorf("skipped URLs must not hit the network, got %d calls", fetcher.calls)
	}

	// Skipped URLs do not consume sequence numbers.
	mustExist(t, bucket, "image_1.png")
	mustNotExist(t, bucket, "image_5.png")
}

func TestRunRecordsFailuresAndContinues(t *testing.T) {
	urls := []string{
		"https://example.com/gone",
		"https://example.com/slow",
		"https://example.com/ok",
	}
	fetcher := &fakeFetcher{
		results: map[string]*fetch.Result{
			urls[2]: imageResult(500, "image/jpeg"),
		},
		errs: map[string]error{
			urls[0]: &fetch.HTTPError{StatusCode: http.StatusNotFound, Status: "404 Not Found"},
			urls[1]: fmt.Errorf("wrapped: %w", fetch.ErrTimeout),
		},
	}
	bucket := openMemBucket(t)

	summary, err := New(Options{Fetcher: fetcher}).Run(context.Background(), urls, bucket)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Failed != 2 || summary.Succeeded != 1 {
		t.Errorf("unexpected counts: %+v", summary)
	}
	if len(summary.Failures) != 2 {
		t.Fatalf("expected 2 recorded failures, got %d", len(summary.Failures))
	}
	if summary.Failures[0].URL != urls[0] || summary.Failures[0].Reason != "http 404" {
		t.Errorf("unexpected first failure: %+v", summary.Failures[0])
	}
	if summary.Failures[1].Reason != "timed out" {
		t.Errorf("unexpected second failure reason: %q", summary.Failures[1].Reason)
	}

	// Failures do not consume sequence numbers either.
	mustExist(t, bucket, "image_1.jpg")
}

func TestRunCancellation(t *testing.T) {
	urls := []string{
		"https://example.com/1",
		"https://example.com/2",
		"https://example.com/3",
		"https://example.com/4",
	}
	results := make(map[string]*fetch.Result, len(urls))
	for _, u := range urls {
		results[u] = imageResult(500, "image/png")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &fakeFetcher{
		results: results,
		onFetch: func(calls int) {
			if calls == 2 {
				cancel()
			}
		},
	}
	bucket := openMemBucket(t)

	summary, err := New(Options{Fetcher: fetcher}).Run(ctx, urls, bucket)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !summary.Cancelled {
		t.Error("expected Cancelled to be true")
	}
	if summary.Succeeded != 2 {
		t.Errorf("expected 2 succeeded before cancellation, got %d", summary.Succeeded)
	}

	// Files written before the cancellation point are kept; nothing is
	// written after it.
	mustExist(t, bucket, "image_1.png")
	mustExist(t, bucket, "image_2.png")
	mustNotExist(t, bucket, "image_3.png")
}

func TestRunWriteErrorAborts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dest")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	ctx := context.Background()
	bucket, err := blob.OpenBucket(ctx, "file://"+dir+"?metadata=skip")
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	defer bucket.Close()

	urls := []string{"https://example.com/a", "https://example.com/b"}
	fetcher := &fakeFetcher{
		results: map[string]*fetch.Result{
			urls[0]: imageResult(500, "image/png"),
			urls[1]: imageResult(500, "image/png"),
		},
		onFetch: func(calls int) {
			// Destroy the destination mid-run; the next write fails.
			os.RemoveAll(dir)
		},
	}

	summary, err := New(Options{Fetcher: fetcher}).Run(ctx, urls, bucket)

	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected *WriteError, got %v", err)
	}
	if writeErr.Key != "image_1.png" {
		t.Errorf("unexpected failing key: %s", writeErr.Key)
	}
	if summary == nil {
		t.Fatal("expected a summary alongside the write error")
	}
	if summary.Succeeded != 0 {
		t.Errorf("expected 0 succeeded, got %d", summary.Succeeded)
	}
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	bucket := openMemBucket(t)

	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := &fakeFetcher{
		results: map[string]*fetch.Result{
			"https://example.com/a": imageResult(500, "image/png"),
		},
		onFetch: func(calls int) {
			close(started)
			<-release
		},
	}

	p := New(Options{Fetcher: fetcher})

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), []string{"https://example.com/a"}, bucket)
		done <- err
	}()

	<-started
	_, err := p.Run(context.Background(), []string{"https://example.com/a"}, bucket)
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("first run failed: %v", err)
	}
}

func TestRunPublishesSnapshots(t *testing.T) {
	urls := []string{"", "https://example.com/a", "https://example.com/b"}
	fetcher := &fakeFetcher{
		results: map[string]*fetch.Result{
			urls[1]: imageResult(500, "image/png"),
		},
		errs: map[string]error{
			urls[2]: &fetch.HTTPError{StatusCode: 500, Status: "500 Internal Server Error"},
		},
	}
	bucket := openMemBucket(t)
	tracker := progress.NewTracker()

	_, err := New(Options{Fetcher: fetcher, Progress: tracker}).Run(context.Background(), urls, bucket)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap, ok := tracker.Latest()
	if !ok {
		t.Fatal("expected a published snapshot")
	}
	if snap.Completed != 3 || snap.Total != 3 {
		t.Errorf("expected 3/3 completed, got %d/%d", snap.Completed, snap.Total)
	}
	if snap.Succeeded != 1 || snap.Failed != 1 || snap.Skipped != 1 {
		t.Errorf("unexpected snapshot counts: %+v", snap)
	}
	if snap.Bytes != 500 {
		t.Errorf("expected 500 bytes, got %d", snap.Bytes)
	}
	if !snap.HasETA {
		t.Error("expected an ETA once tasks have completed")
	}
}

func TestRunEmptyInput(t *testing.T) {
	bucket := openMemBucket(t)
	fetcher := &fakeFetcher{}

	summary, err := New(Options{Fetcher: fetcher}).Run(context.Background(), nil, bucket)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Succeeded != 0 || summary.Failed != 0 || summary.Skipped != 0 || summary.Cancelled {
		t.Errorf("expected an all-zero summary, got %+v", summary)
	}
}
