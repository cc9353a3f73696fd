package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/Camponotus-vagus/iNaturalist-Image-Downloader/internal/pipeline"
)

func TestIsLocalPath(t *testing.T) {
	tests := []struct {
		dest  string
		local bool
	}{
		{"./images", true},
		{"/home/user/images", true},
		{"images", true},
		{"file:///tmp/images", false},
		{"s3://my-bucket", false},
		{"gs://my-bucket", false},
	}

	for _, tt := range tests {
		if got := isLocalPath(tt.dest); got != tt.local {
			t.Errorf("isLocalPath(%q) = %v, want %v", tt.dest, got, tt.local)
		}
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name     string
		summary  *pipeline.Summary
		err      error
		expected int
	}{
		{"success", &pipeline.Summary{Succeeded: 3}, nil, ExitSuccess},
		{"cancelled", &pipeline.Summary{Succeeded: 1, Cancelled: true}, nil, ExitCancelled},
		{"write failure", &pipeline.Summary{}, &pipeline.WriteError{Key: "image_1.jpg", Err: errors.New("disk full")}, ExitStorageError},
		{"destination scan failure", nil, errors.New("list destination: permission denied"), ExitStorageError},
	}

	for _, tt := range tests {
		if got := exitCodeFor(tt.summary, tt.err); got != tt.expected {
			t.Errorf("%s: exitCodeFor = %d, want %d", tt.name, got, tt.expected)
		}
	}
}

func TestProgressSetting(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		merged   bool
		expected bool
	}{
		{"flag absent keeps config", nil, true, true},
		{"flag absent keeps default", nil, false, false},
		{"explicit true wins", []string{"-progress"}, false, true},
		{"explicit false overrides config", []string{"-progress=false"}, true, false},
	}

	for _, tt := range tests {
		fs := flag.NewFlagSet("download", flag.ContinueOnError)
		flagValue := fs.Bool("progress", false, "")
		if err := fs.Parse(tt.args); err != nil {
			t.Fatalf("%s: parse: %v", tt.name, err)
		}

		if got := progressSetting(fs, tt.merged, *flagValue); got != tt.expected {
			t.Errorf("%s: progressSetting = %v, want %v", tt.name, got, tt.expected)
		}
	}
}

func TestOpenBucketLocalDirectory(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	bucket, err := openBucket(ctx, dir)
	if err != nil {
		t.Fatalf("openBucket: %v", err)
	}
	defer bucket.Close()

	if err := bucket.WriteAll(ctx, "image_1.jpg", []byte("test data"), nil); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "image_1.jpg"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "test data" {
		t.Errorf("unexpected content: %q", data)
	}

	// metadata=skip means no .attrs sidecar lands in the directory.
	if _, err := os.Stat(filepath.Join(dir, "image_1.jpg.attrs")); !os.IsNotExist(err) {
		t.Error("expected no .attrs sidecar file")
	}
}
