// Package preflight validates the download destination before a run starts.
package preflight

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/disk"
)

// DefaultMinFreeBytes is the free-space floor applied when none is given.
const DefaultMinFreeBytes = 100 * 1024 * 1024 // 100 MB

// Check verifies that dir exists, is a directory, and sits on a filesystem
// with at least minFree bytes available. A minFree of 0 applies
// DefaultMinFreeBytes. If free space cannot be determined the check passes;
// an unanswerable question should not block the download.
func Check(dir string, minFree uint64) error {
	if minFree == 0 {
		minFree = DefaultMinFreeBytes
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("preflight: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("preflight: %s is not a directory", dir)
	}

	usage, err := disk.Usage(dir)
	if err != nil {
		return nil
	}
	if usage.Free < minFree {
		return fmt.Errorf("preflight: %s has only %d bytes free, need at least %d",
			dir, usage.Free, minFree)
	}

	return nil
}
