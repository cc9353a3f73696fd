// Package progress carries progress snapshots from the download loop to a
// presentation layer.
//
// The two sides communicate through a Tracker, a single-slot latest-wins
// handoff: the loop publishes a fresh Snapshot after every task and never
// blocks, while the reader polls for the most recent one on its own
// schedule. Only the latest state matters for a progress display, so
// dropped intermediate snapshots are harmless.
//
// # Usage
//
//	tracker := progress.NewTracker()
//
//	renderer := progress.NewRenderer(tracker, progress.RendererOptions{})
//	renderer.Start()
//	defer renderer.Stop()
//
//	// download loop, elsewhere:
//	tracker.Publish(progress.Snapshot{Completed: 3, Total: 120, ...})
//
// # Output Format
//
//	[inatdl] 37/340 images | ok 35 failed 2 skipped 0 | 1.20 MB/s | ETA: 4m 12s
package progress
