// Package pipeline orchestrates sequential image downloads.
//
// The pipeline walks an ordered list of URLs, fetching each one with the
// fetch client and writing the body to a gocloud bucket under a sequential
// image_<n>.<ext> name. Downloads run strictly one at a time, in input
// order, so sequence numbers are assigned deterministically.
//
// # Failure policy
//
//   - Blank or malformed URLs are skipped without a network call.
//   - Fetch failures (error status, timeout after retries, short body) are
//     recorded per URL and the run continues.
//   - A destination write failure aborts the whole run: if the disk is full
//     or unwritable, every later task would fail the same way.
//
// # Cancellation
//
// Cancellation is cooperative, checked once per task boundary. The fetch in
// flight when the context is cancelled is allowed to finish or time out;
// files already written stay on disk.
package pipeline
