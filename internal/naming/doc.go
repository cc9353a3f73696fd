// Package naming assigns output filenames for downloaded images.
//
// Files are named image_<n>.<ext> with n assigned sequentially. The starting
// number comes from scanning the destination for previous downloads, so a
// partially completed batch can be resumed into the same directory without
// overwriting anything. Extensions are resolved from the response
// Content-Type, with a URL-suffix fallback and a final default of jpg.
package naming
