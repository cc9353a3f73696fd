// Package csvsource extracts the image URL column from a CSV export.
//
// Observation platforms name the link column inconsistently, so detection
// is case-insensitive over image_url and url, in that order. Values are
// returned raw and in row order, blanks included: deciding what to do with
// an unusable value is the pipeline's job, not the reader's.
package csvsource
