// Package config defines configuration structures for the inatdl CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (INATDL_ prefix)
//   - YAML configuration file
//
// Precedence is flags over environment over file over defaults, applied by
// the CLI through Merge.
package config
