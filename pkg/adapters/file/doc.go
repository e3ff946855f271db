// Package file provides a LogStore that keeps one JSON file per entity.
//
// Writes are atomic (temp file, fsync, rename) so a crash never leaves a
// truncated log behind.
package file
