// Package memory provides an in-memory LogStore, useful for tests and single-process use.
package memory
