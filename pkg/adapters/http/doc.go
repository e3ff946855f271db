// Package http exposes a read-only HTTP API over an OT engine: health, entity
// state, transaction logs and Prometheus metrics. Operations are not accepted
// over HTTP.
package http
