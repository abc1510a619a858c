// Package server implements the recorder's status HTTP API: health, the
// recording in progress, sanitized configuration, statistics and Prometheus metrics.
package server
