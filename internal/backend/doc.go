// Package backend is the HTTP client for the interview server.
// It uploads recorded answers, relays transcripts for feedback and wraps the admin endpoints.
package backend
