// Package mockapi serves the interview backend endpoints from memory with canned
// transcripts and feedback, for local end-to-end runs of the recorder.
package mockapi
