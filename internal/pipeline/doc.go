// Package pipeline runs one interview answer end to end: format probe, scoped
// capture, decode, WAV encode, upload and feedback. A Pipeline processes one
// answer at a time and keeps the output of every stage that completed.
package pipeline
