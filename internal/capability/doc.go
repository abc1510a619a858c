// Package capability decides whether the host can record an answer and in which format.
// Probing inspects the runtime only; it never opens the microphone.
package capability
