// Package audio handles clip buffering and format conversion for recorded answers.
// It accumulates captured fragments in order, decodes finished clips into mono float
// samples and encodes those samples into canonical 16-bit PCM WAV for upload.
package audio
