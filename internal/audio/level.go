package audio

import "math"

// silenceFloor is the RMS below which a clip is reported as silent (about -60 dBFS)
const silenceFloor = 0.001

// Level summarizes the loudness of decoded audio
type Level struct {
	RMS     float64 `json:"rms"`
	Peak    float64 `json:"peak"`
	Clipped int     `json:"clipped"` // samples outside [-1.0, 1.0]
}

// Silent reports whether the clip holds no audible signal
func (l Level) Silent() bool {
	return l.RMS < silenceFloor
}

// DBFS returns the RMS level in decibels relative to full scale
func (l Level) DBFS() float64 {
	if l.RMS <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(l.RMS)
}

// MeasureLevel computes RMS energy, peak amplitude and the out-of-range sample count.
// NaN samples are ignored.
func MeasureLevel(samples []float32) Level {
	var level Level
	var energy float64
	var counted int

	for _, s := range samples {
		v := float64(s)
		if math.IsNaN(v) {
			continue
		}
		counted++

		abs := math.Abs(v)
		if abs > level.Peak {
			level.Peak = abs
		}
		if abs > 1 {
			level.Clipped++
		}
		energy += v * v
	}

	if counted > 0 {
		level.RMS = math.Sqrt(energy / float64(counted))
	}
	return level
}
