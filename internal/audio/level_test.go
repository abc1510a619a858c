package audio

import (
	"math"
	"testing"
)

func TestMeasureLevel(t *testing.T) {
	tests := []struct {
		name        string
		samples     []float32
		wantRMS     float64
		wantPeak    float64
		wantClipped int
		wantSilent  bool
	}{
		{name: "empty", samples: nil, wantSilent: true},
		{name: "zeros", samples: []float32{0, 0, 0}, wantSilent: true},
		{name: "square wave", samples: []float32{0.5, -0.5, 0.5, -0.5}, wantRMS: 0.5, wantPeak: 0.5},
		{name: "out of range", samples: []float32{1.5, -2, 0, 0}, wantRMS: 1.25, wantPeak: 2, wantClipped: 2},
		{name: "nan ignored", samples: []float32{float32(math.NaN()), 1}, wantRMS: 1, wantPeak: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level := MeasureLevel(tt.samples)

			if math.Abs(level.RMS-tt.wantRMS) > 1e-6 {
				t.Errorf("Expected RMS %v, got %v", tt.wantRMS, level.RMS)
			}
			if level.Peak != tt.wantPeak {
				t.Errorf("Expected peak %v, got %v", tt.wantPeak, level.Peak)
			}
			if level.Clipped != tt.wantClipped {
				t.Errorf("Expected %d clipped, got %d", tt.wantClipped, level.Clipped)
			}
			if level.Silent() != tt.wantSilent {
				t.Errorf("Expected silent=%v", tt.wantSilent)
			}
		})
	}
}

func TestLevelDBFS(t *testing.T) {
	if db := (Level{RMS: 1}).DBFS(); db != 0 {
		t.Errorf("Expected 0 dBFS at full scale, got %v", db)
	}
	if db := (Level{RMS: 0.1}).DBFS(); math.Abs(db+20) > 1e-9 {
		t.Errorf("Expected -20 dBFS, got %v", db)
	}
	if db := (Level{}).DBFS(); !math.IsInf(db, -1) {
		t.Errorf("Expected -Inf for silence, got %v", db)
	}
}
