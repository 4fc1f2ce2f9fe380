// Package processors provides measurements over pulled capture windows.
package processors

import (
	"math"
)

const (
	// SilenceFloorDBFS is reported for digital silence and empty windows.
	SilenceFloorDBFS = -120.0

	// ClipThreshold is the absolute sample value treated as clipping.
	ClipThreshold = 0.999
)

// Level summarizes the loudness of one window.
type Level struct {
	RMSDBFS  float64 `json:"rms_dbfs"`
	PeakDBFS float64 `json:"peak_dbfs"`
	Clipped  int     `json:"clipped"` // samples at or above ClipThreshold
	Samples  int     `json:"samples"`
}

// IsClipped reports whether any sample reached full scale.
func (l Level) IsClipped() bool {
	return l.Clipped > 0
}

// MeasureLevel computes RMS and peak levels relative to full scale (1.0).
func MeasureLevel(samples []float32) Level {
	lvl := Level{
		RMSDBFS:  SilenceFloorDBFS,
		PeakDBFS: SilenceFloorDBFS,
		Samples:  len(samples),
	}
	if len(samples) == 0 {
		return lvl
	}

	var sumSquares, peak float64
	for _, s := range samples {
		v := math.Abs(float64(s))
		sumSquares += v * v
		if v > peak {
			peak = v
		}
		if v >= ClipThreshold {
			lvl.Clipped++
		}
	}

	lvl.RMSDBFS = ToDBFS(math.Sqrt(sumSquares / float64(len(samples))))
	lvl.PeakDBFS = ToDBFS(peak)
	return lvl
}

// ToDBFS converts a linear amplitude to dBFS, clamped at SilenceFloorDBFS.
func ToDBFS(amplitude float64) float64 {
	if amplitude <= 0 || math.IsNaN(amplitude) {
		return SilenceFloorDBFS
	}
	return max(20*math.Log10(amplitude), SilenceFloorDBFS)
}
