package audio

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Analyzer turns PCM frames into byte frequency magnitudes using the same
// scaling as a Web Audio AnalyserNode: Blackman window, time smoothing,
// decibel conversion and linear mapping of [MinDecibels, MaxDecibels] onto
// 0..255.
type Analyzer struct {
	size      int
	smoothing float64
	minDB     float64
	maxDB     float64
	window    []float64
	smoothed  []float64
	frame     []float64
}

// NewAnalyzer creates an analyzer for frames of size samples. Size must be
// a power of two.
func NewAnalyzer(size int, smoothing, minDB, maxDB float64) *Analyzer {
	return &Analyzer{
		size:      size,
		smoothing: smoothing,
		minDB:     minDB,
		maxDB:     maxDB,
		window:    window.Blackman(size),
		smoothed:  make([]float64, size/2),
		frame:     make([]float64, size),
	}
}

// Bins returns the number of magnitudes per frame.
func (a *Analyzer) Bins() int { return a.size / 2 }

// Analyze computes magnitudes for one frame of mono samples. Frames shorter
// than the analyzer size are zero padded.
func (a *Analyzer) Analyze(samples []int16) []uint8 {
	for i := range a.frame {
		var v float64
		if i < len(samples) {
			v = float64(samples[i]) / 32768
		}
		a.frame[i] = v * a.window[i]
	}

	spectrum := fft.FFTReal(a.frame)
	out := make([]uint8, a.Bins())
	span := a.maxDB - a.minDB
	for k := range out {
		mag := cmplx.Abs(spectrum[k]) / float64(a.size)
		a.smoothed[k] = a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag

		db := math.Inf(-1)
		if a.smoothed[k] > 0 {
			db = 20 * math.Log10(a.smoothed[k])
		}
		scaled := 255 * (db - a.minDB) / span
		out[k] = uint8(math.Max(0, math.Min(255, scaled)))
	}
	return out
}
