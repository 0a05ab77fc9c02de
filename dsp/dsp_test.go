package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sine(freq float64, sampleRate int, n int, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestCosineSimilarity(t *testing.T) {
	assert := assert.New(t)
	assert.InDelta(1.0, CosineSimilarity([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-9)
	assert.InDelta(0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Equal(0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
	assert.Equal(0.0, CosineSimilarity([]float64{1}, []float64{1, 2}))
}

func TestEnergyDecayRatio(t *testing.T) {
	assert := assert.New(t)

	// all energy in the first half means fast decay
	clickLike := make([]float64, 512)
	for i := 0; i < 256; i++ {
		clickLike[i] = 0.5
	}
	assert.InDelta(0.0, EnergyDecayRatio(clickLike), 1e-9)

	// constant signal keeps the ratio near 1
	sustained := make([]float64, 512)
	for i := range sustained {
		sustained[i] = 0.5
	}
	assert.InDelta(1.0, EnergyDecayRatio(sustained), 1e-9)

	// silence defaults to 1
	assert.Equal(1.0, EnergyDecayRatio(make([]float64, 512)))
}

func TestRMS(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(0.0, RMS(nil))
	assert.InDelta(0.5, RMS([]float64{0.5, -0.5, 0.5, -0.5}), 1e-9)
}

func TestSpectralCentroidTracksFrequency(t *testing.T) {
	assert := assert.New(t)
	an := NewAnalyzer(44100)

	// bin-centered frequencies avoid spectral leakage
	lowFreq := 64.0 * 44100 / 2048   // 1378.125 Hz
	highFreq := 256.0 * 44100 / 2048 // 5512.5 Hz

	low := an.SpectralCentroid(sine(lowFreq, 44100, WindowSamples, 0.8))
	high := an.SpectralCentroid(sine(highFreq, 44100, WindowSamples, 0.8))

	assert.InDelta(lowFreq, low, 100)
	assert.InDelta(highFreq, high, 300)
	assert.Greater(high, low)
}

func TestSpectralCentroidSilence(t *testing.T) {
	an := NewAnalyzer(44100)
	assert.Equal(t, 0.0, an.SpectralCentroid(make([]float64, WindowSamples)))
}

func TestMFCCDeterministic(t *testing.T) {
	assert := assert.New(t)
	an := NewAnalyzer(44100)
	window := sine(440, 44100, WindowSamples, 0.6)

	first, err := an.MFCC(window)
	assert.NoError(err)
	assert.Len(first, NumMFCC)

	second, err := an.MFCC(window)
	assert.NoError(err)
	assert.Equal(first, second)
}

func TestMFCCDistinguishesSpectra(t *testing.T) {
	assert := assert.New(t)
	an := NewAnalyzer(44100)

	low, _ := an.MFCC(sine(220, 44100, WindowSamples, 0.6))
	lowAgain, _ := an.MFCC(sine(220, 44100, WindowSamples, 0.6))
	high, _ := an.MFCC(sine(6000, 44100, WindowSamples, 0.6))

	sameSim := CosineSimilarity(low, lowAgain)
	crossSim := CosineSimilarity(low, high)
	assert.Greater(sameSim, crossSim)
}

// Odd-length windows are zero-padded up to the next power of two
// before the transform.
func TestAnalyzerPadsOddWindowLengths(t *testing.T) {
	assert := assert.New(t)
	an := NewAnalyzer(44100)

	freq := 64.0 * 44100 / 2048
	centroid := an.SpectralCentroid(sine(freq, 44100, 1500, 0.8))
	assert.Greater(centroid, 0.0)

	mfcc, err := an.MFCC(sine(freq, 44100, 1500, 0.8))
	assert.NoError(err)
	assert.Len(mfcc, NumMFCC)

	// full-size window afterwards forces the FFT buffers to regrow
	full := an.SpectralCentroid(sine(freq, 44100, WindowSamples, 0.8))
	assert.InDelta(freq, full, 100)
}

func TestExtractWindow(t *testing.T) {
	assert := assert.New(t)
	an := NewAnalyzer(44100)

	_, ok := an.ExtractWindow(make([]float64, WindowSamples))
	assert.False(ok)

	features, ok := an.ExtractWindow(sine(880, 44100, WindowSamples, 0.5))
	assert.True(ok)
	assert.Len(features.MFCC, NumMFCC)
	assert.Greater(features.SpectralCentroid, 0.0)
}
