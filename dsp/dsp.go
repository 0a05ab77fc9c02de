package dsp

import (
	"math"
	"math/cmplx"

	"github.com/andrepxx/go-dsp-guitar/fft"
)

// WindowSamples is the feature-extraction window around an onset
// (~46ms at 44100Hz).
const WindowSamples = 2048

const NumMFCC = 13

const numMelFilters = 26

// WindowFeatures are the spectral descriptors of a single onset window.
type WindowFeatures struct {
	MFCC             []float64
	SpectralCentroid float64
	EnergyDecay      float64
}

// Analyzer computes spectral features over onset windows. Not safe for
// concurrent use; each session owns its own instance.
type Analyzer struct {
	sampleRate       int
	fourierTransform fft.FourierTransform
	bufReal          []float64
	bufFFT           []complex128
	melBank          [][]float64
}

func NewAnalyzer(sampleRate int) *Analyzer {
	return &Analyzer{
		sampleRate:       sampleRate,
		fourierTransform: fft.CreateFourierTransform(),
		melBank:          makeMelBank(sampleRate, WindowSamples, numMelFilters),
	}
}

func RMS(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// EnergyDecayRatio is the energy of the second half of the window over
// the first half. Low means fast decay (click-like).
func EnergyDecayRatio(window []float64) float64 {
	mid := len(window) / 2
	var first, second float64
	for _, s := range window[:mid] {
		first += s * s
	}
	for _, s := range window[mid:] {
		second += s * s
	}
	if first < 1e-10 {
		return 1.0
	}
	return second / first
}

func CosineSimilarity(a []float64, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)
	if normA < 1e-10 || normB < 1e-10 {
		return 0
	}
	return dot / (normA * normB)
}

// magnitudeSpectrum returns |X[k]| for bins 0..N/2 of the zero-padded window.
func (a *Analyzer) magnitudeSpectrum(window []float64) ([]float64, error) {
	n := uint64(len(window))
	fftSize, _ := fft.NextPowerOfTwo(n)
	if uint64(len(a.bufReal)) != fftSize {
		a.bufReal = make([]float64, fftSize)
		a.bufFFT = make([]complex128, fftSize)
	}
	copy(a.bufReal, window)
	fft.ZeroFloat(a.bufReal[len(window):])

	err := a.fourierTransform.RealFourier(a.bufReal, a.bufFFT, fft.SCALING_DEFAULT)
	if err != nil {
		return nil, err
	}

	mags := make([]float64, fftSize/2+1)
	for i := range mags {
		mags[i] = cmplx.Abs(a.bufFFT[i])
	}
	return mags, nil
}

// SpectralCentroid computes the spectral centroid in Hz.
func (a *Analyzer) SpectralCentroid(window []float64) float64 {
	mags, err := a.magnitudeSpectrum(window)
	if err != nil {
		return 0
	}
	fftSize := float64(2 * (len(mags) - 1))
	binHz := float64(a.sampleRate) / fftSize

	var total, weighted float64
	for i, m := range mags {
		total += m
		weighted += float64(i) * binHz * m
	}
	if total < 1e-10 {
		return 0
	}
	return weighted / total
}

// MFCC computes 13 mel-frequency cepstral coefficients for the window.
func (a *Analyzer) MFCC(window []float64) ([]float64, error) {
	mags, err := a.magnitudeSpectrum(window)
	if err != nil {
		return nil, err
	}

	logEnergies := make([]float64, len(a.melBank))
	for m, filter := range a.melBank {
		var e float64
		for i, w := range filter {
			if w > 0 {
				e += w * mags[i] * mags[i]
			}
		}
		logEnergies[m] = math.Log(math.Max(e, 1e-10))
	}

	// DCT-II of the log filterbank energies
	coeffs := make([]float64, NumMFCC)
	k := float64(len(logEnergies))
	for n := 0; n < NumMFCC; n++ {
		var c float64
		for i, le := range logEnergies {
			c += le * math.Cos(math.Pi*float64(n)*(float64(i)+0.5)/k)
		}
		coeffs[n] = c
	}
	return coeffs, nil
}

// ExtractWindow computes all features for one onset window. Returns
// ok=false for silent windows or FFT failure.
func (a *Analyzer) ExtractWindow(window []float64) (*WindowFeatures, bool) {
	var peak float64
	for _, s := range window {
		if abs := math.Abs(s); abs > peak {
			peak = abs
		}
	}
	if peak < 1e-6 {
		return nil, false
	}

	mfcc, err := a.MFCC(window)
	if err != nil {
		return nil, false
	}
	return &WindowFeatures{
		MFCC:             mfcc,
		SpectralCentroid: a.SpectralCentroid(window),
		EnergyDecay:      EnergyDecayRatio(window),
	}, true
}

func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10, mel/2595.0) - 1.0)
}

// makeMelBank builds triangular mel filters over spectrum bins 0..N/2.
func makeMelBank(sampleRate int, fftSize int, numFilters int) [][]float64 {
	numBins := fftSize/2 + 1
	maxMel := hzToMel(float64(sampleRate) / 2)

	// numFilters+2 equally spaced mel points mapped back to bins
	binPoints := make([]int, numFilters+2)
	for i := range binPoints {
		mel := maxMel * float64(i) / float64(numFilters+1)
		hz := melToHz(mel)
		bin := int(hz / float64(sampleRate) * float64(fftSize))
		if bin > numBins-1 {
			bin = numBins - 1
		}
		binPoints[i] = bin
	}

	bank := make([][]float64, numFilters)
	for m := 0; m < numFilters; m++ {
		filter := make([]float64, numBins)
		left, center, right := binPoints[m], binPoints[m+1], binPoints[m+2]
		for i := left; i <= center && i < numBins; i++ {
			if center > left {
				filter[i] = float64(i-left) / float64(center-left)
			}
		}
		for i := center; i <= right && i < numBins; i++ {
			if right > center {
				filter[i] = float64(right-i) / float64(right-center)
			}
		}
		bank[m] = filter
	}
	return bank
}
