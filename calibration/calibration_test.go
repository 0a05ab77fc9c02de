package calibration

import (
	"math"
	"testing"

	"github.com/pulsecheck/pulsecheck/dsp"
	"github.com/pulsecheck/pulsecheck/model"
	"github.com/stretchr/testify/assert"
)

const testSampleRate = 44100

// clickBuffer holds three sharp, fast-decaying transients.
func clickBuffer() []float64 {
	buf := make([]float64, 64*2048)
	for _, start := range []int{4 * 2048, 20 * 2048, 36 * 2048} {
		for i := 0; i < 256; i++ {
			// high-frequency alternating burst
			if i%2 == 0 {
				buf[start+i] = 0.6
			} else {
				buf[start+i] = -0.6
			}
		}
	}
	return buf
}

// guitarBuffer holds three sustained low-frequency tones. The attack
// is ramped: an instantaneous edge would add broadband energy to the
// feature window and skew the measured spectrum.
func guitarBuffer() []float64 {
	buf := make([]float64, 64*2048)
	for _, start := range []int{4 * 2048, 20 * 2048, 36 * 2048} {
		for i := 0; i < 3*2048; i++ {
			amp := 0.5
			if i < 512 {
				amp *= float64(i) / 512
			}
			buf[start+i] = amp * math.Sin(2*math.Pi*220*float64(i)/testSampleRate)
		}
	}
	return buf
}

func TestExtractProfileEmptyAudio(t *testing.T) {
	assert := assert.New(t)

	profile := ExtractProfile(make([]float64, 8*2048), testSampleRate)
	assert.Equal(0, profile.OnsetCount)
	assert.Len(profile.MFCCMean, dsp.NumMFCC)
}

func TestExtractProfileClicks(t *testing.T) {
	assert := assert.New(t)

	profile := ExtractProfile(clickBuffer(), testSampleRate)
	assert.Equal(3, profile.OnsetCount)
	assert.Greater(profile.SpectralCentroid, 2000.0)
	// all energy in the first quarter of the window: fast decay
	assert.Less(profile.EnergyDecay, 0.1)
}

func TestExtractProfileGuitar(t *testing.T) {
	assert := assert.New(t)

	profile := ExtractProfile(guitarBuffer(), testSampleRate)
	clicks := ExtractProfile(clickBuffer(), testSampleRate)
	assert.Equal(3, profile.OnsetCount)
	// sustained tone fills the whole window
	assert.Greater(profile.EnergyDecay, 0.8)
	// the 220Hz tone reads far darker than the click transient
	assert.Less(profile.SpectralCentroid, clicks.SpectralCentroid)
	assert.Greater(profile.SpectralCentroid, 0.0)
}

func TestClassifyWindowMatchesProfiles(t *testing.T) {
	assert := assert.New(t)

	cal := &model.Calibration{
		Metronome: ExtractProfile(clickBuffer(), testSampleRate),
		Guitar:    ExtractProfile(guitarBuffer(), testSampleRate),
	}
	assert.True(cal.Complete())

	analyzer := dsp.NewAnalyzer(testSampleRate)
	assert.Equal("click", ClassifyWindow(analyzer, clickBuffer(), 4*2048, cal))
	assert.Equal("guitar", ClassifyWindow(analyzer, guitarBuffer(), 4*2048, cal))
}

func TestClassifyWindowDefaultsToGuitar(t *testing.T) {
	assert := assert.New(t)
	analyzer := dsp.NewAnalyzer(testSampleRate)
	buf := clickBuffer()

	// incomplete calibration
	assert.Equal("guitar", ClassifyWindow(analyzer, buf, 4*2048, &model.Calibration{}))

	cal := &model.Calibration{
		Metronome: ExtractProfile(clickBuffer(), testSampleRate),
		Guitar:    ExtractProfile(guitarBuffer(), testSampleRate),
	}

	// window extends past the buffer end
	assert.Equal("guitar", ClassifyWindow(analyzer, buf, len(buf)-100, cal))
	// silent window
	assert.Equal("guitar", ClassifyWindow(analyzer, buf, 50*2048, cal))
}
