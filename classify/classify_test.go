package classify

import (
	"math"
	"testing"

	"github.com/pulsecheck/pulsecheck/calibration"
	"github.com/pulsecheck/pulsecheck/model"
	"github.com/stretchr/testify/assert"
)

const testSampleRate = 44100

func clickBuffer() []float64 {
	buf := make([]float64, 64*2048)
	for _, start := range []int{4 * 2048, 20 * 2048, 36 * 2048} {
		for i := 0; i < 256; i++ {
			if i%2 == 0 {
				buf[start+i] = 0.6
			} else {
				buf[start+i] = -0.6
			}
		}
	}
	return buf
}

func guitarBuffer() []float64 {
	buf := make([]float64, 64*2048)
	for _, start := range []int{4 * 2048, 20 * 2048, 36 * 2048} {
		for i := 0; i < 3*2048; i++ {
			buf[start+i] = 0.5 * math.Sin(2*math.Pi*220*float64(i)/testSampleRate)
		}
	}
	return buf
}

func profiles() *model.Calibration {
	return &model.Calibration{
		Metronome: calibration.ExtractProfile(clickBuffer(), testSampleRate),
		Guitar:    calibration.ExtractProfile(guitarBuffer(), testSampleRate),
	}
}

func TestTimingOnlyWithoutCalibration(t *testing.T) {
	assert := assert.New(t)
	c := NewClassifier(testSampleRate, nil)
	assert.False(c.Spectral())

	label, overrode := c.Classify(1.0, true, nil)
	assert.Equal(Click, label)
	assert.False(overrode)

	label, overrode = c.Classify(1.2, false, nil)
	assert.Equal(GuitarNote, label)
	assert.False(overrode)
}

func TestSpectralOverridesTimingClick(t *testing.T) {
	assert := assert.New(t)
	c := NewClassifier(testSampleRate, profiles())
	assert.True(c.Spectral())

	// a guitar note landing exactly on the beat: timing votes click,
	// spectrum votes guitar, guitar wins and the click must be undone
	buf := guitarBuffer()
	onsetTime := float64(4*2048) / testSampleRate
	label, overrode := c.Classify(onsetTime, true, buf)
	assert.Equal(GuitarNote, label)
	assert.True(overrode)
}

func TestTimingWinsWhenSpectrumSaysClickOffGrid(t *testing.T) {
	assert := assert.New(t)
	c := NewClassifier(testSampleRate, profiles())

	// spectrum says click but the onset missed the grid: trust timing
	buf := clickBuffer()
	onsetTime := float64(4*2048) / testSampleRate
	label, overrode := c.Classify(onsetTime, false, buf)
	assert.Equal(GuitarNote, label)
	assert.False(overrode)
}

func TestAgreementKeepsClick(t *testing.T) {
	assert := assert.New(t)
	c := NewClassifier(testSampleRate, profiles())

	buf := clickBuffer()
	onsetTime := float64(4*2048) / testSampleRate
	label, overrode := c.Classify(onsetTime, true, buf)
	assert.Equal(Click, label)
	assert.False(overrode)
}
