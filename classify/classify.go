package classify

import (
	"math"

	"github.com/pulsecheck/pulsecheck/calibration"
	"github.com/pulsecheck/pulsecheck/dsp"
	"github.com/pulsecheck/pulsecheck/model"
)

// Label is the post-lock classification of an onset.
type Label int

const (
	Click Label = iota
	GuitarNote
)

func (l Label) String() string {
	if l == Click {
		return "click"
	}
	return "guitar"
}

// Classifier labels post-lock onsets. The primary signal is timing
// proximity to the beat grid (decided upstream by the metronome
// tracker); the optional secondary signal compares the onset's spectral
// features against the calibration profiles. On conflict the spectral
// guitar vote wins: a guitar note played exactly on the beat must not
// be swallowed by the click train. Without calibration the classifier
// is timing-only.
type Classifier struct {
	sampleRate  int
	calibration *model.Calibration
	analyzer    *dsp.Analyzer
}

func NewClassifier(sampleRate int, cal *model.Calibration) *Classifier {
	c := &Classifier{sampleRate: sampleRate, calibration: cal}
	if cal.Complete() {
		c.analyzer = dsp.NewAnalyzer(sampleRate)
	}
	return c
}

// Spectral reports whether the classifier has usable calibration profiles.
func (c *Classifier) Spectral() bool {
	return c.analyzer != nil
}

// Classify combines the timing vote with the optional spectral vote.
// overrode is true when a timing click was re-labelled guitar; the
// caller must then undo the click tracking.
func (c *Classifier) Classify(onsetTime float64, timingIsClick bool, buffer []float64) (label Label, overrode bool) {
	if !c.Spectral() {
		if timingIsClick {
			return Click, false
		}
		return GuitarNote, false
	}

	onsetSample := int(math.Round(onsetTime * float64(c.sampleRate)))
	spectral := calibration.ClassifyWindow(c.analyzer, buffer, onsetSample, c.calibration)

	switch {
	case timingIsClick && spectral == "guitar":
		// timing says click but the spectrum says guitar: trust the
		// spectrum, the click tracking must be undone
		return GuitarNote, true
	case !timingIsClick && spectral == "click":
		// spectrum says click but the timing doesn't match; trusting
		// timing here keeps guitar notes near grid lines scoreable
		return GuitarNote, false
	case timingIsClick:
		return Click, false
	default:
		return GuitarNote, false
	}
}
