package onset

import (
	"log"

	"github.com/pulsecheck/pulsecheck/dsp"
	"github.com/pulsecheck/pulsecheck/model"
)

const (
	frameSize = 512
	hopSize   = 256

	alphaSmooth = 0.3

	// Asymmetric baseline: adapts upward quickly when the signal gets
	// loud and decays slowly afterwards, so the baseline does not
	// collapse during a note's tail and re-trigger on the decay.
	alphaBaselineRise = 0.05
	alphaBaselineFall = 0.01

	thresholdRatio = 1.5
	minThreshold   = 0.001

	// must drop to 40% of threshold before the detector re-arms
	hysteresisRatio = 0.4

	logInterval = 200
)

// Detector finds transients in streaming audio via adaptive energy
// tracking. Clicks and guitar notes are detected indiscriminately in a
// single pass. It never errors; pathological input just yields no (or
// all) onsets.
type Detector struct {
	sampleRate  int
	minInterval float64

	hasLastOnset  bool
	lastOnsetTime float64
	totalSamples  int

	smoothedRMS    float64
	baselineRMS    float64
	aboveThreshold bool

	peakRMS    float64
	frameCount int
}

func NewDetector(sampleRate int, minIntervalSeconds float64) *Detector {
	return &Detector{
		sampleRate:  sampleRate,
		minInterval: minIntervalSeconds,
	}
}

// ProcessChunk feeds one chunk of mono samples and returns zero or more
// onsets. Frames never span chunk boundaries.
func (d *Detector) ProcessChunk(chunk []float64) []model.OnsetEvent {
	var onsets []model.OnsetEvent

	for i := 0; i+frameSize <= len(chunk); i += hopSize {
		frame := chunk[i : i+frameSize]
		rms := dsp.RMS(frame)

		d.smoothedRMS = alphaSmooth*rms + (1-alphaSmooth)*d.smoothedRMS

		threshold := d.baselineRMS * thresholdRatio
		if threshold < minThreshold {
			threshold = minThreshold
		}

		if rms > d.peakRMS {
			d.peakRMS = rms
		}

		if d.smoothedRMS > threshold {
			if !d.aboveThreshold {
				// rising edge: energy just crossed the threshold
				d.aboveThreshold = true
				onsetTime := float64(d.totalSamples+i) / float64(d.sampleRate)
				if !d.hasLastOnset || onsetTime-d.lastOnsetTime >= d.minInterval {
					onsets = append(onsets, model.OnsetEvent{
						Time:   onsetTime,
						Energy: d.smoothedRMS,
					})
					d.hasLastOnset = true
					d.lastOnsetTime = onsetTime
				}
			}
		} else if d.smoothedRMS < threshold*hysteresisRatio {
			// re-arm only once energy has fallen well below threshold,
			// not on a brief dip during the attack-sustain transition
			d.aboveThreshold = false
		}

		alpha := alphaBaselineFall
		if rms > d.baselineRMS {
			alpha = alphaBaselineRise
		}
		d.baselineRMS = alpha*rms + (1-alpha)*d.baselineRMS

		d.frameCount++
		if d.frameCount%logInterval == 0 {
			t := float64(d.totalSamples+i) / float64(d.sampleRate)
			log.Printf("[OnsetDetector] t=%.1fs rms=%.5f smoothed=%.5f baseline=%.5f threshold=%.5f peak=%.5f",
				t, rms, d.smoothedRMS, d.baselineRMS, threshold, d.peakRMS)
		}
	}

	d.totalSamples += len(chunk)
	return onsets
}

func (d *Detector) Reset() {
	d.hasLastOnset = false
	d.lastOnsetTime = 0
	d.totalSamples = 0
	d.smoothedRMS = 0
	d.baselineRMS = 0
	d.aboveThreshold = false
	d.peakRMS = 0
	d.frameCount = 0
}
