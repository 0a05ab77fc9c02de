package metronome

import (
	"log"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	// MinPeriodicOnsets is how many onsets must agree on one
	// periodicity hypothesis before the grid locks.
	MinPeriodicOnsets = 4

	// ToleranceSeconds is the alignment tolerance for the initial
	// periodicity search.
	ToleranceSeconds = 0.025

	MinPeriodSeconds = 0.25 // 240 BPM
	MaxPeriodSeconds = 1.5  // 40 BPM

	// pre-lock search only considers the trailing window of onsets
	windowSeconds = 6.0

	// refit the grid every N newly matched clicks
	refitInterval = 4
)

// Detector finds the metronome among all detected onsets via
// periodicity analysis. It operates on the mixed onset stream: guitar
// onsets are tolerated as noise, since a non-repeating onset never
// accumulates enough consistent matches to win the hypothesis search.
//
// After locking, clicks keep being tracked and the grid is refit by
// linear regression of click time against click index over the entire
// accumulated history, correcting cumulative drift and the bias of the
// first few clicks.
type Detector struct {
	onsetTimes []float64
	locked     bool

	bpm           float64
	period        float64
	referenceTime float64

	clickTimes       []float64
	clickIndices     []int
	clicksSinceRefit int

	// best periodic count seen so far, for pre-lock progress display
	bestPeriodicCount int
}

func NewDetector() *Detector {
	return &Detector{}
}

func (d *Detector) Locked() bool           { return d.locked }
func (d *Detector) BPM() float64           { return d.bpm }
func (d *Detector) Period() float64        { return d.period }
func (d *Detector) ReferenceTime() float64 { return d.referenceTime }
func (d *Detector) TotalOnsets() int       { return len(d.onsetTimes) }
func (d *Detector) ClickTimes() []float64  { return d.clickTimes }
func (d *Detector) ClickIndices() []int    { return d.clickIndices }

// ClickCount is the matched click count post-lock, or the best periodic
// onset count found so far pre-lock.
func (d *Detector) ClickCount() int {
	if d.locked {
		return len(d.clickTimes)
	}
	return d.bestPeriodicCount
}

// AddOnset records a pre-lock onset. Returns true if the grid just locked.
func (d *Detector) AddOnset(timeSeconds float64) bool {
	d.onsetTimes = append(d.onsetTimes, timeSeconds)

	if d.locked {
		return false
	}
	if len(d.onsetTimes) < MinPeriodicOnsets {
		return false
	}
	return d.tryLock()
}

// tryLock searches recent onsets for a dominant periodicity hypothesis.
// The first hypothesis to reach MinPeriodicOnsets matches wins; it is
// never revisited after lock.
func (d *Detector) tryLock() bool {
	cutoff := d.onsetTimes[len(d.onsetTimes)-1] - windowSeconds
	var times []float64
	for _, t := range d.onsetTimes {
		if t >= cutoff {
			times = append(times, t)
		}
	}
	if len(times) < MinPeriodicOnsets {
		return false
	}

	var bestPeriod float64
	var bestAligned []float64

	for i := 0; i < len(times); i++ {
		for j := i + 1; j < len(times); j++ {
			rawInterval := times[j] - times[i]

			for divisor := 1; divisor <= 4; divisor++ {
				period := rawInterval / float64(divisor)
				if period < MinPeriodSeconds || period > MaxPeriodSeconds {
					continue
				}

				var aligned []float64
				for _, t := range times {
					offset := (t - times[i]) / period
					errorS := math.Abs(offset-math.Round(offset)) * period
					if errorS <= ToleranceSeconds {
						aligned = append(aligned, t)
					}
				}

				if len(aligned) > len(bestAligned) {
					bestAligned = aligned
					bestPeriod = period
				}
			}
		}

		if len(bestAligned) >= 6 {
			break
		}
	}

	d.bestPeriodicCount = len(bestAligned)

	if bestPeriod > 0 {
		log.Printf("[MetronomeDetector] tryLock: %v onsets in window, bestPeriodic=%v, bestPeriod=%.0fms (%.0f BPM), need %v",
			len(times), len(bestAligned), bestPeriod*1000, 60.0/bestPeriod, MinPeriodicOnsets)
	}

	if len(bestAligned) >= MinPeriodicOnsets && bestPeriod > 0 {
		sort.Float64s(bestAligned)
		d.clickTimes = bestAligned

		// Least-squares fit for the initial period/reference estimate.
		// More accurate than a median IOI, especially when one of the
		// aligned onsets is a noise false positive.
		d.computeClickIndices(bestPeriod)
		d.refit()

		d.locked = true
		log.Printf("[MetronomeDetector] LOCKED: bpm=%.1f, period=%.2fms, clicks=%v, ref=%.3fs",
			d.bpm, d.period*1000, len(d.clickTimes), d.referenceTime)
		return true
	}

	return false
}

// computeClickIndices assigns beat indices to clickTimes based on an
// approximate period.
func (d *Detector) computeClickIndices(approxPeriod float64) {
	if len(d.clickTimes) == 0 {
		return
	}
	base := d.clickTimes[0]
	d.clickIndices = make([]int, len(d.clickTimes))
	for i, t := range d.clickTimes {
		d.clickIndices[i] = int(math.Round((t - base) / approxPeriod))
	}
}

// refit recomputes period and reference from all accumulated click
// times via linear regression: time = reference + index*period.
func (d *Detector) refit() {
	if len(d.clickTimes) < 2 {
		return
	}

	indices := make([]float64, len(d.clickIndices))
	for i, idx := range d.clickIndices {
		indices[i] = float64(idx)
	}

	newReference, newPeriod := stat.LinearRegression(indices, d.clickTimes, nil, false)

	if newPeriod >= MinPeriodSeconds && newPeriod <= MaxPeriodSeconds {
		oldPeriod := d.period
		d.period = newPeriod
		d.referenceTime = newReference
		d.bpm = 60.0 / newPeriod
		if oldPeriod > 0 {
			log.Printf("[MetronomeDetector] REFIT: period %.2f->%.2fms, bpm=%.1f, clicks=%v",
				oldPeriod*1000, newPeriod*1000, d.bpm, len(d.clickTimes))
		}
	}
}

// TrackOnset checks whether a post-lock onset is a metronome click and
// refines the grid. Tracking uses a generous tolerance so clicks keep
// matching under small drift; the periodic refit then removes the
// accumulated error. Returns true if the onset was taken as a click.
func (d *Detector) TrackOnset(onsetTime float64) bool {
	if !d.locked || d.period <= 0 {
		return false
	}

	offset := (onsetTime - d.referenceTime) / d.period
	nearest := math.Round(offset)
	errorMs := math.Abs(offset-nearest) * d.period * 1000.0

	// 25% of the period, capped at 50ms
	trackToleranceMs := math.Min(d.period*250, 50.0)
	if errorMs > trackToleranceMs {
		return false
	}

	// Reject onsets too close to the last click, so guitar notes near
	// grid lines cannot be double-counted as clicks.
	if len(d.clickTimes) > 0 {
		gap := onsetTime - d.clickTimes[len(d.clickTimes)-1]
		if gap < d.period*0.5 {
			return false
		}
	}

	d.clickTimes = append(d.clickTimes, onsetTime)
	d.clickIndices = append(d.clickIndices, int(nearest))
	d.clicksSinceRefit++

	if d.clicksSinceRefit >= refitInterval {
		d.clicksSinceRefit = 0
		d.refit()
	}

	return true
}

// UndoLastClick reverts the most recent TrackOnset match. Used when the
// spectral vote overrides a timing-based click classification.
func (d *Detector) UndoLastClick() {
	if len(d.clickTimes) == 0 {
		return
	}
	d.clickTimes = d.clickTimes[:len(d.clickTimes)-1]
	d.clickIndices = d.clickIndices[:len(d.clickIndices)-1]
	if d.clicksSinceRefit > 0 {
		d.clicksSinceRefit--
	}
}
