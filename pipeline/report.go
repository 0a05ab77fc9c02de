package pipeline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/pulsecheck/pulsecheck/model"
	"github.com/pulsecheck/pulsecheck/util"
)

// GenerateReport summarizes the finished session. Always returns a
// report; when the session yielded nothing scoreable the Error field
// says what went wrong instead of the stats blocks.
func (p *Pipeline) GenerateReport() *model.SessionReport {
	report := &model.SessionReport{Type: "session_report"}

	if len(p.audioBuffer) == 0 {
		report.Error = "No audio recorded"
		return report
	}
	if !p.metronome.Locked() {
		report.Error = fmt.Sprintf(
			"No metronome detected - could not establish grid. Heard %v onsets total, best periodic match: %v/4 needed.",
			p.metronome.TotalOnsets(), p.metronome.ClickCount())
		return report
	}

	notes := p.aligner.Notes()
	if len(notes) == 0 {
		report.Error = "No guitar notes detected"
		return report
	}

	report.BPM = util.RoundTo(p.metronome.BPM(), 1)
	report.GridResolution = p.gridResolution
	report.TotalBars = notes[len(notes)-1].Bar
	report.Events = notes
	report.ClickTimes = p.metronome.ClickTimes()
	report.Stats = computeNoteStats(notes, p.thresholdMs)
	report.MetronomeStats = computeMetronomeStats(
		p.metronome.ClickTimes(), p.metronome.ClickIndices(),
		p.metronome.Period(), p.metronome.ReferenceTime())
	return report
}

func computeNoteStats(notes []model.NoteEvent, thresholdMs float64) *model.NoteStats {
	devs := make([]float64, len(notes))
	absDevs := make([]float64, len(notes))
	onTime := 0
	worstIdx := 0
	for i, n := range notes {
		devs[i] = n.DeviationMs
		absDevs[i] = math.Abs(n.DeviationMs)
		if absDevs[i] <= thresholdMs {
			onTime++
		}
		if absDevs[i] > absDevs[worstIdx] {
			worstIdx = i
		}
	}

	worst := notes[worstIdx]
	return &model.NoteStats{
		TotalNotes:              len(notes),
		MeanAbsoluteDeviationMs: util.RoundTo(stat.Mean(absDevs, nil), 1),
		MeanSignedDeviationMs:   util.RoundTo(stat.Mean(devs, nil), 1),
		StdDeviationMs:          util.RoundTo(popStd(devs), 1),
		MedianDeviationMs:       util.RoundTo(util.Median(devs), 1),
		WorstDeviationMs:        worst.DeviationMs,
		WorstDeviationPosition:  fmt.Sprintf("bar %v, beat %v", worst.Bar, worst.BeatPosition),
		AccuracyPercent:         util.RoundTo(float64(onTime)/float64(len(notes))*100, 1),
	}
}

// computeMetronomeStats measures how steady the metronome itself was
// against its own fitted grid: per-click error, jitter, and drift.
func computeMetronomeStats(clickTimes []float64, clickIndices []int, period, referenceTime float64) *model.MetronomeStats {
	if len(clickTimes) < 3 || period <= 0 {
		return &model.MetronomeStats{
			TotalClicks: len(clickTimes),
			Error:       "Too few clicks for analysis",
		}
	}

	n := len(clickTimes)
	errorsMs := make([]float64, n)
	absErrors := make([]float64, n)
	indices := make([]float64, n)
	tight, ok := 0, 0
	for i, t := range clickTimes {
		expected := referenceTime + float64(clickIndices[i])*period
		errorsMs[i] = (t - expected) * 1000
		absErrors[i] = math.Abs(errorsMs[i])
		indices[i] = float64(clickIndices[i])
		if absErrors[i] <= 2.0 {
			tight++
		}
		if absErrors[i] <= 5.0 {
			ok++
		}
	}

	drift := 0.0
	if n >= 4 {
		_, drift = stat.LinearRegression(indices, errorsMs, nil, false)
	}

	maxErr := absErrors[0]
	for _, e := range absErrors[1:] {
		if e > maxErr {
			maxErr = e
		}
	}

	return &model.MetronomeStats{
		TotalClicks:        n,
		ExpectedIntervalMs: util.RoundTo(period*1000, 1),
		JitterMs:           util.RoundTo(popStd(errorsMs), 2),
		MeanErrorMs:        util.RoundTo(stat.Mean(absErrors, nil), 2),
		MaxErrorMs:         util.RoundTo(maxErr, 1),
		DriftMsPerBeat:     util.RoundTo(drift, 2),
		TightPercent:       util.RoundTo(float64(tight)/float64(n)*100, 1),
		OkPercent:          util.RoundTo(float64(ok)/float64(n)*100, 1),
	}
}

// popStd is the population standard deviation, matching how the stats
// are defined over the complete session rather than a sample of it.
func popStd(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := stat.Mean(xs, nil)
	return math.Sqrt(stat.MomentAbout(2, xs, mean, nil))
}
