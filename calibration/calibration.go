package calibration

import (
	"math"

	"github.com/pulsecheck/pulsecheck/constants"
	"github.com/pulsecheck/pulsecheck/dsp"
	"github.com/pulsecheck/pulsecheck/model"
	"github.com/pulsecheck/pulsecheck/onset"
)

// weight of the energy-decay distance in the combined spectral score
const decayWeight = 0.3

// ExtractProfile analyzes a calibration recording and returns the
// averaged spectral profile. Onset detection runs offline over the
// whole buffer with the same detector the streaming path uses, then a
// feature window around each onset is extracted and averaged. A
// profile with OnsetCount zero means nothing usable was captured.
func ExtractProfile(audio []float64, sampleRate int) *model.SourceProfile {
	detector := onset.NewDetector(sampleRate, constants.MinOnsetIntervalSeconds)
	onsets := detector.ProcessChunk(audio)

	profile := &model.SourceProfile{MFCCMean: make([]float64, dsp.NumMFCC)}
	if len(onsets) == 0 {
		return profile
	}

	analyzer := dsp.NewAnalyzer(sampleRate)
	var centroidSum, decaySum float64
	mfccSum := make([]float64, dsp.NumMFCC)
	count := 0

	for _, ev := range onsets {
		start := int(math.Round(ev.Time * float64(sampleRate)))
		end := start + dsp.WindowSamples
		if start < 0 || end > len(audio) {
			continue
		}

		features, ok := analyzer.ExtractWindow(audio[start:end])
		if !ok {
			continue
		}
		for i, c := range features.MFCC {
			mfccSum[i] += c
		}
		centroidSum += features.SpectralCentroid
		decaySum += features.EnergyDecay
		count++
	}

	if count == 0 {
		return profile
	}

	for i := range mfccSum {
		profile.MFCCMean[i] = mfccSum[i] / float64(count)
	}
	profile.SpectralCentroid = centroidSum / float64(count)
	profile.EnergyDecay = decaySum / float64(count)
	profile.OnsetCount = count
	return profile
}

// ClassifyWindow labels a single onset as "click" or "guitar" by
// comparing its window features against both calibration profiles:
// MFCC cosine similarity minus a penalty for energy-decay distance
// (clicks decay much faster than guitar notes). Anything that cannot
// be scored defaults to guitar; missing a guitar note is worse than
// treating one event as both click and note.
func ClassifyWindow(analyzer *dsp.Analyzer, buffer []float64, onsetSample int, cal *model.Calibration) string {
	if !cal.Complete() {
		return "guitar"
	}

	end := onsetSample + dsp.WindowSamples
	if onsetSample < 0 || end > len(buffer) {
		return "guitar"
	}

	features, ok := analyzer.ExtractWindow(buffer[onsetSample:end])
	if !ok {
		return "guitar"
	}

	simMet := dsp.CosineSimilarity(features.MFCC, cal.Metronome.MFCCMean)
	simGtr := dsp.CosineSimilarity(features.MFCC, cal.Guitar.MFCCMean)

	decayDistMet := features.EnergyDecay - cal.Metronome.EnergyDecay
	if decayDistMet < 0 {
		decayDistMet = -decayDistMet
	}
	decayDistGtr := features.EnergyDecay - cal.Guitar.EnergyDecay
	if decayDistGtr < 0 {
		decayDistGtr = -decayDistGtr
	}

	scoreMet := simMet - decayWeight*decayDistMet
	scoreGtr := simGtr - decayWeight*decayDistGtr

	if scoreMet > scoreGtr {
		return "click"
	}
	return "guitar"
}
