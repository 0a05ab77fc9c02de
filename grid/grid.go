package grid

import (
	"math"

	"github.com/pulsecheck/pulsecheck/model"
	"github.com/pulsecheck/pulsecheck/util"
)

const beatsPerBar = 4

// Config is the beat grid derived from BPM, resolution, and a
// reference time anchor. The subdivision interval is derived, never
// stored.
type Config struct {
	BPM           float64
	Resolution    string // "8th" or "16th"
	ReferenceTime float64
}

func (c *Config) BeatDuration() float64 {
	return 60.0 / c.BPM
}

func (c *Config) SubdivisionsPerBeat() int {
	switch c.Resolution {
	case "16th", "sixteenth":
		return 4
	default: // eighth notes
		return 2
	}
}

func (c *Config) Interval() float64 {
	return c.BeatDuration() / float64(c.SubdivisionsPerBeat())
}

// ComputeDeviation snaps an onset to the nearest grid subdivision.
// Deviation is signed: negative means early, positive means late.
// Bars are 1-indexed, beat position is fractional, 4/4 assumed.
func (c *Config) ComputeDeviation(onsetTime float64) (deviationMs float64, nearestGridTime float64, bar int, beatPosition float64) {
	relative := onsetTime - c.ReferenceTime
	gridIndex := int(math.Round(relative / c.Interval()))
	nearestGridTime = c.ReferenceTime + float64(gridIndex)*c.Interval()
	deviationMs = (onsetTime - nearestGridTime) * 1000.0

	subdivisionsPerBar := beatsPerBar * c.SubdivisionsPerBeat()
	bar = gridIndex/subdivisionsPerBar + 1
	positionInBar := gridIndex % subdivisionsPerBar
	beatPosition = 1.0 + float64(positionInBar)/float64(c.SubdivisionsPerBeat())

	return util.RoundTo(deviationMs, 1), nearestGridTime, bar, util.RoundTo(beatPosition, 2)
}

// Aligner scores classified guitar onsets against the grid and owns
// the accumulated NoteEvents of the session.
type Aligner struct {
	cfg         *Config
	thresholdMs float64
	notes       []model.NoteEvent
}

func NewAligner(thresholdMs float64) *Aligner {
	return &Aligner{thresholdMs: thresholdMs}
}

// SetConfig installs or replaces the grid after lock or a refit.
func (a *Aligner) SetConfig(cfg *Config) {
	a.cfg = cfg
}

func (a *Aligner) Config() *Config {
	return a.cfg
}

func (a *Aligner) Notes() []model.NoteEvent {
	return a.notes
}

func (a *Aligner) ThresholdMs() float64 {
	return a.thresholdMs
}

// IsOnTime uses the inclusive convention: |deviation| <= threshold.
func (a *Aligner) IsOnTime(deviationMs float64) bool {
	return math.Abs(deviationMs) <= a.thresholdMs
}

// AlignNote scores a guitar-labelled onset, records the NoteEvent, and
// returns the outward message for the frontend.
func (a *Aligner) AlignNote(onsetTime float64) (model.NoteEvent, model.NotePlayed) {
	deviationMs, gridTime, bar, beatPos := a.cfg.ComputeDeviation(onsetTime)

	note := model.NoteEvent{
		TimeSeconds:     onsetTime,
		NearestGridTime: gridTime,
		DeviationMs:     deviationMs,
		EventType:       model.EventTypeNote,
		Bar:             bar,
		BeatPosition:    beatPos,
	}
	a.notes = append(a.notes, note)

	return note, model.NotePlayed{
		Type:            "note_event",
		Time:            onsetTime,
		NearestGridTime: gridTime,
		DeviationMs:     deviationMs,
		Bar:             bar,
		BeatPosition:    beatPos,
		IsOnTime:        a.IsOnTime(deviationMs),
	}
}

// NoteExpectedNear decides whether a click-classified onset also hides
// a guitar note played on the beat. When the player lands exactly on a
// click, the two transients merge into one onset; rather than forcing
// an exclusive choice the pipeline emits both a click update and a
// near-zero-deviation note. A note is expected when the player has
// been active recently (a note within the last two beat periods).
func (a *Aligner) NoteExpectedNear(onsetTime float64, period float64) bool {
	if len(a.notes) == 0 {
		// no notes yet: the player hasn't started, pure click
		return false
	}
	lastNoteTime := a.notes[len(a.notes)-1].TimeSeconds
	return onsetTime-lastNoteTime < period*2.0
}
