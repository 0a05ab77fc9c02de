package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func eighthGrid() *Config {
	return &Config{BPM: 120, Resolution: "8th", ReferenceTime: 1.0}
}

func TestIntervalByResolution(t *testing.T) {
	assert := assert.New(t)

	eighth := eighthGrid()
	assert.InDelta(0.5, eighth.BeatDuration(), 1e-9)
	assert.Equal(2, eighth.SubdivisionsPerBeat())
	assert.InDelta(0.25, eighth.Interval(), 1e-9)

	sixteenth := &Config{BPM: 120, Resolution: "16th", ReferenceTime: 0}
	assert.Equal(4, sixteenth.SubdivisionsPerBeat())
	assert.InDelta(0.125, sixteenth.Interval(), 1e-9)

	// spelled-out resolution names from the wire are accepted too
	spelled := &Config{BPM: 120, Resolution: "sixteenth", ReferenceTime: 0}
	assert.Equal(4, spelled.SubdivisionsPerBeat())
}

func TestDeviationSignConvention(t *testing.T) {
	assert := assert.New(t)
	cfg := eighthGrid()

	// 12ms before the grid line is early
	dev, gridTime, _, _ := cfg.ComputeDeviation(1.5 - 0.012)
	assert.Equal(-12.0, dev)
	assert.InDelta(1.5, gridTime, 1e-9)

	// 8ms after is late
	dev, gridTime, _, _ = cfg.ComputeDeviation(1.5 + 0.008)
	assert.Equal(8.0, dev)
	assert.InDelta(1.5, gridTime, 1e-9)
}

func TestBarAndBeatPosition(t *testing.T) {
	assert := assert.New(t)
	cfg := eighthGrid()

	// reference is beat 1 of bar 1
	_, _, bar, beat := cfg.ComputeDeviation(1.0)
	assert.Equal(1, bar)
	assert.Equal(1.0, beat)

	// one subdivision later: the "and" of beat 1
	_, _, bar, beat = cfg.ComputeDeviation(1.25)
	assert.Equal(1, bar)
	assert.Equal(1.5, beat)

	// 8 subdivisions = one full 4/4 bar at eighth resolution
	_, _, bar, beat = cfg.ComputeDeviation(1.0 + 8*0.25)
	assert.Equal(2, bar)
	assert.Equal(1.0, beat)

	_, _, bar, beat = cfg.ComputeDeviation(1.0 + 11*0.25)
	assert.Equal(2, bar)
	assert.Equal(2.5, beat)
}

func TestOnTimeThresholdIsInclusive(t *testing.T) {
	assert := assert.New(t)
	a := NewAligner(30)

	assert.True(a.IsOnTime(30.0))
	assert.True(a.IsOnTime(-30.0))
	assert.False(a.IsOnTime(30.01))
	assert.False(a.IsOnTime(-30.01))
}

func TestAlignNote(t *testing.T) {
	assert := assert.New(t)
	a := NewAligner(30)
	a.SetConfig(eighthGrid())

	note, event := a.AlignNote(1.5 + 0.04)

	assert.Equal(40.0, note.DeviationMs)
	assert.Equal("note", note.EventType)
	assert.Equal(40.0, event.DeviationMs)
	assert.False(event.IsOnTime)
	assert.Len(a.Notes(), 1)

	_, event = a.AlignNote(2.0 - 0.02)
	assert.Equal(-20.0, event.DeviationMs)
	assert.True(event.IsOnTime)
	assert.Len(a.Notes(), 2)
}

func TestNoteExpectedNear(t *testing.T) {
	assert := assert.New(t)
	a := NewAligner(30)
	a.SetConfig(eighthGrid())

	// no notes yet: a click-classified onset is a pure click
	assert.False(a.NoteExpectedNear(2.0, 0.5))

	a.AlignNote(1.75)
	// a note 0.25s ago: player is active, coincident split applies
	assert.True(a.NoteExpectedNear(2.0, 0.5))
	// over two beat periods of silence: player stopped
	assert.False(a.NoteExpectedNear(2.80, 0.5))
}
