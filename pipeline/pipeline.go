package pipeline

import (
	"log"

	"github.com/pulsecheck/pulsecheck/classify"
	"github.com/pulsecheck/pulsecheck/constants"
	"github.com/pulsecheck/pulsecheck/grid"
	"github.com/pulsecheck/pulsecheck/metronome"
	"github.com/pulsecheck/pulsecheck/model"
	"github.com/pulsecheck/pulsecheck/onset"
	"github.com/pulsecheck/pulsecheck/util"
)

// State is the session lifecycle position.
type State int

const (
	StateIdle State = iota
	StateListening
	StateTracking
	StateStopped
)

// Pipeline processes one session's streaming audio: detects onsets,
// finds the metronome by periodicity, and scores guitar notes against
// the locked grid. One instance per session, mutated only by its own
// chunk sequence in arrival order; never shared.
type Pipeline struct {
	gridResolution string
	sampleRate     int
	thresholdMs    float64

	audioBuffer []float64

	detector   *onset.Detector
	metronome  *metronome.Detector
	classifier *classify.Classifier
	aligner    *grid.Aligner

	state           State
	totalOnsetCount int
}

func New(cfg model.SessionConfig) *Pipeline {
	if cfg.GridResolution == "" {
		cfg.GridResolution = constants.DefaultGridResolution
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = constants.DefaultSampleRate
	}
	if cfg.TimingThresholdMs == 0 {
		cfg.TimingThresholdMs = constants.DefaultTimingThresholdMs
	}

	return &Pipeline{
		gridResolution: cfg.GridResolution,
		sampleRate:     cfg.SampleRate,
		thresholdMs:    cfg.TimingThresholdMs,
		detector:       onset.NewDetector(cfg.SampleRate, constants.MinOnsetIntervalSeconds),
		metronome:      metronome.NewDetector(),
		classifier:     classify.NewClassifier(cfg.SampleRate, cfg.Calibration),
		aligner:        grid.NewAligner(cfg.TimingThresholdMs),
		state:          StateIdle,
	}
}

func (p *Pipeline) State() State           { return p.state }
func (p *Pipeline) GridEstablished() bool  { return p.metronome.Locked() }
func (p *Pipeline) BPM() float64           { return p.metronome.BPM() }
func (p *Pipeline) SampleRate() int        { return p.sampleRate }
func (p *Pipeline) AudioBuffer() []float64 { return p.audioBuffer }

// ProcessChunk feeds one chunk through the full pipeline stage order:
// onset detection, metronome tracking, then (post-lock) classification
// and grid alignment. Returns the outward events for the frontend.
// Purely synchronous; no chunk interleaving against one instance.
func (p *Pipeline) ProcessChunk(chunk []float64) []model.Event {
	if p.state == StateStopped {
		return nil
	}
	if p.state == StateIdle {
		p.state = StateListening
	}

	p.audioBuffer = append(p.audioBuffer, chunk...)

	var events []model.Event
	for _, ev := range p.detector.ProcessChunk(chunk) {
		p.totalOnsetCount++
		log.Printf("[Pipeline] onset #%v at t=%.3fs (locked=%v)", p.totalOnsetCount, ev.Time, p.metronome.Locked())

		if !p.metronome.Locked() {
			events = append(events, p.observeUnlocked(ev)...)
		} else {
			events = append(events, p.observeLocked(ev)...)
		}
	}
	return events
}

// observeUnlocked feeds every onset to the periodicity search and
// reports listening progress.
func (p *Pipeline) observeUnlocked(ev model.OnsetEvent) []model.Event {
	justLocked := p.metronome.AddOnset(ev.Time)

	events := []model.Event{model.ClickDetected{
		Type:        "click_detected",
		Time:        ev.Time,
		ClickCount:  p.metronome.ClickCount(),
		TotalOnsets: p.metronome.TotalOnsets(),
	}}

	if justLocked {
		p.syncGrid()
		p.state = StateTracking
		events = append(events, model.GridEstablished{
			Type:          "grid_established",
			BPM:           util.RoundTo(p.metronome.BPM(), 1),
			ReferenceTime: p.metronome.ReferenceTime(),
		})
	}
	return events
}

// observeLocked classifies the onset, keeps the grid refined, and
// emits click updates and scored notes.
func (p *Pipeline) observeLocked(ev model.OnsetEvent) []model.Event {
	timingIsClick := p.metronome.TrackOnset(ev.Time)
	label, overrode := p.classifier.Classify(ev.Time, timingIsClick, p.audioBuffer)
	if overrode {
		p.metronome.UndoLastClick()
		log.Printf("[Pipeline] spectral override at t=%.3fs: timing=click, spectral=guitar", ev.Time)
	}

	p.syncGrid()

	var events []model.Event
	if label == classify.Click {
		events = append(events, model.ClickDetected{
			Type:        "click_detected",
			Time:        ev.Time,
			ClickCount:  p.metronome.ClickCount(),
			TotalOnsets: p.totalOnsetCount,
		})
		// A guitar note played on the beat merges with the click into
		// one onset. When the player is actively playing, emit both
		// views of that instant so neither gets lost.
		if p.aligner.NoteExpectedNear(ev.Time, p.metronome.Period()) {
			_, noteEvent := p.aligner.AlignNote(ev.Time)
			events = append(events, noteEvent)
			log.Printf("[Pipeline] coincidence: click+note at t=%.3fs", ev.Time)
		}
	} else {
		_, noteEvent := p.aligner.AlignNote(ev.Time)
		events = append(events, noteEvent)
	}
	return events
}

// syncGrid pushes the metronome detector's latest fit into the aligner.
func (p *Pipeline) syncGrid() {
	md := p.metronome
	if !md.Locked() || md.Period() <= 0 {
		return
	}
	cfg := p.aligner.Config()
	if cfg == nil || cfg.BPM != md.BPM() || cfg.ReferenceTime != md.ReferenceTime() {
		p.aligner.SetConfig(&grid.Config{
			BPM:           md.BPM(),
			Resolution:    p.gridResolution,
			ReferenceTime: md.ReferenceTime(),
		})
	}
}

// Stop finalizes the session. Processing is synchronous per chunk, so
// there is never a partially-processed chunk to flush; subsequent
// chunks are ignored.
func (p *Pipeline) Stop() {
	p.state = StateStopped
}
