package model

// OnsetEvent is one detected transient, click or note alike.
type OnsetEvent struct {
	Time   float64 `json:"time"`
	Energy float64 `json:"energy"`
}

const (
	EventTypeNote  = "note"
	EventTypeRest  = "rest"
	EventTypeExtra = "extra"
)

// NoteEvent is a guitar onset scored against the beat grid.
type NoteEvent struct {
	TimeSeconds     float64 `json:"time"`
	NearestGridTime float64 `json:"nearest_grid_time"`
	DeviationMs     float64 `json:"deviation_ms"`
	EventType       string  `json:"event_type"`
	Bar             int     `json:"bar"`
	BeatPosition    float64 `json:"beat_position"`
}

// Event is one outward frame for the frontend. Every concrete event
// struct carries a Type discriminator in its JSON form.
type Event = any

type ClickDetected struct {
	Type        string  `json:"type"`
	Time        float64 `json:"time"`
	ClickCount  int     `json:"click_count"`
	TotalOnsets int     `json:"total_onsets"`
}

type GridEstablished struct {
	Type          string  `json:"type"`
	BPM           float64 `json:"bpm"`
	ReferenceTime float64 `json:"reference_time"`
}

type NotePlayed struct {
	Type            string  `json:"type"`
	Time            float64 `json:"time"`
	NearestGridTime float64 `json:"nearest_grid_time"`
	DeviationMs     float64 `json:"deviation_ms"`
	Bar             int     `json:"bar"`
	BeatPosition    float64 `json:"beat_position"`
	IsOnTime        bool    `json:"is_on_time"`
}

type Started struct {
	Type string `json:"type"`
}

type CalibrationStarted struct {
	Type string `json:"type"`
	Step string `json:"step"`
}

type CalibrationResult struct {
	Type    string         `json:"type"`
	Step    string         `json:"step"`
	Profile *SourceProfile `json:"profile,omitempty"`
	Error   string         `json:"error,omitempty"`
}
