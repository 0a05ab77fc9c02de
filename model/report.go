package model

type NoteStats struct {
	TotalNotes              int     `json:"total_notes"`
	MeanAbsoluteDeviationMs float64 `json:"mean_absolute_deviation_ms"`
	MeanSignedDeviationMs   float64 `json:"mean_signed_deviation_ms"`
	StdDeviationMs          float64 `json:"std_deviation_ms"`
	MedianDeviationMs       float64 `json:"median_deviation_ms"`
	WorstDeviationMs        float64 `json:"worst_deviation_ms"`
	WorstDeviationPosition  string  `json:"worst_deviation_position"`
	AccuracyPercent         float64 `json:"accuracy_percent"`
}

// MetronomeStats measures click consistency against the fitted grid.
type MetronomeStats struct {
	TotalClicks        int     `json:"total_clicks"`
	ExpectedIntervalMs float64 `json:"expected_interval_ms,omitempty"`
	JitterMs           float64 `json:"jitter_ms"`
	MeanErrorMs        float64 `json:"mean_error_ms"`
	MaxErrorMs         float64 `json:"max_error_ms"`
	DriftMsPerBeat     float64 `json:"drift_ms_per_beat"`
	TightPercent       float64 `json:"tight_percent"`
	OkPercent          float64 `json:"ok_percent"`
	Error              string  `json:"error,omitempty"`
}

// SessionReport is built once at session stop. Error is set instead of
// the data fields when the session produced nothing scoreable.
type SessionReport struct {
	Type           string          `json:"type"`
	Error          string          `json:"error,omitempty"`
	BPM            float64         `json:"bpm,omitempty"`
	GridResolution string          `json:"grid_resolution,omitempty"`
	TotalBars      int             `json:"total_bars,omitempty"`
	Events         []NoteEvent     `json:"events,omitempty"`
	ClickTimes     []float64       `json:"click_times,omitempty"`
	Stats          *NoteStats      `json:"stats,omitempty"`
	MetronomeStats *MetronomeStats `json:"metronome_stats,omitempty"`
}
