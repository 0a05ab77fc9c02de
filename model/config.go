package model

// SessionConfig is the start-of-session configuration supplied by the client.
type SessionConfig struct {
	GridResolution    string       // "8th" or "16th"
	SampleRate        int
	TimingThresholdMs float64
	Calibration       *Calibration
}

// ControlMessage is the JSON payload of a 0x00 client frame.
type ControlMessage struct {
	Type        string       `json:"type"`
	Grid        string       `json:"grid,omitempty"`
	Threshold   float64      `json:"threshold,omitempty"`
	SampleRate  int          `json:"sample_rate,omitempty"`
	Calibration *Calibration `json:"calibration,omitempty"`
	Step        string       `json:"step,omitempty"`
}
