package model

// SourceProfile is an averaged spectral fingerprint for one source,
// built from a calibration recording.
type SourceProfile struct {
	MFCCMean         []float64 `json:"mfcc_mean"`
	SpectralCentroid float64   `json:"spectral_centroid"`
	EnergyDecay      float64   `json:"energy_decay"`
	OnsetCount       int       `json:"onset_count"`
}

// Calibration holds the per-source profiles. Read-only once loaded;
// shared safely across sessions.
type Calibration struct {
	Metronome *SourceProfile `json:"metronome,omitempty"`
	Guitar    *SourceProfile `json:"guitar,omitempty"`
}

// Complete reports whether both profiles are present and usable.
func (c *Calibration) Complete() bool {
	return c != nil &&
		c.Metronome != nil && c.Metronome.OnsetCount > 0 &&
		c.Guitar != nil && c.Guitar.OnsetCount > 0
}
