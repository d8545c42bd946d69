// Package voice provides the core domain model for the VoiceMix API:
// ingested audio files, detected voice segments with their editable
// characteristics, and mixed-output audit records. It also defines the
// repository ports for persistence, with in-memory and Postgres
// implementations.
package voice

import (
	"fmt"
	"time"
)

// Palette is the fixed set of colors used to associate a voice segment
// with its waveform region in a client UI. Colors are assigned round-robin
// and reused cyclically when voices outnumber palette entries.
var Palette = [5]string{
	"audio-blue",
	"audio-purple",
	"audio-pink",
	"audio-green",
	"audio-yellow",
}

// PaletteColor returns the palette entry for the i-th voice.
func PaletteColor(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// IsPaletteColor reports whether c is one of the fixed palette entries.
func IsPaletteColor(c string) bool {
	for _, p := range Palette {
		if p == c {
			return true
		}
	}
	return false
}

// AudioFile represents one ingested audio source. It is created by the
// ingestion service and immutable afterwards, except that ID and URL may be
// back-filled once persistence completes.
type AudioFile struct {
	// ID is the opaque unique identifier assigned at ingestion.
	ID string
	// Name is the display name (file name or resolved video title).
	Name string
	// URL is the playable locator for the audio.
	URL string
	// ObjectKey is the object-storage key holding the source bytes.
	// Empty for pure-URL sources such as YouTube ingests.
	ObjectKey string
	// Duration is the length in whole seconds.
	Duration int
	// Waveform holds one normalized amplitude sample in [0,1] per second
	// of duration. Visualization filler only, never used for analysis.
	Waveform []float64
	// CreatedAt is when the record was created.
	CreatedAt time.Time
	// UpdatedAt is when the record was last updated.
	UpdatedAt time.Time
}

// Validate checks the AudioFile invariants.
func (a *AudioFile) Validate() error {
	if a.Duration < 0 {
		return fmt.Errorf("%w: negative duration %d", ErrInvalidSource, a.Duration)
	}
	for i, s := range a.Waveform {
		if s < 0 || s > 1 {
			return fmt.Errorf("%w: waveform sample %d out of range: %f", ErrInvalidSource, i, s)
		}
	}
	return nil
}

// Clone creates a deep copy of the audio file for safe reads.
func (a *AudioFile) Clone() *AudioFile {
	wf := make([]float64, len(a.Waveform))
	copy(wf, a.Waveform)
	dup := *a
	dup.Waveform = wf
	return &dup
}

// Characteristics is the vector of four normalized descriptors attached to a
// voice segment. The components carry no fixed physical meaning; pitch and
// speed parametrize speech synthesis presets, tone and clarity are stored
// and surfaced unchanged.
type Characteristics struct {
	Pitch   float64 `json:"pitch"`
	Tone    float64 `json:"tone"`
	Speed   float64 `json:"speed"`
	Clarity float64 `json:"clarity"`
}

// Validate checks that every component is within [0,1].
func (c Characteristics) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"pitch", c.Pitch},
		{"tone", c.Tone},
		{"speed", c.Speed},
		{"clarity", c.Clarity},
	} {
		if v.val < 0 || v.val > 1 {
			return fmt.Errorf("%w: characteristic %s out of range: %f", ErrSave, v.name, v.val)
		}
	}
	return nil
}

// Voice represents one detected voice segment within an AudioFile.
// Tag, volume and characteristics are mutable through the Store; the time
// range and color are fixed at analysis time.
type Voice struct {
	// ID is the opaque unique identifier.
	ID string
	// AudioID references the owning AudioFile. Non-owning; many voices
	// share one audio file.
	AudioID string
	// StartTime and EndTime bound the segment in seconds.
	// Invariant: 0 <= StartTime < EndTime <= owning file duration.
	// Segments of the same file may overlap.
	StartTime float64
	EndTime   float64
	// Tag is the human-readable label, editable by the user.
	Tag string
	// Color is one of the fixed Palette entries.
	Color string
	// Volume is the per-voice level in [0,1], independent of mute state.
	Volume float64
	// Characteristics is the normalized descriptor vector.
	Characteristics Characteristics
	// AudioURL locates a playable preview of this segment. It may be a
	// per-segment clip or fall back to the parent file URL; playback
	// degrades gracefully when it is absent or invalid.
	AudioURL string
	// CreatedAt is when the voice was created.
	CreatedAt time.Time
	// UpdatedAt is when the voice was last updated.
	UpdatedAt time.Time
}

// Validate checks the segment invariants against the owning file duration.
func (v *Voice) Validate(duration int) error {
	if v.AudioID == "" {
		return fmt.Errorf("%w: missing audio id", ErrSave)
	}
	if v.StartTime < 0 || v.StartTime >= v.EndTime || v.EndTime > float64(duration) {
		return fmt.Errorf("%w: segment [%f, %f] outside [0, %d]", ErrSave, v.StartTime, v.EndTime, duration)
	}
	if v.Volume < 0 || v.Volume > 1 {
		return fmt.Errorf("%w: volume out of range: %f", ErrSave, v.Volume)
	}
	return v.Characteristics.Validate()
}

// Clone creates a copy of the voice for safe reads.
func (v *Voice) Clone() *Voice {
	dup := *v
	return &dup
}

// ClampVolume constrains a volume value to [0,1].
func ClampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// MixResult is the audit record of one mixdown: which voices were active,
// what narration text (if any) was synthesized, and where the artifact
// lives. It is never reused as input to anything else.
type MixResult struct {
	// ID is the opaque unique identifier.
	ID string
	// AudioID references the source AudioFile.
	AudioID string
	// VoiceIDs lists the voices that were active in this mix.
	VoiceIDs []string
	// NarrationText is the synthesized narration, nil when none was used.
	NarrationText *string
	// OutputURL is the durable locator of the mixed artifact.
	OutputURL string
	// ObjectKey is the object-storage key of the artifact.
	ObjectKey string
	// CreatedAt is when the mix was produced.
	CreatedAt time.Time
}

// Clone creates a deep copy of the mix result.
func (m *MixResult) Clone() *MixResult {
	dup := *m
	dup.VoiceIDs = make([]string, len(m.VoiceIDs))
	copy(dup.VoiceIDs, m.VoiceIDs)
	if m.NarrationText != nil {
		t := *m.NarrationText
		dup.NarrationText = &t
	}
	return &dup
}
