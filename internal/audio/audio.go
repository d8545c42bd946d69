// Package audio provides interfaces and an ffmpeg CLI implementation for the
// audio plumbing the service needs: duration probing, silence detection,
// segment clip extraction and multi-track mixdown.
package audio

import "context"

// SilenceOpts configures silence detection.
type SilenceOpts struct {
	// MinSilenceMs is the minimum silence duration in milliseconds to
	// count as a silence interval. Default: 500 milliseconds.
	MinSilenceMs int

	// ThresholdDB is the volume threshold in dBFS below which audio is
	// considered silence. Default: -40 dBFS.
	ThresholdDB float64
}

// DefaultSilenceOpts returns the default options for silence detection.
func DefaultSilenceOpts() SilenceOpts {
	return SilenceOpts{
		MinSilenceMs: 500,
		ThresholdDB:  -40,
	}
}

// SilenceInterval is one detected silence interval, in seconds.
type SilenceInterval struct {
	Start float64
	End   float64
}

// Prober determines the duration of an audio file.
type Prober interface {
	// Probe returns the duration of the audio at path in seconds.
	// It fails when the file is not decodable audio.
	Probe(ctx context.Context, path string) (float64, error)
}

// SilenceDetector finds silence intervals within an audio file.
type SilenceDetector interface {
	DetectSilences(ctx context.Context, path string, opts SilenceOpts) ([]SilenceInterval, error)
}

// Clipper extracts a time range of an audio file into a standalone clip.
type Clipper interface {
	// ExtractClip writes the [start, start+duration) range of src to dst,
	// re-encoded as MP3.
	ExtractClip(ctx context.Context, src, dst string, start, duration float64) error
}

// MixTrack is one active voice segment folded into a mixdown.
type MixTrack struct {
	// Start and End bound the segment within the source, in seconds.
	Start float64
	End   float64
	// Volume is the per-track level in [0,1].
	Volume float64
}

// MixdownInput describes one mixdown: a silent base of the full duration,
// the selected source segments, and optional narration audio layered on top.
type MixdownInput struct {
	// SourcePath is the local path of the source audio. Empty when the
	// source bytes are unavailable (pure-URL ingests); tracks are then
	// skipped and only the base and narration are mixed.
	SourcePath string
	// NarrationPath is the local path of synthesized narration audio.
	// Empty when no narration was requested.
	NarrationPath string
	// Duration is the length of the silent base in seconds.
	Duration float64
	// Tracks are the active voice segments.
	Tracks []MixTrack
	// MasterVolume scales every track, in [0,1].
	MasterVolume float64
}

// MixEngine produces a single audio artifact from a MixdownInput.
// The output is a pure function of its input; no hidden state.
type MixEngine interface {
	Mixdown(ctx context.Context, in MixdownInput, outputPath string) error
}
