package voice

import "errors"

// Static errors forming the domain error taxonomy. Services wrap these with
// context; the HTTP layer maps them to response codes with errors.Is.
var (
	// ErrInvalidSource is returned for a malformed upload or an input URL
	// that does not match the expected external-source pattern.
	ErrInvalidSource = errors.New("voice: invalid audio source")
	// ErrDecode is returned when uploaded bytes are not valid audio.
	ErrDecode = errors.New("voice: audio decode failed")
	// ErrStorage is returned when a storage backend read or write fails.
	ErrStorage = errors.New("voice: storage backend failed")
	// ErrSave is returned when persisting a voice update or delete fails.
	ErrSave = errors.New("voice: voice save failed")
	// ErrSynthesis is returned when speech synthesis fails.
	ErrSynthesis = errors.New("voice: speech synthesis failed")
	// ErrResolve is returned when remote source metadata resolution fails.
	ErrResolve = errors.New("voice: metadata resolution failed")
	// ErrAnalysis is returned when voice segmentation fails.
	ErrAnalysis = errors.New("voice: voice analysis failed")

	// ErrAudioNotFound is returned when an audio file cannot be found by ID.
	ErrAudioNotFound = errors.New("voice: audio file not found")
	// ErrVoiceNotFound is returned when a voice cannot be found by ID.
	ErrVoiceNotFound = errors.New("voice: voice not found")
)
