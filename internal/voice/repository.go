package voice

import "context"

// AudioRepository defines the persistence port for audio files.
type AudioRepository interface {
	// Save persists an audio file. Existing records are updated.
	Save(ctx context.Context, audio *AudioFile) error

	// FindByID retrieves an audio file by its unique identifier.
	// Returns ErrAudioNotFound if it does not exist.
	FindByID(ctx context.Context, id string) (*AudioFile, error)

	// List returns all audio files.
	List(ctx context.Context) ([]*AudioFile, error)

	// Delete removes an audio file.
	// Returns ErrAudioNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}

// VoiceRepository defines the persistence port for voice segments.
type VoiceRepository interface {
	// Save persists a voice. Existing records are updated.
	Save(ctx context.Context, v *Voice) error

	// FindByID retrieves a voice by its unique identifier.
	// Returns ErrVoiceNotFound if it does not exist.
	FindByID(ctx context.Context, id string) (*Voice, error)

	// ListByAudioID returns all voices belonging to one audio file,
	// ordered by start time.
	ListByAudioID(ctx context.Context, audioID string) ([]*Voice, error)

	// Delete removes one voice.
	// Returns ErrVoiceNotFound if it does not exist.
	Delete(ctx context.Context, id string) error

	// DeleteByAudioID removes every voice belonging to one audio file and
	// returns the number of voices removed.
	DeleteByAudioID(ctx context.Context, audioID string) (int, error)
}

// MixRepository defines the persistence port for mix audit records.
type MixRepository interface {
	// Save persists a mix result.
	Save(ctx context.Context, m *MixResult) error

	// ListByAudioID returns mix results for one audio file, newest first.
	ListByAudioID(ctx context.Context, audioID string) ([]*MixResult, error)
}
