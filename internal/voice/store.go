package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Store is the voice-state store: CRUD over the voice segments of one audio
// file, writing through to the backing repository. Concurrent edits are
// last-write-wins per voice id; no merge semantics.
type Store struct {
	audioRepo AudioRepository
	voiceRepo VoiceRepository
	logger    *slog.Logger
}

// NewStore creates a new voice store.
func NewStore(audioRepo AudioRepository, voiceRepo VoiceRepository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		audioRepo: audioRepo,
		voiceRepo: voiceRepo,
		logger:    logger,
	}
}

// Get retrieves one voice by ID.
func (s *Store) Get(ctx context.Context, id string) (*Voice, error) {
	return s.voiceRepo.FindByID(ctx, id)
}

// List returns the voices of one audio file ordered by start time.
// Returns ErrAudioNotFound when the audio file does not exist.
func (s *Store) List(ctx context.Context, audioID string) ([]*Voice, error) {
	if _, err := s.audioRepo.FindByID(ctx, audioID); err != nil {
		return nil, err
	}
	return s.voiceRepo.ListByAudioID(ctx, audioID)
}

// Update replaces the tag, characteristics and volume of an existing voice
// and writes the change through to the repository. The segment time range
// and color are immutable. Backend failures surface as ErrSave.
func (s *Store) Update(ctx context.Context, id, tag string, volume float64, ch Characteristics) (*Voice, error) {
	existing, err := s.voiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	audio, err := s.audioRepo.FindByID(ctx, existing.AudioID)
	if err != nil {
		return nil, err
	}

	existing.Tag = tag
	existing.Volume = ClampVolume(volume)
	existing.Characteristics = ch

	if err := existing.Validate(audio.Duration); err != nil {
		return nil, err
	}

	if err := s.voiceRepo.Save(ctx, existing); err != nil {
		s.logger.Error("voice update failed",
			slog.String("voice_id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: update %s: %v", ErrSave, id, err)
	}

	s.logger.Info("voice updated",
		slog.String("voice_id", id),
		slog.String("tag", tag),
		slog.Float64("volume", existing.Volume),
	)
	return existing, nil
}

// Delete removes one voice from the backing store. A backend failure is
// reported as ErrSave; callers that already dropped the voice from their
// view must not interpret that state as backend success.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.voiceRepo.Delete(ctx, id)
	if err == nil {
		s.logger.Info("voice deleted", slog.String("voice_id", id))
		return nil
	}
	if errors.Is(err, ErrVoiceNotFound) {
		return err
	}
	s.logger.Error("voice delete failed",
		slog.String("voice_id", id),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%w: delete %s: %v", ErrSave, id, err)
}

// DeleteAll removes every voice of one audio file and returns the count of
// removed voices. Used by reanalysis and explicit clear actions.
func (s *Store) DeleteAll(ctx context.Context, audioID string) (int, error) {
	if _, err := s.audioRepo.FindByID(ctx, audioID); err != nil {
		return 0, err
	}

	count, err := s.voiceRepo.DeleteByAudioID(ctx, audioID)
	if err != nil {
		s.logger.Error("bulk voice delete failed",
			slog.String("audio_id", audioID),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("%w: delete all for %s: %v", ErrSave, audioID, err)
	}

	s.logger.Info("voices cleared",
		slog.String("audio_id", audioID),
		slog.Int("deleted", count),
	)
	return count, nil
}
