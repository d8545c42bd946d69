package analyze

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maauso/voicemix-api/internal/storage"
	"github.com/maauso/voicemix-api/internal/voice"
)

// Service orchestrates segmentation: fetching source bytes, running the
// analyzer and persisting the resulting voices.
type Service struct {
	audioRepo voice.AudioRepository
	voiceRepo voice.VoiceRepository
	store     storage.Storage
	analyzer  Analyzer
	logger    *slog.Logger
}

// NewService creates a segmentation service.
func NewService(
	audioRepo voice.AudioRepository,
	voiceRepo voice.VoiceRepository,
	store storage.Storage,
	analyzer Analyzer,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		audioRepo: audioRepo,
		voiceRepo: voiceRepo,
		store:     store,
		analyzer:  analyzer,
		logger:    logger,
	}
}

// Segment analyzes the audio file and persists its voice segments.
// It is idempotent: when the file already has voices they are returned
// unchanged instead of re-running the analyzer.
func (s *Service) Segment(ctx context.Context, audioID string) ([]*voice.Voice, error) {
	af, err := s.audioRepo.FindByID(ctx, audioID)
	if err != nil {
		return nil, err
	}

	existing, err := s.voiceRepo.ListByAudioID(ctx, audioID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing voices: %v", voice.ErrAnalysis, err)
	}
	if len(existing) > 0 {
		s.logger.Debug("audio already segmented",
			slog.String("audio_id", audioID),
			slog.Int("voices", len(existing)),
		)
		return existing, nil
	}

	return s.run(ctx, af)
}

// Reanalyze discards any existing segmentation and runs a fresh one.
func (s *Service) Reanalyze(ctx context.Context, audioID string) ([]*voice.Voice, error) {
	af, err := s.audioRepo.FindByID(ctx, audioID)
	if err != nil {
		return nil, err
	}

	deleted, err := s.voiceRepo.DeleteByAudioID(ctx, audioID)
	if err != nil {
		return nil, fmt.Errorf("%w: clearing previous voices: %v", voice.ErrAnalysis, err)
	}
	if deleted > 0 {
		s.logger.Info("discarded previous segmentation",
			slog.String("audio_id", audioID),
			slog.Int("deleted", deleted),
		)
	}

	return s.run(ctx, af)
}

// run executes the analyzer and persists its output. Nothing is persisted
// when the analyzer fails; a persistence failure midway rolls back the
// voices saved so far.
func (s *Service) run(ctx context.Context, af *voice.AudioFile) ([]*voice.Voice, error) {
	localPath, cleanup := s.fetchLocal(ctx, af)
	defer cleanup()

	voices, err := s.analyzer.Analyze(ctx, af, localPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", voice.ErrAnalysis, err)
	}
	if len(voices) < minSegments || len(voices) > maxSegments {
		return nil, fmt.Errorf("%w: analyzer returned %d segments", voice.ErrAnalysis, len(voices))
	}
	for _, v := range voices {
		if err := v.Validate(af.Duration); err != nil {
			return nil, fmt.Errorf("%w: %v", voice.ErrAnalysis, err)
		}
	}

	for i, v := range voices {
		if err := s.voiceRepo.Save(ctx, v); err != nil {
			s.rollback(ctx, voices[:i])
			return nil, fmt.Errorf("%w: persisting voice %s: %v", voice.ErrSave, v.ID, err)
		}
	}

	s.logger.Info("audio segmented",
		slog.String("audio_id", af.ID),
		slog.Int("voices", len(voices)),
	)
	return voices, nil
}

// fetchLocal downloads the source object into scratch space so the analyzer
// can run ffmpeg against it. URL-only sources yield an empty path.
func (s *Service) fetchLocal(ctx context.Context, af *voice.AudioFile) (string, func()) {
	noop := func() {}
	if af.ObjectKey == "" {
		return "", noop
	}

	obj, err := s.store.Download(ctx, af.ObjectKey)
	if err != nil {
		s.logger.Warn("source download failed, segmenting without local copy",
			slog.String("audio_id", af.ID),
			slog.String("error", err.Error()),
		)
		return "", noop
	}
	defer func() { _ = obj.Close() }()

	localPath, err := s.store.SaveTemp(ctx, af.Name, obj)
	if err != nil {
		s.logger.Warn("scratch copy failed, segmenting without local copy",
			slog.String("audio_id", af.ID),
			slog.String("error", err.Error()),
		)
		return "", noop
	}

	return localPath, func() {
		if err := s.store.CleanupTemp(context.WithoutCancel(ctx), []string{localPath}); err != nil {
			s.logger.Warn("scratch cleanup failed", slog.String("error", err.Error()))
		}
	}
}

// rollback removes voices persisted before a mid-run save failure so a
// failed analysis never leaves a partial segmentation behind.
func (s *Service) rollback(ctx context.Context, saved []*voice.Voice) {
	for _, v := range saved {
		if err := s.voiceRepo.Delete(ctx, v.ID); err != nil && !errors.Is(err, voice.ErrVoiceNotFound) {
			s.logger.Warn("rollback delete failed",
				slog.String("voice_id", v.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
