// Package ingest turns uploaded audio bytes or a remote video URL into a
// persisted AudioFile record: probe the duration, build a placeholder
// waveform, store the bytes durably and write exactly one record.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path"
	"strings"

	"github.com/maauso/voicemix-api/internal/audio"
	"github.com/maauso/voicemix-api/internal/resolver"
	"github.com/maauso/voicemix-api/internal/storage"
	"github.com/maauso/voicemix-api/internal/voice"
	"github.com/maauso/voicemix-api/internal/voice/id"
	"github.com/maauso/voicemix-api/internal/waveform"
)

// DefaultMaxDurationSec bounds how much audio downstream processing has to
// handle; longer sources are capped, not rejected.
const DefaultMaxDurationSec = 180

// Service ingests audio sources into AudioFile records.
type Service struct {
	audioRepo voice.AudioRepository
	store     storage.Storage
	prober    audio.Prober
	resolver  resolver.Resolver
	logger    *slog.Logger

	maxDurationSec int
}

// Option is a function that configures a Service.
type Option func(*Service)

// WithMaxDuration sets the duration cap in seconds.
func WithMaxDuration(sec int) Option {
	return func(s *Service) {
		if sec > 0 {
			s.maxDurationSec = sec
		}
	}
}

// NewService creates a new ingestion service.
func NewService(
	audioRepo voice.AudioRepository,
	store storage.Storage,
	prober audio.Prober,
	res resolver.Resolver,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		audioRepo:      audioRepo,
		store:          store,
		prober:         prober,
		resolver:       res,
		logger:         logger,
		maxDurationSec: DefaultMaxDurationSec,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestUpload decodes uploaded audio bytes and persists them as a new
// AudioFile. The bytes must be decodable audio (voice.ErrDecode otherwise);
// the record is written only after the bytes are durably stored, so a
// failure never leaves a record without a URL.
func (s *Service) IngestUpload(ctx context.Context, name string, data []byte) (*voice.AudioFile, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", voice.ErrInvalidSource)
	}

	tempPath, err := s.store.SaveTemp(ctx, name, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: save upload: %v", voice.ErrStorage, err)
	}
	defer func() {
		if err := s.store.CleanupTemp(context.WithoutCancel(ctx), []string{tempPath}); err != nil {
			s.logger.Warn("temp cleanup failed", slog.String("error", err.Error()))
		}
	}()

	seconds, err := s.prober.Probe(ctx, tempPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", voice.ErrDecode, err)
	}

	duration := int(math.Ceil(seconds))
	if duration > s.maxDurationSec {
		duration = s.maxDurationSec
	}

	audioID := id.Audio()
	key := path.Join("audio", audioID+ext(name))
	url, err := s.store.Upload(ctx, key, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: upload audio: %v", voice.ErrStorage, err)
	}

	af := &voice.AudioFile{
		ID:        audioID,
		Name:      name,
		URL:       url,
		ObjectKey: key,
		Duration:  duration,
		Waveform:  waveform.Generate(duration),
	}

	if err := s.audioRepo.Save(ctx, af); err != nil {
		// Best effort: the object must not outlive a record that was
		// never written.
		if derr := s.store.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.logger.Warn("orphan object cleanup failed",
				slog.String("key", key),
				slog.String("error", derr.Error()),
			)
		}
		return nil, fmt.Errorf("%w: save audio record: %v", voice.ErrStorage, err)
	}

	s.logger.Info("audio ingested",
		slog.String("audio_id", af.ID),
		slog.String("name", af.Name),
		slog.Int("duration_sec", af.Duration),
		slog.Int("size_bytes", len(data)),
	)
	return af, nil
}

// IngestYouTube resolves a remote video URL into a persisted AudioFile.
// The URL must match the YouTube pattern (voice.ErrInvalidSource otherwise);
// the duration is an estimate capped at the configured maximum.
func (s *Service) IngestYouTube(ctx context.Context, videoURL string) (*voice.AudioFile, error) {
	meta, err := s.resolver.Resolve(ctx, videoURL)
	if err != nil {
		if errors.Is(err, resolver.ErrInvalidURL) || errors.Is(err, resolver.ErrNoVideoID) {
			return nil, fmt.Errorf("%w: %v", voice.ErrInvalidSource, err)
		}
		return nil, fmt.Errorf("%w: %v", voice.ErrResolve, err)
	}

	duration := meta.Duration
	if duration <= 0 || duration > s.maxDurationSec {
		duration = s.maxDurationSec
	}

	af := &voice.AudioFile{
		ID:       id.Audio(),
		Name:     meta.Title,
		URL:      resolver.WatchURL(meta.VideoID),
		Duration: duration,
		Waveform: waveform.Generate(duration),
	}

	if err := s.audioRepo.Save(ctx, af); err != nil {
		return nil, fmt.Errorf("%w: save audio record: %v", voice.ErrStorage, err)
	}

	s.logger.Info("youtube audio ingested",
		slog.String("audio_id", af.ID),
		slog.String("video_id", meta.VideoID),
		slog.String("title", af.Name),
		slog.Int("duration_sec", af.Duration),
	)
	return af, nil
}

// Get retrieves an ingested audio file by ID.
func (s *Service) Get(ctx context.Context, audioID string) (*voice.AudioFile, error) {
	return s.audioRepo.FindByID(ctx, audioID)
}

// ext returns a lowercase audio file extension for the object key,
// defaulting to .mp3 when the name carries none.
func ext(name string) string {
	e := strings.ToLower(path.Ext(name))
	switch e {
	case ".mp3", ".wav", ".ogg", ".m4a", ".flac", ".aac":
		return e
	default:
		return ".mp3"
	}
}
