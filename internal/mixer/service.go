// Package mixer renders mixed audio artifacts: the active voice segments of
// an audio file layered over a silent base, optionally with synthesized
// narration on top.
package mixer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maauso/voicemix-api/internal/audio"
	"github.com/maauso/voicemix-api/internal/storage"
	"github.com/maauso/voicemix-api/internal/tts"
	"github.com/maauso/voicemix-api/internal/voice"
	"github.com/maauso/voicemix-api/internal/voice/id"
)

// Service renders and persists mixes.
type Service struct {
	audioRepo   voice.AudioRepository
	voiceRepo   voice.VoiceRepository
	mixRepo     voice.MixRepository
	store       storage.Storage
	engine      audio.MixEngine
	synthesizer tts.Synthesizer
	logger      *slog.Logger
}

// NewService creates a mixer service. synthesizer may be nil; narration
// requests then fail with ErrSynthesis instead of being dropped.
func NewService(
	audioRepo voice.AudioRepository,
	voiceRepo voice.VoiceRepository,
	mixRepo voice.MixRepository,
	store storage.Storage,
	engine audio.MixEngine,
	synthesizer tts.Synthesizer,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		audioRepo:   audioRepo,
		voiceRepo:   voiceRepo,
		mixRepo:     mixRepo,
		store:       store,
		engine:      engine,
		synthesizer: synthesizer,
		logger:      logger,
	}
}

// Mix renders a mixed artifact for the given audio file. active selects
// which voices are folded in by ID; an empty selection still yields an
// artifact (silence, plus narration when requested). narration is
// synthesized and layered on top when non-blank. masterVolume scales every
// track and is clamped to [0,1].
//
// The artifact bytes are returned alongside the persisted MixResult.
func (s *Service) Mix(ctx context.Context, audioID string, active map[string]bool, narration string, masterVolume float64) (*voice.MixResult, []byte, error) {
	af, err := s.audioRepo.FindByID(ctx, audioID)
	if err != nil {
		return nil, nil, err
	}

	all, err := s.voiceRepo.ListByAudioID(ctx, audioID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: listing voices: %v", voice.ErrStorage, err)
	}

	selected := make([]*voice.Voice, 0, len(all))
	for _, v := range all {
		if active[v.ID] {
			selected = append(selected, v)
		}
	}
	sort.Slice(selected, func(i, j int) bool {
		if selected[i].StartTime != selected[j].StartTime {
			return selected[i].StartTime < selected[j].StartTime
		}
		return selected[i].ID < selected[j].ID
	})

	var scratch []string
	defer func() {
		if len(scratch) == 0 {
			return
		}
		if err := s.store.CleanupTemp(context.WithoutCancel(ctx), scratch); err != nil {
			s.logger.Warn("scratch cleanup failed", slog.String("error", err.Error()))
		}
	}()

	narration = strings.TrimSpace(narration)
	var narrationPath string
	if narration != "" {
		narrationPath, err = s.synthesizeNarration(ctx, narration, selected)
		if err != nil {
			return nil, nil, err
		}
		scratch = append(scratch, narrationPath)
	}

	var sourcePath string
	if af.ObjectKey != "" && len(selected) > 0 {
		sourcePath, err = s.fetchSource(ctx, af)
		if err != nil {
			return nil, nil, err
		}
		scratch = append(scratch, sourcePath)
	}

	in := audio.MixdownInput{
		SourcePath:    sourcePath,
		NarrationPath: narrationPath,
		Duration:      float64(af.Duration),
		MasterVolume:  voice.ClampVolume(masterVolume),
	}
	for _, v := range selected {
		in.Tracks = append(in.Tracks, audio.MixTrack{
			Start:  v.StartTime,
			End:    v.EndTime,
			Volume: v.Volume,
		})
	}

	outPath, err := s.store.SaveTemp(ctx, "mix.mp3", bytes.NewReader(nil))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: allocating output file: %v", voice.ErrStorage, err)
	}
	scratch = append(scratch, outPath)

	if err := s.engine.Mixdown(ctx, in, outPath); err != nil {
		return nil, nil, fmt.Errorf("rendering mix for audio %s: %w", audioID, err)
	}

	f, err := s.store.LoadTemp(ctx, outPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading rendered mix: %v", voice.ErrStorage, err)
	}
	blob, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading rendered mix: %v", voice.ErrStorage, err)
	}

	key := fmt.Sprintf("mixed-%s-%s.mp3", audioID, uuid.NewString())
	url, err := s.store.Upload(ctx, key, bytes.NewReader(blob))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: uploading mix artifact: %v", voice.ErrStorage, err)
	}

	result := &voice.MixResult{
		ID:        id.Mix(),
		AudioID:   audioID,
		VoiceIDs:  voiceIDs(selected),
		OutputURL: url,
		ObjectKey: key,
		CreatedAt: time.Now().UTC(),
	}
	if narration != "" {
		result.NarrationText = &narration
	}

	if err := s.mixRepo.Save(ctx, result); err != nil {
		return nil, nil, fmt.Errorf("%w: recording mix: %v", voice.ErrSave, err)
	}

	s.logger.Info("mix rendered",
		slog.String("audio_id", audioID),
		slog.String("mix_id", result.ID),
		slog.Int("voices", len(selected)),
		slog.Bool("narration", narration != ""),
		slog.Int("bytes", len(blob)),
	)
	return result, blob, nil
}

// History returns the recorded mixes for an audio file, newest first.
func (s *Service) History(ctx context.Context, audioID string) ([]*voice.MixResult, error) {
	if _, err := s.audioRepo.FindByID(ctx, audioID); err != nil {
		return nil, err
	}
	return s.mixRepo.ListByAudioID(ctx, audioID)
}

// synthesizeNarration renders the narration text to a scratch MP3. The
// voice preset follows the first active voice's characteristics so the
// narration matches the dominant speaker.
func (s *Service) synthesizeNarration(ctx context.Context, text string, selected []*voice.Voice) (string, error) {
	if s.synthesizer == nil {
		return "", fmt.Errorf("%w: no synthesizer configured", voice.ErrSynthesis)
	}

	params := tts.DefaultParams()
	if len(selected) > 0 {
		params = tts.Params{
			Pitch: selected[0].Characteristics.Pitch,
			Speed: selected[0].Characteristics.Speed,
		}
	}

	data, err := s.synthesizer.Synthesize(ctx, text, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", voice.ErrSynthesis, err)
	}

	p, err := s.store.SaveTemp(ctx, "narration.mp3", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: staging narration: %v", voice.ErrStorage, err)
	}
	return p, nil
}

// fetchSource downloads the source object into scratch space for ffmpeg.
func (s *Service) fetchSource(ctx context.Context, af *voice.AudioFile) (string, error) {
	obj, err := s.store.Download(ctx, af.ObjectKey)
	if err != nil {
		return "", fmt.Errorf("%w: downloading source %s: %v", voice.ErrStorage, af.ObjectKey, err)
	}
	defer func() { _ = obj.Close() }()

	p, err := s.store.SaveTemp(ctx, af.Name, obj)
	if err != nil {
		return "", fmt.Errorf("%w: staging source: %v", voice.ErrStorage, err)
	}
	return p, nil
}

func voiceIDs(voices []*voice.Voice) []string {
	ids := make([]string, 0, len(voices))
	for _, v := range voices {
		ids = append(ids, v.ID)
	}
	return ids
}
