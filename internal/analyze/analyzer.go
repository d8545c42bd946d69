// Package analyze provides voice segmentation: splitting an ingested audio
// file into 2-5 tagged voice segments. The Analyzer port fixes the output
// contract; the internal method (silence heuristic here, a diarization model
// in a real deployment) is swappable behind it.
package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path"
	"path/filepath"
	"sort"

	"github.com/maauso/voicemix-api/internal/audio"
	"github.com/maauso/voicemix-api/internal/storage"
	"github.com/maauso/voicemix-api/internal/voice"
	"github.com/maauso/voicemix-api/internal/voice/id"
)

// segment count bounds and the deliberate overlap between adjacent segments.
const (
	minSegments = 2
	maxSegments = 5
	overlapSec  = 5.0
)

// Analyzer defines the interface for voice segmentation.
// Implementations must return between 2 and 5 segments, each within
// [0, duration], tagged, colored round-robin from the palette, with volume
// 1.0 and characteristics in [0,1]^4. Segments may overlap.
type Analyzer interface {
	// Analyze segments the audio file. localPath points at a local copy of
	// the source bytes and may be empty for pure-URL sources.
	Analyze(ctx context.Context, af *voice.AudioFile, localPath string) ([]*voice.Voice, error)
}

// SilenceAnalyzer segments audio at silence boundaries when a local copy is
// available, falling back to an even split with slight overlap otherwise.
// It extracts a per-segment preview clip when it can, degrading to the
// parent file URL when it cannot.
type SilenceAnalyzer struct {
	detector audio.SilenceDetector
	clipper  audio.Clipper
	store    storage.Storage
	logger   *slog.Logger
	rng      *rand.Rand
}

// Compile-time check that SilenceAnalyzer implements Analyzer.
var _ Analyzer = (*SilenceAnalyzer)(nil)

// AnalyzerOption configures a SilenceAnalyzer.
type AnalyzerOption func(*SilenceAnalyzer)

// WithRand sets the random source, useful for deterministic tests.
func WithRand(rng *rand.Rand) AnalyzerOption {
	return func(a *SilenceAnalyzer) {
		a.rng = rng
	}
}

// NewSilenceAnalyzer creates a new silence-based analyzer. detector, clipper
// and store may each be nil; the analyzer then falls back to even splitting
// and parent-URL previews.
func NewSilenceAnalyzer(
	detector audio.SilenceDetector,
	clipper audio.Clipper,
	store storage.Storage,
	logger *slog.Logger,
	opts ...AnalyzerOption,
) *SilenceAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	a := &SilenceAnalyzer{
		detector: detector,
		clipper:  clipper,
		store:    store,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *SilenceAnalyzer) randFloat() float64 {
	if a.rng != nil {
		return a.rng.Float64()
	}
	return rand.Float64()
}

func (a *SilenceAnalyzer) randIntN(n int) int {
	if a.rng != nil {
		return a.rng.IntN(n)
	}
	return rand.IntN(n)
}

// Analyze splits the file into segments and builds Voice records for them.
func (a *SilenceAnalyzer) Analyze(ctx context.Context, af *voice.AudioFile, localPath string) ([]*voice.Voice, error) {
	if af.Duration < 1 {
		return nil, fmt.Errorf("audio %s too short to segment: %ds", af.ID, af.Duration)
	}

	count := minSegments + a.randIntN(3)

	var bounds [][2]float64
	if localPath != "" && a.detector != nil {
		silences, err := a.detector.DetectSilences(ctx, localPath, audio.DefaultSilenceOpts())
		if err != nil {
			a.logger.Warn("silence detection failed, falling back to even split",
				slog.String("audio_id", af.ID),
				slog.String("error", err.Error()),
			)
		} else {
			bounds = silenceBounds(silences, float64(af.Duration), count)
		}
	}
	if bounds == nil {
		bounds = evenBounds(float64(af.Duration), count)
	}

	voices := make([]*voice.Voice, 0, len(bounds))
	for i, b := range bounds {
		v := &voice.Voice{
			ID:        id.Voice(),
			AudioID:   af.ID,
			StartTime: b[0],
			EndTime:   b[1],
			Tag:       fmt.Sprintf("Voice %d", i+1),
			Color:     voice.PaletteColor(i),
			Volume:    1.0,
			Characteristics: voice.Characteristics{
				Pitch:   a.randFloat(),
				Tone:    a.randFloat(),
				Speed:   a.randFloat(),
				Clarity: a.randFloat(),
			},
			AudioURL: af.URL,
		}

		if clipURL := a.extractClip(ctx, af, localPath, v); clipURL != "" {
			v.AudioURL = clipURL
		}

		voices = append(voices, v)
	}

	return voices, nil
}

// extractClip cuts the segment out of the local copy and uploads it as a
// preview object. Any failure degrades to the parent URL rather than
// failing the analysis.
func (a *SilenceAnalyzer) extractClip(ctx context.Context, af *voice.AudioFile, localPath string, v *voice.Voice) string {
	if localPath == "" || a.clipper == nil || a.store == nil {
		return ""
	}

	dst := filepath.Join(filepath.Dir(localPath), fmt.Sprintf("clip_%s.mp3", v.ID))
	if err := a.clipper.ExtractClip(ctx, localPath, dst, v.StartTime, v.EndTime-v.StartTime); err != nil {
		a.logger.Warn("clip extraction failed",
			slog.String("voice_id", v.ID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	defer func() {
		if err := a.store.CleanupTemp(context.WithoutCancel(ctx), []string{dst}); err != nil {
			a.logger.Warn("clip cleanup failed", slog.String("error", err.Error()))
		}
	}()

	f, err := a.store.LoadTemp(ctx, dst)
	if err != nil {
		a.logger.Warn("clip read failed",
			slog.String("voice_id", v.ID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	defer func() { _ = f.Close() }()

	key := path.Join("clips", af.ID, v.ID+".mp3")
	url, err := a.store.Upload(ctx, key, f)
	if err != nil {
		a.logger.Warn("clip upload failed",
			slog.String("voice_id", v.ID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return url
}

// evenBounds divides the timeline into count segments of equal length with a
// slight overlap extending each segment's end.
func evenBounds(duration float64, count int) [][2]float64 {
	segLen := duration / float64(count+1)
	bounds := make([][2]float64, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * segLen
		end := start + segLen + overlapSec
		if end > duration {
			end = duration
		}
		bounds = append(bounds, [2]float64{start, end})
	}
	return bounds
}

// silenceBounds builds contiguous segments whose interior boundaries sit at
// silence midpoints near the even-split ideals, then extends each end by the
// overlap. Returns nil when the silences cannot yield count segments.
func silenceBounds(silences []audio.SilenceInterval, duration float64, count int) [][2]float64 {
	if len(silences) == 0 {
		return nil
	}

	mids := make([]float64, 0, len(silences))
	for _, s := range silences {
		mid := (s.Start + s.End) / 2
		if mid > 0.5 && mid < duration-0.5 {
			mids = append(mids, mid)
		}
	}
	sort.Float64s(mids)
	if len(mids) < count-1 {
		return nil
	}

	// Pick the silence midpoint closest to each even-split ideal,
	// keeping boundaries strictly increasing.
	cuts := make([]float64, 0, count-1)
	prev := 0.0
	for i := 1; i < count; i++ {
		ideal := duration * float64(i) / float64(count)
		best := -1.0
		bestDist := duration
		for _, m := range mids {
			if m <= prev {
				continue
			}
			if d := abs(m - ideal); d < bestDist {
				bestDist = d
				best = m
			}
		}
		if best < 0 {
			return nil
		}
		cuts = append(cuts, best)
		prev = best
	}

	bounds := make([][2]float64, 0, count)
	start := 0.0
	for _, cut := range cuts {
		end := cut + overlapSec
		if end > duration {
			end = duration
		}
		bounds = append(bounds, [2]float64{start, end})
		start = cut
	}
	bounds = append(bounds, [2]float64{start, duration})
	return bounds
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
