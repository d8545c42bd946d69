package analyze

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/voicemix-api/internal/audio"
	"github.com/maauso/voicemix-api/internal/voice"
)

func fixedRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestEvenBounds(t *testing.T) {
	t.Run("produces the requested number of segments", func(t *testing.T) {
		bounds := evenBounds(60, 3)
		require.Len(t, bounds, 3)
	})

	t.Run("segments stay within the duration", func(t *testing.T) {
		for _, count := range []int{2, 3, 4, 5} {
			for _, bound := range evenBounds(45, count) {
				assert.GreaterOrEqual(t, bound[0], 0.0)
				assert.Less(t, bound[0], bound[1])
				assert.LessOrEqual(t, bound[1], 45.0)
			}
		}
	})

	t.Run("adjacent segments overlap", func(t *testing.T) {
		bounds := evenBounds(60, 3)
		assert.Greater(t, bounds[0][1], bounds[1][0])
	})

	t.Run("short audio still yields valid segments", func(t *testing.T) {
		for _, bound := range evenBounds(1, 2) {
			assert.Less(t, bound[0], bound[1])
			assert.LessOrEqual(t, bound[1], 1.0)
		}
	})
}

func TestSilenceBounds(t *testing.T) {
	silences := []audio.SilenceInterval{
		{Start: 19, End: 21},
		{Start: 39, End: 41},
	}

	t.Run("cuts at silence midpoints", func(t *testing.T) {
		bounds := silenceBounds(silences, 60, 3)
		require.Len(t, bounds, 3)
		assert.Equal(t, 0.0, bounds[0][0])
		assert.Equal(t, 20.0, bounds[1][0])
		assert.Equal(t, 40.0, bounds[2][0])
		assert.Equal(t, 60.0, bounds[2][1])
	})

	t.Run("extends segment ends by the overlap", func(t *testing.T) {
		bounds := silenceBounds(silences, 60, 3)
		assert.Equal(t, 25.0, bounds[0][1])
		assert.Equal(t, 45.0, bounds[1][1])
	})

	t.Run("falls back when too few silences", func(t *testing.T) {
		assert.Nil(t, silenceBounds(silences, 60, 5))
		assert.Nil(t, silenceBounds(nil, 60, 2))
	})

	t.Run("ignores silences at the very edges", func(t *testing.T) {
		edge := []audio.SilenceInterval{{Start: 0, End: 0.4}, {Start: 59.8, End: 60}}
		assert.Nil(t, silenceBounds(edge, 60, 2))
	})
}

func TestSilenceAnalyzerAnalyze(t *testing.T) {
	ctx := context.Background()
	af := &voice.AudioFile{ID: "aud-1", Name: "song.mp3", URL: "http://x/files/audio/a.mp3", Duration: 60}

	t.Run("returns between two and five valid voices", func(t *testing.T) {
		for seed := uint64(1); seed <= 10; seed++ {
			a := NewSilenceAnalyzer(nil, nil, nil, nil, WithRand(fixedRand(seed)))

			voices, err := a.Analyze(ctx, af, "")
			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(voices), minSegments)
			assert.LessOrEqual(t, len(voices), maxSegments)

			for _, v := range voices {
				require.NoError(t, v.Validate(af.Duration))
			}
		}
	})

	t.Run("tags and colors follow voice order", func(t *testing.T) {
		a := NewSilenceAnalyzer(nil, nil, nil, nil, WithRand(fixedRand(7)))

		voices, err := a.Analyze(ctx, af, "")
		require.NoError(t, err)
		for i, v := range voices {
			assert.Equal(t, voice.PaletteColor(i), v.Color)
			assert.Contains(t, v.Tag, "Voice")
			assert.Equal(t, 1.0, v.Volume)
			assert.True(t, voice.IsPaletteColor(v.Color))
		}
	})

	t.Run("preview falls back to the parent URL without a local copy", func(t *testing.T) {
		a := NewSilenceAnalyzer(nil, nil, nil, nil, WithRand(fixedRand(3)))

		voices, err := a.Analyze(ctx, af, "")
		require.NoError(t, err)
		for _, v := range voices {
			assert.Equal(t, af.URL, v.AudioURL)
		}
	})

	t.Run("characteristics are within range", func(t *testing.T) {
		a := NewSilenceAnalyzer(nil, nil, nil, nil, WithRand(fixedRand(11)))

		voices, err := a.Analyze(ctx, af, "")
		require.NoError(t, err)
		for _, v := range voices {
			require.NoError(t, v.Characteristics.Validate())
		}
	})

	t.Run("zero-length audio is rejected", func(t *testing.T) {
		a := NewSilenceAnalyzer(nil, nil, nil, nil)
		_, err := a.Analyze(ctx, &voice.AudioFile{ID: "aud-0", Duration: 0}, "")
		assert.Error(t, err)
	})
}
