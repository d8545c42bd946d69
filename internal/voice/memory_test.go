package voice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAudioRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("save and find round-trips", func(t *testing.T) {
		repo := NewMemoryAudioRepository()
		af := &AudioFile{ID: "aud-1", Name: "song.mp3", Duration: 30}

		require.NoError(t, repo.Save(ctx, af))

		found, err := repo.FindByID(ctx, "aud-1")
		require.NoError(t, err)
		assert.Equal(t, "song.mp3", found.Name)
	})

	t.Run("find unknown returns ErrAudioNotFound", func(t *testing.T) {
		repo := NewMemoryAudioRepository()
		_, err := repo.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrAudioNotFound)
	})

	t.Run("stored record is isolated from caller mutations", func(t *testing.T) {
		repo := NewMemoryAudioRepository()
		af := &AudioFile{ID: "aud-1", Name: "original", Waveform: []float64{0.5}}
		require.NoError(t, repo.Save(ctx, af))

		af.Name = "mutated"
		af.Waveform[0] = 0.9

		found, err := repo.FindByID(ctx, "aud-1")
		require.NoError(t, err)
		assert.Equal(t, "original", found.Name)
		assert.Equal(t, 0.5, found.Waveform[0])
	})

	t.Run("save back-fills timestamps", func(t *testing.T) {
		repo := NewMemoryAudioRepository()
		af := &AudioFile{ID: "aud-1", Name: "song.mp3"}

		require.NoError(t, repo.Save(ctx, af))
		assert.False(t, af.CreatedAt.IsZero())
		assert.False(t, af.UpdatedAt.IsZero())

		created := af.CreatedAt
		af.Name = "renamed.mp3"
		require.NoError(t, repo.Save(ctx, af))
		assert.Equal(t, created, af.CreatedAt)
		assert.False(t, af.UpdatedAt.Before(created))

		found, err := repo.FindByID(ctx, "aud-1")
		require.NoError(t, err)
		assert.Equal(t, created, found.CreatedAt)
	})

	t.Run("list orders newest first", func(t *testing.T) {
		repo := NewMemoryAudioRepository()
		now := time.Now()
		require.NoError(t, repo.Save(ctx, &AudioFile{ID: "old", CreatedAt: now.Add(-time.Hour)}))
		require.NoError(t, repo.Save(ctx, &AudioFile{ID: "new", CreatedAt: now}))

		files, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "new", files[0].ID)
		assert.Equal(t, "old", files[1].ID)
	})

	t.Run("delete removes the record", func(t *testing.T) {
		repo := NewMemoryAudioRepository()
		require.NoError(t, repo.Save(ctx, &AudioFile{ID: "aud-1"}))

		require.NoError(t, repo.Delete(ctx, "aud-1"))

		_, err := repo.FindByID(ctx, "aud-1")
		assert.ErrorIs(t, err, ErrAudioNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, "aud-1"), ErrAudioNotFound)
	})
}

func TestMemoryVoiceRepository(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) *MemoryVoiceRepository {
		t.Helper()
		repo := NewMemoryVoiceRepository()
		for _, v := range []*Voice{
			{ID: "voc-b", AudioID: "aud-1", StartTime: 10, EndTime: 20},
			{ID: "voc-a", AudioID: "aud-1", StartTime: 0, EndTime: 12},
			{ID: "voc-c", AudioID: "aud-2", StartTime: 5, EndTime: 9},
		} {
			require.NoError(t, repo.Save(ctx, v))
		}
		return repo
	}

	t.Run("list filters by audio and orders by start time", func(t *testing.T) {
		repo := seed(t)

		voices, err := repo.ListByAudioID(ctx, "aud-1")
		require.NoError(t, err)
		require.Len(t, voices, 2)
		assert.Equal(t, "voc-a", voices[0].ID)
		assert.Equal(t, "voc-b", voices[1].ID)
	})

	t.Run("ties on start time break by id", func(t *testing.T) {
		repo := NewMemoryVoiceRepository()
		require.NoError(t, repo.Save(ctx, &Voice{ID: "voc-2", AudioID: "aud-1", StartTime: 3, EndTime: 8}))
		require.NoError(t, repo.Save(ctx, &Voice{ID: "voc-1", AudioID: "aud-1", StartTime: 3, EndTime: 6}))

		voices, err := repo.ListByAudioID(ctx, "aud-1")
		require.NoError(t, err)
		assert.Equal(t, "voc-1", voices[0].ID)
	})

	t.Run("list of unknown audio is empty, not an error", func(t *testing.T) {
		repo := seed(t)
		voices, err := repo.ListByAudioID(ctx, "aud-unknown")
		require.NoError(t, err)
		assert.Empty(t, voices)
	})

	t.Run("save overwrites by id and keeps the creation time", func(t *testing.T) {
		repo := seed(t)

		first, err := repo.FindByID(ctx, "voc-a")
		require.NoError(t, err)
		require.False(t, first.CreatedAt.IsZero())

		require.NoError(t, repo.Save(ctx, &Voice{ID: "voc-a", AudioID: "aud-1", StartTime: 0, EndTime: 12, Tag: "Lead"}))

		found, err := repo.FindByID(ctx, "voc-a")
		require.NoError(t, err)
		assert.Equal(t, "Lead", found.Tag)
		assert.Equal(t, first.CreatedAt, found.CreatedAt)
		assert.False(t, found.UpdatedAt.Before(first.UpdatedAt))
	})

	t.Run("delete by audio reports the removed count", func(t *testing.T) {
		repo := seed(t)

		deleted, err := repo.DeleteByAudioID(ctx, "aud-1")
		require.NoError(t, err)
		assert.Equal(t, 2, deleted)

		remaining, err := repo.ListByAudioID(ctx, "aud-1")
		require.NoError(t, err)
		assert.Empty(t, remaining)

		other, err := repo.ListByAudioID(ctx, "aud-2")
		require.NoError(t, err)
		assert.Len(t, other, 1)
	})

	t.Run("delete by audio with no voices reports zero", func(t *testing.T) {
		repo := NewMemoryVoiceRepository()
		deleted, err := repo.DeleteByAudioID(ctx, "aud-1")
		require.NoError(t, err)
		assert.Zero(t, deleted)
	})
}

func TestMemoryMixRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("list returns mixes for the audio newest first", func(t *testing.T) {
		repo := NewMemoryMixRepository()
		now := time.Now()
		require.NoError(t, repo.Save(ctx, &MixResult{ID: "mix-1", AudioID: "aud-1", CreatedAt: now.Add(-time.Minute)}))
		require.NoError(t, repo.Save(ctx, &MixResult{ID: "mix-2", AudioID: "aud-1", CreatedAt: now}))
		require.NoError(t, repo.Save(ctx, &MixResult{ID: "mix-3", AudioID: "aud-2", CreatedAt: now}))

		mixes, err := repo.ListByAudioID(ctx, "aud-1")
		require.NoError(t, err)
		require.Len(t, mixes, 2)
		assert.Equal(t, "mix-2", mixes[0].ID)
		assert.Equal(t, "mix-1", mixes[1].ID)
	})

	t.Run("save fills a missing creation time", func(t *testing.T) {
		repo := NewMemoryMixRepository()
		m := &MixResult{ID: "mix-1", AudioID: "aud-1"}
		require.NoError(t, repo.Save(ctx, m))
		assert.False(t, m.CreatedAt.IsZero())
	})

	t.Run("stored mix is isolated from caller mutations", func(t *testing.T) {
		repo := NewMemoryMixRepository()
		m := &MixResult{ID: "mix-1", AudioID: "aud-1", VoiceIDs: []string{"voc-1"}}
		require.NoError(t, repo.Save(ctx, m))

		m.VoiceIDs[0] = "mutated"

		mixes, err := repo.ListByAudioID(ctx, "aud-1")
		require.NoError(t, err)
		assert.Equal(t, "voc-1", mixes[0].VoiceIDs[0])
	})
}
