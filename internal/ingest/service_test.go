package ingest

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/voicemix-api/internal/resolver"
	"github.com/maauso/voicemix-api/internal/voice"
)

// mockStorage implements storage.Storage for testing.
type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	args := m.Called(ctx, name, data)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) LoadTemp(ctx context.Context, path string) (io.ReadCloser, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *mockStorage) CleanupTemp(ctx context.Context, paths []string) error {
	args := m.Called(ctx, paths)
	return args.Error(0)
}

func (m *mockStorage) Upload(ctx context.Context, key string, data io.Reader) (string, error) {
	args := m.Called(ctx, key, data)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// failingAudioRepo wraps the memory repository with an injectable save error.
type failingAudioRepo struct {
	*voice.MemoryAudioRepository
	saveErr error
}

func (r *failingAudioRepo) Save(ctx context.Context, af *voice.AudioFile) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	return r.MemoryAudioRepository.Save(ctx, af)
}

// mockProber implements audio.Prober for testing.
type mockProber struct {
	mock.Mock
}

func (m *mockProber) Probe(ctx context.Context, path string) (float64, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(float64), args.Error(1)
}

// mockResolver implements resolver.Resolver for testing.
type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, videoURL string) (resolver.Metadata, error) {
	args := m.Called(ctx, videoURL)
	return args.Get(0).(resolver.Metadata), args.Error(1)
}

func TestIngestUpload(t *testing.T) {
	ctx := context.Background()
	data := []byte("fake mp3 bytes")

	t.Run("persists a record with probed duration and waveform", func(t *testing.T) {
		repo := voice.NewMemoryAudioRepository()
		store := new(mockStorage)
		prober := new(mockProber)

		store.On("SaveTemp", mock.Anything, "song.mp3", mock.Anything).Return("/tmp/song.mp3", nil)
		store.On("CleanupTemp", mock.Anything, []string{"/tmp/song.mp3"}).Return(nil)
		prober.On("Probe", mock.Anything, "/tmp/song.mp3").Return(42.3, nil)
		store.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "audio/") && strings.HasSuffix(key, ".mp3")
		}), mock.Anything).Return("http://localhost:8080/files/audio/x.mp3", nil)

		svc := NewService(repo, store, prober, nil, nil)
		af, err := svc.IngestUpload(ctx, "song.mp3", data)
		require.NoError(t, err)

		assert.NotEmpty(t, af.ID)
		assert.Equal(t, "song.mp3", af.Name)
		assert.Equal(t, 43, af.Duration) // probe result rounded up
		assert.Len(t, af.Waveform, 43)
		assert.Equal(t, "http://localhost:8080/files/audio/x.mp3", af.URL)
		assert.NotEmpty(t, af.ObjectKey)

		persisted, err := repo.FindByID(ctx, af.ID)
		require.NoError(t, err)
		assert.Equal(t, af.URL, persisted.URL)
		store.AssertExpectations(t)
	})

	t.Run("empty upload is rejected", func(t *testing.T) {
		svc := NewService(voice.NewMemoryAudioRepository(), new(mockStorage), new(mockProber), nil, nil)
		_, err := svc.IngestUpload(ctx, "song.mp3", nil)
		assert.ErrorIs(t, err, voice.ErrInvalidSource)
	})

	t.Run("undecodable audio is rejected without persisting", func(t *testing.T) {
		repo := voice.NewMemoryAudioRepository()
		store := new(mockStorage)
		prober := new(mockProber)

		store.On("SaveTemp", mock.Anything, mock.Anything, mock.Anything).Return("/tmp/bad.mp3", nil)
		store.On("CleanupTemp", mock.Anything, mock.Anything).Return(nil)
		prober.On("Probe", mock.Anything, "/tmp/bad.mp3").Return(0.0, errors.New("invalid data found"))

		svc := NewService(repo, store, prober, nil, nil)
		_, err := svc.IngestUpload(ctx, "bad.mp3", data)
		assert.ErrorIs(t, err, voice.ErrDecode)

		files, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, files)
		store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duration is capped at the configured maximum", func(t *testing.T) {
		repo := voice.NewMemoryAudioRepository()
		store := new(mockStorage)
		prober := new(mockProber)

		store.On("SaveTemp", mock.Anything, mock.Anything, mock.Anything).Return("/tmp/long.mp3", nil)
		store.On("CleanupTemp", mock.Anything, mock.Anything).Return(nil)
		prober.On("Probe", mock.Anything, "/tmp/long.mp3").Return(3600.0, nil)
		store.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("http://x/files/a.mp3", nil)

		svc := NewService(repo, store, prober, nil, nil, WithMaxDuration(120))
		af, err := svc.IngestUpload(ctx, "long.mp3", data)
		require.NoError(t, err)
		assert.Equal(t, 120, af.Duration)
	})

	t.Run("storage upload failure surfaces as ErrStorage", func(t *testing.T) {
		repo := voice.NewMemoryAudioRepository()
		store := new(mockStorage)
		prober := new(mockProber)

		store.On("SaveTemp", mock.Anything, mock.Anything, mock.Anything).Return("/tmp/a.mp3", nil)
		store.On("CleanupTemp", mock.Anything, mock.Anything).Return(nil)
		prober.On("Probe", mock.Anything, mock.Anything).Return(10.0, nil)
		store.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("bucket gone"))

		svc := NewService(repo, store, prober, nil, nil)
		_, err := svc.IngestUpload(ctx, "a.mp3", data)
		assert.ErrorIs(t, err, voice.ErrStorage)

		files, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("record save failure removes the uploaded object", func(t *testing.T) {
		repo := &failingAudioRepo{
			MemoryAudioRepository: voice.NewMemoryAudioRepository(),
			saveErr:               errors.New("db down"),
		}
		store := new(mockStorage)
		prober := new(mockProber)

		store.On("SaveTemp", mock.Anything, mock.Anything, mock.Anything).Return("/tmp/a.mp3", nil)
		store.On("CleanupTemp", mock.Anything, mock.Anything).Return(nil)
		prober.On("Probe", mock.Anything, mock.Anything).Return(10.0, nil)
		store.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("http://x/files/a.mp3", nil)
		store.On("Delete", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "audio/")
		})).Return(nil)

		svc := NewService(repo, store, prober, nil, nil)
		_, err := svc.IngestUpload(ctx, "a.mp3", data)
		assert.ErrorIs(t, err, voice.ErrStorage)

		store.AssertExpectations(t)
	})

	t.Run("object key keeps a recognized extension", func(t *testing.T) {
		assert.Equal(t, ".wav", ext("voice memo.WAV"))
		assert.Equal(t, ".flac", ext("track.flac"))
		assert.Equal(t, ".mp3", ext("no-extension"))
		assert.Equal(t, ".mp3", ext("archive.tar.gz"))
	})
}

func TestIngestYouTube(t *testing.T) {
	ctx := context.Background()

	t.Run("persists a record from resolved metadata", func(t *testing.T) {
		repo := voice.NewMemoryAudioRepository()
		res := new(mockResolver)
		res.On("Resolve", mock.Anything, "https://www.youtube.com/watch?v=abc123xyz00").
			Return(resolver.Metadata{VideoID: "abc123xyz00", Title: "Interview", Duration: 90}, nil)

		svc := NewService(repo, new(mockStorage), new(mockProber), res, nil)
		af, err := svc.IngestYouTube(ctx, "https://www.youtube.com/watch?v=abc123xyz00")
		require.NoError(t, err)

		assert.Equal(t, "Interview", af.Name)
		assert.Equal(t, 90, af.Duration)
		assert.Equal(t, resolver.WatchURL("abc123xyz00"), af.URL)
		assert.Empty(t, af.ObjectKey) // no bytes stored for URL sources
		assert.Len(t, af.Waveform, 90)
	})

	t.Run("invalid URL surfaces as ErrInvalidSource", func(t *testing.T) {
		res := new(mockResolver)
		res.On("Resolve", mock.Anything, mock.Anything).
			Return(resolver.Metadata{}, resolver.ErrInvalidURL)

		svc := NewService(voice.NewMemoryAudioRepository(), new(mockStorage), new(mockProber), res, nil)
		_, err := svc.IngestYouTube(ctx, "https://example.com/watch?v=abc")
		assert.ErrorIs(t, err, voice.ErrInvalidSource)
	})

	t.Run("resolver outage surfaces as ErrResolve", func(t *testing.T) {
		res := new(mockResolver)
		res.On("Resolve", mock.Anything, mock.Anything).
			Return(resolver.Metadata{}, resolver.ErrServerError)

		svc := NewService(voice.NewMemoryAudioRepository(), new(mockStorage), new(mockProber), res, nil)
		_, err := svc.IngestYouTube(ctx, "https://www.youtube.com/watch?v=abc123xyz00")
		assert.ErrorIs(t, err, voice.ErrResolve)
	})

	t.Run("missing duration falls back to the cap", func(t *testing.T) {
		res := new(mockResolver)
		res.On("Resolve", mock.Anything, mock.Anything).
			Return(resolver.Metadata{VideoID: "abc123xyz00", Title: "Live"}, nil)

		svc := NewService(voice.NewMemoryAudioRepository(), new(mockStorage), new(mockProber), res, nil)
		af, err := svc.IngestYouTube(ctx, "https://youtu.be/abc123xyz00")
		require.NoError(t, err)
		assert.Equal(t, DefaultMaxDurationSec, af.Duration)
	})
}
