package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetFor(t *testing.T) {
	tests := []struct {
		name  string
		pitch float64
		want  string
	}{
		{"high pitch", 0.8, presetHigh},
		{"just above high threshold", 0.71, presetHigh},
		{"medium pitch", 0.5, presetMedium},
		{"boundary stays medium", 0.7, presetMedium},
		{"low pitch", 0.2, presetLow},
		{"zero pitch", 0.0, presetLow},
		{"boundary stays low", 0.4, presetLow},
		{"negative pitch uses default", -1, presetDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PresetFor(tt.pitch))
		})
	}
}

func TestNewClient(t *testing.T) {
	t.Run("explicit key wins", func(t *testing.T) {
		t.Setenv("ELEVENLABS_API_KEY", "env-key")
		c, err := NewClient(WithAPIKey("explicit-key"))
		require.NoError(t, err)
		assert.Equal(t, "explicit-key", c.apiKey)
	})

	t.Run("falls back to the environment", func(t *testing.T) {
		t.Setenv("ELEVENLABS_API_KEY", "env-key")
		c, err := NewClient()
		require.NoError(t, err)
		assert.Equal(t, "env-key", c.apiKey)
	})

	t.Run("missing key is an error", func(t *testing.T) {
		t.Setenv("ELEVENLABS_API_KEY", "")
		_, err := NewClient()
		assert.ErrorIs(t, err, ErrAPIKeyNotSet)
	})
}

func TestSynthesize(t *testing.T) {
	ctx := context.Background()

	newTestClient := func(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
		t.Helper()
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)

		base := []Option{
			WithAPIKey("test-key"),
			WithBaseURL(srv.URL),
			WithHTTPClient(srv.Client()),
			WithBaseBackoff(time.Millisecond),
		}
		c, err := NewClient(append(base, opts...)...)
		require.NoError(t, err)
		return c
	}

	t.Run("posts to the preset endpoint with the API key", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.True(t, strings.HasSuffix(r.URL.Path, presetHigh))
			assert.Equal(t, "test-key", r.Header.Get("xi-api-key"))

			var req speakRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "hello there", req.Text)
			assert.Equal(t, defaultModel, req.ModelID)

			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write([]byte("mp3 bytes"))
		})

		data, err := c.Synthesize(ctx, "hello there", Params{Pitch: 0.9, Speed: 0.5})
		require.NoError(t, err)
		assert.Equal(t, []byte("mp3 bytes"), data)
	})

	t.Run("maps speed onto the API range", func(t *testing.T) {
		var settings voiceSettings
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var req speakRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			settings = req.VoiceSettings
			_, _ = w.Write([]byte("ok"))
		})

		_, err := c.Synthesize(ctx, "pace test", Params{Pitch: 0.5, Speed: 1.0})
		require.NoError(t, err)
		assert.InDelta(t, 1.2, settings.Speed, 0.001)
	})

	t.Run("empty text is rejected locally", func(t *testing.T) {
		c, err := NewClient(WithAPIKey("test-key"))
		require.NoError(t, err)
		_, err = c.Synthesize(ctx, "", DefaultParams())
		assert.ErrorIs(t, err, ErrEmptyText)
	})

	t.Run("retries rate limits until success", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 2 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = w.Write([]byte("mp3 bytes"))
		}, WithMaxRetries(2))

		data, err := c.Synthesize(ctx, "retry me", DefaultParams())
		require.NoError(t, err)
		assert.Equal(t, []byte("mp3 bytes"), data)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("gives up on persistent server errors", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, WithMaxRetries(1))

		_, err := c.Synthesize(ctx, "doomed", DefaultParams())
		assert.ErrorIs(t, err, ErrServerError)
	})

	t.Run("does not retry auth failures", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}, WithMaxRetries(3))

		_, err := c.Synthesize(ctx, "who am i", DefaultParams())
		assert.ErrorIs(t, err, ErrRequestFailed)
		assert.Equal(t, int32(1), calls.Load())
	})
}
