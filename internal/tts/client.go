// Package tts provides a speech-synthesis client backed by the ElevenLabs
// HTTP API. Voice characteristics select a preset voice: pitch above 0.7
// maps to the high preset, above 0.4 to medium, otherwise low.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Static errors for synthesis operations.
var (
	// ErrAPIKeyNotSet is returned when no API key is configured.
	ErrAPIKeyNotSet = errors.New("tts: ELEVENLABS_API_KEY is not set")
	// ErrEmptyText is returned when the text to synthesize is empty.
	ErrEmptyText = errors.New("tts: text is empty")
	// ErrServerError is returned when the API returns a 5xx status code.
	ErrServerError = errors.New("tts: server error")
	// ErrRateLimited is returned when the API returns a 429 status code.
	ErrRateLimited = errors.New("tts: rate limited")
	// ErrRequestFailed is returned for other non-2xx responses.
	ErrRequestFailed = errors.New("tts: request failed")
)

// Voice preset IDs for the ElevenLabs API.
const (
	presetHigh    = "9BWtsMINqrJLrRacOk9x" // Aria
	presetMedium  = "TxGEqnHWrfWFTfGW9XjX" // Josh
	presetLow     = "VR6AewLTigWG4xSOukaG" // Arnold
	presetDefault = "pNInz6obpgDQGcFmaJgB" // Adam

	defaultModel = "eleven_multilingual_v2"
)

// Params selects the synthesis voice and pacing from a voice segment's
// characteristics. Zero value means the default preset at normal speed.
type Params struct {
	// Pitch in [0,1] picks the voice preset.
	Pitch float64
	// Speed in [0,1] maps linearly onto the API speed range [0.8, 1.2].
	Speed float64
}

// DefaultParams returns the parameters used when no voice is designated.
func DefaultParams() Params {
	return Params{Pitch: 0.5, Speed: 0.5}
}

// PresetFor maps a pitch value to a voice preset ID.
func PresetFor(pitch float64) string {
	switch {
	case pitch > 0.7:
		return presetHigh
	case pitch > 0.4:
		return presetMedium
	case pitch >= 0:
		return presetLow
	default:
		return presetDefault
	}
}

// Synthesizer defines the interface for speech synthesis.
type Synthesizer interface {
	// Synthesize converts text to MP3 audio bytes.
	Synthesize(ctx context.Context, text string, params Params) ([]byte, error)
}

// Client is the HTTP implementation of Synthesizer.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

// Compile-time check that Client implements Synthesizer.
var _ Synthesizer = (*Client)(nil)

// Option is a function that configures a Client.
type Option func(*Client)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithModel sets the synthesis model.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.baseBackoff = d
	}
}

// NewClient creates a new ElevenLabs TTS client.
// The API key can be set via the WithAPIKey option. If not provided, it is
// read from the environment variable ELEVENLABS_API_KEY.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:     "https://api.elevenlabs.io",
		model:       defaultModel,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		maxRetries:  2,
		baseBackoff: 1 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("ELEVENLABS_API_KEY")
	}

	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return c, nil
}

// speakRequest is the JSON body of a synthesis request.
type speakRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed"`
}

// Synthesize converts text to MP3 audio bytes using the preset selected by
// params.Pitch.
func (c *Client) Synthesize(ctx context.Context, text string, params Params) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	reqBody := speakRequest{
		Text:    text,
		ModelID: c.model,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Speed:           speedFor(params.Speed),
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("tts: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, PresetFor(params.Pitch))

	audio, err := c.doRequestWithRetry(ctx, url, bodyBytes)
	if err != nil {
		return nil, err
	}
	return audio, nil
}

// speedFor maps a normalized speed onto the API range [0.8, 1.2].
func speedFor(speed float64) float64 {
	if speed < 0 {
		speed = 0
	}
	if speed > 1 {
		speed = 1
	}
	return 0.8 + 0.4*speed
}

// doRequestWithRetry performs the request with exponential backoff retry.
func (c *Client) doRequestWithRetry(ctx context.Context, url string, body []byte) ([]byte, error) {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("tts: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		audio, err := c.doRequest(ctx, url, body)
		if err == nil {
			return audio, nil
		}

		if !isRetryable(err) {
			return nil, err
		}

		lastErr = err
	}

	return nil, fmt.Errorf("tts: max retries exceeded: %w", lastErr)
}

// doRequest performs a single synthesis request and returns the audio bytes.
func (c *Client) doRequest(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tts: create request: %w", err)
	}

	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("tts: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("tts: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 500 {
			return nil, &retryableError{err: fmt.Errorf("%w %d: %s", ErrServerError, resp.StatusCode, string(respBody))}
		}
		if resp.StatusCode == 429 {
			return nil, &retryableError{err: fmt.Errorf("%w: %s", ErrRateLimited, string(respBody))}
		}
		return nil, fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryable returns true if the error should be retried.
func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
