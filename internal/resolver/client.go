// Package resolver provides remote video metadata resolution for URL-based
// audio ingestion. It resolves a title and an estimated duration for a
// YouTube video without downloading the media itself.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"
)

// MaxDurationSec is the fixed ceiling applied to every resolved duration,
// regardless of the actual source length.
const MaxDurationSec = 180

// Static errors for resolver operations.
var (
	// ErrInvalidURL is returned when the URL does not match the expected
	// YouTube pattern.
	ErrInvalidURL = errors.New("resolver: invalid YouTube URL")
	// ErrNoVideoID is returned when a video ID cannot be extracted.
	ErrNoVideoID = errors.New("resolver: could not extract video ID")
	// ErrServerError is returned when the metadata endpoint returns 5xx.
	ErrServerError = errors.New("resolver: server error")
	// ErrRateLimited is returned when the metadata endpoint returns 429.
	ErrRateLimited = errors.New("resolver: rate limited")
	// ErrRequestFailed is returned for other non-2xx responses.
	ErrRequestFailed = errors.New("resolver: request failed")
)

// youtubeRe validates the overall URL shape.
var youtubeRe = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.be)/.+$`)

// videoIDRes extract the video ID from the supported URL forms.
var videoIDRes = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{6,})`),
	regexp.MustCompile(`youtube\.com/(?:embed|shorts)/([A-Za-z0-9_-]{6,})`),
}

// Metadata is the resolved information about a remote video.
type Metadata struct {
	// VideoID is the extracted video identifier.
	VideoID string
	// Title is the video title, or a generated fallback.
	Title string
	// Duration is the estimated duration in seconds, capped at
	// MaxDurationSec.
	Duration int
}

// Resolver defines the interface for remote video metadata resolution.
type Resolver interface {
	// Resolve validates the URL and returns title and estimated duration.
	Resolve(ctx context.Context, videoURL string) (Metadata, error)
}

// Client is the HTTP implementation of Resolver backed by the YouTube
// oEmbed endpoint.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

// Compile-time check that Client implements Resolver.
var _ Resolver = (*Client)(nil)

// Option is a function that configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Client) {
		r.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the oEmbed endpoint.
func WithBaseURL(url string) Option {
	return func(r *Client) {
		r.baseURL = url
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) Option {
	return func(r *Client) {
		r.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) Option {
	return func(r *Client) {
		r.baseBackoff = d
	}
}

// NewClient creates a new metadata resolver client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:     "https://www.youtube.com/oembed",
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		maxRetries:  2,
		baseBackoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ValidateURL reports whether videoURL matches the expected pattern and
// returns the extracted video ID.
func ValidateURL(videoURL string) (string, error) {
	if !youtubeRe.MatchString(videoURL) {
		return "", ErrInvalidURL
	}
	for _, re := range videoIDRes {
		if m := re.FindStringSubmatch(videoURL); len(m) > 1 {
			return m[1], nil
		}
	}
	return "", ErrNoVideoID
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// oembedResponse is the subset of the oEmbed payload the resolver uses.
type oembedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// Resolve validates the URL and fetches title metadata. The duration is an
// estimate: oEmbed does not expose one, so the resolver reports the fixed
// ceiling, bounding downstream processing cost.
func (c *Client) Resolve(ctx context.Context, videoURL string) (Metadata, error) {
	videoID, err := ValidateURL(videoURL)
	if err != nil {
		return Metadata{}, err
	}

	meta := Metadata{
		VideoID:  videoID,
		Title:    fmt.Sprintf("YouTube Video %s", videoID),
		Duration: MaxDurationSec,
	}

	reqURL := fmt.Sprintf("%s?url=%s&format=json",
		c.baseURL, url.QueryEscape(WatchURL(videoID)))

	var resp oembedResponse
	if err := c.doRequestWithRetry(ctx, reqURL, &resp); err != nil {
		return Metadata{}, err
	}
	if resp.Title != "" {
		meta.Title = resp.Title
	}

	return meta, nil
}

// doRequestWithRetry performs a GET with exponential backoff retry.
func (c *Client) doRequestWithRetry(ctx context.Context, url string, result interface{}) error {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("resolver: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		err := c.doRequest(ctx, url, result)
		if err == nil {
			return nil
		}

		if !isRetryable(err) {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("resolver: max retries exceeded: %w", lastErr)
}

// doRequest performs a single GET request.
func (c *Client) doRequest(ctx context.Context, url string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("resolver: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &retryableError{err: fmt.Errorf("resolver: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &retryableError{err: fmt.Errorf("resolver: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 500 {
			return &retryableError{err: fmt.Errorf("%w %d: %s", ErrServerError, resp.StatusCode, string(respBody))}
		}
		if resp.StatusCode == 429 {
			return &retryableError{err: fmt.Errorf("%w: %s", ErrRateLimited, string(respBody))}
		}
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("resolver: unmarshal response: %w", err)
		}
	}

	return nil
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
