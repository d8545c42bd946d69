package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
	// FilesDir is the local objects directory served under /files/.
	// Empty disables local file serving (S3-backed deployments).
	FilesDir string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	// Register routes with method-based patterns (Go 1.22+)
	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /audio", h.UploadAudio)
	mux.HandleFunc("POST /audio/youtube", h.IngestYouTube)
	mux.HandleFunc("GET /audio/{id}", h.GetAudio)

	mux.HandleFunc("POST /audio/{id}/analyze", h.AnalyzeAudio)
	mux.HandleFunc("POST /audio/{id}/reanalyze", h.ReanalyzeAudio)
	mux.HandleFunc("GET /audio/{id}/voices", h.ListVoices)
	mux.HandleFunc("DELETE /audio/{id}/voices", h.DeleteVoices)

	mux.HandleFunc("PUT /voices/{id}", h.UpdateVoice)
	mux.HandleFunc("DELETE /voices/{id}", h.DeleteVoice)

	mux.HandleFunc("POST /audio/{id}/mix", h.MixAudio)
	mux.HandleFunc("GET /audio/{id}/mixes", h.ListMixes)

	if cfg.FilesDir != "" {
		mux.Handle("GET /files/", http.StripPrefix("/files/",
			http.FileServer(http.Dir(cfg.FilesDir))))
	}

	return wrap(mux,
		recoverPanics(logger),
		requestLog(logger),
		allowCORS(cfg.AllowedOrigins),
	)
}
