// Package bootstrap provides dependency initialization for the voice mixing API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maauso/voicemix-api/internal/analyze"
	"github.com/maauso/voicemix-api/internal/audio"
	"github.com/maauso/voicemix-api/internal/config"
	"github.com/maauso/voicemix-api/internal/ingest"
	"github.com/maauso/voicemix-api/internal/mixer"
	"github.com/maauso/voicemix-api/internal/resolver"
	"github.com/maauso/voicemix-api/internal/server"
	"github.com/maauso/voicemix-api/internal/storage"
	"github.com/maauso/voicemix-api/internal/tts"
	"github.com/maauso/voicemix-api/internal/voice"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Handlers *server.Handlers
	// FilesDir is the local objects directory to serve under /files/,
	// empty for S3-backed storage.
	FilesDir string
	// Close releases held resources (database pool).
	Close func()
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, filesDir, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	audioRepo, voiceRepo, mixRepo, closeRepos, err := initRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	ffmpeg := audio.NewFFmpeg(cfg.FFmpegPath)
	ytResolver := resolver.NewClient()

	var synthesizer tts.Synthesizer
	if cfg.ElevenLabsAPIKey != "" {
		client, err := tts.NewClient(tts.WithAPIKey(cfg.ElevenLabsAPIKey))
		if err != nil {
			closeRepos()
			return nil, fmt.Errorf("create TTS client: %w", err)
		}
		synthesizer = client
		logger.Info("speech synthesis enabled")
	} else {
		logger.Info("speech synthesis disabled, no API key configured")
	}

	ingestSvc := ingest.NewService(
		audioRepo,
		store,
		ffmpeg,
		ytResolver,
		logger,
		ingest.WithMaxDuration(cfg.MaxAudioDurationSec),
	)

	analyzer := analyze.NewSilenceAnalyzer(ffmpeg, ffmpeg, store, logger)
	analyzeSvc := analyze.NewService(audioRepo, voiceRepo, store, analyzer, logger)

	voiceStore := voice.NewStore(audioRepo, voiceRepo, logger)

	mixSvc := mixer.NewService(audioRepo, voiceRepo, mixRepo, store, ffmpeg, synthesizer, logger)

	return &Dependencies{
		Handlers: server.NewHandlers(ingestSvc, analyzeSvc, voiceStore, mixSvc, logger),
		FilesDir: filesDir,
		Close:    closeRepos,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
// The second return value is the local objects directory, empty for S3.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, string, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.DataDir, s3Cfg)
		if err != nil {
			return nil, "", fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, "", nil
	}

	localStore, err := storage.NewLocalStorage(cfg.DataDir, cfg.PublicBaseURL())
	if err != nil {
		return nil, "", fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("data_dir", cfg.DataDir),
	)
	return localStore, localStore.ObjectsDir(), nil
}

// initRepositories wires Postgres repositories when a connection string is
// configured, in-memory repositories otherwise.
func initRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (
	voice.AudioRepository, voice.VoiceRepository, voice.MixRepository, func(), error,
) {
	if !cfg.PostgresEnabled() {
		logger.Info("in-memory repositories configured")
		return voice.NewMemoryAudioRepository(),
			voice.NewMemoryVoiceRepository(),
			voice.NewMemoryMixRepository(),
			func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("create database pool: %w", err)
	}

	pg := voice.NewPostgresStore(pool)
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("run database migration: %w", err)
	}

	logger.Info("postgres repositories configured")
	return pg.AudioFiles, pg.Voices, pg.Mixes, pool.Close, nil
}
