package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the voicemix tables. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS audio_files (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    url        TEXT NOT NULL DEFAULT '',
    object_key TEXT NOT NULL DEFAULT '',
    duration   INTEGER NOT NULL DEFAULT 0,
    waveform   JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS voices (
    id              TEXT PRIMARY KEY,
    audio_id        TEXT NOT NULL REFERENCES audio_files(id) ON DELETE CASCADE,
    start_time      DOUBLE PRECISION NOT NULL,
    end_time        DOUBLE PRECISION NOT NULL,
    tag             TEXT NOT NULL DEFAULT '',
    color           TEXT NOT NULL DEFAULT '',
    volume          DOUBLE PRECISION NOT NULL DEFAULT 1.0,
    characteristics JSONB NOT NULL DEFAULT '{}',
    audio_url       TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_voices_audio ON voices(audio_id);
CREATE TABLE IF NOT EXISTS mixed_outputs (
    id             TEXT PRIMARY KEY,
    audio_id       TEXT NOT NULL REFERENCES audio_files(id) ON DELETE CASCADE,
    voice_ids      JSONB NOT NULL DEFAULT '[]',
    narration_text TEXT,
    output_url     TEXT NOT NULL DEFAULT '',
    object_key     TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_mixed_outputs_audio ON mixed_outputs(audio_id);
`

// DB is the database interface used by the Postgres repositories. Both
// *pgxpool.Pool and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore bundles the Postgres-backed repositories over one connection
// or pool. Structured sub-fields (waveform, characteristics, voice id lists)
// are serialised as JSONB.
type PostgresStore struct {
	db DB

	// AudioFiles implements AudioRepository.
	AudioFiles *PostgresAudioRepository
	// Voices implements VoiceRepository.
	Voices *PostgresVoiceRepository
	// Mixes implements MixRepository.
	Mixes *PostgresMixRepository
}

// Compile-time interface checks.
var (
	_ AudioRepository = (*PostgresAudioRepository)(nil)
	_ VoiceRepository = (*PostgresVoiceRepository)(nil)
	_ MixRepository   = (*PostgresMixRepository)(nil)
)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{
		db:         db,
		AudioFiles: &PostgresAudioRepository{db: db},
		Voices:     &PostgresVoiceRepository{db: db},
		Mixes:      &PostgresMixRepository{db: db},
	}
}

// Migrate executes the [Schema] DDL against the database, creating the
// voicemix tables and indexes if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("voice: migrate: %w", err)
	}
	return nil
}

// PostgresAudioRepository is an AudioRepository backed by PostgreSQL.
type PostgresAudioRepository struct {
	db DB
}

const audioColumns = `id, name, url, object_key, duration, waveform, created_at, updated_at`

// Save upserts an audio file record and back-fills its timestamps.
func (r *PostgresAudioRepository) Save(ctx context.Context, audio *AudioFile) error {
	wfJSON, err := json.Marshal(emptyWaveform(audio.Waveform))
	if err != nil {
		return fmt.Errorf("voice: marshal waveform: %w", err)
	}

	const query = `
		INSERT INTO audio_files (id, name, url, object_key, duration, waveform)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			url = EXCLUDED.url,
			object_key = EXCLUDED.object_key,
			duration = EXCLUDED.duration,
			waveform = EXCLUDED.waveform,
			updated_at = now()
		RETURNING created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		audio.ID, audio.Name, audio.URL, audio.ObjectKey, audio.Duration, wfJSON,
	).Scan(&audio.CreatedAt, &audio.UpdatedAt)
	if err != nil {
		return fmt.Errorf("voice: save audio %q: %w", audio.ID, err)
	}
	return nil
}

// FindByID retrieves an audio file by ID.
func (r *PostgresAudioRepository) FindByID(ctx context.Context, id string) (*AudioFile, error) {
	query := `SELECT ` + audioColumns + ` FROM audio_files WHERE id = $1`
	audio, err := scanAudio(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAudioNotFound
		}
		return nil, fmt.Errorf("voice: find audio %q: %w", id, err)
	}
	return audio, nil
}

// List returns all audio files, newest first.
func (r *PostgresAudioRepository) List(ctx context.Context) ([]*AudioFile, error) {
	query := `SELECT ` + audioColumns + ` FROM audio_files ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("voice: list audio: %w", err)
	}
	defer rows.Close()

	result := make([]*AudioFile, 0)
	for rows.Next() {
		audio, err := scanAudio(rows)
		if err != nil {
			return nil, fmt.Errorf("voice: list audio: %w", err)
		}
		result = append(result, audio)
	}
	return result, rows.Err()
}

// Delete removes an audio file. Voices and mixes cascade.
func (r *PostgresAudioRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM audio_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("voice: delete audio %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAudioNotFound
	}
	return nil
}

// PostgresVoiceRepository is a VoiceRepository backed by PostgreSQL.
type PostgresVoiceRepository struct {
	db DB
}

const voiceColumns = `id, audio_id, start_time, end_time, tag, color, volume, characteristics, audio_url, created_at, updated_at`

// Save upserts a voice record. The time range and color are fixed at
// creation; only tag, volume, characteristics and audio_url are updated.
func (r *PostgresVoiceRepository) Save(ctx context.Context, v *Voice) error {
	chJSON, err := json.Marshal(v.Characteristics)
	if err != nil {
		return fmt.Errorf("voice: marshal characteristics: %w", err)
	}

	const query = `
		INSERT INTO voices (id, audio_id, start_time, end_time, tag, color, volume, characteristics, audio_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			tag = EXCLUDED.tag,
			volume = EXCLUDED.volume,
			characteristics = EXCLUDED.characteristics,
			audio_url = EXCLUDED.audio_url,
			updated_at = now()
		RETURNING created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		v.ID, v.AudioID, v.StartTime, v.EndTime, v.Tag, v.Color, v.Volume, chJSON, v.AudioURL,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("voice: save voice %q: %w", v.ID, err)
	}
	return nil
}

// FindByID retrieves a voice by ID.
func (r *PostgresVoiceRepository) FindByID(ctx context.Context, id string) (*Voice, error) {
	query := `SELECT ` + voiceColumns + ` FROM voices WHERE id = $1`
	v, err := scanVoice(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVoiceNotFound
		}
		return nil, fmt.Errorf("voice: find voice %q: %w", id, err)
	}
	return v, nil
}

// ListByAudioID returns the voices of one audio file ordered by start time.
func (r *PostgresVoiceRepository) ListByAudioID(ctx context.Context, audioID string) ([]*Voice, error) {
	query := `SELECT ` + voiceColumns + ` FROM voices WHERE audio_id = $1 ORDER BY start_time, id`
	rows, err := r.db.Query(ctx, query, audioID)
	if err != nil {
		return nil, fmt.Errorf("voice: list voices for %q: %w", audioID, err)
	}
	defer rows.Close()

	result := make([]*Voice, 0)
	for rows.Next() {
		v, err := scanVoice(rows)
		if err != nil {
			return nil, fmt.Errorf("voice: list voices for %q: %w", audioID, err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

// Delete removes one voice.
func (r *PostgresVoiceRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM voices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("voice: delete voice %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVoiceNotFound
	}
	return nil
}

// DeleteByAudioID removes every voice of one audio file.
func (r *PostgresVoiceRepository) DeleteByAudioID(ctx context.Context, audioID string) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM voices WHERE audio_id = $1`, audioID)
	if err != nil {
		return 0, fmt.Errorf("voice: delete voices for %q: %w", audioID, err)
	}
	return int(tag.RowsAffected()), nil
}

// PostgresMixRepository is a MixRepository backed by PostgreSQL.
type PostgresMixRepository struct {
	db DB
}

// Save inserts a mix audit record.
func (r *PostgresMixRepository) Save(ctx context.Context, m *MixResult) error {
	idsJSON, err := json.Marshal(emptyIDs(m.VoiceIDs))
	if err != nil {
		return fmt.Errorf("voice: marshal voice ids: %w", err)
	}

	const query = `
		INSERT INTO mixed_outputs (id, audio_id, voice_ids, narration_text, output_url, object_key)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`

	err = r.db.QueryRow(ctx, query,
		m.ID, m.AudioID, idsJSON, m.NarrationText, m.OutputURL, m.ObjectKey,
	).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("voice: save mix %q: %w", m.ID, err)
	}
	return nil
}

// ListByAudioID returns mix results for one audio file, newest first.
func (r *PostgresMixRepository) ListByAudioID(ctx context.Context, audioID string) ([]*MixResult, error) {
	const query = `
		SELECT id, audio_id, voice_ids, narration_text, output_url, object_key, created_at
		FROM mixed_outputs WHERE audio_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, audioID)
	if err != nil {
		return nil, fmt.Errorf("voice: list mixes for %q: %w", audioID, err)
	}
	defer rows.Close()

	result := make([]*MixResult, 0)
	for rows.Next() {
		var m MixResult
		var idsJSON []byte
		if err := rows.Scan(&m.ID, &m.AudioID, &idsJSON, &m.NarrationText, &m.OutputURL, &m.ObjectKey, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("voice: list mixes for %q: %w", audioID, err)
		}
		if err := json.Unmarshal(idsJSON, &m.VoiceIDs); err != nil {
			return nil, fmt.Errorf("voice: unmarshal voice ids: %w", err)
		}
		result = append(result, &m)
	}
	return result, rows.Err()
}

// scanAudio scans one audio_files row.
func scanAudio(row pgx.Row) (*AudioFile, error) {
	var audio AudioFile
	var wfJSON []byte
	err := row.Scan(
		&audio.ID, &audio.Name, &audio.URL, &audio.ObjectKey,
		&audio.Duration, &wfJSON, &audio.CreatedAt, &audio.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(wfJSON, &audio.Waveform); err != nil {
		return nil, fmt.Errorf("unmarshal waveform: %w", err)
	}
	return &audio, nil
}

// scanVoice scans one voices row.
func scanVoice(row pgx.Row) (*Voice, error) {
	var v Voice
	var chJSON []byte
	err := row.Scan(
		&v.ID, &v.AudioID, &v.StartTime, &v.EndTime, &v.Tag, &v.Color,
		&v.Volume, &chJSON, &v.AudioURL, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(chJSON, &v.Characteristics); err != nil {
		return nil, fmt.Errorf("unmarshal characteristics: %w", err)
	}
	return &v, nil
}

func emptyWaveform(wf []float64) []float64 {
	if wf == nil {
		return []float64{}
	}
	return wf
}

func emptyIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
