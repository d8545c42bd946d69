package voice

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Compile-time checks that the memory repositories implement their ports.
var (
	_ AudioRepository = (*MemoryAudioRepository)(nil)
	_ VoiceRepository = (*MemoryVoiceRepository)(nil)
	_ MixRepository   = (*MemoryMixRepository)(nil)
)

// MemoryAudioRepository is an in-memory implementation of AudioRepository.
// It uses a map with RWMutex for thread-safe access.
// Suitable for development and testing; swap for Postgres in production.
type MemoryAudioRepository struct {
	mu    sync.RWMutex
	files map[string]*AudioFile
}

// NewMemoryAudioRepository creates a new in-memory audio repository.
func NewMemoryAudioRepository() *MemoryAudioRepository {
	return &MemoryAudioRepository{files: make(map[string]*AudioFile)}
}

// Save persists an audio file. Stores a clone to avoid external mutations.
// Timestamps are back-filled the way the database does: CreatedAt on first
// insert, UpdatedAt on every write.
func (r *MemoryAudioRepository) Save(_ context.Context, audio *AudioFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.files[audio.ID]; ok {
		audio.CreatedAt = existing.CreatedAt
	} else if audio.CreatedAt.IsZero() {
		audio.CreatedAt = now
	}
	audio.UpdatedAt = now
	r.files[audio.ID] = audio.Clone()
	return nil
}

// FindByID retrieves an audio file by ID. Returns a clone.
func (r *MemoryAudioRepository) FindByID(_ context.Context, id string) (*AudioFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	audio, ok := r.files[id]
	if !ok {
		return nil, ErrAudioNotFound
	}
	return audio.Clone(), nil
}

// List returns all audio files, newest first.
func (r *MemoryAudioRepository) List(_ context.Context) ([]*AudioFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*AudioFile, 0, len(r.files))
	for _, audio := range r.files {
		result = append(result, audio.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Delete removes an audio file.
func (r *MemoryAudioRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[id]; !ok {
		return ErrAudioNotFound
	}
	delete(r.files, id)
	return nil
}

// MemoryVoiceRepository is an in-memory implementation of VoiceRepository.
type MemoryVoiceRepository struct {
	mu     sync.RWMutex
	voices map[string]*Voice
}

// NewMemoryVoiceRepository creates a new in-memory voice repository.
func NewMemoryVoiceRepository() *MemoryVoiceRepository {
	return &MemoryVoiceRepository{voices: make(map[string]*Voice)}
}

// Save persists a voice. Stores a clone to avoid external mutations.
func (r *MemoryVoiceRepository) Save(_ context.Context, v *Voice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := r.voices[v.ID]; ok {
		v.CreatedAt = existing.CreatedAt
	} else if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	r.voices[v.ID] = v.Clone()
	return nil
}

// FindByID retrieves a voice by ID. Returns a clone.
func (r *MemoryVoiceRepository) FindByID(_ context.Context, id string) (*Voice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.voices[id]
	if !ok {
		return nil, ErrVoiceNotFound
	}
	return v.Clone(), nil
}

// ListByAudioID returns the voices of one audio file ordered by start time.
func (r *MemoryVoiceRepository) ListByAudioID(_ context.Context, audioID string) ([]*Voice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Voice, 0)
	for _, v := range r.voices {
		if v.AudioID == audioID {
			result = append(result, v.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartTime != result[j].StartTime {
			return result[i].StartTime < result[j].StartTime
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Delete removes one voice.
func (r *MemoryVoiceRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.voices[id]; !ok {
		return ErrVoiceNotFound
	}
	delete(r.voices, id)
	return nil
}

// DeleteByAudioID removes every voice of one audio file.
func (r *MemoryVoiceRepository) DeleteByAudioID(_ context.Context, audioID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for id, v := range r.voices {
		if v.AudioID == audioID {
			delete(r.voices, id)
			count++
		}
	}
	return count, nil
}

// MemoryMixRepository is an in-memory implementation of MixRepository.
type MemoryMixRepository struct {
	mu    sync.RWMutex
	mixes map[string]*MixResult
}

// NewMemoryMixRepository creates a new in-memory mix repository.
func NewMemoryMixRepository() *MemoryMixRepository {
	return &MemoryMixRepository{mixes: make(map[string]*MixResult)}
}

// Save persists a mix result. Stores a clone to avoid external mutations.
func (r *MemoryMixRepository) Save(_ context.Context, m *MixResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	r.mixes[m.ID] = m.Clone()
	return nil
}

// ListByAudioID returns mix results for one audio file, newest first.
func (r *MemoryMixRepository) ListByAudioID(_ context.Context, audioID string) ([]*MixResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*MixResult, 0)
	for _, m := range r.mixes {
		if m.AudioID == audioID {
			result = append(result, m.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
