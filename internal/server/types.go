// Package server provides the HTTP server for the voice mixing API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/maauso/voicemix-api/internal/voice"
)

// UploadAudioRequest is the HTTP request body for uploading an audio file.
type UploadAudioRequest struct {
	// Name is the original filename of the upload.
	Name string `json:"name" validate:"required,max=255"`
	// AudioBase64 is the base64-encoded audio content.
	AudioBase64 string `json:"audio_base64" validate:"required,base64"`
}

// YouTubeRequest is the HTTP request body for ingesting a YouTube URL.
type YouTubeRequest struct {
	// URL is the YouTube video URL.
	URL string `json:"url" validate:"required,url"`
}

// CharacteristicsDTO carries the four voice characteristic sliders.
type CharacteristicsDTO struct {
	Pitch   float64 `json:"pitch" validate:"min=0,max=1"`
	Tone    float64 `json:"tone" validate:"min=0,max=1"`
	Speed   float64 `json:"speed" validate:"min=0,max=1"`
	Clarity float64 `json:"clarity" validate:"min=0,max=1"`
}

// UpdateVoiceRequest is the HTTP request body for updating a voice segment.
// Omitted fields keep their current value.
type UpdateVoiceRequest struct {
	Tag             *string             `json:"tag" validate:"omitempty,max=100"`
	Volume          *float64            `json:"volume" validate:"omitempty,min=0,max=1"`
	Characteristics *CharacteristicsDTO `json:"characteristics"`
}

// MixRequest is the HTTP request body for rendering a mix.
type MixRequest struct {
	// ActiveVoices maps voice IDs to whether they are included in the mix.
	ActiveVoices map[string]bool `json:"active_voices"`
	// Narration is optional text synthesized and layered on top.
	Narration string `json:"narration" validate:"max=5000"`
	// MasterVolume scales every track; defaults to 1.0.
	MasterVolume *float64 `json:"master_volume" validate:"omitempty,min=0,max=1"`
}

// AudioResponse is the HTTP representation of an audio file.
type AudioResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Duration  int       `json:"duration"`
	Waveform  []float64 `json:"waveform"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VoiceResponse is the HTTP representation of a voice segment.
type VoiceResponse struct {
	ID              string             `json:"id"`
	AudioID         string             `json:"audio_id"`
	StartTime       float64            `json:"start_time"`
	EndTime         float64            `json:"end_time"`
	Tag             string             `json:"tag"`
	Color           string             `json:"color"`
	Volume          float64            `json:"volume"`
	Characteristics CharacteristicsDTO `json:"characteristics"`
	AudioURL        string             `json:"audio_url"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// DeleteVoicesResponse reports how many voices a bulk delete removed.
type DeleteVoicesResponse struct {
	Deleted int `json:"deleted"`
}

// MixResponse is the HTTP response after rendering a mix.
type MixResponse struct {
	ID            string    `json:"id"`
	AudioID       string    `json:"audio_id"`
	VoiceIDs      []string  `json:"voice_ids"`
	NarrationText *string   `json:"narration_text"`
	OutputURL     string    `json:"output_url"`
	// AudioBase64 is the base64-encoded mixed artifact.
	AudioBase64 string    `json:"audio_base64"`
	CreatedAt   time.Time `json:"created_at"`
}

// MixRecordResponse is one entry of an audio file's mix history.
type MixRecordResponse struct {
	ID            string    `json:"id"`
	AudioID       string    `json:"audio_id"`
	VoiceIDs      []string  `json:"voice_ids"`
	NarrationText *string   `json:"narration_text"`
	OutputURL     string    `json:"output_url"`
	CreatedAt     time.Time `json:"created_at"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

func toAudioResponse(af *voice.AudioFile) AudioResponse {
	return AudioResponse{
		ID:        af.ID,
		Name:      af.Name,
		URL:       af.URL,
		Duration:  af.Duration,
		Waveform:  af.Waveform,
		CreatedAt: af.CreatedAt,
		UpdatedAt: af.UpdatedAt,
	}
}

func toVoiceResponse(v *voice.Voice) VoiceResponse {
	return VoiceResponse{
		ID:        v.ID,
		AudioID:   v.AudioID,
		StartTime: v.StartTime,
		EndTime:   v.EndTime,
		Tag:       v.Tag,
		Color:     v.Color,
		Volume:    v.Volume,
		Characteristics: CharacteristicsDTO{
			Pitch:   v.Characteristics.Pitch,
			Tone:    v.Characteristics.Tone,
			Speed:   v.Characteristics.Speed,
			Clarity: v.Characteristics.Clarity,
		},
		AudioURL:  v.AudioURL,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

func toVoiceResponses(voices []*voice.Voice) []VoiceResponse {
	out := make([]VoiceResponse, 0, len(voices))
	for _, v := range voices {
		out = append(out, toVoiceResponse(v))
	}
	return out
}
