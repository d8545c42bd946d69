package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/voicemix-api/internal/analyze"
	"github.com/maauso/voicemix-api/internal/ingest"
	"github.com/maauso/voicemix-api/internal/mixer"
	"github.com/maauso/voicemix-api/internal/voice"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	ingestSvc  *ingest.Service
	analyzeSvc *analyze.Service
	voiceStore *voice.Store
	mixSvc     *mixer.Service
	validator  *validator.Validate
	logger     *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	ingestSvc *ingest.Service,
	analyzeSvc *analyze.Service,
	voiceStore *voice.Store,
	mixSvc *mixer.Service,
	logger *slog.Logger,
) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		ingestSvc:  ingestSvc,
		analyzeSvc: analyzeSvc,
		voiceStore: voiceStore,
		mixSvc:     mixSvc,
		validator:  validator.New(),
		logger:     logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// UploadAudio handles POST /audio requests.
func (h *Handlers) UploadAudio(w http.ResponseWriter, r *http.Request) {
	var req UploadAudioRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.AudioBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio_base64 is not valid base64", "VALIDATION_ERROR")
		return
	}

	af, err := h.ingestSvc.IngestUpload(r.Context(), req.Name, data)
	if err != nil {
		h.writeDomainError(w, err, "upload ingestion failed")
		return
	}

	h.logger.Info("audio uploaded",
		slog.String("audio_id", af.ID),
		slog.String("name", af.Name),
		slog.Int("duration", af.Duration),
	)
	writeJSON(w, http.StatusCreated, toAudioResponse(af))
}

// IngestYouTube handles POST /audio/youtube requests.
func (h *Handlers) IngestYouTube(w http.ResponseWriter, r *http.Request) {
	var req YouTubeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	af, err := h.ingestSvc.IngestYouTube(r.Context(), req.URL)
	if err != nil {
		h.writeDomainError(w, err, "youtube ingestion failed")
		return
	}

	h.logger.Info("youtube audio ingested",
		slog.String("audio_id", af.ID),
		slog.String("url", req.URL),
	)
	writeJSON(w, http.StatusCreated, toAudioResponse(af))
}

// GetAudio handles GET /audio/{id} requests.
func (h *Handlers) GetAudio(w http.ResponseWriter, r *http.Request) {
	af, err := h.ingestSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err, "audio lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, toAudioResponse(af))
}

// AnalyzeAudio handles POST /audio/{id}/analyze requests.
// Repeated calls return the existing segmentation.
func (h *Handlers) AnalyzeAudio(w http.ResponseWriter, r *http.Request) {
	voices, err := h.analyzeSvc.Segment(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err, "analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, toVoiceResponses(voices))
}

// ReanalyzeAudio handles POST /audio/{id}/reanalyze requests.
func (h *Handlers) ReanalyzeAudio(w http.ResponseWriter, r *http.Request) {
	voices, err := h.analyzeSvc.Reanalyze(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err, "reanalysis failed")
		return
	}
	writeJSON(w, http.StatusOK, toVoiceResponses(voices))
}

// ListVoices handles GET /audio/{id}/voices requests.
func (h *Handlers) ListVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := h.voiceStore.List(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err, "voice listing failed")
		return
	}
	writeJSON(w, http.StatusOK, toVoiceResponses(voices))
}

// UpdateVoice handles PUT /voices/{id} requests. Omitted fields keep their
// current value.
func (h *Handlers) UpdateVoice(w http.ResponseWriter, r *http.Request) {
	voiceID := r.PathValue("id")

	var req UpdateVoiceRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	current, err := h.voiceStore.Get(r.Context(), voiceID)
	if err != nil {
		h.writeDomainError(w, err, "voice lookup failed")
		return
	}

	tag := current.Tag
	if req.Tag != nil {
		tag = *req.Tag
	}
	volume := current.Volume
	if req.Volume != nil {
		volume = *req.Volume
	}
	ch := current.Characteristics
	if req.Characteristics != nil {
		ch = voice.Characteristics{
			Pitch:   req.Characteristics.Pitch,
			Tone:    req.Characteristics.Tone,
			Speed:   req.Characteristics.Speed,
			Clarity: req.Characteristics.Clarity,
		}
	}

	updated, err := h.voiceStore.Update(r.Context(), voiceID, tag, volume, ch)
	if err != nil {
		h.writeDomainError(w, err, "voice update failed")
		return
	}

	h.logger.Info("voice updated", slog.String("voice_id", voiceID))
	writeJSON(w, http.StatusOK, toVoiceResponse(updated))
}

// DeleteVoice handles DELETE /voices/{id} requests.
func (h *Handlers) DeleteVoice(w http.ResponseWriter, r *http.Request) {
	voiceID := r.PathValue("id")
	if err := h.voiceStore.Delete(r.Context(), voiceID); err != nil {
		h.writeDomainError(w, err, "voice deletion failed")
		return
	}
	h.logger.Info("voice deleted", slog.String("voice_id", voiceID))
	w.WriteHeader(http.StatusNoContent)
}

// DeleteVoices handles DELETE /audio/{id}/voices requests.
func (h *Handlers) DeleteVoices(w http.ResponseWriter, r *http.Request) {
	audioID := r.PathValue("id")
	deleted, err := h.voiceStore.DeleteAll(r.Context(), audioID)
	if err != nil {
		h.writeDomainError(w, err, "bulk voice deletion failed")
		return
	}
	h.logger.Info("voices deleted",
		slog.String("audio_id", audioID),
		slog.Int("deleted", deleted),
	)
	writeJSON(w, http.StatusOK, DeleteVoicesResponse{Deleted: deleted})
}

// MixAudio handles POST /audio/{id}/mix requests.
func (h *Handlers) MixAudio(w http.ResponseWriter, r *http.Request) {
	audioID := r.PathValue("id")

	var req MixRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	masterVolume := 1.0
	if req.MasterVolume != nil {
		masterVolume = *req.MasterVolume
	}

	result, blob, err := h.mixSvc.Mix(r.Context(), audioID, req.ActiveVoices, req.Narration, masterVolume)
	if err != nil {
		h.writeDomainError(w, err, "mix failed")
		return
	}

	writeJSON(w, http.StatusCreated, MixResponse{
		ID:            result.ID,
		AudioID:       result.AudioID,
		VoiceIDs:      result.VoiceIDs,
		NarrationText: result.NarrationText,
		OutputURL:     result.OutputURL,
		AudioBase64:   base64.StdEncoding.EncodeToString(blob),
		CreatedAt:     result.CreatedAt,
	})
}

// ListMixes handles GET /audio/{id}/mixes requests.
func (h *Handlers) ListMixes(w http.ResponseWriter, r *http.Request) {
	mixes, err := h.mixSvc.History(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err, "mix history lookup failed")
		return
	}

	out := make([]MixRecordResponse, 0, len(mixes))
	for _, m := range mixes {
		out = append(out, MixRecordResponse{
			ID:            m.ID,
			AudioID:       m.AudioID,
			VoiceIDs:      m.VoiceIDs,
			NarrationText: m.NarrationText,
			OutputURL:     m.OutputURL,
			CreatedAt:     m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// decodeAndValidate decodes the JSON body into dst and validates it,
// writing the error response itself on failure.
func (h *Handlers) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}
	return true
}

// writeDomainError maps a domain error to an HTTP error response.
func (h *Handlers) writeDomainError(w http.ResponseWriter, err error, logMsg string) {
	status, code := mapDomainError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(logMsg, slog.String("error", err.Error()))
	} else {
		h.logger.Warn(logMsg, slog.String("error", err.Error()))
	}
	writeError(w, status, err.Error(), code)
}

// mapDomainError translates the domain error taxonomy into HTTP status
// codes and machine-readable error codes.
func mapDomainError(err error) (int, string) {
	switch {
	case errors.Is(err, voice.ErrAudioNotFound), errors.Is(err, voice.ErrVoiceNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, voice.ErrInvalidSource):
		return http.StatusBadRequest, "INVALID_SOURCE"
	case errors.Is(err, voice.ErrDecode):
		return http.StatusUnprocessableEntity, "DECODE_FAILED"
	case errors.Is(err, voice.ErrSynthesis):
		return http.StatusBadGateway, "SYNTHESIS_FAILED"
	case errors.Is(err, voice.ErrResolve):
		return http.StatusBadGateway, "RESOLVE_FAILED"
	case errors.Is(err, voice.ErrAnalysis):
		return http.StatusInternalServerError, "ANALYSIS_FAILED"
	case errors.Is(err, voice.ErrSave):
		return http.StatusInternalServerError, "SAVE_FAILED"
	case errors.Is(err, voice.ErrStorage):
		return http.StatusInternalServerError, "STORAGE_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
