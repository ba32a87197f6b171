package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"photobot/internal/domain"
	"photobot/internal/i18n"
)

type enqueueResponse struct {
	GenerationID string `json:"generation_id"`
	Status       string `json:"status"`
	Remaining    int    `json:"remaining_generations"`
}

// EnqueueRestoration accepts a photo-restoration job.
func (a *App) EnqueueRestoration(w http.ResponseWriter, r *http.Request) {
	var job domain.RestorationJob
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	refs := []string{job.FileID}
	if job.OriginalPhotoPath != "" {
		refs = []string{job.OriginalPhotoPath}
	}
	a.enqueue(w, r, &job, refs)
}

// EnqueueEffect accepts an image-effect job.
func (a *App) EnqueueEffect(w http.ResponseWriter, r *http.Request) {
	var job domain.EffectJob
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	a.enqueue(w, r, &job, job.FileIDs)
}

// EnqueueUpgrade accepts an image-upgrade job.
func (a *App) EnqueueUpgrade(w http.ResponseWriter, r *http.Request) {
	var job domain.UpgradeJob
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	a.enqueue(w, r, &job, []string{job.ImagePath})
}

// EnqueueVideo accepts a photo-animation job.
func (a *App) EnqueueVideo(w http.ResponseWriter, r *http.Request) {
	var job domain.VideoJob
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	refs := []string{job.FileID}
	if job.ImagePath != "" {
		refs = []string{job.ImagePath}
	}
	a.enqueue(w, r, &job, refs)
}

// enqueue is the shared accept path: validate, persist a PENDING record, hand
// the payload to the queue. The record exists before the entry does, so a
// worker can never lease a job whose record is missing; an enqueue failure
// closes the record and reports 502, so the caller knows nothing started and
// nothing was charged.
func (a *App) enqueue(w http.ResponseWriter, r *http.Request, payload domain.JobPayload, inputRefs []string) {
	ctx := r.Context()
	base := payload.Base()
	if base.Language == "" {
		base.Language = a.DefaultLanguage
	}
	base.Language = i18n.Normalize(base.Language)
	base.GenerationID = uuid.NewString()

	data, err := domain.EncodeJob(payload)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	remaining, err := a.Ledger.Remaining(ctx, base.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		a.Logger.Error().Err(err).Int64("user_id", base.UserID).Msg("handlers: balance lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to check balance")
		return
	}
	if remaining <= 0 {
		a.error(w, http.StatusPaymentRequired, "insufficient_balance", "no generations left")
		return
	}

	gen := &domain.Generation{
		ID:        base.GenerationID,
		UserID:    base.UserID,
		Kind:      payload.Kind(),
		Status:    domain.StatusPending,
		InputRefs: inputRefs,
		ChatID:    base.ChatID,
		MessageID: base.MessageID,
	}
	if err := a.Generations.Create(ctx, gen); err != nil {
		a.Logger.Error().Err(err).Str("generation_id", gen.ID).Msg("handlers: create generation failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create generation")
		return
	}

	if _, err := a.Engine.Enqueue(ctx, payload.Kind().QueueName(), data); err != nil {
		a.Logger.Error().Err(err).Str("generation_id", gen.ID).Msg("handlers: enqueue failed")
		if markErr := a.Generations.MarkFailed(ctx, gen.ID, "queue unavailable"); markErr != nil {
			a.Logger.Error().Err(markErr).Str("generation_id", gen.ID).Msg("handlers: close orphaned generation failed")
		}
		a.error(w, http.StatusBadGateway, "queue_unavailable", "failed to queue the job")
		return
	}

	a.json(w, http.StatusAccepted, enqueueResponse{
		GenerationID: gen.ID,
		Status:       string(domain.StatusPending),
		Remaining:    remaining,
	})
}

// GenerationStatus reports the current state of one generation.
func (a *App) GenerationStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "id required")
		return
	}
	gen, err := a.Generations.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "generation not found")
			return
		}
		a.Logger.Error().Err(err).Str("generation_id", id).Msg("handlers: load generation failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load generation")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"id":            gen.ID,
		"user_id":       gen.UserID,
		"kind":          gen.Kind,
		"status":        gen.Status,
		"input_refs":    gen.InputRefs,
		"output_refs":   gen.OutputRefs,
		"error_message": gen.ErrorMessage,
		"provider_ref":  gen.ProviderRef,
		"cost_paid":     gen.CostPaid,
		"created_at":    gen.CreatedAt,
		"updated_at":    gen.UpdatedAt,
	})
}
