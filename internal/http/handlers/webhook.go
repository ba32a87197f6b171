package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"photobot/internal/domain"
	"photobot/internal/i18n"
	"photobot/internal/notify"
)

// videoWebhookPayload is the provider's completion callback body. Providers
// nest the result differently, so the shape is a union: output holds a string
// or an array, video.url is the fal variant.
type videoWebhookPayload struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Video  *struct {
		URL string `json:"url"`
	} `json:"video"`
	FailureReason string `json:"failure"`
	ErrorMessage  string `json:"error"`
}

// resultURL extracts the produced video URL using the extraction rule of the
// submitting provider, identified by the source query parameter.
func (p *videoWebhookPayload) resultURL(source string) string {
	switch source {
	case "fal":
		if p.Video != nil {
			return p.Video.URL
		}
		return ""
	default: // runway, replicate: output is a string or an array of strings
		if len(p.Output) == 0 {
			return ""
		}
		var single string
		if err := json.Unmarshal(p.Output, &single); err == nil {
			return single
		}
		var many []string
		if err := json.Unmarshal(p.Output, &many); err == nil && len(many) > 0 {
			return many[0]
		}
		return ""
	}
}

func (p *videoWebhookPayload) failureReason() string {
	if p.FailureReason != "" {
		return p.FailureReason
	}
	if p.ErrorMessage != "" {
		return p.ErrorMessage
	}
	return "provider reported " + p.Status
}

// VideoWebhook finishes an asynchronous video generation. Providers retry
// deliveries, so the handler is idempotent: the conditional terminal
// transition on the generation record decides exactly one winner, and only
// the winner delivers the video or refunds the charge. Every recognized
// delivery is answered 200 so the provider stops retrying.
func (a *App) VideoWebhook(w http.ResponseWriter, r *http.Request) {
	var payload videoWebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	q := r.URL.Query()
	generationID := q.Get("generationId")
	if generationID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "generationId required")
		return
	}
	userID, err := strconv.ParseInt(q.Get("userId"), 10, 64)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "userId required")
		return
	}
	chatID, err := strconv.ParseInt(q.Get("chatId"), 10, 64)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "chatId required")
		return
	}
	messageID, _ := strconv.Atoi(q.Get("messageId"))
	language := i18n.Normalize(q.Get("language"))
	source := q.Get("source")

	ctx := r.Context()
	log := a.Logger.With().
		Str("generation_id", generationID).
		Str("provider_ref", payload.ID).
		Str("provider_status", payload.Status).
		Str("source", source).
		Logger()

	switch strings.ToUpper(payload.Status) {
	case "SUCCEEDED", "COMPLETED", "OK":
		videoURL := payload.resultURL(source)
		if videoURL == "" {
			a.error(w, http.StatusBadRequest, "bad_request", "succeeded without output")
			return
		}
		if err := a.Generations.MarkCompleted(ctx, generationID, []string{videoURL}); err != nil {
			if errors.Is(err, domain.ErrAlreadyFinal) {
				log.Info().Msg("webhook: duplicate delivery ignored")
				a.json(w, http.StatusOK, map[string]string{"status": "ok"})
				return
			}
			log.Error().Err(err).Msg("webhook: mark completed failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to finish generation")
			return
		}
		remaining, err := a.Ledger.Remaining(ctx, userID)
		if err != nil {
			log.Warn().Err(err).Msg("webhook: balance lookup failed")
		}
		a.publish(ctx, notify.TopicSendVideo, notify.SendVideo{
			ChatID:   chatID,
			VideoURL: videoURL,
			Caption:  i18n.CompletedCaption(language, remaining),
		})
		a.publish(ctx, notify.TopicDeleteMessage, notify.DeleteMessage{
			ChatID:    chatID,
			MessageID: messageID,
		})
		log.Info().Msg("webhook: video delivered")

	case "FAILED", "CANCELLED", "CANCELED", "ERROR":
		reason := payload.failureReason()
		if err := a.Generations.MarkFailed(ctx, generationID, reason); err != nil {
			if errors.Is(err, domain.ErrAlreadyFinal) {
				log.Info().Msg("webhook: duplicate failure delivery ignored")
				a.json(w, http.StatusOK, map[string]string{"status": "ok"})
				return
			}
			log.Error().Err(err).Msg("webhook: mark failed failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to finish generation")
			return
		}
		// Winner of the terminal transition refunds exactly what was debited.
		gen, err := a.Generations.GetByID(ctx, generationID)
		if err != nil {
			log.Error().Err(err).Msg("webhook: load generation for refund failed")
		} else if gen.CostPaid > 0 {
			if _, err := a.Ledger.Credit(ctx, userID, gen.CostPaid); err != nil {
				log.Error().Err(err).Int("amount", gen.CostPaid).Msg("webhook: REFUND FAILED, balance inconsistent")
			} else {
				log.Info().Int("amount", gen.CostPaid).Msg("webhook: refunded")
			}
		}
		a.publish(ctx, notify.TopicStatusUpdate, notify.StatusUpdate{
			ChatID:    chatID,
			MessageID: messageID,
			Text:      i18n.FailureText(language, a.SupportContact),
		})
		log.Warn().Str("reason", reason).Msg("webhook: video generation failed")

	default:
		// Progress callbacks carry nothing actionable.
		log.Debug().Msg("webhook: non-terminal status ignored")
	}

	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
