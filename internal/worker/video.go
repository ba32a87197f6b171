package worker

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"photobot/internal/domain"
	"photobot/internal/i18n"
	"photobot/internal/providers"
)

// runVideo submits an image-to-video task to the asynchronous provider. The
// pipeline ends at submission: the generation stays PROCESSING and the
// completion webhook performs the terminal transition and delivery.
func (r *Runner) runVideo(ctx context.Context, job *domain.VideoJob) (*pipelineResult, error) {
	base := job.Base()
	log := r.jobLogger(base)

	imagePath := job.ImagePath
	if imagePath == "" {
		r.publishStatus(ctx, base, i18n.DownloadingText(base.Language), log)
		downloaded, err := r.fetchSource(ctx, base, job.FileID, "source.jpg", log)
		if err != nil {
			return nil, err
		}
		imagePath = downloaded
	}

	prompt := job.TranslatedPrompt
	if prompt == "" {
		prompt = job.Prompt
	}

	ref, err := r.video.Submit(ctx, providers.VideoRequest{
		GenerationID: base.GenerationID,
		ImagePath:    imagePath,
		Prompt:       prompt,
		Effect:       job.Effect,
		WebhookURL:   r.videoWebhookURL(base, job.Effect),
	})
	if err != nil {
		return nil, domain.NewStepError("video_submit", err)
	}

	// The webhook can still resolve the generation from its query params, so
	// a failed ref write degrades tracing but not correctness.
	if err := r.generations.SetProviderRef(ctx, base.GenerationID, ref); err != nil && !errors.Is(err, domain.ErrAlreadyFinal) {
		log.Error().Err(err).Str("provider_ref", ref).Msg("worker: record provider ref")
	}

	r.publishStatus(ctx, base, i18n.VideoSubmittedText(base.Language), log)
	log.Info().Str("provider_ref", ref).Msg("worker: video task submitted")
	return &pipelineResult{submitted: true, asset: assetNone}, nil
}

// videoWebhookURL builds the per-task completion callback. The random path
// segment keeps callbacks unguessable; the query carries everything the
// webhook handler needs to finish and deliver the job.
func (r *Runner) videoWebhookURL(base *domain.JobBase, effect string) string {
	q := url.Values{}
	q.Set("generationId", base.GenerationID)
	q.Set("userId", strconv.FormatInt(base.UserID, 10))
	q.Set("chatId", strconv.FormatInt(base.ChatID, 10))
	q.Set("messageId", strconv.Itoa(base.MessageID))
	q.Set("language", base.Language)
	q.Set("effect", effect)
	q.Set("source", "runway")
	return r.opts.WebhookBaseURL + "/video-webhook/" + uuid.NewString() + "?" + q.Encode()
}
