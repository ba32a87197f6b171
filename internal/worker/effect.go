package worker

import (
	"context"
	"fmt"
	"path"

	"photobot/internal/domain"
	"photobot/internal/i18n"
	"photobot/internal/providers"
	"photobot/internal/queue"
)

// runEffect resolves the effect to a provider adapter, downloads the source
// photos, and applies the style. Routing problems are permanent: redelivering
// an effect no provider serves cannot succeed.
func (r *Runner) runEffect(ctx context.Context, job *domain.EffectJob) (*pipelineResult, error) {
	base := job.Base()
	log := r.jobLogger(base)

	provider := job.APIProvider
	if provider == "" {
		provider = r.routing[job.Effect]
	}
	if provider == "" {
		return nil, queue.Permanent(fmt.Errorf("%w: %q", domain.ErrUnknownEffect, job.Effect))
	}
	effector, ok := r.effectors[provider]
	if !ok {
		return nil, queue.Permanent(fmt.Errorf("%w: provider %q not configured for %q", domain.ErrUnknownEffect, provider, job.Effect))
	}

	var inputs []string
	if len(job.FileIDs) > 0 {
		r.publishStatus(ctx, base, i18n.DownloadingText(base.Language), log)
		for i, fileID := range job.FileIDs {
			p, err := r.fetchSource(ctx, base, fileID, fmt.Sprintf("source_%d.jpg", i), log)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, p)
		}
	}

	prompt := job.Prompt
	if prompt == "" {
		prompt = job.Description
	}

	r.publishStatus(ctx, base, i18n.ApplyingEffectText(base.Language), log)
	res, err := effector.Apply(ctx, providers.EffectRequest{
		GenerationID: base.GenerationID,
		Effect:       job.Effect,
		Resolution:   string(job.Resolution),
		Prompt:       prompt,
		InputPaths:   inputs,
	})
	if err != nil {
		return nil, domain.NewStepError("effect", err)
	}

	resultKey := path.Join("results", base.GenerationID, "effect.jpg")
	var output string
	switch {
	case len(res.Data) > 0:
		output, err = r.store.Write(ctx, resultKey, res.Data)
	case res.URL != "":
		output, err = r.fetchURL(ctx, resultKey, res.URL)
	default:
		err = fmt.Errorf("provider %q returned neither data nor url", provider)
	}
	if err != nil {
		return nil, domain.NewStepError("effect", err)
	}

	return &pipelineResult{outputs: []string{output}, asset: assetPhoto}, nil
}
