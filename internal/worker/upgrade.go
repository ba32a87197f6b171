package worker

import (
	"context"
	"path"

	"photobot/internal/domain"
	"photobot/internal/i18n"
)

// runUpgrade upscales an image already on shared storage, typically the
// output of an earlier generation.
func (r *Runner) runUpgrade(ctx context.Context, job *domain.UpgradeJob) (*pipelineResult, error) {
	base := job.Base()
	log := r.jobLogger(base)

	r.publishStatus(ctx, base, i18n.UpgradingText(base.Language), log)
	upgradedURL, err := r.upscaler.Upscale(ctx, job.ImagePath)
	if err != nil {
		return nil, domain.NewStepError("upscale", err)
	}

	final, err := r.fetchURL(ctx, path.Join("results", base.GenerationID, "upgraded.png"), upgradedURL)
	if err != nil {
		return nil, domain.NewStepError("upscale", err)
	}

	// Full-resolution output, so a document rather than a photo.
	return &pipelineResult{outputs: []string{final}, asset: assetDocument}, nil
}
