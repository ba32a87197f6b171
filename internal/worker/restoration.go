package worker

import (
	"context"
	"path"

	"photobot/internal/domain"
	"photobot/internal/i18n"
)

// runRestoration walks the three-stage restoration chain: optional damage
// repair, detail restoration, colorization. Each stage feeds the next through
// a locally materialized intermediate. A repair failure on a first attempt is
// surfaced as CreaseRepairError so Execute can suspend for the user's choice
// instead of burning retries on it.
func (r *Runner) runRestoration(ctx context.Context, job *domain.RestorationJob) (*pipelineResult, error) {
	base := job.Base()
	log := r.jobLogger(base)

	sourcePath := job.OriginalPhotoPath
	if sourcePath == "" {
		r.publishStatus(ctx, base, i18n.DownloadingText(base.Language), log)
		downloaded, err := r.fetchSource(ctx, base, job.FileID, "source.jpg", log)
		if err != nil {
			return nil, err
		}
		sourcePath = downloaded
	}

	current := sourcePath
	if job.HasCreases && !job.RetryWithoutCreases {
		r.publishStatus(ctx, base, i18n.RepairingText(base.Language), log)
		repairedURL, err := r.restorer.RepairDamage(ctx, current)
		if err != nil {
			return nil, &domain.CreaseRepairError{SourcePath: sourcePath, Err: err}
		}
		current, err = r.fetchURL(ctx, stageKey(base.GenerationID, "repaired.jpg"), repairedURL)
		if err != nil {
			return nil, &domain.CreaseRepairError{SourcePath: sourcePath, Err: err}
		}
	}

	r.publishStatus(ctx, base, i18n.RestoringText(base.Language), log)
	restoredURL, err := r.restorer.Restore(ctx, current)
	if err != nil {
		return nil, domain.NewStepError("restore", err)
	}
	current, err = r.fetchURL(ctx, stageKey(base.GenerationID, "restored.jpg"), restoredURL)
	if err != nil {
		return nil, domain.NewStepError("restore", err)
	}

	r.publishStatus(ctx, base, i18n.ColorizingText(base.Language), log)
	colorizedURL, err := r.restorer.Colorize(ctx, current)
	if err != nil {
		return nil, domain.NewStepError("colorize", err)
	}
	final, err := r.fetchURL(ctx, path.Join("results", base.GenerationID, "restored.jpg"), colorizedURL)
	if err != nil {
		return nil, domain.NewStepError("colorize", err)
	}

	// Restored photos go out as documents to dodge Telegram's photo recompression.
	return &pipelineResult{outputs: []string{final}, asset: assetDocument}, nil
}

func stageKey(generationID, name string) string {
	return path.Join("pipeline", generationID, name)
}
