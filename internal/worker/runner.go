// Package worker drains the generation queues: one bounded pool per job
// kind, each attempt moving through debit -> processing -> pipeline ->
// completed/failed with exact compensation of the debited cost on any
// failure. The ledger and the generation record are the only shared state;
// both are mutated through atomic store operations.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"photobot/internal/domain"
	"photobot/internal/i18n"
	"photobot/internal/notify"
	"photobot/internal/providers"
	"photobot/internal/queue"
	"photobot/internal/storage"
)

// Costs are the per-operation prices in generation credits, captured once at
// construction. A job records the exact amount it was debited; refunds use
// the recorded amount, so price changes mid-flight cannot cause drift.
type Costs struct {
	Restoration     int
	RestorationHard int
	Effect          int
	Upgrade         int
	Video           int
}

// Options tunes runner behavior shared by all pipelines.
type Options struct {
	Costs                Costs
	SupportContact       string
	WebhookBaseURL       string
	DownloadTimeout      time.Duration
	DownloadPollInterval time.Duration
}

// Runner executes one job attempt end to end. It is safe for concurrent use;
// every worker goroutine of every pool shares a single Runner.
type Runner struct {
	generations domain.GenerationRepository
	ledger      domain.BalanceLedger
	notifier    notify.Publisher
	store       *storage.FileStore

	restorer  providers.Restorer
	upscaler  providers.Upscaler
	video     providers.VideoSubmitter
	effectors map[string]providers.Effector
	routing   map[string]string

	httpClient *http.Client
	opts       Options
	logger     zerolog.Logger
}

// Deps carries the collaborators a Runner needs.
type Deps struct {
	Generations domain.GenerationRepository
	Ledger      domain.BalanceLedger
	Notifier    notify.Publisher
	Store       *storage.FileStore

	Restorer providers.Restorer
	Upscaler providers.Upscaler
	Video    providers.VideoSubmitter
	// Effectors maps provider names to adapters; Routing maps effect names
	// to provider names for payloads that do not pin a provider themselves.
	Effectors map[string]providers.Effector
	Routing   map[string]string

	HTTPClient *http.Client
	Logger     zerolog.Logger
}

func NewRunner(deps Deps, opts Options) *Runner {
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = 25 * time.Second
	}
	if opts.DownloadPollInterval <= 0 {
		opts.DownloadPollInterval = 500 * time.Millisecond
	}
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	routing := deps.Routing
	if routing == nil {
		routing = DefaultRouting()
	}
	return &Runner{
		generations: deps.Generations,
		ledger:      deps.Ledger,
		notifier:    deps.Notifier,
		store:       deps.Store,
		restorer:    deps.Restorer,
		upscaler:    deps.Upscaler,
		video:       deps.Video,
		effectors:   deps.Effectors,
		routing:     routing,
		httpClient:  httpClient,
		opts:        opts,
		logger:      deps.Logger,
	}
}

type assetKind int

const (
	assetPhoto assetKind = iota
	assetDocument
	assetNone
)

type pipelineResult struct {
	outputs []string
	asset   assetKind
	// submitted marks async pipelines whose terminal transition belongs to
	// the completion webhook; the record stays PROCESSING.
	submitted bool
}

// Execute runs one delivery attempt. A nil return means the entry is done
// (completed, submitted, or deliberately suspended) and must be acked; a
// non-nil return feeds the queue's retry bookkeeping, wrapped in
// queue.Permanent when redelivery cannot help.
func (r *Runner) Execute(ctx context.Context, entry *queue.Entry) error {
	payload, err := domain.DecodeJob(entry.Payload)
	if err != nil {
		r.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("worker: undecodable payload")
		return queue.Permanent(err)
	}
	base := payload.Base()
	log := r.logger.With().
		Str("generation_id", base.GenerationID).
		Int64("user_id", base.UserID).
		Str("kind", string(payload.Kind())).
		Logger()

	cost := r.costFor(payload)
	remaining, err := r.ledger.Debit(ctx, base.UserID, cost)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			// Defensive: the front end checks the balance before enqueueing.
			// Nothing was debited, so there is nothing to refund.
			log.Warn().Msg("worker: debit refused, failing without refund")
			r.markFailed(ctx, base.GenerationID, err.Error(), log)
			r.publish(ctx, notify.TopicStatusUpdate, notify.StatusUpdate{
				ChatID:    base.ChatID,
				MessageID: base.MessageID,
				Text:      i18n.InsufficientBalanceText(base.Language),
			}, log)
			return queue.Permanent(err)
		}
		return fmt.Errorf("debit user %d: %w", base.UserID, err)
	}

	if err := r.generations.MarkProcessing(ctx, base.GenerationID, cost); err != nil {
		r.refund(ctx, base.UserID, cost, log)
		if errors.Is(err, domain.ErrAlreadyFinal) {
			log.Warn().Msg("worker: generation already terminal, dropping entry")
			return queue.Permanent(err)
		}
		return fmt.Errorf("mark processing: %w", err)
	}

	log.Info().Int("cost", cost).Int("attempt", entry.Attempts+1).Msg("worker: attempt started")
	r.publish(ctx, notify.TopicStatusUpdate, notify.StatusUpdate{
		ChatID:    base.ChatID,
		MessageID: base.MessageID,
		Text:      i18n.ProcessingText(base.Language),
	}, log)

	res, err := r.dispatch(ctx, payload)
	if err != nil {
		return r.compensate(ctx, entry, payload, cost, err, log)
	}

	if res.submitted {
		log.Info().Msg("worker: submitted to async provider")
		return nil
	}

	if err := r.generations.MarkCompleted(ctx, base.GenerationID, res.outputs); err != nil {
		if errors.Is(err, domain.ErrAlreadyFinal) {
			// Someone else settled the record first. The winner's debit is
			// the one the user owes; this attempt's must come back.
			log.Warn().Msg("worker: completion raced a terminal transition")
			r.refund(ctx, base.UserID, cost, log)
			return nil
		}
		r.refund(ctx, base.UserID, cost, log)
		return fmt.Errorf("mark completed: %w", err)
	}

	r.deliver(ctx, base, res, remaining, log)
	log.Info().Strs("outputs", res.outputs).Msg("worker: completed")
	return nil
}

// compensate implements the failure half of the state machine: refund the
// exact amount debited for this attempt, then either suspend for a user
// decision (crease path), fail terminally, or leave the record open for the
// queue's next attempt.
func (r *Runner) compensate(ctx context.Context, entry *queue.Entry, payload domain.JobPayload, cost int, cause error, log zerolog.Logger) error {
	base := payload.Base()
	r.refund(ctx, base.UserID, cost, log)

	var crease *domain.CreaseRepairError
	if errors.As(cause, &crease) {
		if job, ok := payload.(*domain.RestorationJob); ok && job.HasCreases && !job.RetryWithoutCreases {
			r.suspendForCreaseChoice(ctx, job, crease, log)
			return nil
		}
	}

	final := queue.IsPermanent(cause) || entry.FinalAttempt()
	if !final {
		log.Warn().Err(cause).Int("attempt", entry.Attempts+1).Msg("worker: attempt failed, queue will retry")
		return cause
	}

	r.markFailed(ctx, base.GenerationID, cause.Error(), log)
	r.publish(ctx, notify.TopicStatusUpdate, notify.StatusUpdate{
		ChatID:    base.ChatID,
		MessageID: base.MessageID,
		Text:      i18n.FailureText(base.Language, r.opts.SupportContact),
	}, log)
	log.Error().Err(cause).Msg("worker: job permanently failed")
	return cause
}

// suspendForCreaseChoice refunds (already done by the caller), offers the
// continue/cancel choice, and leaves the generation non-terminal. The prompt
// carries the complete retry payload so the bot can re-enqueue it without
// any lookup.
func (r *Runner) suspendForCreaseChoice(ctx context.Context, job *domain.RestorationJob, cause *domain.CreaseRepairError, log zerolog.Logger) {
	retry := *job
	retry.RetryWithoutCreases = true
	retry.OriginalPhotoPath = cause.SourcePath
	jobData, err := domain.EncodeJob(&retry)
	if err != nil {
		log.Error().Err(err).Msg("worker: encode crease retry payload")
		return
	}
	r.publish(ctx, notify.TopicCreaseChoice, notify.CreaseChoice{
		ChatID:    job.ChatID,
		MessageID: job.MessageID,
		Text:      i18n.CreaseChoiceText(job.Language),
		JobData:   jobData,
		Buttons: []notify.Button{
			{Text: i18n.CreaseContinueButton(job.Language), Data: "crease:continue"},
			{Text: i18n.CreaseCancelButton(job.Language), Data: "crease:cancel"},
		},
	}, log)
	log.Info().Msg("worker: suspended awaiting crease decision")
}

func (r *Runner) dispatch(ctx context.Context, payload domain.JobPayload) (*pipelineResult, error) {
	switch job := payload.(type) {
	case *domain.RestorationJob:
		return r.runRestoration(ctx, job)
	case *domain.EffectJob:
		return r.runEffect(ctx, job)
	case *domain.UpgradeJob:
		return r.runUpgrade(ctx, job)
	case *domain.VideoJob:
		return r.runVideo(ctx, job)
	default:
		return nil, queue.Permanent(fmt.Errorf("unsupported payload %T", payload))
	}
}

func (r *Runner) costFor(payload domain.JobPayload) int {
	switch job := payload.(type) {
	case *domain.RestorationJob:
		if job.HasCreases && !job.RetryWithoutCreases {
			return r.opts.Costs.RestorationHard
		}
		return r.opts.Costs.Restoration
	case *domain.EffectJob:
		return r.opts.Costs.Effect
	case *domain.UpgradeJob:
		return r.opts.Costs.Upgrade
	case *domain.VideoJob:
		return r.opts.Costs.Video
	default:
		return r.opts.Costs.Restoration
	}
}

// refund credits back exactly what this attempt debited. A failed credit is
// a serious accounting problem, so it is logged at error level with the full
// context, but it cannot abort the failure handling around it.
func (r *Runner) refund(ctx context.Context, userID int64, amount int, log zerolog.Logger) {
	if amount <= 0 {
		return
	}
	if _, err := r.ledger.Credit(ctx, userID, amount); err != nil {
		log.Error().Err(err).Int("amount", amount).Msg("worker: REFUND FAILED, balance inconsistent")
		return
	}
	log.Info().Int("amount", amount).Msg("worker: refunded")
}

func (r *Runner) markFailed(ctx context.Context, id, msg string, log zerolog.Logger) {
	if err := r.generations.MarkFailed(ctx, id, msg); err != nil && !errors.Is(err, domain.ErrAlreadyFinal) {
		log.Error().Err(err).Msg("worker: mark failed")
	}
}

// publish is best effort: notification delivery never affects the pipeline.
func (r *Runner) publish(ctx context.Context, topic string, payload any, log zerolog.Logger) {
	if err := r.notifier.Publish(ctx, topic, payload); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("worker: notification publish failed")
	}
}

func (r *Runner) deliver(ctx context.Context, base *domain.JobBase, res *pipelineResult, remaining int, log zerolog.Logger) {
	caption := i18n.CompletedCaption(base.Language, remaining)
	switch res.asset {
	case assetPhoto:
		if len(res.outputs) > 0 {
			r.publish(ctx, notify.TopicSendPhoto, notify.SendPhoto{
				ChatID:    base.ChatID,
				ImagePath: res.outputs[0],
				Caption:   caption,
			}, log)
		}
	case assetDocument:
		if len(res.outputs) > 0 {
			r.publish(ctx, notify.TopicSendDocument, notify.SendDocument{
				ChatID:       base.ChatID,
				DocumentPath: res.outputs[0],
				Caption:      caption,
			}, log)
		}
	}
	r.publish(ctx, notify.TopicDeleteMessage, notify.DeleteMessage{
		ChatID:    base.ChatID,
		MessageID: base.MessageID,
	}, log)
}

func (r *Runner) publishStatus(ctx context.Context, base *domain.JobBase, text string, log zerolog.Logger) {
	r.publish(ctx, notify.TopicStatusUpdate, notify.StatusUpdate{
		ChatID:    base.ChatID,
		MessageID: base.MessageID,
		Text:      text,
	}, log)
}

func (r *Runner) jobLogger(base *domain.JobBase) zerolog.Logger {
	return r.logger.With().Str("generation_id", base.GenerationID).Int64("user_id", base.UserID).Logger()
}

// DefaultRouting maps the built-in effect names to the provider that serves
// them. Effects absent here must arrive with an explicit apiProvider or they
// fail as unknown.
func DefaultRouting() map[string]string {
	return map[string]string{
		"cartoon":          "replicate",
		"anime":            "replicate",
		"oil_painting":     "replicate",
		"cyberpunk":        "fal",
		"watercolor":       "fal",
		"logoEffect":       "openai",
		"bannerEffect":     "openai",
		"roomDesignEffect": "openai",
		"jointPhotoEffect": "openai",
	}
}
