package domain

import (
	"encoding/json"
	"fmt"
)

// Resolution enumerates output aspect presets for effect jobs.
type Resolution string

const (
	ResolutionSquare     Resolution = "SQUARE"
	ResolutionVertical   Resolution = "VERTICAL"
	ResolutionHorizontal Resolution = "HORIZONTAL"
)

// JobPayload is the tagged union carried by queue entries: one variant per
// generation kind, each with its kind-specific required fields. Payloads are
// validated at enqueue time so workers never have to guess which optional
// field is actually set.
type JobPayload interface {
	Kind() GenerationKind
	Base() *JobBase
	Validate() error
}

// JobBase carries the fields every job needs: ownership, the generation row
// to report into, and the chat coordinates for status delivery.
type JobBase struct {
	UserID       int64  `json:"userId"`
	GenerationID string `json:"generationId"`
	ChatID       int64  `json:"chatId"`
	MessageID    int    `json:"messageId"`
	Language     string `json:"language"`
}

func (b *JobBase) Base() *JobBase { return b }

func (b *JobBase) validate() error {
	if b.UserID == 0 {
		return fmt.Errorf("userId is required")
	}
	if b.GenerationID == "" {
		return fmt.Errorf("generationId is required")
	}
	if b.ChatID == 0 {
		return fmt.Errorf("chatId is required")
	}
	return nil
}

// RestorationJob restores an old photograph, optionally repairing physical
// damage (creases) first.
type RestorationJob struct {
	JobBase
	FileID     string `json:"fileId"`
	HasCreases bool   `json:"hasCreases"`
	// RetryWithoutCreases marks the re-enqueued attempt after the user chose
	// to continue without the damage-repair stage.
	RetryWithoutCreases bool `json:"isRetryWithoutCreases,omitempty"`
	// OriginalPhotoPath is set on retries so the already-downloaded source is
	// reused instead of fetched again.
	OriginalPhotoPath string `json:"originalPhotoPath,omitempty"`
}

func (j *RestorationJob) Kind() GenerationKind { return KindRestoration }

func (j *RestorationJob) Validate() error {
	if err := j.validate(); err != nil {
		return err
	}
	if j.FileID == "" && j.OriginalPhotoPath == "" {
		return fmt.Errorf("fileId is required")
	}
	if j.RetryWithoutCreases && j.OriginalPhotoPath == "" {
		return fmt.Errorf("originalPhotoPath is required on a retry without creases")
	}
	return nil
}

// EffectJob applies a named style to zero or more source photos, or renders
// from a text prompt alone.
type EffectJob struct {
	JobBase
	FileIDs     []string   `json:"fileIds,omitempty"`
	Effect      string     `json:"effect"`
	Resolution  Resolution `json:"resolution"`
	APIProvider string     `json:"apiProvider,omitempty"`
	Prompt      string     `json:"prompt,omitempty"`
	Description string     `json:"description,omitempty"`
}

func (j *EffectJob) Kind() GenerationKind { return KindEffect }

func (j *EffectJob) Validate() error {
	if err := j.validate(); err != nil {
		return err
	}
	if j.Effect == "" {
		return fmt.Errorf("effect is required")
	}
	if len(j.FileIDs) == 0 && j.Prompt == "" {
		return fmt.Errorf("fileIds or prompt is required")
	}
	switch j.Resolution {
	case ResolutionSquare, ResolutionVertical, ResolutionHorizontal:
	case "":
		j.Resolution = ResolutionSquare
	default:
		return fmt.Errorf("unsupported resolution %q", j.Resolution)
	}
	return nil
}

// UpgradeJob upscales an existing image to a higher quality.
type UpgradeJob struct {
	JobBase
	ImagePath string `json:"imagePath"`
}

func (j *UpgradeJob) Kind() GenerationKind { return KindUpgrade }

func (j *UpgradeJob) Validate() error {
	if err := j.validate(); err != nil {
		return err
	}
	if j.ImagePath == "" {
		return fmt.Errorf("imagePath is required")
	}
	return nil
}

// VideoJob animates a still photo through an asynchronous video provider.
type VideoJob struct {
	JobBase
	ImagePath        string `json:"imagePath,omitempty"`
	FileID           string `json:"fileId,omitempty"`
	Prompt           string `json:"prompt"`
	TranslatedPrompt string `json:"translatedPrompt,omitempty"`
	Effect           string `json:"effect"`
}

func (j *VideoJob) Kind() GenerationKind { return KindVideo }

func (j *VideoJob) Validate() error {
	if err := j.validate(); err != nil {
		return err
	}
	if j.ImagePath == "" && j.FileID == "" {
		return fmt.Errorf("imagePath or fileId is required")
	}
	if j.Effect == "" {
		return fmt.Errorf("effect is required")
	}
	return nil
}

type jobEnvelope struct {
	Kind    GenerationKind  `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeJob validates a payload and serializes it for the queue.
func EncodeJob(p JobPayload) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", p.Kind(), err)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", p.Kind(), err)
	}
	return json.Marshal(jobEnvelope{Kind: p.Kind(), Payload: raw})
}

// DecodeJob deserializes a queue entry back into its typed payload.
func DecodeJob(data []byte) (JobPayload, error) {
	var env jobEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode job envelope: %w", err)
	}
	var payload JobPayload
	switch env.Kind {
	case KindRestoration:
		payload = &RestorationJob{}
	case KindEffect:
		payload = &EffectJob{}
	case KindUpgrade:
		payload = &UpgradeJob{}
	case KindVideo:
		payload = &VideoJob{}
	default:
		return nil, fmt.Errorf("unknown job kind %q", env.Kind)
	}
	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.Kind, err)
	}
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", env.Kind, err)
	}
	return payload, nil
}
