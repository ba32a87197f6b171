// Package providers defines the contracts the worker pipelines use to invoke
// external AI services. Adapters are opaque to the core: they take local
// source files, return bytes or a URL, and fail with ordinary errors — the
// pipelines decide what a failure means for the job.
package providers

import "context"

// EffectRequest asks an adapter to apply a named style to the given sources,
// or to render from the prompt alone when no sources are present.
type EffectRequest struct {
	GenerationID string
	Effect       string
	Resolution   string
	Prompt       string
	InputPaths   []string
}

// EffectResult carries the produced asset: raw bytes, a remote URL, or both.
type EffectResult struct {
	Data []byte
	URL  string
}

// Effector applies one image effect synchronously.
type Effector interface {
	Apply(ctx context.Context, req EffectRequest) (*EffectResult, error)
}

// Restorer covers the photo-restoration model family. Each call takes a local
// file and returns the URL of the transformed result, which feeds the next
// stage.
type Restorer interface {
	RepairDamage(ctx context.Context, inputPath string) (string, error)
	Restore(ctx context.Context, inputPath string) (string, error)
	Colorize(ctx context.Context, inputPath string) (string, error)
}

// Upscaler raises the resolution/quality of an existing image.
type Upscaler interface {
	Upscale(ctx context.Context, inputPath string) (string, error)
}

// VideoRequest submits a still photo for asynchronous animation. The provider
// reports completion to WebhookURL; Submit only returns the tracking id.
type VideoRequest struct {
	GenerationID string
	ImagePath    string
	Prompt       string
	Effect       string
	WebhookURL   string
}

// VideoSubmitter starts an asynchronous video generation.
type VideoSubmitter interface {
	Submit(ctx context.Context, req VideoRequest) (providerRef string, err error)
}
