package fal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"photobot/internal/infra"
	"photobot/internal/providers"
)

const (
	modelUpscale = "fal-ai/aura-sr"
	modelEffect  = "fal-ai/flux/dev"

	pollInterval = 2 * time.Second
)

// Options controls how the FAL client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client drives the FAL queue API: submit a request, then follow its status
// URL until the result is ready.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("fal: base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    opts.BaseURL,
		httpClient: httpClient,
		logger:     opts.Logger,
	}, nil
}

// Upscale raises the quality of a local image and returns the result URL.
func (c *Client) Upscale(ctx context.Context, inputPath string) (string, error) {
	return c.run(ctx, modelUpscale, map[string]any{"image_url": dataURI(inputPath)})
}

// Apply renders an effect through a FAL-hosted diffusion model.
func (c *Client) Apply(ctx context.Context, req providers.EffectRequest) (*providers.EffectResult, error) {
	input := map[string]any{"prompt": req.Prompt}
	if len(req.InputPaths) > 0 {
		input["image_url"] = dataURI(req.InputPaths[0])
	}
	url, err := c.run(ctx, modelEffect, input)
	if err != nil {
		return nil, err
	}
	return &providers.EffectResult{URL: url}, nil
}

type queuedResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
	Status      string `json:"status"`
}

type resultResponse struct {
	Image  *resultFile  `json:"image"`
	Images []resultFile `json:"images"`
	Detail string       `json:"detail"`
}

type resultFile struct {
	URL string `json:"url"`
}

func (c *Client) run(ctx context.Context, model string, input map[string]any) (string, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("fal: encode request: %w", err)
	}
	var queued queuedResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/"+model, body, &queued); err != nil {
		return "", err
	}

	for queued.Status != "COMPLETED" {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(pollInterval):
		}
		if err := c.do(ctx, http.MethodGet, queued.StatusURL, nil, &queued); err != nil {
			return "", err
		}
		if queued.Status == "FAILED" {
			return "", fmt.Errorf("fal: %s request %s failed", model, queued.RequestID)
		}
	}

	var result resultResponse
	if err := c.do(ctx, http.MethodGet, queued.ResponseURL, nil, &result); err != nil {
		return "", err
	}
	if result.Image != nil && result.Image.URL != "" {
		return result.Image.URL, nil
	}
	if len(result.Images) > 0 && result.Images[0].URL != "" {
		return result.Images[0].URL, nil
	}
	if result.Detail != "" {
		return "", fmt.Errorf("fal: %s: %s", model, result.Detail)
	}
	return "", fmt.Errorf("fal: %s returned no output", model)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("fal: build request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fal: %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("fal: %s: unexpected status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("fal: decode response: %w", err)
	}
	return nil
}

func dataURI(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(data)
}

var (
	_ providers.Upscaler = (*Client)(nil)
	_ providers.Effector = (*Client)(nil)
)
