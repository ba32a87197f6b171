package runway

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
	defaultModel = "gen3a_turbo"
	apiVersion   = "2024-11-06"
)

// Options controls how the Runway client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client submits image-to-video tasks. Runway is asynchronous: Submit returns
// a task id immediately and the result arrives later on the completion
// webhook, so the worker's responsibility ends at "submitted".
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("runway: base url is required")
	}
	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    opts.BaseURL,
		model:      model,
		httpClient: httpClient,
		logger:     opts.Logger,
	}, nil
}

type taskRequest struct {
	Model       string `json:"model"`
	PromptImage string `json:"promptImage"`
	PromptText  string `json:"promptText,omitempty"`
	WebhookURL  string `json:"webhookUrl,omitempty"`
}

type taskResponse struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// Submit starts the generation and returns the provider-side tracking id.
func (c *Client) Submit(ctx context.Context, req providers.VideoRequest) (string, error) {
	image, err := dataURI(req.ImagePath)
	if err != nil {
		return "", fmt.Errorf("runway: read source image: %w", err)
	}
	body, err := json.Marshal(taskRequest{
		Model:       c.model,
		PromptImage: image,
		PromptText:  req.Prompt,
		WebhookURL:  req.WebhookURL,
	})
	if err != nil {
		return "", fmt.Errorf("runway: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/image_to_video", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("runway: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Runway-Version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("runway: image_to_video: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("runway: image_to_video: unexpected status %d", resp.StatusCode)
	}

	var task taskResponse
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return "", fmt.Errorf("runway: decode response: %w", err)
	}
	if task.Error != "" {
		return "", fmt.Errorf("runway: %s", task.Error)
	}
	if task.ID == "" {
		return "", errors.New("runway: response carries no task id")
	}
	return task.ID, nil
}

func dataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}

var _ providers.VideoSubmitter = (*Client)(nil)
