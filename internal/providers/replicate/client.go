package replicate

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

// Model versions pinned per restoration stage. Damage repair runs first when
// requested; its failure is surfaced distinctly by the restoration pipeline.
const (
	modelRepairDamage = "flux-kontext-apps/restore-image"
	modelRestore      = "tencentarc/gfpgan"
	modelColorize     = "arielreplicate/deoldify_image"
	modelStyleDefault = "stability-ai/sdxl"
)

const pollInterval = 2 * time.Second

// Options controls how the Replicate client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client calls the Replicate predictions API synchronously: create a
// prediction, then poll it until it settles or the context expires.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("replicate: base url is required")
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

func (c *Client) RepairDamage(ctx context.Context, inputPath string) (string, error) {
	return c.run(ctx, modelRepairDamage, map[string]any{"input_image": dataURI(inputPath)})
}

func (c *Client) Restore(ctx context.Context, inputPath string) (string, error) {
	return c.run(ctx, modelRestore, map[string]any{"img": dataURI(inputPath), "version": "v1.4", "scale": 2})
}

func (c *Client) Colorize(ctx context.Context, inputPath string) (string, error) {
	return c.run(ctx, modelColorize, map[string]any{"input_image": dataURI(inputPath), "model_name": "Stable"})
}

// Apply runs a named style model over the first source image.
func (c *Client) Apply(ctx context.Context, req providers.EffectRequest) (*providers.EffectResult, error) {
	input := map[string]any{"prompt": req.Prompt}
	if len(req.InputPaths) > 0 {
		input["image"] = dataURI(req.InputPaths[0])
	}
	url, err := c.run(ctx, modelStyleDefault, input)
	if err != nil {
		return nil, err
	}
	return &providers.EffectResult{URL: url}, nil
}

type predictionRequest struct {
	Version string         `json:"version,omitempty"`
	Model   string         `json:"model,omitempty"`
	Input   map[string]any `json:"input"`
}

type predictionResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
}

func (c *Client) run(ctx context.Context, model string, input map[string]any) (string, error) {
	body, err := json.Marshal(predictionRequest{Model: model, Input: input})
	if err != nil {
		return "", fmt.Errorf("replicate: encode request: %w", err)
	}
	var created predictionResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/models/"+model+"/predictions", body, &created); err != nil {
		return "", err
	}

	pred := created
	for !settled(pred.Status) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(pollInterval):
		}
		if err := c.do(ctx, http.MethodGet, c.baseURL+"/predictions/"+created.ID, nil, &pred); err != nil {
			return "", err
		}
	}
	if pred.Status != "succeeded" {
		if pred.Error != "" {
			return "", fmt.Errorf("replicate: %s %s: %s", model, pred.Status, pred.Error)
		}
		return "", fmt.Errorf("replicate: %s %s", model, pred.Status)
	}
	url := firstOutputURL(pred.Output)
	if url == "" {
		return "", fmt.Errorf("replicate: %s returned no output", model)
	}
	return url, nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out *predictionResponse) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("replicate: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("replicate: %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("replicate: %s: unexpected status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("replicate: decode response: %w", err)
	}
	return nil
}

func settled(status string) bool {
	switch status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

// firstOutputURL handles both output shapes Replicate models use: a plain
// string and an array of strings.
func firstOutputURL(output json.RawMessage) string {
	if len(output) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(output, &single); err == nil {
		return single
	}
	var many []string
	if err := json.Unmarshal(output, &many); err == nil && len(many) > 0 {
		return many[0]
	}
	return ""
}

func dataURI(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(data)
}

var (
	_ providers.Restorer = (*Client)(nil)
	_ providers.Effector = (*Client)(nil)
)
