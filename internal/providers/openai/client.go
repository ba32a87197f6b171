package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"photobot/internal/infra"
	"photobot/internal/providers"
)

const defaultModel = "gpt-image-1"

// Options controls how the OpenAI image client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client wraps the OpenAI images API: generations for text-to-image effects,
// edits when source photos are supplied.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("openai: base url is required")
	}
	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    opts.BaseURL,
		model:      model,
		httpClient: httpClient,
		logger:     opts.Logger,
	}, nil
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Apply renders the effect. With no sources it is a pure generation call;
// with sources it is an edit over the supplied photos.
func (c *Client) Apply(ctx context.Context, req providers.EffectRequest) (*providers.EffectResult, error) {
	var (
		resp *http.Response
		err  error
	)
	if len(req.InputPaths) == 0 {
		resp, err = c.generate(ctx, req)
	} else {
		resp, err = c.edit(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed imageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openai: %s", parsed.Error.Message)
	}
	if len(parsed.Data) == 0 {
		return nil, errors.New("openai: empty image response")
	}
	if parsed.Data[0].B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
		if err != nil {
			return nil, fmt.Errorf("openai: decode image data: %w", err)
		}
		return &providers.EffectResult{Data: data}, nil
	}
	if parsed.Data[0].URL != "" {
		return &providers.EffectResult{URL: parsed.Data[0].URL}, nil
	}
	return nil, errors.New("openai: image response carries neither data nor url")
}

func (c *Client) generate(ctx context.Context, req providers.EffectRequest) (*http.Response, error) {
	body, err := json.Marshal(map[string]any{
		"model":  c.model,
		"prompt": req.Prompt,
		"size":   sizeFor(req.Resolution),
		"n":      1,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	return c.send(httpReq)
}

func (c *Client) edit(ctx context.Context, req providers.EffectRequest) (*http.Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, path := range req.InputPaths {
		part, err := mw.CreateFormFile("image[]", filepath.Base(path))
		if err != nil {
			return nil, fmt.Errorf("openai: build multipart: %w", err)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("openai: open source %s: %w", path, err)
		}
		_, err = io.Copy(part, f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("openai: copy source %s: %w", path, err)
		}
	}
	_ = mw.WriteField("model", c.model)
	_ = mw.WriteField("prompt", req.Prompt)
	_ = mw.WriteField("size", sizeFor(req.Resolution))
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("openai: finish multipart: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/edits", &buf)
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(httpReq)
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: %s: %w", req.URL.Path, err)
	}
	if resp.StatusCode >= 500 {
		resp.Body.Close()
		return nil, fmt.Errorf("openai: %s: unexpected status %d", req.URL.Path, resp.StatusCode)
	}
	return resp, nil
}

func sizeFor(resolution string) string {
	switch resolution {
	case "VERTICAL":
		return "1024x1536"
	case "HORIZONTAL":
		return "1536x1024"
	default:
		return "1024x1024"
	}
}

var _ providers.Effector = (*Client)(nil)
