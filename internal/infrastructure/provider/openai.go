// Package provider contains clients for external media generation APIs.
package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	appgeneration "github.com/vidgen/backend/internal/application/generation"
	"github.com/vidgen/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	openAIBaseURL        = "https://api.openai.com"
	openAIImagesPath     = "/v1/images/generations"
	defaultOpenAIModel   = "dall-e-3"
	defaultOpenAITimeout = 2 * time.Minute
)

// OpenAIClient generates images through the OpenAI Images API
type OpenAIClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// OpenAIOption is a functional option for configuring OpenAIClient
type OpenAIOption func(*OpenAIClient)

// WithOpenAIBaseURL overrides the API base URL (used in tests)
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.baseURL = url
	}
}

// WithOpenAIModel sets the image model
func WithOpenAIModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.model = model
	}
}

// WithOpenAILogger sets a custom logger
func WithOpenAILogger(logger *zap.Logger) OpenAIOption {
	return func(c *OpenAIClient) {
		c.logger = logger
	}
}

// NewOpenAIClient creates a new OpenAI images client
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}

	client := &OpenAIClient{
		apiKey:  apiKey,
		model:   defaultOpenAIModel,
		baseURL: openAIBaseURL,
		httpClient: &http.Client{
			Timeout: defaultOpenAITimeout,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type openAIImageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type openAIImageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// GenerateImage produces image bytes for the prompt.
// The image is requested as base64 so no second fetch is needed.
func (c *OpenAIClient) GenerateImage(ctx context.Context, prompt string) (*appgeneration.Artifact, error) {
	reqBody, err := json.Marshal(openAIImageRequest{
		Model:          c.model,
		Prompt:         prompt,
		N:              1,
		Size:           "1024x1024",
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return nil, fmt.Errorf("openai: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+openAIImagesPath, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("openai: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Keep cancellation distinguishable from provider failure.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("openai: request aborted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: openai request failed: %v", shared.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: openai response read failed: %v", shared.ErrProviderFailure, err)
	}

	var parsed openAIImageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: openai response parse failed: %v", shared.ErrProviderFailure, err)
	}

	if resp.StatusCode != http.StatusOK {
		message := resp.Status
		if parsed.Error != nil {
			message = parsed.Error.Message
		}
		c.logger.Error("OpenAI image generation failed",
			zap.Int("status", resp.StatusCode),
			zap.String("message", message))
		return nil, fmt.Errorf("%w: openai: %s", shared.ErrProviderFailure, message)
	}

	if len(parsed.Data) == 0 || parsed.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("%w: openai returned no image data", shared.ErrProviderFailure)
	}

	data, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("%w: openai image decode failed: %v", shared.ErrProviderFailure, err)
	}

	c.logger.Debug("Generated image", zap.Int("size", len(data)))

	return &appgeneration.Artifact{
		Bytes:       data,
		ContentType: "image/png",
	}, nil
}
