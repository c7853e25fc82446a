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
	runwayBaseURL       = "https://api.dev.runwayml.com"
	runwayImageToVideo  = "/v1/image_to_video"
	runwayTaskPath      = "/v1/tasks/%s"
	runwayAPIVersion    = "2024-11-06"
	defaultRunwayModel  = "gen3a_turbo"
	defaultPollInterval = 5 * time.Second
	defaultPollTimeout  = 10 * time.Minute
)

// RunwayClient generates videos through the RunwayML image-to-video API.
// Generation is asynchronous on the Runway side: a task is created, polled
// until it settles, and the finished video is downloaded from the task
// output URL.
type RunwayClient struct {
	apiKey       string
	model        string
	baseURL      string
	pollInterval time.Duration
	pollTimeout  time.Duration
	httpClient   *http.Client
	logger       *zap.Logger
}

// RunwayOption is a functional option for configuring RunwayClient
type RunwayOption func(*RunwayClient)

// WithRunwayBaseURL overrides the API base URL (used in tests)
func WithRunwayBaseURL(url string) RunwayOption {
	return func(c *RunwayClient) {
		c.baseURL = url
	}
}

// WithRunwayModel sets the video model
func WithRunwayModel(model string) RunwayOption {
	return func(c *RunwayClient) {
		c.model = model
	}
}

// WithRunwayPolling sets the task poll interval and overall timeout
func WithRunwayPolling(interval, timeout time.Duration) RunwayOption {
	return func(c *RunwayClient) {
		if interval > 0 {
			c.pollInterval = interval
		}
		if timeout > 0 {
			c.pollTimeout = timeout
		}
	}
}

// WithRunwayLogger sets a custom logger
func WithRunwayLogger(logger *zap.Logger) RunwayOption {
	return func(c *RunwayClient) {
		c.logger = logger
	}
}

// NewRunwayClient creates a new Runway video client
func NewRunwayClient(apiKey string, opts ...RunwayOption) (*RunwayClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("runway: api key is required")
	}

	client := &RunwayClient{
		apiKey:       apiKey,
		model:        defaultRunwayModel,
		baseURL:      runwayBaseURL,
		pollInterval: defaultPollInterval,
		pollTimeout:  defaultPollTimeout,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type runwayCreateTaskRequest struct {
	Model       string `json:"model"`
	PromptImage string `json:"promptImage"`
	PromptText  string `json:"promptText"`
}

type runwayTask struct {
	ID      string   `json:"id"`
	Status  string   `json:"status"` // PENDING, RUNNING, SUCCEEDED, FAILED
	Output  []string `json:"output"`
	Failure string   `json:"failure"`
}

// GenerateVideo produces video bytes for the prompt and reference image
func (c *RunwayClient) GenerateVideo(ctx context.Context, prompt string, referenceImage *appgeneration.Artifact) (*appgeneration.Artifact, error) {
	if referenceImage == nil || len(referenceImage.Bytes) == 0 {
		return nil, fmt.Errorf("runway: reference image is required")
	}

	task, err := c.createTask(ctx, prompt, referenceImage)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Runway task created", zap.String("task_id", task.ID))

	outputURL, err := c.waitForTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	return c.download(ctx, outputURL)
}

func (c *RunwayClient) createTask(ctx context.Context, prompt string, referenceImage *appgeneration.Artifact) (*runwayTask, error) {
	contentType := referenceImage.ContentType
	if contentType == "" {
		contentType = "image/png"
	}
	dataURI := fmt.Sprintf("data:%s;base64,%s",
		contentType, base64.StdEncoding.EncodeToString(referenceImage.Bytes))

	reqBody, err := json.Marshal(runwayCreateTaskRequest{
		Model:       c.model,
		PromptImage: dataURI,
		PromptText:  prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("runway: failed to marshal request: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodPost, c.baseURL+runwayImageToVideo, reqBody)
	if err != nil {
		return nil, err
	}

	var task runwayTask
	if err := json.Unmarshal(body, &task); err != nil {
		return nil, fmt.Errorf("%w: runway task parse failed: %v", shared.ErrProviderFailure, err)
	}
	if task.ID == "" {
		return nil, fmt.Errorf("%w: runway returned no task id", shared.ErrProviderFailure)
	}
	return &task, nil
}

// waitForTask polls the task until it settles or the context or poll
// timeout expires.
func (c *RunwayClient) waitForTask(ctx context.Context, taskID string) (string, error) {
	deadline := time.NewTimer(c.pollTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", fmt.Errorf("%w: runway task %s timed out", shared.ErrProviderFailure, taskID)
		case <-ticker.C:
			body, err := c.doRequest(ctx, http.MethodGet, c.baseURL+fmt.Sprintf(runwayTaskPath, taskID), nil)
			if err != nil {
				return "", err
			}

			var task runwayTask
			if err := json.Unmarshal(body, &task); err != nil {
				return "", fmt.Errorf("%w: runway task parse failed: %v", shared.ErrProviderFailure, err)
			}

			switch task.Status {
			case "SUCCEEDED":
				if len(task.Output) == 0 {
					return "", fmt.Errorf("%w: runway task %s succeeded with no output", shared.ErrProviderFailure, taskID)
				}
				return task.Output[0], nil
			case "FAILED":
				return "", fmt.Errorf("%w: runway task %s failed: %s", shared.ErrProviderFailure, taskID, task.Failure)
			}
			// PENDING / RUNNING: keep polling
		}
	}
}

func (c *RunwayClient) download(ctx context.Context, url string) (*appgeneration.Artifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("runway: failed to build download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("runway: download aborted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: runway download failed: %v", shared.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: runway download returned %s", shared.ErrProviderFailure, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("runway: download aborted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: runway download read failed: %v", shared.ErrProviderFailure, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: runway returned an empty video", shared.ErrProviderFailure)
	}

	return &appgeneration.Artifact{
		Bytes:       data,
		ContentType: "video/mp4",
	}, nil
}

func (c *RunwayClient) doRequest(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("runway: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Runway-Version", runwayAPIVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Keep cancellation distinguishable from provider failure.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("runway: request aborted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: runway request failed: %v", shared.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("runway: request aborted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: runway response read failed: %v", shared.ErrProviderFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: runway returned %s: %s", shared.ErrProviderFailure, resp.Status, string(respBody))
	}

	return respBody, nil
}
