package provider

import (
	"context"

	appgeneration "github.com/vidgen/backend/internal/application/generation"
	"github.com/vidgen/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Ensure MediaProvider implements the media provider port
var _ appgeneration.MediaProvider = (*MediaProvider)(nil)

// MediaProvider routes image generation to OpenAI and video generation to
// Runway behind the single provider port.
type MediaProvider struct {
	images *OpenAIClient
	videos *RunwayClient
}

// NewMediaProvider builds the composite provider from configuration
func NewMediaProvider(cfg config.ProviderConfig, logger *zap.Logger) (*MediaProvider, error) {
	images, err := NewOpenAIClient(cfg.OpenAIAPIKey,
		WithOpenAIModel(cfg.OpenAIModel),
		WithOpenAILogger(logger))
	if err != nil {
		return nil, err
	}

	videos, err := NewRunwayClient(cfg.RunwayAPIKey,
		WithRunwayModel(cfg.RunwayModel),
		WithRunwayPolling(cfg.RunwayPollEvery, cfg.RunwayTimeout),
		WithRunwayLogger(logger))
	if err != nil {
		return nil, err
	}

	return &MediaProvider{images: images, videos: videos}, nil
}

// GenerateImage produces image bytes for the prompt
func (p *MediaProvider) GenerateImage(ctx context.Context, prompt string) (*appgeneration.Artifact, error) {
	return p.images.GenerateImage(ctx, prompt)
}

// GenerateVideo produces video bytes for the prompt and reference image
func (p *MediaProvider) GenerateVideo(ctx context.Context, prompt string, referenceImage *appgeneration.Artifact) (*appgeneration.Artifact, error) {
	return p.videos.GenerateVideo(ctx, prompt, referenceImage)
}
