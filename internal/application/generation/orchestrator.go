package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vidgen/backend/internal/domain/generation"
	"github.com/vidgen/backend/internal/domain/identity"
	"github.com/vidgen/backend/internal/domain/ledger"
	"github.com/vidgen/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CostTable holds the per-type token cost of a generation
type CostTable struct {
	Image int
	Video int
}

// For returns the cost for the given media type
func (c CostTable) For(t generation.Type) int {
	if t == generation.TypeVideo {
		return c.Video
	}
	return c.Image
}

// Orchestrator coordinates one generation request: balance check, external
// provider call, storage upload, then the atomic record-and-debit write.
// The ledger is only touched in the final step, so a failure or
// cancellation anywhere before it leaves the user un-debited and free to
// retry.
type Orchestrator struct {
	userRepo       identity.UserRepository
	generationRepo generation.Repository
	provider       MediaProvider
	storage        ObjectStorage
	costs          CostTable
	recordFailures bool
	logger         *zap.Logger
}

// OrchestratorConfig contains construction parameters for Orchestrator
type OrchestratorConfig struct {
	UserRepo       identity.UserRepository
	GenerationRepo generation.Repository
	Provider       MediaProvider
	Storage        ObjectStorage
	Costs          CostTable
	// RecordFailures writes a status=failed generation row for provider
	// and storage failures. Off by default: failed attempts then leave no
	// rows at all, matching the accounting invariant either way.
	RecordFailures bool
	Logger         *zap.Logger
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		userRepo:       cfg.UserRepo,
		generationRepo: cfg.GenerationRepo,
		provider:       cfg.Provider,
		storage:        cfg.Storage,
		costs:          cfg.Costs,
		recordFailures: cfg.RecordFailures,
		logger:         logger,
	}
}

// Result is the outcome of a successful generation
type Result struct {
	GenerationID   uuid.UUID `json:"generation_id"`
	MediaReference string    `json:"media_reference"`
	TokensCharged  int       `json:"tokens_charged"`
	Balance        int       `json:"balance"`
}

// GenerateImage runs the image generation flow for a user
func (o *Orchestrator) GenerateImage(ctx context.Context, userID uuid.UUID, prompt string) (*Result, error) {
	return o.generate(ctx, userID, generation.TypeImage, prompt, nil)
}

// GenerateVideo runs the video generation flow for a user. The reference
// image is required by the provider and is archived next to the output.
func (o *Orchestrator) GenerateVideo(ctx context.Context, userID uuid.UUID, prompt string, referenceImage *Artifact) (*Result, error) {
	if referenceImage == nil || len(referenceImage.Bytes) == 0 {
		return nil, shared.NewDomainError("INVALID_REFERENCE_IMAGE", "Reference image is required for video generation")
	}
	return o.generate(ctx, userID, generation.TypeVideo, prompt, referenceImage)
}

func (o *Orchestrator) generate(ctx context.Context, userID uuid.UUID, mediaType generation.Type, prompt string, referenceImage *Artifact) (*Result, error) {
	if prompt == "" {
		return nil, shared.NewDomainError("INVALID_PROMPT", "Prompt cannot be empty")
	}

	user, err := o.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	cost := o.costs.For(mediaType)
	if !user.CanAfford(cost) {
		return nil, shared.NewInsufficientTokensError(user.Tokens, cost)
	}

	// External call: may take minutes, cancellable, nothing durable yet.
	artifact, err := o.callProvider(ctx, mediaType, prompt, referenceImage)
	if err != nil {
		o.recordFailure(ctx, userID, mediaType, prompt)
		return nil, err
	}

	key := mediaKey(userID, mediaType, artifact.ContentType)
	mediaReference, err := o.storage.Put(ctx, key, artifact.Bytes, artifact.ContentType)
	if err != nil {
		o.recordFailure(ctx, userID, mediaType, prompt)
		return nil, fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
	}

	gen, err := generation.New(userID, prompt, mediaType, mediaReference)
	if err != nil {
		return nil, err
	}

	// Archiving the reference image is a non-critical side effect: a
	// failure here must not void a generation the user will be charged for.
	if referenceImage != nil {
		refKey := referenceKey(userID, referenceImage.ContentType)
		if storedRef, refErr := o.storage.Put(ctx, refKey, referenceImage.Bytes, referenceImage.ContentType); refErr != nil {
			o.logger.Warn("Failed to archive reference image",
				zap.String("user_id", userID.String()),
				zap.Error(refErr))
		} else {
			gen.WithReferenceImage(storedRef)
		}
	}

	reason := ledger.ReasonImageGeneration
	description := "Image generation"
	if mediaType == generation.TypeVideo {
		reason = ledger.ReasonVideoGeneration
		description = "Video generation"
	}
	entry, err := ledger.NewDebit(userID, cost, reason, description)
	if err != nil {
		return nil, err
	}
	entry.WithExternalRef(gen.ID.String()).
		WithMetadata("media_reference", mediaReference)

	// Record and debit commit together or not at all.
	if err := o.generationRepo.CreateWithDebit(ctx, gen, entry); err != nil {
		return nil, err
	}

	// The pre-call read can be minutes old by now; report the balance as
	// committed. The debit already succeeded, so a failed re-read is not fatal.
	balance := user.Tokens - cost
	if fresh, err := o.userRepo.FindByID(ctx, userID); err == nil {
		balance = fresh.Tokens
	} else {
		o.logger.Warn("Failed to refresh balance after debit",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}

	o.logger.Info("Generation completed",
		zap.String("user_id", userID.String()),
		zap.String("generation_id", gen.ID.String()),
		zap.String("type", string(mediaType)),
		zap.Int("tokens_charged", cost))

	return &Result{
		GenerationID:   gen.ID,
		MediaReference: mediaReference,
		TokensCharged:  cost,
		Balance:        balance,
	}, nil
}

func (o *Orchestrator) callProvider(ctx context.Context, mediaType generation.Type, prompt string, referenceImage *Artifact) (*Artifact, error) {
	var artifact *Artifact
	var err error
	if mediaType == generation.TypeVideo {
		artifact, err = o.provider.GenerateVideo(ctx, prompt, referenceImage)
	} else {
		artifact, err = o.provider.GenerateImage(ctx, prompt)
	}
	if err != nil {
		return nil, err
	}
	if artifact == nil || len(artifact.Bytes) == 0 {
		return nil, shared.NewDomainError(shared.ErrProviderFailure.Code, "Provider returned an empty artifact")
	}
	return artifact, nil
}

// recordFailure optionally writes a failed generation row. Best effort:
// the primary failure is what the caller sees either way, and no ledger
// entry is ever written for a failed attempt.
func (o *Orchestrator) recordFailure(ctx context.Context, userID uuid.UUID, mediaType generation.Type, prompt string) {
	if !o.recordFailures {
		return
	}
	gen, err := generation.NewFailed(userID, prompt, mediaType)
	if err != nil {
		return
	}
	if err := o.generationRepo.Create(ctx, gen); err != nil {
		o.logger.Warn("Failed to record failed generation attempt",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}

// SignMediaURL returns a temporary download URL for a generation the user owns
func (o *Orchestrator) SignMediaURL(ctx context.Context, userID, generationID uuid.UUID, expiresIn time.Duration) (string, error) {
	gen, err := o.generationRepo.FindByID(ctx, generationID)
	if err != nil {
		return "", err
	}
	if gen.UserID != userID {
		return "", shared.ErrForbidden
	}
	if gen.Status != generation.StatusSuccess || gen.MediaReference == "" {
		return "", shared.ErrNotFound
	}
	return o.storage.Sign(ctx, gen.MediaReference, expiresIn)
}

// ListHistory lists a user's generation attempts newest first
func (o *Orchestrator) ListHistory(ctx context.Context, userID uuid.UUID, typeFilter string, page shared.Page) (shared.Paginated[*generation.Generation], error) {
	gens, total, err := o.generationRepo.ListByUser(ctx, userID, generation.Filter{
		Type: typeFilter,
		Page: page,
	})
	if err != nil {
		return shared.Paginated[*generation.Generation]{}, err
	}
	return shared.NewPaginated(gens, total, page.Normalize()), nil
}

func mediaKey(userID uuid.UUID, mediaType generation.Type, contentType string) string {
	return fmt.Sprintf("generated/%s/%d%s", userID, time.Now().UnixNano(), extensionFor(mediaType, contentType))
}

func referenceKey(userID uuid.UUID, contentType string) string {
	ext := ".png"
	if contentType == "image/jpeg" {
		ext = ".jpg"
	}
	return fmt.Sprintf("references/%s/%d%s", userID, time.Now().UnixNano(), ext)
}

func extensionFor(mediaType generation.Type, contentType string) string {
	if mediaType == generation.TypeVideo {
		return ".mp4"
	}
	if contentType == "image/jpeg" {
		return ".jpg"
	}
	return ".png"
}
