package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	genapp "github.com/vidgen/backend/internal/application/generation"
	"github.com/vidgen/backend/internal/domain/generation"
	"github.com/vidgen/backend/internal/domain/shared"
	"github.com/vidgen/backend/internal/interfaces/http/dto"
)

// maxReferenceImageSize caps the uploaded reference image at 10MB
const maxReferenceImageSize = 10 << 20

// defaultSignedURLExpiry is how long generated media download links stay valid
const defaultSignedURLExpiry = time.Hour

// GenerationService is the application collaborator behind the generation endpoints
type GenerationService interface {
	GenerateImage(ctx context.Context, userID uuid.UUID, prompt string) (*genapp.Result, error)
	GenerateVideo(ctx context.Context, userID uuid.UUID, prompt string, referenceImage *genapp.Artifact) (*genapp.Result, error)
	SignMediaURL(ctx context.Context, userID, generationID uuid.UUID, expiresIn time.Duration) (string, error)
	ListHistory(ctx context.Context, userID uuid.UUID, typeFilter string, page shared.Page) (shared.Paginated[*generation.Generation], error)
}

// GenerationHandler handles media generation endpoints
type GenerationHandler struct {
	BaseHandler
	service GenerationService
}

// NewGenerationHandler creates a new GenerationHandler
func NewGenerationHandler(service GenerationService) *GenerationHandler {
	return &GenerationHandler{service: service}
}

// RegisterRoutes registers the generation routes. All of them require auth.
func (h *GenerationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	generations := rg.Group("/generations")
	{
		generations.POST("/image", h.GenerateImage)
		generations.POST("/video", h.GenerateVideo)
		generations.GET("", h.ListHistory)
		generations.GET("/:id/url", h.SignMediaURL)
	}
}

// GenerateImageRequest represents an image generation request
type GenerateImageRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// GenerateImage runs a synchronous image generation and debits the user
func (h *GenerationHandler) GenerateImage(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req GenerateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, dto.FormatBindingError(err))
		return
	}

	result, err := h.service.GenerateImage(c.Request.Context(), userID, req.Prompt)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// GenerateVideo runs a synchronous video generation from a multipart form
// carrying the prompt and a reference image, and debits the user.
func (h *GenerationHandler) GenerateVideo(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	prompt := c.PostForm("prompt")
	if prompt == "" {
		h.BadRequest(c, "Prompt is required")
		return
	}

	referenceImage, err := readReferenceImage(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.service.GenerateVideo(c.Request.Context(), userID, prompt, referenceImage)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

func readReferenceImage(c *gin.Context) (*genapp.Artifact, error) {
	fileHeader, err := c.FormFile("reference_image")
	if err != nil {
		return nil, shared.NewDomainError("INVALID_REFERENCE_IMAGE", "Reference image file is required")
	}
	if fileHeader.Size > maxReferenceImageSize {
		return nil, shared.NewDomainError("INVALID_REFERENCE_IMAGE", "Reference image exceeds 10MB")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType != "image/png" && contentType != "image/jpeg" {
		return nil, shared.NewDomainError("INVALID_REFERENCE_IMAGE", "Reference image must be PNG or JPEG")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, shared.NewDomainError("INVALID_REFERENCE_IMAGE", "Failed to read reference image")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxReferenceImageSize+1))
	if err != nil || len(data) == 0 || len(data) > maxReferenceImageSize {
		return nil, shared.NewDomainError("INVALID_REFERENCE_IMAGE", "Failed to read reference image")
	}

	return &genapp.Artifact{Bytes: data, ContentType: contentType}, nil
}

// GenerationResponse is the outward-facing view of a generation record
type GenerationResponse struct {
	ID        uuid.UUID `json:"id"`
	Prompt    string    `json:"prompt"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	HasMedia  bool      `json:"has_media"`
	CreatedAt time.Time `json:"created_at"`
}

func toGenerationResponse(g *generation.Generation) GenerationResponse {
	return GenerationResponse{
		ID:        g.ID,
		Prompt:    g.Prompt,
		Type:      string(g.Type),
		Status:    string(g.Status),
		HasMedia:  g.MediaReference != "",
		CreatedAt: g.CreatedAt,
	}
}

// ListHistory lists the user's generation attempts newest first,
// optionally filtered by media type.
func (h *GenerationHandler) ListHistory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	page := bindPage(c)
	result, err := h.service.ListHistory(c.Request.Context(), userID, c.Query("type"), page)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]GenerationResponse, 0, len(result.Items))
	for _, g := range result.Items {
		items = append(items, toGenerationResponse(g))
	}
	h.SuccessWithMeta(c, items, result.Total, result.Offset, result.Limit)
}

// SignedURLResponse carries a temporary media download URL
type SignedURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignMediaURL issues a temporary download URL for a generation the
// caller owns.
func (h *GenerationHandler) SignMediaURL(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	generationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid generation id")
		return
	}

	url, err := h.service.SignMediaURL(c.Request.Context(), userID, generationID, defaultSignedURLExpiry)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": SignedURLResponse{
			URL:       url,
			ExpiresAt: time.Now().Add(defaultSignedURLExpiry),
		},
	})
}
