package generation

import (
	"github.com/google/uuid"
	"github.com/vidgen/backend/internal/domain/shared"
)

// Type is the kind of media produced by a generation
type Type string

const (
	TypeImage Type = "image"
	TypeVideo Type = "video"
)

// IsValid reports whether the type is one of the recognized values
func (t Type) IsValid() bool {
	return t == TypeImage || t == TypeVideo
}

// LedgerReason returns the ledger reason charged for this media type
func (t Type) LedgerReason() string {
	return string(t) + "_generation"
}

// Status is the outcome of a generation attempt
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Generation records one media generation attempt and its outcome.
// MediaReference is an opaque storage key, never a public URL; read access
// goes through a presigned URL issued on demand.
type Generation struct {
	shared.BaseEntity
	UserID            uuid.UUID
	Prompt            string
	Type              Type
	MediaReference    string
	ReferenceImageKey string // storage key of the uploaded reference image (video only)
	Status            Status
}

// New creates a successful generation record
func New(userID uuid.UUID, prompt string, mediaType Type, mediaReference string) (*Generation, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if prompt == "" {
		return nil, shared.NewDomainError("INVALID_PROMPT", "Prompt cannot be empty")
	}
	if !mediaType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TYPE", "Invalid generation type")
	}
	if mediaReference == "" {
		return nil, shared.NewDomainError("INVALID_MEDIA_REFERENCE", "Media reference cannot be empty")
	}

	return &Generation{
		BaseEntity:     shared.NewBaseEntity(),
		UserID:         userID,
		Prompt:         prompt,
		Type:           mediaType,
		MediaReference: mediaReference,
		Status:         StatusSuccess,
	}, nil
}

// NewFailed creates a failed generation record. Failed attempts carry no
// media reference and never pair with a ledger debit.
func NewFailed(userID uuid.UUID, prompt string, mediaType Type) (*Generation, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if !mediaType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TYPE", "Invalid generation type")
	}
	return &Generation{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		Prompt:     prompt,
		Type:       mediaType,
		Status:     StatusFailed,
	}, nil
}

// WithReferenceImage records the storage key of the caller's reference image
func (g *Generation) WithReferenceImage(key string) *Generation {
	g.ReferenceImageKey = key
	return g
}
