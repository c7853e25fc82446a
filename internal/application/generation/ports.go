package generation

import (
	"context"
	"time"
)

// Artifact is a blob of media bytes together with its content type
type Artifact struct {
	Bytes       []byte
	ContentType string
}

// MediaProvider is the external generation collaborator. Calls may take
// seconds to minutes and must honor context cancellation; they have no
// compensating transaction, so nothing durable may depend on a call that
// has not returned yet.
type MediaProvider interface {
	// GenerateImage produces image bytes for the prompt
	GenerateImage(ctx context.Context, prompt string) (*Artifact, error)

	// GenerateVideo produces video bytes for the prompt and reference image
	GenerateVideo(ctx context.Context, prompt string, referenceImage *Artifact) (*Artifact, error)
}

// ObjectStorage persists media artifacts and issues temporary read URLs.
// Keys are opaque storage paths, never public URLs.
type ObjectStorage interface {
	// Put stores the bytes under key and returns the stored key
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Sign returns a temporary read URL for an existing key
	Sign(ctx context.Context, key string, expiresIn time.Duration) (string, error)
}
