package generation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	userID := uuid.New()

	t.Run("creates successful image generation", func(t *testing.T) {
		gen, err := New(userID, "a red panda in the snow", TypeImage, "generated/u1/a.png")

		require.NoError(t, err)
		assert.Equal(t, userID, gen.UserID)
		assert.Equal(t, TypeImage, gen.Type)
		assert.Equal(t, StatusSuccess, gen.Status)
		assert.Equal(t, "generated/u1/a.png", gen.MediaReference)
		assert.NotEqual(t, uuid.Nil, gen.ID)
	})

	t.Run("fails with empty prompt", func(t *testing.T) {
		gen, err := New(userID, "", TypeImage, "generated/u1/a.png")

		assert.Error(t, err)
		assert.Nil(t, gen)
	})

	t.Run("fails with invalid type", func(t *testing.T) {
		gen, err := New(userID, "prompt", Type("audio"), "generated/u1/a.png")

		assert.Error(t, err)
		assert.Nil(t, gen)
	})

	t.Run("fails without media reference", func(t *testing.T) {
		gen, err := New(userID, "prompt", TypeVideo, "")

		assert.Error(t, err)
		assert.Nil(t, gen)
	})
}

func TestNewFailed(t *testing.T) {
	t.Run("failed attempt has no media reference", func(t *testing.T) {
		gen, err := NewFailed(uuid.New(), "prompt", TypeVideo)

		require.NoError(t, err)
		assert.Equal(t, StatusFailed, gen.Status)
		assert.Empty(t, gen.MediaReference)
	})
}

func TestTypeLedgerReason(t *testing.T) {
	assert.Equal(t, "image_generation", TypeImage.LedgerReason())
	assert.Equal(t, "video_generation", TypeVideo.LedgerReason())
}

func TestWithReferenceImage(t *testing.T) {
	gen, err := New(uuid.New(), "prompt", TypeVideo, "generated/u1/a.mp4")
	require.NoError(t, err)

	gen.WithReferenceImage("references/u1/ref.png")
	assert.Equal(t, "references/u1/ref.png", gen.ReferenceImageKey)
}
