package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedderOptionsOverrideDefaults(t *testing.T) {
	embedder, err := NewEmbedder("dummy-key",
		WithEmbeddingModel("custom-model"),
		WithEmbeddingDimension(42),
	)
	require.NoError(t, err)

	assert.Equal(t, "custom-model", embedder.Model())
	assert.Equal(t, 42, embedder.Dimension())
}

func TestNewEmbedderRequiresAPIKey(t *testing.T) {
	_, err := NewEmbedder("")
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
}

func TestNewEnhancerDefaults(t *testing.T) {
	enhancer, err := NewEnhancer("dummy-key")
	require.NoError(t, err)
	assert.Equal(t, DefaultEnhanceModel, enhancer.Model())
}
