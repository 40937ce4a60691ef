package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephrichter/tesserae-v5/ai"
)

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(&ai.Config{})
	assert.Error(t, err)

	_, err = NewEmbedder(&ai.Config{EmbeddingHost: "http://localhost:11434"})
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	config := ai.NewConfig(ai.WithEmbeddingHost("http://localhost:11434"))
	provider, err := NewProvider(config)
	require.NoError(t, err)
	defer provider.Close()

	assert.NotNil(t, provider.Embedder())
	assert.Equal(t, "http://localhost:11434/v1", config.EmbeddingHost)
}
