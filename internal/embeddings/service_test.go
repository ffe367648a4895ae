package embeddings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/researchd/internal/embeddings"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  embeddings.Config
		wantErr bool
	}{
		{
			name:   "valid",
			config: embeddings.Config{BaseURL: "https://api.openai.com/v1", Model: "text-embedding-3-small"},
		},
		{
			name:    "missing base URL",
			config:  embeddings.Config{Model: "text-embedding-3-small"},
			wantErr: true,
		},
		{
			name:    "missing model",
			config:  embeddings.Config{BaseURL: "https://api.openai.com/v1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, embeddings.ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewService_InvalidConfig(t *testing.T) {
	_, err := embeddings.NewService(embeddings.Config{})
	assert.Error(t, err)
}

func TestService_EmptyInput(t *testing.T) {
	svc, err := embeddings.NewService(embeddings.Config{
		BaseURL: "http://localhost:8080/v1",
		Model:   "BAAI/bge-small-en-v1.5",
	})
	require.NoError(t, err)

	_, err = svc.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, embeddings.ErrEmptyInput)

	_, err = svc.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, embeddings.ErrEmptyInput)
}
