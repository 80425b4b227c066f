// Package provider defines interfaces for pluggable components.
package provider

import (
	"context"
)

// EmbeddingProvider generates vector embeddings from text.
type EmbeddingProvider interface {
	// Name returns the provider name (e.g., "ollama", "openai").
	Name() string

	// Model returns the model tag recorded on stored records.
	Model() string

	// Embed generates embeddings for the given texts.
	// Returns a slice of embeddings, one for each input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension size.
	Dimensions() int

	// MaxBatchSize returns the maximum number of texts per batch.
	MaxBatchSize() int

	// Close releases any resources.
	Close() error
}

// EmbeddingConfig contains configuration for embedding providers.
type EmbeddingConfig struct {
	Provider   string // "ollama", "openai", "static"
	Model      string // model name
	Endpoint   string // API endpoint (for Ollama, OpenAI-compatible servers)
	APIKey     string // API key (for OpenAI)
	BatchSize  int    // texts per batch
	Dimensions int    // expected dimension, must match the store's
}
