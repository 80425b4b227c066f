package provider

import (
	"github.com/spetr/docvec/pkg/types"
)

// ChunkingStrategy splits extracted pages into retrievable chunks.
type ChunkingStrategy interface {
	// Name returns the strategy name (e.g., "paragraph").
	Name() string

	// Chunk splits the extracted pages of one document into chunks.
	// ChunkIndex is assigned as a strictly increasing counter over the whole
	// document, starting at 0, never reset per page. Whitespace-only pieces
	// are dropped. Output is deterministic and order-stable for identical
	// input and configuration.
	Chunk(pages []types.Page) ([]types.Chunk, error)
}

// ChunkingConfig contains configuration for chunking strategies.
type ChunkingConfig struct {
	Strategy     string // "paragraph"
	MaxChunkSize int    // max characters per chunk before hard-splitting
}
