// Package static implements a deterministic offline embedding provider.
// Vectors are derived from a hash of the input text, so identical text
// always maps to the identical vector. Useful for smoke tests and for
// exercising the pipeline without a model server.
package static

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/spetr/docvec/pkg/provider"
)

// Default values
const (
	DefaultDimensions = 384
	DefaultBatchSize  = 64
)

// Config contains static provider configuration.
type Config struct {
	Dimensions int
	BatchSize  int
}

// Provider implements the EmbeddingProvider interface with hash-derived
// vectors. The output is unit-normalized so cosine scoring behaves like a
// real model's.
type Provider struct {
	config Config
}

// New creates a new static embedding provider.
func New(cfg Config) *Provider {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Provider{config: cfg}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "static"
}

// Model returns the model tag recorded on stored records.
func (p *Provider) Model() string {
	return "static-hash"
}

// Embed generates deterministic embeddings for the given texts.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		results[i] = p.embedOne(text)
	}
	return results, nil
}

// embedOne expands the text hash into a unit vector. The hash is re-fed
// through SHA-256 in counter mode until enough bytes exist for all
// dimensions.
func (p *Provider) embedOne(text string) []float32 {
	vec := make([]float32, p.config.Dimensions)
	seed := sha256.Sum256([]byte(text))

	var norm float64
	block := seed
	for i := range vec {
		if i%8 == 0 && i > 0 {
			counter := [sha256.Size + 4]byte{}
			copy(counter[:], seed[:])
			binary.LittleEndian.PutUint32(counter[sha256.Size:], uint32(i/8))
			block = sha256.Sum256(counter[:])
		}
		bits := binary.LittleEndian.Uint32(block[(i%8)*4:])
		// Map to [-1, 1)
		v := float64(int32(bits)) / float64(math.MaxInt32)
		vec[i] = float32(v)
		norm += v * v
	}

	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

// Dimensions returns the embedding dimensions.
func (p *Provider) Dimensions() int {
	return p.config.Dimensions
}

// MaxBatchSize returns the maximum batch size.
func (p *Provider) MaxBatchSize() int {
	return p.config.BatchSize
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}

// Ensure Provider implements EmbeddingProvider interface
var _ provider.EmbeddingProvider = (*Provider)(nil)
