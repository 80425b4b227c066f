package provider

import (
	"context"

	"github.com/spetr/docvec/pkg/types"
)

// VectorStore stores chunk embeddings and answers KNN similarity queries.
//
// Both backends expose the same contract even though their native
// capabilities differ: the document-database backend scans candidates and
// ranks them in-process, while the search-engine backend delegates ranking
// to its native vector index. Results are equivalent modulo backend-native
// tie-breaking.
type VectorStore interface {
	// Name returns the store name (e.g., "mongodb", "redis").
	Name() string

	// CreateIndex provisions the vector index for the given dimension with
	// cosine metric. Idempotent: re-creation with the same dimension is a
	// no-op; a different dimension fails with types.ErrConfigConflict.
	// Must be called before the first Upsert on a fresh store.
	CreateIndex(ctx context.Context, dimension int) error

	// Upsert writes or overwrites the record keyed by its chunk identity
	// (source, page_number, chunk_index). Fails with
	// types.ErrDimensionMismatch when the vector length does not match the
	// configured dimension; the store is left unchanged.
	Upsert(ctx context.Context, rec *types.EmbeddingRecord) error

	// Search returns at most topK records ordered by descending cosine
	// similarity to queryVec. fileType, when non-empty, restricts candidates
	// before ranking. topK <= 0 and unknown file types fail with
	// types.ErrInvalidArgument.
	Search(ctx context.Context, queryVec []float32, topK int, fileType types.FileType) ([]types.SearchResult, error)

	// DeleteBySource removes every record of the given source document.
	DeleteBySource(ctx context.Context, source string) error

	// Stats returns the total chunk count and the per-file-type breakdown.
	Stats(ctx context.Context) (*types.StoreStats, error)

	// Ping verifies the backend is reachable. Used at startup and as the
	// liveness probe for supervised backend processes.
	Ping(ctx context.Context) error

	// Close releases resources and closes connections.
	Close() error
}

// CommandExecutor runs one administrative bootstrap command against the
// backend. Arguments are pre-tokenized; they are never re-interpreted by a
// shell. Stores that support bulk pre-population implement this alongside
// VectorStore.
type CommandExecutor interface {
	Exec(ctx context.Context, args []string) error
}

// VectorStoreConfig contains configuration for vector stores. Only the
// options of the selected provider are consulted.
type VectorStoreConfig struct {
	Provider  string // "mongodb", "redis", "sqlitevec"
	Dimension int    // pipeline-wide embedding dimension D

	Mongo  MongoOptions
	Redis  RedisOptions
	SQLite SQLiteOptions
}

// MongoOptions are the MongoDB backend connection settings.
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
}

// RedisOptions are the Redis backend connection settings.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	IndexName string
	DocPrefix string
	UseTLS    bool
	CertFile  string
	KeyFile   string
	CAFile    string
}

// SQLiteOptions are the sqlite-vec backend settings.
type SQLiteOptions struct {
	Path string
}
