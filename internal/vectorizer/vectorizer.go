// Package vectorizer orchestrates the document pipeline: extract, chunk,
// embed, persist.
package vectorizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/spetr/docvec/internal/extract"
	"github.com/spetr/docvec/pkg/provider"
	"github.com/spetr/docvec/pkg/types"
)

// Default values
const (
	DefaultUpsertRetries = 3
)

// Vectorizer runs documents through extraction, chunking, embedding and
// storage. The vector store and embedding provider are injected, so the
// same pipeline serves every backend combination.
type Vectorizer struct {
	store    provider.VectorStore
	embedder provider.EmbeddingProvider
	chunker  provider.ChunkingStrategy
	logger   *slog.Logger

	upsertRetries uint64
}

// New creates a new vectorizer.
func New(store provider.VectorStore, embedder provider.EmbeddingProvider, chunker provider.ChunkingStrategy, logger *slog.Logger) *Vectorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Vectorizer{
		store:         store,
		embedder:      embedder,
		chunker:       chunker,
		logger:        logger,
		upsertRetries: DefaultUpsertRetries,
	}
}

// EnsureIndex provisions the vector index for the embedder's dimension.
// Must succeed before any document is processed; a dimension conflict is
// fatal and surfaces unchanged.
func (v *Vectorizer) EnsureIndex(ctx context.Context) error {
	return v.store.CreateIndex(ctx, v.embedder.Dimensions())
}

// ProcessDocument runs one document through the pipeline. Chunks whose
// embedding or write fails are skipped with a warning; the rest of the
// document still lands. Extraction failure fails the whole document.
func (v *Vectorizer) ProcessDocument(ctx context.Context, path string) (*types.ProcessResult, error) {
	path = filepath.Clean(path)

	pages, fileType, err := extract.Extract(path)
	if err != nil {
		return nil, err
	}

	chunks, err := v.chunker.Chunk(pages)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", path, err)
	}

	docName := filepath.Base(path)
	for i := range chunks {
		chunks[i].DocumentName = docName
		chunks[i].Source = path
		chunks[i].FileType = fileType
	}

	result := &types.ProcessResult{
		DocumentName: docName,
		Source:       path,
		FileType:     fileType,
		TotalChunks:  len(chunks),
		Dimension:    v.embedder.Dimensions(),
	}

	if len(chunks) == 0 {
		v.logger.Info("document produced no chunks", "source", path)
		return result, nil
	}

	batchSize := v.embedder.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = len(chunks)
	}

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		embeddings, err := v.embedder.Embed(ctx, texts)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			v.logger.Warn("embedding batch failed, skipping chunks",
				"source", path, "from", batch[0].ChunkIndex, "count", len(batch), "error", err)
			result.SkippedChunks += len(batch)
			continue
		}

		now := time.Now().UTC()
		for i, chunk := range batch {
			rec := &types.EmbeddingRecord{
				Chunk:              chunk,
				Embedding:          embeddings[i],
				EmbeddingModel:     v.embedder.Model(),
				EmbeddingDimension: len(embeddings[i]),
				CreatedAt:          now,
			}

			if err := v.upsertWithRetry(ctx, rec); err != nil {
				if ctx.Err() != nil {
					return result, ctx.Err()
				}
				v.logger.Warn("chunk write failed, skipping",
					"source", path, "chunk", chunk.ChunkIndex, "error", err)
				result.SkippedChunks++
				continue
			}
			result.StoredChunks++
		}
	}

	v.logger.Info("document processed",
		"source", path,
		"file_type", fileType,
		"chunks", result.StoredChunks,
		"skipped", result.SkippedChunks)
	return result, nil
}

// upsertWithRetry writes one record, retrying transient failures with
// exponential backoff. Contract violations (wrong dimension, bad
// arguments) are permanent and fail immediately.
func (v *Vectorizer) upsertWithRetry(ctx context.Context, rec *types.EmbeddingRecord) error {
	op := func() error {
		err := v.store.Upsert(ctx, rec)
		if err == nil {
			return nil
		}
		if errors.Is(err, types.ErrDimensionMismatch) ||
			errors.Is(err, types.ErrInvalidArgument) ||
			errors.Is(err, types.ErrInvalidConfig) ||
			errors.Is(err, types.ErrConfigConflict) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), v.upsertRetries)
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

// ProcessPath processes a single document or every supported document
// under a directory. Documents that fail extraction are logged and
// skipped; the batch continues.
func (v *Vectorizer) ProcessPath(ctx context.Context, path string) (*types.BatchResult, error) {
	started := time.Now()

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	var files []string
	if info.IsDir() {
		err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				v.logger.Warn("walk error", "path", p, "error", err)
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if strings.EqualFold(filepath.Ext(p), ".doc") {
				v.logger.Warn("legacy .doc format is not supported, skipping", "path", p)
				return nil
			}
			if extract.DetectFileType(p) != "" {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", path, err)
		}
	} else {
		files = []string{path}
	}

	result := &types.BatchResult{}
	for _, file := range files {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		docResult, err := v.ProcessDocument(ctx, file)
		if err != nil {
			v.logger.Warn("document skipped", "source", file, "error", err)
			result.DocumentsSkipped++
			continue
		}
		result.Documents++
		result.ChunksStored += docResult.StoredChunks
		result.ChunksSkipped += docResult.SkippedChunks
	}

	result.Duration = time.Since(started)
	v.logger.Info("batch complete",
		"documents", result.Documents,
		"skipped_documents", result.DocumentsSkipped,
		"chunks", result.ChunksStored,
		"duration", result.Duration)
	return result, nil
}

// SimilaritySearch embeds the query text and runs KNN against the store.
func (v *Vectorizer) SimilaritySearch(ctx context.Context, query string, topK int, fileType types.FileType) ([]types.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", types.ErrInvalidArgument)
	}

	embeddings, err := v.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", types.ErrEmbedding, err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("%w: expected one query embedding, got %d", types.ErrEmbedding, len(embeddings))
	}

	return v.store.Search(ctx, embeddings[0], topK, fileType)
}

// DeleteSource removes every stored chunk of the given source document.
func (v *Vectorizer) DeleteSource(ctx context.Context, source string) error {
	return v.store.DeleteBySource(ctx, filepath.Clean(source))
}

// Stats returns the store's chunk counts.
func (v *Vectorizer) Stats(ctx context.Context) (*types.StoreStats, error) {
	return v.store.Stats(ctx)
}
