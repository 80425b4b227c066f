// Package builtin registers all built-in providers with the default registry.
package builtin

import (
	"context"

	paragraphChunker "github.com/spetr/docvec/builtin/chunking/paragraph"
	ollamaEmbed "github.com/spetr/docvec/builtin/embedding/ollama"
	openaiEmbed "github.com/spetr/docvec/builtin/embedding/openai"
	staticEmbed "github.com/spetr/docvec/builtin/embedding/static"
	"github.com/spetr/docvec/builtin/vectorstore/mongo"
	"github.com/spetr/docvec/builtin/vectorstore/redisearch"
	"github.com/spetr/docvec/builtin/vectorstore/sqlitevec"
	"github.com/spetr/docvec/pkg/provider"
)

func init() {
	// Register embedding providers
	provider.RegisterEmbedding("ollama", func(cfg provider.EmbeddingConfig) (provider.EmbeddingProvider, error) {
		return ollamaEmbed.New(ollamaEmbed.Config{
			Endpoint:   cfg.Endpoint,
			Model:      cfg.Model,
			BatchSize:  cfg.BatchSize,
			Dimensions: cfg.Dimensions,
		}), nil
	})

	provider.RegisterEmbedding("openai", func(cfg provider.EmbeddingConfig) (provider.EmbeddingProvider, error) {
		return openaiEmbed.New(openaiEmbed.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.Endpoint,
			Model:      cfg.Model,
			BatchSize:  cfg.BatchSize,
			Dimensions: cfg.Dimensions,
		}), nil
	})

	provider.RegisterEmbedding("static", func(cfg provider.EmbeddingConfig) (provider.EmbeddingProvider, error) {
		return staticEmbed.New(staticEmbed.Config{
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
		}), nil
	})

	// Register chunking strategies
	provider.RegisterChunking("paragraph", func(cfg provider.ChunkingConfig) (provider.ChunkingStrategy, error) {
		return paragraphChunker.New(paragraphChunker.Config{
			MaxChunkSize: cfg.MaxChunkSize,
		}), nil
	})

	// Register vector stores
	provider.RegisterVectorStore("mongodb", func(ctx context.Context, cfg provider.VectorStoreConfig) (provider.VectorStore, error) {
		return mongo.New(ctx, mongo.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
	})

	provider.RegisterVectorStore("redis", func(ctx context.Context, cfg provider.VectorStoreConfig) (provider.VectorStore, error) {
		return redisearch.New(ctx, redisearch.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			IndexName: cfg.Redis.IndexName,
			DocPrefix: cfg.Redis.DocPrefix,
			UseTLS:    cfg.Redis.UseTLS,
			CertFile:  cfg.Redis.CertFile,
			KeyFile:   cfg.Redis.KeyFile,
			CAFile:    cfg.Redis.CAFile,
		})
	})

	provider.RegisterVectorStore("sqlitevec", func(ctx context.Context, cfg provider.VectorStoreConfig) (provider.VectorStore, error) {
		return sqlitevec.New(ctx, sqlitevec.Config{
			Path: cfg.SQLite.Path,
		})
	})
}
