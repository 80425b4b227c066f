// Package redisearch implements VectorStore backed by Redis with the
// RediSearch module.
//
// Records live in hashes under a common key prefix; the embedding is a
// little-endian FLOAT32 blob indexed by a FLAT vector field with cosine
// metric. KNN ranking runs inside Redis, so Search never pulls the full
// candidate set into the process.
package redisearch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spetr/docvec/pkg/provider"
	"github.com/spetr/docvec/pkg/types"
	"github.com/spetr/docvec/pkg/vectormath"
)

// Default values
const (
	DefaultIndexName = "embeddings_idx"
	DefaultDocPrefix = "doc:"
	ConnectTimeout   = 10 * time.Second
)

// Config contains Redis store configuration.
type Config struct {
	Addr      string
	Password  string
	DB        int
	IndexName string
	DocPrefix string

	// TLS settings; CAFile alone enables server verification, CertFile and
	// KeyFile add mutual TLS.
	UseTLS   bool
	CertFile string
	KeyFile  string
	CAFile   string
}

// Store implements the VectorStore interface on Redis + RediSearch.
type Store struct {
	client    *redis.Client
	index     string
	prefix    string
	dimension int
}

// New connects to Redis and returns the store. Connection failures are
// reported as types.ErrBackendUnavailable.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.IndexName == "" {
		cfg.IndexName = DefaultIndexName
	}
	if cfg.DocPrefix == "" {
		cfg.DocPrefix = DefaultDocPrefix
	}

	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.UseTLS {
		tlsConfig, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrInvalidConfig, err)
		}
		opts.TLSConfig = tlsConfig
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis ping: %v", types.ErrBackendUnavailable, err)
	}

	return &Store{
		client: client,
		index:  cfg.IndexName,
		prefix: cfg.DocPrefix,
	}, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in CA file %s", cfg.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.CertFile != "" || cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// Name returns the store name.
func (s *Store) Name() string {
	return "redis"
}

// metaKey holds the provisioned dimension outside the search index, so a
// re-create with a different dimension is detected even after FT.DROPINDEX.
func (s *Store) metaKey() string {
	return s.prefix + "meta"
}

// CreateIndex provisions the FT index for the given dimension with FLAT
// FLOAT32 cosine vectors. Idempotent for a matching dimension; a different
// dimension fails with types.ErrConfigConflict.
func (s *Store) CreateIndex(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", types.ErrInvalidArgument, dimension)
	}

	existing, err := s.client.HGet(ctx, s.metaKey(), "dimension").Result()
	switch {
	case err == nil:
		prev, convErr := strconv.Atoi(existing)
		if convErr != nil {
			return fmt.Errorf("corrupt index meta %q: %w", existing, convErr)
		}
		if prev != dimension {
			return fmt.Errorf("%w: index has dimension %d, requested %d",
				types.ErrConfigConflict, prev, dimension)
		}
		s.dimension = dimension
		// Meta matches; make sure the index itself survived.
		if _, infoErr := s.client.FTInfo(ctx, s.index).Result(); infoErr == nil {
			return nil
		}
	case err != redis.Nil:
		return fmt.Errorf("read index meta: %w", err)
	}

	err = s.client.FTCreate(ctx, s.index,
		&redis.FTCreateOptions{
			OnHash: true,
			Prefix: []any{s.prefix},
		},
		&redis.FieldSchema{
			FieldName: "embedding",
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				FlatOptions: &redis.FTFlatOptions{
					Type:           "FLOAT32",
					Dim:            dimension,
					DistanceMetric: "COSINE",
				},
			},
		},
		&redis.FieldSchema{FieldName: "file_type", FieldType: redis.SearchFieldTypeTag},
		&redis.FieldSchema{FieldName: "source", FieldType: redis.SearchFieldTypeTag},
		&redis.FieldSchema{FieldName: "text", FieldType: redis.SearchFieldTypeText},
		&redis.FieldSchema{FieldName: "page_number", FieldType: redis.SearchFieldTypeNumeric},
		&redis.FieldSchema{FieldName: "chunk_index", FieldType: redis.SearchFieldTypeNumeric},
	).Err()
	if err != nil && !strings.Contains(err.Error(), "Index already exists") {
		return fmt.Errorf("redis FT.CREATE: %w", err)
	}

	if err := s.client.HSet(ctx, s.metaKey(),
		"dimension", dimension,
		"metric", "cosine",
		"created_at", time.Now().UTC().Format(time.RFC3339),
	).Err(); err != nil {
		return fmt.Errorf("write index meta: %w", err)
	}

	s.dimension = dimension
	return nil
}

// Upsert writes the record hash keyed by its chunk identity. HSET fully
// overwrites matching fields, so re-processing a document is idempotent.
func (s *Store) Upsert(ctx context.Context, rec *types.EmbeddingRecord) error {
	dim, err := s.provisionedDimension(ctx)
	if err != nil {
		return err
	}
	if len(rec.Embedding) != dim {
		return fmt.Errorf("%w: got %d, store expects %d",
			types.ErrDimensionMismatch, len(rec.Embedding), dim)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	key := s.prefix + rec.ID()
	err = s.client.HSet(ctx, key, map[string]any{
		"document_name":   rec.DocumentName,
		"text":            rec.Text,
		"page_number":     rec.PageNumber,
		"chunk_index":     rec.ChunkIndex,
		"source":          rec.Source,
		"file_type":       string(rec.FileType),
		"embedding":       vectormath.EncodeFloat32(rec.Embedding),
		"embedding_model": rec.EmbeddingModel,
		"created_at":      createdAt.Format(time.RFC3339),
	}).Err()
	if err != nil {
		return fmt.Errorf("redis upsert: %w", err)
	}
	return nil
}

// Search runs a native KNN query. The similarity reported to callers is
// 1 - cosine distance, matching the in-process scoring of the document
// database backend. Equal scores are ordered by ascending chunk index.
func (s *Store) Search(ctx context.Context, queryVec []float32, topK int, fileType types.FileType) ([]types.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", types.ErrInvalidArgument, topK)
	}
	if fileType != "" && !types.ValidFileType(fileType) {
		return nil, fmt.Errorf("%w: unknown file type %q", types.ErrInvalidArgument, fileType)
	}

	dim, err := s.provisionedDimension(ctx)
	if err != nil {
		return nil, err
	}
	if len(queryVec) != dim {
		return nil, fmt.Errorf("%w: query has %d, store expects %d",
			types.ErrDimensionMismatch, len(queryVec), dim)
	}

	base := "*"
	if fileType != "" {
		base = fmt.Sprintf("(@file_type:{%s})", fileType)
	}
	query := fmt.Sprintf("%s=>[KNN %d @embedding $vec AS vector_distance]", base, topK)

	res, err := s.client.FTSearchWithArgs(ctx, s.index, query, &redis.FTSearchOptions{
		Params:         map[string]any{"vec": string(vectormath.EncodeFloat32(queryVec))},
		SortBy:         []redis.FTSearchSortBy{{FieldName: "vector_distance", Asc: true}},
		DialectVersion: 2,
		LimitOffset:    0,
		Limit:          topK,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis KNN search: %w", err)
	}

	results := make([]types.SearchResult, 0, len(res.Docs))
	for _, doc := range res.Docs {
		distance, err := strconv.ParseFloat(doc.Fields["vector_distance"], 64)
		if err != nil {
			return nil, fmt.Errorf("parse distance %q: %w", doc.Fields["vector_distance"], err)
		}
		pageNumber, _ := strconv.Atoi(doc.Fields["page_number"])
		chunkIndex, _ := strconv.Atoi(doc.Fields["chunk_index"])

		results = append(results, types.SearchResult{
			Chunk: types.Chunk{
				DocumentName: doc.Fields["document_name"],
				Text:         doc.Fields["text"],
				PageNumber:   pageNumber,
				ChunkIndex:   chunkIndex,
				Source:       doc.Fields["source"],
				FileType:     types.FileType(doc.Fields["file_type"]),
			},
			Score: 1 - distance,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkIndex < results[j].ChunkIndex
	})
	return results, nil
}

// DeleteBySource removes every record of the given source document. The
// source tag query pages through matching keys; deletion is not atomic
// across pages.
func (s *Store) DeleteBySource(ctx context.Context, source string) error {
	query := fmt.Sprintf("@source:{%s}", escapeTag(source))

	for {
		res, err := s.client.FTSearchWithArgs(ctx, s.index, query, &redis.FTSearchOptions{
			NoContent:   true,
			LimitOffset: 0,
			Limit:       1000,
		}).Result()
		if err != nil {
			return fmt.Errorf("redis source search: %w", err)
		}
		if len(res.Docs) == 0 {
			return nil
		}

		keys := make([]string, 0, len(res.Docs))
		for _, doc := range res.Docs {
			keys = append(keys, doc.ID)
		}
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis delete: %w", err)
		}
	}
}

// Stats counts records per file type with zero-result tag queries, so no
// document bodies cross the wire.
func (s *Store) Stats(ctx context.Context) (*types.StoreStats, error) {
	stats := &types.StoreStats{ByFileType: make(map[types.FileType]int)}

	for _, ft := range types.FileTypes {
		res, err := s.client.FTSearchWithArgs(ctx, s.index,
			fmt.Sprintf("@file_type:{%s}", ft),
			&redis.FTSearchOptions{NoContent: true, LimitOffset: 0, Limit: 0},
		).Result()
		if err != nil {
			return nil, fmt.Errorf("redis stats for %s: %w", ft, err)
		}
		if res.Total > 0 {
			stats.ByFileType[ft] = int(res.Total)
			stats.TotalChunks += int(res.Total)
		}
	}
	return stats, nil
}

// Ping verifies the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", types.ErrBackendUnavailable, err)
	}
	return nil
}

// Exec runs one bootstrap command verbatim, e.g.
//
//	FT.CREATE embeddings_idx ON HASH PREFIX 1 doc: SCHEMA ...
//
// Arguments reach Redis exactly as tokenized; nothing is re-parsed.
func (s *Store) Exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: empty command", types.ErrInvalidArgument)
	}

	cmd := make([]any, len(args))
	for i, arg := range args {
		cmd[i] = arg
	}
	if err := s.client.Do(ctx, cmd...).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", args[0], err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// provisionedDimension returns the dimension recorded at CreateIndex,
// loading it from the meta hash when another process did the provisioning.
func (s *Store) provisionedDimension(ctx context.Context) (int, error) {
	if s.dimension > 0 {
		return s.dimension, nil
	}

	val, err := s.client.HGet(ctx, s.metaKey(), "dimension").Result()
	if err == redis.Nil {
		return 0, fmt.Errorf("%w: vector index not provisioned", types.ErrInvalidConfig)
	}
	if err != nil {
		return 0, fmt.Errorf("read index meta: %w", err)
	}

	dim, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("corrupt index meta %q: %w", val, err)
	}
	s.dimension = dim
	return dim, nil
}

// escapeTag escapes RediSearch tag syntax characters so arbitrary paths
// can be matched literally.
func escapeTag(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Ensure Store implements the interfaces
var (
	_ provider.VectorStore     = (*Store)(nil)
	_ provider.CommandExecutor = (*Store)(nil)
)
