// Package sqlitevec implements VectorStore using sqlite-vec, an embedded
// backend that needs no server process. KNN runs inside SQLite against a
// vec0 virtual table with cosine distance.
package sqlitevec

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spetr/docvec/pkg/provider"
	"github.com/spetr/docvec/pkg/types"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// Ensure sqlite-vec Auto() is called exactly once before any db connection
	vecAutoOnce sync.Once
)

// Default values
const (
	DefaultPath = "docvec.db"
)

// Config contains sqlite-vec store configuration.
type Config struct {
	Path string
}

// Store implements the VectorStore interface using sqlite-vec.
type Store struct {
	db        *sql.DB
	path      string
	dimension int
}

// New opens (or creates) the database at cfg.Path.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}

	// Register sqlite-vec extension before opening any database connection.
	vecAutoOnce.Do(func() {
		sqlite_vec.Auto()
	})

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	// WAL mode for concurrent reads, busy_timeout to wait for locks instead
	// of failing immediately
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "SELECT vec_version()"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec extension not available: %v", types.ErrBackendUnavailable, err)
	}

	s := &Store{db: db, path: cfg.Path}
	if err := s.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

// Name returns the store name.
func (s *Store) Name() string {
	return "sqlitevec"
}

// createSchema creates the scalar tables. The vec0 table is created by
// CreateIndex because its declaration embeds the dimension.
func (s *Store) createSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_name TEXT NOT NULL,
			text TEXT NOT NULL,
			page_number INTEGER NOT NULL,
			chunk_index INTEGER NOT NULL,
			source TEXT NOT NULL,
			file_type TEXT NOT NULL,
			embedding_model TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source)`)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_chunks_file_type ON chunks(file_type)`)
	return err
}

// CreateIndex creates the vec0 table for the given dimension. Idempotent
// for a matching dimension; a recorded different dimension fails with
// types.ErrConfigConflict.
func (s *Store) CreateIndex(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", types.ErrInvalidArgument, dimension)
	}

	var recorded string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM metadata WHERE key = 'dimension'`).Scan(&recorded)
	switch {
	case err == nil:
		prev, convErr := strconv.Atoi(recorded)
		if convErr != nil {
			return fmt.Errorf("corrupt metadata dimension %q: %w", recorded, convErr)
		}
		if prev != dimension {
			return fmt.Errorf("%w: index has dimension %d, requested %d",
				types.ErrConfigConflict, prev, dimension)
		}
		s.dimension = dimension
		return nil
	case err != sql.ErrNoRows:
		return fmt.Errorf("read metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS chunk_embeddings USING vec0(
			chunk_id TEXT PRIMARY KEY,
			embedding float[%d] distance_metric=cosine
		)
	`, dimension))
	if err != nil {
		return fmt.Errorf("create vector table: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO metadata (key, value) VALUES ('dimension', ?)`,
		strconv.Itoa(dimension))
	if err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	s.dimension = dimension
	return nil
}

// Upsert writes or overwrites one record keyed by its chunk identity.
func (s *Store) Upsert(ctx context.Context, rec *types.EmbeddingRecord) error {
	dim, err := s.provisionedDimension(ctx)
	if err != nil {
		return err
	}
	if len(rec.Embedding) != dim {
		return fmt.Errorf("%w: got %d, store expects %d",
			types.ErrDimensionMismatch, len(rec.Embedding), dim)
	}

	embBytes, err := sqlite_vec.SerializeFloat32(rec.Embedding)
	if err != nil {
		return fmt.Errorf("serialize embedding: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	id := rec.ID()
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO chunks
		(id, document_name, text, page_number, chunk_index, source, file_type, embedding_model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, rec.DocumentName, rec.Text, rec.PageNumber, rec.ChunkIndex,
		rec.Source, string(rec.FileType), rec.EmbeddingModel, createdAt)
	if err != nil {
		return fmt.Errorf("store chunk %s: %w", id, err)
	}

	// vec0 virtual tables reject INSERT OR REPLACE; delete then insert.
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_embeddings WHERE chunk_id = ?`, id); err != nil {
		return fmt.Errorf("clear embedding for %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chunk_embeddings (chunk_id, embedding) VALUES (?, ?)
	`, id, embBytes); err != nil {
		return fmt.Errorf("store embedding for %s: %w", id, err)
	}

	return tx.Commit()
}

// Search runs KNN inside SQLite. vec0 MATCH cannot see the joined chunk
// columns, so a file type filter over-fetches and trims after the join.
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

	queryBytes, err := sqlite_vec.SerializeFloat32(queryVec)
	if err != nil {
		return nil, fmt.Errorf("serialize query: %w", err)
	}

	fetchK := topK
	if fileType != "" {
		var total int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&total); err != nil {
			return nil, fmt.Errorf("count chunks: %w", err)
		}
		fetchK = total
	}
	if fetchK == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.document_name, c.text, c.page_number, c.chunk_index, c.source, c.file_type, e.distance
		FROM chunk_embeddings e
		JOIN chunks c ON c.id = e.chunk_id
		WHERE e.embedding MATCH ? AND e.k = ?
		ORDER BY e.distance
	`, queryBytes, fetchK)
	if err != nil {
		return nil, fmt.Errorf("knn query: %w", err)
	}
	defer rows.Close()

	var results []types.SearchResult
	for rows.Next() {
		var chunk types.Chunk
		var ft string
		var distance float64
		if err := rows.Scan(&chunk.DocumentName, &chunk.Text, &chunk.PageNumber,
			&chunk.ChunkIndex, &chunk.Source, &ft, &distance); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		chunk.FileType = types.FileType(ft)
		if fileType != "" && chunk.FileType != fileType {
			continue
		}
		results = append(results, types.SearchResult{Chunk: chunk, Score: 1 - distance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knn rows: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkIndex < results[j].ChunkIndex
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteBySource removes every record of the given source document.
func (s *Store) DeleteBySource(ctx context.Context, source string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM chunk_embeddings WHERE chunk_id IN (SELECT id FROM chunks WHERE source = ?)
	`, source); err != nil {
		return fmt.Errorf("delete embeddings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source = ?`, source); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return tx.Commit()
}

// Stats returns total and per-file-type chunk counts.
func (s *Store) Stats(ctx context.Context) (*types.StoreStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_type, COUNT(*) FROM chunks GROUP BY file_type
	`)
	if err != nil {
		return nil, fmt.Errorf("stats query: %w", err)
	}
	defer rows.Close()

	stats := &types.StoreStats{ByFileType: make(map[types.FileType]int)}
	for rows.Next() {
		var ft string
		var count int
		if err := rows.Scan(&ft, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByFileType[types.FileType(ft)] = count
		stats.TotalChunks += count
	}
	return stats, rows.Err()
}

// Ping verifies the database file is usable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", types.ErrBackendUnavailable, err)
	}
	return nil
}

// Exec runs one bootstrap statement as raw SQL.
func (s *Store) Exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: empty command", types.ErrInvalidArgument)
	}
	stmt := strings.Join(args, " ")
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqlite exec: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// provisionedDimension returns the dimension recorded at CreateIndex,
// loading it from metadata when the table was provisioned by an earlier
// run.
func (s *Store) provisionedDimension(ctx context.Context) (int, error) {
	if s.dimension > 0 {
		return s.dimension, nil
	}

	var recorded string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM metadata WHERE key = 'dimension'`).Scan(&recorded)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: vector index not provisioned", types.ErrInvalidConfig)
	}
	if err != nil {
		return 0, fmt.Errorf("read metadata: %w", err)
	}

	dim, err := strconv.Atoi(recorded)
	if err != nil {
		return 0, fmt.Errorf("corrupt metadata dimension %q: %w", recorded, err)
	}
	s.dimension = dim
	return dim, nil
}

// Ensure Store implements the interfaces
var (
	_ provider.VectorStore     = (*Store)(nil)
	_ provider.CommandExecutor = (*Store)(nil)
)
