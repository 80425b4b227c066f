package sqlitevec

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/spetr/docvec/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(context.Background(), Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func record(source string, page, index int, ft types.FileType, embedding []float32) *types.EmbeddingRecord {
	return &types.EmbeddingRecord{
		Chunk: types.Chunk{
			DocumentName: filepath.Base(source),
			Text:         "chunk text",
			PageNumber:   page,
			ChunkIndex:   index,
			Source:       source,
			FileType:     ft,
		},
		Embedding:      embedding,
		EmbeddingModel: "static-hash",
	}
}

func TestCreateIndexIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateIndex(ctx, 4); err != nil {
		t.Fatalf("first CreateIndex() error = %v", err)
	}
	if err := s.CreateIndex(ctx, 4); err != nil {
		t.Fatalf("repeat CreateIndex() error = %v", err)
	}
}

func TestCreateIndexDimensionConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateIndex(ctx, 4); err != nil {
		t.Fatalf("CreateIndex() error = %v", err)
	}
	err := s.CreateIndex(ctx, 8)
	if !errors.Is(err, types.ErrConfigConflict) {
		t.Errorf("error = %v, want ErrConfigConflict", err)
	}
}

func TestUpsertDimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateIndex(ctx, 4); err != nil {
		t.Fatal(err)
	}

	err := s.Upsert(ctx, record("a.txt", 1, 0, types.FileTypeTXT, []float32{1, 2}))
	if !errors.Is(err, types.ErrDimensionMismatch) {
		t.Errorf("error = %v, want ErrDimensionMismatch", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalChunks != 0 {
		t.Errorf("store changed by rejected upsert: %d chunks", stats.TotalChunks)
	}
}

func TestUpsertBeforeCreateIndex(t *testing.T) {
	s := newTestStore(t)

	err := s.Upsert(context.Background(), record("a.txt", 1, 0, types.FileTypeTXT, []float32{1, 0, 0, 0}))
	if !errors.Is(err, types.ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestSearchRanking(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateIndex(ctx, 4); err != nil {
		t.Fatal(err)
	}

	vectors := [][]float32{
		{1, 0, 0, 0},       // exact match
		{0.9, 0.1, 0, 0},   // close
		{0, 1, 0, 0},       // orthogonal
	}
	for i, vec := range vectors {
		if err := s.Upsert(ctx, record("doc.pdf", 1, i, types.FileTypePDF, vec)); err != nil {
			t.Fatalf("Upsert(%d) error = %v", i, err)
		}
	}

	results, err := s.Search(ctx, []float32{1, 0, 0, 0}, 2, "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ChunkIndex != 0 {
		t.Errorf("top result chunk index = %d, want 0", results[0].ChunkIndex)
	}
	if math.Abs(results[0].Score-1.0) > 1e-5 {
		t.Errorf("top score = %v, want 1.0", results[0].Score)
	}
	if results[1].ChunkIndex != 1 {
		t.Errorf("second result chunk index = %d, want 1", results[1].ChunkIndex)
	}
	if results[0].Score < results[1].Score {
		t.Error("results not in descending score order")
	}
}

func TestSearchFileTypeFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateIndex(ctx, 4); err != nil {
		t.Fatal(err)
	}

	if err := s.Upsert(ctx, record("a.pdf", 1, 0, types.FileTypePDF, []float32{1, 0, 0, 0})); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, record("b.txt", 1, 0, types.FileTypeTXT, []float32{1, 0, 0, 0})); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(ctx, []float32{1, 0, 0, 0}, 10, types.FileTypeTXT)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].FileType != types.FileTypeTXT {
		t.Errorf("file type = %q, want txt", results[0].FileType)
	}
}

func TestSearchInvalidArguments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateIndex(ctx, 4); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Search(ctx, []float32{1, 0, 0, 0}, 0, ""); !errors.Is(err, types.ErrInvalidArgument) {
		t.Errorf("topK=0 error = %v, want ErrInvalidArgument", err)
	}
	if _, err := s.Search(ctx, []float32{1, 0, 0, 0}, 5, "pptx"); !errors.Is(err, types.ErrInvalidArgument) {
		t.Errorf("bad file type error = %v, want ErrInvalidArgument", err)
	}
	if _, err := s.Search(ctx, []float32{1, 0}, 5, ""); !errors.Is(err, types.ErrDimensionMismatch) {
		t.Errorf("short query error = %v, want ErrDimensionMismatch", err)
	}
}

func TestUpsertOverwritesByIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateIndex(ctx, 4); err != nil {
		t.Fatal(err)
	}

	rec := record("doc.txt", 1, 0, types.FileTypeTXT, []float32{1, 0, 0, 0})
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatal(err)
	}

	rec.Text = "updated text"
	rec.Embedding = []float32{0, 1, 0, 0}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatal(err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalChunks != 1 {
		t.Fatalf("got %d chunks, want 1 after overwrite", stats.TotalChunks)
	}

	results, err := s.Search(ctx, []float32{0, 1, 0, 0}, 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Text != "updated text" {
		t.Errorf("overwritten chunk not returned: %+v", results)
	}
}

func TestDeleteBySource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateIndex(ctx, 4); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := s.Upsert(ctx, record("gone.txt", 1, i, types.FileTypeTXT, []float32{1, 0, 0, 0})); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Upsert(ctx, record("kept.pdf", 1, 0, types.FileTypePDF, []float32{0, 1, 0, 0})); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteBySource(ctx, "gone.txt"); err != nil {
		t.Fatalf("DeleteBySource() error = %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalChunks != 1 {
		t.Errorf("got %d chunks, want 1", stats.TotalChunks)
	}
	if stats.ByFileType[types.FileTypeTXT] != 0 {
		t.Errorf("txt count = %d, want 0", stats.ByFileType[types.FileTypeTXT])
	}
}

func TestStatsByFileType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateIndex(ctx, 4); err != nil {
		t.Fatal(err)
	}

	if err := s.Upsert(ctx, record("a.pdf", 1, 0, types.FileTypePDF, []float32{1, 0, 0, 0})); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, record("a.pdf", 2, 1, types.FileTypePDF, []float32{0, 1, 0, 0})); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, record("b.txt", 1, 0, types.FileTypeTXT, []float32{0, 0, 1, 0})); err != nil {
		t.Fatal(err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalChunks != 3 {
		t.Errorf("total = %d, want 3", stats.TotalChunks)
	}
	if stats.ByFileType[types.FileTypePDF] != 2 {
		t.Errorf("pdf = %d, want 2", stats.ByFileType[types.FileTypePDF])
	}
	if stats.ByFileType[types.FileTypeTXT] != 1 {
		t.Errorf("txt = %d, want 1", stats.ByFileType[types.FileTypeTXT])
	}
}

func TestExecRunsSQL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Exec(ctx, []string{"CREATE", "TABLE", "bootstrap_probe", "(id", "INTEGER)"}); err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if err := s.Exec(ctx, nil); !errors.Is(err, types.ErrInvalidArgument) {
		t.Errorf("empty command error = %v, want ErrInvalidArgument", err)
	}
}
