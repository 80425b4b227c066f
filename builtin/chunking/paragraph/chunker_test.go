package paragraph

import (
	"strings"
	"testing"

	"github.com/spetr/docvec/pkg/types"
)

func TestChunkTwoParagraphs(t *testing.T) {
	c := New(Config{})

	pages := []types.Page{
		{Number: 1, Text: "First paragraph.\n\nSecond paragraph."},
	}

	chunks, err := c.Chunk(pages)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Text != "First paragraph." || chunks[0].ChunkIndex != 0 {
		t.Errorf("chunk 0 = %q index %d", chunks[0].Text, chunks[0].ChunkIndex)
	}
	if chunks[1].Text != "Second paragraph." || chunks[1].ChunkIndex != 1 {
		t.Errorf("chunk 1 = %q index %d", chunks[1].Text, chunks[1].ChunkIndex)
	}
}

func TestChunkIndexContinuesAcrossPages(t *testing.T) {
	c := New(Config{})

	pages := []types.Page{
		{Number: 1, Text: "Page one, para one.\n\nPage one, para two."},
		{Number: 2, Text: "Page two, para one."},
	}

	chunks, err := c.Chunk(pages)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	wantIndex := []int{0, 1, 2}
	wantPage := []int{1, 1, 2}
	for i, chunk := range chunks {
		if chunk.ChunkIndex != wantIndex[i] {
			t.Errorf("chunk %d index = %d, want %d", i, chunk.ChunkIndex, wantIndex[i])
		}
		if chunk.PageNumber != wantPage[i] {
			t.Errorf("chunk %d page = %d, want %d", i, chunk.PageNumber, wantPage[i])
		}
	}
}

func TestChunkDropsWhitespaceOnly(t *testing.T) {
	c := New(Config{})

	pages := []types.Page{
		{Number: 1, Text: "Real content.\n\n   \t  \n\nMore content."},
	}

	chunks, err := c.Chunk(pages)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2 (whitespace paragraph dropped)", len(chunks))
	}
	if chunks[1].ChunkIndex != 1 {
		t.Errorf("second chunk index = %d, want 1 (no gap for dropped paragraph)", chunks[1].ChunkIndex)
	}
}

func TestChunkEmptyDocument(t *testing.T) {
	c := New(Config{})

	chunks, err := c.Chunk([]types.Page{{Number: 1, Text: "   \n\n  "}})
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("got %d chunks, want 0", len(chunks))
	}
}

func TestChunkHardSplitsOversizedParagraph(t *testing.T) {
	c := New(Config{MaxChunkSize: 20})

	long := "alpha beta gamma delta epsilon zeta eta theta"
	chunks, err := c.Chunk([]types.Page{{Number: 1, Text: long}})
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want >= 2", len(chunks))
	}

	var rebuilt []string
	for i, chunk := range chunks {
		if len(chunk.Text) > 20 {
			t.Errorf("chunk %d length %d exceeds limit", i, len(chunk.Text))
		}
		if chunk.ChunkIndex != i {
			t.Errorf("chunk %d index = %d", i, chunk.ChunkIndex)
		}
		rebuilt = append(rebuilt, chunk.Text)
	}
	if got := strings.Join(rebuilt, " "); got != long {
		t.Errorf("pieces do not rebuild paragraph:\ngot  %q\nwant %q", got, long)
	}
}

func TestChunkHardSplitsUnbrokenToken(t *testing.T) {
	c := New(Config{MaxChunkSize: 10})

	token := strings.Repeat("x", 25)
	chunks, err := c.Chunk([]types.Page{{Number: 1, Text: token}})
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	total := 0
	for i, chunk := range chunks {
		if len(chunk.Text) > 10 {
			t.Errorf("chunk %d length %d exceeds limit", i, len(chunk.Text))
		}
		total += len(chunk.Text)
	}
	if total != 25 {
		t.Errorf("total chars = %d, want 25", total)
	}
}

func TestChunkDeterministic(t *testing.T) {
	c := New(Config{MaxChunkSize: 30})

	pages := []types.Page{
		{Number: 1, Text: "one two three four five six seven eight nine ten\n\nshort"},
	}

	first, err := c.Chunk(pages)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	second, err := c.Chunk(pages)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}
