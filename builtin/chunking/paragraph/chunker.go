// Package paragraph implements blank-line paragraph chunking for extracted
// document text.
package paragraph

import (
	"strings"
	"unicode"

	"github.com/spetr/docvec/pkg/provider"
	"github.com/spetr/docvec/pkg/types"
)

// Default values
const (
	DefaultMaxChunkSize = 2000 // max chars per chunk before hard-splitting
)

// Config contains configuration for paragraph chunking.
type Config struct {
	MaxChunkSize int // Maximum chunk size in characters
}

// Chunker splits page text on blank-line boundaries. Each paragraph becomes
// one chunk; oversized paragraphs are hard-split at the whitespace boundary
// nearest the size limit.
type Chunker struct {
	config Config
}

// New creates a new paragraph chunker.
func New(cfg Config) *Chunker {
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = DefaultMaxChunkSize
	}
	return &Chunker{config: cfg}
}

// Name returns the strategy name.
func (c *Chunker) Name() string {
	return "paragraph"
}

// Chunk splits the pages of one document into paragraph chunks.
// ChunkIndex is a single counter over the whole document starting at 0; it
// is never reset per page, so the (source, page, index) identity stays
// stable across re-processing.
func (c *Chunker) Chunk(pages []types.Page) ([]types.Chunk, error) {
	var chunks []types.Chunk
	index := 0

	for _, page := range pages {
		text := strings.ReplaceAll(page.Text, "\r\n", "\n")
		for _, para := range strings.Split(text, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			for _, piece := range c.split(para) {
				chunks = append(chunks, types.Chunk{
					Text:       piece,
					PageNumber: page.Number,
					ChunkIndex: index,
				})
				index++
			}
		}
	}

	return chunks, nil
}

// split hard-splits an oversized paragraph. Break points prefer the last
// whitespace run at or before the limit so words stay intact; a single
// unbroken token longer than the limit is cut mid-token.
func (c *Chunker) split(para string) []string {
	max := c.config.MaxChunkSize
	if len(para) <= max {
		return []string{para}
	}

	var pieces []string
	rest := para
	for len(rest) > max {
		cut := lastSpaceBefore(rest, max)
		if cut <= 0 {
			cut = max
		}
		piece := strings.TrimSpace(rest[:cut])
		if piece != "" {
			pieces = append(pieces, piece)
		}
		rest = strings.TrimLeftFunc(rest[cut:], unicode.IsSpace)
	}
	if rest = strings.TrimSpace(rest); rest != "" {
		pieces = append(pieces, rest)
	}
	return pieces
}

// lastSpaceBefore returns the byte offset of the last whitespace at or
// before limit, or -1 when there is none.
func lastSpaceBefore(s string, limit int) int {
	for i := limit; i > 0; i-- {
		if unicode.IsSpace(rune(s[i-1])) {
			return i - 1
		}
	}
	return -1
}

// Ensure Chunker implements ChunkingStrategy interface
var _ provider.ChunkingStrategy = (*Chunker)(nil)
