// Package types contains shared data types used across the docvec project.
package types

import (
	"fmt"
	"time"
)

// FileType identifies the source document format of a chunk.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeTXT  FileType = "txt"
	FileTypeDOCX FileType = "docx"
)

// FileTypes lists every supported file type, in stats/reporting order.
var FileTypes = []FileType{FileTypePDF, FileTypeTXT, FileTypeDOCX}

// ValidFileType reports whether ft names a supported file type.
func ValidFileType(ft FileType) bool {
	for _, t := range FileTypes {
		if t == ft {
			return true
		}
	}
	return false
}

// Page is one unit of extracted text. Formats without a page concept
// (txt, docx) produce a single page numbered 1.
type Page struct {
	Number int    // 1-based page number
	Text   string // raw extracted text
}

// Chunk is the atomic retrievable unit of a document.
type Chunk struct {
	DocumentName string   // display name, usually the file basename
	Text         string   // non-empty chunk text
	PageNumber   int      // 1-based; 1 when the format has no pages
	ChunkIndex   int      // document-wide insertion order, starting at 0
	Source       string   // path the document was read from
	FileType     FileType // pdf, txt, docx
}

// ID returns the identity key of the chunk. Re-processing the same source
// with the same chunking configuration yields the same key, so upserts
// overwrite instead of duplicating.
func (c *Chunk) ID() string {
	return fmt.Sprintf("%s:%d:%d", c.Source, c.PageNumber, c.ChunkIndex)
}

// EmbeddingRecord is a Chunk plus its vector and embedding metadata.
// This is the logical record shape both backends persist and round-trip.
type EmbeddingRecord struct {
	Chunk
	Embedding          []float32 // length must equal the store's configured dimension
	EmbeddingModel     string    // model tag, e.g. "all-minilm"
	EmbeddingDimension int       // == len(Embedding)
	CreatedAt          time.Time // set at embedding time
}

// SearchResult is a matching chunk with its similarity score.
type SearchResult struct {
	Chunk
	Score float64 // cosine similarity, higher is better
}

// StoreStats summarizes what a vector store holds.
type StoreStats struct {
	TotalChunks int
	ByFileType  map[FileType]int
}

// ProcessResult reports the outcome of vectorizing one document.
type ProcessResult struct {
	DocumentName  string
	Source        string
	FileType      FileType
	TotalChunks   int
	StoredChunks  int
	SkippedChunks int
	Dimension     int
}

// BatchResult aggregates a directory run.
type BatchResult struct {
	Documents        int
	DocumentsSkipped int
	ChunksStored     int
	ChunksSkipped    int
	Duration         time.Duration
}
