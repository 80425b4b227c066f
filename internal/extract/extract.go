// Package extract turns source documents into per-page plain text.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spetr/docvec/pkg/types"
)

// Extractor extracts the pages of one document format.
type Extractor interface {
	// Extract returns the pages of the document at path, in order.
	// Formats without a page concept return a single page numbered 1.
	Extract(path string) ([]types.Page, error)
}

var extractors = map[types.FileType]Extractor{
	types.FileTypePDF:  &pdfExtractor{},
	types.FileTypeTXT:  &textExtractor{},
	types.FileTypeDOCX: &docxExtractor{},
}

// DetectFileType maps a file path to its document type by extension.
// Returns an empty type for unsupported extensions.
func DetectFileType(path string) types.FileType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return types.FileTypePDF
	case ".txt":
		return types.FileTypeTXT
	case ".docx":
		return types.FileTypeDOCX
	default:
		return ""
	}
}

// Extract extracts the text of the document at path using the extractor
// for its detected type. Unsupported and unreadable files fail with
// types.ErrExtraction so callers can skip them and continue a batch.
func Extract(path string) ([]types.Page, types.FileType, error) {
	ft := DetectFileType(path)
	if ft == "" {
		return nil, "", fmt.Errorf("%w: unsupported file type %q", types.ErrExtraction, filepath.Ext(path))
	}

	pages, err := extractors[ft].Extract(path)
	if err != nil {
		return nil, ft, fmt.Errorf("%w: %s: %v", types.ErrExtraction, filepath.Base(path), err)
	}
	return pages, ft, nil
}
