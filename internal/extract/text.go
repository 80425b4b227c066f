package extract

import (
	"fmt"
	"os"

	"github.com/spetr/docvec/pkg/types"
)

// textExtractor reads a plain text file as a single page numbered 1.
type textExtractor struct{}

func (e *textExtractor) Extract(path string) ([]types.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	return []types.Page{{Number: 1, Text: string(data)}}, nil
}
