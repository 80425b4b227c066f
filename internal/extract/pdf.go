package extract

import (
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/spetr/docvec/pkg/types"
)

// pdfExtractor extracts plain text per page. Pages are numbered from 1,
// matching the numbering stored on chunk identities.
type pdfExtractor struct{}

func (e *pdfExtractor) Extract(path string) ([]types.Page, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := rdr.NumPage()
	pages := make([]types.Page, 0, total)

	for i := 1; i <= total; i++ {
		page := rdr.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single malformed page should not sink the whole document.
			continue
		}
		pages = append(pages, types.Page{Number: i, Text: text})
	}

	return pages, nil
}
