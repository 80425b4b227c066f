package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/spetr/docvec/pkg/types"
)

// docxExtractor pulls paragraph text out of the OOXML main document part.
// DOCX has no fixed page concept before layout, so the whole document is
// returned as a single page numbered 1. Legacy binary .doc is not
// supported.
type docxExtractor struct{}

func (e *docxExtractor) Extract(path string) ([]types.Page, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("word/document.xml missing")
	}

	rc, err := doc.Open()
	if err != nil {
		return nil, fmt.Errorf("open document part: %w", err)
	}
	defer rc.Close()

	text, err := parseDocumentXML(rc)
	if err != nil {
		return nil, err
	}
	return []types.Page{{Number: 1, Text: text}}, nil
}

// parseDocumentXML streams the WordprocessingML body, collecting the
// character data of <w:t> runs. Paragraph ends (<w:p>) become blank lines
// so the paragraph chunker sees the same boundaries the author wrote.
func parseDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var sb strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n\n")
			case "br", "cr":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return strings.TrimSpace(sb.String()), nil
}
