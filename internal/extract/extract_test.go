package extract

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spetr/docvec/pkg/types"
)

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		path string
		want types.FileType
	}{
		{"report.pdf", types.FileTypePDF},
		{"notes.TXT", types.FileTypeTXT},
		{"contract.docx", types.FileTypeDOCX},
		{"/abs/path/Deep.PDF", types.FileTypePDF},
		{"legacy.doc", ""},
		{"image.png", ""},
		{"noext", ""},
	}

	for _, tt := range tests {
		if got := DetectFileType(tt.path); got != tt.want {
			t.Errorf("DetectFileType(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestExtractText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.txt")
	content := "First paragraph.\n\nSecond paragraph."
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	pages, ft, err := Extract(path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if ft != types.FileTypeTXT {
		t.Errorf("file type = %q, want txt", ft)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	if pages[0].Number != 1 {
		t.Errorf("page number = %d, want 1", pages[0].Number)
	}
	if pages[0].Text != content {
		t.Errorf("page text = %q, want %q", pages[0].Text, content)
	}
}

func TestExtractUnsupported(t *testing.T) {
	_, _, err := Extract("presentation.pptx")
	if !errors.Is(err, types.ErrExtraction) {
		t.Errorf("error = %v, want ErrExtraction", err)
	}
}

func TestExtractMissingFile(t *testing.T) {
	_, _, err := Extract(filepath.Join(t.TempDir(), "gone.txt"))
	if !errors.Is(err, types.ErrExtraction) {
		t.Errorf("error = %v, want ErrExtraction", err)
	}
}

func TestExtractDocx(t *testing.T) {
	path := writeTestDocx(t, `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Hello </w:t></w:r><w:r><w:t>world.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	pages, ft, err := Extract(path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if ft != types.FileTypeDOCX {
		t.Errorf("file type = %q, want docx", ft)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}

	want := "Hello world.\n\nSecond paragraph."
	if pages[0].Text != want {
		t.Errorf("text = %q, want %q", pages[0].Text, want)
	}
}

func TestExtractDocxMissingDocumentPart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/styles.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("<styles/>")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	_, _, err = Extract(path)
	if !errors.Is(err, types.ErrExtraction) {
		t.Errorf("error = %v, want ErrExtraction", err)
	}
}

func TestExtractDocxCorruptArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.docx")
	if err := os.WriteFile(path, []byte("not a zip archive"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := Extract(path)
	if !errors.Is(err, types.ErrExtraction) {
		t.Errorf("error = %v, want ErrExtraction", err)
	}
}

func writeTestDocx(t *testing.T, documentXML string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sample.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}
