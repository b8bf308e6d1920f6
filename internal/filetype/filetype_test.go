// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filetype

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/convertly/pkg/types"
)

func TestDetectHeader(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   Kind
	}{
		{"pdf", []byte("%PDF-1.7\n%"), KindPDF},
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0, 0, 0}, KindJPEG},
		{"png", []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}, KindPNG},
		{"gif", []byte("GIF89a"), KindGIF},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), KindWebP},
		{"riff not webp", []byte("RIFF\x00\x00\x00\x00WAVE"), KindUnknown},
		{"tiff little endian", []byte{0x49, 0x49, 0x2a, 0x00, 8, 0, 0, 0}, KindTIFF},
		{"tiff big endian", []byte{0x4d, 0x4d, 0x00, 0x2a, 0, 0, 0, 8}, KindTIFF},
		{"bmp", []byte("BM\x00\x00"), KindBMP},
		{"ole2", []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}, KindOLE2},
		{"zip", []byte{0x50, 0x4b, 0x03, 0x04, 0x14, 0}, KindZIP},
		{"empty", nil, KindUnknown},
		{"text", []byte("hello world"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectHeader(tt.header))
		})
	}
}

func TestSniffReader_ShortInput(t *testing.T) {
	kind, err := SniffReader(bytes.NewReader([]byte("%PDF-")))
	require.NoError(t, err)
	assert.Equal(t, KindPDF, kind)

	kind, err = SniffReader(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, kind)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", ContentType(KindPNG, "photo.dat"))
	assert.Equal(t, MIMEWordOpenXML, ContentType(KindZIP, "Report.DOCX"))
	assert.Equal(t, MIMEExcel, ContentType(KindOLE2, "ledger.xls"))
	assert.Equal(t, "image/jpeg", ContentType(KindUnknown, "holiday.JPG"))
	assert.Equal(t, "application/octet-stream", ContentType(KindUnknown, "notes.txt"))
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644))

	f, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Path)
	assert.Equal(t, "scan.pdf", f.Name)
	assert.Equal(t, int64(13), f.Size)
	assert.Equal(t, "application/pdf", f.ContentType)

	_, err = Inspect(dir)
	assert.Error(t, err)

	_, err = Inspect(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestPredicates(t *testing.T) {
	png := types.SourceFile{Name: "a.png", ContentType: "image/png"}
	pdf := types.SourceFile{Name: "B.PDF", ContentType: "application/pdf"}
	pdfNoExt := types.SourceFile{Name: "scan", ContentType: "application/pdf"}
	docx := types.SourceFile{Name: "c.docx", ContentType: MIMEWordOpenXML}
	doc := types.SourceFile{Name: "d.doc", ContentType: "application/octet-stream"}
	xlsx := types.SourceFile{Name: "e.xlsx", ContentType: "application/octet-stream"}
	txt := types.SourceFile{Name: "f.txt", ContentType: "text/plain"}

	tests := []struct {
		name string
		p    Predicate
		f    types.SourceFile
		want bool
	}{
		{"image png", Image, png, true},
		{"image pdf", Image, pdf, false},
		{"pdf upper ext", PDF, pdf, true},
		{"pdf by name only", PDF, pdfNoExt, false},
		{"word docx", Word, docx, true},
		{"word doc by ext", Word, doc, true},
		{"word txt", Word, txt, false},
		{"excel xlsx by ext", Excel, xlsx, true},
		{"excel docx", Excel, docx, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p(tt.f))
		})
	}
}

func TestPredicateFilter(t *testing.T) {
	files := []types.SourceFile{
		{Name: "1.pdf"}, {Name: "2.txt"}, {Name: "3.pdf"},
	}
	got := Predicate(PDF).Filter(files)
	require.Len(t, got, 2)
	assert.Equal(t, "1.pdf", got[0].Name)
	assert.Equal(t, "3.pdf", got[1].Name)

	assert.Empty(t, Predicate(PDF).Filter([]types.SourceFile{{Name: "x.doc"}}))
}
