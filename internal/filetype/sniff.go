// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filetype identifies candidate files and decides which workflows
// accept them.
package filetype

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/convertly/pkg/types"
)

// Kind identifies a container format recognized from its leading bytes.
type Kind int

const (
	KindUnknown Kind = iota
	KindPDF
	KindJPEG
	KindPNG
	KindGIF
	KindWebP
	KindBMP
	KindTIFF
	// KindOLE2 is the compound document container of legacy .doc and .xls.
	KindOLE2
	// KindZIP is the container of .docx and .xlsx.
	KindZIP
)

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindJPEG:
		return "jpeg"
	case KindPNG:
		return "png"
	case KindGIF:
		return "gif"
	case KindWebP:
		return "webp"
	case KindBMP:
		return "bmp"
	case KindTIFF:
		return "tiff"
	case KindOLE2:
		return "ole2"
	case KindZIP:
		return "zip"
	default:
		return "unknown"
	}
}

// headerLen is the number of leading bytes inspected.
const headerLen = 12

var (
	pdfSig    = []byte("%PDF-")
	pngSig    = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	jpegSig   = []byte{0xff, 0xd8, 0xff}
	gifSig    = []byte("GIF8")
	riffSig   = []byte("RIFF")
	webpSig   = []byte("WEBP")
	bmpSig    = []byte("BM")
	tiffSigLE = []byte{0x49, 0x49, 0x2a, 0x00}
	tiffSigBE = []byte{0x4d, 0x4d, 0x00, 0x2a}
	ole2Sig   = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}
	zipSig    = []byte{0x50, 0x4b, 0x03, 0x04}
)

// DetectHeader inspects leading bytes for known signatures. Short headers
// are matched as far as they go; an empty header is KindUnknown.
func DetectHeader(header []byte) Kind {
	switch {
	case bytes.HasPrefix(header, pdfSig):
		return KindPDF
	case bytes.HasPrefix(header, jpegSig):
		return KindJPEG
	case bytes.HasPrefix(header, pngSig):
		return KindPNG
	case bytes.HasPrefix(header, gifSig):
		return KindGIF
	case len(header) >= 12 && bytes.HasPrefix(header, riffSig) && bytes.Equal(header[8:12], webpSig):
		return KindWebP
	case bytes.HasPrefix(header, tiffSigLE) || bytes.HasPrefix(header, tiffSigBE):
		return KindTIFF
	case bytes.HasPrefix(header, ole2Sig):
		return KindOLE2
	case bytes.HasPrefix(header, zipSig):
		return KindZIP
	case bytes.HasPrefix(header, bmpSig):
		return KindBMP
	}
	return KindUnknown
}

// SniffReader reads up to headerLen bytes from r and determines its kind.
func SniffReader(r io.Reader) (Kind, error) {
	header := make([]byte, headerLen)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return KindUnknown, err
	}
	return DetectHeader(header[:n]), nil
}

// Inspect stats and sniffs the file at path and returns it as a
// SourceFile ready for a registry.
func Inspect(path string) (types.SourceFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.SourceFile{}, err
	}
	if info.IsDir() {
		return types.SourceFile{}, fmt.Errorf("%s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return types.SourceFile{}, err
	}
	defer f.Close()

	kind, err := SniffReader(f)
	if err != nil {
		return types.SourceFile{}, fmt.Errorf("sniffing %s: %w", path, err)
	}

	name := filepath.Base(path)
	return types.SourceFile{
		Path:        path,
		Name:        name,
		Size:        info.Size(),
		ContentType: ContentType(kind, name),
	}, nil
}

// extTypes maps lower-case extensions to MIME types. Used when the leading
// bytes are ambiguous (ZIP, OLE2) or unrecognized.
var extTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".doc":  MIMEWord,
	".docx": MIMEWordOpenXML,
	".xls":  MIMEExcel,
	".xlsx": MIMEExcelOpenXML,
}

// Office MIME types.
const (
	MIMEWord         = "application/msword"
	MIMEWordOpenXML  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEExcel        = "application/vnd.ms-excel"
	MIMEExcelOpenXML = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ContentType picks a MIME type from the sniffed kind, falling back to the
// file extension and then to application/octet-stream.
func ContentType(kind Kind, name string) string {
	switch kind {
	case KindPDF:
		return "application/pdf"
	case KindJPEG:
		return "image/jpeg"
	case KindPNG:
		return "image/png"
	case KindGIF:
		return "image/gif"
	case KindWebP:
		return "image/webp"
	case KindBMP:
		return "image/bmp"
	case KindTIFF:
		return "image/tiff"
	}
	if ct, ok := extTypes[Ext(name)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Ext returns the lower-case extension of name including the dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}
