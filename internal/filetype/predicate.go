// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filetype

import (
	"strings"

	"github.com/pdiddy/convertly/pkg/types"
)

// Predicate decides whether a workflow accepts a file.
type Predicate func(types.SourceFile) bool

// Image accepts any file whose content type is an image type.
func Image(f types.SourceFile) bool {
	return strings.HasPrefix(f.ContentType, "image/")
}

// PDF accepts files named *.pdf, case-insensitively.
func PDF(f types.SourceFile) bool {
	return Ext(f.Name) == ".pdf"
}

// Word accepts Word documents by content type or by .doc/.docx name.
func Word(f types.SourceFile) bool {
	if f.ContentType == MIMEWord || f.ContentType == MIMEWordOpenXML {
		return true
	}
	ext := Ext(f.Name)
	return ext == ".doc" || ext == ".docx"
}

// Excel accepts workbooks by content type or by .xls/.xlsx name.
func Excel(f types.SourceFile) bool {
	if f.ContentType == MIMEExcel || f.ContentType == MIMEExcelOpenXML {
		return true
	}
	ext := Ext(f.Name)
	return ext == ".xls" || ext == ".xlsx"
}

// Filter returns the files accepted by p, preserving order.
func (p Predicate) Filter(files []types.SourceFile) []types.SourceFile {
	var out []types.SourceFile
	for _, f := range files {
		if p(f) {
			out = append(out, f)
		}
	}
	return out
}
