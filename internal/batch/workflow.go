// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/convertly/internal/filetype"
	"github.com/pdiddy/convertly/internal/registry"
	"github.com/pdiddy/convertly/internal/service"
)

// ErrUnknownWorkflow is returned by Lookup for names not in the catalog.
var ErrUnknownWorkflow = errors.New("unknown workflow")

// Params holds the user-chosen options of a batch action. Each workflow
// reads only the fields it needs.
type Params struct {
	// Angle is the clockwise rotation in degrees for pdf-rotate.
	Angle int `yaml:"angle,omitempty"`

	// Pages is the page selection for pdf-split, e.g. "1,3-5".
	Pages string `yaml:"pages,omitempty"`

	// TargetKB is the desired output size for compress-pdf.
	TargetKB int `yaml:"target_kb,omitempty"`

	// Quality is the JPEG quality (1-95) for compress-image.
	Quality int `yaml:"quality,omitempty"`

	// MaxWidth and MaxHeight bound the output image size for
	// compress-image, keeping the aspect ratio.
	MaxWidth  int `yaml:"max_width,omitempty"`
	MaxHeight int `yaml:"max_height,omitempty"`
}

// DefaultTargetKB is the compress-pdf target when none is given.
const DefaultTargetKB = 500

// Workflow describes one conversion action: which files it takes, how the
// registry collects them, and what request each dispatch sends.
type Workflow struct {
	Name        string
	Description string
	Endpoint    service.Endpoint

	// Accept filters candidate files; Accepts describes it for users.
	Accept  filetype.Predicate
	Accepts string

	// RejectMessage is the validation message when no file is accepted.
	RejectMessage string

	// Mode is the registry add mode.
	Mode registry.Mode

	// MinItems is the smallest batch the workflow can run.
	MinItems int

	// Combined workflows send every item in one request under the
	// "files" field and apply the single outcome to all items.
	Combined bool

	// DownloadName is the artifact name used when the service returns
	// bare bytes without a file name.
	DownloadName string

	fields func(Params) (map[string]string, error)
}

// Fields validates p and returns the form fields sent with each request.
func (w Workflow) Fields(p Params) (map[string]string, error) {
	if w.fields == nil {
		return map[string]string{}, nil
	}
	return w.fields(p)
}

// NewRegistry creates an empty registry configured for the workflow.
func (w Workflow) NewRegistry(opts ...registry.Option) *registry.Registry {
	opts = append([]registry.Option{registry.WithRejectMessage(w.RejectMessage)}, opts...)
	return registry.New(w.Accept, w.Mode, opts...)
}

var catalog = []Workflow{
	{
		Name:          "compress-image",
		Description:   "Compress images to JPEG",
		Endpoint:      service.EndpointImageCompress,
		Accept:        filetype.Image,
		Accepts:       "images",
		RejectMessage: "Please select image files",
		Mode:          registry.ModeAppend,
		MinItems:      1,
		DownloadName:  "output.jpg",
		fields:        imageFields,
	},
	{
		Name:          "word-to-excel",
		Description:   "Extract Word tables into an Excel workbook",
		Endpoint:      service.EndpointWordToExcel,
		Accept:        filetype.Word,
		Accepts:       ".doc, .docx",
		RejectMessage: "Please select .doc or .docx files",
		Mode:          registry.ModeAppend,
		MinItems:      1,
		DownloadName:  "output.xlsx",
	},
	{
		Name:          "excel-to-word",
		Description:   "Write the first Excel sheet into a Word document",
		Endpoint:      service.EndpointExcelToWord,
		Accept:        filetype.Excel,
		Accepts:       ".xls, .xlsx",
		RejectMessage: "Please select .xls or .xlsx files",
		Mode:          registry.ModeAppend,
		MinItems:      1,
		DownloadName:  "output.docx",
	},
	{
		Name:          "compress-pdf",
		Description:   "Compress PDFs toward a target size",
		Endpoint:      service.EndpointCompressPDF,
		Accept:        filetype.PDF,
		Accepts:       ".pdf",
		RejectMessage: "Please select PDF files",
		Mode:          registry.ModeAppend,
		MinItems:      1,
		DownloadName:  "output.pdf",
		fields:        compressPDFFields,
	},
	{
		Name:          "pdf-to-word",
		Description:   "Extract PDF text into a Word document",
		Endpoint:      service.EndpointPDFToWord,
		Accept:        filetype.PDF,
		Accepts:       ".pdf",
		RejectMessage: "Please select PDF files",
		Mode:          registry.ModeAppend,
		MinItems:      1,
		DownloadName:  "output.docx",
	},
	{
		Name:          "pdf-rotate",
		Description:   "Rotate every page of a PDF",
		Endpoint:      service.EndpointPDFEditor,
		Accept:        filetype.PDF,
		Accepts:       ".pdf (single file)",
		RejectMessage: "Please select PDF files",
		Mode:          registry.ModeReplace,
		MinItems:      1,
		DownloadName:  "output.pdf",
		fields:        rotateFields,
	},
	{
		Name:          "pdf-split",
		Description:   "Keep only the selected pages of a PDF",
		Endpoint:      service.EndpointPDFEditor,
		Accept:        filetype.PDF,
		Accepts:       ".pdf (single file)",
		RejectMessage: "Please select PDF files",
		Mode:          registry.ModeReplace,
		MinItems:      1,
		DownloadName:  "output.pdf",
		fields:        splitFields,
	},
	{
		Name:          "pdf-merge",
		Description:   "Merge PDFs in the order given",
		Endpoint:      service.EndpointPDFEditor,
		Accept:        filetype.PDF,
		Accepts:       ".pdf (two or more)",
		RejectMessage: "Please select PDF files",
		Mode:          registry.ModeAppend,
		MinItems:      2,
		Combined:      true,
		DownloadName:  "merged.pdf",
		fields: func(Params) (map[string]string, error) {
			return map[string]string{"action": "merge"}, nil
		},
	},
}

// Workflows returns the catalog in display order.
func Workflows() []Workflow {
	out := make([]Workflow, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a workflow by name.
func Lookup(name string) (Workflow, error) {
	for _, w := range catalog {
		if w.Name == name {
			return w, nil
		}
	}
	return Workflow{}, fmt.Errorf("%w: %q", ErrUnknownWorkflow, name)
}

// LookupEndpoint finds the first workflow that posts to endpoint.
func LookupEndpoint(endpoint string) (Workflow, error) {
	for _, w := range catalog {
		if string(w.Endpoint) == endpoint {
			return w, nil
		}
	}
	return Workflow{}, fmt.Errorf("%w: no workflow uses endpoint %q", ErrUnknownWorkflow, endpoint)
}

func imageFields(p Params) (map[string]string, error) {
	f := map[string]string{}
	if p.Quality != 0 {
		if p.Quality < 1 || p.Quality > 95 {
			return nil, fmt.Errorf("quality must be between 1 and 95, got %d", p.Quality)
		}
		f["quality"] = strconv.Itoa(p.Quality)
	}
	if p.MaxWidth < 0 || p.MaxHeight < 0 {
		return nil, fmt.Errorf("max width and height must not be negative")
	}
	if p.MaxWidth > 0 {
		f["max_width"] = strconv.Itoa(p.MaxWidth)
	}
	if p.MaxHeight > 0 {
		f["max_height"] = strconv.Itoa(p.MaxHeight)
	}
	return f, nil
}

func compressPDFFields(p Params) (map[string]string, error) {
	target := p.TargetKB
	if target < 0 {
		return nil, fmt.Errorf("target size must be positive, got %d KB", target)
	}
	if target == 0 {
		target = DefaultTargetKB
	}
	return map[string]string{"target_kb": strconv.Itoa(target)}, nil
}

func rotateFields(p Params) (map[string]string, error) {
	if p.Angle%90 != 0 {
		return nil, fmt.Errorf("angle must be a multiple of 90, got %d", p.Angle)
	}
	return map[string]string{
		"action": "rotate",
		"angle":  strconv.Itoa(p.Angle),
	}, nil
}

func splitFields(p Params) (map[string]string, error) {
	pages := strings.ReplaceAll(p.Pages, " ", "")
	if err := ValidatePages(pages); err != nil {
		return nil, err
	}
	return map[string]string{
		"action": "split",
		"pages":  pages,
	}, nil
}

var pagesPattern = regexp.MustCompile(`^\d+(-\d+)?(,\d+(-\d+)?)*$`)

// ValidatePages checks a 1-based page selection such as "1,3-5".
func ValidatePages(pages string) error {
	if pages == "" {
		return errors.New("provide a page selection, e.g. 1,3-5")
	}
	if !pagesPattern.MatchString(pages) {
		return fmt.Errorf("invalid page selection %q, expected e.g. 1,3-5", pages)
	}
	for _, part := range strings.Split(pages, ",") {
		lo, hi, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(lo)
		if err != nil {
			return fmt.Errorf("invalid page number in %q", part)
		}
		if a < 1 {
			return fmt.Errorf("page numbers start at 1, got %q", part)
		}
		if isRange {
			b, err := strconv.Atoi(hi)
			if err != nil {
				return fmt.Errorf("invalid page number in %q", part)
			}
			if b < a {
				return fmt.Errorf("page range %q is reversed", part)
			}
		}
	}
	return nil
}
