// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert implements single-file conversion: submit one file to a
// conversion endpoint and save the produced artifact. Nothing is retained
// between calls and failures are returned to the caller immediately.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/convertly/internal/batch"
	"github.com/pdiddy/convertly/internal/filetype"
	"github.com/pdiddy/convertly/internal/registry"
	"github.com/pdiddy/convertly/internal/service"
)

// defaultDownloadName is used for endpoints no workflow names.
const defaultDownloadName = "output"

// Client is the part of the service client the helper needs.
type Client interface {
	Submit(ctx context.Context, req service.Request) (*service.Result, error)
	Download(ctx context.Context, rawURL, dir string) (string, error)
}

// Options tunes a conversion.
type Options struct {
	// Fields are sent with the file (action, angle, target_kb...).
	Fields map[string]string

	// DownloadName overrides the saved file name for binary responses.
	DownloadName string
}

// File converts the file at path through endpoint and writes the result
// into outDir. A binary response is saved under the download name; a
// locator response is fetched. The saved path is printed to w and
// returned.
func File(ctx context.Context, c Client, endpoint service.Endpoint, path, outDir string, w io.Writer, opts Options) (string, error) {
	src, err := filetype.Inspect(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	name := defaultDownloadName
	if wf, err := batch.LookupEndpoint(string(endpoint)); err == nil {
		if !wf.Accept(src) {
			return "", &registry.ValidationError{Reason: wf.RejectMessage, Err: registry.ErrNoMatchingFiles}
		}
		name = wf.DownloadName
	}

	res, err := c.Submit(ctx, service.Request{
		Endpoint: endpoint,
		Uploads:  []service.Upload{{Field: service.FieldFile, File: src}},
		Fields:   opts.Fields,
	})
	if err != nil {
		return "", fmt.Errorf("converting %s: %w", src.Name, err)
	}

	var saved string
	if res.IsArtifact() {
		if res.Filename != "" {
			name = res.Filename
		}
		if opts.DownloadName != "" {
			name = opts.DownloadName
		}
		saved, err = service.WriteArtifact(outDir, name, bytes.NewReader(res.Body))
	} else {
		saved, err = c.Download(ctx, res.DownloadURL, outDir)
	}
	if err != nil {
		return "", fmt.Errorf("saving result of %s: %w", src.Name, err)
	}

	fmt.Fprintf(w, "Conversion complete: %s\n", saved)
	return saved, nil
}
