// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package service talks to the remote conversion service: it uploads files
// as multipart forms, decodes download locators and error messages, and
// fetches produced artifacts.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/pdiddy/convertly/internal/httputil"
	"github.com/pdiddy/convertly/pkg/types"
)

// Endpoint names a conversion route on the service.
type Endpoint string

const (
	EndpointImageCompress Endpoint = "image-compress"
	EndpointWordToExcel   Endpoint = "word-to-excel"
	EndpointExcelToWord   Endpoint = "excel-to-word"
	EndpointCompressPDF   Endpoint = "compress-pdf"
	EndpointPDFToWord     Endpoint = "pdf-to-word"
	EndpointPDFEditor     Endpoint = "pdf-editor"
)

// Form field names used by the service.
const (
	FieldFile  = "file"
	FieldFiles = "files"
)

// Upload is one file part of a request.
type Upload struct {
	// Field is the form field name, FieldFile unless the endpoint expects
	// a list.
	Field string
	File  types.SourceFile
}

// Request is one conversion request.
type Request struct {
	Endpoint Endpoint
	Uploads  []Upload
	// Fields holds action-specific form values (angle, pages, target_kb...).
	Fields map[string]string
}

// Result is a successful conversion.
type Result struct {
	// DownloadURL is the absolute artifact locator when the service
	// answered with JSON.
	DownloadURL string

	// Body holds the artifact when the service answered with binary
	// content instead of a locator.
	Body []byte

	// ContentType of the binary artifact.
	ContentType string

	// Filename suggested by Content-Disposition, if any.
	Filename string
}

// IsArtifact reports whether the result carries the artifact bytes.
func (r *Result) IsArtifact() bool {
	return r.DownloadURL == "" && r.Body != nil
}

// Client is a conversion service client bound to one base URL.
type Client struct {
	http *http.Client
	cfg  types.ServiceConfig
	base string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a client for cfg.BaseURL, which must be an absolute
// http or https URL.
func NewClient(cfg types.ServiceConfig, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = types.DefaultBaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing service base URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("service base URL must be an absolute http(s) URL, got %q", cfg.BaseURL)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = types.DefaultUserAgent
	}

	c := &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
		base: strings.TrimRight(cfg.BaseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service origin locators are resolved against.
func (c *Client) BaseURL() string {
	return c.base
}

// Resolve turns a locator returned by the service into an absolute URL by
// prefixing the base origin. Locators that are already absolute are
// returned unchanged.
func (c *Client) Resolve(locator string) string {
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return locator
	}
	if !strings.HasPrefix(locator, "/") {
		locator = "/" + locator
	}
	return c.base + locator
}

// Submit uploads the request's files and returns the service's answer.
// Failures are *Error for anything the service said, including malformed
// success bodies, and *TransportError when it could not be reached.
func (c *Client) Submit(ctx context.Context, req Request) (*Result, error) {
	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", req.Endpoint, err)
	}

	endpointURL := c.base + "/" + string(req.Endpoint)
	build := func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", contentType)
		c.setHeaders(r)
		return r, nil
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, build, c.cfg.RateLimitRetries)
	if err != nil {
		return nil, &TransportError{Endpoint: req.Endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: req.Endpoint, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Endpoint:   req.Endpoint,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data, resp.StatusCode),
		}
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		return c.decodeLocator(req.Endpoint, resp.StatusCode, data)
	}

	return &Result{
		Body:        data,
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    dispositionFilename(resp.Header.Get("Content-Disposition")),
	}, nil
}

func (c *Client) decodeLocator(endpoint Endpoint, status int, data []byte) (*Result, error) {
	var payload struct {
		DownloadURL string `json:"download_url"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &Error{
			Endpoint:   endpoint,
			StatusCode: status,
			Message:    fmt.Sprintf("invalid response from server: %v", err),
		}
	}
	if payload.DownloadURL == "" {
		return nil, &Error{
			Endpoint:   endpoint,
			StatusCode: status,
			Message:    "invalid response from server: missing download_url",
		}
	}
	return &Result{DownloadURL: c.Resolve(payload.DownloadURL)}, nil
}

func (c *Client) setHeaders(r *http.Request) {
	r.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.cfg.APIToken != "" {
		r.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}
}

// encodeMultipart writes the uploads and fields of req as a multipart form.
// Fields are written in key order so request bodies are reproducible.
func encodeMultipart(req Request) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, up := range req.Uploads {
		field := up.Field
		if field == "" {
			field = FieldFile
		}
		if err := writeFilePart(mw, field, up.File); err != nil {
			return nil, "", err
		}
	}

	keys := make([]string, 0, len(req.Fields))
	for k := range req.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, req.Fields[k]); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", k, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

func writeFilePart(mw *multipart.Writer, field string, f types.SourceFile) error {
	src, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer src.Close()

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{"name": field, "filename": f.Name}))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("creating part for %s: %w", f.Name, err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("reading %s: %w", f.Name, err)
	}
	return nil
}

// dispositionFilename returns the filename parameter of a
// Content-Disposition header, or "".
func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
