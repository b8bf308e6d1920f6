// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/convertly/internal/registry"
	"github.com/pdiddy/convertly/internal/service"
	"github.com/pdiddy/convertly/pkg/types"
)

func TestLookup(t *testing.T) {
	for _, w := range Workflows() {
		got, err := Lookup(w.Name)
		require.NoError(t, err)
		assert.Equal(t, w.Endpoint, got.Endpoint)
	}

	_, err := Lookup("pdf-shred")
	assert.ErrorIs(t, err, ErrUnknownWorkflow)

	w, err := LookupEndpoint("word-to-excel")
	require.NoError(t, err)
	assert.Equal(t, "word-to-excel", w.Name)
}

func TestWorkflowFields(t *testing.T) {
	tests := []struct {
		workflow string
		params   Params
		want     map[string]string
		wantErr  bool
	}{
		{"compress-image", Params{}, map[string]string{}, false},
		{"compress-image", Params{Quality: 60, MaxWidth: 800}, map[string]string{"quality": "60", "max_width": "800"}, false},
		{"compress-image", Params{Quality: 120}, nil, true},
		{"compress-pdf", Params{}, map[string]string{"target_kb": "500"}, false},
		{"compress-pdf", Params{TargetKB: 200}, map[string]string{"target_kb": "200"}, false},
		{"compress-pdf", Params{TargetKB: -1}, nil, true},
		{"pdf-rotate", Params{Angle: 270}, map[string]string{"action": "rotate", "angle": "270"}, false},
		{"pdf-rotate", Params{Angle: 45}, nil, true},
		{"pdf-split", Params{Pages: "1, 3-5"}, map[string]string{"action": "split", "pages": "1,3-5"}, false},
		{"pdf-split", Params{}, nil, true},
		{"pdf-merge", Params{}, map[string]string{"action": "merge"}, false},
		{"pdf-to-word", Params{Angle: 90}, map[string]string{}, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%+v", tt.workflow, tt.params), func(t *testing.T) {
			w, err := Lookup(tt.workflow)
			require.NoError(t, err)
			got, err := w.Fields(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePages(t *testing.T) {
	for _, ok := range []string{"1", "1,2", "1-3", "2,4-6,9"} {
		assert.NoError(t, ValidatePages(ok), ok)
	}
	for _, bad := range []string{"", "0", "a", "1-", "-3", "5-2", "1,,2", "1;2", "99999999999999999999", "1-99999999999999999999"} {
		assert.Error(t, ValidatePages(bad), bad)
	}
}

func TestWorkflowRegistry(t *testing.T) {
	rotate, err := Lookup("pdf-rotate")
	require.NoError(t, err)

	reg := rotate.NewRegistry()
	assert.Equal(t, registry.ModeReplace, reg.Mode())

	_, err = reg.AddFiles(types.SourceFile{Name: "a.png", ContentType: "image/png"})
	var verr *registry.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Please select PDF files", verr.Reason)

	_, err = reg.AddFiles(
		types.SourceFile{Name: "a.pdf", ContentType: "application/pdf"},
		types.SourceFile{Name: "b.pdf", ContentType: "application/pdf"},
	)
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len())
	assert.Equal(t, "a.pdf", reg.Items()[0].DisplayName())
}

func TestFailureMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"service message", &service.Error{StatusCode: 500, Message: "conversion failed"}, "conversion failed"},
		{"wrapped service message", fmt.Errorf("batch: %w", &service.Error{Message: "Only PDF files are allowed"}), "Only PDF files are allowed"},
		{"blank service message", &service.Error{StatusCode: 500, Message: "  "}, DefaultFailureMessage},
		{"transport", &service.TransportError{Endpoint: "pdf-to-word", Err: errors.New("connection refused")}, "request to pdf-to-word failed: connection refused"},
		{"plain", errors.New("boom"), "boom"},
		{"empty", errors.New(""), DefaultFailureMessage},
		{"nil", nil, DefaultFailureMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FailureMessage(tt.err))
		})
	}
}

func TestApply(t *testing.T) {
	it := types.Item{State: types.Processing{}, Progress: 15}
	Apply(&it, Outcome{DownloadURL: "http://localhost:5000/files/out.pdf"})
	assert.Equal(t, types.Done{DownloadURL: "http://localhost:5000/files/out.pdf"}, it.State)
	assert.Equal(t, 100, it.Progress)

	it = types.Item{State: types.Processing{}, Progress: 15}
	Apply(&it, Outcome{Err: &service.Error{StatusCode: 500, Message: "conversion failed"}})
	assert.Equal(t, types.Failed{Message: "conversion failed"}, it.State)
	assert.Equal(t, 0, it.Progress)

	it = types.Item{State: types.Processing{}}
	Apply(&it, Outcome{})
	assert.Equal(t, types.Failed{Message: DefaultFailureMessage}, it.State)
}

func TestSettle_RemovedItemIsDropped(t *testing.T) {
	reg := registry.New(nil, registry.ModeAppend)
	added, err := reg.AddFiles(types.SourceFile{Name: "a.pdf"}, types.SourceFile{Name: "b.pdf"})
	require.NoError(t, err)
	require.True(t, reg.Remove(added[0].ID))

	_, ok := Settle(reg, added[0].ID, Outcome{DownloadURL: "http://x/y"})
	assert.False(t, ok)
	require.Equal(t, 1, reg.Len())
	assert.Equal(t, types.StatusReady, reg.Items()[0].Status())
}

func TestSummaryOutput(t *testing.T) {
	items := []types.Item{
		{File: types.SourceFile{Name: "a.pdf", Size: 2048}, State: types.Done{DownloadURL: "http://svc/a"}},
		{File: types.SourceFile{Name: "b.pdf", Size: 1024}, State: types.Failed{Message: "bad pdf"}},
		{File: types.SourceFile{Name: "c.pdf", Size: 512}, State: types.Processing{}},
	}
	s := Summarize("compress-pdf", items)
	assert.Equal(t, 1, s.Done)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 3, s.Total())

	var buf bytes.Buffer
	for _, it := range items {
		PrintStatus(&buf, it)
	}
	PrintSummary(&buf, s)
	assert.Equal(t,
		"done:    a.pdf -> http://svc/a\n"+
			"failed:  b.pdf (bad pdf)\n"+
			"processing: c.pdf (0.50 KB)\n"+
			"\nBatch summary: 1 done, 1 failed (total: 3)\n",
		buf.String())
}

func TestManifestRoundTrip(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := Summarize("pdf-rotate", []types.Item{
		{ID: "1-1-a.pdf", File: types.SourceFile{Path: "/in/a.pdf", Size: 10}, Progress: 100, State: types.Done{DownloadURL: "http://svc/files/a.pdf"}},
		{ID: "1-2-b.pdf", File: types.SourceFile{Path: "/in/b.pdf", Size: 20}, State: types.Failed{Message: "Invalid PDF"}},
	})
	s.Started, s.Finished = started, started.Add(3*time.Second)

	m := NewManifest("run-1", "http://svc", map[string]string{"action": "rotate", "angle": "90"}, s)
	m.Item("1-1-a.pdf").LocalPath = "/out/a.pdf"
	assert.Nil(t, m.Item("missing"))

	path := filepath.Join(t.TempDir(), "nested", "manifest.yaml")
	require.NoError(t, WriteManifest(path, m))

	got, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, m, got)
	assert.Equal(t, types.StatusError, got.Items[1].Status)
	assert.Equal(t, "Invalid PDF", got.Items[1].Error)
}
