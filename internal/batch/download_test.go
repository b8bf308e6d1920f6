// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/convertly/pkg/types"
)

func TestDownloadAll(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/files/gone.pdf" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "artifact "+r.URL.Path)
	}))
	defer ts.Close()

	local := filepath.Join(t.TempDir(), "local.pdf")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0o644))

	items := []types.Item{
		{ID: "1", File: types.SourceFile{Name: "a.pdf"}, State: types.Done{DownloadURL: ts.URL + "/files/a.pdf"}},
		{ID: "2", File: types.SourceFile{Name: "b.pdf"}, State: types.Failed{Message: "nope"}},
		{ID: "3", File: types.SourceFile{Name: "c.pdf"}, State: types.Done{DownloadURL: ts.URL + "/files/gone.pdf"}},
		{ID: "4", File: types.SourceFile{Name: "d.pdf"}, State: types.Done{DownloadURL: "file://" + filepath.ToSlash(local)}},
	}

	dir := t.TempDir()
	var out bytes.Buffer
	paths, failed := DownloadAll(context.Background(), newClient(t, ts.URL), items, dir, 2, &out)

	assert.Equal(t, 1, failed)
	assert.Equal(t, map[string]string{
		"1": filepath.Join(dir, "a.pdf"),
		"4": local,
	}, paths)
	assert.Contains(t, out.String(), "download failed: c.pdf")

	data, err := os.ReadFile(filepath.Join(dir, "a.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "artifact /files/a.pdf", string(data))
}

func TestDownloadAll_SharedLocatorFetchedOnce(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "merged")
	}))
	defer ts.Close()

	merged := types.Done{DownloadURL: ts.URL + "/files/merged_3.pdf"}
	items := []types.Item{
		{ID: "1", File: types.SourceFile{Name: "a.pdf"}, State: merged},
		{ID: "2", File: types.SourceFile{Name: "b.pdf"}, State: merged},
		{ID: "3", File: types.SourceFile{Name: "c.pdf"}, State: merged},
	}

	dir := t.TempDir()
	var out bytes.Buffer
	paths, failed := DownloadAll(context.Background(), newClient(t, ts.URL), items, dir, 0, &out)

	assert.Zero(t, failed)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, strings.Count(out.String(), "saved:"))
	want := filepath.Join(dir, "merged_3.pdf")
	assert.Equal(t, map[string]string{"1": want, "2": want, "3": want}, paths)
}
