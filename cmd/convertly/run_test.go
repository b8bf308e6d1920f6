// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/convertly/internal/batch"
	"github.com/pdiddy/convertly/internal/registry"
	"github.com/pdiddy/convertly/pkg/types"
)

var pdfHeader = []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

func writeTemp(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestCollect_SkipsRejectedAndMissing(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.pdf", pdfHeader)
	b := writeTemp(t, dir, "b.pdf", pdfHeader)
	txt := writeTemp(t, dir, "notes.txt", []byte("plain text"))

	wf, err := batch.Lookup("compress-pdf")
	require.NoError(t, err)

	var warn bytes.Buffer
	reg, err := collect(wf, []string{a, txt, filepath.Join(dir, "missing.pdf"), b}, &warn)
	require.NoError(t, err)

	assert.Equal(t, 2, reg.Len())
	assert.Contains(t, warn.String(), "missing.pdf")
	assert.Contains(t, warn.String(), "skipped 1 file(s)")
}

func TestCollect_ReplaceModeKeepsFirst(t *testing.T) {
	dir := t.TempDir()
	a := writeTemp(t, dir, "a.pdf", pdfHeader)
	b := writeTemp(t, dir, "b.pdf", pdfHeader)

	wf, err := batch.Lookup("pdf-rotate")
	require.NoError(t, err)

	var warn bytes.Buffer
	reg, err := collect(wf, []string{a, b}, &warn)
	require.NoError(t, err)

	items := reg.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "a.pdf", items[0].DisplayName())
	assert.Contains(t, warn.String(), "ignoring 1 other(s)")
}

func TestCollect_NothingAccepted(t *testing.T) {
	dir := t.TempDir()
	txt := writeTemp(t, dir, "notes.txt", []byte("plain text"))

	wf, err := batch.Lookup("pdf-merge")
	require.NoError(t, err)

	_, err = collect(wf, []string{txt}, &bytes.Buffer{})
	var verr *registry.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ErrorIs(t, err, registry.ErrNoMatchingFiles)
}

func TestParamsFromFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(runCmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{"--angle", "180", "--pages", "1,3-5", "--quality", "70"}))

	p := paramsFromFlags(cmd)
	assert.Equal(t, 180, p.Angle)
	assert.Equal(t, "1,3-5", p.Pages)
	assert.Equal(t, 70, p.Quality)
	assert.Zero(t, p.TargetKB)
}

func TestFollowUpdates_FallsBackToPlainWhenViewFails(t *testing.T) {
	updates := make(chan batch.Update, 1)
	viewErr := errors.New("could not open a new TTY")

	done := make(chan error, 1)
	var out bytes.Buffer
	go func() {
		done <- followUpdates(func() error { return viewErr }, updates, &out)
	}()

	// More sends than the buffer holds: each needs a live reader.
	for i := 0; i < 20; i++ {
		updates <- batch.Update{Item: types.Item{File: types.SourceFile{Name: "a.pdf"}, State: types.Failed{Message: "boom"}}}
	}
	close(updates)

	assert.ErrorIs(t, <-done, viewErr)
	assert.Equal(t, 20, strings.Count(out.String(), "failed:  a.pdf (boom)"))
}
