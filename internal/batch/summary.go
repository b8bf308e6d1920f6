// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/convertly/pkg/types"
)

// Summary is the settled view of one run.
type Summary struct {
	Workflow string
	Started  time.Time
	Finished time.Time
	Items    []types.Item
	Done     int
	Failed   int
}

// Summarize counts the terminal states of items.
func Summarize(workflow string, items []types.Item) Summary {
	s := Summary{Workflow: workflow, Items: items}
	for _, it := range items {
		switch it.Status() {
		case types.StatusDone:
			s.Done++
		case types.StatusError:
			s.Failed++
		}
	}
	return s
}

// Total returns the number of items in the run.
func (s Summary) Total() int {
	return len(s.Items)
}

// HasFailures reports whether any item ended in error.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Duration is the wall time of the run.
func (s Summary) Duration() time.Duration {
	if s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}

// PrintStatus writes the one-line status of it.
func PrintStatus(w io.Writer, it types.Item) {
	switch st := it.State.(type) {
	case types.Processing:
		fmt.Fprintf(w, "processing: %s (%s)\n", it.DisplayName(), it.SizeLabel())
	case types.Done:
		fmt.Fprintf(w, "done:    %s -> %s\n", it.DisplayName(), st.DownloadURL)
	case types.Failed:
		fmt.Fprintf(w, "failed:  %s (%s)\n", it.DisplayName(), st.Message)
	default:
		fmt.Fprintf(w, "ready:   %s (%s)\n", it.DisplayName(), it.SizeLabel())
	}
}

// PrintSummary writes the per-run totals line.
func PrintSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "\nBatch summary: %d done, %d failed (total: %d)\n", s.Done, s.Failed, s.Total())
}
