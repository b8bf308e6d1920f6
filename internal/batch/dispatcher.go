// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch runs conversion workflows over the items of a registry.
// A run sends one request per item (or one combined request for merge
// workflows), concurrently, and settles every item into done or error.
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/pdiddy/convertly/internal/registry"
	"github.com/pdiddy/convertly/internal/service"
	"github.com/pdiddy/convertly/pkg/types"
)

var (
	// ErrEmptyBatch is wrapped when a run starts with no items.
	ErrEmptyBatch = errors.New("no files to convert")

	// ErrTooFewItems is wrapped when a run has fewer items than the
	// workflow requires.
	ErrTooFewItems = errors.New("too few files for workflow")

	// ErrBatchInFlight is returned when a run starts while another run on
	// the same dispatcher has not finished.
	ErrBatchInFlight = errors.New("a batch is already in flight")
)

// Submitter sends one conversion request.
type Submitter interface {
	Submit(ctx context.Context, req service.Request) (*service.Result, error)
}

// Recorder observes dispatch activity. The metrics package provides the
// Prometheus implementation.
type Recorder interface {
	Dispatched(workflow string, bytes int64)
	Settled(workflow string, status types.Status, elapsed time.Duration)
	InFlight(workflow string, delta int)
}

type nopRecorder struct{}

func (nopRecorder) Dispatched(string, int64)                    {}
func (nopRecorder) Settled(string, types.Status, time.Duration) {}
func (nopRecorder) InFlight(string, int)                        {}

// Update reports an item whose state changed during a run.
type Update struct {
	Item types.Item
}

// Dispatcher runs batches against one registry.
type Dispatcher struct {
	submit      Submitter
	reg         *registry.Registry
	cfg         types.BatchConfig
	rec         Recorder
	artifactDir string
	inFlight    atomic.Bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRecorder attaches a dispatch observer.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) { d.rec = r }
}

// WithArtifactDir stores artifacts the service returns as raw bytes in
// dir and marks their items done with a file:// locator. Without it such
// responses fail the item.
func WithArtifactDir(dir string) DispatcherOption {
	return func(d *Dispatcher) { d.artifactDir = dir }
}

// NewDispatcher creates a dispatcher that submits through s and records
// state in reg.
func NewDispatcher(s Submitter, reg *registry.Registry, cfg types.BatchConfig, opts ...DispatcherOption) *Dispatcher {
	if cfg.ProvisionalProgress <= 0 || cfg.ProvisionalProgress >= 100 {
		cfg.ProvisionalProgress = types.DefaultProvisionalProgress
	}
	d := &Dispatcher{submit: s, reg: reg, cfg: cfg, rec: nopRecorder{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// InFlight reports whether a run is outstanding. It is true from the
// moment the first request is sent until every item of the run has
// settled.
func (d *Dispatcher) InFlight() bool {
	return d.inFlight.Load()
}

// RunBatch dispatches every item currently in the registry using wf and
// waits until all of them settle. Each state change is sent to updates
// when it is non-nil, so the caller must keep receiving until RunBatch
// returns, also after ctx is cancelled. The channel is not closed.
//
// Precondition failures (empty registry, too few items for the
// workflow, invalid params) are returned as *registry.ValidationError
// before any request is sent. Per-item failures are not errors of the
// run: they are recorded on the items and counted in the summary.
func (d *Dispatcher) RunBatch(ctx context.Context, wf Workflow, params Params, updates chan<- Update) (Summary, error) {
	items := d.reg.Items()
	if len(items) == 0 {
		return Summary{}, &registry.ValidationError{Reason: "Please add files first", Err: ErrEmptyBatch}
	}
	if len(items) < wf.MinItems {
		return Summary{}, &registry.ValidationError{
			Reason: fmt.Sprintf("Select at least %d files for %s", wf.MinItems, wf.Name),
			Err:    ErrTooFewItems,
		}
	}
	fields, err := wf.Fields(params)
	if err != nil {
		return Summary{}, &registry.ValidationError{Reason: err.Error(), Err: err}
	}

	if !d.inFlight.CompareAndSwap(false, true) {
		return Summary{}, ErrBatchInFlight
	}
	defer d.inFlight.Store(false)

	started := time.Now()

	p := pool.New()
	if d.cfg.Concurrency > 0 {
		p = p.WithMaxGoroutines(d.cfg.Concurrency)
	}
	if wf.Combined {
		p.Go(func() { d.dispatchCombined(ctx, wf, fields, items, updates) })
	} else {
		for _, it := range items {
			p.Go(func() { d.dispatchOne(ctx, wf, fields, it, updates) })
		}
	}
	p.Wait()

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	s := Summarize(wf.Name, d.snapshot(ids))
	s.Started = started
	s.Finished = time.Now()
	return s, nil
}

// dispatchOne marks it processing, sends its request and settles it.
func (d *Dispatcher) dispatchOne(ctx context.Context, wf Workflow, fields map[string]string, it types.Item, updates chan<- Update) {
	if !d.markProcessing(it.ID, updates) {
		return
	}
	d.rec.Dispatched(wf.Name, it.File.Size)
	d.rec.InFlight(wf.Name, 1)
	defer d.rec.InFlight(wf.Name, -1)

	start := time.Now()
	res, err := d.submit.Submit(ctx, service.Request{
		Endpoint: wf.Endpoint,
		Uploads:  []service.Upload{{Field: service.FieldFile, File: it.File}},
		Fields:   fields,
	})
	o := d.outcome(wf, it.File.Name, res, err)
	d.settle(wf, it.ID, o, time.Since(start), updates)
}

// dispatchCombined sends all items in one request under the "files" field
// and applies its outcome to every item.
func (d *Dispatcher) dispatchCombined(ctx context.Context, wf Workflow, fields map[string]string, items []types.Item, updates chan<- Update) {
	uploads := make([]service.Upload, 0, len(items))
	var size int64
	for _, it := range items {
		if !d.markProcessing(it.ID, updates) {
			continue
		}
		uploads = append(uploads, service.Upload{Field: service.FieldFiles, File: it.File})
		size += it.File.Size
	}
	if len(uploads) == 0 {
		return
	}
	d.rec.Dispatched(wf.Name, size)
	d.rec.InFlight(wf.Name, 1)
	defer d.rec.InFlight(wf.Name, -1)

	start := time.Now()
	res, err := d.submit.Submit(ctx, service.Request{
		Endpoint: wf.Endpoint,
		Uploads:  uploads,
		Fields:   fields,
	})
	o := d.outcome(wf, wf.DownloadName, res, err)
	elapsed := time.Since(start)
	for _, it := range items {
		d.settle(wf, it.ID, o, elapsed, updates)
	}
}

func (d *Dispatcher) markProcessing(id string, updates chan<- Update) bool {
	item, ok := d.reg.Patch(id, func(it *types.Item) {
		it.State = types.Processing{}
		it.Progress = d.cfg.ProvisionalProgress
	})
	if ok {
		emit(updates, item)
	}
	return ok
}

func (d *Dispatcher) settle(wf Workflow, id string, o Outcome, elapsed time.Duration, updates chan<- Update) {
	item, ok := Settle(d.reg, id, o)
	if !ok {
		return
	}
	d.rec.Settled(wf.Name, item.Status(), elapsed)
	emit(updates, item)
}

// outcome converts a submit result into an Outcome. Raw artifacts are
// written to the artifact directory when one is configured.
func (d *Dispatcher) outcome(wf Workflow, name string, res *service.Result, err error) Outcome {
	if err != nil {
		return Outcome{Err: err}
	}
	if res == nil {
		return Outcome{Err: errors.New(DefaultFailureMessage)}
	}
	if !res.IsArtifact() {
		return Outcome{DownloadURL: res.DownloadURL}
	}
	if d.artifactDir == "" {
		return Outcome{Err: &service.Error{
			Endpoint: wf.Endpoint,
			Message:  "invalid response from server: expected a download_url",
		}}
	}
	if res.Filename != "" {
		name = res.Filename
	} else {
		name = "converted_" + name
	}
	path, werr := service.WriteArtifact(d.artifactDir, name, bytes.NewReader(res.Body))
	if werr != nil {
		return Outcome{Err: fmt.Errorf("saving artifact: %w", werr)}
	}
	abs, aerr := filepath.Abs(path)
	if aerr != nil {
		abs = path
	}
	return Outcome{DownloadURL: "file://" + filepath.ToSlash(abs)}
}

func (d *Dispatcher) snapshot(ids []string) []types.Item {
	out := make([]types.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := d.reg.Get(id); ok {
			out = append(out, it)
		}
	}
	return out
}

// emit sends it on updates. Sends do not watch the context: after a
// cancellation every item still settles and the view must see it.
func emit(updates chan<- Update, it types.Item) {
	if updates != nil {
		updates <- Update{Item: it}
	}
}
