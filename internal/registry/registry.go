// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry holds the files selected for one conversion session and
// their per-item state. A Registry is created per session and is the only
// shared mutable state of a batch run; every mutation goes through its
// methods.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pdiddy/convertly/internal/filetype"
	"github.com/pdiddy/convertly/pkg/types"
)

// Mode selects how AddFiles treats existing items.
type Mode int

const (
	// ModeAppend adds accepted files after the existing items.
	ModeAppend Mode = iota
	// ModeReplace keeps a single item: the first accepted file of the
	// latest call.
	ModeReplace
)

func (m Mode) String() string {
	if m == ModeReplace {
		return "replace"
	}
	return "append"
}

// ErrNoMatchingFiles is reported when none of the candidates passes the
// registry's type predicate.
var ErrNoMatchingFiles = errors.New("no matching files")

// ValidationError is a client-side rejection that leaves the registry
// unchanged.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Registry is an ordered collection of items. Insertion order is display
// order. It is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	items  []*types.Item
	accept filetype.Predicate
	mode   Mode
	reject string
	seq    uint64
	now    func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithRejectMessage sets the validation message shown when no candidate
// is accepted (e.g. "Please select PDF files").
func WithRejectMessage(msg string) Option {
	return func(r *Registry) { r.reject = msg }
}

// WithClock overrides the time source used for item ids.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New creates an empty registry that accepts files passing accept.
// A nil predicate accepts everything.
func New(accept filetype.Predicate, mode Mode, opts ...Option) *Registry {
	if accept == nil {
		accept = func(types.SourceFile) bool { return true }
	}
	r := &Registry{
		accept: accept,
		mode:   mode,
		reject: "no supported files selected",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddFiles filters candidates through the type predicate and records the
// accepted ones as ready items. When nothing is accepted it returns a
// *ValidationError wrapping ErrNoMatchingFiles and changes nothing.
// It returns the items that were added.
func (r *Registry) AddFiles(candidates ...types.SourceFile) ([]types.Item, error) {
	accepted := r.accept.Filter(candidates)
	if len(accepted) == 0 {
		return nil, &ValidationError{Reason: r.reject, Err: ErrNoMatchingFiles}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mode == ModeReplace {
		accepted = accepted[:1]
	}

	stamp := r.now().UnixMilli()
	added := make([]*types.Item, 0, len(accepted))
	for _, f := range accepted {
		r.seq++
		added = append(added, &types.Item{
			ID:    fmt.Sprintf("%d-%d-%s", stamp, r.seq, f.Name),
			File:  f,
			State: types.Ready{},
		})
	}

	if r.mode == ModeReplace {
		r.items = added
	} else {
		r.items = append(r.items, added...)
	}

	out := make([]types.Item, len(added))
	for i, it := range added {
		out[i] = *it
	}
	return out, nil
}

// Remove deletes the item with the given id. It reports whether an item
// was removed; an unknown id is a no-op.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, it := range r.items {
		if it.ID == id {
			r.items = append(r.items[:i:i], r.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every item regardless of state.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}

// SetMode switches between append and replace and empties the registry.
func (r *Registry) SetMode(mode Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = mode
	r.items = nil
}

// Mode returns the current add mode.
func (r *Registry) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// Patch applies fn to the item with the given id and returns the updated
// copy. Items not matching id are untouched. It returns false, without
// calling fn, when no such item exists (e.g. it was removed while its
// request was in flight).
func (r *Registry) Patch(id string, fn func(*types.Item)) (types.Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, it := range r.items {
		if it.ID == id {
			fn(it)
			return *it, true
		}
	}
	return types.Item{}, false
}

// Get returns a copy of the item with the given id.
func (r *Registry) Get(id string) (types.Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, it := range r.items {
		if it.ID == id {
			return *it, true
		}
	}
	return types.Item{}, false
}

// Items returns a snapshot of all items in insertion order.
func (r *Registry) Items() []types.Item {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]types.Item, len(r.items))
	for i, it := range r.items {
		out[i] = *it
	}
	return out
}

// Len returns the number of items.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
