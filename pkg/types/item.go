// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Status is the lifecycle stage of a batch item.
type Status string

const (
	StatusReady      Status = "ready"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Terminal reports whether no further transition is pending for the
// current attempt.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// State is the closed set of item states. Each concrete state carries only
// the fields valid for it, so a finished item cannot hold an error message
// and a failed item cannot hold a download locator.
type State interface {
	Status() Status
	isState()
}

// Ready is the state of an item that has not been dispatched.
type Ready struct{}

// Processing is the state of an item whose request is outstanding.
type Processing struct{}

// Done is the state of an item whose conversion succeeded.
type Done struct {
	// DownloadURL is the absolute locator of the produced artifact.
	DownloadURL string
}

// Failed is the state of an item whose conversion failed.
type Failed struct {
	// Message is the human-readable failure reason.
	Message string
}

func (Ready) Status() Status      { return StatusReady }
func (Processing) Status() Status { return StatusProcessing }
func (Done) Status() Status       { return StatusDone }
func (Failed) Status() Status     { return StatusError }

func (Ready) isState()      {}
func (Processing) isState() {}
func (Done) isState()       {}
func (Failed) isState()     {}

// SourceFile is a user-selected file captured for conversion. It is not
// modified after capture.
type SourceFile struct {
	// Path is the local filesystem path of the payload.
	Path string `json:"path" yaml:"path"`

	// Name is the base file name sent to the service.
	Name string `json:"name" yaml:"name"`

	// Size is the payload size in bytes.
	Size int64 `json:"size" yaml:"size"`

	// ContentType is the sniffed MIME type (e.g. "image/png").
	ContentType string `json:"content_type" yaml:"content_type"`
}

// Item is one file and its conversion lifecycle state.
type Item struct {
	ID       string
	File     SourceFile
	Progress int
	State    State
}

// Status returns the item's lifecycle stage. An item without a state is ready.
func (it Item) Status() Status {
	if it.State == nil {
		return StatusReady
	}
	return it.State.Status()
}

// DisplayName returns the name shown for the item.
func (it Item) DisplayName() string {
	return it.File.Name
}

// SizeLabel returns the payload size in kilobytes with two decimals.
func (it Item) SizeLabel() string {
	return fmt.Sprintf("%.2f KB", float64(it.File.Size)/1024)
}

// DownloadURL returns the artifact locator when the item is done.
func (it Item) DownloadURL() (string, bool) {
	d, ok := it.State.(Done)
	if !ok {
		return "", false
	}
	return d.DownloadURL, true
}

// ErrorDetail returns the failure message when the item is in error.
func (it Item) ErrorDetail() (string, bool) {
	f, ok := it.State.(Failed)
	if !ok {
		return "", false
	}
	return f.Message, true
}
