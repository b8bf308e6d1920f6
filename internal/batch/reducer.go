// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"errors"
	"strings"

	"github.com/pdiddy/convertly/internal/registry"
	"github.com/pdiddy/convertly/internal/service"
	"github.com/pdiddy/convertly/pkg/types"
)

// DefaultFailureMessage is shown when a failure carries no usable text.
const DefaultFailureMessage = "Conversion failed"

// Outcome is the result of one request as seen by the items it carried.
type Outcome struct {
	// DownloadURL is the absolute artifact locator on success.
	DownloadURL string

	// Err is the failure, nil on success.
	Err error
}

// Apply moves it into its terminal state for outcome o. A success sets
// done with progress 100; anything else sets error with progress 0.
func Apply(it *types.Item, o Outcome) {
	if o.Err == nil && o.DownloadURL != "" {
		it.State = types.Done{DownloadURL: o.DownloadURL}
		it.Progress = 100
		return
	}
	it.State = types.Failed{Message: FailureMessage(o.Err)}
	it.Progress = 0
}

// Settle applies o to the item with the given id. It reports false when
// the item is no longer in the registry, in which case the outcome is
// dropped.
func Settle(reg *registry.Registry, id string, o Outcome) (types.Item, bool) {
	return reg.Patch(id, func(it *types.Item) { Apply(it, o) })
}

// FailureMessage picks the text shown for a failed item: the message the
// service reported, then the error's own text, then DefaultFailureMessage.
func FailureMessage(err error) string {
	if err == nil {
		return DefaultFailureMessage
	}
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		if msg := strings.TrimSpace(svcErr.Message); msg != "" {
			return msg
		}
		return DefaultFailureMessage
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return DefaultFailureMessage
}
