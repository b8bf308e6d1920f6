// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/pdiddy/convertly/pkg/types"
)

// Fetcher downloads an artifact into a directory.
type Fetcher interface {
	Download(ctx context.Context, rawURL, dir string) (string, error)
}

// DownloadAll fetches the artifact of every done item into dir with at
// most concurrency transfers at once (0 means unbounded). Items already
// stored locally (file:// locators) are reported without copying, and
// items sharing a locator (a merge) share one transfer. It
// returns the local path per item id and the number of failed transfers;
// failures are reported on w.
func DownloadAll(ctx context.Context, f Fetcher, items []types.Item, dir string, concurrency int, w io.Writer) (map[string]string, int) {
	var (
		mu     sync.Mutex
		paths  = map[string]string{}
		failed int
	)

	var locators []string
	owners := map[string][]types.Item{}
	for _, it := range items {
		locator, ok := it.DownloadURL()
		if !ok {
			continue
		}
		if _, seen := owners[locator]; !seen {
			locators = append(locators, locator)
		}
		owners[locator] = append(owners[locator], it)
	}

	p := pool.New()
	if concurrency > 0 {
		p = p.WithMaxGoroutines(concurrency)
	}
	for _, locator := range locators {
		its := owners[locator]
		p.Go(func() {
			path, err := fetchOne(ctx, f, locator, dir)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				fmt.Fprintf(w, "download failed: %s: %v\n", its[0].DisplayName(), err)
				return
			}
			for _, it := range its {
				paths[it.ID] = path
			}
			fmt.Fprintf(w, "saved:   %s\n", path)
		})
	}
	p.Wait()
	return paths, failed
}

func fetchOne(ctx context.Context, f Fetcher, locator, dir string) (string, error) {
	if strings.HasPrefix(locator, "file://") {
		u, err := url.Parse(locator)
		if err != nil {
			return "", err
		}
		return filepath.FromSlash(u.Path), nil
	}
	return f.Download(ctx, locator, dir)
}
