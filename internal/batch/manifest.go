// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/convertly/pkg/types"
)

// Manifest is the YAML record of one run, written next to the downloaded
// artifacts.
type Manifest struct {
	RunID    string            `yaml:"run_id"`
	Workflow string            `yaml:"workflow"`
	Service  string            `yaml:"service"`
	Fields   map[string]string `yaml:"fields,omitempty"`
	Started  time.Time         `yaml:"started"`
	Finished time.Time         `yaml:"finished"`
	Done     int               `yaml:"done"`
	Failed   int               `yaml:"failed"`
	Items    []ManifestItem    `yaml:"items"`
}

// ManifestItem is one item of a manifest.
type ManifestItem struct {
	ID          string       `yaml:"id"`
	Source      string       `yaml:"source"`
	Size        int64        `yaml:"size"`
	Status      types.Status `yaml:"status"`
	Progress    int          `yaml:"progress"`
	DownloadURL string       `yaml:"download_url,omitempty"`
	Error       string       `yaml:"error,omitempty"`
	LocalPath   string       `yaml:"local_path,omitempty"`
	ArchiveKey  string       `yaml:"archive_key,omitempty"`
}

// NewManifest builds the manifest of a settled run.
func NewManifest(runID, serviceURL string, fields map[string]string, s Summary) *Manifest {
	m := &Manifest{
		RunID:    runID,
		Workflow: s.Workflow,
		Service:  serviceURL,
		Fields:   fields,
		Started:  s.Started.UTC(),
		Finished: s.Finished.UTC(),
		Done:     s.Done,
		Failed:   s.Failed,
		Items:    make([]ManifestItem, 0, len(s.Items)),
	}
	for _, it := range s.Items {
		mi := ManifestItem{
			ID:       it.ID,
			Source:   it.File.Path,
			Size:     it.File.Size,
			Status:   it.Status(),
			Progress: it.Progress,
		}
		if u, ok := it.DownloadURL(); ok {
			mi.DownloadURL = u
		}
		if msg, ok := it.ErrorDetail(); ok {
			mi.Error = msg
		}
		m.Items = append(m.Items, mi)
	}
	return m
}

// Item returns the manifest entry for id, or nil.
func (m *Manifest) Item(id string) *ManifestItem {
	for i := range m.Items {
		if m.Items[i].ID == id {
			return &m.Items[i]
		}
	}
	return nil
}

// WriteManifest writes m as YAML to path, creating parent directories.
func WriteManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}
