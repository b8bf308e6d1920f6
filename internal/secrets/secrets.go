// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// The file name is the key and the trimmed contents are the value.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/convertly/pkg/types"
)

// Known key files.
const (
	KeyAPIToken        = "convertly-api-token"
	KeyAccessKeyID     = "aws-access-key-id"
	KeySecretAccessKey = "aws-secret-access-key"
)

// Load reads every regular, non-hidden file in dir. A missing directory
// yields an empty map. Unreadable files are reported on warn and skipped.
func Load(dir string, warn io.Writer) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(warn, "warning: could not read secret %s: %v\n", name, err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Apply fills credentials in cfg from s. Values already set in cfg
// (from the config file or environment) take precedence.
func Apply(cfg *types.Config, s map[string]string) {
	setIfEmpty(&cfg.Service.APIToken, s[KeyAPIToken])
	setIfEmpty(&cfg.Archive.AccessKeyID, s[KeyAccessKeyID])
	setIfEmpty(&cfg.Archive.SecretAccessKey, s[KeySecretAccessKey])
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
