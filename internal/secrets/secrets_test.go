// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/convertly/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, KeyAPIToken, "  tok_abc  \n")
				writeFile(t, dir, KeyAccessKeyID, "AKIA123\n")
				return dir
			},
			want: map[string]string{
				KeyAPIToken:    "tok_abc",
				KeyAccessKeyID: "AKIA123",
			},
		},
		{
			name: "missing directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files, dotfiles and directories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, KeyAPIToken, "valid")
				writeFile(t, dir, "empty", "")
				writeFile(t, dir, "blank", "  \n\t ")
				writeFile(t, dir, ".hidden", "secret")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{KeyAPIToken: "valid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var warn bytes.Buffer
			got, err := Load(tt.setup(t), &warn)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Empty(t, warn.String())
		})
	}
}

func TestApply(t *testing.T) {
	s := map[string]string{
		KeyAPIToken:        "from-file",
		KeyAccessKeyID:     "AKIA",
		KeySecretAccessKey: "shh",
	}

	var cfg types.Config
	Apply(&cfg, s)
	assert.Equal(t, "from-file", cfg.Service.APIToken)
	assert.Equal(t, "AKIA", cfg.Archive.AccessKeyID)
	assert.Equal(t, "shh", cfg.Archive.SecretAccessKey)

	cfg = types.Config{}
	cfg.Service.APIToken = "from-env"
	Apply(&cfg, s)
	assert.Equal(t, "from-env", cfg.Service.APIToken)
}
