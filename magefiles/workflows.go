//go:build mage

package main

import (
	"errors"
	"os"
	"strings"

	"github.com/magefile/mage/sh"
)

// Workflows lists the workflows of the current source tree.
func Workflows() error {
	return sh.RunV("go", "run", "./cmd/convertly", "workflows")
}

// Smoke runs a compress-pdf batch in plain mode against the service set in
// CONVERTLY_SERVICE_BASE_URL. Files are read from SMOKE_FILES.
func Smoke() error {
	files := strings.Fields(os.Getenv("SMOKE_FILES"))
	if len(files) == 0 {
		return errors.New("set SMOKE_FILES to one or more PDF paths")
	}
	args := append([]string{"run", "./cmd/convertly", "run", "compress-pdf", "--plain"}, files...)
	return sh.RunV("go", args...)
}
