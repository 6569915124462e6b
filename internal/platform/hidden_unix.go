//go:build !windows

package platform

import (
	"path/filepath"
	"strings"
)

// IsHidden reports dot-files as hidden.
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
