//go:build windows

package platform

import (
	"path/filepath"
	"strings"
	"syscall"
)

// IsHidden reports dot-files and files carrying FILE_ATTRIBUTE_HIDDEN.
func IsHidden(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	p, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return false
	}
	attrs, err := syscall.GetFileAttributes(p)
	if err != nil {
		return false
	}
	return attrs&syscall.FILE_ATTRIBUTE_HIDDEN != 0
}
