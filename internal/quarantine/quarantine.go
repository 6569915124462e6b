// Package quarantine isolates or deletes infected files.
package quarantine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/avguard/avscan/internal/logging"
)

const (
	Suffix     = ".quarantine"
	timeLayout = "20060102_150405"
)

var ErrNotQuarantined = errors.New("not a quarantine file")

var log = logging.For("quarantine")

// Jail is a quarantine directory. Files moved in are renamed to
// <timestamp>_<original name>.quarantine.
type Jail struct {
	Dir string
	now func() time.Time
}

func NewJail(dir string) *Jail {
	return &Jail{Dir: dir, now: time.Now}
}

// Entry describes one quarantined file.
type Entry struct {
	Name          string
	OriginalName  string
	QuarantinedAt time.Time
	Size          int64
}

// Quarantine moves path into the jail and returns its new location.
// Nothing is retried; the caller decides what a failure means.
func (j *Jail) Quarantine(path string) (string, error) {
	if err := os.MkdirAll(j.Dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create quarantine directory: %w", err)
	}

	dest, err := j.destination(filepath.Base(path))
	if err != nil {
		return "", err
	}

	if err := move(path, dest); err != nil {
		return "", fmt.Errorf("failed to quarantine %s: %w", path, err)
	}

	log.WithField("path", path).WithField("dest", dest).Warn("file quarantined")
	return dest, nil
}

func (j *Jail) destination(name string) (string, error) {
	stamp := j.now().Format(timeLayout)
	for i := 0; i < 1000; i++ {
		prefix := stamp
		if i > 0 {
			prefix = fmt.Sprintf("%s-%d", stamp, i)
		}
		dest := filepath.Join(j.Dir, prefix+"_"+name+Suffix)
		if _, err := os.Lstat(dest); os.IsNotExist(err) {
			return dest, nil
		}
	}
	return "", fmt.Errorf("no free quarantine slot for %s", name)
}

// Swapped in tests.
var (
	rename = os.Rename
	remove = os.Remove
)

// move renames src to dst. Only a cross-device rename falls back to copy
// and remove; any other failure leaves both sides untouched.
func move(src, dst string) error {
	err := rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}
	return moveByCopy(src, dst)
}

func moveByCopy(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	if err := remove(src); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

// Delete removes path outright.
func Delete(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	log.WithField("path", path).Warn("file deleted")
	return nil
}

// parseName splits <date>_<time>[-n]_<original>.quarantine.
func parseName(name string) (string, time.Time, error) {
	if !strings.HasSuffix(name, Suffix) {
		return "", time.Time{}, fmt.Errorf("%w: %s", ErrNotQuarantined, name)
	}
	base := strings.TrimSuffix(name, Suffix)
	parts := strings.SplitN(base, "_", 3)
	if len(parts) < 3 {
		return base, time.Time{}, nil
	}
	stamp := parts[0] + "_" + parts[1]
	if i := strings.IndexByte(stamp, '-'); i >= 0 {
		stamp = stamp[:i]
	}
	ts, err := time.ParseInLocation(timeLayout, stamp, time.Local)
	if err != nil {
		return base, time.Time{}, nil
	}
	return parts[2], ts, nil
}

// List returns quarantined files, newest first.
func (j *Jail) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(j.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), Suffix) {
			continue
		}
		orig, ts, _ := parseName(de.Name())
		e := Entry{Name: de.Name(), OriginalName: orig, QuarantinedAt: ts}
		if info, err := de.Info(); err == nil {
			e.Size = info.Size()
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(a, b int) bool {
		return entries[a].Name > entries[b].Name
	})
	return entries, nil
}

// Restore moves a quarantined file back out under its original name in
// destDir. An existing file at the target is never overwritten.
func (j *Jail) Restore(name, destDir string) (string, error) {
	name = filepath.Base(name)
	orig, _, err := parseName(name)
	if err != nil {
		return "", err
	}

	src := filepath.Join(j.Dir, name)
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("quarantine file not found: %s", name)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create restore directory: %w", err)
	}
	dest := filepath.Join(destDir, orig)
	if _, err := os.Lstat(dest); err == nil {
		return "", fmt.Errorf("restore target already exists: %s", dest)
	}

	if err := move(src, dest); err != nil {
		return "", fmt.Errorf("failed to restore %s: %w", name, err)
	}

	log.WithField("name", name).WithField("dest", dest).Info("file restored")
	return dest, nil
}
