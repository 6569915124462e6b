package orchestrator

import (
	"errors"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
)

type EntryKind int

const (
	// EntryFile is a regular file to classify.
	EntryFile EntryKind = iota
	// EntryExcluded is a file left out by policy; it still gets a record.
	EntryExcluded
	// EntryPruned is a directory not descended into.
	EntryPruned
	// EntryDenied is a directory that could not be listed for lack of
	// permission.
	EntryDenied
	// EntryFailed is a directory that could not be listed for any other
	// reason.
	EntryFailed
)

type Entry struct {
	Path   string
	Kind   EntryKind
	Reason string
	Err    error
}

// Policy shapes a walk.
type Policy struct {
	Recursive bool
	// Exclude reports whether a regular file is left out and why.
	Exclude func(path string) (string, bool)
	// Prune reports whether a directory is not descended into.
	Prune func(path string) bool
	// Stop is polled before every entry and every descent.
	Stop func() bool
}

func (p Policy) stopped() bool {
	return p.Stop != nil && p.Stop()
}

// Swapped in tests.
var readDir = os.ReadDir

// WalkFunc produces the entries under root. Each call to the returned
// sequence walks the tree again.
type WalkFunc func(root string, p Policy) iter.Seq[Entry]

// Walk lists root lazily in directory order. Symlinks and other
// non-regular files are not visited.
func Walk(root string, p Policy) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		walkDir(root, p, yield)
	}
}

func walkDir(dir string, p Policy, yield func(Entry) bool) bool {
	if p.stopped() {
		return false
	}

	entries, err := readDir(dir)
	if err != nil && len(entries) == 0 {
		return yield(dirError(dir, err))
	}

	for _, e := range entries {
		if p.stopped() {
			return false
		}
		path := filepath.Join(dir, e.Name())

		if e.IsDir() {
			if !p.Recursive {
				continue
			}
			if p.Prune != nil && p.Prune(path) {
				if !yield(Entry{Path: path, Kind: EntryPruned}) {
					return false
				}
				continue
			}
			if !walkDir(path, p, yield) {
				return false
			}
			continue
		}

		if !e.Type().IsRegular() {
			continue
		}
		if p.Exclude != nil {
			if reason, ok := p.Exclude(path); ok {
				if !yield(Entry{Path: path, Kind: EntryExcluded, Reason: reason}) {
					return false
				}
				continue
			}
		}
		if !yield(Entry{Path: path, Kind: EntryFile}) {
			return false
		}
	}

	// a listing cut short still reports what it did read
	if err != nil {
		return yield(dirError(dir, err))
	}
	return true
}

func dirError(dir string, err error) Entry {
	kind := EntryFailed
	if errors.Is(err, fs.ErrPermission) {
		kind = EntryDenied
	}
	return Entry{Path: dir, Kind: kind, Err: err}
}
