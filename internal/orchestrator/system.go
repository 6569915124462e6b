package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/avguard/avscan/internal/classifier"
	"github.com/avguard/avscan/internal/scanner"
)

// Directory names skipped anywhere in a system scan, matched as
// case-insensitive substrings of the path.
var noisyDirNames = []string{
	"$recycle.bin",
	"system volume information",
	"windows",
	"program files",
	"program files (x86)",
	"programdata",
	"recovery",
	"config.msi",
	"documents and settings",
}

// systemPath stands in for records that belong to no single root.
var systemPath = string(filepath.Separator)

// Pseudo filesystems that never hold user content.
var pseudoFSDirs = []string{"/proc", "/sys", "/dev", "/run"}

func isNoisySystemDir(path string) bool {
	lower := strings.ToLower(path)
	for _, name := range noisyDirNames {
		if strings.Contains(lower, name) {
			return true
		}
	}
	slashed := filepath.ToSlash(path)
	for _, dir := range pseudoFSDirs {
		if slashed == dir || strings.HasPrefix(slashed, dir+"/") {
			return true
		}
	}
	return false
}

// ScanSystem walks every filesystem root and scans each regular file. Only
// one system scan runs at a time; a second caller gets an empty result.
// Records gathered before a stop request or a failure are still returned.
func (o *Orchestrator) ScanSystem(ctx context.Context) (records []scanner.Record) {
	if !o.session.TryStart() {
		o.log.Warn(ErrScanRunning.Error())
		return []scanner.Record{}
	}

	records = []scanner.Record{}
	outcome := StateCompleted
	batch := o.newBatcher()
	current := ""

	defer func() {
		if r := recover(); r != nil {
			if current == "" {
				current = systemPath
			}
			o.log.WithField("root", current).Errorf("system scan failed: %v", r)
			rec := scanner.NewRecord(current, scanner.ContextSystem, classifier.Error,
				fmt.Sprintf("system scan failed: %v", r))
			records = append(records, rec)
			batch.add(rec)
			outcome = StateFailed
		}
		batch.flush()
		o.session.Finish(outcome)
	}()

	stop := func() bool {
		return o.session.StopRequested() || ctx.Err() != nil
	}

	o.log.Info("starting system scan")
	roots, err := o.roots()
	if err != nil || len(roots) == 0 {
		if err == nil {
			err = fmt.Errorf("no filesystem roots found")
		}
		o.log.WithError(err).Error("cannot enumerate filesystem roots")
		rec := scanner.NewRecord(systemPath, scanner.ContextSystem, classifier.Error,
			fmt.Sprintf("cannot enumerate filesystem roots: %v", err))
		records = append(records, rec)
		batch.add(rec)
		outcome = StateFailed
		return records
	}
	o.log.Infof("found %d root directories to scan", len(roots))

	isRoot := make(map[string]bool, len(roots))
	for _, r := range roots {
		isRoot[filepath.Clean(r)] = true
	}

	processed := 0
	infected := 0
	for _, root := range roots {
		if stop() {
			break
		}
		current = root
		o.log.WithField("root", root).Info("scanning root directory")

		policy := Policy{
			Recursive: true,
			Prune: func(path string) bool {
				// other roots are walked on their own
				return isRoot[filepath.Clean(path)] || isNoisySystemDir(path) || o.isExcluded(path)
			},
			Exclude: func(path string) (string, bool) {
				return "scanner data file", o.isExcluded(path)
			},
			Stop: stop,
		}

		for e := range o.walk(root, policy) {
			if stop() {
				break
			}
			switch e.Kind {
			case EntryFile:
				rec := o.files.Scan(e.Path, scanner.ContextSystem)
				records = append(records, rec)
				o.session.scanned.Add(1)
				processed++
				if rec.Infected {
					infected++
				}
				o.report(Progress{
					Context:   scanner.ContextSystem,
					Root:      root,
					Path:      e.Path,
					Processed: processed,
					Infected:  infected,
				})

			case EntryPruned, EntryExcluded:
				o.log.WithField("path", e.Path).Debug("skipping restricted path")
				o.session.skipped.Add(1)

			case EntryDenied:
				o.log.WithField("path", e.Path).Debug("access denied")
				o.session.skipped.Add(1)
				rec := scanner.NewRecord(e.Path, scanner.ContextSystem, classifier.Skipped, "access denied")
				records = append(records, rec)
				batch.add(rec)

			case EntryFailed:
				o.log.WithField("path", e.Path).WithError(e.Err).Error("error accessing directory")
				rec := scanner.NewRecord(e.Path, scanner.ContextSystem, classifier.Error,
					fmt.Sprintf("error accessing directory: %v", e.Err))
				records = append(records, rec)
				batch.add(rec)
			}
		}
	}

	if stop() {
		outcome = StateStopped
		o.log.Info("system scan stopped by user")
	}
	st := o.session.Status()
	o.log.Infof("system scan finished. scanned: %d, skipped: %d, total results: %d",
		st.Scanned, st.Skipped, len(records))
	return records
}

// StopSystemScan asks a running system scan to unwind. It is a no-op when
// nothing is running and never waits.
func (o *Orchestrator) StopSystemScan() {
	if o.session.RequestStop() {
		o.log.Info("stopping system scan")
	}
}

func (o *Orchestrator) IsSystemScanRunning() bool {
	return o.session.IsRunning()
}
