package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/avguard/avscan/internal/classifier"
	"github.com/avguard/avscan/internal/platform"
	"github.com/avguard/avscan/internal/scanner"
)

var systemArtifacts = map[string]bool{
	"thumbs.db":   true,
	"desktop.ini": true,
	".ds_store":   true,
}

var excludedLocations = []string{
	`\windows\`,
	`\program files\`,
	`\program files (x86)\`,
	`\appdata\`,
	"/proc/",
	"/sys/",
}

// excludeFromDirectoryScan reports files a directory scan leaves out.
func excludeFromDirectoryScan(path string) (string, bool) {
	name := strings.ToLower(filepath.Base(path))
	if strings.HasPrefix(name, ".") || platform.IsHidden(path) {
		return "hidden file", true
	}
	if systemArtifacts[name] {
		return "system artifact", true
	}
	lower := strings.ToLower(path)
	for _, loc := range excludedLocations {
		if strings.Contains(lower, loc) {
			return "excluded system location", true
		}
	}
	return "", false
}

// ScanDirectory scans the regular files under path. It is independent of
// the system scan session; cancel ctx to end it early. An invalid path
// yields a single ERROR record.
func (o *Orchestrator) ScanDirectory(ctx context.Context, path string, recursive bool) []scanner.Record {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	if reason := validateDirectory(abs); reason != "" {
		o.log.WithField("path", abs).Errorf("cannot scan directory: %s", reason)
		rec := scanner.NewRecord(abs, scanner.ContextDirectory, classifier.Error, reason)
		if o.sink != nil {
			if err := o.sink.Save(rec); err != nil {
				o.log.WithError(err).Error("failed to save scan record")
			}
		}
		return []scanner.Record{rec}
	}

	log := o.log.WithField("root", abs)
	log.Infof("starting directory scan (recursive: %v)", recursive)

	policy := Policy{
		Recursive: recursive,
		Exclude: func(path string) (string, bool) {
			if o.isExcluded(path) {
				return "scanner data file", true
			}
			return excludeFromDirectoryScan(path)
		},
		Prune: o.isExcluded,
		Stop:  func() bool { return ctx.Err() != nil },
	}
	entries := o.walk(abs, policy)

	total := 0
	for e := range entries {
		if e.Kind == EntryFile {
			total++
		}
	}
	log.Infof("found %d files to scan", total)

	var (
		records   []scanner.Record
		processed int
		infected  int
		batch     = o.newBatcher()
	)
	for e := range entries {
		switch e.Kind {
		case EntryFile:
			rec := o.files.Scan(e.Path, scanner.ContextDirectory)
			records = append(records, rec)
			processed++
			if rec.Infected {
				infected++
			}
			if processed%progressEvery == 0 || processed == total {
				log.Infof("progress: %.2f%% (%d/%d files scanned, %d infected)",
					percent(processed, total), processed, total, infected)
			}
			o.report(Progress{
				Context:   scanner.ContextDirectory,
				Root:      abs,
				Path:      e.Path,
				Processed: processed,
				Total:     total,
				Infected:  infected,
			})

		case EntryExcluded:
			log.WithField("path", e.Path).Debugf("skipping file: %s", e.Reason)
			rec := scanner.NewRecord(e.Path, scanner.ContextDirectory, classifier.Skipped, e.Reason)
			records = append(records, rec)
			batch.add(rec)

		case EntryPruned:
			log.WithField("path", e.Path).Debug("skipping scanner data directory")

		case EntryDenied, EntryFailed:
			log.WithField("path", e.Path).WithError(e.Err).Error("cannot read directory")
			rec := scanner.NewRecord(e.Path, scanner.ContextDirectory, classifier.Error,
				fmt.Sprintf("cannot read directory: %v", e.Err))
			records = append(records, rec)
			batch.add(rec)
		}
	}
	batch.flush()

	if ctx.Err() != nil {
		log.Warnf("directory scan cancelled after %d of %d files", processed, total)
	}
	log.WithFields(logrus.Fields{
		"files":    processed,
		"infected": infected,
		"results":  len(records),
	}).Info("directory scan completed")

	return records
}

func validateDirectory(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "directory does not exist: " + path
		}
		return fmt.Sprintf("directory is not readable: %s: %v", path, err)
	}
	if !info.IsDir() {
		return "path is not a directory: " + path
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Sprintf("directory is not readable: %s: %v", path, err)
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Sprintf("directory is not readable: %s: %v", path, err)
	}
	return ""
}

func percent(n, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(n) * 100 / float64(total)
}
