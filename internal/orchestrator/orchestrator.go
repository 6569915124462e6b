// Package orchestrator drives directory and system scans over the file
// scanner and owns the system scan session.
package orchestrator

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/avguard/avscan/internal/logging"
	"github.com/avguard/avscan/internal/platform"
	"github.com/avguard/avscan/internal/scanner"
)

// ErrScanRunning is reported when a system scan is requested while one is
// already in progress.
var ErrScanRunning = errors.New("system scan is already running")

const (
	DefaultBatchSize = 100
	progressEvery    = 10
)

// FileScanner classifies a single path.
type FileScanner interface {
	Scan(path string, ctx scanner.Context) scanner.Record
}

// Progress is reported after every classified file. Total is zero for
// system scans, which are not counted up front.
type Progress struct {
	Context   scanner.Context
	Root      string
	Path      string
	Processed int
	Total     int
	Infected  int
}

type Orchestrator struct {
	files     FileScanner
	sink      scanner.Sink
	session   *Session
	roots     func() ([]string, error)
	walk      WalkFunc
	batchSize int
	progress  func(Progress)
	excluded  []string
	log       *logrus.Entry
}

type Option func(*Orchestrator)

// WithSink sets where records the file scanner did not produce are saved.
func WithSink(s scanner.Sink) Option {
	return func(o *Orchestrator) { o.sink = s }
}

func WithRoots(fn func() ([]string, error)) Option {
	return func(o *Orchestrator) { o.roots = fn }
}

func WithWalker(fn WalkFunc) Option {
	return func(o *Orchestrator) { o.walk = fn }
}

func WithBatchSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

func WithProgress(fn func(Progress)) Option {
	return func(o *Orchestrator) { o.progress = fn }
}

// WithExcludedPaths keeps the scanner's own files and directories (the
// quarantine jail, the audit log, the database) out of every walk.
func WithExcludedPaths(paths ...string) Option {
	return func(o *Orchestrator) {
		for _, p := range paths {
			if p == "" {
				continue
			}
			if abs, err := filepath.Abs(p); err == nil {
				p = abs
			}
			o.excluded = append(o.excluded, filepath.Clean(p))
		}
	}
}

// isExcluded reports whether path is, or sits under, an excluded path.
func (o *Orchestrator) isExcluded(path string) bool {
	for _, p := range o.excluded {
		if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func New(files FileScanner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		files:     files,
		session:   NewSession(),
		roots:     platform.Roots,
		walk:      Walk,
		batchSize: DefaultBatchSize,
		log:       logging.For("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ScanFile scans one path.
func (o *Orchestrator) ScanFile(path string) scanner.Record {
	return o.files.Scan(path, scanner.ContextFile)
}

func (o *Orchestrator) Status() Status {
	return o.session.Status()
}

func (o *Orchestrator) report(p Progress) {
	if o.progress != nil {
		o.progress(p)
	}
}

// batcher saves records in fixed-size chunks.
type batcher struct {
	sink    scanner.Sink
	size    int
	log     *logrus.Entry
	pending []scanner.Record
}

func (b *batcher) add(r scanner.Record) {
	b.pending = append(b.pending, r)
	if len(b.pending) >= b.size {
		b.flush()
	}
}

func (b *batcher) flush() {
	if len(b.pending) == 0 || b.sink == nil {
		b.pending = nil
		return
	}
	if err := b.sink.SaveBatch(b.pending); err != nil {
		b.log.WithError(err).Errorf("failed to save batch of %d records", len(b.pending))
	} else {
		b.log.Debugf("saved batch of %d records", len(b.pending))
	}
	b.pending = nil
}

func (o *Orchestrator) newBatcher() *batcher {
	return &batcher{sink: o.sink, size: o.batchSize, log: o.log}
}
