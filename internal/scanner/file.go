package scanner

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avguard/avscan/internal/classifier"
	"github.com/avguard/avscan/internal/logging"
	"github.com/avguard/avscan/internal/platform"
)

// Classifier is the detection chain the file scanner delegates to.
type Classifier interface {
	Classify(s classifier.Sample) classifier.Verdict
}

// FileScanner checks, reads and classifies single files, remediates
// infected ones and hands every record to the sink and audit log.
type FileScanner struct {
	classifier Classifier
	remediator Remediator
	sink       Sink
	audit      AuditLog
	siblings   *siblingCache
	now        func() time.Time
	log        *logrus.Entry
}

type Option func(*FileScanner)

func WithSink(s Sink) Option {
	return func(fs *FileScanner) { fs.sink = s }
}

func WithAuditLog(a AuditLog) Option {
	return func(fs *FileScanner) { fs.audit = a }
}

func NewFileScanner(c Classifier, r Remediator, opts ...Option) *FileScanner {
	fs := &FileScanner{
		classifier: c,
		remediator: r,
		now:        time.Now,
		log:        logging.For("scanner"),
	}
	fs.siblings = &siblingCache{ttl: 2 * time.Second, now: func() time.Time { return fs.now() }}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// Scan produces exactly one record for path. It never returns an error:
// every failure ends up in the record.
func (fs *FileScanner) Scan(path string, ctx Context) Record {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	rec := Record{Path: abs, Context: ctx, Action: ActionNone}
	verdict := fs.inspect(abs, &rec)
	fs.apply(&rec, verdict)
	rec.finalize(fs.now())

	fs.persist(rec)
	return rec
}

func (fs *FileScanner) inspect(path string, rec *Record) (v classifier.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			fs.log.WithField("path", path).Errorf("classification panic recovered: %v", r)
			v = classifier.ErrorVerdict(fmt.Sprintf("error scanning file: %v", r))
		}
	}()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return classifier.ErrorVerdict("file does not exist")
		}
		return classifier.ErrorVerdict(fmt.Sprintf("cannot read file: %v", err))
	}
	if !info.Mode().IsRegular() {
		return classifier.ErrorVerdict("not a regular file")
	}

	f, err := os.Open(path)
	if err != nil {
		return classifier.ErrorVerdict(fmt.Sprintf("cannot read file: %v", err))
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		info = fi
	}
	if info.Size() > MaxFileSize {
		return tooLarge()
	}

	md5sum := md5.New()
	sha := sha256.New()
	var buf bytes.Buffer
	buf.Grow(int(info.Size()))

	// The limit guards against files that grow between stat and read.
	w := io.MultiWriter(&buf, md5sum, sha)
	if _, err := io.Copy(w, io.LimitReader(f, MaxFileSize+1)); err != nil {
		return classifier.ErrorVerdict(fmt.Sprintf("error reading file: %v", err))
	}
	if int64(buf.Len()) > MaxFileSize {
		return tooLarge()
	}

	md5hex := hex.EncodeToString(md5sum.Sum(nil))
	rec.Hash = md5hex

	return fs.classifier.Classify(classifier.Sample{
		Path:     path,
		Content:  buf.Bytes(),
		Size:     int64(buf.Len()),
		Hidden:   platform.IsHidden(path),
		Hashes:   []string{md5hex, hex.EncodeToString(sha.Sum(nil))},
		Siblings: fs.siblings.list(filepath.Dir(path)),
	})
}

func tooLarge() classifier.Verdict {
	return classifier.Verdict{
		Kind:     classifier.KindError,
		Category: classifier.Warning,
		Details:  "file too large to scan",
	}
}

func (fs *FileScanner) apply(rec *Record, v classifier.Verdict) {
	rec.Category = v.Category
	rec.Details = v.Details

	if v.Kind != classifier.KindThreat {
		return
	}

	entry := fs.log.WithFields(logrus.Fields{"path": rec.Path, "category": v.Category})
	entry.Warnf("infected file found: %s", v.Details)

	if fs.remediator == nil {
		rec.Details += "; remediation failed: no remediator configured"
		return
	}
	action, err := fs.remediator.Remediate(rec.Path)
	if err != nil {
		entry.WithError(err).Error("remediation failed")
		rec.Action = ActionNone
		rec.Details += "; remediation failed: " + err.Error()
		return
	}
	rec.Action = action
}

func (fs *FileScanner) persist(rec Record) {
	if fs.sink != nil {
		if err := fs.sink.Save(rec); err != nil {
			fs.log.WithField("path", rec.Path).WithError(err).Error("failed to save scan record")
		}
	}
	if fs.audit != nil {
		if err := fs.audit.Append(rec); err != nil {
			fs.log.WithField("path", rec.Path).WithError(err).Error("failed to append audit log")
		}
	}
}

// siblingCache remembers the listing of the last directory seen. Walks
// visit files directory by directory, so one slot is enough.
type siblingCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	dir   string
	at    time.Time
	names []string
}

func (c *siblingCache) list(dir string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if dir == c.dir && c.now().Sub(c.at) < c.ttl {
		return c.names
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	c.dir, c.at, c.names = dir, c.now(), names
	return names
}
