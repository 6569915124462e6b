package scanner

import (
	"time"

	"github.com/google/uuid"

	"github.com/avguard/avscan/internal/classifier"
)

// MaxFileSize is the hard ceiling above which files are not read.
const MaxFileSize int64 = 100 << 20

// Context names the orchestration mode that produced a record.
type Context string

const (
	ContextFile      Context = "FILE"
	ContextDirectory Context = "DIRECTORY"
	ContextSystem    Context = "SYSTEM"
)

type Action string

const (
	ActionNone        Action = "NONE"
	ActionQuarantined Action = "QUARANTINED"
	ActionDeleted     Action = "DELETED"
)

// Record is the verdict for one filesystem path.
type Record struct {
	ID        string              `json:"id"`
	Path      string              `json:"path"`
	Category  classifier.Category `json:"category"`
	Infected  bool                `json:"infected"`
	Details   string              `json:"details"`
	Hash      string              `json:"hash,omitempty"`
	Context   Context             `json:"scan_context"`
	Action    Action              `json:"action"`
	Timestamp time.Time           `json:"timestamp"`
}

// finalize stamps the record. A record that already carries a timestamp
// keeps it.
func (r *Record) finalize(now time.Time) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = now
	}
	if r.Action == "" {
		r.Action = ActionNone
	}
	r.Infected = r.Category.IsThreat()
}

// NewRecord builds a finalized record that did not go through
// classification, such as a skipped or unreadable path.
func NewRecord(path string, ctx Context, category classifier.Category, details string) Record {
	r := Record{Path: path, Context: ctx, Category: category, Details: details}
	r.finalize(time.Now())
	return r
}

// Sink persists records.
type Sink interface {
	Save(r Record) error
	SaveBatch(rs []Record) error
}

// AuditLog keeps the most recent records.
type AuditLog interface {
	Append(r Record) error
}

// Summary counts records by outcome.
type Summary struct {
	Total    int
	Clean    int
	Infected int
	Errors   int
	Warnings int
	Skipped  int
}

func Summarize(records []Record) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		switch {
		case r.Infected:
			s.Infected++
		case r.Category == classifier.Clean:
			s.Clean++
		case r.Category == classifier.Error:
			s.Errors++
		case r.Category == classifier.Warning:
			s.Warnings++
		case r.Category == classifier.Skipped:
			s.Skipped++
		}
	}
	return s
}
