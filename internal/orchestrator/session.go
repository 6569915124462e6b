package orchestrator

import (
	"sync"
	"sync/atomic"
	"time"
)

// State is the last known phase of the system scan session.
type State string

const (
	StateIdle      State = "IDLE"
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
	StateStopped   State = "STOPPED"
	StateFailed    State = "FAILED"
)

// Session is the process-wide guard for system scans. At most one holder
// wins TryStart until Finish is called.
type Session struct {
	running atomic.Bool
	stop    atomic.Bool
	scanned atomic.Int64
	skipped atomic.Int64

	mu       sync.Mutex
	state    State
	started  time.Time
	finished time.Time
}

func NewSession() *Session {
	return &Session{state: StateIdle}
}

// TryStart claims the session. It reports false if a scan already holds it.
func (s *Session) TryStart() bool {
	if !s.running.CompareAndSwap(false, true) {
		return false
	}
	s.stop.Store(false)
	s.scanned.Store(0)
	s.skipped.Store(0)

	s.mu.Lock()
	s.state = StateRunning
	s.started = time.Now()
	s.finished = time.Time{}
	s.mu.Unlock()
	return true
}

// RequestStop asks a running scan to unwind. It does not wait.
func (s *Session) RequestStop() bool {
	if !s.running.Load() {
		return false
	}
	s.stop.Store(true)
	return true
}

func (s *Session) StopRequested() bool {
	return s.stop.Load()
}

func (s *Session) IsRunning() bool {
	return s.running.Load()
}

// Finish records the outcome and releases the session.
func (s *Session) Finish(outcome State) {
	s.mu.Lock()
	s.state = outcome
	s.finished = time.Now()
	s.mu.Unlock()

	s.stop.Store(false)
	s.running.Store(false)
}

// Status is a point-in-time view of the session.
type Status struct {
	State      State     `json:"state"`
	Running    bool      `json:"running"`
	Scanned    int64     `json:"scanned"`
	Skipped    int64     `json:"skipped"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:      s.state,
		Running:    s.running.Load(),
		Scanned:    s.scanned.Load(),
		Skipped:    s.skipped.Load(),
		StartedAt:  s.started,
		FinishedAt: s.finished,
	}
}
