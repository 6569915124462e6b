// Package history keeps an append-only audit log of scan records as JSON
// lines, capped at a fixed number of entries.
package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/avguard/avscan/internal/logging"
	"github.com/avguard/avscan/internal/scanner"
)

const DefaultMaxEntries = 1000

type Log struct {
	path string
	max  int

	mu    sync.Mutex
	count int
	log   *logrus.Entry
}

// Open prepares the log at path, creating its directory. A max of zero or
// less uses DefaultMaxEntries.
func Open(path string, max int) (*Log, error) {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	l := &Log{path: path, max: max, log: logging.For("history")}
	lines, err := l.readLines()
	if err != nil {
		return nil, err
	}
	l.count = len(lines)
	return l, nil
}

// Append writes r at the end of the log.
func (l *Log) Append(r scanner.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	_, err = f.Write(append(data, '\n'))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}

	l.count++
	// trim in chunks so appends stay cheap
	if l.count > l.max+l.max/10 {
		return l.trim()
	}
	return nil
}

// LastN returns up to n records, most recent first.
func (l *Log) LastN(n int) ([]scanner.Record, error) {
	if n <= 0 {
		return nil, nil
	}

	l.mu.Lock()
	lines, err := l.readLines()
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]scanner.Record, 0, n)
	for i := len(lines) - 1; i >= 0 && len(out) < n; i-- {
		var r scanner.Record
		if err := json.Unmarshal(lines[i], &r); err != nil {
			l.log.WithError(err).Debug("skipping corrupt history line")
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (l *Log) readLines() ([][]byte, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var lines [][]byte
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
	}
	return lines, sc.Err()
}

// trim keeps the newest max lines. Callers hold mu.
func (l *Log) trim() error {
	lines, err := l.readLines()
	if err != nil {
		return err
	}
	if len(lines) > l.max {
		lines = lines[len(lines)-l.max:]
	}

	tmp := l.path + ".tmp"
	var buf bytes.Buffer
	for _, line := range lines {
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to rotate history: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("failed to rotate history: %w", err)
	}

	l.count = len(lines)
	l.log.Debugf("history trimmed to %d entries", l.count)
	return nil
}
