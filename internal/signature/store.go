// Package signature holds the known-bad hash set and the threat pattern
// list consulted for every classified file.
//
// Reads never take a lock: hashes live in a sync.Map and the pattern list is
// swapped copy-on-write behind an atomic pointer. Mutation is append-only.
package signature

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
)

// Pattern is a textual rule matched case-insensitively against whole lines.
type Pattern struct {
	Name string
	expr *regexp.Regexp
}

// BinarySignature is a byte sequence searched for anywhere in the raw buffer.
type BinarySignature struct {
	Name  string
	Bytes []byte
}

type Store struct {
	hashes    sync.Map
	hashCount atomic.Int64

	mu       sync.Mutex
	patterns atomic.Pointer[[]Pattern]
	binary   []BinarySignature
}

// NewStore returns a store seeded with the given hashes and the built-in
// pattern families.
func NewStore(seed ...string) *Store {
	s := &Store{binary: defaultBinarySignatures()}

	patterns := make([]Pattern, 0, len(defaultPatterns))
	for _, p := range defaultPatterns {
		patterns = append(patterns, Pattern{Name: p.name, expr: compileLine(p.expr)})
	}
	s.patterns.Store(&patterns)

	for _, h := range seed {
		s.AddHash(h)
	}
	return s
}

func compileLine(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^(?:` + expr + `)$`)
}

func normalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}

// LookupHash reports whether hash is a known-malicious content hash.
func (s *Store) LookupHash(hash string) bool {
	_, ok := s.hashes.Load(normalizeHash(hash))
	return ok
}

// AddHash appends a hash. Empty input and duplicates are ignored.
func (s *Store) AddHash(hash string) {
	h := normalizeHash(hash)
	if h == "" {
		return
	}
	if _, loaded := s.hashes.LoadOrStore(h, struct{}{}); !loaded {
		s.hashCount.Add(1)
	}
}

func (s *Store) HashCount() int {
	return int(s.hashCount.Load())
}

// AddPattern compiles expr as a whole-line, case-insensitive rule and
// appends it to the pattern list.
func (s *Store) AddPattern(name, expr string) error {
	re, err := regexp.Compile(`(?i)^(?:` + expr + `)$`)
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := *s.patterns.Load()
	next := make([]Pattern, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, Pattern{Name: name, expr: re})
	s.patterns.Store(&next)
	return nil
}

func (s *Store) Patterns() []Pattern {
	return *s.patterns.Load()
}

// MatchesPattern reports whether any line of content fully matches a textual
// pattern or the raw bytes contain a binary signature.
func (s *Store) MatchesPattern(content []byte) bool {
	_, ok := s.Match(content)
	return ok
}

// Match is MatchesPattern returning the name of the rule that fired.
// Content is decoded lossily; invalid UTF-8 never aborts matching.
func (s *Store) Match(content []byte) (string, bool) {
	if len(content) == 0 {
		return "", false
	}

	patterns := *s.patterns.Load()
	text := strings.ToValidUTF8(string(content), "�")
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		for _, p := range patterns {
			if p.expr.MatchString(line) {
				return p.Name, true
			}
		}
	}

	for _, sig := range s.binary {
		if bytes.Contains(content, sig.Bytes) {
			return sig.Name, true
		}
	}
	return "", false
}
