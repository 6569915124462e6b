// Package classifier turns an in-memory file sample into a Verdict.
//
// The chain is fixed: known hash, pattern match, then the ransomware,
// trojan, rootkit and keylogger heuristics. The first stage that fires
// decides the category. Every stage works on the already-loaded buffer and
// never touches the file again.
package classifier

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// Signatures is the read side of the signature store.
type Signatures interface {
	LookupHash(hash string) bool
	Match(content []byte) (string, bool)
}

// Sample is everything the chain may look at for one file.
type Sample struct {
	Path     string
	Content  []byte
	Size     int64
	Hidden   bool
	Hashes   []string
	Siblings []string
}

type Options struct {
	// SensitiveDirs are lowercase path prefixes where any file is treated as
	// a rootkit indicator.
	SensitiveDirs []string
}

func DefaultOptions() Options {
	return Options{SensitiveDirs: []string{
		"/proc/",
		"/sys/",
		"/boot/",
		`c:\windows\system32\drivers\`,
		`c:\windows\syswow64\drivers\`,
	}}
}

type Classifier struct {
	sigs   Signatures
	opts   Options
	stages []stage
}

type stage struct {
	category Category
	check    func(s *Sample, c *content) (string, bool)
}

func New(sigs Signatures, opts Options) *Classifier {
	c := &Classifier{sigs: sigs, opts: opts}
	c.stages = []stage{
		{Ransomware, detectRansomware},
		{Trojan, detectTrojan},
		{Rootkit, c.detectRootkit},
		{Keylogger, detectKeylogger},
	}
	return c
}

// Classify runs the detection chain over s.
func (c *Classifier) Classify(s Sample) Verdict {
	for _, h := range s.Hashes {
		if h != "" && c.sigs.LookupHash(h) {
			return ThreatVerdict(Virus, "known signature match")
		}
	}

	if rule, ok := c.sigs.Match(s.Content); ok {
		return ThreatVerdict(Malware, "suspicious pattern: "+rule)
	}

	view := newContent(s.Content)
	for _, st := range c.stages {
		if details, hit := st.check(&s, view); hit {
			return ThreatVerdict(st.category, details)
		}
	}
	return CleanVerdict()
}

// content is the decoded view of a sample shared across stages. When the
// bytes are not text, decoded is false and the textual checks are skipped.
type content struct {
	raw     []byte
	decoded bool
	lines   []string
	lower   []string
}

func newContent(raw []byte) *content {
	c := &content{raw: raw}
	if !utf8.Valid(raw) || bytes.IndexByte(raw, 0) >= 0 {
		return c
	}
	c.decoded = true
	if len(raw) == 0 {
		return c
	}
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSuffix(line, "\r")
		c.lines = append(c.lines, line)
		c.lower = append(c.lower, strings.ToLower(line))
	}
	return c
}

func containsAny(s string, needles []string) (string, bool) {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return n, true
		}
	}
	return "", false
}

func containsAnySequence(raw []byte, seqs []namedBytes) (string, bool) {
	for _, seq := range seqs {
		if bytes.Contains(raw, seq.bytes) {
			return seq.name, true
		}
	}
	return "", false
}

type namedBytes struct {
	name  string
	bytes []byte
}
