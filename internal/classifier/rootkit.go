package classifier

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var kernelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)kernel.*hook`),
	regexp.MustCompile(`(?i)syscall.*table`),
	regexp.MustCompile(`(?i)interrupt.*descriptor.*table`),
	regexp.MustCompile(`(?i)idt.*hook`),
	regexp.MustCompile(`(?i)process.*hiding`),
	regexp.MustCompile(`(?i)driver.*load`),
}

var rootkitBinarySignatures = []namedBytes{
	{"hideproc", []byte("hideproc")},
	{"syscall", []byte("syscall")},
	{"kernel32", []byte("kernel32")},
}

func (cl *Classifier) detectRootkit(s *Sample, c *content) (string, bool) {
	lowerPath := strings.ToLower(s.Path)
	for _, dir := range cl.opts.SensitiveDirs {
		if strings.HasPrefix(lowerPath, strings.ToLower(dir)) {
			return fmt.Sprintf("file in sensitive location %s", dir), true
		}
	}

	if c.decoded {
		for _, line := range c.lines {
			for _, re := range kernelPatterns {
				if re.MatchString(line) {
					return "kernel manipulation pattern", true
				}
			}
		}
	}

	if sig, ok := containsAnySequence(c.raw, rootkitBinarySignatures); ok {
		return fmt.Sprintf("rootkit byte pattern (%s)", sig), true
	}

	if s.Hidden {
		return "hidden file", true
	}

	if s.Size == 0 && !strings.HasSuffix(strings.ToLower(filepath.Base(s.Path)), ".log") {
		return "zero-byte file", true
	}
	return "", false
}
