package classifier

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var trojanNameKeywords = []string{
	"backdoor", "rootkit", "trojan", "remote_access",
	"stealer", "inject", "payload", "downloader",
}

var trojanTextMarkers = []string{
	"socket.connect",
	"reverse_tcp",
	"remote_shell",
	"process.create",
	"registry.write",
	"wscript.shell",
}

var shellPhrase = regexp.MustCompile(`(?i)\b(bind|reverse)\s*shell\b`)

var trojanBinaryPrefixes = []namedBytes{
	{"shellcode-prologue", []byte{0xFC, 0xE8, 0x82, 0x00}},
	{"push-loopback", []byte{0x68, 0x7F, 0x00, 0x00, 0x01}},
	{"dos-stub", []byte{0x4D, 0x5A, 0x90, 0x00}},
}

var (
	ipv4Literal     = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)
	nameTokenSplit  = regexp.MustCompile(`[^a-z0-9]+`)
	networkSchemes  = []string{"http://", "https://", "ftp://"}
	networkKeywords = []string{"socket", "connect", "download"}
)

func detectTrojan(s *Sample, c *content) (string, bool) {
	name := strings.ToLower(filepath.Base(s.Path))
	if kw, ok := containsAny(name, trojanNameKeywords); ok {
		return fmt.Sprintf("trojan keyword %q in file name", kw), true
	}
	// "rat" only as a whole token, it is too common as a substring.
	for _, tok := range nameTokenSplit.Split(name, -1) {
		if tok == "rat" {
			return `trojan keyword "rat" in file name`, true
		}
	}

	if c.decoded {
		for i, line := range c.lower {
			if marker, ok := containsAny(line, trojanTextMarkers); ok {
				return fmt.Sprintf("remote access marker %q", marker), true
			}
			if shellPhrase.MatchString(c.lines[i]) {
				return "bind/reverse shell reference", true
			}
		}
	}

	if sig, ok := containsAnySequence(c.raw, trojanBinaryPrefixes); ok {
		return fmt.Sprintf("trojan byte pattern (%s)", sig), true
	}

	if c.decoded {
		if n := countNetworkLines(c.lower); n > 3 {
			return fmt.Sprintf("%d network indicators", n), true
		}
	}
	return "", false
}

// countNetworkLines counts distinct lines that carry a URL, an IPv4 literal
// or a socket/connect/download keyword.
func countNetworkLines(lower []string) int {
	seen := make(map[string]bool)
	for _, line := range lower {
		if seen[line] {
			continue
		}
		_, scheme := containsAny(line, networkSchemes)
		_, keyword := containsAny(line, networkKeywords)
		if scheme || keyword || ipv4Literal.MatchString(line) {
			seen[line] = true
		}
	}
	return len(seen)
}
