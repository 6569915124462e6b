package classifier

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var ransomwareExtensions = map[string]bool{
	".encrypted": true, ".crypto": true, ".locked": true, ".crypted": true,
	".crypt": true, ".vault": true, ".petya": true, ".wannacry": true,
	".wcry": true, ".wncry": true, ".locky": true, ".zepto": true,
	".thor": true, ".aesir": true, ".zzzzz": true,
}

var ransomNoteMarkers = []string{
	"your files have been encrypted",
	"your important files",
	"bitcoin",
	"btc wallet",
	"ransom",
	"decrypt",
	"payment",
}

var torReference = regexp.MustCompile(`\.(onion|tor)\b`)

// Headers of well-known encrypted containers, matched against the first
// eight bytes of undecodable files.
var encryptedHeaders = []namedBytes{
	{"openssl-salted", []byte("Salted__")},
	{"aescrypt", []byte{'A', 'E', 'S', 0x02, 0x00}},
	{"aescrypt", []byte{'A', 'E', 'S', 0x01, 0x00}},
	{"vimcrypt", []byte("VimCrypt")},
	{"luks", []byte{'L', 'U', 'K', 'S', 0xBA, 0xBE}},
}

// Extensions longer than four characters that are still ordinary.
var commonLongExtensions = map[string]bool{
	"xhtml": true, "plist": true, "swift": true, "scala": true,
	"ipynb": true, "gradle": true, "properties": true, "torrent": true,
}

func detectRansomware(s *Sample, c *content) (string, bool) {
	ext := strings.ToLower(filepath.Ext(s.Path))
	if ransomwareExtensions[ext] {
		return fmt.Sprintf("ransomware extension %s", ext), true
	}

	if c.decoded {
		for _, line := range c.lower {
			if marker, ok := containsAny(line, ransomNoteMarkers); ok {
				return fmt.Sprintf("ransom note marker %q", marker), true
			}
			if torReference.MatchString(line) {
				return "tor hidden service reference", true
			}
		}
	} else if len(c.raw) >= 8 {
		header := c.raw[:8]
		for _, h := range encryptedHeaders {
			if bytes.HasPrefix(header, h.bytes) {
				return fmt.Sprintf("encrypted container header (%s)", h.name), true
			}
		}
	}

	if hasRansomNoteNeighbourhood(s.Siblings) {
		return "ransom note next to mass-renamed files", true
	}
	return "", false
}

func isRansomNoteName(name string) bool {
	name = strings.ToLower(name)
	return (strings.Contains(name, "readme") && strings.Contains(name, "txt")) ||
		strings.Contains(name, "how_to_decrypt") ||
		strings.Contains(name, "help_decrypt") ||
		strings.Contains(name, "recovery")
}

func isUnusualExtension(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	return len(ext) > 4 && !commonLongExtensions[ext]
}

func hasRansomNoteNeighbourhood(siblings []string) bool {
	note := false
	unusual := 0
	for _, name := range siblings {
		if isRansomNoteName(name) {
			note = true
		}
		if isUnusualExtension(name) {
			unusual++
		}
	}
	return note && unusual > 5
}
