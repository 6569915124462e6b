package classifier

import "fmt"

var keyloggerTextMarkers = []string{
	"getasynckeystate",
	"getkeyboardstate",
	"keyboard_event",
	"setwindowshookex",
	"wh_keyboard_ll",
}

var keyloggerImports = []namedBytes{
	{"GetAsyncKeyState", []byte("GetAsyncKeyState")},
	{"SetWindowsHookExA", []byte("SetWindowsHookExA")},
	{"SetWindowsHookExW", []byte("SetWindowsHookExW")},
}

func detectKeylogger(s *Sample, c *content) (string, bool) {
	if c.decoded {
		for _, line := range c.lower {
			if marker, ok := containsAny(line, keyloggerTextMarkers); ok {
				return fmt.Sprintf("keyboard capture marker %q", marker), true
			}
		}
	}
	if sym, ok := containsAnySequence(c.raw, keyloggerImports); ok {
		return fmt.Sprintf("keyboard capture import %s", sym), true
	}
	return "", false
}
