package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/avguard/avscan/internal/classifier"
	"github.com/avguard/avscan/internal/scanner"
)

func sampleRecords() []scanner.Record {
	virus := scanner.NewRecord("/x/bad.exe", scanner.ContextDirectory, classifier.Virus, "known signature match")
	virus.Action = scanner.ActionQuarantined
	return []scanner.Record{
		scanner.NewRecord("/x/ok.txt", scanner.ContextDirectory, classifier.Clean, "no threats detected"),
		virus,
		scanner.NewRecord("/x/.h", scanner.ContextDirectory, classifier.Skipped, "hidden file"),
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleRecords()); err != nil {
		t.Fatal(err)
	}

	var out JSONOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	want := JSONSummary{Total: 3, Clean: 1, Infected: 1, Skipped: 1}
	if out.Summary != want {
		t.Errorf("summary = %+v, want %+v", out.Summary, want)
	}
	if !strings.Contains(buf.String(), `"scan_context": "DIRECTORY"`) {
		t.Error("scan_context field missing")
	}
}

func TestWriteJSONEmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"records": []`) {
		t.Errorf("output = %s", buf.String())
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	WriteTable(&buf, "Directory Scan Results", sampleRecords())

	out := buf.String()
	for _, want := range []string{"Directory Scan Results", "VIRUS", "QUARANTINED", "Infected:   1", "Skipped:    1"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Errors:") {
		t.Error("zero error count should be omitted")
	}
}
