package history

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/avguard/avscan/internal/classifier"
	"github.com/avguard/avscan/internal/scanner"
)

func record(i int) scanner.Record {
	return scanner.NewRecord(fmt.Sprintf("/f/%d", i), scanner.ContextFile, classifier.Clean, "no threats detected")
}

func TestLastNMostRecentFirst(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "logs", "history.log"), 100)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 7; i++ {
		if err := l.Append(record(i)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := l.LastN(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("LastN(5) returned %d records", len(got))
	}
	for i, r := range got {
		want := fmt.Sprintf("/f/%d", 6-i)
		if r.Path != want {
			t.Errorf("got[%d].Path = %s, want %s", i, r.Path, want)
		}
	}

	all, _ := l.LastN(50)
	if len(all) != 7 {
		t.Errorf("LastN(50) returned %d, want 7", len(all))
	}
	none, _ := l.LastN(0)
	if len(none) != 0 {
		t.Errorf("LastN(0) returned %d", len(none))
	}
}

func TestLastNOnMissingFile(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "history.log"), 10)
	if err != nil {
		t.Fatal(err)
	}
	got, err := l.LastN(5)
	if err != nil || len(got) != 0 {
		t.Errorf("LastN() = %v, %v", got, err)
	}
}

func TestAppendTrimsToMax(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.log")
	l, err := Open(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 30; i++ {
		if err := l.Append(record(i)); err != nil {
			t.Fatal(err)
		}
	}

	lines, err := l.readLines()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) > 11 {
		t.Errorf("log holds %d lines, want at most 11", len(lines))
	}
	got, _ := l.LastN(1)
	if len(got) != 1 || got[0].Path != "/f/29" {
		t.Errorf("newest record = %+v", got)
	}
}

func TestCorruptLinesAreSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.log")
	if err := os.WriteFile(path, []byte("not json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	l, err := Open(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Append(record(1)); err != nil {
		t.Fatal(err)
	}
	got, err := l.LastN(5)
	if err != nil || len(got) != 1 {
		t.Errorf("LastN() = %d records, %v; want 1", len(got), err)
	}
}
