package quarantine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

func fixedJail(t *testing.T) *Jail {
	t.Helper()
	j := NewJail(filepath.Join(t.TempDir(), "jail"))
	j.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 6, 0, time.Local) }
	return j
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestQuarantineMovesFileWithSuffix(t *testing.T) {
	j := fixedJail(t)
	src := filepath.Join(t.TempDir(), "evil.exe")
	writeFile(t, src, "payload")

	dest, err := j.Quarantine(src)
	if err != nil {
		t.Fatalf("Quarantine: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source still exists after quarantine")
	}
	if filepath.Base(dest) != "20240309_140506_evil.exe.quarantine" {
		t.Errorf("dest = %s", filepath.Base(dest))
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "payload" {
		t.Errorf("quarantined content = %q, %v", data, err)
	}
	info, err := os.Stat(j.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Error("jail is not a directory")
	}
}

func TestQuarantineAvoidsCollisions(t *testing.T) {
	j := fixedJail(t)
	dir := t.TempDir()

	var dests []string
	for _, sub := range []string{"a", "b"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			t.Fatal(err)
		}
		src := filepath.Join(dir, sub, "same.txt")
		writeFile(t, src, sub)
		dest, err := j.Quarantine(src)
		if err != nil {
			t.Fatalf("Quarantine: %v", err)
		}
		dests = append(dests, dest)
	}
	if dests[0] == dests[1] {
		t.Fatalf("both files quarantined to %s", dests[0])
	}
	if !strings.Contains(filepath.Base(dests[1]), "-1_same.txt") {
		t.Errorf("second dest = %s, want a -1 slot", dests[1])
	}
}

func TestQuarantineMissingFile(t *testing.T) {
	j := fixedJail(t)
	if _, err := j.Quarantine(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestListAndRestore(t *testing.T) {
	j := fixedJail(t)
	src := filepath.Join(t.TempDir(), "doc.txt")
	writeFile(t, src, "hello")
	if _, err := j.Quarantine(src); err != nil {
		t.Fatal(err)
	}

	entries, err := j.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("List() returned %d entries", len(entries))
	}
	e := entries[0]
	if e.OriginalName != "doc.txt" || e.Size != 5 {
		t.Errorf("entry = %+v", e)
	}
	if e.QuarantinedAt.Year() != 2024 {
		t.Errorf("QuarantinedAt = %v", e.QuarantinedAt)
	}

	restoreDir := t.TempDir()
	dest, err := j.Restore(e.Name, restoreDir)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if dest != filepath.Join(restoreDir, "doc.txt") {
		t.Errorf("dest = %s", dest)
	}
	if data, _ := os.ReadFile(dest); string(data) != "hello" {
		t.Errorf("restored content = %q", data)
	}

	entries, _ = j.List()
	if len(entries) != 0 {
		t.Errorf("jail still has %d entries after restore", len(entries))
	}
}

func TestRestoreRejectsNonQuarantineNames(t *testing.T) {
	j := fixedJail(t)
	_, err := j.Restore("plain.txt", t.TempDir())
	if !errors.Is(err, ErrNotQuarantined) {
		t.Errorf("err = %v, want ErrNotQuarantined", err)
	}
}

func TestListMissingJailIsEmpty(t *testing.T) {
	j := NewJail(filepath.Join(t.TempDir(), "absent"))
	entries, err := j.List()
	if err != nil || len(entries) != 0 {
		t.Errorf("List() = %v, %v", entries, err)
	}
}

func TestDelete(t *testing.T) {
	src := filepath.Join(t.TempDir(), "gone.bin")
	writeFile(t, src, "x")
	if err := Delete(src); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("file still exists")
	}
	if err := Delete(src); err == nil {
		t.Error("expected error deleting twice")
	}
}

func stubMove(t *testing.T, renameErr, removeErr error) {
	t.Helper()
	origRename, origRemove := rename, remove
	t.Cleanup(func() { rename, remove = origRename, origRemove })

	rename = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: renameErr}
	}
	if removeErr != nil {
		remove = func(string) error { return removeErr }
	}
}

func jailFiles(t *testing.T, j *Jail) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(j.Dir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	return entries
}

func TestQuarantineCopiesAcrossDevices(t *testing.T) {
	j := fixedJail(t)
	src := filepath.Join(t.TempDir(), "evil.exe")
	writeFile(t, src, "payload")
	stubMove(t, syscall.EXDEV, nil)

	dest, err := j.Quarantine(src)
	if err != nil {
		t.Fatalf("Quarantine: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source still exists after cross-device quarantine")
	}
	if data, err := os.ReadFile(dest); err != nil || string(data) != "payload" {
		t.Errorf("quarantined content = %q, %v", data, err)
	}
}

func TestQuarantineRenameFailureLeavesNoCopy(t *testing.T) {
	j := fixedJail(t)
	src := filepath.Join(t.TempDir(), "evil.exe")
	writeFile(t, src, "payload")
	stubMove(t, syscall.EACCES, nil)

	if _, err := j.Quarantine(src); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source should stay in place: %v", err)
	}
	if entries := jailFiles(t, j); len(entries) != 0 {
		t.Errorf("jail holds %d files after failed quarantine", len(entries))
	}
}

func TestQuarantineCopyRemovedWhenSourceStays(t *testing.T) {
	j := fixedJail(t)
	src := filepath.Join(t.TempDir(), "evil.exe")
	writeFile(t, src, "payload")
	stubMove(t, syscall.EXDEV, os.ErrPermission)

	_, err := j.Quarantine(src)
	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("err = %v, want permission error", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source should stay in place: %v", err)
	}
	if entries := jailFiles(t, j); len(entries) != 0 {
		t.Errorf("jail holds %d files after failed quarantine", len(entries))
	}
}

func TestRestoreRenameFailureKeepsQuarantinedFile(t *testing.T) {
	j := fixedJail(t)
	src := filepath.Join(t.TempDir(), "evil.exe")
	writeFile(t, src, "payload")
	dest, err := j.Quarantine(src)
	if err != nil {
		t.Fatal(err)
	}

	stubMove(t, syscall.EACCES, nil)
	out := t.TempDir()
	if _, err := j.Restore(filepath.Base(dest), out); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("quarantined file should remain: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "evil.exe")); !os.IsNotExist(err) {
		t.Error("restore left a copy behind")
	}
}
