package daemonrun

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestEnsureCurrentLogPointerReplacesLink(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "encodegate-1.log")
	second := filepath.Join(dir, "encodegate-2.log")
	for _, path := range []string{first, second} {
		if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "encodegate.log"))
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "encodegate-2.log" {
		t.Fatalf("pointer resolves to %q", data)
	}
	link, err := os.Readlink(filepath.Join(dir, "encodegate.log"))
	if err != nil || link != "encodegate-2.log" {
		t.Fatalf("pointer should be a relative link, got %q (%v)", link, err)
	}
	if _, err := os.Lstat(filepath.Join(dir, "encodegate.log.next")); !os.IsNotExist(err) {
		t.Fatalf("staging link left behind: %v", err)
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encodegated.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Fatalf("pid file = %q", data)
	}
}
