package credstore

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestLoadAbsentFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "creds.json"))
	key, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key, got %q", key)
	}
	if s.Present() {
		t.Fatal("Present must be false without a stored key")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "creds.json")
	s := New(p)
	if err := s.Save("k-abc"); err != nil {
		t.Fatalf("save: %v", err)
	}
	key, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if key != "k-abc" {
		t.Fatalf("expected k-abc, got %q", key)
	}
	if !s.Present() {
		t.Fatal("Present must be true after save")
	}
}

func TestSavePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	p := filepath.Join(t.TempDir(), "creds.json")
	s := New(p)
	if err := s.Save("secret"); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(p)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("credential file must be 0600, got %o", perm)
	}
}

func TestSaveEmptyRemoves(t *testing.T) {
	p := filepath.Join(t.TempDir(), "creds.json")
	s := New(p)
	if err := s.Save("k"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if s.Present() {
		t.Fatal("credential should be removed")
	}
	// Clearing twice is fine.
	if err := s.Save(""); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(p, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := New(p)
	if _, err := s.Load(); err == nil {
		t.Fatal("expected parse error for corrupt file")
	}
}
