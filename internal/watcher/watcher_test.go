package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitTrigger(t *testing.T, w *Watcher, timeout time.Duration) bool {
	t.Helper()
	select {
	case <-w.Triggers():
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestTriggerOnWrite(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if !waitTrigger(t, w, 2*time.Second) {
		t.Fatal("no trigger after file write")
	}
}

func TestBurstCoalescesToOneTrigger(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, WithDebounce(100*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(filepath.Join(root, "main.go"), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !waitTrigger(t, w, 2*time.Second) {
		t.Fatal("no trigger after burst")
	}
	// The burst fell inside one debounce window: no second trigger.
	if waitTrigger(t, w, 300*time.Millisecond) {
		t.Error("burst produced more than one trigger")
	}
}

func TestIgnoredDirsDoNotTrigger(t *testing.T) {
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	if err := os.MkdirAll(gitDir, 0755); err != nil {
		t.Fatal(err)
	}

	w, err := New(root, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(gitDir, "index.lock"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if waitTrigger(t, w, 300*time.Millisecond) {
		t.Error(".git activity produced a trigger")
	}
}

func TestNewDirectoriesAreWatched(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	sub := filepath.Join(root, "pkg")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if !waitTrigger(t, w, 2*time.Second) {
		t.Fatal("no trigger for directory creation")
	}

	// Writes inside the new directory are seen too.
	if err := os.WriteFile(filepath.Join(sub, "pkg.go"), []byte("package pkg\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if !waitTrigger(t, w, 2*time.Second) {
		t.Fatal("no trigger for file in new directory")
	}
}
