package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestEventOpString(t *testing.T) {
	tests := []struct {
		op   EventOp
		want string
	}{
		{OpCreate, "create"},
		{OpModify, "modify"},
		{OpDelete, "delete"},
		{EventOp(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("EventOp(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestFileWatcher_Lifecycle(t *testing.T) {
	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}

	if err := fw.Start(); err == nil {
		t.Error("Start() with no files should fail")
	}

	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := fw.Start(path); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !fw.IsRunning() {
		t.Error("IsRunning() = false after Start()")
	}
	if err := fw.Start(path); err == nil {
		t.Error("second Start() should fail")
	}

	if err := fw.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if err := fw.Stop(); err != nil {
		t.Errorf("second Stop() failed: %v", err)
	}
	if _, ok := <-fw.Events(); ok {
		t.Error("Events() not closed after Stop()")
	}
}

func TestFileWatcher_MissingDirectory(t *testing.T) {
	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	defer fw.Stop()

	if err := fw.Start(filepath.Join(t.TempDir(), "missing", "book.xlsx")); err == nil {
		t.Error("Start() on a missing directory should fail")
	}
}

func TestFileWatcher_Events(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.xlsx")

	fw, err := NewFileWatcher()
	if err != nil {
		t.Fatalf("NewFileWatcher() failed: %v", err)
	}
	if err := fw.Start(path); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer fw.Stop()

	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-fw.Events():
		abs, _ := filepath.Abs(path)
		if ev.Path != abs {
			t.Errorf("event path = %s, want %s", ev.Path, abs)
		}
		if ev.Op != OpCreate && ev.Op != OpModify {
			t.Errorf("event op = %s, want create or modify", ev.Op)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event for watched file")
	}

	// Replacing the file by rename is seen as a create of the watched name.
	tmp := filepath.Join(dir, ".book.tmp.xlsx")
	if err := os.WriteFile(tmp, []byte("y"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-fw.Events():
			if ev.Op == OpCreate {
				return
			}
		case <-deadline:
			t.Fatal("no create event after rename into place")
		}
	}
}

func TestConvertEvent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.xlsx")
	fw := &FileWatcher{files: map[string]bool{path: true}}

	tests := []struct {
		name   string
		event  fsnotify.Event
		wantOK bool
		wantOp EventOp
	}{
		{name: "write", event: fsnotify.Event{Name: path, Op: fsnotify.Write}, wantOK: true, wantOp: OpModify},
		{name: "create", event: fsnotify.Event{Name: path, Op: fsnotify.Create}, wantOK: true, wantOp: OpCreate},
		{name: "remove", event: fsnotify.Event{Name: path, Op: fsnotify.Remove}, wantOK: true, wantOp: OpDelete},
		{name: "rename", event: fsnotify.Event{Name: path, Op: fsnotify.Rename}, wantOK: true, wantOp: OpDelete},
		{name: "chmod", event: fsnotify.Event{Name: path, Op: fsnotify.Chmod}, wantOK: false},
		{name: "other file", event: fsnotify.Event{Name: filepath.Join(dir, "x.xlsx"), Op: fsnotify.Write}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := fw.convertEvent(tt.event)
			if ok != tt.wantOK {
				t.Fatalf("convertEvent() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && ev.Op != tt.wantOp {
				t.Errorf("convertEvent() op = %s, want %s", ev.Op, tt.wantOp)
			}
		})
	}
}
