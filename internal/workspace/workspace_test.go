package workspace_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"epublift/internal/workspace"
)

func TestWorkspaceLifecycle(t *testing.T) {
	parent := t.TempDir()
	ws, err := workspace.New(parent, nil)
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}

	if !strings.HasPrefix(filepath.Base(ws.Dir()), "epublift-") {
		t.Fatalf("unexpected workspace name %q", ws.Dir())
	}
	if info, err := os.Stat(ws.Dir()); err != nil || !info.IsDir() {
		t.Fatalf("workspace directory missing: %v", err)
	}

	path, err := ws.Stage("document.base64", []byte("QUJD"))
	if err != nil {
		t.Fatalf("stage file: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "QUJD" {
		t.Fatalf("staged file content wrong: %q (%v)", data, err)
	}

	if err := ws.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
		t.Fatalf("workspace still exists after release: %v", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	ws, err := workspace.New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	if err := ws.Release(); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := ws.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
}

func TestStageAfterReleaseFails(t *testing.T) {
	ws, err := workspace.New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	if err := ws.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := ws.Stage("late.bin", []byte("x")); err == nil {
		t.Fatal("expected staging after release to fail")
	}
}

func TestLockExcludesSecondOwner(t *testing.T) {
	ws, err := workspace.New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	defer ws.Release()

	contender := flock.New(filepath.Join(ws.Dir(), ".epublift.lock"))
	acquired, err := contender.TryLock()
	if err != nil {
		t.Fatalf("contender trylock: %v", err)
	}
	if acquired {
		_ = contender.Unlock()
		t.Fatal("second lock acquisition should fail while workspace is held")
	}
}
