package classifier

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestModelStateRoundTrip(t *testing.T) {
	dir := t.TempDir()

	in := ModelState{CurrentVersion: " v2 ", PreviousVersion: "v1"}
	if err := SaveModelState(dir, in); err != nil {
		t.Fatalf("save state: %v", err)
	}

	out, err := LoadModelState(dir)
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if out.CurrentVersion != "v2" || out.PreviousVersion != "v1" {
		t.Fatalf("unexpected state: %+v", out)
	}
}

func TestModelStateNotFound(t *testing.T) {
	_, err := LoadModelState(t.TempDir())
	if !errors.Is(err, ErrModelStateNotFound) {
		t.Fatalf("expected ErrModelStateNotFound, got %v", err)
	}
}

func TestModelStateRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "state.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadModelState(dir); err == nil {
		t.Fatalf("expected decode error")
	}
}

func writeModelFile(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ModelFileName), []byte("onnx"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
}

func TestResolveActiveDirFlatLayout(t *testing.T) {
	dir := t.TempDir()
	writeModelFile(t, dir)

	got, err := ResolveActiveDir(dir)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != dir {
		t.Fatalf("resolved %s, want %s", got, dir)
	}
}

func TestResolveActiveDirVersioned(t *testing.T) {
	base := t.TempDir()
	writeModelFile(t, filepath.Join(base, "v2"))
	if err := SaveModelState(base, ModelState{CurrentVersion: "v2"}); err != nil {
		t.Fatalf("save state: %v", err)
	}

	got, err := ResolveActiveDir(base)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != filepath.Join(base, "v2") {
		t.Fatalf("resolved %s, want v2 subdir", got)
	}
}

func TestResolveActiveDirFallsBackToPrevious(t *testing.T) {
	base := t.TempDir()
	writeModelFile(t, filepath.Join(base, "v1"))
	// v2 is named current but its model file is gone.
	if err := SaveModelState(base, ModelState{CurrentVersion: "v2", PreviousVersion: "v1"}); err != nil {
		t.Fatalf("save state: %v", err)
	}

	got, err := ResolveActiveDir(base)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != filepath.Join(base, "v1") {
		t.Fatalf("resolved %s, want previous version v1", got)
	}
}

func TestResolveActiveDirNothingUsable(t *testing.T) {
	if _, err := ResolveActiveDir(t.TempDir()); err == nil {
		t.Fatalf("expected error for empty model dir")
	}
}

func TestDecideStartupModelLoaded(t *testing.T) {
	mode, err := DecideStartup(nil, true)
	if err != nil || mode != "ml" {
		t.Fatalf("expected ml mode, got mode=%s err=%v", mode, err)
	}
}

func TestDecideStartupDegradedWhenOptional(t *testing.T) {
	mode, err := DecideStartup(errors.New("boom"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != "degraded" {
		t.Fatalf("expected degraded mode, got %s", mode)
	}
}

func TestDecideStartupFailsWhenRequired(t *testing.T) {
	if _, err := DecideStartup(errors.New("boom"), true); err == nil {
		t.Fatalf("expected error when model is required")
	}
}
