package network

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckpointRoundTrip(t *testing.T) {
	m, err := NewModel(2, 2, smallParams())
	if err != nil {
		t.Fatalf("NewModel error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model", "final_model.gob")

	id, err := Save(m, path)
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if id == "" {
		t.Fatalf("Save returned an empty id")
	}

	loaded, err := Load(path, CPU)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Training() {
		t.Fatalf("loaded model should be in eval mode")
	}
	if loaded.Params.DropoutProb != NoDropout {
		t.Fatalf("disabled dropout not preserved, got %v", loaded.Params.DropoutProb)
	}

	m.Eval()
	inputs, _ := syntheticBatch()
	want, err := m.Predict(inputs)
	if err != nil {
		t.Fatalf("Predict error: %v", err)
	}
	got, err := loaded.Predict(inputs)
	if err != nil {
		t.Fatalf("Predict (loaded) error: %v", err)
	}
	for i := range want {
		for j := range want[i] {
			if want[i][j] != got[i][j] {
				t.Fatalf("prediction mismatch at %d,%d: %v vs %v", i, j, want[i][j], got[i][j])
			}
		}
	}

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the checkpoint file, found %d entries", len(entries))
	}
}

// TestSaveReportsErrors checks that a failed save is returned to the caller
// and leaves no temp file next to the target.
func TestSaveReportsErrors(t *testing.T) {
	m, err := NewModel(2, 2, smallParams())
	if err != nil {
		t.Fatalf("NewModel error: %v", err)
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "occupied")
	if err := os.MkdirAll(filepath.Join(target, "child"), 0755); err != nil {
		t.Fatalf("MkdirAll error: %v", err)
	}
	if _, err := Save(m, target); err == nil {
		t.Fatalf("expected error when the target is a non-empty directory")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp file to be removed, found %d entries", len(entries))
	}
	if _, err := Save(m, ""); err == nil {
		t.Fatalf("expected error for an empty path")
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.gob")
	if err := os.WriteFile(path, []byte("not a checkpoint"), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if _, err := Load(path, CPU); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.gob"), CPU); err == nil {
		t.Fatalf("expected open error")
	}
}
