package network

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// checkpointVersion is incremented when the on-disk format changes.
const checkpointVersion = 1

// checkpointFormat is the on-disk representation of a model.
type checkpointFormat struct {
	Version   int
	ID        string
	CreatedAt int64
	Params    Params
	InputDim  int
	OutputDim int
	Tensors   map[string][]float64
}

// Save writes the model to path using encoding/gob and returns the id stamped
// on the checkpoint. The write is atomic: a temp file in the same directory
// is renamed over path once fully written.
func Save(m *Model, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty checkpoint path")
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return "", fmt.Errorf("create temp checkpoint file: %w", err)
	}
	tmpName := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		_ = os.Remove(tmpName)
	}()

	ck := checkpointFormat{
		Version:   checkpointVersion,
		ID:        uuid.NewString(),
		CreatedAt: time.Now().Unix(),
		Params:    m.Params,
		InputDim:  m.InputDim,
		OutputDim: m.OutputDim,
		Tensors:   make(map[string][]float64, len(m.params)),
	}
	for _, p := range m.params {
		ck.Tensors[p.Name] = p.Data
	}
	if err := gob.NewEncoder(tmpFile).Encode(&ck); err != nil {
		return "", fmt.Errorf("encode checkpoint to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return "", fmt.Errorf("sync temp checkpoint file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("close temp checkpoint file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("rename temp checkpoint to target: %w", err)
	}
	return ck.ID, nil
}

// Load reads a checkpoint written by Save and places the model on device.
// The returned model is in evaluation mode.
func Load(path string, device Device) (*Model, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint %s: %w", path, err)
	}
	defer fh.Close()

	var ck checkpointFormat
	if err := gob.NewDecoder(fh).Decode(&ck); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	if ck.Version != checkpointVersion {
		return nil, fmt.Errorf("checkpoint version mismatch: checkpoint=%d expected=%d", ck.Version, checkpointVersion)
	}

	m, err := NewModel(ck.InputDim, ck.OutputDim, ck.Params)
	if err != nil {
		return nil, fmt.Errorf("rebuild model from checkpoint: %w", err)
	}
	for _, p := range m.params {
		data, ok := ck.Tensors[p.Name]
		if !ok {
			return nil, fmt.Errorf("checkpoint is missing tensor %q", p.Name)
		}
		if len(data) != len(p.Data) {
			return nil, fmt.Errorf("checkpoint tensor %q has %d values, expected %d", p.Name, len(data), len(p.Data))
		}
		copy(p.Data, data)
	}
	if err := m.To(device); err != nil {
		return nil, err
	}
	m.Eval()
	return m, nil
}
