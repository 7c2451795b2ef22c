package training

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Noofbiz/cnngru/datasets"
	"github.com/Noofbiz/cnngru/network"
)

var (
	testSeqCols    = []string{"hr", "bp"}
	testTargetCols = []string{"event"}
)

// writeCSV writes a CSV file with the given header and rows to path.
func writeCSV(t *testing.T, path, header string, rows []string) {
	t.Helper()
	content := header + "\n" + strings.Join(rows, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write csv %s: %v", path, err)
	}
}

// writePatients writes one CSV holding weeks rows for each of n patients.
func writePatients(t *testing.T, dir string, n, weeks int) string {
	t.Helper()
	var rows []string
	for p := range n {
		for w := 1; w <= weeks; w++ {
			event := (p + w) % 2
			rows = append(rows, fmt.Sprintf("p%d,%d,%d,%d,%d", p, w, 60+p+w, 110+2*w, event))
		}
	}
	path := filepath.Join(dir, "weeks.csv")
	writeCSV(t, path, "key_id,week,hr,bp,event", rows)
	return path
}

func tinyParams() network.Params {
	return network.Params{
		CNNOutChannels: 2,
		CNNKernelSize:  2,
		GRUHiddenDim:   3,
		DropoutProb:    0.1,
		Seed:           5,
	}
}

func tinySetup(t *testing.T, patients int) (*network.Model, *datasets.Loader, *datasets.Loader) {
	t.Helper()
	path := writePatients(t, t.TempDir(), patients, 3)
	opts := DefaultDataOptions()
	opts.BatchSize = 2
	opts.ShuffleSeed = 3
	train, val, err := LoadAndPreprocessData([]string{path}, testSeqCols, testTargetCols, opts)
	if err != nil {
		t.Fatalf("LoadAndPreprocessData error: %v", err)
	}
	m, err := InitializeModel(testSeqCols, testTargetCols, tinyParams(), network.CPU)
	if err != nil {
		t.Fatalf("InitializeModel error: %v", err)
	}
	return m, train, val
}

func logLines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimSpace(buf.String()), "\n")
}

// TestTrainer_OneEpochLogsTrainAndValLoss runs one epoch on two patients with
// three weeks each and expects exactly one train and one validation line.
func TestTrainer_OneEpochLogsTrainAndValLoss(t *testing.T) {
	m, train, val := tinySetup(t, 2)
	if train.NumSequences() != 1 || val.NumSequences() != 1 {
		t.Fatalf("expected a 1/1 patient split, got %d/%d", train.NumSequences(), val.NumSequences())
	}

	var buf bytes.Buffer
	tr := &Trainer{
		Model:      m,
		Params:     TrainingParams{LearningRate: 0.001, Epochs: 1, WeightDecay: 0.01},
		TargetCols: testTargetCols,
		Device:     network.CPU,
		Logger:     log.New(&buf, "", 0),
	}
	history, err := tr.Train(train, val)
	if err != nil {
		t.Fatalf("Train error: %v", err)
	}
	if history.Epochs() != 1 {
		t.Fatalf("expected 1 epoch of history, got %d", history.Epochs())
	}

	lines := logLines(&buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), lines)
	}
	if want := fmt.Sprintf("Epoch [1/1], Train Loss: %.4f", history.TrainLoss[0]); lines[0] != want {
		t.Fatalf("train line = %q, want %q", lines[0], want)
	}
	if want := fmt.Sprintf("Epoch [1/1], Val Loss: %.4f", history.ValLoss[0]); lines[1] != want {
		t.Fatalf("val line = %q, want %q", lines[1], want)
	}
	if !m.Training() {
		t.Fatalf("model should be left in training mode")
	}
}

// TestTrainer_DefaultEpochs checks that parameters without an epoch count
// train for the default 50 epochs.
func TestTrainer_DefaultEpochs(t *testing.T) {
	m, train, val := tinySetup(t, 5)

	var buf bytes.Buffer
	tr := &Trainer{
		Model:      m,
		Params:     TrainingParams{LearningRate: 0.01},
		TargetCols: testTargetCols,
		Device:     network.CPU,
		Logger:     log.New(&buf, "", 0),
	}
	history, err := tr.Train(train, val)
	if err != nil {
		t.Fatalf("Train error: %v", err)
	}
	if history.Epochs() != 50 {
		t.Fatalf("expected 50 epochs, got %d", history.Epochs())
	}
	lines := logLines(&buf)
	if len(lines) != 100 {
		t.Fatalf("expected 100 log lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[98], "Epoch [50/50], Train Loss: ") {
		t.Fatalf("unexpected last train line %q", lines[98])
	}
}

func TestTrainer_DeviceMismatch(t *testing.T) {
	m, train, val := tinySetup(t, 2)
	tr := &Trainer{
		Model:      m,
		Params:     TrainingParams{Epochs: 1},
		TargetCols: testTargetCols,
		Device:     network.Device("cuda"),
		Logger:     log.New(&bytes.Buffer{}, "", 0),
	}
	if _, err := tr.Train(train, val); err == nil {
		t.Fatalf("expected an error when the model and batches are on different devices")
	}
}

// TestTrainer_EvalWithoutLoss uses an evaluation function that reports no
// "loss" metric; the logged validation loss falls back to zero.
func TestTrainer_EvalWithoutLoss(t *testing.T) {
	m, train, val := tinySetup(t, 2)

	var buf bytes.Buffer
	calls := 0
	tr := &Trainer{
		Model:      m,
		Params:     TrainingParams{Epochs: 2},
		TargetCols: testTargetCols,
		Device:     network.CPU,
		Logger:     log.New(&buf, "", 0),
		Evaluate: func(m *network.Model, _ datasets.Dataset, _ []string, _ network.Device) (Metrics, error) {
			if m.Training() {
				t.Errorf("evaluation called in training mode")
			}
			calls++
			return Metrics{"auc": 0.5}, nil
		},
	}
	history, err := tr.Train(train, val)
	if err != nil {
		t.Fatalf("Train error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 evaluation calls, got %d", calls)
	}
	lines := logLines(&buf)
	if lines[1] != "Epoch [1/2], Val Loss: 0.0000" || lines[3] != "Epoch [2/2], Val Loss: 0.0000" {
		t.Fatalf("unexpected validation lines: %q", lines)
	}
	if history.ValMetrics[0]["auc"] != 0.5 {
		t.Fatalf("metrics not recorded: %v", history.ValMetrics)
	}
}

func TestTrainer_OnBatchAndEmptyDataset(t *testing.T) {
	m, train, val := tinySetup(t, 5)

	steps := 0
	tr := &Trainer{
		Model:      m,
		Params:     TrainingParams{Epochs: 1},
		TargetCols: testTargetCols,
		Device:     network.CPU,
		Logger:     log.New(&bytes.Buffer{}, "", 0),
		OnBatch:    func(epoch, batch int, loss float64) { steps++ },
	}
	if _, err := tr.Train(train, val); err != nil {
		t.Fatalf("Train error: %v", err)
	}
	if steps != train.Len() {
		t.Fatalf("expected %d optimizer steps, got %d", train.Len(), steps)
	}

	empty, err := datasets.NewLoader("empty", nil, 3, datasets.LoaderOptions{})
	if err != nil {
		t.Fatalf("NewLoader error: %v", err)
	}
	if _, err := tr.Train(empty, val); err == nil {
		t.Fatalf("expected an error for a dataset without batches")
	}
}

func TestTrainModel(t *testing.T) {
	m, train, val := tinySetup(t, 5)
	history, err := TrainModel(m, train, val, TrainingParams{LearningRate: 0.01, Epochs: 3}, testTargetCols, network.CPU)
	if err != nil {
		t.Fatalf("TrainModel error: %v", err)
	}
	if history.Epochs() != 3 || len(history.ValLoss) != 3 {
		t.Fatalf("unexpected history: %+v", history)
	}
	for i, l := range history.TrainLoss {
		if l <= 0 {
			t.Fatalf("epoch %d: train loss %v should be positive", i+1, l)
		}
	}
}
