package training

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Noofbiz/cnngru/datasets"
	"github.com/Noofbiz/cnngru/network"
)

func TestMetricsLoss(t *testing.T) {
	if got := (Metrics{"loss": 0.25, "accuracy": 1}).Loss(); got != 0.25 {
		t.Fatalf("Loss() = %v, want 0.25", got)
	}
	if got := (Metrics{"accuracy": 1}).Loss(); got != 0.0 {
		t.Fatalf("Loss() without a loss entry = %v, want 0", got)
	}
	if got := Metrics(nil).Loss(); got != 0.0 {
		t.Fatalf("Loss() of nil metrics = %v, want 0", got)
	}
}

func TestEvaluate(t *testing.T) {
	m, _, val := tinySetup(t, 5)
	m.Eval()

	metrics, err := Evaluate(m, val, testTargetCols, network.CPU)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	loss := metrics.Loss()
	if loss <= 0 || math.IsNaN(loss) {
		t.Fatalf("unexpected loss %v", loss)
	}
	acc, ok := metrics["accuracy/event"]
	if !ok || acc < 0 || acc > 1 {
		t.Fatalf("unexpected per-target accuracy: %v", metrics)
	}
	if metrics["accuracy"] != acc {
		t.Fatalf("single target accuracy should equal the overall accuracy: %v", metrics)
	}

	// evaluating twice resets the dataset and gives the same loss
	again, err := Evaluate(m, val, testTargetCols, network.CPU)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if again.Loss() != loss {
		t.Fatalf("second evaluation loss %v != %v", again.Loss(), loss)
	}

	empty, err := datasets.NewLoader("empty", nil, 3, datasets.LoaderOptions{})
	if err != nil {
		t.Fatalf("NewLoader error: %v", err)
	}
	metrics, err = Evaluate(m, empty, testTargetCols, network.CPU)
	if err != nil {
		t.Fatalf("Evaluate error on empty dataset: %v", err)
	}
	if len(metrics) != 0 {
		t.Fatalf("expected empty metrics, got %v", metrics)
	}
}

func TestLoadAndPreprocessData(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, filepath.Join(dir, "a.csv"), "key_id,week,hr,bp,event", []string{
		"p1,10,70,120,0",
		"p1,12,71,121,2",
		"p1,11,,122,0", // dropped: missing hr
		"p2,3,80,130,1",
		"p3,1,90,140,0",
		"p3,2,91,141,0",
		"p3,3,92,142,0",
		"p3,4,93,143,1",
	})
	writeCSV(t, filepath.Join(dir, "b.csv"), "key_id,week,hr,bp,event", []string{
		"p4,1,60,100,0",
		"p5,1,61,101,0",
		"p5,2,62,102,1",
	})

	opts := DataOptions{BatchSize: 2, ShuffleSeed: 1}
	train, val, err := LoadAndPreprocessData([]string{filepath.Join(dir, "*.csv")}, testSeqCols, testTargetCols, opts)
	if err != nil {
		t.Fatalf("LoadAndPreprocessData error: %v", err)
	}
	if train.NumSequences() != 4 || val.NumSequences() != 1 {
		t.Fatalf("expected a 4/1 patient split, got %d/%d", train.NumSequences(), val.NumSequences())
	}
	if train.MaxLength() != 4 || val.MaxLength() != 4 {
		t.Fatalf("both loaders should pad to 4 weeks, got %d and %d", train.MaxLength(), val.MaxLength())
	}
	if train.Name() != "train" || val.Name() != "validation" {
		t.Fatalf("unexpected loader names %q and %q", train.Name(), val.Name())
	}

	seen := 0
	for {
		b, err := train.Next()
		if err != nil {
			break
		}
		for i := range b.Size {
			_, labels := b.Sample(i)
			if labels[0] != 0 && labels[0] != 1 {
				t.Fatalf("target not binarized: %v", labels)
			}
		}
		seen += b.Size
	}
	if seen != 4 {
		t.Fatalf("expected 4 training patients, got %d", seen)
	}

	if _, _, err := LoadAndPreprocessData([]string{filepath.Join(dir, "*.csv")}, []string{"missing"}, testTargetCols, opts); err == nil {
		t.Fatalf("expected error for a missing sequence column")
	}
	if _, _, err := LoadAndPreprocessData([]string{filepath.Join(dir, "*.json")}, testSeqCols, testTargetCols, opts); err == nil {
		t.Fatalf("expected error when no files match")
	}
}

func TestHistoryPlot(t *testing.T) {
	h := &History{}
	if err := h.Plot(filepath.Join(t.TempDir(), "empty.png")); err == nil {
		t.Fatalf("expected error when plotting an empty history")
	}

	h.add(0.7, 0.72, Metrics{"loss": 0.72})
	h.add(0.6, 0.65, Metrics{"loss": 0.65})
	h.add(0.5, 0.61, Metrics{"loss": 0.61})
	path := filepath.Join(t.TempDir(), "plots", "loss.png")
	if err := h.Plot(path); err != nil {
		t.Fatalf("Plot error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("plot not written: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("plot file is empty")
	}
}

func TestInitializeModel(t *testing.T) {
	m, err := InitializeModel(testSeqCols, []string{"a", "b", "c"}, tinyParams(), network.CPU)
	if err != nil {
		t.Fatalf("InitializeModel error: %v", err)
	}
	if m.InputDim != 2 || m.OutputDim != 3 || m.Device() != network.CPU {
		t.Fatalf("unexpected model: in=%d out=%d device=%s", m.InputDim, m.OutputDim, m.Device())
	}
	m, err = InitializeModel(testSeqCols, testTargetCols, network.Params{}, network.CPU)
	if err != nil {
		t.Fatalf("InitializeModel error: %v", err)
	}
	if m.Params.DropoutProb != 0.5 || m.Params.GRUHiddenDim != 64 {
		t.Fatalf("unexpected defaults: %+v", m.Params)
	}

	if _, err := InitializeModel(testSeqCols, testTargetCols, tinyParams(), network.Device("tpu")); err == nil {
		t.Fatalf("expected error for an unknown device")
	}
}
