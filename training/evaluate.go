package training

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Noofbiz/cnngru/datasets"
	"github.com/Noofbiz/cnngru/network"
	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Metrics maps metric names to values. Evaluate fills "loss", "accuracy" and
// one "accuracy/<target>" entry per target column.
type Metrics map[string]float64

// Loss returns the "loss" entry, or 0 when it is absent.
func (m Metrics) Loss() float64 {
	if v, ok := m["loss"]; ok {
		return v
	}
	return 0.0
}

// EvalFunc computes validation metrics for a model. The model is already in
// evaluation mode when it is called.
type EvalFunc func(m *network.Model, val datasets.Dataset, targetCols []string, device network.Device) (Metrics, error)

// Evaluate runs the model over one epoch of val and reports the mean batch
// BCE loss and thresholded (0.5) accuracies. A dataset without batches yields
// empty Metrics.
func Evaluate(m *network.Model, val datasets.Dataset, targetCols []string, device network.Device) (Metrics, error) {
	val.Reset()

	var lossSum float64
	var batches int
	var correct, total int
	perTarget := make([]int, m.OutputDim)
	perTargetTotal := 0
	for {
		_, inputs, labels, err := val.Yield()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s batch: %w", val.Name(), err)
		}
		x, y, err := toDevice(device, inputs, labels)
		if err != nil {
			return nil, err
		}
		probs, err := m.Predict(x)
		if err != nil {
			return nil, err
		}
		loss, err := network.BCELoss{}.Forward(probs, y)
		if err != nil {
			return nil, err
		}
		lossSum += loss
		batches++

		for i := range probs {
			for j, p := range probs[i] {
				pred := float32(0)
				if p >= 0.5 {
					pred = 1
				}
				if pred == y[i][j] {
					correct++
					perTarget[j]++
				}
				total++
			}
			perTargetTotal++
		}
	}

	metrics := Metrics{}
	if batches == 0 {
		return metrics, nil
	}
	metrics["loss"] = lossSum / float64(batches)
	metrics["accuracy"] = float64(correct) / float64(total)
	for j, c := range perTarget {
		name := strconv.Itoa(j)
		if j < len(targetCols) {
			name = targetCols[j]
		}
		metrics["accuracy/"+name] = float64(c) / float64(perTargetTotal)
	}
	return metrics, nil
}

// toDevice materializes a yielded batch for the compute device: gomlx tensors
// become the Go slices the network consumes.
func toDevice(device network.Device, inputs, labels []*tensors.Tensor) ([][][]float32, [][]float32, error) {
	if device != network.CPU {
		return nil, nil, fmt.Errorf("device %q is not available", device)
	}
	if len(inputs) != 1 || len(labels) != 1 {
		return nil, nil, fmt.Errorf("expected one input and one label tensor, got %d and %d", len(inputs), len(labels))
	}
	x, ok := inputs[0].Value().([][][]float32)
	if !ok {
		return nil, nil, fmt.Errorf("input tensor must be [batch, time, channels] float32, got shape %v", inputs[0].Shape())
	}
	y, ok := labels[0].Value().([][]float32)
	if !ok {
		return nil, nil, fmt.Errorf("label tensor must be [batch, targets] float32, got shape %v", labels[0].Shape())
	}
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("inputs and labels batch sizes don't match: %d != %d", len(x), len(y))
	}
	return x, y, nil
}
