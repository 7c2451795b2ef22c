package network

import (
	"fmt"
	"math"
)

// logFloor matches the usual BCE clamp of log terms at -100 so a saturated
// prediction yields a large but finite loss.
const logFloor = -100

// BCELoss is the mean binary cross-entropy over every output of a batch.
type BCELoss struct{}

// Forward returns -mean(y*log(p) + (1-y)*log(1-p)).
func (BCELoss) Forward(probs [][]float64, targets [][]float32) (float64, error) {
	n, err := checkShapes(probs, targets)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	var sum float64
	for i := range probs {
		for j, p := range probs[i] {
			y := float64(targets[i][j])
			sum -= y*clampedLog(p) + (1-y)*clampedLog(1-p)
		}
	}
	return sum / float64(n), nil
}

// Backward returns the gradient of Forward with respect to probs.
func (BCELoss) Backward(probs [][]float64, targets [][]float32) ([][]float64, error) {
	n, err := checkShapes(probs, targets)
	if err != nil {
		return nil, err
	}
	grad := make([][]float64, len(probs))
	for i := range probs {
		grad[i] = make([]float64, len(probs[i]))
		for j, p := range probs[i] {
			y := float64(targets[i][j])
			denom := math.Max(p*(1-p), 1e-12)
			grad[i][j] = (p - y) / denom / float64(n)
		}
	}
	return grad, nil
}

func clampedLog(x float64) float64 {
	if x <= 0 {
		return logFloor
	}
	return math.Max(math.Log(x), logFloor)
}

func checkShapes(probs [][]float64, targets [][]float32) (int, error) {
	if len(probs) != len(targets) {
		return 0, fmt.Errorf("predictions and targets batch sizes don't match: %d != %d", len(probs), len(targets))
	}
	n := 0
	for i := range probs {
		if len(probs[i]) != len(targets[i]) {
			return 0, fmt.Errorf("inconsistent output dimensions at example %d: predictions %d, targets %d",
				i, len(probs[i]), len(targets[i]))
		}
		n += len(probs[i])
	}
	return n, nil
}
