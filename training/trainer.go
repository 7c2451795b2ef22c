package training

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"

	"github.com/Noofbiz/cnngru/datasets"
	"github.com/Noofbiz/cnngru/network"
)

// Trainer runs the supervised training loop of a model.
type Trainer struct {
	Model      *network.Model
	Params     TrainingParams
	TargetCols []string
	Device     network.Device

	// Logger receives the per-epoch loss lines. Defaults to log.Default().
	Logger *log.Logger

	// Evaluate computes the validation metrics after every epoch. Defaults
	// to Evaluate.
	Evaluate EvalFunc

	// OnBatch, when set, is called after every optimizer step.
	OnBatch func(epoch, batch int, loss float64)
}

// TrainModel trains m with AdamW on binary cross-entropy, logging the mean
// train loss and the validation loss of every epoch.
func TrainModel(m *network.Model, train, val datasets.Dataset, params TrainingParams, targetCols []string, device network.Device) (*History, error) {
	t := &Trainer{
		Model:      m,
		Params:     params,
		TargetCols: targetCols,
		Device:     device,
	}
	return t.Train(train, val)
}

// Train runs Params.Epochs epochs over train, validating on val after each
// one. The model is left in training mode.
func (t *Trainer) Train(train, val datasets.Dataset) (*History, error) {
	if t.Model == nil {
		return nil, errors.New("model is nil")
	}
	if t.Model.Device() != t.Device {
		return nil, fmt.Errorf("device mismatch: model is on %q, batches go to %q", t.Model.Device(), t.Device)
	}
	logger := t.Logger
	if logger == nil {
		logger = log.Default()
	}
	evaluate := t.Evaluate
	if evaluate == nil {
		evaluate = Evaluate
	}

	params := t.Params.withDefaults()
	adam := network.DefaultAdamConfig()
	adam.LearningRate = params.LearningRate
	adam.WeightDecay = max(params.WeightDecay, 0)
	opt, err := network.NewAdamW(t.Model.Parameters(), adam)
	if err != nil {
		return nil, err
	}
	criterion := network.BCELoss{}

	history := &History{}
	epochs := params.Epochs
	t.Model.Train()
	for epoch := 1; epoch <= epochs; epoch++ {
		train.Reset()
		var totalLoss float64
		batches := 0
		for {
			_, inputs, labels, err := train.Yield()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return history, fmt.Errorf("epoch %d: read %s batch: %w", epoch, train.Name(), err)
			}
			x, y, err := toDevice(t.Device, inputs, labels)
			if err != nil {
				return history, fmt.Errorf("epoch %d: %w", epoch, err)
			}

			t.Model.ZeroGrad()
			pass, err := t.Model.Forward(x)
			if err != nil {
				return history, fmt.Errorf("epoch %d batch %d: forward: %w", epoch, batches+1, err)
			}
			loss, err := criterion.Forward(pass.Outputs, y)
			if err != nil {
				return history, fmt.Errorf("epoch %d batch %d: %w", epoch, batches+1, err)
			}
			if math.IsNaN(loss) || math.IsInf(loss, 0) {
				return history, fmt.Errorf("epoch %d batch %d: loss is %v", epoch, batches+1, loss)
			}
			grad, err := criterion.Backward(pass.Outputs, y)
			if err != nil {
				return history, fmt.Errorf("epoch %d batch %d: %w", epoch, batches+1, err)
			}
			if err := pass.Backward(grad); err != nil {
				return history, fmt.Errorf("epoch %d batch %d: backward: %w", epoch, batches+1, err)
			}
			opt.Step()

			totalLoss += loss
			batches++
			if t.OnBatch != nil {
				t.OnBatch(epoch, batches, loss)
			}
		}
		if batches == 0 {
			return history, fmt.Errorf("dataset %q yielded no batches", train.Name())
		}
		avgTrainLoss := totalLoss / float64(batches)
		logger.Printf("Epoch [%d/%d], Train Loss: %.4f", epoch, epochs, avgTrainLoss)

		t.Model.Eval()
		metrics, err := evaluate(t.Model, val, t.TargetCols, t.Device)
		t.Model.Train()
		if err != nil {
			return history, fmt.Errorf("epoch %d: evaluate: %w", epoch, err)
		}
		valLoss := metrics.Loss()
		logger.Printf("Epoch [%d/%d], Val Loss: %.4f", epoch, epochs, valLoss)

		history.add(avgTrainLoss, valLoss, metrics)
	}
	return history, nil
}
