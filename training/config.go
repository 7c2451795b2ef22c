package training

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Noofbiz/cnngru/datasets"
	"github.com/Noofbiz/cnngru/network"
)

// DataOptions tunes how the CSV files are read, split and batched.
type DataOptions struct {
	KeyCol  string `json:"key_col"`
	WeekCol string `json:"week_col"`

	// BatchSize of both loaders. Default 32.
	BatchSize int `json:"batch_size"`

	// TestSize is the fraction of patients held out for validation. Default 0.2.
	TestSize float64 `json:"test_size"`

	// SplitSeed fixes the patient split. Default 42.
	SplitSeed int64 `json:"split_seed"`

	// ShuffleSeed seeds the per-epoch shuffling of the training loader. If
	// zero, a time-based seed is used.
	ShuffleSeed int64 `json:"shuffle_seed,omitempty"`

	// TargetThreshold binarizes targets: values above it become 1. Default 0.
	TargetThreshold float64 `json:"target_threshold"`
}

// DefaultDataOptions returns the default data options.
func DefaultDataOptions() DataOptions {
	return DataOptions{
		KeyCol:    datasets.DefaultKeyCol,
		WeekCol:   datasets.DefaultWeekCol,
		BatchSize: datasets.DefaultBatchSize,
		TestSize:  0.2,
		SplitSeed: datasets.DefaultSplitSeed,
	}
}

func (o DataOptions) withDefaults() DataOptions {
	d := DefaultDataOptions()
	if o.KeyCol == "" {
		o.KeyCol = d.KeyCol
	}
	if o.WeekCol == "" {
		o.WeekCol = d.WeekCol
	}
	if o.BatchSize == 0 {
		o.BatchSize = d.BatchSize
	}
	if o.TestSize == 0 {
		o.TestSize = d.TestSize
	}
	if o.SplitSeed == 0 {
		o.SplitSeed = d.SplitSeed
	}
	return o
}

// TrainingParams holds the optimization hyperparameters.
type TrainingParams struct {
	// LearningRate of AdamW. Default 0.0001.
	LearningRate float64 `json:"learning_rate"`

	// Epochs to train for. Default 50.
	Epochs int `json:"epochs"`

	// WeightDecay of AdamW. Default 0.01; negative disables decay.
	WeightDecay float64 `json:"weight_decay"`
}

// NoWeightDecay disables decay when used as TrainingParams.WeightDecay.
const NoWeightDecay = -1.0

// DefaultTrainingParams returns the default training hyperparameters.
func DefaultTrainingParams() TrainingParams {
	return TrainingParams{
		LearningRate: 0.0001,
		Epochs:       50,
		WeightDecay:  0.01,
	}
}

func (p TrainingParams) withDefaults() TrainingParams {
	d := DefaultTrainingParams()
	if p.LearningRate <= 0 {
		p.LearningRate = d.LearningRate
	}
	if p.Epochs <= 0 {
		p.Epochs = d.Epochs
	}
	if p.WeightDecay == 0 {
		p.WeightDecay = d.WeightDecay
	}
	return p
}

// DataConfig names the input files and columns.
type DataConfig struct {
	// Paths are CSV files or glob patterns.
	Paths      []string `json:"paths"`
	SeqCols    []string `json:"seq_cols"`
	TargetCols []string `json:"target_cols"`
	DataOptions
}

// Config is the full run configuration.
type Config struct {
	Data     DataConfig     `json:"data"`
	Model    network.Params `json:"model"`
	Training TrainingParams `json:"training"`
	Device   string         `json:"device"`
}

// DefaultConfig returns a configuration with every default filled in and no
// input files.
func DefaultConfig() Config {
	return Config{
		Data:     DataConfig{DataOptions: DefaultDataOptions()},
		Model:    network.DefaultParams(),
		Training: DefaultTrainingParams(),
		Device:   string(network.CPU),
	}
}

// ParseConfig decodes JSON over DefaultConfig so omitted keys keep their
// defaults. Unknown keys are ignored.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads a JSON configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// JSON returns the indented JSON form of the configuration.
func (c Config) JSON() (string, error) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
