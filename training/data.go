package training

import (
	"fmt"

	"github.com/Noofbiz/cnngru/datasets"
	"github.com/Noofbiz/cnngru/network"
)

// LoadAndPreprocessData reads the CSV files, cleans them, splits patients
// into train and validation groups and returns one loader for each. Both
// loaders pad to the longest sequence of the whole dataset.
func LoadAndPreprocessData(paths, seqCols, targetCols []string, opts DataOptions) (train, val *datasets.Loader, err error) {
	opts = opts.withDefaults()

	files, err := datasets.ExpandPaths(paths)
	if err != nil {
		return nil, nil, err
	}
	frame, err := datasets.LoadRecords(files, datasets.Schema{
		KeyCol:     opts.KeyCol,
		WeekCol:    opts.WeekCol,
		SeqCols:    seqCols,
		TargetCols: targetCols,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load records: %w", err)
	}

	frame = datasets.Preprocess(frame)
	frame = datasets.ResetWeekNumbers(frame)
	frame = datasets.TransformTarget(frame, opts.TargetThreshold)

	trainIDs, testIDs, err := datasets.SplitPatients(frame.PatientIDs(), opts.TestSize, opts.SplitSeed)
	if err != nil {
		return nil, nil, fmt.Errorf("split patients: %w", err)
	}

	maxLen := datasets.MaxSequenceLength(frame)
	train, err = datasets.NewLoader("train", datasets.GroupSequences(frame.FilterPatients(trainIDs)), maxLen,
		datasets.LoaderOptions{BatchSize: opts.BatchSize, Shuffle: true, Seed: opts.ShuffleSeed})
	if err != nil {
		return nil, nil, fmt.Errorf("train loader: %w", err)
	}
	val, err = datasets.NewLoader("validation", datasets.GroupSequences(frame.FilterPatients(testIDs)), maxLen,
		datasets.LoaderOptions{BatchSize: opts.BatchSize})
	if err != nil {
		return nil, nil, fmt.Errorf("validation loader: %w", err)
	}
	return train, val, nil
}

// InitializeModel builds the CNN-GRU for the given columns and places it on
// device.
func InitializeModel(seqCols, targetCols []string, params network.Params, device network.Device) (*network.Model, error) {
	m, err := network.NewModel(len(seqCols), len(targetCols), params)
	if err != nil {
		return nil, err
	}
	if err := m.To(device); err != nil {
		return nil, err
	}
	return m, nil
}
