// Package datasets turns weekly per-patient CSV exports into padded batches for
// the CNN-GRU network.
//
// Pipeline:
//   - LoadRecords reads and concatenates the CSV files (one row per patient-week)
//   - Preprocess drops incomplete and duplicated rows and orders them
//   - ResetWeekNumbers renumbers each patient's weeks to 1..n
//   - TransformTarget binarizes the target columns
//   - SplitPatients partitions patient ids into train and test groups
//   - GroupSequences builds one Sequence per patient
//   - MaxSequenceLength gives the shared padding length
//   - Loader batches sequences and pads them, yielding gomlx tensors
//
// Batches are kept as flat float32 buffers (Batch) and converted to gomlx
// tensors on demand (Batch.ToGomlxTensors), so the rest of the code can read
// them either way.
package datasets

import "github.com/gomlx/gomlx/pkg/core/tensors"

// Dataset is the batch source consumed by the trainer. It mirrors gomlx's
// train.Dataset interface so loaders can also feed gomlx training loops.
//
// The yielded tensors are only a transport format: the pure-Go network reads
// them back into slices with Tensor.Value and runs no gomlx graph on them.
type Dataset interface {
	Name() string
	// Len returns the number of batches per epoch.
	Len() int
	// Yield returns the next batch; io.EOF ends the epoch.
	Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error)
	// Reset rewinds to the start of a new epoch.
	Reset()
}

var _ Dataset = (*Loader)(nil)
