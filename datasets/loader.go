package datasets

import (
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// DefaultBatchSize is used when LoaderOptions.BatchSize is zero.
const DefaultBatchSize = 32

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	BatchSize int
	// Shuffle reorders the sequences on every Reset.
	Shuffle bool
	// Seed for shuffling. If zero, a time-based seed is used.
	Seed int64
}

// Loader yields padded batches of sequences, one epoch at a time. Every batch
// is padded to the same MaxLength so train and validation loaders built with
// the same length produce compatible tensors.
type Loader struct {
	name      string
	seqs      []Sequence
	maxLen    int
	batchSize int
	shuffle   bool
	rand      *rand.Rand

	order []int
	pos   int
}

// NewLoader creates a loader over seqs padded to maxLen.
func NewLoader(name string, seqs []Sequence, maxLen int, opts LoaderOptions) (*Loader, error) {
	if maxLen < 1 {
		return nil, fmt.Errorf("max sequence length must be positive, got %d", maxLen)
	}
	for _, s := range seqs {
		if s.Len() > maxLen {
			return nil, fmt.Errorf("sequence %q has %d weeks, more than the max length %d", s.KeyID, s.Len(), maxLen)
		}
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchSize < 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", opts.BatchSize)
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	l := &Loader{
		name:      name,
		seqs:      seqs,
		maxLen:    maxLen,
		batchSize: opts.BatchSize,
		shuffle:   opts.Shuffle,
		rand:      rand.New(rand.NewSource(opts.Seed)),
		order:     make([]int, len(seqs)),
	}
	for i := range l.order {
		l.order[i] = i
	}
	l.Reset()
	return l, nil
}

// Name returns the name of the loader.
func (l *Loader) Name() string {
	return l.name
}

// Len returns the number of batches in one epoch.
func (l *Loader) Len() int {
	return (len(l.seqs) + l.batchSize - 1) / l.batchSize
}

// NumSequences returns the number of patients served by the loader.
func (l *Loader) NumSequences() int {
	return len(l.seqs)
}

// MaxLength returns the padded sequence length.
func (l *Loader) MaxLength() int {
	return l.maxLen
}

// Reset starts a new epoch, reshuffling when enabled.
func (l *Loader) Reset() {
	l.pos = 0
	if l.shuffle {
		l.rand.Shuffle(len(l.order), func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
}

// Next returns the next batch of the epoch, or io.EOF once the epoch is
// exhausted.
func (l *Loader) Next() (*Batch, error) {
	if l.pos >= len(l.order) {
		return nil, io.EOF
	}
	end := min(l.pos+l.batchSize, len(l.order))
	seqs := make([]Sequence, 0, end-l.pos)
	for _, idx := range l.order[l.pos:end] {
		seqs = append(seqs, l.seqs[idx])
	}
	l.pos = end
	return MakeBatch(seqs, l.maxLen)
}

// Yield returns the next batch as gomlx tensors, following gomlx's
// train.Dataset convention: spec carries the batch patient ids, inputs holds
// one [batch, time, channels] tensor and labels one [batch, targets] tensor.
// io.EOF marks the end of the epoch.
func (l *Loader) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	b, err := l.Next()
	if err != nil {
		return nil, nil, nil, err
	}
	in, la, err := b.ToGomlxTensors()
	if err != nil {
		return nil, nil, nil, err
	}
	return b.Keys, []*tensors.Tensor{in}, []*tensors.Tensor{la}, nil
}
