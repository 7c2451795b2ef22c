package datasets

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Batch stores padded sequences in flat contiguous buffers.
type Batch struct {
	Keys []string
	// Inputs has layout [Size][Time][Channels].
	Inputs []float32
	// Labels has layout [Size][Targets].
	Labels []float32
	// Lengths are the unpadded week counts.
	Lengths []int

	Size     int
	Time     int
	Channels int
	Targets  int
}

// MakeBatch pads every sequence with trailing zero weeks up to maxLen and
// flattens the result. Sequences longer than maxLen are an error.
func MakeBatch(seqs []Sequence, maxLen int) (*Batch, error) {
	if len(seqs) == 0 {
		return &Batch{Time: maxLen}, nil
	}
	if maxLen < 1 {
		return nil, fmt.Errorf("max sequence length must be positive, got %d", maxLen)
	}

	channels := 0
	if len(seqs[0].Steps) > 0 {
		channels = len(seqs[0].Steps[0])
	}
	targets := len(seqs[0].Targets)
	b := &Batch{
		Keys:     make([]string, len(seqs)),
		Inputs:   make([]float32, len(seqs)*maxLen*channels),
		Labels:   make([]float32, len(seqs)*targets),
		Lengths:  make([]int, len(seqs)),
		Size:     len(seqs),
		Time:     maxLen,
		Channels: channels,
		Targets:  targets,
	}

	for i, s := range seqs {
		if s.Len() > maxLen {
			return nil, fmt.Errorf("sequence %q has %d weeks, more than the max length %d", s.KeyID, s.Len(), maxLen)
		}
		if len(s.Targets) != targets {
			return nil, fmt.Errorf("inconsistent target dimensions at sequence %q: expected %d, got %d",
				s.KeyID, targets, len(s.Targets))
		}
		base := i * maxLen * channels
		for t, step := range s.Steps {
			if len(step) != channels {
				return nil, fmt.Errorf("inconsistent channel count at sequence %q week %d: expected %d, got %d",
					s.KeyID, t, channels, len(step))
			}
			copy(b.Inputs[base+t*channels:], step)
		}
		copy(b.Labels[i*targets:], s.Targets)
		b.Keys[i] = s.KeyID
		b.Lengths[i] = s.Len()
	}
	return b, nil
}

// Sample returns the padded inputs [Time][Channels] and labels of the i-th
// sequence, sharing the batch buffers.
func (b *Batch) Sample(i int) ([][]float32, []float32) {
	steps := make([][]float32, b.Time)
	base := i * b.Time * b.Channels
	for t := range steps {
		steps[t] = b.Inputs[base+t*b.Channels : base+(t+1)*b.Channels]
	}
	return steps, b.Labels[i*b.Targets : (i+1)*b.Targets]
}

// ToGomlxTensors converts the batch to gomlx tensors shaped
// [Size, Time, Channels] and [Size, Targets].
func (b *Batch) ToGomlxTensors() (*tensors.Tensor, *tensors.Tensor, error) {
	if b.Size == 0 {
		return tensors.FromAnyValue(make([][][]float32, 0)), tensors.FromAnyValue(make([][]float32, 0)), nil
	}
	inputs := make([][][]float32, b.Size)
	labels := make([][]float32, b.Size)
	for i := range b.Size {
		inputs[i], labels[i] = b.Sample(i)
	}
	return tensors.FromAnyValue(inputs), tensors.FromAnyValue(labels), nil
}
