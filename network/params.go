package network

// Params holds the architecture hyperparameters of the CNN-GRU model.
//
// Zero fields, whether omitted from JSON or left unset in code, fall back to
// DefaultParams. Set DropoutProb to NoDropout to train without dropout.
type Params struct {
	// CNNOutChannels is the number of Conv1D filters. Default 256.
	CNNOutChannels int `json:"cnn_out_channels"`

	// CNNKernelSize is the Conv1D window over weeks. Default 4.
	CNNKernelSize int `json:"cnn_kernel_size"`

	// GRUHiddenDim is the size of the GRU hidden state. Default 64.
	GRUHiddenDim int `json:"gru_hidden_dim"`

	// DropoutProb is the drop probability applied to the last hidden state
	// while training. Default 0.5; negative disables dropout.
	DropoutProb float64 `json:"dropout_prob"`

	// Seed controls weight initialization and dropout masks. If zero, a
	// time-based seed is used.
	Seed int64 `json:"seed,omitempty"`
}

// NoDropout disables dropout when used as Params.DropoutProb.
const NoDropout = -1.0

// DefaultParams returns the default architecture.
func DefaultParams() Params {
	return Params{
		CNNOutChannels: 256,
		CNNKernelSize:  4,
		GRUHiddenDim:   64,
		DropoutProb:    0.5,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.CNNOutChannels == 0 {
		p.CNNOutChannels = d.CNNOutChannels
	}
	if p.CNNKernelSize == 0 {
		p.CNNKernelSize = d.CNNKernelSize
	}
	if p.GRUHiddenDim == 0 {
		p.GRUHiddenDim = d.GRUHiddenDim
	}
	if p.DropoutProb == 0 {
		p.DropoutProb = d.DropoutProb
	}
	return p
}

// Param is a named trainable tensor stored row-major with its gradient.
type Param struct {
	Name  string
	Shape []int
	Data  []float64
	Grad  []float64
}

func newParam(name string, shape ...int) *Param {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Param{
		Name:  name,
		Shape: shape,
		Data:  make([]float64, n),
		Grad:  make([]float64, n),
	}
}

// Size returns the number of scalars in the parameter.
func (p *Param) Size() int {
	return len(p.Data)
}

// ZeroGrad clears the accumulated gradient.
func (p *Param) ZeroGrad() {
	clear(p.Grad)
}
