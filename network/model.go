package network

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Model is a sequence classifier:
//
//	Conv1D(kernel K, valid) -> ReLU -> GRU -> last hidden state -> Dropout -> Dense -> Sigmoid
//
// Inputs are padded weekly sequences [time][channels]; outputs are one
// probability per target column. Sequences shorter than the kernel are
// zero-extended to the kernel width. The GRU follows the usual r, z, n gate
// formulation with separate input and hidden biases.
//
// The model starts in training mode. Gradients accumulate in each Param until
// ZeroGrad is called.
type Model struct {
	Params    Params
	InputDim  int
	OutputDim int

	convW *Param // [out][in][kernel]
	convB *Param // [out]
	gruWi *Param // [3*hidden][out] gates r, z, n
	gruWh *Param // [3*hidden][hidden]
	gruBi *Param // [3*hidden]
	gruBh *Param // [3*hidden]
	outW  *Param // [outputs][hidden]
	outB  *Param // [outputs]

	params   []*Param
	training bool
	device   Device
	rng      *rand.Rand
}

// NewModel builds a model with freshly initialized weights on the CPU.
func NewModel(inputDim, outputDim int, p Params) (*Model, error) {
	p = p.withDefaults()
	if inputDim < 1 {
		return nil, fmt.Errorf("input dimension must be positive, got %d", inputDim)
	}
	if outputDim < 1 {
		return nil, fmt.Errorf("output dimension must be positive, got %d", outputDim)
	}
	if p.CNNOutChannels < 1 {
		return nil, fmt.Errorf("cnn_out_channels must be positive, got %d", p.CNNOutChannels)
	}
	if p.CNNKernelSize < 1 {
		return nil, fmt.Errorf("cnn_kernel_size must be positive, got %d", p.CNNKernelSize)
	}
	if p.GRUHiddenDim < 1 {
		return nil, fmt.Errorf("gru_hidden_dim must be positive, got %d", p.GRUHiddenDim)
	}
	if p.DropoutProb >= 1 {
		return nil, fmt.Errorf("dropout_prob must be below 1, got %v", p.DropoutProb)
	}
	if p.Seed == 0 {
		p.Seed = time.Now().UnixNano()
	}

	out, k, h := p.CNNOutChannels, p.CNNKernelSize, p.GRUHiddenDim
	m := &Model{
		Params:    p,
		InputDim:  inputDim,
		OutputDim: outputDim,
		convW:     newParam("conv.weight", out, inputDim, k),
		convB:     newParam("conv.bias", out),
		gruWi:     newParam("gru.weight_ih", 3*h, out),
		gruWh:     newParam("gru.weight_hh", 3*h, h),
		gruBi:     newParam("gru.bias_ih", 3*h),
		gruBh:     newParam("gru.bias_hh", 3*h),
		outW:      newParam("fc.weight", outputDim, h),
		outB:      newParam("fc.bias", outputDim),
		training:  true,
		device:    CPU,
		rng:       rand.New(rand.NewSource(p.Seed)),
	}
	m.params = []*Param{m.convW, m.convB, m.gruWi, m.gruWh, m.gruBi, m.gruBh, m.outW, m.outB}

	// uniform(-1/sqrt(fan_in), 1/sqrt(fan_in))
	m.initUniform(1/math.Sqrt(float64(inputDim*k)), m.convW, m.convB)
	m.initUniform(1/math.Sqrt(float64(h)), m.gruWi, m.gruWh, m.gruBi, m.gruBh, m.outW, m.outB)
	return m, nil
}

func (m *Model) initUniform(bound float64, params ...*Param) {
	for _, p := range params {
		for i := range p.Data {
			p.Data[i] = (m.rng.Float64()*2 - 1) * bound
		}
	}
}

// Parameters returns the trainable parameters in a fixed order.
func (m *Model) Parameters() []*Param {
	return m.params
}

// NumParameters returns the total number of trainable scalars.
func (m *Model) NumParameters() int {
	n := 0
	for _, p := range m.params {
		n += p.Size()
	}
	return n
}

// ZeroGrad clears the gradients of all parameters.
func (m *Model) ZeroGrad() {
	for _, p := range m.params {
		p.ZeroGrad()
	}
}

// Train switches the model to training mode (dropout active).
func (m *Model) Train() {
	m.training = true
}

// Eval switches the model to evaluation mode (dropout disabled).
func (m *Model) Eval() {
	m.training = false
}

// Training reports whether the model is in training mode.
func (m *Model) Training() bool {
	return m.training
}

// To places the model on device.
func (m *Model) To(d Device) error {
	if _, err := ParseDevice(string(d)); err != nil {
		return err
	}
	m.device = d
	return nil
}

// Device returns where the model lives.
func (m *Model) Device() Device {
	return m.device
}

// stepCache keeps the activations of one time step needed by backprop.
type stepCache struct {
	window []float64 // conv receptive field, layout [in][kernel]
	act    []float64 // relu(conv)
	hPrev  []float64
	r, z   []float64
	n      []float64
	hn     []float64 // W_hn h + b_hn
}

// sampleCache keeps everything backprop needs for one sequence.
type sampleCache struct {
	steps  []stepCache
	mask   []float64 // dropout scale per hidden unit
	hidden []float64 // last hidden state after dropout
	probs  []float64
}

// Pass is the result of a forward pass over a batch.
type Pass struct {
	model   *Model
	samples []sampleCache
	// Outputs holds the predicted probabilities, shape [batch][outputs].
	Outputs [][]float64
}

// Forward runs the model over a batch of padded sequences shaped
// [batch][time][channels].
func (m *Model) Forward(inputs [][][]float32) (*Pass, error) {
	pass := &Pass{
		model:   m,
		samples: make([]sampleCache, len(inputs)),
		Outputs: make([][]float64, len(inputs)),
	}
	for i, seq := range inputs {
		if err := m.forwardSingle(seq, &pass.samples[i]); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		pass.Outputs[i] = pass.samples[i].probs
	}
	return pass, nil
}

// Predict runs a forward pass and returns only the probabilities.
func (m *Model) Predict(inputs [][][]float32) ([][]float64, error) {
	pass, err := m.Forward(inputs)
	if err != nil {
		return nil, err
	}
	return pass.Outputs, nil
}

func (m *Model) forwardSingle(seq [][]float32, c *sampleCache) error {
	if len(seq) == 0 {
		return errors.New("empty sequence")
	}
	in, k := m.InputDim, m.Params.CNNKernelSize
	out, h := m.Params.CNNOutChannels, m.Params.GRUHiddenDim
	for t, step := range seq {
		if len(step) != in {
			return fmt.Errorf("week %d has %d channels, model expects %d", t, len(step), in)
		}
	}

	steps := max(len(seq), k) - k + 1
	c.steps = make([]stepCache, steps)
	hPrev := make([]float64, h)
	gi := make([]float64, 3*h)
	gh := make([]float64, 3*h)

	for t := range steps {
		sc := &c.steps[t]

		sc.window = make([]float64, in*k)
		for j := 0; j < k && t+j < len(seq); j++ {
			for ch, v := range seq[t+j] {
				sc.window[ch*k+j] = float64(v)
			}
		}
		sc.act = make([]float64, out)
		affine(sc.act, m.convW.Data, sc.window, m.convB.Data)
		for o, v := range sc.act {
			if v < 0 {
				sc.act[o] = 0
			}
		}

		affine(gi, m.gruWi.Data, sc.act, m.gruBi.Data)
		affine(gh, m.gruWh.Data, hPrev, m.gruBh.Data)
		sc.hPrev = hPrev
		sc.r = make([]float64, h)
		sc.z = make([]float64, h)
		sc.n = make([]float64, h)
		sc.hn = make([]float64, h)
		hNext := make([]float64, h)
		for j := range h {
			sc.r[j] = sigmoid(gi[j] + gh[j])
			sc.z[j] = sigmoid(gi[h+j] + gh[h+j])
			sc.hn[j] = gh[2*h+j]
			sc.n[j] = math.Tanh(gi[2*h+j] + sc.r[j]*sc.hn[j])
			hNext[j] = (1-sc.z[j])*sc.n[j] + sc.z[j]*hPrev[j]
		}
		hPrev = hNext
	}

	c.mask = make([]float64, h)
	c.hidden = make([]float64, h)
	p := m.Params.DropoutProb
	for j := range h {
		c.mask[j] = 1
		if m.training && p > 0 {
			if m.rng.Float64() < p {
				c.mask[j] = 0
			} else {
				c.mask[j] = 1 / (1 - p)
			}
		}
		c.hidden[j] = hPrev[j] * c.mask[j]
	}

	c.probs = make([]float64, m.OutputDim)
	affine(c.probs, m.outW.Data, c.hidden, m.outB.Data)
	for d, v := range c.probs {
		c.probs[d] = sigmoid(v)
	}
	return nil
}

// Backward accumulates parameter gradients given the loss gradient with
// respect to the output probabilities, shape [batch][outputs].
func (p *Pass) Backward(grad [][]float64) error {
	if len(grad) != len(p.samples) {
		return fmt.Errorf("gradient batch size %d does not match pass batch size %d", len(grad), len(p.samples))
	}
	for i := range p.samples {
		if len(grad[i]) != p.model.OutputDim {
			return fmt.Errorf("gradient of sample %d has %d outputs, model has %d", i, len(grad[i]), p.model.OutputDim)
		}
		p.model.backwardSingle(&p.samples[i], grad[i])
	}
	return nil
}

func (m *Model) backwardSingle(c *sampleCache, dProbs []float64) {
	h, out := m.Params.GRUHiddenDim, m.Params.CNNOutChannels

	dLogits := make([]float64, m.OutputDim)
	for d, pr := range c.probs {
		dLogits[d] = dProbs[d] * pr * (1 - pr)
	}
	accumulateOuter(m.outW.Grad, m.outB.Grad, dLogits, c.hidden)

	dh := make([]float64, h)
	accumulateTransposed(dh, m.outW.Data, dLogits)
	for j := range dh {
		dh[j] *= c.mask[j]
	}

	dgi := make([]float64, 3*h)
	dgh := make([]float64, 3*h)
	dAct := make([]float64, out)
	for t := len(c.steps) - 1; t >= 0; t-- {
		sc := &c.steps[t]
		dhPrev := make([]float64, h)
		for j := range h {
			r, z, n := sc.r[j], sc.z[j], sc.n[j]
			dn := dh[j] * (1 - z)
			dz := dh[j] * (sc.hPrev[j] - n)
			dhPrev[j] = dh[j] * z

			dnPre := dn * (1 - n*n)
			drPre := dnPre * sc.hn[j] * r * (1 - r)
			dzPre := dz * z * (1 - z)

			dgi[j], dgi[h+j], dgi[2*h+j] = drPre, dzPre, dnPre
			dgh[j], dgh[h+j], dgh[2*h+j] = drPre, dzPre, dnPre*r
		}

		accumulateOuter(m.gruWi.Grad, m.gruBi.Grad, dgi, sc.act)
		accumulateOuter(m.gruWh.Grad, m.gruBh.Grad, dgh, sc.hPrev)
		accumulateTransposed(dhPrev, m.gruWh.Data, dgh)

		clear(dAct)
		accumulateTransposed(dAct, m.gruWi.Data, dgi)
		for o, a := range sc.act {
			if a <= 0 {
				dAct[o] = 0
			}
		}
		accumulateOuter(m.convW.Grad, m.convB.Grad, dAct, sc.window)

		dh = dhPrev
	}
}
