package network

import (
	"fmt"
	"math"
)

// AdamConfig holds the AdamW hyperparameters.
type AdamConfig struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	// WeightDecay is applied decoupled from the gradient (AdamW).
	WeightDecay float64
}

// DefaultAdamConfig returns the usual AdamW defaults.
func DefaultAdamConfig() AdamConfig {
	return AdamConfig{
		LearningRate: 1e-3,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		WeightDecay:  0.01,
	}
}

// AdamW updates parameters in place from their accumulated gradients.
type AdamW struct {
	Config AdamConfig

	params []*Param
	m, v   [][]float64
	step   int
}

// NewAdamW creates an optimizer over params.
func NewAdamW(params []*Param, cfg AdamConfig) (*AdamW, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("no parameters to optimize")
	}
	if cfg.LearningRate <= 0 {
		return nil, fmt.Errorf("learning rate must be positive, got %v", cfg.LearningRate)
	}
	opt := &AdamW{
		Config: cfg,
		params: params,
		m:      make([][]float64, len(params)),
		v:      make([][]float64, len(params)),
	}
	for i, p := range params {
		opt.m[i] = make([]float64, p.Size())
		opt.v[i] = make([]float64, p.Size())
	}
	return opt, nil
}

// Steps returns how many updates were applied.
func (o *AdamW) Steps() int {
	return o.step
}

// Step applies one update.
func (o *AdamW) Step() {
	o.step++
	c := o.Config
	bc1 := 1 - math.Pow(c.Beta1, float64(o.step))
	bc2 := 1 - math.Pow(c.Beta2, float64(o.step))
	for i, p := range o.params {
		m, v := o.m[i], o.v[i]
		for j, g := range p.Grad {
			p.Data[j] -= c.LearningRate * c.WeightDecay * p.Data[j]
			m[j] = c.Beta1*m[j] + (1-c.Beta1)*g
			v[j] = c.Beta2*v[j] + (1-c.Beta2)*g*g
			mHat := m[j] / bc1
			vHat := v[j] / bc2
			p.Data[j] -= c.LearningRate * mHat / (math.Sqrt(vHat) + c.Epsilon)
		}
	}
}
