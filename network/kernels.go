package network

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// affine computes out = W x + b for a row-major W of shape [len(out)][len(x)].
func affine(out, w, x, b []float64) {
	cols := len(x)
	for i := range out {
		out[i] = floats.Dot(w[i*cols:(i+1)*cols], x) + b[i]
	}
}

// accumulateOuter adds g ⊗ x into dw and g into db.
func accumulateOuter(dw, db, g, x []float64) {
	cols := len(x)
	for i, gi := range g {
		if gi == 0 {
			continue
		}
		floats.AddScaled(dw[i*cols:(i+1)*cols], gi, x)
		db[i] += gi
	}
}

// accumulateTransposed adds Wᵀ g into dx.
func accumulateTransposed(dx, w, g []float64) {
	cols := len(dx)
	for i, gi := range g {
		if gi == 0 {
			continue
		}
		floats.AddScaled(dx, gi, w[i*cols:(i+1)*cols])
	}
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
