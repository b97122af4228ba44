package noise

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Zero is a Noise source of fixed dimension whose samples are always zero.
// It stands in for process noise when data is generated from a noiseless plant.
type Zero struct {
	dim int
}

// NewZero creates new Zero noise of dimension dim.
// It returns error if dim is not positive.
func NewZero(dim int) (*Zero, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid noise dimension: %d", dim)
	}

	return &Zero{dim: dim}, nil
}

// Mean returns zero mean.
func (z *Zero) Mean() []float64 { return make([]float64, z.dim) }

// Cov returns zero covariance.
func (z *Zero) Cov() mat.Symmetric { return mat.NewSymDense(z.dim, nil) }

// Sample returns zero vector.
func (z *Zero) Sample() mat.Vector { return mat.NewVecDense(z.dim, nil) }

// Reset is a no-op.
func (z *Zero) Reset() {}

// String implements the Stringer interface.
func (z *Zero) String() string { return fmt.Sprintf("Zero{Dim=%d}", z.dim) }
