package noise

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Gaussian is gaussian noise
type Gaussian struct {
	// dist is a multivariate normal distribution
	dist *distmv.Normal
	// mean is Gaussian mean
	mean []float64
	// cov is Gaussian covariance
	cov *mat.SymDense
	// seed seeds dist random source
	seed uint64
}

// NewGaussian creates new Gaussian noise with given mean and covariance seeded with seed.
// It returns error if mean and cov dimensions differ or cov is not positive definite.
func NewGaussian(mean []float64, cov mat.Symmetric, seed uint64) (*Gaussian, error) {
	if len(mean) != cov.SymmetricDim() {
		return nil, fmt.Errorf("invalid gaussian dimensions: mean %d, cov %d", len(mean), cov.SymmetricDim())
	}

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	g := &Gaussian{
		mean: append([]float64(nil), mean...),
		cov:  c,
		seed: seed,
	}

	dist, ok := g.newDist()
	if !ok {
		return nil, fmt.Errorf("failed to create gaussian noise: covariance is not positive definite")
	}
	g.dist = dist

	return g, nil
}

func (g *Gaussian) newDist() (*distmv.Normal, bool) {
	src := rand.New(rand.NewSource(g.seed))
	return distmv.NewNormal(g.mean, g.cov, src)
}

// Sample generates a sample from Gaussian noise and returns it.
func (g *Gaussian) Sample() mat.Vector {
	r := g.dist.Rand(nil)
	return mat.NewVecDense(len(r), r)
}

// Cov returns covariance matrix of Gaussian noise.
func (g *Gaussian) Cov() mat.Symmetric {
	cov := mat.NewSymDense(g.cov.SymmetricDim(), nil)
	cov.CopySym(g.cov)

	return cov
}

// Mean returns Gaussian mean.
func (g *Gaussian) Mean() []float64 {
	return append([]float64(nil), g.mean...)
}

// Reset rewinds Gaussian noise to its seed.
func (g *Gaussian) Reset() {
	// the covariance was validated at creation
	g.dist, _ = g.newDist()
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nMean=%v\nCov=%v\n}", g.mean, mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
