package noise

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Uniform is noise drawn independently and uniformly from [Min[i], Max[i]) in every dimension.
type Uniform struct {
	min, max []float64
	dists    []distuv.Uniform
	seed     uint64
}

// NewUniform creates new Uniform noise with per dimension bounds seeded with seed.
// It returns error if bounds are empty, differ in length or min[i] >= max[i].
func NewUniform(min, max []float64, seed uint64) (*Uniform, error) {
	if len(min) == 0 || len(min) != len(max) {
		return nil, fmt.Errorf("invalid uniform bounds dimensions: %d, %d", len(min), len(max))
	}

	for i := range min {
		if min[i] >= max[i] {
			return nil, fmt.Errorf("invalid uniform bounds at %d: [%v, %v)", i, min[i], max[i])
		}
	}

	u := &Uniform{
		min:  append([]float64(nil), min...),
		max:  append([]float64(nil), max...),
		seed: seed,
	}
	u.Reset()

	return u, nil
}

// Sample generates a sample from Uniform noise and returns it.
func (u *Uniform) Sample() mat.Vector {
	s := make([]float64, len(u.dists))
	for i := range u.dists {
		s[i] = u.dists[i].Rand()
	}

	return mat.NewVecDense(len(s), s)
}

// Mean returns Uniform mean.
func (u *Uniform) Mean() []float64 {
	mean := make([]float64, len(u.min))
	for i := range mean {
		mean[i] = 0.5 * (u.min[i] + u.max[i])
	}

	return mean
}

// Cov returns diagonal covariance matrix of Uniform noise.
func (u *Uniform) Cov() mat.Symmetric {
	cov := mat.NewSymDense(len(u.min), nil)
	for i := range u.min {
		w := u.max[i] - u.min[i]
		cov.SetSym(i, i, w*w/12)
	}

	return cov
}

// Reset rewinds Uniform noise to its seed.
func (u *Uniform) Reset() {
	// all dimensions share one source so the stream depends on the seed only
	src := rand.New(rand.NewSource(u.seed))
	u.dists = make([]distuv.Uniform, len(u.min))
	for i := range u.dists {
		u.dists[i] = distuv.Uniform{Min: u.min[i], Max: u.max[i], Src: src}
	}
}

// String implements the Stringer interface.
func (u *Uniform) String() string {
	return fmt.Sprintf("Uniform{\nMin=%v\nMax=%v\n}", u.min, u.max)
}
