package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewGaussian(t *testing.T) {
	assert := assert.New(t)

	for _, test := range []struct {
		mean []float64
		cov  *mat.SymDense
		ok   bool
	}{
		{mean: []float64{2, 3}, cov: mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1}), ok: true},
		{mean: []float64{2}, cov: mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1}), ok: false},
		{mean: []float64{0, 0}, cov: mat.NewSymDense(2, []float64{1, 0, 0, -1}), ok: false},
	} {
		g, err := NewGaussian(test.mean, test.cov, 1)
		if test.ok {
			assert.NotNil(g)
			assert.NoError(err)
			continue
		}
		assert.Nil(g)
		assert.Error(err)
	}
}

func TestGaussianMeanCov(t *testing.T) {
	assert := assert.New(t)

	mean := []float64{2, 3}
	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})

	g, err := NewGaussian(mean, cov, 1)
	assert.NoError(err)
	assert.True(mat.Equal(cov, g.Cov()))
	assert.EqualValues(mean, g.Mean())

	// returned values are copies
	g.Mean()[0] = 100
	assert.EqualValues(mean, g.Mean())
}

func TestGaussianSampleReset(t *testing.T) {
	assert := assert.New(t)

	cov := mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1})
	g, err := NewGaussian([]float64{2, 3}, cov, 42)
	assert.NoError(err)

	s1 := mat.VecDenseCopyOf(g.Sample())
	s2 := mat.VecDenseCopyOf(g.Sample())
	assert.Equal(2, s1.Len())
	assert.False(mat.Equal(s1, s2))

	// reset replays the same stream
	g.Reset()
	assert.True(mat.Equal(s1, g.Sample()))

	// same seed, same stream
	h, err := NewGaussian([]float64{2, 3}, cov, 42)
	assert.NoError(err)
	assert.True(mat.Equal(s1, h.Sample()))
}

func TestGaussianString(t *testing.T) {
	assert := assert.New(t)

	str := `Gaussian{
Mean=[2 3]
Cov=⎡  1  0.1⎤
    ⎣0.1    1⎦
}`
	g, err := NewGaussian([]float64{2, 3}, mat.NewSymDense(2, []float64{1, 0.1, 0.1, 1}), 1)
	assert.NoError(err)
	assert.Equal(str, g.String())
}
