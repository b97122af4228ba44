package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewUniform(t *testing.T) {
	assert := assert.New(t)

	u, err := NewUniform([]float64{-2}, []float64{2}, 49)
	assert.NoError(err)
	assert.NotNil(u)

	for _, b := range [][2][]float64{
		{nil, nil},
		{{0, 0}, {1}},
		{{1}, {1}},
		{{2}, {1}},
	} {
		u, err := NewUniform(b[0], b[1], 49)
		assert.Nil(u)
		assert.Error(err)
	}
}

func TestUniformSample(t *testing.T) {
	assert := assert.New(t)

	min, max := []float64{-2, 0}, []float64{2, 1}
	u, err := NewUniform(min, max, 49)
	assert.NoError(err)

	first := mat.VecDenseCopyOf(u.Sample())
	for i := 0; i < 1000; i++ {
		s := u.Sample()
		assert.Equal(2, s.Len())
		for j := range min {
			assert.True(s.AtVec(j) >= min[j] && s.AtVec(j) < max[j])
		}
	}

	u.Reset()
	assert.True(mat.Equal(first, u.Sample()))

	assert.InDeltaSlice([]float64{0, 0.5}, u.Mean(), 1e-12)
	assert.InDelta(16.0/12, u.Cov().At(0, 0), 1e-12)
	assert.InDelta(1.0/12, u.Cov().At(1, 1), 1e-12)
	assert.Equal(0.0, u.Cov().At(0, 1))
	assert.Contains(u.String(), "Uniform")
}
