package sim

import (
	"errors"
	"math"
	"os"
	"testing"

	mpc "github.com/milosgajdos/go-autompc"
	"github.com/milosgajdos/go-autompc/noise"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

var (
	x, u *mat.VecDense
	A, B *mat.Dense
	sys  *mpc.System
)

func setup() {
	x = mat.NewVecDense(2, []float64{0.5, 0.6})
	u = mat.NewVecDense(1, []float64{-1.0})

	A = mat.NewDense(2, 2, []float64{1.0, 1.0, 0.0, 1.0})
	B = mat.NewDense(2, 1, []float64{0.5, 1.0})

	var err error
	sys, err = mpc.NewSystem([]string{"x"}, []string{"u"})
	if err != nil {
		panic(err)
	}
}

func TestMain(m *testing.M) {
	// set up tests
	setup()
	// run the tests
	retCode := m.Run()
	// call with result of m.Run()
	os.Exit(retCode)
}

// gain is a proportional controller with no internal state.
type gain struct {
	k float64
}

func (g *gain) StateDim() int { return 0 }

func (g *gain) TrajToState(*mpc.Trajectory) (mat.Vector, error) { return &mat.VecDense{}, nil }

func (g *gain) Run(state, obs mat.Vector) (*mat.VecDense, mat.Vector, error) {
	return mat.NewVecDense(1, []float64{-g.k * obs.AtVec(0)}), state, nil
}

func TestDiscreteStep(t *testing.T) {
	assert := assert.New(t)

	f, err := NewDiscrete(A, B)
	assert.NotNil(f)
	assert.NoError(err)

	nx, nu := f.Dims()
	assert.Equal(2, nx)
	assert.Equal(1, nu)

	v, err := f.Step(x, u)
	assert.NoError(err)
	assert.InDelta(0.6, v.AtVec(0), 1e-12)
	assert.InDelta(-0.4, v.AtVec(1), 1e-12)

	v, err = f.Step(x, mat.NewVecDense(10, nil))
	assert.Nil(v)
	assert.Error(err)

	v, err = f.Step(mat.NewVecDense(10, nil), u)
	assert.Nil(v)
	assert.Error(err)

	_, err = NewDiscrete(A, mat.NewDense(3, 1, nil))
	assert.Error(err)
	_, err = NewDiscrete(mat.NewDense(2, 3, nil), B)
	assert.Error(err)
}

func TestContinuousToDiscrete(t *testing.T) {
	assert := assert.New(t)

	// double integrator has singular system matrix
	c, err := NewContinuous(mat.NewDense(2, 2, []float64{0, 1, 0, 0}), mat.NewDense(2, 1, []float64{0, 1}))
	assert.NoError(err)

	d, err := c.ToDiscrete(0.1)
	assert.NoError(err)
	assert.InDelta(1.0, d.A.At(0, 0), 1e-9)
	assert.InDelta(0.1, d.A.At(0, 1), 1e-9)
	assert.InDelta(0.005, d.B.At(0, 0), 1e-9)
	assert.InDelta(0.1, d.B.At(1, 0), 1e-9)

	c, err = NewContinuous(mat.NewDense(1, 1, []float64{-1}), mat.NewDense(1, 1, []float64{1}))
	assert.NoError(err)

	d, err = c.ToDiscrete(1.0)
	assert.NoError(err)
	assert.InDelta(math.Exp(-1), d.A.At(0, 0), 1e-9)
	assert.InDelta(1-math.Exp(-1), d.B.At(0, 0), 1e-9)

	_, err = c.ToDiscrete(0)
	assert.Error(err)
}

func TestCartpoleLinearize(t *testing.T) {
	assert := assert.New(t)

	p := DefaultCartpole()
	c, err := p.Linearize()
	assert.NoError(err)

	// continuous model matches the nonlinear derivative near upright
	s := []float64{1e-4, -2e-4, 0.3, 1e-4}
	f := []float64{1e-3}
	lin := mat.NewVecDense(4, nil)
	lin.MulVec(c.A, mat.NewVecDense(4, s))
	bu := mat.NewVecDense(4, nil)
	bu.MulVec(c.B, mat.NewVecDense(1, f))
	lin.AddVec(lin, bu)
	d := p.Deriv(s, f)
	for i := range d {
		assert.InDelta(d[i], lin.AtVec(i), 1e-6)
	}

	// discretized model tracks the integrated plant for one step
	dt := 0.01
	disc, err := c.ToDiscrete(dt)
	assert.NoError(err)
	plant, err := NewCartpole(p, dt)
	assert.NoError(err)

	x0 := mat.NewVecDense(4, s)
	u0 := mat.NewVecDense(1, f)
	want, err := plant.Step(x0, u0)
	assert.NoError(err)
	got, err := disc.Step(x0, u0)
	assert.NoError(err)
	assert.True(mat.EqualApprox(want, got, 1e-6))

	p.CartMass = 0
	_, err = p.Linearize()
	assert.Error(err)
}

func TestODE(t *testing.T) {
	assert := assert.New(t)

	decay := func(x, _ []float64) []float64 { return []float64{-x[0]} }
	o, err := NewODE(decay, 1, 1, 0.1)
	assert.NoError(err)
	assert.Equal(0.1, o.Timestep())

	s := mat.NewVecDense(1, []float64{1})
	ctrl := mat.NewVecDense(1, nil)
	for i := 0; i < 10; i++ {
		s, err = o.Step(s, ctrl)
		assert.NoError(err)
	}
	assert.InDelta(math.Exp(-1), s.AtVec(0), 1e-6)

	_, err = o.Step(mat.NewVecDense(2, nil), ctrl)
	assert.Error(err)

	_, err = NewODE(decay, 1, 1, 0)
	assert.Error(err)
	_, err = NewODE(nil, 1, 1, 0.1)
	assert.Error(err)
	_, err = NewODE(decay, 0, 1, 0.1)
	assert.Error(err)
}

func TestFunc(t *testing.T) {
	assert := assert.New(t)

	f, err := NewFunc(func(x, u []float64) []float64 { return []float64{x[0] + u[0]} }, 1, 1)
	assert.NoError(err)

	v, err := f.Step(mat.NewVecDense(1, []float64{1}), mat.NewVecDense(1, []float64{2}))
	assert.NoError(err)
	assert.Equal(3.0, v.AtVec(0))

	bad, err := NewFunc(func(x, u []float64) []float64 { return nil }, 1, 1)
	assert.NoError(err)
	_, err = bad.Step(mat.NewVecDense(1, nil), mat.NewVecDense(1, nil))
	assert.Error(err)
}

func TestCartpole(t *testing.T) {
	assert := assert.New(t)

	p := DefaultCartpole()

	// upright and hanging poles are equilibria
	for _, theta := range []float64{0, math.Pi} {
		d := p.Deriv([]float64{theta, 0, 0, 0}, []float64{0})
		for i := range d {
			assert.InDelta(0.0, d[i], 1e-9)
		}
	}

	// upright pole falls away when tilted
	cp, err := NewCartpole(p, 0.05)
	assert.NoError(err)
	s := mat.NewVecDense(4, []float64{0.1, 0, 0, 0})
	for i := 0; i < 10; i++ {
		s, err = cp.Step(s, mat.NewVecDense(1, nil))
		assert.NoError(err)
	}
	assert.Greater(s.AtVec(0), 0.1)

	// pushing the cart accelerates it
	d := p.Deriv([]float64{0, 0, 0, 0}, []float64{1})
	assert.Greater(d[3], 0.0)
}

func TestWithNoise(t *testing.T) {
	assert := assert.New(t)

	f, err := NewDiscrete(A, B)
	assert.NoError(err)

	n, err := noise.NewGaussian([]float64{0, 0}, mat.NewSymDense(2, []float64{1, 0, 0, 1}), 1)
	assert.NoError(err)

	p, err := WithNoise(f, n)
	assert.NoError(err)

	clean, err := f.Step(x, u)
	assert.NoError(err)
	noisy, err := p.Step(x, u)
	assert.NoError(err)
	assert.False(mat.Equal(clean, noisy))

	z, err := noise.NewZero(3)
	assert.NoError(err)
	_, err = WithNoise(f, z)
	assert.Error(err)
}

func TestSimulate(t *testing.T) {
	assert := assert.New(t)

	plant, err := NewDiscrete(mat.NewDense(1, 1, []float64{1}), mat.NewDense(1, 1, []float64{1}))
	assert.NoError(err)

	init, err := mpc.Zeros(sys, 1)
	assert.NoError(err)
	assert.NoError(init.Set(0, "x", 8))

	traj, err := Simulate(&gain{k: 0.5}, plant, init, 3)
	assert.NoError(err)
	assert.Equal(4, traj.Len())

	xs, err := traj.ObsField("x")
	assert.NoError(err)
	assert.Equal([]float64{8, 4, 2, 1}, xs)

	us, err := traj.CtrlField("u")
	assert.NoError(err)
	assert.Equal([]float64{-4, -2, -1, 0}, us)

	// initial trajectory is not modified
	v, err := init.At(0, "u")
	assert.NoError(err)
	assert.Equal(0.0, v)

	empty, err := mpc.Zeros(sys, 0)
	assert.NoError(err)
	_, err = Simulate(&gain{}, plant, empty, 3)
	assert.True(errors.Is(err, mpc.ErrShape))

	f, err := NewDiscrete(A, B)
	assert.NoError(err)
	_, err = Simulate(&gain{}, f, init, 3)
	assert.True(errors.Is(err, mpc.ErrShape))
}

func TestGenerate(t *testing.T) {
	assert := assert.New(t)

	plant, err := NewDiscrete(mat.NewDense(1, 1, []float64{1}), mat.NewDense(1, 1, []float64{1}))
	assert.NoError(err)

	n, err := noise.NewUniform([]float64{-1}, []float64{1}, 42)
	assert.NoError(err)

	traj, err := Generate(sys, plant, mat.NewVecDense(1, []float64{1}), Excite(n), 20)
	assert.NoError(err)
	assert.Equal(21, traj.Len())

	for k := 0; k < 20; k++ {
		uk, err := traj.At(k, "u")
		assert.NoError(err)
		assert.True(uk >= -1 && uk <= 1)

		xk, err := traj.At(k, "x")
		assert.NoError(err)
		xn, err := traj.At(k+1, "x")
		assert.NoError(err)
		assert.InDelta(xk+uk, xn, 1e-12)
	}

	last, err := traj.At(-1, "u")
	assert.NoError(err)
	assert.Equal(0.0, last)

	_, err = Generate(sys, plant, mat.NewVecDense(2, nil), Excite(n), 20)
	assert.True(errors.Is(err, mpc.ErrShape))
	_, err = Generate(sys, plant, mat.NewVecDense(1, nil), Excite(n), -1)
	assert.True(errors.Is(err, mpc.ErrShape))
}
