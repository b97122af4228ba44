package mpc

import (
	"errors"
	"testing"

	"github.com/milosgajdos/go-autompc/config"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

// passModel predicts the current observation, ignoring control.
type passModel struct {
	sys *System
}

func (m *passModel) System() *System           { return m.sys }
func (m *passModel) StateDim() int             { return m.sys.ObsDim() }
func (m *passModel) Train([]*Trajectory) error { return nil }

func (m *passModel) TrajToState(t *Trajectory) (mat.Vector, error) {
	return mat.VecDenseCopyOf(t.Step(-1).Obs()), nil
}

func (m *passModel) UpdateState(_, obs mat.Vector) (mat.Vector, error) {
	return mat.VecDenseCopyOf(obs), nil
}

func (m *passModel) Pred(state, _ mat.Vector) (*mat.VecDense, mat.Vector, error) {
	return mat.VecDenseCopyOf(state), mat.VecDenseCopyOf(state), nil
}

type linearPassModel struct {
	passModel
}

func (m *linearPassModel) ToLinear() (*LinearSystem, error) {
	n := m.sys.ObsDim()
	eye := mat.NewDiagDense(n, nil)
	for i := 0; i < n; i++ {
		eye.SetDiag(i, 1)
	}

	return NewLinearSystem(eye, mat.NewDense(n, m.sys.CtrlDim(), nil), eye)
}

type passFactory struct{}

func (passFactory) ConfigSpace(*System) *config.Space {
	return config.NewSpace(config.Int("history", 1, 4, 1))
}

func (passFactory) New(sys *System, _ *config.Configuration) (Model, error) {
	return &passModel{sys: sys}, nil
}

type linearOnly struct{}

func (linearOnly) ConfigSpace(*System, *Task, Model) *config.Space {
	return config.NewSpace(config.Int("horizon", 1, 10, 5))
}

func (linearOnly) IsCompatible(_ *System, _ *Task, m Model) bool {
	return IsLinear(m)
}

func (linearOnly) New(*System, *Task, Model, *config.Configuration) (Controller, error) {
	return nil, nil
}

func TestCapabilities(t *testing.T) {
	assert := assert.New(t)

	m := &passModel{sys: dummy}
	assert.False(IsDifferentiable(m))
	assert.False(IsLinear(m))

	state := mat.NewVecDense(2, []float64{1, 2})
	ctrl := mat.NewVecDense(1, nil)

	d, err := PredDiff(m, state, ctrl)
	assert.Nil(d)
	assert.True(errors.Is(err, ErrUnsupported))

	l, err := ToLinear(m)
	assert.Nil(l)
	assert.True(errors.Is(err, ErrUnsupported))

	lm := &linearPassModel{passModel{sys: dummy}}
	assert.True(IsLinear(lm))
	l, err = ToLinear(lm)
	assert.NoError(err)
	nx, nu := l.Dims()
	assert.Equal(2, nx)
	assert.Equal(1, nu)
}

func TestLinearSystem(t *testing.T) {
	assert := assert.New(t)

	A := mat.NewDense(3, 3, nil)
	B := mat.NewDense(3, 1, nil)
	C := mat.NewDense(2, 3, []float64{1, 0, 0, 0, 1, 0})

	l, err := NewLinearSystem(A, B, C)
	assert.NoError(err)

	q := mat.NewSymDense(2, []float64{2, 1, 1, 3})
	qs := l.StateCost(q)
	assert.Equal(3, qs.SymmetricDim())
	assert.Equal(2.0, qs.At(0, 0))
	assert.Equal(1.0, qs.At(0, 1))
	assert.Equal(3.0, qs.At(1, 1))
	assert.Equal(0.0, qs.At(2, 2))

	_, err = NewLinearSystem(mat.NewDense(3, 2, nil), B, C)
	assert.True(errors.Is(err, ErrShape))
	_, err = NewLinearSystem(A, mat.NewDense(2, 1, nil), C)
	assert.True(errors.Is(err, ErrShape))
	_, err = NewLinearSystem(A, B, mat.NewDense(2, 2, nil))
	assert.True(errors.Is(err, ErrShape))
}

func TestDiffPredJacobians(t *testing.T) {
	assert := assert.New(t)

	d := &DiffPred{
		StateJac: mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
		CtrlJac:  mat.NewDense(2, 1, []float64{5, 6}),
		ObsJac:   mat.NewDense(1, 2, []float64{1, 0}),
	}

	assert.True(mat.Equal(mat.NewDense(1, 2, []float64{1, 2}), d.ObsStateJac()))
	assert.True(mat.Equal(mat.NewDense(1, 1, []float64{5}), d.ObsCtrlJac()))
}

func TestMakeModel(t *testing.T) {
	assert := assert.New(t)

	m, err := MakeModel(dummy, passFactory{}, nil)
	assert.NoError(err)
	assert.NotNil(m)

	cfg := passFactory{}.ConfigSpace(dummy).Default()
	assert.NoError(cfg.Set("history", 3))
	m, err = MakeModel(dummy, passFactory{}, cfg)
	assert.NoError(err)
	assert.NotNil(m)

	other := config.NewSpace(config.Int("horizon", 1, 2, 1)).Default()
	m, err = MakeModel(dummy, passFactory{}, other)
	assert.Nil(m)
	assert.True(errors.Is(err, ErrInvalidConfig))
}

func TestMakeController(t *testing.T) {
	assert := assert.New(t)

	task, err := NewTask(dummy)
	assert.NoError(err)

	c, err := MakeController(dummy, task, &passModel{sys: dummy}, linearOnly{}, nil)
	assert.Nil(c)
	assert.True(errors.Is(err, ErrIncompatible))

	_, err = MakeController(dummy, task, &linearPassModel{passModel{sys: dummy}}, linearOnly{}, nil)
	assert.NoError(err)

	bad := config.NewSpace(config.Int("history", 1, 2, 1)).Default()
	_, err = MakeController(dummy, task, &linearPassModel{passModel{sys: dummy}}, linearOnly{}, bad)
	assert.True(errors.Is(err, ErrInvalidConfig))
}

func TestSystemEqual(t *testing.T) {
	assert := assert.New(t)

	twin, err := NewSystem([]string{"x1", "x2"}, []string{"u"})
	assert.NoError(err)
	swapped, err := NewSystem([]string{"x2", "x1"}, []string{"u"})
	assert.NoError(err)

	assert.True(dummy.Equal(dummy))
	assert.True(dummy.Equal(twin))
	assert.False(dummy.Equal(swapped))
	assert.False(dummy.Equal(cartpole))
	assert.False(dummy.Equal(nil))
}
