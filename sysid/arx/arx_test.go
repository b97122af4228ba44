package arx

import (
	"errors"
	"os"
	"testing"

	mpc "github.com/milosgajdos/go-autompc"
	"github.com/milosgajdos/go-autompc/noise"
	"github.com/milosgajdos/go-autompc/sim"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

var (
	dummy *mpc.System
	trajs []*mpc.Trajectory
)

func setup() {
	var err error
	dummy, err = mpc.NewSystem([]string{"x1", "x2"}, []string{"u"})
	if err != nil {
		panic(err)
	}

	A := mat.NewDense(2, 2, []float64{0.9, 0.2, -0.1, 0.8})
	B := mat.NewDense(2, 1, []float64{0.0, 0.5})
	plant, err := sim.NewDiscrete(A, B)
	if err != nil {
		panic(err)
	}

	n, err := noise.NewUniform([]float64{-1}, []float64{1}, 3)
	if err != nil {
		panic(err)
	}

	for _, x0 := range [][]float64{{1, 0}, {0, -1}, {0.5, 0.5}} {
		traj, err := sim.Generate(dummy, plant, mat.NewVecDense(2, x0), sim.Excite(n), 40)
		if err != nil {
			panic(err)
		}
		trajs = append(trajs, traj)
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

func TestTrajToState(t *testing.T) {
	assert := assert.New(t)

	m, err := New(dummy, 3)
	assert.NoError(err)
	assert.Equal(3, m.History())
	assert.Equal(3*2+2*1, m.StateDim())

	traj, err := mpc.Zeros(dummy, 2)
	assert.NoError(err)
	assert.NoError(traj.Step(0).SetObs([]float64{1, 2}))
	assert.NoError(traj.Step(0).SetCtrl([]float64{5}))
	assert.NoError(traj.Step(1).SetObs([]float64{3, 4}))

	first, err := traj.Slice(0, 1)
	assert.NoError(err)
	s, err := m.TrajToState(first)
	assert.NoError(err)
	assert.Equal([]float64{1, 2, 1, 2, 1, 2, 0, 0}, mat.Col(nil, 0, s))

	s, err = m.TrajToState(traj)
	assert.NoError(err)
	assert.Equal([]float64{3, 4, 1, 2, 1, 2, 5, 0}, mat.Col(nil, 0, s))

	s, err = m.UpdateState(s, mat.NewVecDense(2, []float64{7, 8}))
	assert.NoError(err)
	assert.Equal([]float64{7, 8, 1, 2, 1, 2, 5, 0}, mat.Col(nil, 0, s))

	empty, err := mpc.Zeros(dummy, 0)
	assert.NoError(err)
	_, err = m.TrajToState(empty)
	assert.True(errors.Is(err, mpc.ErrShape))

	// observations of another system are not reinterpreted
	other, err := mpc.NewSystem([]string{"a", "b", "c"}, []string{"u"})
	assert.NoError(err)
	foreign, err := mpc.Zeros(other, 2)
	assert.NoError(err)
	assert.NoError(foreign.Step(-1).SetObs([]float64{7, 0, 0}))
	s, err = m.TrajToState(foreign)
	assert.Nil(s)
	assert.True(errors.Is(err, mpc.ErrShape))

	_, err = New(dummy, 0)
	assert.Error(err)
}

func TestTrainPred(t *testing.T) {
	assert := assert.New(t)

	for _, k := range []int{1, 2, 4} {
		m, err := New(dummy, k)
		assert.NoError(err)
		assert.NoError(m.Train(trajs))

		traj := trajs[0]
		for j := 0; j < traj.Len()-2; j++ {
			prefix, err := traj.Slice(0, j+1)
			assert.NoError(err)
			state, err := m.TrajToState(prefix)
			assert.NoError(err)

			obs, next, err := m.Pred(state, traj.Step(j).Ctrl())
			assert.NoError(err)
			assert.True(mat.EqualApprox(traj.Step(j+1).Obs(), obs, 1e-6))

			// next state matches the state of the extended prefix
			ext, err := traj.Slice(0, j+2)
			assert.NoError(err)
			want, err := m.TrajToState(ext)
			assert.NoError(err)
			assert.True(mat.EqualApprox(want, next, 1e-6))
		}
	}
}

func TestToLinear(t *testing.T) {
	assert := assert.New(t)

	m, err := New(dummy, 2)
	assert.NoError(err)

	_, err = m.ToLinear()
	assert.True(errors.Is(err, mpc.ErrTraining))
	_, _, err = m.Pred(mat.NewVecDense(m.StateDim(), nil), mat.NewVecDense(1, nil))
	assert.True(errors.Is(err, mpc.ErrTraining))

	assert.NoError(m.Train(trajs))

	l, err := m.ToLinear()
	assert.NoError(err)
	nx, nu := l.Dims()
	assert.Equal(m.StateDim(), nx)
	assert.Equal(1, nu)

	state, err := m.TrajToState(trajs[1])
	assert.NoError(err)
	ctrl := mat.NewVecDense(1, []float64{0.3})

	obs, next, err := m.Pred(state, ctrl)
	assert.NoError(err)

	x := mat.NewVecDense(nx, nil)
	x.MulVec(l.A, state)
	bu := mat.NewVecDense(nx, nil)
	bu.MulVec(l.B, ctrl)
	x.AddVec(x, bu)
	assert.True(mat.EqualApprox(next, x, 1e-12))

	y := mat.NewVecDense(2, nil)
	y.MulVec(l.C, x)
	assert.True(mat.EqualApprox(obs, y, 1e-12))
}

func TestCapabilities(t *testing.T) {
	assert := assert.New(t)

	m, err := mpc.MakeModel(dummy, Factory{}, nil)
	assert.NoError(err)
	assert.Equal(DefaultHistory, m.(*Model).History())
	assert.NoError(m.Train(trajs))

	assert.False(mpc.IsDifferentiable(m))
	assert.True(mpc.IsLinear(m))

	state, err := m.TrajToState(trajs[0])
	assert.NoError(err)

	d, err := mpc.PredDiff(m, state, mat.NewVecDense(1, nil))
	assert.Nil(d)
	assert.True(errors.Is(err, mpc.ErrUnsupported))

	cfg := Factory{}.ConfigSpace(dummy).Default()
	assert.Error(cfg.Set("history", MaxHistory+1))
}

func TestTrainErrors(t *testing.T) {
	assert := assert.New(t)

	m, err := New(dummy, 2)
	assert.NoError(err)

	assert.True(errors.Is(m.Train(nil), mpc.ErrTraining))

	other, err := mpc.NewSystem([]string{"x"}, []string{"u"})
	assert.NoError(err)
	traj, err := mpc.Zeros(other, 5)
	assert.NoError(err)
	assert.True(errors.Is(m.Train([]*mpc.Trajectory{traj}), mpc.ErrTraining))
}
