package eval

import (
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	mpc "github.com/milosgajdos/go-autompc"
	"github.com/milosgajdos/go-autompc/noise"
	"github.com/milosgajdos/go-autompc/sim"
	"github.com/milosgajdos/go-autompc/sysid/linear"
	"github.com/milosgajdos/go-autompc/sysid/nonlinear"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
)

var (
	scalar *mpc.System
	trajs  []*mpc.Trajectory
)

func setup() {
	var err error
	scalar, err = mpc.NewSystem([]string{"x"}, []string{"u"})
	if err != nil {
		panic(err)
	}

	plant, err := sim.NewDiscrete(mat.NewDense(1, 1, []float64{0.9}), mat.NewDense(1, 1, []float64{0.5}))
	if err != nil {
		panic(err)
	}

	n, err := noise.NewUniform([]float64{-1}, []float64{1}, 5)
	if err != nil {
		panic(err)
	}

	for i := 0; i < 8; i++ {
		x0 := mat.NewVecDense(1, []float64{float64(i)})
		traj, err := sim.Generate(scalar, plant, x0, sim.Excite(n), 20)
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

type emptyGrapher struct{}

func (emptyGrapher) Graph(mpc.Model, []*mpc.Trajectory) (*plot.Plot, error) {
	return plot.New(), nil
}

func TestRMSEKSteps(t *testing.T) {
	assert := assert.New(t)

	// x[k] = k while the model predicts no change
	traj, err := mpc.Zeros(scalar, 5)
	assert.NoError(err)
	for k := 0; k < traj.Len(); k++ {
		assert.NoError(traj.Set(k, "x", float64(k)))
		assert.NoError(traj.Set(k, "u", 1))
	}

	still, err := nonlinear.New(scalar, func(x, _ []float64) []float64 { return []float64{x[0]} })
	assert.NoError(err)

	rmse, err := RMSEKSteps(still, []*mpc.Trajectory{traj}, 3)
	assert.NoError(err)
	assert.Len(rmse, 3)
	for k := range rmse {
		assert.InDelta(float64(k+1), rmse[k], 1e-12)
	}

	score, err := RMSEKStep{K: 2}.Score(still, []*mpc.Trajectory{traj})
	assert.NoError(err)
	assert.InDelta(2.0, score, 1e-12)

	_, err = RMSEKSteps(still, []*mpc.Trajectory{traj}, 5)
	assert.True(errors.Is(err, mpc.ErrShape))
	_, err = RMSEKSteps(still, []*mpc.Trajectory{traj}, 0)
	assert.Error(err)
}

func TestHoldout(t *testing.T) {
	assert := assert.New(t)

	h, err := NewHoldout(scalar, trajs, RMSEKStep{K: 5}, 0.25, 42)
	assert.NoError(err)
	assert.Len(h.Holdout(), 2)
	assert.Len(h.Training(), 6)

	// split is reproducible
	h2, err := NewHoldout(scalar, trajs, RMSEKStep{K: 5}, 0.25, 42)
	assert.NoError(err)
	assert.Equal(h.Holdout(), h2.Holdout())

	h.AddGrapher(emptyGrapher{})
	res, err := h.Run(linear.Factory{}, nil)
	assert.NoError(err)
	assert.NotEqual(uuid.Nil, res.ID)
	assert.InDelta(0.0, res.Score, 1e-6)
	assert.NotNil(res.Model)
	assert.Len(res.Graphs, 1)

	res2, err := h.Run(linear.Factory{}, nil)
	assert.NoError(err)
	assert.NotEqual(res.ID, res2.ID)
}

func TestHoldoutErrors(t *testing.T) {
	assert := assert.New(t)

	for _, prop := range []float64{0, 1, 0.05} {
		_, err := NewHoldout(scalar, trajs, RMSEKStep{K: 1}, prop, 1)
		assert.Error(err)
	}

	_, err := NewHoldout(scalar, trajs, nil, 0.5, 1)
	assert.Error(err)

	h, err := NewHoldout(scalar, trajs, RMSEKStep{K: 1}, 0.5, 1)
	assert.NoError(err)
	_, err = h.Run(nonlinear.Factory{}, nil)
	assert.Error(err)
}
