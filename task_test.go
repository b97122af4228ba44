package mpc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewTask(t *testing.T) {
	assert := assert.New(t)

	task, err := NewTask(dummy)
	assert.NoError(err)
	assert.Equal(dummy, task.System())
	assert.Equal(1.0, task.Q().At(1, 1))
	assert.Equal(1.0, task.R().At(0, 0))
	assert.True(mat.Equal(task.Q(), task.F()))
	assert.Equal(0.0, mat.Norm(task.Goal(), 2))

	task, err = NewTask(nil)
	assert.Nil(task)
	assert.Error(err)
}

func TestTaskSetQuadCost(t *testing.T) {
	assert := assert.New(t)

	task, err := NewTask(dummy)
	assert.NoError(err)

	Q := mat.NewDiagDense(2, []float64{1, 10})
	R := mat.NewDiagDense(1, []float64{0.001})
	assert.NoError(task.SetQuadCost(Q, R))
	assert.Equal(10.0, task.Q().At(1, 1))
	assert.Equal(0.001, task.R().At(0, 0))

	// copies do not leak
	q := task.Q()
	q.SetSym(0, 0, 100)
	assert.Equal(1.0, task.Q().At(0, 0))

	for _, test := range []struct {
		Q, R mat.Matrix
		err  error
	}{
		{Q: mat.NewDiagDense(3, nil), R: R, err: ErrShape},
		{Q: Q, R: mat.NewDiagDense(2, []float64{1, 1}), err: ErrShape},
		{Q: mat.NewDense(2, 2, []float64{1, 1, 0, 1}), R: R, err: ErrInvalidCost},
		{Q: mat.NewDiagDense(2, []float64{1, -1}), R: R, err: ErrInvalidCost},
		{Q: Q, R: mat.NewDiagDense(1, []float64{0}), err: ErrInvalidCost},
		{Q: nil, R: R, err: ErrInvalidCost},
	} {
		err := task.SetQuadCost(test.Q, test.R)
		assert.True(errors.Is(err, test.err), "got %v want %v", err, test.err)
	}

	// failed updates keep previous weights
	assert.Equal(10.0, task.Q().At(1, 1))
}

func TestTaskTermCostGoal(t *testing.T) {
	assert := assert.New(t)

	task, err := NewTask(dummy)
	assert.NoError(err)

	assert.NoError(task.SetTermCost(mat.NewDiagDense(2, []float64{5, 5})))
	assert.Equal(5.0, task.F().At(0, 0))
	assert.Error(task.SetTermCost(mat.NewDiagDense(2, []float64{-5, 5})))
	assert.Error(task.SetTermCost(mat.NewDiagDense(1, []float64{5})))

	goal := mat.NewVecDense(2, []float64{1, 2})
	assert.NoError(task.SetGoal(goal))
	assert.True(mat.Equal(goal, task.Goal()))
	assert.True(errors.Is(task.SetGoal(mat.NewVecDense(3, nil)), ErrShape))
	assert.True(errors.Is(task.SetGoal(nil), ErrShape))
}

func TestTaskCost(t *testing.T) {
	assert := assert.New(t)

	task, err := NewTask(dummy)
	assert.NoError(err)
	assert.NoError(task.SetQuadCost(mat.NewDiagDense(2, []float64{1, 2}), mat.NewDiagDense(1, []float64{3})))
	assert.NoError(task.SetTermCost(mat.NewDiagDense(2, []float64{10, 10})))

	obs := mat.NewDense(2, 2, []float64{1, 1, 1, 0})
	ctrl := mat.NewDense(2, 1, []float64{2, 100})
	traj, err := NewTrajectory(dummy, obs, ctrl)
	assert.NoError(err)

	// step 0: 1*1 + 2*1 + 3*4; step 1 (terminal): 10*1
	cost, err := task.Cost(traj)
	assert.NoError(err)
	assert.InDelta(25.0, cost, 1e-12)

	other, err := Zeros(cartpole, 1)
	assert.NoError(err)
	_, err = task.Cost(other)
	assert.True(errors.Is(err, ErrShape))
}
