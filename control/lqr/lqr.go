// Package lqr implements finite horizon linear quadratic regulator.
//
// The controller linearizes the model, either exactly through its ToLinear
// capability or locally through PredDiff around the goal state, and computes
// feedback gains with backward Riccati recursion at construction time.
// Once the horizon is exhausted the last gain is held, which matches infinite
// horizon LQR for time invariant systems. For short horizons the held gain is
// close to the one step terminal gain and may not stabilize the plant.
//
// The controller does not verify the linearized system is stabilizable.
// Controlling a system which is not stabilizable results in divergence, not in error.
package lqr

import (
	"errors"
	"fmt"

	mpc "github.com/milosgajdos/go-autompc"
	"github.com/milosgajdos/go-autompc/config"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultHorizon is the default control horizon.
	DefaultHorizon = 10
	// MaxHorizon is the maximum control horizon.
	MaxHorizon = 1000
)

// Controller is finite horizon LQR controller.
// Controller state is the model state followed by the number of steps taken.
type Controller struct {
	sys   *mpc.System
	model mpc.Model
	// goal is the goal in model state coordinates
	goal *mat.VecDense
	// gains are feedback gains for every step of the horizon
	gains []*mat.Dense
}

// New creates new LQR controller of system sys solving task with model m over horizon steps.
// It returns mpc.ErrIncompatible if m can not be linearized or if task or m belong to another system.
func New(sys *mpc.System, task *mpc.Task, m mpc.Model, horizon int) (*Controller, error) {
	if sys == nil || task == nil || m == nil {
		return nil, fmt.Errorf("invalid controller arguments: system %v, task %v, model %v", sys, task, m)
	}

	if horizon < 1 {
		return nil, fmt.Errorf("invalid horizon: %d", horizon)
	}

	if !sys.Equal(m.System()) || !sys.Equal(task.System()) {
		return nil, fmt.Errorf("%w: system %s, task system %s, model system %s",
			mpc.ErrIncompatible, sys, task.System(), m.System())
	}

	goalTraj, err := mpc.Zeros(sys, 1)
	if err != nil {
		return nil, err
	}

	if err := goalTraj.Step(0).SetObs(mat.Col(nil, 0, task.Goal())); err != nil {
		return nil, err
	}

	goal, err := m.TrajToState(goalTraj)
	if err != nil {
		return nil, fmt.Errorf("failed to compute goal state: %w", err)
	}

	lin, err := linearize(m, goal)
	if err != nil {
		return nil, err
	}

	gains, err := Solve(lin.A, lin.B, lin.StateCost(task.Q()), task.R(), lin.StateCost(task.F()), horizon)
	if err != nil {
		return nil, err
	}

	return &Controller{
		sys:   sys,
		model: m,
		goal:  mat.VecDenseCopyOf(goal),
		gains: gains,
	}, nil
}

// linearize returns the exact linear system of m if it has one.
// Otherwise it linearizes m around state x with zero control.
func linearize(m mpc.Model, x mat.Vector) (*mpc.LinearSystem, error) {
	lin, err := mpc.ToLinear(m)
	if err == nil {
		return lin, nil
	}

	if !errors.Is(err, mpc.ErrUnsupported) {
		return nil, err
	}

	d, err := mpc.PredDiff(m, x, mat.NewVecDense(m.System().CtrlDim(), nil))
	if err != nil {
		if errors.Is(err, mpc.ErrUnsupported) {
			return nil, fmt.Errorf("%w: %T is neither linear nor differentiable", mpc.ErrIncompatible, m)
		}
		return nil, err
	}

	return mpc.NewLinearSystem(d.StateJac, d.CtrlJac, d.ObsJac)
}

// Horizon returns control horizon.
func (c *Controller) Horizon() int { return len(c.gains) }

// Gains returns copies of the feedback gains.
func (c *Controller) Gains() []*mat.Dense {
	gains := make([]*mat.Dense, len(c.gains))
	for i, k := range c.gains {
		gains[i] = mat.DenseCopyOf(k)
	}

	return gains
}

// StateDim returns controller state dimension.
func (c *Controller) StateDim() int { return c.model.StateDim() + 1 }

// TrajToState returns controller state of trajectory prefix t.
// The step counter is the index of the last step of t.
func (c *Controller) TrajToState(t *mpc.Trajectory) (mat.Vector, error) {
	if t == nil || !c.sys.Equal(t.System()) {
		return nil, fmt.Errorf("%w: trajectory does not belong to %s", mpc.ErrShape, c.sys)
	}

	ms, err := c.model.TrajToState(t)
	if err != nil {
		return nil, err
	}

	return c.state(ms, t.Len()-1), nil
}

func (c *Controller) state(ms mat.Vector, step int) *mat.VecDense {
	n := ms.Len()
	s := mat.NewVecDense(n+1, nil)
	s.SliceVec(0, n).(*mat.VecDense).CopyVec(ms)
	s.SetVec(n, float64(step))

	return s
}

// Run returns control for observation obs and the next controller state.
func (c *Controller) Run(state, obs mat.Vector) (*mat.VecDense, mat.Vector, error) {
	if state == nil || state.Len() != c.StateDim() {
		return nil, nil, fmt.Errorf("%w: invalid controller state", mpc.ErrShape)
	}

	n := c.model.StateDim()
	ms := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		ms.SetVec(i, state.AtVec(i))
	}
	step := int(state.AtVec(n))

	cur, err := c.model.UpdateState(ms, obs)
	if err != nil {
		return nil, nil, err
	}

	k := step
	if k < 0 {
		k = 0
	}
	if k >= len(c.gains) {
		k = len(c.gains) - 1
	}

	e := mat.NewVecDense(n, nil)
	e.SubVec(cur, c.goal)

	u := mat.NewVecDense(c.sys.CtrlDim(), nil)
	u.MulVec(c.gains[k], e)
	u.ScaleVec(-1, u)

	_, next, err := c.model.Pred(cur, u)
	if err != nil {
		return nil, nil, err
	}

	return u, c.state(next, step+1), nil
}

// Factory creates LQR controllers.
type Factory struct{}

// ConfigSpace returns LQR configuration space.
func (Factory) ConfigSpace(*mpc.System, *mpc.Task, mpc.Model) *config.Space {
	return config.NewSpace(config.Int("horizon", 1, MaxHorizon, DefaultHorizon))
}

// IsCompatible returns true if m is linear or differentiable.
func (Factory) IsCompatible(_ *mpc.System, _ *mpc.Task, m mpc.Model) bool {
	return m != nil && (mpc.IsLinear(m) || mpc.IsDifferentiable(m))
}

// New creates new LQR controller configured by cfg.
func (Factory) New(sys *mpc.System, task *mpc.Task, m mpc.Model, cfg *config.Configuration) (mpc.Controller, error) {
	h, err := cfg.Int("horizon")
	if err != nil {
		return nil, err
	}

	c, err := New(sys, task, m, h)
	if err != nil {
		return nil, err
	}

	return c, nil
}
