// Package nonlinear implements a model of known nonlinear discrete-time dynamics
// whose state is the current observation. Jacobians are approximated
// with central finite differences.
package nonlinear

import (
	"fmt"

	mpc "github.com/milosgajdos/go-autompc"
	"github.com/milosgajdos/go-autompc/config"
	"github.com/milosgajdos/go-autompc/sim"
	"github.com/milosgajdos/go-autompc/sysid"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// Model is a nonlinear model: y[k+1] = f(y[k], u[k])
type Model struct {
	sys *mpc.System
	f   sim.StepFunc
}

// New creates new nonlinear model of system sys with dynamics f.
func New(sys *mpc.System, f sim.StepFunc) (*Model, error) {
	if sys == nil {
		return nil, fmt.Errorf("invalid system: %v", sys)
	}

	if f == nil {
		return nil, fmt.Errorf("invalid dynamics: %v", f)
	}

	return &Model{sys: sys, f: f}, nil
}

// System returns model system.
func (m *Model) System() *mpc.System { return m.sys }

// StateDim returns model state dimension.
func (m *Model) StateDim() int { return m.sys.ObsDim() }

// Train checks trajs belong to the model system. Model dynamics are known.
func (m *Model) Train(trajs []*mpc.Trajectory) error {
	return sysid.CheckTrajs(m.sys, trajs)
}

// TrajToState returns the last observation of t.
func (m *Model) TrajToState(t *mpc.Trajectory) (mat.Vector, error) {
	return sysid.LastObs(m.sys, t)
}

// UpdateState returns obs as the new model state.
func (m *Model) UpdateState(state, obs mat.Vector) (mat.Vector, error) {
	if err := sysid.CheckVec(state, m.StateDim(), "state"); err != nil {
		return nil, err
	}

	if err := sysid.CheckVec(obs, m.sys.ObsDim(), "observation"); err != nil {
		return nil, err
	}

	return mat.VecDenseCopyOf(obs), nil
}

func (m *Model) step(x, u []float64) ([]float64, error) {
	next := m.f(x, u)
	if len(next) != m.sys.ObsDim() {
		return nil, fmt.Errorf("%w: invalid dynamics output length: %d", mpc.ErrShape, len(next))
	}

	return next, nil
}

func (m *Model) check(state, ctrl mat.Vector) error {
	if err := sysid.CheckVec(state, m.StateDim(), "state"); err != nil {
		return err
	}

	return sysid.CheckVec(ctrl, m.sys.CtrlDim(), "control")
}

// Pred returns the next observation, which is also the next model state.
func (m *Model) Pred(state, ctrl mat.Vector) (*mat.VecDense, mat.Vector, error) {
	if err := m.check(state, ctrl); err != nil {
		return nil, nil, err
	}

	next, err := m.step(mat.Col(nil, 0, state), mat.Col(nil, 0, ctrl))
	if err != nil {
		return nil, nil, err
	}
	obs := mat.NewVecDense(len(next), next)

	return obs, mat.VecDenseCopyOf(obs), nil
}

// PredDiff returns prediction along with its Jacobians w.r.t. state and control.
func (m *Model) PredDiff(state, ctrl mat.Vector) (*mpc.DiffPred, error) {
	obs, next, err := m.Pred(state, ctrl)
	if err != nil {
		return nil, err
	}

	n, c := m.sys.ObsDim(), m.sys.CtrlDim()
	x, u := mat.Col(nil, 0, state), mat.Col(nil, 0, ctrl)

	settings := &fd.JacobianSettings{
		Formula: fd.Central,
	}

	stateJac := mat.NewDense(n, n, nil)
	fd.Jacobian(stateJac, func(y, x []float64) {
		copy(y, m.f(x, u))
	}, x, settings)

	ctrlJac := mat.NewDense(n, c, nil)
	fd.Jacobian(ctrlJac, func(y, u []float64) {
		copy(y, m.f(x, u))
	}, u, settings)

	obsJac := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		obsJac.Set(i, i, 1.0)
	}

	return &mpc.DiffPred{
		Obs:      obs,
		State:    next.(*mat.VecDense),
		StateJac: stateJac,
		CtrlJac:  ctrlJac,
		ObsJac:   obsJac,
	}, nil
}

// Factory creates nonlinear models with dynamics F.
type Factory struct {
	F sim.StepFunc
}

// ConfigSpace returns empty configuration space.
func (Factory) ConfigSpace(*mpc.System) *config.Space { return config.NewSpace() }

// New creates new nonlinear model.
func (f Factory) New(sys *mpc.System, _ *config.Configuration) (mpc.Model, error) {
	m, err := New(sys, f.F)
	if err != nil {
		return nil, err
	}

	return m, nil
}
