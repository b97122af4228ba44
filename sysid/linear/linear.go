// Package linear implements a linear least squares model of system dynamics
// whose state is the current observation.
package linear

import (
	"fmt"

	mpc "github.com/milosgajdos/go-autompc"
	"github.com/milosgajdos/go-autompc/config"
	"github.com/milosgajdos/go-autompc/sim"
	"github.com/milosgajdos/go-autompc/sysid"
	"gonum.org/v1/gonum/mat"
)

// Model is a linear model:
//
//	y[k+1] = A*y[k] + B*u[k]
type Model struct {
	sys *mpc.System
	// d holds fitted system matrices
	d *sim.Discrete
}

// New creates new untrained linear model of system sys and returns it.
func New(sys *mpc.System) (*Model, error) {
	if sys == nil {
		return nil, fmt.Errorf("invalid system: %v", sys)
	}

	return &Model{sys: sys}, nil
}

// NewFromMatrices creates new linear model of system sys with known matrices A and B.
func NewFromMatrices(sys *mpc.System, A, B mat.Matrix) (*Model, error) {
	m, err := New(sys)
	if err != nil {
		return nil, err
	}

	ar, _ := A.Dims()
	_, bc := B.Dims()
	if ar != sys.ObsDim() || bc != sys.CtrlDim() {
		return nil, fmt.Errorf("%w: invalid model matrices dimensions", mpc.ErrShape)
	}

	d, err := sim.NewDiscrete(A, B)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mpc.ErrShape, err)
	}
	m.d = d

	return m, nil
}

// System returns model system.
func (m *Model) System() *mpc.System { return m.sys }

// StateDim returns model state dimension.
func (m *Model) StateDim() int { return m.sys.ObsDim() }

// Matrices returns copies of model matrices A and B.
func (m *Model) Matrices() (A, B mat.Matrix, err error) {
	if m.d == nil {
		return nil, nil, fmt.Errorf("%w: model not trained", mpc.ErrTraining)
	}

	return m.d.SystemMatrix(), m.d.ControlMatrix(), nil
}

// Train fits A and B to consecutive observation pairs of trajs.
func (m *Model) Train(trajs []*mpc.Trajectory) error {
	if err := sysid.CheckTrajs(m.sys, trajs); err != nil {
		return err
	}

	var xs, ys [][]float64
	for _, t := range trajs {
		for k := 0; k < t.Len()-1; k++ {
			s := t.Step(k)
			x := append(mat.Col(nil, 0, s.Obs()), mat.Col(nil, 0, s.Ctrl())...)
			xs = append(xs, x)
			ys = append(ys, mat.Col(nil, 0, t.Step(k+1).Obs()))
		}
	}

	X, err := sysid.Stack(xs)
	if err != nil {
		return err
	}

	Y, err := sysid.Stack(ys)
	if err != nil {
		return err
	}

	W, err := sysid.LeastSquares(X, Y, 0)
	if err != nil {
		return err
	}

	n := m.sys.ObsDim()
	A := mat.DenseCopyOf(W.Slice(0, n, 0, n).T())
	B := mat.DenseCopyOf(W.Slice(n, n+m.sys.CtrlDim(), 0, n).T())

	d, err := sim.NewDiscrete(A, B)
	if err != nil {
		return fmt.Errorf("%w: %v", mpc.ErrTraining, err)
	}
	m.d = d

	return nil
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

// Pred returns the next observation, which is also the next model state.
func (m *Model) Pred(state, ctrl mat.Vector) (*mat.VecDense, mat.Vector, error) {
	if m.d == nil {
		return nil, nil, fmt.Errorf("%w: model not trained", mpc.ErrTraining)
	}

	if err := sysid.CheckVec(state, m.StateDim(), "state"); err != nil {
		return nil, nil, err
	}

	if err := sysid.CheckVec(ctrl, m.sys.CtrlDim(), "control"); err != nil {
		return nil, nil, err
	}

	next, err := m.d.Step(state, ctrl)
	if err != nil {
		return nil, nil, err
	}

	return mat.VecDenseCopyOf(next), next, nil
}

// PredDiff returns the prediction along with A and B as its Jacobians.
func (m *Model) PredDiff(state, ctrl mat.Vector) (*mpc.DiffPred, error) {
	obs, next, err := m.Pred(state, ctrl)
	if err != nil {
		return nil, err
	}

	n := m.sys.ObsDim()
	eye := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		eye.Set(i, i, 1.0)
	}

	return &mpc.DiffPred{
		Obs:      obs,
		State:    next.(*mat.VecDense),
		StateJac: mat.DenseCopyOf(m.d.A),
		CtrlJac:  mat.DenseCopyOf(m.d.B),
		ObsJac:   eye,
	}, nil
}

// ToLinear returns the model as a linear system observing its full state.
func (m *Model) ToLinear() (*mpc.LinearSystem, error) {
	if m.d == nil {
		return nil, fmt.Errorf("%w: model not trained", mpc.ErrTraining)
	}

	n := m.sys.ObsDim()
	eye := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		eye.Set(i, i, 1.0)
	}

	return mpc.NewLinearSystem(m.d.A, m.d.B, eye)
}

// Factory creates linear models. Linear models have no hyperparameters.
type Factory struct{}

// ConfigSpace returns empty configuration space.
func (Factory) ConfigSpace(*mpc.System) *config.Space { return config.NewSpace() }

// New creates new linear model.
func (Factory) New(sys *mpc.System, _ *config.Configuration) (mpc.Model, error) {
	m, err := New(sys)
	if err != nil {
		return nil, err
	}

	return m, nil
}
