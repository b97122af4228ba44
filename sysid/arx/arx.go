// Package arx implements an autoregressive model with exogenous inputs.
//
// The model predicts the next observation as a linear combination of the
// last k observations and the last k controls:
//
//	y[t+1] = A1*y[t] + ... + Ak*y[t-k+1] + B1*u[t] + ... + Bk*u[t-k+1]
//
// Model state stacks the last k observations followed by the last k-1 controls.
// The model is a black box with respect to differentiation: it implements
// Pred and ToLinear but not PredDiff.
package arx

import (
	"fmt"

	mpc "github.com/milosgajdos/go-autompc"
	"github.com/milosgajdos/go-autompc/config"
	"github.com/milosgajdos/go-autompc/sim"
	"github.com/milosgajdos/go-autompc/sysid"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultHistory is the default history length.
	DefaultHistory = 4
	// MaxHistory is the maximum history length.
	MaxHistory = 10
)

// Model is ARX model.
type Model struct {
	sys *mpc.System
	k   int
	// d is the model in state space form
	d *sim.Discrete
}

// New creates new untrained ARX model of system sys with history k.
func New(sys *mpc.System, k int) (*Model, error) {
	if sys == nil {
		return nil, fmt.Errorf("invalid system: %v", sys)
	}

	if k < 1 {
		return nil, fmt.Errorf("invalid history: %d", k)
	}

	return &Model{sys: sys, k: k}, nil
}

// System returns model system.
func (m *Model) System() *mpc.System { return m.sys }

// History returns model history length.
func (m *Model) History() int { return m.k }

// StateDim returns model state dimension.
func (m *Model) StateDim() int {
	return m.k*m.sys.ObsDim() + (m.k-1)*m.sys.CtrlDim()
}

// state returns model state of trajectory prefix t[:end+1].
// Steps before the start of t repeat its first observation with zero controls.
func (m *Model) state(t *mpc.Trajectory, end int) []float64 {
	n, c := m.sys.ObsDim(), m.sys.CtrlDim()
	s := make([]float64, m.StateDim())

	for i := 0; i < m.k; i++ {
		j := end - i
		if j < 0 {
			j = 0
		}
		copy(s[i*n:(i+1)*n], mat.Col(nil, 0, t.Step(j).Obs()))
	}

	off := m.k * n
	for i := 0; i < m.k-1; i++ {
		j := end - 1 - i
		if j < 0 {
			break
		}
		copy(s[off+i*c:off+(i+1)*c], mat.Col(nil, 0, t.Step(j).Ctrl()))
	}

	return s
}

// Train fits ARX coefficients to trajs by least squares.
func (m *Model) Train(trajs []*mpc.Trajectory) error {
	if err := sysid.CheckTrajs(m.sys, trajs); err != nil {
		return err
	}

	n := m.sys.ObsDim()

	var xs, ys [][]float64
	for _, t := range trajs {
		for j := 0; j < t.Len()-1; j++ {
			s := m.state(t, j)
			// regressors: observations, current control, past controls
			x := make([]float64, 0, len(s)+m.sys.CtrlDim())
			x = append(x, s[:m.k*n]...)
			x = append(x, mat.Col(nil, 0, t.Step(j).Ctrl())...)
			x = append(x, s[m.k*n:]...)
			xs = append(xs, x)
			ys = append(ys, mat.Col(nil, 0, t.Step(j+1).Obs()))
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

	A, B := m.stateSpace(W)
	d, err := sim.NewDiscrete(A, B)
	if err != nil {
		return fmt.Errorf("%w: %v", mpc.ErrTraining, err)
	}
	m.d = d

	return nil
}

// stateSpace builds state space matrices from regression coefficients W.
func (m *Model) stateSpace(W *mat.Dense) (*mat.Dense, *mat.Dense) {
	n, c, k := m.sys.ObsDim(), m.sys.CtrlDim(), m.k
	sd := m.StateDim()
	ko := k * n

	A := mat.NewDense(sd, sd, nil)
	B := mat.NewDense(sd, c, nil)

	// next observation
	A.Slice(0, n, 0, ko).(*mat.Dense).Copy(W.Slice(0, ko, 0, n).T())
	B.Slice(0, n, 0, c).(*mat.Dense).Copy(W.Slice(ko, ko+c, 0, n).T())
	if k > 1 {
		A.Slice(0, n, ko, sd).(*mat.Dense).Copy(W.Slice(ko+c, ko+k*c, 0, n).T())
	}

	// shift observation history
	for i := 0; i < k-1; i++ {
		for r := 0; r < n; r++ {
			A.Set((i+1)*n+r, i*n+r, 1.0)
		}
	}

	// shift control history
	if k > 1 {
		for r := 0; r < c; r++ {
			B.Set(ko+r, r, 1.0)
		}
	}
	for i := 0; i < k-2; i++ {
		for r := 0; r < c; r++ {
			A.Set(ko+(i+1)*c+r, ko+i*c+r, 1.0)
		}
	}

	return A, B
}

// TrajToState returns ARX state of trajectory prefix t.
func (m *Model) TrajToState(t *mpc.Trajectory) (mat.Vector, error) {
	if err := sysid.CheckPrefix(m.sys, t); err != nil {
		return nil, err
	}

	return mat.NewVecDense(m.StateDim(), m.state(t, t.Len()-1)), nil
}

// UpdateState returns state with its latest observation replaced by obs.
func (m *Model) UpdateState(state, obs mat.Vector) (mat.Vector, error) {
	if err := sysid.CheckVec(state, m.StateDim(), "state"); err != nil {
		return nil, err
	}

	if err := sysid.CheckVec(obs, m.sys.ObsDim(), "observation"); err != nil {
		return nil, err
	}

	s := mat.VecDenseCopyOf(state)
	s.SliceVec(0, m.sys.ObsDim()).(*mat.VecDense).CopyVec(obs)

	return s, nil
}

// Pred returns predicted observation and next ARX state.
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

	obs := mat.VecDenseCopyOf(next.SliceVec(0, m.sys.ObsDim()))

	return obs, next, nil
}

// ToLinear returns the state space form of the model.
func (m *Model) ToLinear() (*mpc.LinearSystem, error) {
	if m.d == nil {
		return nil, fmt.Errorf("%w: model not trained", mpc.ErrTraining)
	}

	n := m.sys.ObsDim()
	C := mat.NewDense(n, m.StateDim(), nil)
	for i := 0; i < n; i++ {
		C.Set(i, i, 1.0)
	}

	return mpc.NewLinearSystem(m.d.A, m.d.B, C)
}

// Factory creates ARX models.
type Factory struct{}

// ConfigSpace returns ARX configuration space.
func (Factory) ConfigSpace(*mpc.System) *config.Space {
	return config.NewSpace(config.Int("history", 1, MaxHistory, DefaultHistory))
}

// New creates new ARX model configured by cfg.
func (Factory) New(sys *mpc.System, cfg *config.Configuration) (mpc.Model, error) {
	k, err := cfg.Int("history")
	if err != nil {
		return nil, err
	}

	m, err := New(sys, k)
	if err != nil {
		return nil, err
	}

	return m, nil
}
