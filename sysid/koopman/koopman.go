// Package koopman implements a Koopman operator model of system dynamics.
//
// Observations are lifted into a feature space through a set of basis functions
// and the lifted state is propagated linearly:
//
//	z[k+1] = A*z[k] + B*u[k]
//	y[k]   = C*z[k]
//
// The lifted state always starts with the observation itself, so C selects
// its first ObsDim components.
package koopman

import (
	"fmt"
	"math"

	mpc "github.com/milosgajdos/go-autompc"
	"github.com/milosgajdos/go-autompc/config"
	"github.com/milosgajdos/go-autompc/sim"
	"github.com/milosgajdos/go-autompc/sysid"
	"gonum.org/v1/gonum/mat"
)

// Method is a regression method used to fit the Koopman operator.
type Method string

const (
	// LstSq is ordinary least squares
	LstSq Method = "lstsq"
	// Ridge is L2 regularized least squares
	Ridge Method = "ridge"
)

// Options configure Koopman model basis and regression.
type Options struct {
	// Trig adds sin and cos of every observation
	Trig bool
	// Poly adds powers of every observation
	Poly bool
	// Degree is the highest power added by Poly
	Degree int
	// Method is the regression method
	Method Method
	// Alpha is the Ridge regularization
	Alpha float64
}

// Model is Koopman model.
type Model struct {
	sys  *mpc.System
	opts Options
	d    *sim.Discrete
}

// New creates new untrained Koopman model of system sys.
func New(sys *mpc.System, opts Options) (*Model, error) {
	if sys == nil {
		return nil, fmt.Errorf("invalid system: %v", sys)
	}

	if opts.Poly && opts.Degree < 2 {
		return nil, fmt.Errorf("invalid polynomial degree: %d", opts.Degree)
	}

	switch opts.Method {
	case LstSq:
	case Ridge:
		if opts.Alpha < 0 {
			return nil, fmt.Errorf("invalid ridge regularization: %v", opts.Alpha)
		}
	default:
		return nil, fmt.Errorf("unsupported regression method: %q", opts.Method)
	}

	return &Model{sys: sys, opts: opts}, nil
}

// System returns model system.
func (m *Model) System() *mpc.System { return m.sys }

// StateDim returns lifted state dimension.
func (m *Model) StateDim() int {
	n := m.sys.ObsDim()
	dim := n
	if m.opts.Trig {
		dim += 2 * n
	}

	if m.opts.Poly {
		dim += (m.opts.Degree - 1) * n
	}

	return dim
}

// Lift returns observation obs lifted through the model basis.
func (m *Model) Lift(obs mat.Vector) *mat.VecDense {
	n := obs.Len()
	z := make([]float64, 0, m.StateDim())

	for i := 0; i < n; i++ {
		z = append(z, obs.AtVec(i))
	}

	if m.opts.Trig {
		for i := 0; i < n; i++ {
			z = append(z, math.Sin(obs.AtVec(i)))
		}
		for i := 0; i < n; i++ {
			z = append(z, math.Cos(obs.AtVec(i)))
		}
	}

	if m.opts.Poly {
		for p := 2; p <= m.opts.Degree; p++ {
			for i := 0; i < n; i++ {
				z = append(z, math.Pow(obs.AtVec(i), float64(p)))
			}
		}
	}

	return mat.NewVecDense(len(z), z)
}

// Train fits the Koopman operator to lifted observation pairs of trajs.
func (m *Model) Train(trajs []*mpc.Trajectory) error {
	if err := sysid.CheckTrajs(m.sys, trajs); err != nil {
		return err
	}

	var xs, ys [][]float64
	for _, t := range trajs {
		for k := 0; k < t.Len()-1; k++ {
			s := t.Step(k)
			x := append(mat.Col(nil, 0, m.Lift(s.Obs())), mat.Col(nil, 0, s.Ctrl())...)
			xs = append(xs, x)
			ys = append(ys, mat.Col(nil, 0, m.Lift(t.Step(k+1).Obs())))
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

	alpha := 0.0
	if m.opts.Method == Ridge {
		alpha = m.opts.Alpha
	}

	W, err := sysid.LeastSquares(X, Y, alpha)
	if err != nil {
		return err
	}

	sd, c := m.StateDim(), m.sys.CtrlDim()
	A := mat.DenseCopyOf(W.Slice(0, sd, 0, sd).T())
	B := mat.DenseCopyOf(W.Slice(sd, sd+c, 0, sd).T())

	d, err := sim.NewDiscrete(A, B)
	if err != nil {
		return fmt.Errorf("%w: %v", mpc.ErrTraining, err)
	}
	m.d = d

	return nil
}

// TrajToState returns lifted last observation of t.
func (m *Model) TrajToState(t *mpc.Trajectory) (mat.Vector, error) {
	obs, err := sysid.LastObs(m.sys, t)
	if err != nil {
		return nil, err
	}

	return m.Lift(obs), nil
}

// UpdateState returns lifted obs. Lifted state depends on the latest observation only.
func (m *Model) UpdateState(state, obs mat.Vector) (mat.Vector, error) {
	if err := sysid.CheckVec(state, m.StateDim(), "state"); err != nil {
		return nil, err
	}

	if err := sysid.CheckVec(obs, m.sys.ObsDim(), "observation"); err != nil {
		return nil, err
	}

	return m.Lift(obs), nil
}

// Pred returns predicted observation and next lifted state.
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

	return mat.VecDenseCopyOf(next.SliceVec(0, m.sys.ObsDim())), next, nil
}

func (m *Model) obsMatrix() *mat.Dense {
	n := m.sys.ObsDim()
	C := mat.NewDense(n, m.StateDim(), nil)
	for i := 0; i < n; i++ {
		C.Set(i, i, 1.0)
	}

	return C
}

// PredDiff returns prediction along with the Koopman operator matrices as its Jacobians.
func (m *Model) PredDiff(state, ctrl mat.Vector) (*mpc.DiffPred, error) {
	obs, next, err := m.Pred(state, ctrl)
	if err != nil {
		return nil, err
	}

	return &mpc.DiffPred{
		Obs:      obs,
		State:    next.(*mat.VecDense),
		StateJac: mat.DenseCopyOf(m.d.A),
		CtrlJac:  mat.DenseCopyOf(m.d.B),
		ObsJac:   m.obsMatrix(),
	}, nil
}

// ToLinear returns the Koopman operator as a linear system.
func (m *Model) ToLinear() (*mpc.LinearSystem, error) {
	if m.d == nil {
		return nil, fmt.Errorf("%w: model not trained", mpc.ErrTraining)
	}

	return mpc.NewLinearSystem(m.d.A, m.d.B, m.obsMatrix())
}

// Factory creates Koopman models.
type Factory struct{}

// ConfigSpace returns Koopman configuration space.
func (Factory) ConfigSpace(*mpc.System) *config.Space {
	s := config.NewSpace(
		config.Categorical("trig_basis", []string{"true", "false"}, "false"),
		config.Categorical("poly_basis", []string{"true", "false"}, "false"),
		config.Int("poly_degree", 2, 8, 3),
		config.Categorical("method", []string{string(LstSq), string(Ridge)}, string(LstSq)),
		config.Float("alpha", 0, 10, 1.0),
	)

	for _, c := range []config.EqualsCondition{
		{Child: "poly_degree", Parent: "poly_basis", Value: "true"},
		{Child: "alpha", Parent: "method", Value: string(Ridge)},
	} {
		if err := s.AddCondition(c); err != nil {
			panic(err)
		}
	}

	return s
}

// New creates new Koopman model configured by cfg.
func (Factory) New(sys *mpc.System, cfg *config.Configuration) (mpc.Model, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}

	m, err := New(sys, opts)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func options(cfg *config.Configuration) (Options, error) {
	var opts Options

	trig, err := cfg.String("trig_basis")
	if err != nil {
		return opts, err
	}
	opts.Trig = trig == "true"

	poly, err := cfg.String("poly_basis")
	if err != nil {
		return opts, err
	}
	opts.Poly = poly == "true"

	if opts.Poly {
		if opts.Degree, err = cfg.Int("poly_degree"); err != nil {
			return opts, err
		}
	}

	method, err := cfg.String("method")
	if err != nil {
		return opts, err
	}
	opts.Method = Method(method)

	if opts.Method == Ridge {
		if opts.Alpha, err = cfg.Float("alpha"); err != nil {
			return opts, err
		}
	}

	return opts, nil
}
