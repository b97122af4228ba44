package mpc

import (
	"fmt"

	"github.com/milosgajdos/go-autompc/config"
	"gonum.org/v1/gonum/mat"
)

// Model is a predictive model of system dynamics.
// Model state is a fixed size vector summarizing enough history for prediction.
type Model interface {
	// System returns model system
	System() *System
	// StateDim returns model state dimension
	StateDim() int
	// Train fits model parameters to trajectories
	Train([]*Trajectory) error
	// TrajToState returns model state of a non-empty trajectory prefix
	TrajToState(*Trajectory) (mat.Vector, error)
	// UpdateState replaces the current observation encoded in state
	UpdateState(state, obs mat.Vector) (mat.Vector, error)
	// Pred predicts next observation and next model state given state and control
	Pred(state, ctrl mat.Vector) (obs *mat.VecDense, next mat.Vector, err error)
}

// DiffModel is a Model which can linearize its prediction.
type DiffModel interface {
	// Model is a predictive model
	Model
	// PredDiff predicts next observation and state along with their Jacobians
	PredDiff(state, ctrl mat.Vector) (*DiffPred, error)
}

// LinearModel is a Model whose state evolution is globally linear.
type LinearModel interface {
	// Model is a predictive model
	Model
	// ToLinear returns exact linear system of the model
	ToLinear() (*LinearSystem, error)
}

// DiffPred is a differentiable one-step prediction.
type DiffPred struct {
	// Obs is predicted observation
	Obs *mat.VecDense
	// State is predicted model state
	State *mat.VecDense
	// StateJac is Jacobian of the predicted state w.r.t. the current state
	StateJac *mat.Dense
	// CtrlJac is Jacobian of the predicted state w.r.t. the control
	CtrlJac *mat.Dense
	// ObsJac is Jacobian of the predicted observation w.r.t. the predicted state
	ObsJac *mat.Dense
}

// ObsStateJac returns Jacobian of the predicted observation w.r.t. the current state.
func (d *DiffPred) ObsStateJac() *mat.Dense {
	j := &mat.Dense{}
	j.Mul(d.ObsJac, d.StateJac)

	return j
}

// ObsCtrlJac returns Jacobian of the predicted observation w.r.t. the control.
func (d *DiffPred) ObsCtrlJac() *mat.Dense {
	j := &mat.Dense{}
	j.Mul(d.ObsJac, d.CtrlJac)

	return j
}

// LinearSystem is a linear model in model state coordinates:
//
//	x[k+1] = A*x[k] + B*u[k]
//	y[k]   = C*x[k]
type LinearSystem struct {
	// A is state matrix
	A *mat.Dense
	// B is control matrix
	B *mat.Dense
	// C maps model state to observation
	C *mat.Dense
}

// NewLinearSystem creates new LinearSystem and returns it.
// It returns error if the matrices have incompatible dimensions.
func NewLinearSystem(A, B, C mat.Matrix) (*LinearSystem, error) {
	ar, ac := A.Dims()
	br, _ := B.Dims()
	_, cc := C.Dims()
	if ar != ac || br != ar || cc != ar {
		return nil, fmt.Errorf("%w: invalid linear system: A [%d x %d], B rows %d, C cols %d", ErrShape, ar, ac, br, cc)
	}

	return &LinearSystem{
		A: mat.DenseCopyOf(A),
		B: mat.DenseCopyOf(B),
		C: mat.DenseCopyOf(C),
	}, nil
}

// Dims returns state and control dimensions of the system.
func (l *LinearSystem) Dims() (nx, nu int) {
	nx, _ = l.A.Dims()
	_, nu = l.B.Dims()

	return nx, nu
}

// StateCost maps observation cost weight q to model state coordinates: C'*q*C.
func (l *LinearSystem) StateCost(q mat.Symmetric) *mat.SymDense {
	nx, _ := l.Dims()
	cs := mat.NewSymDense(nx, nil)

	qc := &mat.Dense{}
	qc.Mul(q, l.C)
	full := &mat.Dense{}
	full.Mul(l.C.T(), qc)

	for i := 0; i < nx; i++ {
		for j := i; j < nx; j++ {
			cs.SetSym(i, j, 0.5*(full.At(i, j)+full.At(j, i)))
		}
	}

	return cs
}

// IsDifferentiable returns true if m implements DiffModel.
func IsDifferentiable(m Model) bool {
	_, ok := m.(DiffModel)
	return ok
}

// IsLinear returns true if m implements LinearModel.
func IsLinear(m Model) bool {
	_, ok := m.(LinearModel)
	return ok
}

// PredDiff returns differentiable prediction of model m.
// It returns ErrUnsupported if m is not a DiffModel.
func PredDiff(m Model, state, ctrl mat.Vector) (*DiffPred, error) {
	dm, ok := m.(DiffModel)
	if !ok {
		return nil, fmt.Errorf("%w: %T does not implement PredDiff", ErrUnsupported, m)
	}

	return dm.PredDiff(state, ctrl)
}

// ToLinear returns exact linear system of model m.
// It returns ErrUnsupported if m is not a LinearModel.
func ToLinear(m Model) (*LinearSystem, error) {
	lm, ok := m.(LinearModel)
	if !ok {
		return nil, fmt.Errorf("%w: %T does not implement ToLinear", ErrUnsupported, m)
	}

	return lm.ToLinear()
}

// Controller computes control inputs from observations.
// Controller state is a fixed size vector carried between Run calls; it may be empty.
type Controller interface {
	// StateDim returns controller state dimension
	StateDim() int
	// TrajToState returns controller state of a non-empty trajectory prefix
	TrajToState(*Trajectory) (mat.Vector, error)
	// Run returns control and next controller state given state and new observation
	Run(state, obs mat.Vector) (ctrl *mat.VecDense, next mat.Vector, err error)
}

// ModelFactory creates models of a single variant.
type ModelFactory interface {
	// ConfigSpace returns hyperparameter space of the model
	ConfigSpace(*System) *config.Space
	// New creates new model
	New(*System, *config.Configuration) (Model, error)
}

// ControllerFactory creates controllers of a single variant.
type ControllerFactory interface {
	// ConfigSpace returns hyperparameter space of the controller
	ConfigSpace(*System, *Task, Model) *config.Space
	// IsCompatible reports whether the controller can be built for the given triple
	IsCompatible(*System, *Task, Model) bool
	// New creates new controller
	New(*System, *Task, Model, *config.Configuration) (Controller, error)
}

// MakeModel validates cfg against the factory space and creates new Model.
// A nil cfg is replaced by the space default.
func MakeModel(sys *System, f ModelFactory, cfg *config.Configuration) (Model, error) {
	space := f.ConfigSpace(sys)
	if cfg == nil {
		cfg = space.Default()
	}

	if err := space.Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return f.New(sys, cfg)
}

// MakeController validates cfg and compatibility of the controller and creates new Controller.
// A nil cfg is replaced by the space default.
func MakeController(sys *System, task *Task, m Model, f ControllerFactory, cfg *config.Configuration) (Controller, error) {
	if !f.IsCompatible(sys, task, m) {
		return nil, fmt.Errorf("%w: %T can not control %T", ErrIncompatible, f, m)
	}

	space := f.ConfigSpace(sys, task, m)
	if cfg == nil {
		cfg = space.Default()
	}

	if err := space.Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return f.New(sys, task, m, cfg)
}
