package mpc

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Trajectory is a time ordered sequence of observation and control vectors of a System.
// Observations and controls are stored row-major: one row per time step.
// Trajectory is not safe for concurrent use.
type Trajectory struct {
	sys  *System
	size int
	// obs stores size x ObsDim observations
	obs []float64
	// ctrl stores size x CtrlDim controls
	ctrl []float64
}

// Zeros creates new Trajectory of system sys with n zero filled steps and returns it.
// It returns error if sys is nil or n is negative.
func Zeros(sys *System, n int) (*Trajectory, error) {
	if sys == nil {
		return nil, fmt.Errorf("%w: nil system", ErrShape)
	}

	if n < 0 {
		return nil, fmt.Errorf("%w: invalid trajectory length: %d", ErrShape, n)
	}

	return &Trajectory{
		sys:  sys,
		size: n,
		obs:  make([]float64, n*sys.ObsDim()),
		ctrl: make([]float64, n*sys.CtrlDim()),
	}, nil
}

// NewTrajectory creates new Trajectory from obs and ctrl matrices and returns it.
// Each row of obs and ctrl holds one time step. The matrices are copied.
// It returns error if the matrices do not match the system dimensions or each other.
func NewTrajectory(sys *System, obs, ctrl mat.Matrix) (*Trajectory, error) {
	if sys == nil {
		return nil, fmt.Errorf("%w: nil system", ErrShape)
	}

	ro, co := obs.Dims()
	rc, cc := ctrl.Dims()
	if co != sys.ObsDim() || cc != sys.CtrlDim() {
		return nil, fmt.Errorf("%w: invalid trajectory columns: obs %d != %d or ctrl %d != %d",
			ErrShape, co, sys.ObsDim(), cc, sys.CtrlDim())
	}

	if ro != rc {
		return nil, fmt.Errorf("%w: obs and ctrl step count differ: %d != %d", ErrShape, ro, rc)
	}

	t, err := Zeros(sys, ro)
	if err != nil {
		return nil, err
	}

	for i := 0; i < ro; i++ {
		mat.Row(t.obs[i*co:(i+1)*co], i, obs)
		mat.Row(t.ctrl[i*cc:(i+1)*cc], i, ctrl)
	}

	return t, nil
}

// Extend returns a new Trajectory holding all steps of t followed by the steps in obs and ctrl.
// t is left unchanged and shares no storage with the returned trajectory.
// It returns error if t is nil, obs and ctrl have different lengths or any vector does not match the system.
func Extend(t *Trajectory, obs, ctrl []mat.Vector) (*Trajectory, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil trajectory", ErrShape)
	}

	if len(obs) != len(ctrl) {
		return nil, fmt.Errorf("%w: extend lengths differ: obs %d != ctrl %d", ErrShape, len(obs), len(ctrl))
	}

	od, cd := t.sys.ObsDim(), t.sys.CtrlDim()
	for i := range obs {
		if obs[i] == nil || obs[i].Len() != od {
			return nil, fmt.Errorf("%w: invalid observation vector at %d", ErrShape, i)
		}
		if ctrl[i] == nil || ctrl[i].Len() != cd {
			return nil, fmt.Errorf("%w: invalid control vector at %d", ErrShape, i)
		}
	}

	ext, err := Zeros(t.sys, t.size+len(obs))
	if err != nil {
		return nil, err
	}
	copy(ext.obs, t.obs)
	copy(ext.ctrl, t.ctrl)

	for i := range obs {
		s := ext.Step(t.size + i)
		s.Obs().CopyVec(obs[i])
		s.Ctrl().CopyVec(ctrl[i])
	}

	return ext, nil
}

// System returns trajectory system.
func (t *Trajectory) System() *System { return t.sys }

// Len returns the number of steps in the trajectory.
func (t *Trajectory) Len() int { return t.size }

// index resolves negative step indices and panics if i is out of range.
func (t *Trajectory) index(i int) int {
	if i < 0 {
		i += t.size
	}
	if i < 0 || i >= t.size {
		panic(fmt.Sprintf("mpc: step index out of range: %d [size %d]", i, t.size))
	}

	return i
}

// Step returns a view of step i. Negative i counts from the end of the trajectory.
// Writes through the view mutate the trajectory.
// It panics if i is out of range.
func (t *Trajectory) Step(i int) *Step {
	return &Step{t: t, i: t.index(i)}
}

// At returns the value of the observation or control field name at step i.
// Observation fields are looked up before control fields.
// It panics if i is out of range.
func (t *Trajectory) At(i int, name string) (float64, error) {
	p, err := t.field(t.index(i), name)
	if err != nil {
		return 0, err
	}

	return *p, nil
}

// Set sets the observation or control field name at step i to v.
// It panics if i is out of range.
func (t *Trajectory) Set(i int, name string, v float64) error {
	p, err := t.field(t.index(i), name)
	if err != nil {
		return err
	}
	*p = v

	return nil
}

func (t *Trajectory) field(i int, name string) (*float64, error) {
	if j, ok := t.sys.ObsIndex(name); ok {
		return &t.obs[i*t.sys.ObsDim()+j], nil
	}

	if j, ok := t.sys.CtrlIndex(name); ok {
		return &t.ctrl[i*t.sys.CtrlDim()+j], nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Slice returns a copy of the steps [a, b) of the trajectory.
// It returns error if the bounds are invalid.
func (t *Trajectory) Slice(a, b int) (*Trajectory, error) {
	if a < 0 || b < a || b > t.size {
		return nil, fmt.Errorf("%w: invalid slice bounds [%d:%d] of %d", ErrShape, a, b, t.size)
	}

	s, err := Zeros(t.sys, b-a)
	if err != nil {
		return nil, err
	}

	od, cd := t.sys.ObsDim(), t.sys.CtrlDim()
	copy(s.obs, t.obs[a*od:b*od])
	copy(s.ctrl, t.ctrl[a*cd:b*cd])

	return s, nil
}

// Clone returns a deep copy of the trajectory.
func (t *Trajectory) Clone() *Trajectory {
	c, _ := t.Slice(0, t.size)
	return c
}

// Obs returns a copy of all observations: one row per step.
// It returns nil for an empty trajectory.
func (t *Trajectory) Obs() *mat.Dense {
	if t.size == 0 {
		return nil
	}

	return mat.NewDense(t.size, t.sys.ObsDim(), append([]float64(nil), t.obs...))
}

// Ctrl returns a copy of all controls: one row per step.
// It returns nil for an empty trajectory.
func (t *Trajectory) Ctrl() *mat.Dense {
	if t.size == 0 {
		return nil
	}

	return mat.NewDense(t.size, t.sys.CtrlDim(), append([]float64(nil), t.ctrl...))
}

// ObsField returns a copy of all values of the observation field name.
func (t *Trajectory) ObsField(name string) ([]float64, error) {
	j, ok := t.sys.ObsIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: observation %q", ErrUnknownField, name)
	}

	return column(t.obs, t.size, t.sys.ObsDim(), j), nil
}

// CtrlField returns a copy of all values of the control field name.
func (t *Trajectory) CtrlField(name string) ([]float64, error) {
	j, ok := t.sys.CtrlIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: control %q", ErrUnknownField, name)
	}

	return column(t.ctrl, t.size, t.sys.CtrlDim(), j), nil
}

func column(data []float64, rows, cols, j int) []float64 {
	col := make([]float64, rows)
	for i := range col {
		col[i] = data[i*cols+j]
	}

	return col
}

// Step is a mutable view of a single trajectory step.
// A Step borrows its trajectory storage: writes are visible through the trajectory.
type Step struct {
	t *Trajectory
	i int
}

// Index returns the step index within its trajectory.
func (s *Step) Index() int { return s.i }

// Obs returns the step observation vector. The vector shares storage with the trajectory.
func (s *Step) Obs() *mat.VecDense {
	od := s.t.sys.ObsDim()
	return mat.NewVecDense(od, s.t.obs[s.i*od:(s.i+1)*od])
}

// Ctrl returns the step control vector. The vector shares storage with the trajectory.
func (s *Step) Ctrl() *mat.VecDense {
	cd := s.t.sys.CtrlDim()
	return mat.NewVecDense(cd, s.t.ctrl[s.i*cd:(s.i+1)*cd])
}

// SetObs copies obs into the step observation.
// It returns error if obs length does not match the system.
func (s *Step) SetObs(obs []float64) error {
	od := s.t.sys.ObsDim()
	if len(obs) != od {
		return fmt.Errorf("%w: invalid observation length: %d != %d", ErrShape, len(obs), od)
	}
	copy(s.t.obs[s.i*od:(s.i+1)*od], obs)

	return nil
}

// SetCtrl copies ctrl into the step control.
// It returns error if ctrl length does not match the system.
func (s *Step) SetCtrl(ctrl []float64) error {
	cd := s.t.sys.CtrlDim()
	if len(ctrl) != cd {
		return fmt.Errorf("%w: invalid control length: %d != %d", ErrShape, len(ctrl), cd)
	}
	copy(s.t.ctrl[s.i*cd:(s.i+1)*cd], ctrl)

	return nil
}

// At returns the value of field name of this step.
func (s *Step) At(name string) (float64, error) {
	return s.t.At(s.i, name)
}

// Set sets field name of this step to v.
func (s *Step) Set(name string, v float64) error {
	return s.t.Set(s.i, name, v)
}
