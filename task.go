package mpc

import (
	"fmt"

	"github.com/milosgajdos/go-autompc/matrix"
	"gonum.org/v1/gonum/mat"
)

// Task is a quadratic control objective of a System.
//
//	J = sum_k (y[k]-g)' Q (y[k]-g) + u[k]' R u[k] + (y[N]-g)' F (y[N]-g)
//
// where y are observations, u are controls and g is the goal observation.
type Task struct {
	sys *System
	// q is observation cost weight
	q *mat.SymDense
	// r is control cost weight
	r *mat.SymDense
	// f is terminal observation cost weight
	f *mat.SymDense
	// goal is the goal observation
	goal *mat.VecDense
}

// NewTask creates new Task for system sys and returns it.
// The task has identity Q and R weights and a zero goal until configured.
func NewTask(sys *System) (*Task, error) {
	if sys == nil {
		return nil, fmt.Errorf("invalid system: %v", sys)
	}

	return &Task{
		sys:  sys,
		q:    eyeSym(sys.ObsDim()),
		r:    eyeSym(sys.CtrlDim()),
		goal: mat.NewVecDense(sys.ObsDim(), nil),
	}, nil
}

func eyeSym(n int) *mat.SymDense {
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		s.SetSym(i, i, 1.0)
	}

	return s
}

// System returns task system.
func (t *Task) System() *System { return t.sys }

// SetQuadCost sets observation weight Q and control weight R.
// It returns error if Q is not ObsDim x ObsDim symmetric positive semi-definite
// or if R is not CtrlDim x CtrlDim symmetric positive definite.
func (t *Task) SetQuadCost(Q, R mat.Matrix) error {
	q, err := costWeight(Q, t.sys.ObsDim(), "Q")
	if err != nil {
		return err
	}

	if !matrix.IsPSD(q, matrix.DefaultTol) {
		return fmt.Errorf("%w: Q is not positive semi-definite", ErrInvalidCost)
	}

	r, err := costWeight(R, t.sys.CtrlDim(), "R")
	if err != nil {
		return err
	}

	if !matrix.IsPD(r) {
		return fmt.Errorf("%w: R is not positive definite", ErrInvalidCost)
	}

	t.q, t.r = q, r

	return nil
}

// SetTermCost sets terminal observation weight F.
// It returns error if F is not ObsDim x ObsDim symmetric positive semi-definite.
func (t *Task) SetTermCost(F mat.Matrix) error {
	f, err := costWeight(F, t.sys.ObsDim(), "F")
	if err != nil {
		return err
	}

	if !matrix.IsPSD(f, matrix.DefaultTol) {
		return fmt.Errorf("%w: F is not positive semi-definite", ErrInvalidCost)
	}
	t.f = f

	return nil
}

func costWeight(m mat.Matrix, n int, name string) (*mat.SymDense, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: %s is nil", ErrInvalidCost, name)
	}

	r, c := m.Dims()
	if r != n || c != n {
		return nil, fmt.Errorf("%w: invalid %s dimensions: [%d x %d] != [%d x %d]", ErrShape, name, r, c, n, n)
	}

	if !matrix.IsSymmetric(m, matrix.DefaultTol) {
		return nil, fmt.Errorf("%w: %s is not symmetric", ErrInvalidCost, name)
	}

	return matrix.Sym(m), nil
}

// SetGoal sets goal observation.
// It returns error if goal length does not match the system.
func (t *Task) SetGoal(goal mat.Vector) error {
	if goal == nil || goal.Len() != t.sys.ObsDim() {
		return fmt.Errorf("%w: invalid goal vector", ErrShape)
	}

	t.goal = mat.VecDenseCopyOf(goal)

	return nil
}

// Q returns a copy of the observation weight.
func (t *Task) Q() *mat.SymDense {
	return copySym(t.q)
}

// R returns a copy of the control weight.
func (t *Task) R() *mat.SymDense {
	return copySym(t.r)
}

// F returns a copy of the terminal weight. It defaults to Q.
func (t *Task) F() *mat.SymDense {
	if t.f == nil {
		return copySym(t.q)
	}

	return copySym(t.f)
}

// Goal returns a copy of the goal observation.
func (t *Task) Goal() *mat.VecDense {
	return mat.VecDenseCopyOf(t.goal)
}

func copySym(s *mat.SymDense) *mat.SymDense {
	c := mat.NewSymDense(s.SymmetricDim(), nil)
	c.CopySym(s)

	return c
}

// Cost returns quadratic cost of trajectory tr.
// The last step is weighted by F and its control is ignored.
// It returns error if tr does not belong to the task system.
func (t *Task) Cost(tr *Trajectory) (float64, error) {
	if tr.System() != t.sys {
		return 0, fmt.Errorf("%w: trajectory system differs from task system", ErrShape)
	}

	var cost float64
	e := mat.NewVecDense(t.sys.ObsDim(), nil)
	for i := 0; i < tr.Len(); i++ {
		s := tr.Step(i)
		e.SubVec(s.Obs(), t.goal)
		if i == tr.Len()-1 {
			cost += mat.Inner(e, t.F(), e)
			break
		}
		cost += mat.Inner(e, t.q, e)
		cost += mat.Inner(s.Ctrl(), t.r, s.Ctrl())
	}

	return cost, nil
}
