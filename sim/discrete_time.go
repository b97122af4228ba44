package sim

import "gonum.org/v1/gonum/mat"

// Discrete is a basic model of a linear, discrete-time, dynamical system
type Discrete struct {
	System
}

// NewDiscrete creates a linear discrete-time model based on the control theory equations.
//
//	x[n+1] = A*x[n] + B*u[n]
func NewDiscrete(A, B mat.Matrix) (*Discrete, error) {
	sys, err := newSystem(A, B)
	if err != nil {
		return nil, err
	}

	return &Discrete{System: sys}, nil
}

// Step returns the next state of the system: A*x + B*u.
func (d *Discrete) Step(x, u mat.Vector) (*mat.VecDense, error) {
	if err := d.check(x, u); err != nil {
		return nil, err
	}

	nx, _ := d.Dims()
	out := mat.NewVecDense(nx, nil)
	out.MulVec(d.A, x)

	outU := mat.NewVecDense(nx, nil)
	outU.MulVec(d.B, u)
	out.AddVec(out, outU)

	return out, nil
}
