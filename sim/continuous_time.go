package sim

import (
	"fmt"

	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// c2dSteps is the number of quadrature intervals used when A is singular.
const c2dSteps = 100

// Continuous is a basic model of a linear, continuous-time, dynamical system
type Continuous struct {
	System
}

// NewContinuous creates a linear continuous-time model based on the control theory equations.
//
//	dx/dt = A*x + B*u
func NewContinuous(A, B mat.Matrix) (*Continuous, error) {
	sys, err := newSystem(A, B)
	if err != nil {
		return nil, err
	}

	return &Continuous{System: sys}, nil
}

// ToDiscrete creates a discrete-time model from a continuous time model
// using zero order hold with Ts as the sampling time.
//
//	Ad = exp(A*Ts)
//	Bd = integrate(exp(A*t), 0, Ts) * B
func (ct *Continuous) ToDiscrete(Ts float64) (*Discrete, error) {
	if Ts <= 0 {
		return nil, fmt.Errorf("invalid sampling time: %v", Ts)
	}

	nx, nu := ct.Dims()
	Ad := mat.NewDense(nx, nx, nil)
	Ad.Scale(Ts, ct.A)
	Ad.Exp(Ad)

	Bd := mat.NewDense(nx, nu, nil)
	eye, err := matrix.NewDenseValIdentity(nx, 1.0)
	if err != nil {
		return nil, err
	}

	// Given A is not singular: Bd = (exp(A*Ts) - I)*inv(A)*B
	Ainv := mat.NewDense(nx, nx, nil)
	if err := Ainv.Inverse(ct.A); err == nil {
		aux := mat.NewDense(nx, nx, nil)
		aux.Sub(Ad, eye)
		aux.Mul(aux, Ainv)
		Bd.Mul(aux, ct.B)

		return NewDiscrete(Ad, Bd)
	}

	// A is singular: integrate exp(A*t) with the trapezoidal rule
	dt := Ts / c2dSteps
	sum := mat.NewDense(nx, nx, nil)
	aux := mat.NewDense(nx, nx, nil)
	for i := 0; i <= c2dSteps; i++ {
		aux.Scale(dt*float64(i), ct.A)
		aux.Exp(aux)
		w := dt
		if i == 0 || i == c2dSteps {
			w = dt / 2
		}
		aux.Scale(w, aux)
		sum.Add(sum, aux)
	}
	Bd.Mul(sum, ct.B)

	return NewDiscrete(Ad, Bd)
}
