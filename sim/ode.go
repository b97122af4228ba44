package sim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepFunc returns the state following x when control u is applied.
type StepFunc func(x, u []float64) []float64

// DerivFunc returns time derivative of state x when control u is applied.
type DerivFunc func(x, u []float64) []float64

// Func is a Plant defined by a discrete-time step function.
type Func struct {
	f      StepFunc
	nx, nu int
}

// NewFunc creates new Func plant with state dimension nx and control dimension nu.
func NewFunc(f StepFunc, nx, nu int) (*Func, error) {
	if f == nil {
		return nil, fmt.Errorf("invalid step function: %v", f)
	}

	if nx <= 0 || nu <= 0 {
		return nil, fmt.Errorf("invalid plant dimensions: nx=%d, nu=%d", nx, nu)
	}

	return &Func{f: f, nx: nx, nu: nu}, nil
}

// Dims returns state and control dimensions.
func (p *Func) Dims() (nx, nu int) { return p.nx, p.nu }

// Step returns the state following x when control u is applied.
func (p *Func) Step(x, u mat.Vector) (*mat.VecDense, error) {
	xs, us, err := unpack(x, u, p.nx, p.nu)
	if err != nil {
		return nil, err
	}

	next := p.f(xs, us)
	if len(next) != p.nx {
		return nil, fmt.Errorf("invalid step function output length: %d", len(next))
	}

	return mat.NewVecDense(p.nx, next), nil
}

// ODE is a Plant which integrates continuous-time dynamics
// over a fixed timestep with the classic 4th order Runge-Kutta method.
type ODE struct {
	f      DerivFunc
	nx, nu int
	dt     float64

	k1, k2, k3, k4 []float64
	scratch        []float64
}

// NewODE creates new ODE plant integrating f over timestep dt.
func NewODE(f DerivFunc, nx, nu int, dt float64) (*ODE, error) {
	if f == nil {
		return nil, fmt.Errorf("invalid derivative function: %v", f)
	}

	if nx <= 0 || nu <= 0 {
		return nil, fmt.Errorf("invalid plant dimensions: nx=%d, nu=%d", nx, nu)
	}

	if dt <= 0 {
		return nil, fmt.Errorf("invalid timestep: %v", dt)
	}

	return &ODE{
		f:       f,
		nx:      nx,
		nu:      nu,
		dt:      dt,
		k1:      make([]float64, nx),
		k2:      make([]float64, nx),
		k3:      make([]float64, nx),
		k4:      make([]float64, nx),
		scratch: make([]float64, nx),
	}, nil
}

// Dims returns state and control dimensions.
func (o *ODE) Dims() (nx, nu int) { return o.nx, o.nu }

// Timestep returns integration timestep.
func (o *ODE) Timestep() float64 { return o.dt }

// Step integrates the dynamics from x over one timestep holding control u.
func (o *ODE) Step(x, u mat.Vector) (*mat.VecDense, error) {
	xs, us, err := unpack(x, u, o.nx, o.nu)
	if err != nil {
		return nil, err
	}

	n, dt := o.nx, o.dt

	copy(o.k1, o.f(xs, us))

	for i := 0; i < n; i++ {
		o.scratch[i] = xs[i] + dt*0.5*o.k1[i]
	}
	copy(o.k2, o.f(o.scratch, us))

	for i := 0; i < n; i++ {
		o.scratch[i] = xs[i] + dt*0.5*o.k2[i]
	}
	copy(o.k3, o.f(o.scratch, us))

	for i := 0; i < n; i++ {
		o.scratch[i] = xs[i] + dt*o.k3[i]
	}
	copy(o.k4, o.f(o.scratch, us))

	next := make([]float64, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		next[i] = xs[i] + dt6*(o.k1[i]+2*o.k2[i]+2*o.k3[i]+o.k4[i])
	}

	return mat.NewVecDense(n, next), nil
}

func unpack(x, u mat.Vector, nx, nu int) ([]float64, []float64, error) {
	if x == nil || x.Len() != nx {
		return nil, nil, fmt.Errorf("invalid state vector")
	}

	if u == nil || u.Len() != nu {
		return nil, nil, fmt.Errorf("invalid input vector")
	}

	xs := make([]float64, nx)
	for i := range xs {
		xs[i] = x.AtVec(i)
	}

	us := make([]float64, nu)
	for i := range us {
		us[i] = u.AtVec(i)
	}

	return xs, us, nil
}
