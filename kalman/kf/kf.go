// Package kf implements a linear Kalman filter estimating model state of
// a linear model from noisy observations.
package kf

import (
	"fmt"

	mpc "github.com/milosgajdos/go-autompc"
	"github.com/milosgajdos/go-autompc/matrix"
	"github.com/milosgajdos/go-autompc/noise"
	"gonum.org/v1/gonum/mat"
)

// KF is Kalman Filter
type KF struct {
	// lin is linear model system
	lin *mpc.LinearSystem
	// q is state noise a.k.a. process noise
	q noise.Noise
	// r is output noise a.k.a. measurement noise
	r noise.Noise
	// x is state estimate
	x *mat.VecDense
	// p is state estimate covariance
	p *mat.SymDense
	// inn is innovation vector
	inn *mat.VecDense
	// k is Kalman gain
	k *mat.Dense
}

// New creates new KF and returns it.
// It accepts the following parameters:
//   - lin: linear system in model state coordinates
//   - x0:  initial state estimate
//   - p0:  initial state estimate covariance
//   - q:   process noise; nil means no process noise
//   - r:   measurement noise; it must not be nil
//
// It returns error if any of the dimensions do not match lin.
func New(lin *mpc.LinearSystem, x0 mat.Vector, p0 mat.Symmetric, q, r noise.Noise) (*KF, error) {
	if lin == nil {
		return nil, fmt.Errorf("invalid linear system: %v", lin)
	}

	nx, _ := lin.Dims()
	ny, _ := lin.C.Dims()

	if x0 == nil || x0.Len() != nx {
		return nil, fmt.Errorf("%w: invalid initial state", mpc.ErrShape)
	}

	if p0 == nil || p0.SymmetricDim() != nx {
		return nil, fmt.Errorf("%w: invalid initial covariance", mpc.ErrShape)
	}

	if q != nil && q.Cov().SymmetricDim() != nx {
		return nil, fmt.Errorf("%w: invalid state noise dimension: %d != %d", mpc.ErrShape, q.Cov().SymmetricDim(), nx)
	}

	if r == nil || r.Cov().SymmetricDim() != ny {
		return nil, fmt.Errorf("%w: invalid output noise", mpc.ErrShape)
	}

	p := mat.NewSymDense(nx, nil)
	p.CopySym(p0)

	return &KF{
		lin: lin,
		q:   q,
		r:   r,
		x:   mat.VecDenseCopyOf(x0),
		p:   p,
		inn: mat.NewVecDense(ny, nil),
		k:   mat.NewDense(nx, ny, nil),
	}, nil
}

// Predict propagates the state estimate with control u and returns it.
func (k *KF) Predict(u mat.Vector) (*mat.VecDense, error) {
	if _, nu := k.lin.Dims(); u == nil || u.Len() != nu {
		return nil, fmt.Errorf("%w: invalid control", mpc.ErrShape)
	}

	x := &mat.VecDense{}
	x.MulVec(k.lin.A, k.x)
	bu := &mat.VecDense{}
	bu.MulVec(k.lin.B, u)
	x.AddVec(x, bu)
	k.x = x

	ap := &mat.Dense{}
	ap.Mul(k.lin.A, k.p)
	cov := &mat.Dense{}
	cov.Mul(ap, k.lin.A.T())

	if k.q != nil {
		cov.Add(cov, k.q.Cov())
	}
	k.p = matrix.Sym(cov)

	return mat.VecDenseCopyOf(k.x), nil
}

// Update corrects the state estimate using measurement y and returns it.
// It returns error if y has invalid dimension or the innovation covariance is singular.
func (k *KF) Update(y mat.Vector) (*mat.VecDense, error) {
	C := k.lin.C
	ny, nx := C.Dims()

	if y == nil || y.Len() != ny {
		return nil, fmt.Errorf("%w: invalid measurement", mpc.ErrShape)
	}

	// P*C'
	pxy := mat.NewDense(nx, ny, nil)
	pxy.Mul(k.p, C.T())

	// C*P*C' + R
	pyy := mat.NewDense(ny, ny, nil)
	pyy.Mul(C, pxy)
	pyy.Add(pyy, k.r.Cov())

	pyyInv := &mat.Dense{}
	if err := pyyInv.Inverse(pyy); err != nil {
		return nil, fmt.Errorf("%w: innovation covariance: %v", mpc.ErrSingularMatrix, err)
	}

	gain := &mat.Dense{}
	gain.Mul(pxy, pyyInv)

	yhat := &mat.VecDense{}
	yhat.MulVec(C, k.x)
	inn := &mat.VecDense{}
	inn.SubVec(y, yhat)

	corr := &mat.VecDense{}
	corr.MulVec(gain, inn)
	k.x.AddVec(k.x, corr)

	// Joseph form update
	eye := mat.NewDiagDense(nx, nil)
	for i := 0; i < nx; i++ {
		eye.SetDiag(i, 1.0)
	}
	a := &mat.Dense{}
	// K*C
	a.Mul(gain, C)
	// I - K*C
	a.Sub(eye, a)

	ap := &mat.Dense{}
	ap.Mul(a, k.p)
	apa := &mat.Dense{}
	apa.Mul(ap, a.T())

	// K*R*K'
	kr := &mat.Dense{}
	kr.Mul(gain, k.r.Cov())
	krk := &mat.Dense{}
	krk.Mul(kr, gain.T())
	apa.Add(apa, krk)

	k.p = matrix.Sym(apa)
	k.inn.CopyVec(inn)
	k.k.Copy(gain)

	return mat.VecDenseCopyOf(k.x), nil
}

// Run propagates the state estimate with control u and corrects it with measurement y.
func (k *KF) Run(u, y mat.Vector) (*mat.VecDense, error) {
	if _, err := k.Predict(u); err != nil {
		return nil, err
	}

	return k.Update(y)
}

// State returns current state estimate.
func (k *KF) State() *mat.VecDense { return mat.VecDenseCopyOf(k.x) }

// Output returns observation estimate of the current state estimate.
func (k *KF) Output() *mat.VecDense {
	y := &mat.VecDense{}
	y.MulVec(k.lin.C, k.x)

	return y
}

// Cov returns KF covariance
func (k *KF) Cov() mat.Symmetric {
	cov := mat.NewSymDense(k.p.SymmetricDim(), nil)
	cov.CopySym(k.p)

	return cov
}

// Gain returns Kalman gain of the last update
func (k *KF) Gain() mat.Matrix {
	gain := &mat.Dense{}
	gain.CloneFrom(k.k)

	return gain
}

// Innovation returns innovation vector of the last update
func (k *KF) Innovation() mat.Vector {
	return mat.VecDenseCopyOf(k.inn)
}

// Filter runs the filter over observations of traj and returns a copy of
// traj holding estimated observations. Model m must be trained; its state
// of the first step seeds the filter with covariance p0.
func Filter(m mpc.LinearModel, traj *mpc.Trajectory, p0 mat.Symmetric, q, r noise.Noise) (*mpc.Trajectory, error) {
	if traj == nil || traj.Len() == 0 {
		return nil, fmt.Errorf("%w: empty trajectory", mpc.ErrShape)
	}

	lin, err := m.ToLinear()
	if err != nil {
		return nil, err
	}

	first, err := traj.Slice(0, 1)
	if err != nil {
		return nil, err
	}

	x0, err := m.TrajToState(first)
	if err != nil {
		return nil, err
	}

	k, err := New(lin, x0, p0, q, r)
	if err != nil {
		return nil, err
	}

	out := traj.Clone()
	for i := 0; i < traj.Len(); i++ {
		s := out.Step(i)
		if i > 0 {
			if _, err := k.Predict(out.Step(i - 1).Ctrl()); err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
		}

		if _, err := k.Update(s.Obs()); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		s.Obs().CopyVec(k.Output())
	}

	return out, nil
}
