// Package sim provides ground truth plants and the closed loop simulation of controllers.
package sim

import (
	"fmt"

	"github.com/milosgajdos/go-autompc/noise"
	"gonum.org/v1/gonum/mat"
)

// Plant advances the true state of a fully observed dynamical system by one step.
type Plant interface {
	// Dims returns state and control dimensions
	Dims() (nx, nu int)
	// Step returns the state following x when control u is applied
	Step(x, u mat.Vector) (*mat.VecDense, error)
}

// System defines a linear model of a plant using
// traditional matrices of modern control theory.
//
// It contains the System (A) and input (B) matrices.
type System struct {
	// System/State matrix A
	A *mat.Dense
	// Control/Input Matrix B
	B *mat.Dense
}

func newSystem(A, B mat.Matrix) (System, error) {
	if A == nil || B == nil {
		return System{}, fmt.Errorf("system and control matrices must be defined")
	}

	ar, ac := A.Dims()
	br, _ := B.Dims()
	if ar != ac || br != ar {
		return System{}, fmt.Errorf("invalid system dimensions: A [%d x %d], B rows %d", ar, ac, br)
	}

	return System{A: mat.DenseCopyOf(A), B: mat.DenseCopyOf(B)}, nil
}

// Dims returns internal state length (nx) and input vector length (nu).
func (s System) Dims() (nx, nu int) {
	nx, _ = s.A.Dims()
	_, nu = s.B.Dims()

	return nx, nu
}

// SystemMatrix returns state propagation matrix `A`.
func (s System) SystemMatrix() mat.Matrix { return mat.DenseCopyOf(s.A) }

// ControlMatrix returns state propagation control matrix `B`.
func (s System) ControlMatrix() mat.Matrix { return mat.DenseCopyOf(s.B) }

func (s System) check(x, u mat.Vector) error {
	nx, nu := s.Dims()
	if u == nil || u.Len() != nu {
		return fmt.Errorf("invalid input vector")
	}

	if x == nil || x.Len() != nx {
		return fmt.Errorf("invalid state vector")
	}

	return nil
}

// noisy adds a noise sample to every step of a plant.
type noisy struct {
	Plant
	n noise.Noise
}

// WithNoise returns a Plant which adds a sample of n to every state p produces.
// It returns error if the noise dimension does not match the plant state.
func WithNoise(p Plant, n noise.Noise) (Plant, error) {
	nx, _ := p.Dims()
	if len(n.Mean()) != nx {
		return nil, fmt.Errorf("invalid noise dimension: %d != %d", len(n.Mean()), nx)
	}

	return &noisy{Plant: p, n: n}, nil
}

// Step returns the state following x perturbed by noise.
func (p *noisy) Step(x, u mat.Vector) (*mat.VecDense, error) {
	next, err := p.Plant.Step(x, u)
	if err != nil {
		return nil, err
	}
	next.AddVec(next, p.n.Sample())

	return next, nil
}
