package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// CartpoleParams are physical parameters of the cartpole.
type CartpoleParams struct {
	// G is gravitational acceleration
	G float64
	// CartMass is mass of the cart
	CartMass float64
	// PoleMass is mass of the pole
	PoleMass float64
	// Length is pole length
	Length float64
	// Friction is pole joint damping
	Friction float64
}

// DefaultCartpole returns default cartpole parameters.
func DefaultCartpole() CartpoleParams {
	return CartpoleParams{
		G:        9.8,
		CartMass: 1.0,
		PoleMass: 1.0,
		Length:   1.0,
		Friction: 1.0,
	}
}

// Deriv returns cartpole dynamics with state [theta, omega, x, dx] and
// control [force]. Pole angle theta is zero when the pole points up.
func (p CartpoleParams) Deriv(s, u []float64) []float64 {
	// dynamics are expressed with the pole hanging down at zero angle
	theta := s[0] + math.Pi
	omega, dx := s[1], s[3]
	f := u[0]

	sin, cos := math.Sin(theta), math.Cos(theta)
	mc, mp, l, g := p.CartMass, p.PoleMass, p.Length, p.G

	domega := (-f*cos - mp*l*omega*omega*cos*sin - (mc+2*mp)*g*sin - p.Friction*omega) /
		(l * (mc + mp + mp*sin*sin))
	ddx := (f + mp*sin*(l*omega*omega+g*cos)) / (mc + mp*sin*sin)

	return []float64{omega, domega, dx, ddx}
}

// Linearize returns continuous-time linearization of the cartpole
// about the upright equilibrium with the cart at rest.
func (p CartpoleParams) Linearize() (*Continuous, error) {
	mc, mp, l, g := p.CartMass, p.PoleMass, p.Length, p.G
	if mc <= 0 || l <= 0 {
		return nil, fmt.Errorf("invalid cartpole parameters: %+v", p)
	}
	den := l * (mc + mp)

	A := mat.NewDense(4, 4, []float64{
		0, 1, 0, 0,
		(mc + 2*mp) * g / den, -p.Friction / den, 0, 0,
		0, 0, 0, 1,
		mp * g / mc, 0, 0, 0,
	})
	B := mat.NewDense(4, 1, []float64{0, 1 / den, 0, 1 / mc})

	return NewContinuous(A, B)
}

// NewCartpole creates new cartpole Plant sampled with timestep dt.
func NewCartpole(p CartpoleParams, dt float64) (*ODE, error) {
	return NewODE(p.Deriv, 4, 1, dt)
}
