// Package zero implements a controller which always applies zero control.
package zero

import (
	"fmt"

	mpc "github.com/milosgajdos/go-autompc"
	"github.com/milosgajdos/go-autompc/config"
	"gonum.org/v1/gonum/mat"
)

// Controller applies zero control. It has no state.
type Controller struct {
	sys *mpc.System
}

// New creates new zero controller of system sys.
func New(sys *mpc.System) (*Controller, error) {
	if sys == nil {
		return nil, fmt.Errorf("invalid system: %v", sys)
	}

	return &Controller{sys: sys}, nil
}

// StateDim returns zero.
func (c *Controller) StateDim() int { return 0 }

// TrajToState returns empty state.
func (c *Controller) TrajToState(*mpc.Trajectory) (mat.Vector, error) {
	return &mat.VecDense{}, nil
}

// Run returns zero control and unchanged state.
func (c *Controller) Run(state, _ mat.Vector) (*mat.VecDense, mat.Vector, error) {
	return mat.NewVecDense(c.sys.CtrlDim(), nil), state, nil
}

// Factory creates zero controllers.
type Factory struct{}

// ConfigSpace returns empty configuration space.
func (Factory) ConfigSpace(*mpc.System, *mpc.Task, mpc.Model) *config.Space {
	return config.NewSpace()
}

// IsCompatible returns true. Zero controller works with any model.
func (Factory) IsCompatible(*mpc.System, *mpc.Task, mpc.Model) bool { return true }

// New creates new zero controller.
func (Factory) New(sys *mpc.System, _ *mpc.Task, _ mpc.Model, _ *config.Configuration) (mpc.Controller, error) {
	c, err := New(sys)
	if err != nil {
		return nil, err
	}

	return c, nil
}
