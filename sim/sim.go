package sim

import (
	"fmt"

	mpc "github.com/milosgajdos/go-autompc"
	"gonum.org/v1/gonum/mat"
)

// Simulate runs controller c in closed loop with plant p for steps steps
// starting from trajectory init. Every step the controller state is derived
// from the trajectory so far, the control computed from the latest observation
// is recorded and the plant is advanced. Control of the final step is zero.
// It returns the trajectory extended by steps.
func Simulate(c mpc.Controller, p Plant, init *mpc.Trajectory, steps int) (*mpc.Trajectory, error) {
	if init == nil || init.Len() == 0 {
		return nil, fmt.Errorf("%w: empty initial trajectory", mpc.ErrShape)
	}

	if steps < 0 {
		return nil, fmt.Errorf("%w: negative number of steps: %d", mpc.ErrShape, steps)
	}

	sys := init.System()
	nx, nu := p.Dims()
	if nx != sys.ObsDim() || nu != sys.CtrlDim() {
		return nil, fmt.Errorf("%w: plant [%d, %d] does not match system [%d, %d]",
			mpc.ErrShape, nx, nu, sys.ObsDim(), sys.CtrlDim())
	}

	traj := init.Clone()
	zero := mat.NewVecDense(nu, nil)

	for k := 0; k < steps; k++ {
		state, err := c.TrajToState(traj)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", k, err)
		}

		last := traj.Step(-1)
		u, _, err := c.Run(state, last.Obs())
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", k, err)
		}

		if err := last.SetCtrl(mat.Col(nil, 0, u)); err != nil {
			return nil, fmt.Errorf("step %d: %w", k, err)
		}

		next, err := p.Step(last.Obs(), u)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", k, err)
		}

		traj, err = mpc.Extend(traj, []mat.Vector{next}, []mat.Vector{zero})
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", k, err)
		}
	}

	return traj, nil
}
