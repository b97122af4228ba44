package sim

import (
	"fmt"

	mpc "github.com/milosgajdos/go-autompc"
	"github.com/milosgajdos/go-autompc/noise"
	"gonum.org/v1/gonum/mat"
)

// Policy returns control applied at step k given observation obs.
type Policy func(k int, obs mat.Vector) mat.Vector

// Excite returns a Policy which ignores observations and samples controls from n.
func Excite(n noise.Noise) Policy {
	return func(int, mat.Vector) mat.Vector {
		return n.Sample()
	}
}

// Generate records an open loop trajectory of plant p of system sys.
// The plant starts in x0 and is driven by policy for steps steps, so the
// returned trajectory has steps+1 steps with a zero control in the last one.
func Generate(sys *mpc.System, p Plant, x0 mat.Vector, policy Policy, steps int) (*mpc.Trajectory, error) {
	if steps < 0 {
		return nil, fmt.Errorf("%w: negative number of steps: %d", mpc.ErrShape, steps)
	}

	nx, nu := p.Dims()
	if nx != sys.ObsDim() || nu != sys.CtrlDim() {
		return nil, fmt.Errorf("%w: plant [%d, %d] does not match system [%d, %d]",
			mpc.ErrShape, nx, nu, sys.ObsDim(), sys.CtrlDim())
	}

	if x0 == nil || x0.Len() != nx {
		return nil, fmt.Errorf("%w: invalid initial state", mpc.ErrShape)
	}

	traj, err := mpc.Zeros(sys, steps+1)
	if err != nil {
		return nil, err
	}

	x := mat.VecDenseCopyOf(x0)
	for k := 0; k <= steps; k++ {
		s := traj.Step(k)
		if err := s.SetObs(mat.Col(nil, 0, x)); err != nil {
			return nil, err
		}

		if k == steps {
			break
		}

		u := policy(k, x)
		if err := s.SetCtrl(mat.Col(nil, 0, u)); err != nil {
			return nil, fmt.Errorf("step %d: %w", k, err)
		}

		x, err = p.Step(x, u)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", k, err)
		}
	}

	return traj, nil
}
