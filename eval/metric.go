// Package eval evaluates system identification models.
package eval

import (
	"fmt"
	"math"

	mpc "github.com/milosgajdos/go-autompc"
	"github.com/milosgajdos/go-autompc/matrix"
	"gonum.org/v1/gonum/mat"
)

// Metric scores model m on trajectories trajs. Lower scores are better.
type Metric interface {
	Score(m mpc.Model, trajs []*mpc.Trajectory) (float64, error)
}

// RMSEKStep is root mean squared error of k-step open loop prediction.
type RMSEKStep struct {
	// K is prediction horizon
	K int
}

// Score returns k-step RMSE of model m on trajs.
func (r RMSEKStep) Score(m mpc.Model, trajs []*mpc.Trajectory) (float64, error) {
	rmse, err := RMSEKSteps(m, trajs, r.K)
	if err != nil {
		return 0, err
	}

	return rmse[r.K-1], nil
}

// RMSEKSteps returns RMSE of open loop prediction of model m on trajs
// for every horizon from 1 to kmax. Predictions start from every step of
// every trajectory which has at least kmax steps following it.
// The error is averaged over all observation fields.
func RMSEKSteps(m mpc.Model, trajs []*mpc.Trajectory, kmax int) ([]float64, error) {
	if kmax < 1 {
		return nil, fmt.Errorf("invalid prediction horizon: %d", kmax)
	}

	n := m.System().ObsDim()
	// sq accumulates squared errors: horizons in rows, fields in columns
	sq := mat.NewDense(kmax, n, nil)
	count := 0

	for _, t := range trajs {
		for start := 0; start+kmax < t.Len(); start++ {
			prefix, err := t.Slice(0, start+1)
			if err != nil {
				return nil, err
			}

			state, err := m.TrajToState(prefix)
			if err != nil {
				return nil, err
			}

			for k := 0; k < kmax; k++ {
				obs, next, err := m.Pred(state, t.Step(start+k).Ctrl())
				if err != nil {
					return nil, err
				}
				state = next

				truth := t.Step(start + k + 1).Obs()
				for i := 0; i < n; i++ {
					e := obs.AtVec(i) - truth.AtVec(i)
					sq.Set(k, i, sq.At(k, i)+e*e)
				}
			}
			count++
		}
	}

	if count == 0 {
		return nil, fmt.Errorf("%w: no trajectory longer than %d steps", mpc.ErrShape, kmax)
	}

	sums := matrix.RowSums(sq)
	rmse := make([]float64, kmax)
	for k := range rmse {
		rmse[k] = math.Sqrt(sums[k] / float64(count*n))
	}

	return rmse, nil
}
