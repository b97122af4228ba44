// Package sysid provides helpers shared by system identification models.
package sysid

import (
	"fmt"

	mpc "github.com/milosgajdos/go-autompc"
	"gonum.org/v1/gonum/mat"
)

// CheckTrajs checks trajs are non-empty trajectories of system sys.
// It returns mpc.ErrTraining if they are not.
func CheckTrajs(sys *mpc.System, trajs []*mpc.Trajectory) error {
	if len(trajs) == 0 {
		return fmt.Errorf("%w: no training trajectories", mpc.ErrTraining)
	}

	for i, t := range trajs {
		if t == nil || t.Len() == 0 {
			return fmt.Errorf("%w: trajectory %d is empty", mpc.ErrTraining, i)
		}

		if !SameSystem(sys, t.System()) {
			return fmt.Errorf("%w: trajectory %d system %s does not match %s", mpc.ErrTraining, i, t.System(), sys)
		}
	}

	return nil
}

// SameSystem returns true if a and b have the same observation and control fields.
func SameSystem(a, b *mpc.System) bool {
	return a.Equal(b)
}

// rcond is relative singular value cutoff of the least squares solution.
const rcond = 1e-10

// LeastSquares returns W minimizing ||X*W - Y||^2 + alpha*||W||^2.
// With alpha > 0 it solves the regularized normal equations, otherwise
// it returns the minimum norm solution computed from the SVD of X.
// It returns mpc.ErrTraining if X is zero or the normal equations are singular.
func LeastSquares(X, Y mat.Matrix, alpha float64) (*mat.Dense, error) {
	xr, xc := X.Dims()
	yr, yc := Y.Dims()
	if xr != yr {
		return nil, fmt.Errorf("%w: regression rows mismatch: %d != %d", mpc.ErrTraining, xr, yr)
	}

	if alpha < 0 {
		return nil, fmt.Errorf("%w: negative regularization: %v", mpc.ErrTraining, alpha)
	}

	W := mat.NewDense(xc, yc, nil)

	if alpha > 0 {
		g := mat.NewSymDense(xc, nil)
		g.SymOuterK(1.0, X.T())
		for i := 0; i < xc; i++ {
			g.SetSym(i, i, g.At(i, i)+alpha)
		}

		xty := &mat.Dense{}
		xty.Mul(X.T(), Y)

		var chol mat.Cholesky
		if ok := chol.Factorize(g); !ok {
			return nil, fmt.Errorf("%w: singular regularized regression", mpc.ErrTraining)
		}

		if err := chol.SolveTo(W, xty); err != nil {
			return nil, fmt.Errorf("%w: %v", mpc.ErrTraining, err)
		}

		return W, nil
	}

	var svd mat.SVD
	if ok := svd.Factorize(X, mat.SVDThin); !ok {
		return nil, fmt.Errorf("%w: regression SVD failed", mpc.ErrTraining)
	}

	rank := svd.Rank(rcond)
	if rank == 0 {
		return nil, fmt.Errorf("%w: zero regression matrix", mpc.ErrTraining)
	}
	svd.SolveTo(W, Y, rank)

	return W, nil
}

// Stack returns the rows of data stacked into a matrix.
// It returns mpc.ErrTraining if there are no rows.
func Stack(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no regression samples", mpc.ErrTraining)
	}

	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for _, r := range rows {
		data = append(data, r...)
	}

	return mat.NewDense(len(rows), cols, data), nil
}

// CheckVec returns mpc.ErrShape if v is not a vector of length n.
func CheckVec(v mat.Vector, n int, name string) error {
	if v == nil {
		return fmt.Errorf("%w: missing %s vector", mpc.ErrShape, name)
	}

	if v.Len() != n {
		return fmt.Errorf("%w: invalid %s length: %d != %d", mpc.ErrShape, name, v.Len(), n)
	}

	return nil
}

// CheckPrefix checks t is a non-empty trajectory of system sys.
// It returns mpc.ErrShape if it is not.
func CheckPrefix(sys *mpc.System, t *mpc.Trajectory) error {
	if t == nil || t.Len() == 0 {
		return fmt.Errorf("%w: empty trajectory", mpc.ErrShape)
	}

	if !SameSystem(sys, t.System()) {
		return fmt.Errorf("%w: trajectory system %s does not match %s", mpc.ErrShape, t.System(), sys)
	}

	return nil
}

// LastObs returns a copy of the last observation of trajectory t of system sys.
// It returns mpc.ErrShape if t is empty or belongs to another system.
func LastObs(sys *mpc.System, t *mpc.Trajectory) (*mat.VecDense, error) {
	if err := CheckPrefix(sys, t); err != nil {
		return nil, err
	}

	return mat.VecDenseCopyOf(t.Step(-1).Obs()), nil
}
