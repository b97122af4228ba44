package lqr

import (
	"fmt"

	mpc "github.com/milosgajdos/go-autompc"
	"github.com/milosgajdos/go-autompc/matrix"
	"gonum.org/v1/gonum/mat"
)

// Solve runs the backward Riccati recursion of a finite horizon LQR problem
//
//	x[k+1] = A*x[k] + B*u[k]
//	J = sum_{k<H} x[k]'*Q*x[k] + u[k]'*R*u[k] + x[H]'*F*x[H]
//
// and returns the optimal feedback gains K[0..H-1] such that u[k] = -K[k]*x[k].
// If F is nil, Q is used as terminal cost.
// It returns mpc.ErrSingularMatrix if R + B'*P*B can not be inverted.
func Solve(A, B mat.Matrix, Q, R, F mat.Symmetric, H int) ([]*mat.Dense, error) {
	if H < 1 {
		return nil, fmt.Errorf("invalid horizon: %d", H)
	}

	if F == nil {
		F = Q
	}

	nx, ac := A.Dims()
	br, nu := B.Dims()
	if nx != ac || br != nx {
		return nil, fmt.Errorf("%w: invalid system: A [%d x %d], B [%d x %d]", mpc.ErrShape, nx, ac, br, nu)
	}

	if Q.SymmetricDim() != nx || F.SymmetricDim() != nx || R.SymmetricDim() != nu {
		return nil, fmt.Errorf("%w: invalid cost dimensions: Q %d, R %d, F %d",
			mpc.ErrShape, Q.SymmetricDim(), R.SymmetricDim(), F.SymmetricDim())
	}

	gains := make([]*mat.Dense, H)

	P := mat.DenseCopyOf(F)
	BtP := &mat.Dense{}
	S := &mat.Dense{}
	rhs := &mat.Dense{}
	ABK := &mat.Dense{}
	BK := &mat.Dense{}

	for k := H - 1; k >= 0; k-- {
		// S = R + B'*P*B
		BtP.Mul(B.T(), P)
		S.Mul(BtP, B)
		S.Add(S, R)

		// K = inv(S)*B'*P*A
		rhs.Mul(BtP, A)
		K := &mat.Dense{}
		if err := K.Solve(S, rhs); err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", mpc.ErrSingularMatrix, k, err)
		}
		gains[k] = K

		// P = Q + A'*P*(A - B*K)
		BK.Mul(B, K)
		ABK.Sub(A, BK)
		AtP := &mat.Dense{}
		AtP.Mul(A.T(), P)
		next := &mat.Dense{}
		next.Mul(AtP, ABK)
		next.Add(next, Q)

		P = mat.DenseCopyOf(matrix.Sym(next))
	}

	return gains, nil
}
