package matrix

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultTol is the default absolute tolerance of the structural checks.
const DefaultTol = 1e-9

// RowSums returns a slice containing m row sums.
// It panics if m is nil.
func RowSums(m *mat.Dense) []float64 {
	rows, _ := m.Dims()
	sum := make([]float64, rows)

	for i := 0; i < rows; i++ {
		sum[i] = floats.Sum(m.RawRowView(i))
	}

	return sum
}

// IsSymmetric returns true if m is square and m[i,j] and m[j,i] differ by at most tol.
func IsSymmetric(m mat.Matrix, tol float64) bool {
	r, c := m.Dims()
	if r != c {
		return false
	}

	return mat.EqualApprox(m, m.T(), tol)
}

// Sym returns symmetric part of square matrix m: (m + m')/2.
// It panics if m is not square.
func Sym(m mat.Matrix) *mat.SymDense {
	r, c := m.Dims()
	if r != c {
		panic(mat.ErrShape)
	}

	s := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			s.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}

	return s
}

// IsPSD returns true if all eigenvalues of s are greater than -tol.
func IsPSD(s mat.Symmetric, tol float64) bool {
	var es mat.EigenSym
	if ok := es.Factorize(s, false); !ok {
		return false
	}

	return floats.Min(es.Values(nil)) > -tol
}

// IsPD returns true if s admits a Cholesky factorization.
func IsPD(s mat.Symmetric) bool {
	var chol mat.Cholesky
	return chol.Factorize(s)
}
