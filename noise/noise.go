// Package noise provides seeded random sources used to excite plants with
// random controls and to perturb plant states when generating training data.
package noise

import "gonum.org/v1/gonum/mat"

// Noise is a random vector source.
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset rewinds the noise to its seed so the sample stream repeats
	Reset()
}
