package mpc

import "errors"

var (
	// ErrShape is returned when a vector or matrix does not match
	// the dimensions of a System or Task.
	ErrShape = errors.New("mpc: shape mismatch")

	// ErrUnknownField is returned when a field name is not defined by a System.
	ErrUnknownField = errors.New("mpc: unknown field")

	// ErrTraining is returned when training data is empty or malformed.
	ErrTraining = errors.New("mpc: invalid training data")

	// ErrUnsupported is returned when a model or controller is asked
	// for a capability it does not implement.
	ErrUnsupported = errors.New("mpc: unsupported operation")

	// ErrSingularMatrix is returned when a gain solve hits a non-invertible matrix.
	ErrSingularMatrix = errors.New("mpc: singular matrix")

	// ErrIncompatible is returned when a controller can not be built
	// for the given system, task and model.
	ErrIncompatible = errors.New("mpc: incompatible configuration")

	// ErrInvalidCost is returned when cost weights are not symmetric PSD (Q) or PD (R).
	ErrInvalidCost = errors.New("mpc: invalid cost")

	// ErrInvalidConfig is returned when a configuration does not satisfy its space.
	ErrInvalidConfig = errors.New("mpc: invalid configuration")
)
