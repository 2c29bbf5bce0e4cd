package hessian

import "errors"

var (
	// ErrDimensionMismatch is returned when a sigma vector or spacing does not
	// have one entry per volume axis.
	ErrDimensionMismatch = errors.New("hessian: dimension mismatch")

	// ErrShapeMismatch is returned when a mask does not match the volume shape.
	ErrShapeMismatch = errors.New("hessian: mask shape does not match volume shape")

	// ErrInvalidSpacing is returned for non-positive or non-finite spacing.
	ErrInvalidSpacing = errors.New("hessian: invalid spacing")

	// ErrInvalidSigma is returned for non-positive or non-finite sigma.
	ErrInvalidSigma = errors.New("hessian: invalid sigma")

	// ErrInvalidVolume is returned when the volume data does not match its shape.
	ErrInvalidVolume = errors.New("hessian: invalid volume")
)
