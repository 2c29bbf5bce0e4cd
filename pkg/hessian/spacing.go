package hessian

import (
	"fmt"
	"math"

	"vesselscan/internal/models"
)

// VoxelSigma converts a physical sigma (mm) into a per-axis sigma in voxel
// units: voxel[i] = sigma[i] / spacing[i].
//
// A sigma of length 1 is treated as a scalar and broadcast to every axis.
// A vector sigma must have exactly one entry per spacing axis.
//
// Parameters:
//   - sigma: physical sigma, scalar (length 1) or per-axis
//   - spacing: voxel spacing in mm, (Z, Y, X) order
//
// Returns:
//   - the per-axis voxel sigma, or ErrDimensionMismatch, ErrInvalidSpacing
//     or ErrInvalidSigma
func VoxelSigma(sigma []float64, spacing models.Spacing) ([]float64, error) {
	if len(spacing) == 0 {
		return nil, fmt.Errorf("empty spacing: %w", ErrDimensionMismatch)
	}
	if err := spacing.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidSpacing)
	}

	switch len(sigma) {
	case 0:
		return nil, fmt.Errorf("empty sigma: %w", ErrInvalidSigma)
	case 1:
		// scalar broadcast
	case len(spacing):
	default:
		return nil, fmt.Errorf("sigma has %d axes, spacing has %d: %w", len(sigma), len(spacing), ErrDimensionMismatch)
	}

	out := make([]float64, len(spacing))
	for axis := range spacing {
		s := sigma[0]
		if len(sigma) > 1 {
			s = sigma[axis]
		}
		if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("sigma[%d] = %v: %w", axis, s, ErrInvalidSigma)
		}
		out[axis] = s / spacing[axis]
	}
	return out, nil
}

// VoxelSigmaScalar is VoxelSigma for a single isotropic physical sigma.
func VoxelSigmaScalar(sigmaMM float64, spacing models.Spacing) ([]float64, error) {
	return VoxelSigma([]float64{sigmaMM}, spacing)
}

// CheckSpacing verifies that spacing has one positive entry per volume axis.
func CheckSpacing(vol *models.Volume, spacing models.Spacing) error {
	if len(spacing) != vol.Dims() {
		return fmt.Errorf("spacing has %d axes, volume has %d: %w", len(spacing), vol.Dims(), ErrDimensionMismatch)
	}
	if err := spacing.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidSpacing)
	}
	return nil
}
