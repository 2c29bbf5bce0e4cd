// Package hessian computes scale-normalized second-derivative tensors of 3D
// volumes under anisotropic voxel spacing.
//
// Axis convention (row-column order): axis 0 is Z, the slowest-varying axis
// of the flat volume layout, then Y, then X. The six unique entries of the
// symmetric tensor are always reported as Hzz, Hzy, Hzx, Hyy, Hyx, Hxx.
package hessian

import (
	"fmt"
	"math"

	"vesselscan/internal/models"
)

// derivativeMargin is the number of voxels the finite-difference stencil
// reaches beyond the evaluated voxel.
const derivativeMargin = 2

// Elements holds the six unique entries of the symmetric Hessian tensor for
// a set of voxels evaluated at one scale.
type Elements struct {
	Hzz, Hzy, Hzx []float64
	Hyy, Hyx      []float64
	Hxx           []float64

	// Index holds the flat volume index of each entry for the masked-compact
	// form, in mask-iteration order. It is nil for the dense form, where entry
	// i is voxel i.
	Index []int
}

func newElements(n int) *Elements {
	return &Elements{
		Hzz: make([]float64, n),
		Hzy: make([]float64, n),
		Hzx: make([]float64, n),
		Hyy: make([]float64, n),
		Hyx: make([]float64, n),
		Hxx: make([]float64, n),
	}
}

// Len returns the number of voxels covered.
func (e *Elements) Len() int {
	return len(e.Hzz)
}

// Tensor returns the six entries for voxel i in Hzz, Hzy, Hzx, Hyy, Hyx, Hxx order.
func (e *Elements) Tensor(i int) [6]float64 {
	return [6]float64{e.Hzz[i], e.Hzy[i], e.Hzx[i], e.Hyy[i], e.Hyx[i], e.Hxx[i]}
}

// Gather compacts dense elements to the given flat indices.
func (e *Elements) Gather(indices []int) *Elements {
	out := newElements(len(indices))
	out.Index = indices
	for i, idx := range indices {
		out.Hzz[i], out.Hzy[i], out.Hzx[i] = e.Hzz[idx], e.Hzy[idx], e.Hzx[idx]
		out.Hyy[i], out.Hyx[i] = e.Hyy[idx], e.Hyx[idx]
		out.Hxx[i] = e.Hxx[idx]
	}
	return out
}

// Computer evaluates Hessian tensors. Workers bounds the goroutines used per
// call; zero means runtime.NumCPU().
type Computer struct {
	Workers int
}

var defaultComputer = &Computer{}

// NewComputer returns a computer that uses at most workers goroutines.
func NewComputer(workers int) *Computer {
	return &Computer{Workers: workers}
}

// Compute returns dense Hessian elements for every voxel of vol.
func Compute(vol *models.Volume, sigma []float64) (*Elements, error) {
	return defaultComputer.Compute(vol, sigma)
}

// ComputeMasked returns Hessian elements for the masked voxels only.
func ComputeMasked(vol *models.Volume, sigma []float64, mask *models.Mask) (*Elements, error) {
	return defaultComputer.ComputeMasked(vol, sigma, mask)
}

// Compute smooths vol with the per-axis voxel sigma and evaluates the
// scale-normalized Hessian at every voxel.
//
// Parameters:
//   - vol: input volume, not modified
//   - sigma: per-axis voxel sigma, one positive entry per axis (see VoxelSigma)
//
// Returns:
//   - dense elements, entry i describing voxel i
func (c *Computer) Compute(vol *models.Volume, sigma []float64) (*Elements, error) {
	if err := checkInputs(vol, sigma); err != nil {
		return nil, err
	}

	smoothed, err := c.Smooth(vol, sigma)
	if err != nil {
		return nil, err
	}

	f := newField(smoothed.Data, smoothed.Shape())
	out := newElements(len(vol.Data))
	c.parallelFor(len(vol.Data), func(start, end int) {
		for i := start; i < end; i++ {
			f.store(out, i, i, sigma)
		}
	})
	return out, nil
}

// ComputeMasked evaluates the scale-normalized Hessian only at the voxels
// selected by mask. The result is compacted: entry i describes the voxel at
// flat index Index[i], in mask-iteration order.
//
// Only the bounding box of the mask, grown by the kernel radius plus the
// derivative stencil, is smoothed. Values at masked voxels are identical to
// those of Compute.
func (c *Computer) ComputeMasked(vol *models.Volume, sigma []float64, mask *models.Mask) (*Elements, error) {
	if err := checkInputs(vol, sigma); err != nil {
		return nil, err
	}
	if mask == nil {
		return nil, fmt.Errorf("nil mask: %w", ErrShapeMismatch)
	}
	if mask.Shape() != vol.Shape() || len(mask.Data) != len(vol.Data) {
		return nil, fmt.Errorf("mask %s vs volume %s: %w", mask.Shape(), vol.Shape(), ErrShapeMismatch)
	}

	indices := mask.Indices()
	out := newElements(len(indices))
	out.Index = indices
	if len(indices) == 0 {
		return out, nil
	}

	bounds := cropBounds(mask, vol.Shape(), sigma)
	region := ExtractRegion(vol, bounds)
	smoothed, err := c.Smooth(region, sigma)
	if err != nil {
		return nil, err
	}

	full := vol.Shape()
	f := newField(smoothed.Data, smoothed.Shape())
	c.parallelFor(len(indices), func(start, end int) {
		for i := start; i < end; i++ {
			z, y, x := full.Coords(indices[i])
			local := f.shape.Index(z-bounds.Min[0], y-bounds.Min[1], x-bounds.Min[2])
			f.store(out, i, local, sigma)
		}
	})
	return out, nil
}

func checkInputs(vol *models.Volume, sigma []float64) error {
	if err := vol.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidVolume)
	}
	if len(sigma) != vol.Dims() {
		return fmt.Errorf("sigma has %d axes, volume has %d: %w", len(sigma), vol.Dims(), ErrDimensionMismatch)
	}
	for axis, s := range sigma {
		if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("sigma[%d] = %v: %w", axis, s, ErrInvalidSigma)
		}
	}
	return nil
}

// cropBounds grows the mask bounding box by the smoothing radius plus the
// derivative stencil on each axis, clipped to the volume.
func cropBounds(mask *models.Mask, shape models.Shape, sigma []float64) models.Bounds {
	b, _ := mask.BoundingBox()
	for axis := 0; axis < 3; axis++ {
		margin := KernelRadius(sigma[axis]) + derivativeMargin
		b.Min[axis] -= margin
		if b.Min[axis] < 0 {
			b.Min[axis] = 0
		}
		b.Max[axis] += margin
		if b.Max[axis] > shape[axis] {
			b.Max[axis] = shape[axis]
		}
	}
	return b
}

// ExtractRegion copies the voxels inside bounds into a new volume.
func ExtractRegion(vol *models.Volume, bounds models.Bounds) *models.Volume {
	size := bounds.Size()
	region := models.NewVolume(size[0], size[1], size[2])
	src := vol.Shape()
	for z := 0; z < size[0]; z++ {
		for y := 0; y < size[1]; y++ {
			srcIdx := src.Index(bounds.Min[0]+z, bounds.Min[1]+y, bounds.Min[2])
			dstIdx := size.Index(z, y, 0)
			copy(region.Data[dstIdx:dstIdx+size[2]], vol.Data[srcIdx:srcIdx+size[2]])
		}
	}
	return region
}

// field evaluates finite differences on a smoothed volume with the same
// semantics as numpy.gradient: central differences inside, one-sided first
// differences at the edges, unit grid step.
type field struct {
	data    []float64
	shape   models.Shape
	strides [3]int
}

func newField(data []float64, shape models.Shape) *field {
	return &field{
		data:    data,
		shape:   shape,
		strides: [3]int{shape[1] * shape[2], shape[2], 1},
	}
}

// gradient applies the 1D difference rule along axis at idx to sample.
func (f *field) gradient(axis, idx int, sample func(int) float64) float64 {
	n := f.shape[axis]
	if n < 2 {
		return 0
	}
	s := f.strides[axis]
	switch coord := (idx / s) % n; coord {
	case 0:
		return sample(idx+s) - sample(idx)
	case n - 1:
		return sample(idx) - sample(idx-s)
	default:
		return (sample(idx+s) - sample(idx-s)) / 2
	}
}

func (f *field) value(idx int) float64 {
	return f.data[idx]
}

// first returns the first derivative along axis at idx.
func (f *field) first(axis, idx int) float64 {
	return f.gradient(axis, idx, f.value)
}

// second returns the derivative along b of the first derivative along a.
func (f *field) second(a, b, idx int) float64 {
	return f.gradient(b, idx, func(j int) float64 {
		return f.first(a, j)
	})
}

// store writes the scale-normalized tensor at local index idx into entry i.
// Each entry H_ab is multiplied by sigma[a]*sigma[b].
func (f *field) store(out *Elements, i, idx int, sigma []float64) {
	out.Hzz[i] = f.second(0, 0, idx) * sigma[0] * sigma[0]
	out.Hzy[i] = f.second(0, 1, idx) * sigma[0] * sigma[1]
	out.Hzx[i] = f.second(0, 2, idx) * sigma[0] * sigma[2]
	out.Hyy[i] = f.second(1, 1, idx) * sigma[1] * sigma[1]
	out.Hyx[i] = f.second(1, 2, idx) * sigma[1] * sigma[2]
	out.Hxx[i] = f.second(2, 2, idx) * sigma[2] * sigma[2]
}
