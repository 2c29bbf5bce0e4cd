package models

import (
	"fmt"
	"math"
)

// Volume represents a 3D intensity volume (typically Hounsfield Units)
// stored as a flat array in (Z, Y, X) row-major order.
type Volume struct {
	// Data holds the samples; index = z*Height*Width + y*Width + x
	Data []float64

	// Depth is the number of slices along the slowest axis (Z)
	Depth int

	// Height is the number of rows (Y)
	Height int

	// Width is the number of columns (X), the fastest-varying axis
	Width int
}

// Shape is the (Z, Y, X) extent of a volume or mask.
type Shape [3]int

// Len returns the number of voxels covered by the shape.
func (s Shape) Len() int {
	return s[0] * s[1] * s[2]
}

// Index converts (z, y, x) coordinates into a flat row-major index.
func (s Shape) Index(z, y, x int) int {
	return (z*s[1]+y)*s[2] + x
}

// Coords converts a flat index back into (z, y, x) coordinates.
func (s Shape) Coords(idx int) (z, y, x int) {
	plane := s[1] * s[2]
	z = idx / plane
	rem := idx - z*plane
	y = rem / s[2]
	x = rem - y*s[2]
	return z, y, x
}

// String renders the shape as "ZxYxX".
func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s[0], s[1], s[2])
}

// NewVolume allocates a zero-filled volume of the given shape.
func NewVolume(depth, height, width int) *Volume {
	return &Volume{
		Data:   make([]float64, depth*height*width),
		Depth:  depth,
		Height: height,
		Width:  width,
	}
}

// NewVolumeFilled allocates a volume with every voxel set to value.
func NewVolumeFilled(depth, height, width int, value float64) *Volume {
	v := NewVolume(depth, height, width)
	for i := range v.Data {
		v.Data[i] = value
	}
	return v
}

// Shape returns the (Z, Y, X) extent of the volume.
func (v *Volume) Shape() Shape {
	return Shape{v.Depth, v.Height, v.Width}
}

// Dims returns the dimensionality of the volume. Volumes are always 3D.
func (v *Volume) Dims() int { return 3 }

// At returns the sample at (z, y, x).
func (v *Volume) At(z, y, x int) float64 {
	return v.Data[v.Shape().Index(z, y, x)]
}

// Set assigns the sample at (z, y, x).
func (v *Volume) Set(z, y, x int, value float64) {
	v.Data[v.Shape().Index(z, y, x)] = value
}

// Validate checks that the data length matches the declared shape.
func (v *Volume) Validate() error {
	if v == nil {
		return fmt.Errorf("volume is nil")
	}
	if v.Depth <= 0 || v.Height <= 0 || v.Width <= 0 {
		return fmt.Errorf("volume shape %s must be positive on every axis", v.Shape())
	}
	if len(v.Data) != v.Shape().Len() {
		return fmt.Errorf("volume data has %d samples, shape %s needs %d", len(v.Data), v.Shape(), v.Shape().Len())
	}
	return nil
}

// Clone returns a deep copy of the volume.
func (v *Volume) Clone() *Volume {
	out := &Volume{
		Data:   make([]float64, len(v.Data)),
		Depth:  v.Depth,
		Height: v.Height,
		Width:  v.Width,
	}
	copy(out.Data, v.Data)
	return out
}

// Mask marks the voxels of interest in a volume of identical shape.
type Mask struct {
	Data   []bool
	Depth  int
	Height int
	Width  int
}

// NewMask allocates an empty mask.
func NewMask(depth, height, width int) *Mask {
	return &Mask{
		Data:   make([]bool, depth*height*width),
		Depth:  depth,
		Height: height,
		Width:  width,
	}
}

// FullMask returns a mask selecting every voxel of the given shape.
func FullMask(s Shape) *Mask {
	m := NewMask(s[0], s[1], s[2])
	for i := range m.Data {
		m.Data[i] = true
	}
	return m
}

// Shape returns the (Z, Y, X) extent of the mask.
func (m *Mask) Shape() Shape {
	return Shape{m.Depth, m.Height, m.Width}
}

// Set marks or clears the voxel at (z, y, x).
func (m *Mask) Set(z, y, x int, on bool) {
	m.Data[m.Shape().Index(z, y, x)] = on
}

// Count returns the number of selected voxels.
func (m *Mask) Count() int {
	n := 0
	for _, on := range m.Data {
		if on {
			n++
		}
	}
	return n
}

// Indices returns the flat indices of selected voxels in ascending order.
// This is the mask-iteration order used by every compact per-voxel array.
func (m *Mask) Indices() []int {
	out := make([]int, 0, m.Count())
	for i, on := range m.Data {
		if on {
			out = append(out, i)
		}
	}
	return out
}

// Bounds is an axis-aligned box [Min, Max) in (Z, Y, X) voxel coordinates.
type Bounds struct {
	Min Shape
	Max Shape
}

// Size returns the extent of the box along each axis.
func (b Bounds) Size() Shape {
	return Shape{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// Empty reports whether the box contains no voxels.
func (b Bounds) Empty() bool {
	s := b.Size()
	return s[0] <= 0 || s[1] <= 0 || s[2] <= 0
}

// BoundingBox returns the tightest box containing every selected voxel.
// The second return value is false when the mask is empty.
func (m *Mask) BoundingBox() (Bounds, bool) {
	s := m.Shape()
	b := Bounds{Min: s, Max: Shape{}}
	found := false
	for i, on := range m.Data {
		if !on {
			continue
		}
		found = true
		z, y, x := s.Coords(i)
		c := Shape{z, y, x}
		for a := 0; a < 3; a++ {
			if c[a] < b.Min[a] {
				b.Min[a] = c[a]
			}
			if c[a]+1 > b.Max[a] {
				b.Max[a] = c[a] + 1
			}
		}
	}
	if !found {
		return Bounds{}, false
	}
	return b, true
}

// Spacing is the physical size of one voxel step per axis in mm, ordered
// (Z, Y, X) to match the volume layout.
type Spacing []float64

// Validate checks that every entry is positive and finite.
func (s Spacing) Validate() error {
	for i, v := range s {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("spacing[%d] = %v must be positive and finite", i, v)
		}
	}
	return nil
}

// VoxelVolumeMM3 returns the physical volume of a single voxel in mm³.
func (s Spacing) VoxelVolumeMM3() float64 {
	vol := 1.0
	for _, v := range s {
		vol *= v
	}
	return vol
}

// ScaleSet is an ordered sequence of physical Gaussian sigmas in mm.
type ScaleSet []float64

// LabelVolume holds one pseudocolor label per voxel, same layout as Volume.
type LabelVolume struct {
	Data   []uint8
	Depth  int
	Height int
	Width  int
}

// NewLabelVolume allocates a label volume filled with label 0.
func NewLabelVolume(depth, height, width int) *LabelVolume {
	return &LabelVolume{
		Data:   make([]uint8, depth*height*width),
		Depth:  depth,
		Height: height,
		Width:  width,
	}
}

// Shape returns the (Z, Y, X) extent of the label volume.
func (l *LabelVolume) Shape() Shape {
	return Shape{l.Depth, l.Height, l.Width}
}

// At returns the label at (z, y, x).
func (l *LabelVolume) At(z, y, x int) uint8 {
	return l.Data[l.Shape().Index(z, y, x)]
}
