package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeIndexCoords(t *testing.T) {
	s := Shape{3, 4, 5}
	assert.Equal(t, 60, s.Len())
	assert.Equal(t, "3x4x5", s.String())

	for idx := 0; idx < s.Len(); idx++ {
		z, y, x := s.Coords(idx)
		require.Equal(t, idx, s.Index(z, y, x))
	}
	assert.Equal(t, 1*20+2*5+3, s.Index(1, 2, 3))
}

func TestVolumeAccessors(t *testing.T) {
	v := NewVolume(2, 3, 4)
	require.NoError(t, v.Validate())
	assert.Equal(t, Shape{2, 3, 4}, v.Shape())
	assert.Equal(t, 3, v.Dims())

	v.Set(1, 2, 3, 7)
	assert.Equal(t, 7.0, v.At(1, 2, 3))
	assert.Equal(t, 7.0, v.Data[len(v.Data)-1])

	c := v.Clone()
	c.Set(1, 2, 3, 8)
	assert.Equal(t, 7.0, v.At(1, 2, 3), "clone must not share data")

	f := NewVolumeFilled(1, 1, 2, -1000)
	assert.Equal(t, []float64{-1000, -1000}, f.Data)
}

func TestVolumeValidate(t *testing.T) {
	var nilVol *Volume
	assert.Error(t, nilVol.Validate())
	assert.Error(t, (&Volume{Depth: 0, Height: 1, Width: 1}).Validate())
	assert.Error(t, (&Volume{Depth: 1, Height: 1, Width: 2, Data: []float64{1}}).Validate())
}

func TestMask(t *testing.T) {
	m := NewMask(2, 3, 4)
	assert.Zero(t, m.Count())
	assert.Empty(t, m.Indices())
	_, ok := m.BoundingBox()
	assert.False(t, ok)

	m.Set(1, 2, 3, true)
	m.Set(0, 1, 1, true)
	assert.Equal(t, 2, m.Count())
	assert.Equal(t, []int{m.Shape().Index(0, 1, 1), m.Shape().Index(1, 2, 3)}, m.Indices())

	b, ok := m.BoundingBox()
	require.True(t, ok)
	assert.Equal(t, Shape{0, 1, 1}, b.Min)
	assert.Equal(t, Shape{2, 3, 4}, b.Max)
	assert.Equal(t, Shape{2, 2, 3}, b.Size())
	assert.False(t, b.Empty())

	full := FullMask(Shape{2, 2, 2})
	assert.Equal(t, 8, full.Count())
}

func TestSpacing(t *testing.T) {
	assert.NoError(t, Spacing{2.5, 0.7, 0.7}.Validate())
	assert.InDelta(t, 1.225, Spacing{2.5, 0.7, 0.7}.VoxelVolumeMM3(), 1e-12)

	for _, bad := range []Spacing{{1, 0, 1}, {1, -1, 1}, {math.NaN(), 1, 1}, {math.Inf(1), 1, 1}} {
		assert.Error(t, bad.Validate(), "%v", bad)
	}
}

func TestLabelVolume(t *testing.T) {
	l := NewLabelVolume(1, 2, 2)
	l.Data[3] = 5
	assert.Equal(t, Shape{1, 2, 2}, l.Shape())
	assert.Equal(t, uint8(5), l.At(0, 1, 1))
}
