package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vesselscan/internal/models"
)

func TestParseTriple(t *testing.T) {
	got, err := parseTriple("2.5, 0.7,0.7")
	require.NoError(t, err)
	assert.Equal(t, [3]float64{2.5, 0.7, 0.7}, got)

	_, err = parseTriple("1,1")
	assert.Error(t, err)
	_, err = parseTriple("1,a,1")
	assert.Error(t, err)
}

func TestParseList(t *testing.T) {
	got, err := parseList("1, 2,3.5")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3.5}, got)

	got, err = parseList("  ")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParseShape(t *testing.T) {
	got, err := parseShape("4,5,6")
	require.NoError(t, err)
	assert.Equal(t, models.Shape{4, 5, 6}, got)

	for _, bad := range []string{"0,5,6", "4,5.5,6", "-1,2,3"} {
		_, err := parseShape(bad)
		assert.Error(t, err, bad)
	}
}

func TestFloat32VolumeRoundTrip(t *testing.T) {
	vol := models.NewVolume(2, 3, 4)
	for i := range vol.Data {
		vol.Data[i] = float64(i)*10 - 1000
	}

	var buf bytes.Buffer
	require.NoError(t, writeFloat32Volume(&buf, vol))
	assert.Equal(t, 4*len(vol.Data), buf.Len())

	got, err := readFloat32Volume(&buf, vol.Shape())
	require.NoError(t, err)
	assert.Equal(t, vol.Data, got.Data)
}

func TestReadFloat32VolumeShort(t *testing.T) {
	_, err := readFloat32Volume(bytes.NewReader(make([]byte, 10)), models.Shape{2, 2, 2})
	assert.Error(t, err)
}

func TestReadMask(t *testing.T) {
	mask, err := readMask(bytes.NewReader([]byte{0, 1, 0, 255}), models.Shape{1, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, false, true}, mask.Data)

	_, err = readMask(bytes.NewReader([]byte{1}), models.Shape{1, 2, 2})
	assert.Error(t, err)
}

func TestBuildInputPhantom(t *testing.T) {
	in, err := buildInput("vessel-rib", "", "", "", "1,1,1", "2")
	require.NoError(t, err)
	assert.Equal(t, models.Shape{50, 50, 50}, in.Volume.Shape())
	assert.Equal(t, models.ScaleSet{2}, in.Scales)
	assert.Nil(t, in.Mask)

	_, err = buildInput("donut", "", "", "", "1,1,1", "")
	assert.Error(t, err)
}
