// Package pseudocolor maps CT intensities in Hounsfield Units to a small set
// of tissue categories using fixed, non-overlapping bands.
package pseudocolor

import (
	"errors"
	"fmt"
	"math"

	"vesselscan/internal/models"
)

// ErrInvalidVolume is returned by Classify when the volume data does not
// match its declared shape.
var ErrInvalidVolume = errors.New("pseudocolor: invalid volume")

// Label is a tissue category in 0..5.
type Label uint8

const (
	Unclassified Label = iota
	Air
	SoftTissue
	Thrombus
	Blood
	Bone
)

// NumLabels is the number of distinct labels, Unclassified included.
const NumLabels = 6

// Band edges in HU.
const (
	AirMin      = -1000.0
	AirMax      = -400.0
	ThrombusMin = 30.0
	ThrombusMax = 100.0
	BloodMin    = 150.0
	BloodMax    = 500.0
)

var labelNames = [NumLabels]string{
	"Unclassified",
	"Air",
	"Soft tissue",
	"Thrombus",
	"Blood",
	"Bone",
}

// String returns the category name.
func (l Label) String() string {
	if int(l) < NumLabels {
		return labelNames[l]
	}
	return "Unclassified"
}

// Labels returns every label in ascending order.
func Labels() []Label {
	return []Label{Unclassified, Air, SoftTissue, Thrombus, Blood, Bone}
}

// ClassifyValue returns the label of a single HU value:
//
//	1 Air          -1000 <= v <= -400
//	2 Soft tissue   -400 <  v <  30
//	3 Thrombus        30 <= v <= 100
//	4 Blood          150 <  v <= 500
//	5 Bone                  v >  500
//
// Everything else, including NaN, values below -1000 and the (100, 150]
// gap between thrombus and blood, is Unclassified.
func ClassifyValue(v float64) Label {
	switch {
	case math.IsNaN(v):
		return Unclassified
	case v >= AirMin && v <= AirMax:
		return Air
	case v > AirMax && v < ThrombusMin:
		return SoftTissue
	case v >= ThrombusMin && v <= ThrombusMax:
		return Thrombus
	case v > BloodMin && v <= BloodMax:
		return Blood
	case v > BloodMax:
		return Bone
	default:
		return Unclassified
	}
}

// Classify labels every voxel of vol. The result has the same shape.
func Classify(vol *models.Volume) (*models.LabelVolume, error) {
	if err := vol.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidVolume)
	}
	out := models.NewLabelVolume(vol.Depth, vol.Height, vol.Width)
	for i, v := range vol.Data {
		out.Data[i] = uint8(ClassifyValue(v))
	}
	return out, nil
}

// ClassifySlice labels a flat sequence of HU values.
func ClassifySlice(values []float64) []Label {
	out := make([]Label, len(values))
	for i, v := range values {
		out[i] = ClassifyValue(v)
	}
	return out
}

// Counts tallies the voxels of each label. Values outside 0..5 count as
// Unclassified.
func Counts(labels *models.LabelVolume) [NumLabels]int {
	var counts [NumLabels]int
	for _, l := range labels.Data {
		if int(l) >= NumLabels {
			l = uint8(Unclassified)
		}
		counts[l]++
	}
	return counts
}

// CountsMasked tallies only the voxels selected by mask. A nil mask counts
// every voxel. Voxels beyond the shorter of labels and mask are ignored.
func CountsMasked(labels *models.LabelVolume, mask *models.Mask) [NumLabels]int {
	if mask == nil {
		return Counts(labels)
	}
	var counts [NumLabels]int
	for i, l := range labels.Data {
		if i >= len(mask.Data) {
			break
		}
		if !mask.Data[i] {
			continue
		}
		if int(l) >= NumLabels {
			l = uint8(Unclassified)
		}
		counts[l]++
	}
	return counts
}
