// Package report computes descriptive statistics of a vesselness analysis
// and renders them as text and plots.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"vesselscan/internal/models"
	"vesselscan/pkg/pseudocolor"
)

// DefaultHighThreshold is the score above which a voxel counts as vessel-like.
const DefaultHighThreshold = 0.5

// Summary holds descriptive statistics over the masked voxels. It carries no
// clinical interpretation.
type Summary struct {
	MaskedVoxels  int
	MaskVolumeCM3 float64

	// Vesselness distribution
	Mean   float64
	StdDev float64
	Max    float64
	P95    float64
	P99    float64

	HighThreshold float64
	HighCount     int
	HighFraction  float64

	// Tissue labels inside the mask
	LabelCounts    [pseudocolor.NumLabels]int
	LabelVolumeCM3 [pseudocolor.NumLabels]float64
}

// Summarize computes statistics of scores, the per-voxel vesselness in
// mask-iteration order. labels may be nil, in which case label statistics
// are left at zero; a nil mask counts labels over the whole volume.
//
// Parameters:
//   - scores: vesselness of each masked voxel
//   - labels: full-size pseudocolor label volume, or nil
//   - mask: region of interest the scores were computed over
//   - spacing: voxel spacing in mm, used for physical volumes
//   - threshold: scores strictly above it count as high
func Summarize(scores []float64, labels *models.LabelVolume, mask *models.Mask, spacing models.Spacing, threshold float64) Summary {
	s := Summary{
		MaskedVoxels:  len(scores),
		HighThreshold: threshold,
	}
	voxelCM3 := spacing.VoxelVolumeMM3() / 1000
	s.MaskVolumeCM3 = float64(len(scores)) * voxelCM3

	if len(scores) > 0 {
		s.Mean, s.StdDev = stat.MeanStdDev(scores, nil)
		if len(scores) < 2 || math.IsNaN(s.StdDev) {
			s.StdDev = 0
		}
		s.Max = floats.Max(scores)

		sorted := append([]float64(nil), scores...)
		sort.Float64s(sorted)
		s.P95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
		s.P99 = stat.Quantile(0.99, stat.Empirical, sorted, nil)

		for _, v := range scores {
			if v > threshold {
				s.HighCount++
			}
		}
		s.HighFraction = float64(s.HighCount) / float64(len(scores))
	}

	if labels != nil {
		s.LabelCounts = pseudocolor.CountsMasked(labels, mask)
		for l, n := range s.LabelCounts {
			s.LabelVolumeCM3[l] = float64(n) * voxelCM3
		}
	}
	return s
}

// Write prints the summary in a human-readable form.
func (s Summary) Write(w io.Writer) error {
	lines := []string{
		"Vesselness Summary:",
		"===================",
		fmt.Sprintf("Masked voxels: %d (%.2f cm³)", s.MaskedVoxels, s.MaskVolumeCM3),
		fmt.Sprintf("Mean ± SD: %.4f ± %.4f", s.Mean, s.StdDev),
		fmt.Sprintf("Max: %.4f  P95: %.4f  P99: %.4f", s.Max, s.P95, s.P99),
		fmt.Sprintf("Voxels above %.2f: %d (%.2f%%)", s.HighThreshold, s.HighCount, 100*s.HighFraction),
		"",
		"Tissue labels in mask:",
	}
	for _, l := range pseudocolor.Labels() {
		lines = append(lines, fmt.Sprintf("- %-12s %8d voxels  %8.2f cm³", l.String()+":", s.LabelCounts[l], s.LabelVolumeCM3[l]))
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
