// Package vesselness scores tubular structures from Hessian eigenvalues and
// fuses the response across physical scales.
package vesselness

import (
	"errors"
	"fmt"
	"math"

	"vesselscan/pkg/eigen"
)

var (
	// ErrInvalidConstant is returned when alpha, beta or c is not positive.
	ErrInvalidConstant = errors.New("vesselness: constants must be positive and finite")

	// ErrNoScales is returned when the scale set is empty.
	ErrNoScales = errors.New("vesselness: empty scale set")
)

// Default shape constants of the Frangi measure.
const (
	DefaultAlpha = 0.5
	DefaultBeta  = 0.5
)

// Scorer maps an ordered eigenvalue triplet to a Frangi vesselness score for
// bright tubular structures on a darker background.
type Scorer struct {
	// Alpha controls sensitivity to the plate-vs-line ratio Ra
	Alpha float64

	// Beta controls sensitivity to the blob ratio Rb
	Beta float64

	// C controls sensitivity to overall structure strength. Larger values
	// accept lower-contrast vessels but also more noise.
	C float64
}

// NewScorer returns a scorer with the default alpha and beta.
func NewScorer(c float64) Scorer {
	return Scorer{Alpha: DefaultAlpha, Beta: DefaultBeta, C: c}
}

// Validate checks that every constant is positive and finite.
func (s Scorer) Validate() error {
	for _, v := range []float64{s.Alpha, s.Beta, s.C} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("alpha=%v beta=%v c=%v: %w", s.Alpha, s.Beta, s.C, ErrInvalidConstant)
		}
	}
	return nil
}

// Score returns the vesselness of one voxel. The eigenvalues must be ordered
// |l1| <= |l2| <= |l3|.
//
// The score is exactly 0 unless both l2 and l3 are strictly negative (two
// large negative eigenvalues, the cross-section of a bright tube). A zero
// eigenvalue counts as positive, which also keeps the ratios finite. Otherwise
//
//	V = (1 - exp(-Ra²/2α²)) · exp(-Rb²/2β²) · (1 - exp(-S²/2c²))
//
// with Ra = |l2|/|l3|, Rb = |l1|/sqrt(|l2·l3|) and S the Euclidean norm of
// the triplet.
func (s Scorer) Score(l1, l2, l3 float64) float64 {
	if l2 >= 0 || l3 >= 0 {
		return 0
	}

	ra := math.Abs(l2) / math.Abs(l3)
	rb := math.Abs(l1) / math.Sqrt(math.Abs(l2*l3))
	st := l1*l1 + l2*l2 + l3*l3

	v := (1 - math.Exp(-(ra*ra)/(2*s.Alpha*s.Alpha))) *
		math.Exp(-(rb*rb)/(2*s.Beta*s.Beta)) *
		(1 - math.Exp(-st/(2*s.C*s.C)))

	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// ScoreAll scores every voxel of t.
func (s Scorer) ScoreAll(t eigen.Triplets) []float64 {
	out := make([]float64, t.Len())
	for i := range out {
		out[i] = s.Score(t.L1[i], t.L2[i], t.L3[i])
	}
	return out
}
