// Package eigen solves the eigenvalues of symmetric 3x3 tensors in closed form.
package eigen

import (
	"math"
	"runtime"
	"sync"

	"vesselscan/pkg/hessian"
)

// Triplets holds three eigenvalues per voxel, ordered so that
// |L1[i]| <= |L2[i]| <= |L3[i]|.
type Triplets struct {
	L1, L2, L3 []float64
}

// Len returns the number of voxels.
func (t Triplets) Len() int {
	return len(t.L1)
}

// At returns the ordered eigenvalues of voxel i.
func (t Triplets) At(i int) [3]float64 {
	return [3]float64{t.L1[i], t.L2[i], t.L3[i]}
}

// Solver computes eigenvalues for many tensors at once. Workers bounds the
// goroutines used per call; zero means runtime.NumCPU().
type Solver struct {
	Workers int
}

// minChunk keeps goroutine overhead negligible for small inputs.
const minChunk = 4096

// SymmetricEigenvalues solves every tensor in e using all available CPUs.
func SymmetricEigenvalues(e *hessian.Elements) Triplets {
	return (&Solver{}).Solve(e)
}

// Solve returns the ordered eigenvalues of every tensor in e. Entry i of the
// result corresponds to entry i of e, for both dense and compact elements.
func (s *Solver) Solve(e *hessian.Elements) Triplets {
	n := e.Len()
	out := Triplets{
		L1: make([]float64, n),
		L2: make([]float64, n),
		L3: make([]float64, n),
	}

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if limit := (n + minChunk - 1) / minChunk; workers > limit {
		workers = limit
	}
	if workers <= 1 {
		solveRange(e, out, 0, n)
		return out
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			solveRange(e, out, start, end)
		}(start, end)
	}
	wg.Wait()
	return out
}

func solveRange(e *hessian.Elements, out Triplets, start, end int) {
	for i := start; i < end; i++ {
		l := Eigenvalues3(e.Hzz[i], e.Hzy[i], e.Hzx[i], e.Hyy[i], e.Hyx[i], e.Hxx[i])
		out.L1[i], out.L2[i], out.L3[i] = l[0], l[1], l[2]
	}
}

// Eigenvalues3 returns the eigenvalues of the symmetric matrix
//
//	| a  d  e |
//	| d  b  f |
//	| e  f  c |
//
// ordered by ascending absolute value (ties broken by ascending signed
// value). No iteration is involved: the trigonometric closed form only
// supplies the root that is well separated from the other two, and the
// remaining pair comes from the 2x2 block in the orthogonal complement of
// its eigenvector (Eberly's robust non-iterative method). Repeated
// eigenvalues therefore stay equal to rounding precision. Tensors with
// non-finite entries yield zeros.
func Eigenvalues3(a, d, e, b, f, c float64) [3]float64 {
	if !finite(a, b, c, d, e, f) {
		return [3]float64{}
	}

	var l [3]float64
	if d == 0 && e == 0 && f == 0 {
		l = [3]float64{a, b, c}
	} else {
		// power-of-two scaling is exact and keeps squares in range
		limit := math.Max(math.Max(math.Abs(a), math.Abs(b)), math.Abs(c))
		limit = math.Max(limit, math.Max(math.Max(math.Abs(d), math.Abs(e)), math.Abs(f)))
		_, exp := math.Frexp(limit)
		down := math.Ldexp(1, -exp)

		l = solveScaled(a*down, d*down, e*down, b*down, f*down, c*down)
		for i := range l {
			l[i] = math.Ldexp(l[i], exp)
		}
	}

	sortByMagnitude(&l)
	return l
}

// solveScaled handles a matrix with at least one non-zero off-diagonal entry
// and entries bounded by 1 in magnitude.
func solveScaled(a, d, e, b, f, c float64) [3]float64 {
	q := (a + b + c) / 3
	b00, b11, b22 := a-q, b-q, c-q
	p := math.Sqrt((b00*b00 + b11*b11 + b22*b22 + 2*(d*d+e*e+f*f)) / 6)
	if p == 0 {
		return [3]float64{a, b, c}
	}

	c00 := b11*b22 - f*f
	c01 := d*b22 - f*e
	c02 := d*f - b11*e
	halfDet := (b00*c00 - d*c01 + e*c02) / (2 * p * p * p)
	halfDet = math.Max(-1, math.Min(1, halfDet))

	angle := math.Acos(halfDet) / 3
	beta2 := 2 * math.Cos(angle)
	beta0 := 2 * math.Cos(angle+2*math.Pi/3)
	beta1 := -(beta0 + beta2)

	// the extreme root on the side of halfDet is insensitive to acos error
	sep := p * beta0
	if halfDet >= 0 {
		sep = p * beta2
	}

	v, ok := nullVector(b00-sep, d, e, b11-sep, f, b22-sep)
	if !ok {
		return [3]float64{q + p*beta0, q + p*beta1, q + p*beta2}
	}
	u, w := complement(v)

	bu := [3]float64{
		b00*u[0] + d*u[1] + e*u[2],
		d*u[0] + b11*u[1] + f*u[2],
		e*u[0] + f*u[1] + b22*u[2],
	}
	bw := [3]float64{
		b00*w[0] + d*w[1] + e*w[2],
		d*w[0] + b11*w[1] + f*w[2],
		e*w[0] + f*w[1] + b22*w[2],
	}
	m00 := dot(u, bu)
	m01 := dot(w, bu)
	m11 := dot(w, bw)

	mid := (m00 + m11) / 2
	half := math.Hypot(m00-m11, 2*m01) / 2
	return [3]float64{q + sep, q + mid - half, q + mid + half}
}

// nullVector returns a unit vector spanning the null space of the rank-2
// symmetric matrix with the given entries, using the largest cross product
// of two rows.
func nullVector(a, d, e, b, f, c float64) ([3]float64, bool) {
	r0 := [3]float64{a, d, e}
	r1 := [3]float64{d, b, f}
	r2 := [3]float64{e, f, c}

	best := cross(r0, r1)
	bestNorm := dot(best, best)
	for _, x := range [][3]float64{cross(r0, r2), cross(r1, r2)} {
		if n := dot(x, x); n > bestNorm {
			best, bestNorm = x, n
		}
	}
	if bestNorm == 0 || math.IsInf(bestNorm, 0) {
		return [3]float64{}, false
	}
	inv := 1 / math.Sqrt(bestNorm)
	return [3]float64{best[0] * inv, best[1] * inv, best[2] * inv}, true
}

// complement returns two unit vectors that form a right-handed orthonormal
// basis together with the unit vector v.
func complement(v [3]float64) (u, w [3]float64) {
	if math.Abs(v[0]) > math.Abs(v[1]) {
		inv := 1 / math.Sqrt(v[0]*v[0]+v[2]*v[2])
		u = [3]float64{-v[2] * inv, 0, v[0] * inv}
	} else {
		inv := 1 / math.Sqrt(v[1]*v[1]+v[2]*v[2])
		u = [3]float64{0, v[2] * inv, -v[1] * inv}
	}
	return u, cross(v, u)
}

func cross(x, y [3]float64) [3]float64 {
	return [3]float64{
		x[1]*y[2] - x[2]*y[1],
		x[2]*y[0] - x[0]*y[2],
		x[0]*y[1] - x[1]*y[0],
	}
}

func dot(x, y [3]float64) float64 {
	return x[0]*y[0] + x[1]*y[1] + x[2]*y[2]
}

// sortByMagnitude orders three values by ascending |v|, then by signed value.
func sortByMagnitude(l *[3]float64) {
	less := func(x, y float64) bool {
		ax, ay := math.Abs(x), math.Abs(y)
		if ax != ay {
			return ax < ay
		}
		return x < y
	}
	if less(l[1], l[0]) {
		l[0], l[1] = l[1], l[0]
	}
	if less(l[2], l[1]) {
		l[1], l[2] = l[2], l[1]
	}
	if less(l[1], l[0]) {
		l[0], l[1] = l[1], l[0]
	}
}

func finite(v ...float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
