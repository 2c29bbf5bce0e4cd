package eigen

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Reference solves one tensor with gonum's iterative symmetric eigensolver
// and applies the same magnitude ordering as Eigenvalues3. It is much slower
// than the closed form and exists to cross-check it.
func Reference(a, d, e, b, f, c float64) ([3]float64, error) {
	sym := mat.NewSymDense(3, []float64{
		a, d, e,
		d, b, f,
		e, f, c,
	})

	var es mat.EigenSym
	if ok := es.Factorize(sym, false); !ok {
		return [3]float64{}, fmt.Errorf("eigen: reference factorization failed")
	}
	vals := es.Values(nil)
	l := [3]float64{vals[0], vals[1], vals[2]}
	sortByMagnitude(&l)
	return l, nil
}
