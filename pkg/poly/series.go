package poly

import(
	"fmt"
	"math"
)

// Power-series substitution. The optical element builders express
// things like 1/sqrt(1-s) as a Maclaurin series and substitute a small
// polynomial for s; truncation keeps everything finite.

// BinomialSeries returns the Maclaurin coefficients of (1+u)^alpha up
// to and including u^n: c[k] = alpha*(alpha-1)*...*(alpha-k+1) / k!.
func BinomialSeries(alpha float64, n int) []float64 {
	c := make([]float64, n+1)
	c[0] = 1
	for k := 1; k <= n; k++ {
		c[k] = c[k-1] * (alpha - float64(k-1)) / float64(k)
	}
	return c
}

// Constant-term dust below this is treated as floating-point residue of
// a cancellation and dropped; anything larger is a real mistake.
const seriesEps = 1e-12

// ApplySeries substitutes p into the power series sum_k coeffs[k]*u^k,
// truncating at the given degree. p must have no constant term, so that
// the substituted series terminates: p^k contributes nothing below
// degree k, and terms above the truncation degree are dropped as they
// arise. A sub-epsilon constant left over from an exact cancellation is
// discarded rather than rejected.
func ApplySeries(coeffs []float64, p Poly, degree int) (Poly, error) {
	for ti, t := range p.Terms {
		if t.Degree() == 0 {
			if math.Abs(t.Coeff) > seriesEps {
				return Poly{}, fmt.Errorf("series substitution needs a zero constant term, got %g", t.Coeff)
			}
			terms := make([]Term, 0, len(p.Terms)-1)
			for i, u := range p.Terms {
				if i != ti {
					terms = append(terms, u.clone())
				}
			}
			p = Poly{NVars: p.NVars, Terms: terms}
			break
		}
	}

	acc := Poly{NVars: p.NVars}
	if len(coeffs) > 0 {
		acc = Constant(p.NVars, coeffs[0])
	}
	pk := Constant(p.NVars, 1)
	for k := 1; k < len(coeffs) && k <= degree; k++ {
		pk = pk.MulTrunc(p, degree)
		if pk.IsZero() {
			break
		}
		if coeffs[k] != 0 {
			acc = acc.Add(pk.Scale(coeffs[k]))
		}
	}
	return acc, nil
}
