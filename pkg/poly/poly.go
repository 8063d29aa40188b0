package poly

// Truncated multivariate polynomials. These stand in for exact ray
// tracing: an optical element's action on a ray is approximated by a
// polynomial in the ray parameters, keeping terms up to some total
// degree. The polynomials here are plain value types; every operation
// returns a new value and never modifies its operands.

import(
	"fmt"
	"math"
	"sort"
	"strings"
)

// A Term is a single monomial: Coeff * prod_i x_i^Exps[i]. Exps always
// has one entry per input variable of the enclosing polynomial.
type Term struct {
	Coeff float64
	Exps  []int
}

func (t Term)Degree() int {
	d := 0
	for _, e := range t.Exps {
		d += e
	}
	return d
}

func (t Term)clone() Term {
	exps := make([]int, len(t.Exps))
	copy(exps, t.Exps)
	return Term{Coeff: t.Coeff, Exps: exps}
}

func (t Term)eval(in []float64) float64 {
	v := t.Coeff
	for i, e := range t.Exps {
		for ; e > 0; e-- {
			v *= in[i]
		}
	}
	return v
}

// A Poly is a sum of terms over NVars input variables. The zero-term
// polynomial is the zero polynomial. Terms are kept normalized: sorted
// by exponent tuple, like terms merged, zero coefficients dropped.
type Poly struct {
	NVars int
	Terms []Term
}

func NewPoly(nvars int, terms ...Term) Poly {
	p := Poly{NVars: nvars, Terms: terms}
	return p.normalize()
}

func Constant(nvars int, c float64) Poly {
	if c == 0 {
		return Poly{NVars: nvars}
	}
	return Poly{NVars: nvars, Terms: []Term{{Coeff: c, Exps: make([]int, nvars)}}}
}

// Var returns the polynomial consisting of the single variable x_i.
func Var(nvars, i int) Poly {
	exps := make([]int, nvars)
	exps[i] = 1
	return Poly{NVars: nvars, Terms: []Term{{Coeff: 1, Exps: exps}}}
}

// Monomial returns c * prod x_i^exps[i].
func Monomial(c float64, exps ...int) Term {
	return Term{Coeff: c, Exps: exps}
}

func cmpExps(a, b []int) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// normalize sorts, merges like terms and drops zeros. It takes
// ownership of p.Terms (callers constructing term slices hand them
// over; exported operations always build fresh slices first).
func (p Poly)normalize() Poly {
	if len(p.Terms) == 0 {
		return p
	}
	sort.Slice(p.Terms, func(i, j int) bool {
		return cmpExps(p.Terms[i].Exps, p.Terms[j].Exps) < 0
	})
	out := p.Terms[:0]
	for _, t := range p.Terms {
		if len(out) > 0 && cmpExps(out[len(out)-1].Exps, t.Exps) == 0 {
			out[len(out)-1].Coeff += t.Coeff
		} else {
			out = append(out, t)
		}
	}
	kept := make([]Term, 0, len(out))
	for _, t := range out {
		if t.Coeff != 0 {
			kept = append(kept, t)
		}
	}
	return Poly{NVars: p.NVars, Terms: kept}
}

func (p Poly)clone() Poly {
	terms := make([]Term, len(p.Terms))
	for i, t := range p.Terms {
		terms[i] = t.clone()
	}
	return Poly{NVars: p.NVars, Terms: terms}
}

func (p Poly)IsZero() bool { return len(p.Terms) == 0 }

// Degree returns the highest total degree present (0 for the zero poly).
func (p Poly)Degree() int {
	d := 0
	for _, t := range p.Terms {
		if td := t.Degree(); td > d {
			d = td
		}
	}
	return d
}

// Coeff returns the coefficient of the monomial with the given
// exponents, or 0 if it is not present.
func (p Poly)Coeff(exps ...int) float64 {
	for _, t := range p.Terms {
		if cmpExps(t.Exps, exps) == 0 {
			return t.Coeff
		}
	}
	return 0
}

func (p Poly)Add(q Poly) Poly {
	terms := make([]Term, 0, len(p.Terms)+len(q.Terms))
	for _, t := range p.Terms {
		terms = append(terms, t.clone())
	}
	for _, t := range q.Terms {
		terms = append(terms, t.clone())
	}
	return Poly{NVars: p.NVars, Terms: terms}.normalize()
}

func (p Poly)Sub(q Poly) Poly {
	return p.Add(q.Scale(-1))
}

func (p Poly)Scale(k float64) Poly {
	terms := make([]Term, 0, len(p.Terms))
	for _, t := range p.Terms {
		nt := t.clone()
		nt.Coeff *= k
		terms = append(terms, nt)
	}
	return Poly{NVars: p.NVars, Terms: terms}.normalize()
}

// MulTrunc multiplies two polynomials, discarding product terms whose
// total degree exceeds degree. Plain Mul is deliberately absent: every
// product in this package lives inside a truncated system.
func (p Poly)MulTrunc(q Poly, degree int) Poly {
	terms := make([]Term, 0, len(p.Terms)*len(q.Terms))
	for _, a := range p.Terms {
		for _, b := range q.Terms {
			if a.Degree()+b.Degree() > degree {
				continue
			}
			exps := make([]int, len(a.Exps))
			for i := range exps {
				exps[i] = a.Exps[i] + b.Exps[i]
			}
			terms = append(terms, Term{Coeff: a.Coeff * b.Coeff, Exps: exps})
		}
	}
	return Poly{NVars: p.NVars, Terms: terms}.normalize()
}

// Truncate drops all terms of total degree greater than degree.
func (p Poly)Truncate(degree int) Poly {
	terms := make([]Term, 0, len(p.Terms))
	for _, t := range p.Terms {
		if t.Degree() <= degree {
			terms = append(terms, t.clone())
		}
	}
	return Poly{NVars: p.NVars, Terms: terms}
}

func (p Poly)Eval(in []float64) float64 {
	v := 0.0
	for _, t := range p.Terms {
		v += t.eval(in)
	}
	return v
}

// bake substitutes in[idx] = val, dropping that variable.
func (p Poly)bake(idx int, val float64) Poly {
	terms := make([]Term, 0, len(p.Terms))
	for _, t := range p.Terms {
		exps := make([]int, 0, len(t.Exps)-1)
		c := t.Coeff
		for i, e := range t.Exps {
			if i == idx {
				c *= math.Pow(val, float64(e))
			} else {
				exps = append(exps, e)
			}
		}
		terms = append(terms, Term{Coeff: c, Exps: exps})
	}
	return Poly{NVars: p.NVars - 1, Terms: terms}.normalize()
}

// widen appends one extra input variable (exponent 0 everywhere).
func (p Poly)widen() Poly {
	terms := make([]Term, 0, len(p.Terms))
	for _, t := range p.Terms {
		exps := make([]int, len(t.Exps)+1)
		copy(exps, t.Exps)
		terms = append(terms, Term{Coeff: t.Coeff, Exps: exps})
	}
	return Poly{NVars: p.NVars + 1, Terms: terms}
}

// mulNewVar multiplies every term by the last (widened) variable.
func (p Poly)mulNewVar() Poly {
	terms := make([]Term, 0, len(p.Terms))
	for _, t := range p.Terms {
		nt := t.clone()
		nt.Exps[len(nt.Exps)-1]++
		terms = append(terms, nt)
	}
	return Poly{NVars: p.NVars, Terms: terms}
}

func (p Poly)String() string {
	if p.IsZero() {
		return "0"
	}
	frags := []string{}
	for _, t := range p.Terms {
		s := fmt.Sprintf("%g", t.Coeff)
		for i, e := range t.Exps {
			if e == 1 {
				s += fmt.Sprintf("*x%d", i)
			} else if e > 1 {
				s += fmt.Sprintf("*x%d^%d", i, e)
			}
		}
		frags = append(frags, s)
	}
	return strings.Join(frags, " + ")
}
