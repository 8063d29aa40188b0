package poly

import(
	"fmt"
	"strings"
)

// A System is a polynomial map from In inputs to Out outputs, truncated
// at total degree Degree. Each output is one Poly over the In input
// variables. Like Poly, a System is immutable: Compose, Bake, Truncate,
// Lerp and DropEquation all return new systems.
//
// Degree is part of the system's shape: composing or interpolating two
// systems of different degree is a configuration mistake and fails
// rather than silently truncating to the smaller one.
type System struct {
	In, Out int
	Degree  int
	Eqs     []Poly
}

// NewSystem returns a system whose outputs are all zero.
func NewSystem(in, out, degree int) *System {
	eqs := make([]Poly, out)
	for i := range eqs {
		eqs[i] = Poly{NVars: in}
	}
	return &System{In: in, Out: out, Degree: degree, Eqs: eqs}
}

// Identity returns the n-in/n-out system mapping every input to itself.
func Identity(n, degree int) *System {
	s := NewSystem(n, n, degree)
	for i := 0; i < n; i++ {
		s.Eqs[i] = Var(n, i)
	}
	return s
}

// Eq returns a copy of output equation i.
func (s *System)Eq(i int) Poly {
	return s.Eqs[i].clone()
}

// WithEq returns a copy of s with output equation i replaced.
func (s *System)WithEq(i int, p Poly) (*System, error) {
	if i < 0 || i >= s.Out {
		return nil, fmt.Errorf("WithEq: no output %d in %d-output system", i, s.Out)
	}
	if p.NVars != s.In {
		return nil, fmt.Errorf("WithEq: equation has %d vars, system has %d inputs", p.NVars, s.In)
	}
	t := s.shallow()
	t.Eqs[i] = p.clone()
	return t, nil
}

func (s *System)shallow() *System {
	eqs := make([]Poly, len(s.Eqs))
	for i := range s.Eqs {
		eqs[i] = s.Eqs[i].clone()
	}
	return &System{In: s.In, Out: s.Out, Degree: s.Degree, Eqs: eqs}
}

// Compose returns the system that applies s first, then t: the outputs
// of s feed the inputs of t. The result maps s.In inputs to t.Out
// outputs and is truncated to the shared degree.
func (s *System)Compose(t *System) (*System, error) {
	if s.Out != t.In {
		return nil, fmt.Errorf("compose: %d outputs feeding %d inputs", s.Out, t.In)
	}
	if s.Degree != t.Degree {
		return nil, fmt.Errorf("compose: degree mismatch %d vs %d", s.Degree, t.Degree)
	}

	deg := s.Degree

	// Cache powers of each of s's equations as they get used.
	pows := make([][]Poly, s.Out)
	for i := range pows {
		pows[i] = []Poly{Constant(s.In, 1)} // p^0
	}
	pow := func(i, e int) Poly {
		for len(pows[i]) <= e {
			k := len(pows[i])
			pows[i] = append(pows[i], pows[i][k-1].MulTrunc(s.Eqs[i], deg))
		}
		return pows[i][e]
	}

	out := NewSystem(s.In, t.Out, deg)
	for oi, eq := range t.Eqs {
		acc := Poly{NVars: s.In}
		for _, term := range eq.Terms {
			prod := Constant(s.In, term.Coeff)
			for vi, e := range term.Exps {
				if e == 0 {
					continue
				}
				prod = prod.MulTrunc(pow(vi, e), deg)
				if prod.IsZero() {
					break
				}
			}
			acc = acc.Add(prod)
		}
		out.Eqs[oi] = acc.Truncate(deg)
	}
	return out, nil
}

// Bake substitutes the input variable at index idx with the fixed value
// val, reducing the input arity by one. Indices of later variables
// shift down. Baking never raises a term's degree, so the result keeps
// the same degree bound; callers that previously raised the degree
// (e.g. via Lerp) re-truncate afterwards.
func (s *System)Bake(idx int, val float64) (*System, error) {
	if idx < 0 || idx >= s.In {
		return nil, fmt.Errorf("bake: no input %d in %d-input system", idx, s.In)
	}
	out := &System{In: s.In - 1, Out: s.Out, Degree: s.Degree, Eqs: make([]Poly, s.Out)}
	for i, eq := range s.Eqs {
		out.Eqs[i] = eq.bake(idx, val)
	}
	return out, nil
}

// Truncate drops every term of total degree above degree, in every
// equation, and records the new degree bound.
func (s *System)Truncate(degree int) *System {
	out := &System{In: s.In, Out: s.Out, Degree: degree, Eqs: make([]Poly, s.Out)}
	for i, eq := range s.Eqs {
		out.Eqs[i] = eq.Truncate(degree)
	}
	return out
}

// Lerp linearly interpolates between s (at control value x0) and t (at
// control value x1). The control value becomes a new input variable,
// appended after the existing ones. Interpolating s with itself gives
// back s (with the extra inert input). The result's degree bound rises
// by one, since the blend multiplies difference terms by the new
// variable.
func (s *System)Lerp(t *System, x0, x1 float64) (*System, error) {
	if s.In != t.In || s.Out != t.Out {
		return nil, fmt.Errorf("lerp: shape mismatch %dx%d vs %dx%d", s.In, s.Out, t.In, t.Out)
	}
	if s.Degree != t.Degree {
		return nil, fmt.Errorf("lerp: degree mismatch %d vs %d", s.Degree, t.Degree)
	}
	if x0 == x1 {
		return nil, fmt.Errorf("lerp: control points coincide at %g", x0)
	}

	inv := 1.0 / (x1 - x0)
	out := &System{In: s.In + 1, Out: s.Out, Degree: s.Degree + 1, Eqs: make([]Poly, s.Out)}
	for i := range s.Eqs {
		diff := t.Eqs[i].Sub(s.Eqs[i])
		eq := s.Eqs[i].widen()
		eq = eq.Add(diff.Scale(-x0 * inv).widen())
		eq = eq.Add(diff.Scale(inv).widen().mulNewVar())
		out.Eqs[i] = eq.normalize()
	}
	return out, nil
}

// DropEquation removes output equation idx, reducing the output arity
// by one.
func (s *System)DropEquation(idx int) (*System, error) {
	if idx < 0 || idx >= s.Out {
		return nil, fmt.Errorf("drop: no output %d in %d-output system", idx, s.Out)
	}
	out := &System{In: s.In, Out: s.Out - 1, Degree: s.Degree, Eqs: make([]Poly, 0, s.Out-1)}
	for i, eq := range s.Eqs {
		if i != idx {
			out.Eqs = append(out.Eqs, eq.clone())
		}
	}
	return out, nil
}

// Evaluate computes the output vector for a concrete input vector.
func (s *System)Evaluate(in []float64) ([]float64, error) {
	if len(in) != s.In {
		return nil, fmt.Errorf("evaluate: got %d inputs, system has %d", len(in), s.In)
	}
	out := make([]float64, s.Out)
	s.EvaluateInto(in, out)
	return out, nil
}

// EvaluateInto is the allocation-free evaluation used in sampling inner
// loops. len(in) must be s.In and len(out) must be s.Out.
func (s *System)EvaluateInto(in, out []float64) {
	for i := range s.Eqs {
		out[i] = s.Eqs[i].Eval(in)
	}
}

func (s *System)String() string {
	lines := []string{fmt.Sprintf("system[%d->%d, degree<=%d]", s.In, s.Out, s.Degree)}
	for i, eq := range s.Eqs {
		lines = append(lines, fmt.Sprintf("  out%d = %s", i, eq))
	}
	return strings.Join(lines, "\n")
}
