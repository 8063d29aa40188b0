package optics

// Polynomial transforms for individual optical elements. Each element
// maps a ray state (x, y, dx, dy) at one reference plane to the ray
// state at the next: positions on the plane in mm, directions as the
// transverse direction cosines of a unit vector headed in +z.
//
// The transforms are built symbolically: every square root and
// reciprocal in the exact geometry is expanded as a binomial series and
// substituted with truncated polynomial arithmetic. The degree-1 part
// of each element therefore matches classical matrix optics exactly,
// and higher-order terms carry the aberrations up to the requested
// degree.

import(
	"fmt"
	"math"

	"github.com/abworrall/lensblur/pkg/poly"
)

const nRayVars = 4 // x, y, dx, dy

// seriesOnePlus returns (1 + p)^alpha as a truncated polynomial; p must
// have no constant term.
func seriesOnePlus(alpha float64, p poly.Poly, degree int) (poly.Poly, error) {
	return poly.ApplySeries(poly.BinomialSeries(alpha, degree), p, degree)
}

// Propagation returns the transform for free flight over axial distance
// d: x' = x + d*dx/dz where dz = sqrt(1 - dx^2 - dy^2). Distance 0
// gives the identity.
func Propagation(d float64, degree int) (*poly.System, error) {
	if degree < 1 {
		return nil, fmt.Errorf("propagation: degree %d < 1", degree)
	}

	x := poly.Var(nRayVars, 0)
	y := poly.Var(nRayVars, 1)
	dx := poly.Var(nRayVars, 2)
	dy := poly.Var(nRayVars, 3)

	s := dx.MulTrunc(dx, degree).Add(dy.MulTrunc(dy, degree))
	invDz, err := seriesOnePlus(-0.5, s.Scale(-1), degree) // 1/sqrt(1-s)
	if err != nil {
		return nil, err
	}

	sys := poly.NewSystem(nRayVars, nRayVars, degree)
	sys.Eqs[0] = x.Add(dx.MulTrunc(invDz, degree).Scale(d))
	sys.Eqs[1] = y.Add(dy.MulTrunc(invDz, degree).Scale(d))
	sys.Eqs[2] = dx
	sys.Eqs[3] = dy
	return sys, nil
}

// TwoPlane returns the entry transform: given a point (x, y) on the
// world plane and a point (xa, ya) on a second plane a distance d
// further along the axis, produce the ray through both, expressed at
// the second plane. This is how the object-to-first-vertex hop is
// parameterized by aperture position rather than by ray angle.
func TwoPlane(d float64, degree int) (*poly.System, error) {
	if degree < 1 {
		return nil, fmt.Errorf("two-plane: degree %d < 1", degree)
	}
	if d == 0 {
		return nil, fmt.Errorf("two-plane: zero separation")
	}

	x := poly.Var(nRayVars, 0)
	y := poly.Var(nRayVars, 1)
	xa := poly.Var(nRayVars, 2)
	ya := poly.Var(nRayVars, 3)

	u := xa.Sub(x).Scale(1 / d)
	v := ya.Sub(y).Scale(1 / d)
	s := u.MulTrunc(u, degree).Add(v.MulTrunc(v, degree))
	g, err := seriesOnePlus(-0.5, s, degree) // 1/sqrt(1+s)
	if err != nil {
		return nil, err
	}

	sys := poly.NewSystem(nRayVars, nRayVars, degree)
	sys.Eqs[0] = xa
	sys.Eqs[1] = ya
	sys.Eqs[2] = u.MulTrunc(g, degree)
	sys.Eqs[3] = v.MulTrunc(g, degree)
	return sys, nil
}

// SphericalRefraction returns the transform for a spherical interface
// of radius R (center of curvature at +R on the axis), refracting from
// index n1 into n2. The ray comes in at the vertex tangent plane, is
// intersected with the sphere, refracted by the vector form of Snell's
// law, and the refracted ray is carried back to the vertex plane, so
// that successive elements can be chained plane-to-plane.
func SphericalRefraction(R, n1, n2 float64, degree int) (*poly.System, error) {
	if degree < 1 {
		return nil, fmt.Errorf("refraction: degree %d < 1", degree)
	}
	if R == 0 {
		return nil, fmt.Errorf("refraction: zero radius of curvature")
	}
	if n1 <= 0 || n2 <= 0 {
		return nil, fmt.Errorf("refraction: non-physical indices %g -> %g", n1, n2)
	}

	x := poly.Var(nRayVars, 0)
	y := poly.Var(nRayVars, 1)
	dx := poly.Var(nRayVars, 2)
	dy := poly.Var(nRayVars, 3)
	one := poly.Constant(nRayVars, 1)

	s := dx.MulTrunc(dx, degree).Add(dy.MulTrunc(dy, degree))
	dz, err := seriesOnePlus(0.5, s.Scale(-1), degree) // sqrt(1-s)
	if err != nil {
		return nil, err
	}

	// Sphere intersection from the vertex plane. The near/far branch
	// follows the sign of R so that the on-axis ray hits the vertex.
	b := x.MulTrunc(dx, degree).Add(y.MulTrunc(dy, degree)).Sub(dz.Scale(R))
	c := x.MulTrunc(x, degree).Add(y.MulTrunc(y, degree))
	disc := b.MulTrunc(b, degree).Sub(c) // constant term R^2
	sqrtDisc, err := seriesOnePlus(0.5, disc.Sub(poly.Constant(nRayVars, R*R)).Scale(1/(R*R)), degree)
	if err != nil {
		return nil, err
	}
	sqrtDisc = sqrtDisc.Scale(math.Abs(R))
	sgn := 1.0
	if R < 0 {
		sgn = -1.0
	}
	t := b.Scale(-1).Sub(sqrtDisc.Scale(sgn)) // no constant term: on-axis hit is the vertex

	px := x.Add(t.MulTrunc(dx, degree))
	py := y.Add(t.MulTrunc(dy, degree))
	pz := t.MulTrunc(dz, degree)

	// Unit normal (P - C)/R, pointing against the incoming ray.
	nx := px.Scale(1 / R)
	ny := py.Scale(1 / R)
	nz := pz.Scale(1 / R).Sub(one)

	eta := n1 / n2
	cosI := dx.MulTrunc(nx, degree).Add(dy.MulTrunc(ny, degree)).Add(dz.MulTrunc(nz, degree)).Scale(-1)
	// cos of the refracted angle: sqrt(1 - eta^2*(1 - cosI^2)), built as
	// sqrt(1 + eta^2*(cosI^2 - 1)) so the constant cancels exactly.
	w := cosI.MulTrunc(cosI, degree).Sub(one).Scale(eta * eta)
	cosT, err := seriesOnePlus(0.5, w, degree)
	if err != nil {
		return nil, err
	}

	k := cosI.Scale(eta).Sub(cosT)
	tx := dx.Scale(eta).Add(k.MulTrunc(nx, degree))
	ty := dy.Scale(eta).Add(k.MulTrunc(ny, degree))
	tz := dz.Scale(eta).Add(k.MulTrunc(nz, degree))

	// Carry the refracted ray back to the vertex plane: P - (Pz/Tz)*T.
	invTz, err := seriesOnePlus(-1, tz.Sub(one), degree)
	if err != nil {
		return nil, err
	}
	back := pz.MulTrunc(invTz, degree)

	sys := poly.NewSystem(nRayVars, nRayVars, degree)
	sys.Eqs[0] = px.Sub(back.MulTrunc(tx, degree))
	sys.Eqs[1] = py.Sub(back.MulTrunc(ty, degree))
	sys.Eqs[2] = tx
	sys.Eqs[3] = ty
	return sys, nil
}
