package optics

// A lens design as a fixed sequence of interfaces. Distances and radii
// are millimeters, following optical engineering convention: a positive
// radius curves toward the incoming light's side of the axis.

import(
	"fmt"

	"github.com/abworrall/lensblur/pkg/poly"
)

type InterfaceKind int

const (
	KindTwoPlane InterfaceKind = iota // world plane to first vertex plane
	KindSpherical                     // refracting spherical surface
	KindPropagation                   // homogeneous gap between vertices
)

// An Interface is one step of light's journey through the lens. It is
// immutable once constructed.
type Interface struct {
	Kind     InterfaceKind
	Radius   float64 // KindSpherical
	Distance float64 // KindTwoPlane, KindPropagation
	Before   Glass   // KindSpherical: medium on the incoming side
	After    Glass   // KindSpherical: medium on the outgoing side
}

func (itf Interface)String() string {
	switch itf.Kind {
	case KindTwoPlane:
		return fmt.Sprintf("entry(d=%g)", itf.Distance)
	case KindSpherical:
		return fmt.Sprintf("sphere(R=%g, %s->%s)", itf.Radius, itf.Before, itf.After)
	case KindPropagation:
		return fmt.Sprintf("gap(d=%g)", itf.Distance)
	}
	return "unknown interface"
}

// A Prescription is an ordered sequence of interfaces plus a name, in
// the order light traverses them.
type Prescription struct {
	Name       string
	Interfaces []Interface
}

// NewAchromatPrescription builds a cemented achromatic doublet from its
// three surface radii, two center thicknesses and two glasses, imaging
// an object plane at objectDist.
func NewAchromatPrescription(name string, objectDist, r1, d1 float64, g1 Glass, r2, d2 float64, g2 Glass, r3 float64) Prescription {
	return Prescription{
		Name: name,
		Interfaces: []Interface{
			{Kind: KindTwoPlane, Distance: objectDist},
			{Kind: KindSpherical, Radius: r1, Before: Air, After: g1},
			{Kind: KindPropagation, Distance: d1},
			{Kind: KindSpherical, Radius: r2, Before: g1, After: g2},
			{Kind: KindPropagation, Distance: d2},
			{Kind: KindSpherical, Radius: r3, Before: g2, After: Air},
		},
	}
}

// ObjectDistance returns the distance from the world plane to the first
// vertex, taken from the entry interface.
func (p Prescription)ObjectDistance() float64 {
	for _, itf := range p.Interfaces {
		if itf.Kind == KindTwoPlane {
			return itf.Distance
		}
	}
	return 0
}

// Glasses returns every named glass in the prescription.
func (p Prescription)Glasses() []Glass {
	seen := map[Glass]bool{}
	out := []Glass{}
	for _, itf := range p.Interfaces {
		if itf.Kind != KindSpherical {
			continue
		}
		for _, g := range []Glass{itf.Before, itf.After} {
			if g != Air && !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	return out
}

func (p Prescription)String() string {
	s := p.Name + ":"
	for _, itf := range p.Interfaces {
		s += " " + itf.String()
	}
	return s
}

// Build composes the whole prescription into one polynomial transform
// at the given wavelength: (world-x, world-y, aperture-x, aperture-y)
// in, (x, y, dx, dy) at the back vertex plane out. Pure function of
// wavelength and degree; refractive indices are resolved per call since
// they are what varies across the spectrum.
func (p Prescription)Build(lambdaNm float64, degree int) (*poly.System, error) {
	if len(p.Interfaces) == 0 {
		return nil, fmt.Errorf("%s: empty prescription", p.Name)
	}

	var sys *poly.System
	for i, itf := range p.Interfaces {
		var (
			elem *poly.System
			err  error
		)
		switch itf.Kind {
		case KindTwoPlane:
			elem, err = TwoPlane(itf.Distance, degree)
		case KindPropagation:
			elem, err = Propagation(itf.Distance, degree)
		case KindSpherical:
			var n1, n2 float64
			if n1, err = IndexAt(itf.Before, lambdaNm); err == nil {
				if n2, err = IndexAt(itf.After, lambdaNm); err == nil {
					elem, err = SphericalRefraction(itf.Radius, n1, n2, degree)
				}
			}
		default:
			err = fmt.Errorf("unknown interface kind %d", itf.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("%s interface %d (%s): %v", p.Name, i, itf, err)
		}

		if sys == nil {
			sys = elem
		} else if sys, err = sys.Compose(elem); err != nil {
			return nil, fmt.Errorf("%s interface %d (%s): %v", p.Name, i, itf, err)
		}
	}
	return sys, nil
}
