package optics

// An exact single-ray tracer over the same prescription geometry. The
// polynomial systems are approximations; this is the ground truth they
// approximate, used for validation and spot diagrams. It never feeds
// the renderer.

import(
	"fmt"
	"math"
)

// A Ray is a position on the current vertex plane plus a unit direction
// headed in +z. Z is kept explicitly only between intersection and
// back-projection; rays handed between elements always sit at z=0 of
// the next element's frame.
type Ray struct {
	X, Y, Z    float64
	DX, DY, DZ float64
}

// TraceEntry traces the exact ray defined by a world-plane point and an
// aperture-plane point through the whole prescription at one
// wavelength, returning the exit ray at the back vertex plane.
func (p Prescription)TraceEntry(lambdaNm, worldX, worldY, apX, apY float64) (Ray, error) {
	var r Ray
	started := false

	for i, itf := range p.Interfaces {
		var err error
		switch itf.Kind {
		case KindTwoPlane:
			r = entryRay(itf.Distance, worldX, worldY, apX, apY)
			started = true
		case KindPropagation:
			r = r.propagate(itf.Distance)
		case KindSpherical:
			var n1, n2 float64
			if n1, err = IndexAt(itf.Before, lambdaNm); err == nil {
				if n2, err = IndexAt(itf.After, lambdaNm); err == nil {
					r, err = r.refractSphere(itf.Radius, n1, n2)
				}
			}
		}
		if err != nil {
			return Ray{}, fmt.Errorf("%s interface %d (%s): %v", p.Name, i, itf, err)
		}
		if !started {
			return Ray{}, fmt.Errorf("%s: first interface must be the two-plane entry", p.Name)
		}
	}
	return r, nil
}

func entryRay(d, worldX, worldY, apX, apY float64) Ray {
	dx := apX - worldX
	dy := apY - worldY
	norm := math.Sqrt(dx*dx + dy*dy + d*d)
	return Ray{
		X: apX, Y: apY, Z: 0,
		DX: dx / norm, DY: dy / norm, DZ: d / norm,
	}
}

func (r Ray)propagate(d float64) Ray {
	t := d / r.DZ
	return Ray{
		X: r.X + t*r.DX, Y: r.Y + t*r.DY, Z: 0,
		DX: r.DX, DY: r.DY, DZ: r.DZ,
	}
}

// refractSphere intersects the ray with the sphere of radius R whose
// vertex sits at the plane origin, refracts n1 -> n2, and carries the
// refracted ray back to the vertex plane.
func (r Ray)refractSphere(R, n1, n2 float64) (Ray, error) {
	// Sphere center is at (0, 0, R); r.Z is 0 here.
	b := r.X*r.DX + r.Y*r.DY - R*r.DZ
	c := r.X*r.X + r.Y*r.Y
	disc := b*b - c
	if disc < 0 {
		return Ray{}, fmt.Errorf("ray misses surface (R=%g)", R)
	}
	sgn := 1.0
	if R < 0 {
		sgn = -1.0
	}
	t := -b - sgn*math.Sqrt(disc)

	px := r.X + t*r.DX
	py := r.Y + t*r.DY
	pz := t * r.DZ

	// Unit normal against the incoming ray.
	nx := px / R
	ny := py / R
	nz := (pz - R) / R

	eta := n1 / n2
	cosI := -(r.DX*nx + r.DY*ny + r.DZ*nz)
	sinT2 := eta * eta * (1 - cosI*cosI)
	if sinT2 > 1 {
		return Ray{}, fmt.Errorf("total internal reflection (R=%g, n %g->%g)", R, n1, n2)
	}
	cosT := math.Sqrt(1 - sinT2)

	k := eta*cosI - cosT
	tx := eta*r.DX + k*nx
	ty := eta*r.DY + k*ny
	tz := eta*r.DZ + k*nz

	back := pz / tz
	return Ray{
		X: px - back*tx, Y: py - back*ty, Z: 0,
		DX: tx, DY: ty, DZ: tz,
	}, nil
}
