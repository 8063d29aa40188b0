package optics

// The spectral compositor. Building the full transform is expensive, so
// rather than rebuild per wavelength bin, the system is sampled at two
// wavelengths and linearly interpolated between them. That is a
// straight-line stand-in for the glass dispersion curves, good enough
// across the visible range for a defocus effect.

import(
	"fmt"

	"github.com/abworrall/lensblur/pkg/poly"
)

// BuildChromatic samples the prescription at lambda0 and lambda1 (nm),
// composes each with free flight over focusDist, and interpolates. The
// result takes (world-x, world-y, aperture-x, aperture-y, lambda) and
// returns (sensor-x, sensor-y, angle term), where the angle term is
// sin^2 of the exit angle, i.e. 1 - cos^2: the two transverse direction
// derivatives squared and summed, replacing them both. The renderer
// turns that into the Lambertian falloff, and never needs the raw
// directions, so the fourth output is dropped.
//
// The result's degree bound is degree+1 (interpolation multiplies by
// the wavelength variable); baking a concrete wavelength and
// re-truncating to the working degree restores it.
func BuildChromatic(p Prescription, focusDist, lambda0, lambda1 float64, degree int) (*poly.System, error) {
	prop, err := Propagation(focusDist, degree)
	if err != nil {
		return nil, err
	}

	build := func(lambda float64) (*poly.System, error) {
		sys, err := p.Build(lambda, degree)
		if err != nil {
			return nil, err
		}
		return sys.Compose(prop)
	}

	sys0, err := build(lambda0)
	if err != nil {
		return nil, fmt.Errorf("chromatic sample at %gnm: %v", lambda0, err)
	}
	sys1, err := build(lambda1)
	if err != nil {
		return nil, fmt.Errorf("chromatic sample at %gnm: %v", lambda1, err)
	}

	lerped, err := sys0.Lerp(sys1, lambda0, lambda1)
	if err != nil {
		return nil, fmt.Errorf("chromatic lerp: %v", err)
	}

	dx := lerped.Eq(2)
	dy := lerped.Eq(3)
	sinSq := dx.MulTrunc(dx, degree).Add(dy.MulTrunc(dy, degree))
	lerped, err = lerped.WithEq(2, sinSq)
	if err != nil {
		return nil, err
	}
	return lerped.DropEquation(3)
}
