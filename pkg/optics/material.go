package optics

// Refractive index lookup. Dispersion is modeled with the three-term
// Sellmeier equation using Schott catalog coefficients; this is what
// makes the lens transform wavelength-dependent.

import(
	"fmt"
	"math"
)

type Glass string

const (
	Air   Glass = "air"
	NBK7  Glass = "N-BK7"
	NSSK8 Glass = "N-SSK8"
	NSF10 Glass = "N-SF10"
)

// Sellmeier: n^2 = 1 + sum_i B[i]*l^2 / (l^2 - C[i]), wavelength l in
// micrometers, C in micrometers squared.
type sellmeier struct {
	B [3]float64
	C [3]float64
}

var catalog = map[Glass]sellmeier{
	NBK7: {
		B: [3]float64{1.03961212, 0.231792344, 1.01046945},
		C: [3]float64{0.00600069867, 0.0200179144, 103.560653},
	},
	NSSK8: {
		B: [3]float64{1.44857867, 0.117965926, 1.06937528},
		C: [3]float64{0.00869310149, 0.0421566593, 111.300666},
	},
	NSF10: {
		B: [3]float64{1.62153902, 0.256287842, 1.64447552},
		C: [3]float64{0.0122241457, 0.0595736775, 147.468793},
	},
}

// KnownGlass reports whether g can be resolved to a refractive index.
func KnownGlass(g Glass) bool {
	if g == Air {
		return true
	}
	_, ok := catalog[g]
	return ok
}

// IndexAt returns the refractive index of g at the given wavelength in
// nanometers.
func IndexAt(g Glass, lambdaNm float64) (float64, error) {
	if g == Air {
		return 1.0, nil
	}
	sm, ok := catalog[g]
	if !ok {
		return 0, fmt.Errorf("unknown glass %q", g)
	}
	if lambdaNm < 300 || lambdaNm > 1100 {
		return 0, fmt.Errorf("wavelength %gnm outside the %s dispersion fit", lambdaNm, g)
	}

	l2 := (lambdaNm / 1000.0) * (lambdaNm / 1000.0)
	n2 := 1.0
	for i := 0; i < 3; i++ {
		n2 += sm.B[i] * l2 / (l2 - sm.C[i])
	}
	return math.Sqrt(n2), nil
}
