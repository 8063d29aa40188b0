package optics

// Focus is a first-order concept: only the degree-1 (paraxial) block of
// the transform matters here, which is exactly classical matrix optics.

import(
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/abworrall/lensblur/pkg/poly"
)

// ErrAfocal means the system's paraxial block has no aperture-angle
// leverage on sensor position, so no finite propagation distance can
// bring it to focus (e.g. a telescope, or an empty prescription).
var ErrAfocal = errors.New("optics: afocal system, focus distance undefined")

const afocalEps = 1e-12

// Paraxial extracts the degree-1 block of sys as an Out x In matrix:
// entry (i,j) is the coefficient of input j in output equation i.
func Paraxial(sys *poly.System) *mat.Dense {
	m := mat.NewDense(sys.Out, sys.In, nil)
	for i := 0; i < sys.Out; i++ {
		for j := 0; j < sys.In; j++ {
			exps := make([]int, sys.In)
			exps[j] = 1
			m.Set(i, j, sys.Eqs[i].Coeff(exps...))
		}
	}
	return m
}

// FindFocus returns the free-flight distance after the back vertex that
// brings the system to best focus, i.e. makes first-order sensor-x
// independent of where the ray crossed the aperture. sys must be the
// full 4-in/4-out prescription transform.
func FindFocus(sys *poly.System) (float64, error) {
	if sys.In < 4 || sys.Out < 4 {
		return 0, fmt.Errorf("find focus: need a 4x4 system, got %dx%d", sys.In, sys.Out)
	}

	m := Paraxial(sys)
	// x' = x + d*dx to first order; kill the aperture-x dependence:
	// m02 + d*m22 == 0.
	m02 := m.At(0, 2)
	m22 := m.At(2, 2)
	if m22 > -afocalEps && m22 < afocalEps {
		return 0, fmt.Errorf("find focus of %dx%d system: %w", sys.In, sys.Out, ErrAfocal)
	}
	return -m02 / m22, nil
}

// Magnification returns the first-order ratio of sensor-x to world-x
// for a system already composed with its focus propagation. Negative
// for an ordinary single lens, which forms an inverted image.
func Magnification(sys *poly.System) (float64, error) {
	if sys.In < 1 || sys.Out < 1 {
		return 0, fmt.Errorf("magnification: empty system")
	}
	return Paraxial(sys).At(0, 0), nil
}
