// Package spectrum converts between wavelengths and RGB tristimulus
// values, so the renderer can split an RGB image into discrete
// wavelength bins, trace each bin separately, and reassemble the
// results into a single image.
//
// The wavelength->RGB direction uses the multi-lobe Gaussian fit of
// the CIE 1931 2-degree standard observer from Wyman, Sloan &
// Shirley, "Simple Analytic Approximations to the CIE XYZ Color
// Matching Functions" (JCGT 2013), mapped into linear sRGB. The
// RGB->power direction is a dual basis derived from the bin set, so
// that splitting an RGB value into per-bin powers and re-summing the
// weighted bins reproduces the value.
package spectrum

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/abworrall/lensblur/pkg/lmath"
)

// The CIE fit is only meaningful over the standard observer's range.
const (
	minLambdaNm = 360.0
	maxLambdaNm = 830.0
)

// Sample is one wavelength bin: a wavelength, and the linear-sRGB
// weight that a unit of spectral power at that wavelength contributes
// to the final image. Weights for pure spectral colors lie outside
// the sRGB gamut, so individual components can be negative.
type Sample struct {
	Lambda float64 // nm
	Weight lmath.Vec3
}

// Spectrum is a set of evenly spaced wavelength bins spanning a
// visible range, with weights normalized so the whole set sums to
// (1,1,1), plus the dual basis used by Power.
type Spectrum struct {
	Samples []Sample
	dual    lmath.Mat3
}

// New builds n bins spaced evenly over [fromNm,toNm], endpoints
// included. A single bin degenerates to the central wavelength with
// unit weight.
func New(n int, fromNm, toNm float64) (*Spectrum, error) {
	if n < 1 {
		return nil, fmt.Errorf("spectrum: need at least one bin, not %d", n)
	}
	if toNm < fromNm {
		return nil, fmt.Errorf("spectrum: wavelength range %gnm..%gnm is reversed", fromNm, toNm)
	}
	if n > 1 && toNm == fromNm {
		return nil, fmt.Errorf("spectrum: %d bins need a non-empty wavelength range", n)
	}
	if fromNm < minLambdaNm || toNm > maxLambdaNm {
		return nil, fmt.Errorf("spectrum: range %gnm..%gnm outside the standard observer (%g..%gnm)",
			fromNm, toNm, minLambdaNm, maxLambdaNm)
	}

	s := &Spectrum{Samples: make([]Sample, n)}
	if n == 1 {
		s.Samples[0].Lambda = (fromNm + toNm) / 2
	} else {
		for i := range s.Samples {
			s.Samples[i].Lambda = fromNm + (toNm-fromNm)*float64(i)/float64(n-1)
		}
	}

	// Normalize per channel, so that a flat spectrum sums back to
	// (1,1,1) no matter how many bins are in play.
	raw := make([]lmath.Vec3, n)
	var sum lmath.Vec3
	for i, smp := range s.Samples {
		raw[i] = Response(smp.Lambda)
		for c := 0; c < 3; c++ {
			sum[c] += raw[i][c]
		}
	}
	for c := 0; c < 3; c++ {
		if math.Abs(sum[c]) < 1e-9 {
			return nil, fmt.Errorf("spectrum: bins over %gnm..%gnm have no net response in channel %d", fromNm, toNm, c)
		}
	}
	for i := range s.Samples {
		s.Samples[i].Weight = lmath.Vec3{raw[i][0] / sum[0], raw[i][1] / sum[1], raw[i][2] / sum[2]}
	}

	dual, err := dualBasis(s.Samples)
	if err != nil {
		return nil, err
	}
	s.dual = dual
	return s, nil
}

// Power converts an RGB radiance into the scalar spectral power at
// one wavelength, the inverse of splitting by Weight: for any rgb,
// summing Power(lambda_i, rgb)*Weight_i over a bin set that spans
// color space gives back rgb. Saturated inputs yield negative power
// at off-hue wavelengths; callers carry the sign through.
func (s *Spectrum)Power(lambdaNm float64, rgb lmath.Vec3) float64 {
	r := Response(lambdaNm)
	d := s.dual.Apply(rgb)
	return r[0]*d[0] + r[1]*d[1] + r[2]*d[2]
}

func (s *Spectrum)String() string {
	n := len(s.Samples)
	return fmt.Sprintf("%d bins over %g-%gnm", n, s.Samples[0].Lambda, s.Samples[n-1].Lambda)
}

// Response returns the un-normalized linear-sRGB response to a unit
// of power at the given wavelength. Pure spectral colors lie outside
// the gamut, so components can be negative or exceed 1; they are
// meaningful and must not be clamped.
func Response(lambdaNm float64) lmath.Vec3 {
	x, y, z := CMF(lambdaNm)
	return xyzToRGB.Apply(lmath.Vec3{x, y, z})
}

// XYZ (D65 white) to linear sRGB.
var xyzToRGB = lmath.Mat3{
	3.2404542, -1.5371385, -0.4985314,
	-0.9692660, 1.8760108, 0.0415560,
	0.0556434, -0.2040259, 1.0572252,
}

// CMF returns the CIE 1931 2-degree color matching functions
// (xbar, ybar, zbar) at a wavelength in nm, per the Wyman/Sloan/
// Shirley fit. Worst-case error against the tabulated observer is
// below 1% of peak per channel.
func CMF(lambdaNm float64) (x, y, z float64) {
	x = 0.362*lobe(lambdaNm, 442.0, 0.0624, 0.0374) +
		1.056*lobe(lambdaNm, 599.8, 0.0264, 0.0323) -
		0.065*lobe(lambdaNm, 501.1, 0.0490, 0.0382)
	y = 0.821*lobe(lambdaNm, 568.8, 0.0213, 0.0247) +
		0.286*lobe(lambdaNm, 530.9, 0.0613, 0.0322)
	z = 1.217*lobe(lambdaNm, 437.0, 0.0845, 0.0278) +
		0.681*lobe(lambdaNm, 459.0, 0.0385, 0.0725)
	return
}

// lobe is the fit's piecewise Gaussian: a different inverse-width on
// each side of the peak.
func lobe(wave, mu, invw1, invw2 float64) float64 {
	invw := invw1
	if wave >= mu {
		invw = invw2
	}
	t := (wave - mu) * invw
	return math.Exp(-0.5 * t * t)
}

// dualBasis computes the pseudo-inverse of the bin set's response
// matrix M = sum_i Weight_i (x) Response(lambda_i). Three or more
// well-spread bins make M invertible, and Power then reconstructs
// RGB exactly; degenerate bin sets (one or two bins, or a very
// narrow range) fall back to the least-squares dual.
func dualBasis(samples []Sample) (lmath.Mat3, error) {
	m := mat.NewDense(3, 3, nil)
	for _, smp := range samples {
		r := Response(smp.Lambda)
		for row := 0; row < 3; row++ {
			for col := 0; col < 3; col++ {
				m.Set(row, col, m.At(row, col)+smp.Weight[row]*r[col])
			}
		}
	}

	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDThin) {
		return lmath.Mat3{}, fmt.Errorf("spectrum: SVD of bin response matrix failed")
	}
	vals := svd.Values(nil)
	if vals[0] == 0 {
		return lmath.Mat3{}, fmt.Errorf("spectrum: bin response matrix is zero")
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	d := mat.NewDense(3, 3, nil)
	tol := 1e-12 * vals[0]
	for i, sv := range vals {
		if sv > tol {
			d.Set(i, i, 1/sv)
		}
	}
	var tmp, pinv mat.Dense
	tmp.Mul(&v, d)
	pinv.Mul(&tmp, u.T())

	var out lmath.Mat3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			out[3*row+col] = pinv.At(row, col)
		}
	}
	return out, nil
}
