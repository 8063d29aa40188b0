package lmath

import "math"

// The sRGB transfer curve, both directions. Channel values are
// expected in [0,1].
// https://www.sjbrown.co.uk/posts/gamma-correct-rendering/

// GammaExpand_sRGB encodes linear radiance for an sRGB display.
func GammaExpand_sRGB(v Vec3) Vec3 {
	return Vec3{
		GammaExpand_F64(v[0]),
		GammaExpand_F64(v[1]),
		GammaExpand_F64(v[2]),
	}
}

func GammaExpand_F64(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055*math.Pow(f, 1.0/2.4) - 0.055
}

// GammaContract_sRGB undoes GammaExpand_sRGB, taking display-encoded
// sRGB back to linear radiance.
func GammaContract_sRGB(v Vec3) Vec3 {
	return Vec3{
		GammaContract_F64(v[0]),
		GammaContract_F64(v[1]),
		GammaContract_F64(v[2]),
	}
}

func GammaContract_F64(f float64) float64 {
	if f <= 0.04045 {
		return f / 12.92
	}
	return math.Pow((f+0.055)/1.055, 2.4)
}
