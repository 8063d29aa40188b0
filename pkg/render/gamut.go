package render

// FloorToGamut lifts every channel of every pixel to at least frac of
// that pixel's maximum channel. Narrow-band spectra integrate to
// small negative RGB excursions, and hard-clamping those to zero
// bands visibly at the spectral edges; a fractional floor does not.
func FloorToGamut(im *Image, frac float64) {
	for i := 0; i < len(im.Pix); i += 3 {
		maxc := im.Pix[i]
		if im.Pix[i+1] > maxc {
			maxc = im.Pix[i+1]
		}
		if im.Pix[i+2] > maxc {
			maxc = im.Pix[i+2]
		}
		floor := frac * maxc
		for c := 0; c < 3; c++ {
			if im.Pix[i+c] < floor {
				im.Pix[i+c] = floor
			}
		}
	}
}
