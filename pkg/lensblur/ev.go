package lensblur

import(
	"fmt"
	"math"
)

// An Exposure is how a photograph was taken. A TIFF input is an LDR
// rendering of scene radiance through a known exposure; the EXIF
// triple (ISO, f-number, shutter time) pins down how many lux of
// incident light saturate a channel, which is what turns its pixel
// values back into radiance.
// https://en.wikipedia.org/wiki/Exposure_value
type Exposure struct {
	ISO          int64
	FNumberX10   int64 // f/5.6 is the integer 56
	ShutterNum   int64
	ShutterDenom int64

	// Derived by Resolve.
	EV             int     // whole-stop exposure value at the shot ISO
	LuxAtFullScale float64 // incident lux that saturate a channel
}

func (e Exposure)String() string {
	s := fmt.Sprintf("f/%.1f", float64(e.FNumberX10)/10.0)
	if e.ShutterDenom != 1 {
		s += fmt.Sprintf(" %d/%ds", e.ShutterNum, e.ShutterDenom)
	} else {
		s += fmt.Sprintf(" %ds", e.ShutterNum)
	}
	return s + fmt.Sprintf(" ISO%d, EV %d (%.0f lux)", e.ISO, e.EV, e.LuxAtFullScale)
}

// Resolve computes EV = log2(N^2/t) rounded to the whole stop, shifts
// it one stop down per ISO doubling above 100, and looks up the
// saturating illuminance, 2.5 * 2^EV lux.
func (e *Exposure)Resolve() error {
	if e.ISO <= 0 || e.FNumberX10 <= 0 || e.ShutterNum <= 0 || e.ShutterDenom <= 0 {
		return fmt.Errorf("exposure (%s) is incomplete", e)
	}

	n := float64(e.FNumberX10) / 10.0
	t := float64(e.ShutterNum) / float64(e.ShutterDenom)
	ev100 := math.Round(math.Log2(n * n / t))
	isoShift := math.Round(math.Log2(float64(e.ISO) / 100.0))

	ev := int(ev100 - isoShift)
	if ev < 1 || ev > 22 {
		return fmt.Errorf("exposure (%s) looks suspicious, EV %d", e, ev)
	}

	e.EV = ev
	e.LuxAtFullScale = 2.5 * math.Exp2(float64(ev))
	return nil
}
