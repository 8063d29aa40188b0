package render

import (
	"fmt"
	"math"

	"github.com/codahale/hdrhistogram"
	"github.com/skypies/util/histogram"

	"github.com/abworrall/lensblur/pkg/spectrum"
)

// The sample-count histogram covers 1 ray up to ~1e9 rays per
// pixel-bin; anything above is recorded as the cap.
const maxHistSamples = 1 << 30

// Stats summarizes a render.
type Stats struct {
	Rays       int64 // aperture samples evaluated
	DarkRays   int64 // samples whose Lambertian term collapsed to zero
	SampleHist *hdrhistogram.Histogram // per pixel-bin sample counts
}

func newStats() *Stats {
	return &Stats{SampleHist: hdrhistogram.New(1, maxHistSamples, 3)}
}

// record notes the sample count chosen for one pixel-bin.
func (st *Stats)record(n int) {
	v := int64(n)
	if v > maxHistSamples {
		v = maxHistSamples
	}
	if v < 1 {
		v = 1
	}
	st.SampleHist.RecordValue(v)
}

// merge folds a worker's stats into this one.
func (st *Stats)merge(other *Stats) {
	st.Rays += other.Rays
	st.DarkRays += other.DarkRays
	st.SampleHist.Merge(other.SampleHist)
}

func (st *Stats)String() string {
	h := st.SampleHist
	return fmt.Sprintf("%d rays (%d dark); samples per pixel-bin p50=%d p99=%d max=%d",
		st.Rays, st.DarkRays, h.ValueAtQuantile(50), h.ValueAtQuantile(99), h.Max())
}

// PowerHistogram tabulates log2 of the per-bin spectral power across
// the whole input image - the quantity that drives per-pixel sample
// counts, so its spread says how uneven the render workload is.
// Bucketed at 1/4 EV.
func PowerHistogram(im *Image, spec *spectrum.Spectrum) histogram.Histogram {
	hist := histogram.Histogram{NumBuckets: 256, ValMin: -128, ValMax: 128}
	for y := 0; y < im.H; y++ {
		for x := 0; x < im.W; x++ {
			rgb := im.RGBAt(x, y)
			for _, smp := range spec.Samples {
				if p := spec.Power(smp.Lambda, rgb); p > 0 {
					hist.Add(histogram.ScalarVal(int(math.Log2(p) * 4)))
				}
			}
		}
	}
	return hist
}
