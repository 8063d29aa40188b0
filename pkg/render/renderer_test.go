package render

import (
	"math"
	"math/rand"
	"testing"

	"github.com/abworrall/lensblur/pkg/lmath"
	"github.com/abworrall/lensblur/pkg/poly"
	"github.com/abworrall/lensblur/pkg/spectrum"
)

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// testSystem builds a 5-in 3-out system in the renderer's variable
// order (xw, yw, xa, ya, lambda): a magnifier with an optional
// defocus proportional to the aperture offset, and a zero angle
// term, so the Lambertian factor is exactly 1.
func testSystem(t *testing.T, mag, blur float64, degree int) *poly.System {
	t.Helper()
	sys := poly.NewSystem(5, 3, degree)
	var err error
	sys, err = sys.WithEq(0, poly.NewPoly(5,
		poly.Monomial(mag, 1, 0, 0, 0, 0),
		poly.Monomial(blur, 0, 0, 1, 0, 0)))
	if err != nil {
		t.Fatalf("WithEq: %v", err)
	}
	sys, err = sys.WithEq(1, poly.NewPoly(5,
		poly.Monomial(mag, 0, 1, 0, 0, 0),
		poly.Monomial(blur, 0, 0, 0, 1, 0)))
	if err != nil {
		t.Fatalf("WithEq: %v", err)
	}
	return sys
}

func oneBin(t *testing.T) *spectrum.Spectrum {
	t.Helper()
	spec, err := spectrum.New(1, 440, 660)
	if err != nil {
		t.Fatalf("spectrum.New: %v", err)
	}
	return spec
}

func uniformImage(w, h int, v lmath.Vec3) *Image {
	im := NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			im.SetRGB(x, y, v)
		}
	}
	return im
}

// A pinhole render of a uniform image is the identity mapping up to
// the half-pixel jitter, which only bleeds energy off the two
// vertical edges.
func TestRenderPinholeUniform(t *testing.T) {
	in := uniformImage(4, 4, lmath.Vec3{1, 1, 1})
	p := Params{
		System:        testSystem(t, -1, 0, 3),
		Spectrum:      oneBin(t),
		Degree:        3,
		PupilRadius:   0,
		SampleMul:     4000,
		SensorWidth:   8,
		Width:         4,
		Height:        4,
		Magnification: -1,
		Seed:          7,
		Workers:       1,
	}
	out, st, err := Render(p, in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	// Interior columns keep their full radiance.
	for _, x := range []int{1, 2} {
		for y := 0; y < 4; y++ {
			got := out.RGBAt(x, y)
			for c := 0; c < 3; c++ {
				if !near(got[c], 1, 0.05) {
					t.Errorf("pixel (%d,%d) channel %d = %g, want about 1", x, y, c, got[c])
				}
			}
		}
	}

	// Each edge column jitters about an eighth of its energy off the
	// sensor, so the total lands near 15 of the input's 16.
	if tot := out.Total() / 3; !near(tot, 15, 0.25) {
		t.Errorf("total energy %g, want about 15", tot)
	}

	// The sampling law is visible in the stats: every pixel-bin gets
	// its power times the multiplier.
	if st.SampleHist.TotalCount() != 16 {
		t.Errorf("recorded %d pixel-bins, want 16", st.SampleHist.TotalCount())
	}
	if st.Rays < 63900 || st.Rays > 64100 {
		t.Errorf("cast %d rays, want about 64000", st.Rays)
	}
	if st.DarkRays != 0 {
		t.Errorf("%d dark rays in a zero-angle system", st.DarkRays)
	}
}

// Rows never mix: the renderer only jitters along x, and the test
// system has no y coupling.
func TestRenderRowIsolation(t *testing.T) {
	in := NewImage(4, 4)
	for x := 0; x < 4; x++ {
		in.SetRGB(x, 2, lmath.Vec3{1, 1, 1})
	}
	p := Params{
		System:        testSystem(t, -1, 0, 3),
		Spectrum:      oneBin(t),
		Degree:        3,
		PupilRadius:   0,
		SampleMul:     500,
		SensorWidth:   8,
		Width:         4,
		Height:        4,
		Magnification: -1,
		Seed:          3,
		Workers:       1,
	}
	out, _, err := Render(p, in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, y := range []int{0, 1, 3} {
		for x := 0; x < 4; x++ {
			if got := out.RGBAt(x, y); (got != lmath.Vec3{}) {
				t.Errorf("row %d picked up %v at x=%d", y, got, x)
			}
		}
	}
	if got := out.RGBAt(1, 2); !near(got[0], 1, 0.1) {
		t.Errorf("lit row carries %v, want about 1", got)
	}
}

// Opening the aperture spreads a point source; a pinhole does not.
func TestRenderApertureBlur(t *testing.T) {
	in := NewImage(8, 8)
	in.SetRGB(4, 4, lmath.Vec3{1, 1, 1})

	p := Params{
		System:        testSystem(t, -1, 0.5, 3),
		Spectrum:      oneBin(t),
		Degree:        3,
		PupilRadius:   2,
		SampleMul:     2000,
		SensorWidth:   8,
		Width:         8,
		Height:        8,
		Magnification: -1,
		Seed:          11,
		Workers:       1,
	}
	out, _, err := Render(p, in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	// The defocus disc reaches the neighboring rows.
	if v := out.RGBAt(4, 3); v[0] < 1e-3 {
		t.Errorf("row above got %v, want blur to reach it", v)
	}
	if v := out.RGBAt(4, 5); v[0] < 1e-3 {
		t.Errorf("row below got %v, want blur to reach it", v)
	}

	// But not the far edges.
	for _, x := range []int{0, 1, 7} {
		for y := 0; y < 8; y++ {
			if got := out.RGBAt(x, y); (got != lmath.Vec3{}) {
				t.Errorf("blur reached (%d,%d): %v", x, y, got)
			}
		}
	}

	// The whole disc stays on the sensor, so energy is conserved
	// exactly.
	for c := 0; c < 3; c++ {
		tot := 0.0
		for i := c; i < len(out.Pix); i += 3 {
			tot += out.Pix[i]
		}
		if !near(tot, 1, 1e-9) {
			t.Errorf("channel %d total %g, want 1", c, tot)
		}
	}

	// Pinhole: the same lens with a closed aperture keeps every
	// sample within the jitter footprint of the source row.
	p.PupilRadius = 0
	out, _, err = Render(p, in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, y := range []int{3, 5} {
		for x := 0; x < 8; x++ {
			if got := out.RGBAt(x, y); (got != lmath.Vec3{}) {
				t.Errorf("pinhole bled into row %d: %v", y, got)
			}
		}
	}
	if got := out.RGBAt(4, 4); got[0] < 0.5 {
		t.Errorf("pinhole center %v, want most of the energy", got)
	}
}

// Equal seeds draw equal samples: single-worker runs are identical
// bit for bit, and a different seed is not.
func TestRenderDeterministic(t *testing.T) {
	in := uniformImage(6, 6, lmath.Vec3{0.5, 0.25, 1})
	p := Params{
		System:        testSystem(t, -1, 0.3, 3),
		Spectrum:      oneBin(t),
		Degree:        3,
		PupilRadius:   1.5,
		SampleMul:     200,
		SensorWidth:   6,
		Width:         6,
		Height:        6,
		Magnification: -1,
		Seed:          42,
		Workers:       1,
	}
	a, _, err := Render(p, in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	b, _, err := Render(p, in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("same seed diverged at %d: %g vs %g", i, a.Pix[i], b.Pix[i])
		}
	}

	p.Seed = 43
	c, _, err := Render(p, in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	same := true
	for i := range a.Pix {
		if a.Pix[i] != c.Pix[i] {
			same = false
			break
		}
	}
	if same {
		t.Errorf("different seeds gave identical images")
	}
}

// Workers share the accumulator through the shard locks; a parallel
// run must agree with the single-worker run up to float re-ordering.
func TestRenderParallelMatchesSerial(t *testing.T) {
	in := uniformImage(8, 8, lmath.Vec3{1, 0.5, 0.25})
	p := Params{
		System:        testSystem(t, -1, 0.4, 3),
		Spectrum:      oneBin(t),
		Degree:        3,
		PupilRadius:   2,
		SampleMul:     300,
		SensorWidth:   8,
		Width:         8,
		Height:        8,
		Magnification: -1,
		Seed:          5,
		Workers:       1,
	}
	serial, _, err := Render(p, in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	p.Workers = 4
	parallel, _, err := Render(p, in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for i := range serial.Pix {
		if !near(serial.Pix[i], parallel.Pix[i], 1e-9) {
			t.Fatalf("parallel diverged at %d: %g vs %g", i, serial.Pix[i], parallel.Pix[i])
		}
	}
}

// Raising the multiplier must not change expected energy, only
// variance.
func TestRenderEnergyStableAcrossSampleMul(t *testing.T) {
	in := uniformImage(4, 4, lmath.Vec3{1, 1, 1})
	p := Params{
		System:        testSystem(t, -1, 0, 3),
		Spectrum:      oneBin(t),
		Degree:        3,
		PupilRadius:   0,
		SampleMul:     500,
		SensorWidth:   8,
		Width:         4,
		Height:        4,
		Magnification: -1,
		Seed:          1,
		Workers:       1,
	}
	coarse, _, err := Render(p, in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	p.SampleMul = 5000
	fine, _, err := Render(p, in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !near(coarse.Total(), fine.Total(), 0.5) {
		t.Errorf("energy moved with the multiplier: %g vs %g", coarse.Total(), fine.Total())
	}
}

func TestRenderValidation(t *testing.T) {
	good := Params{
		System:        testSystem(t, -1, 0, 3),
		Spectrum:      oneBin(t),
		Degree:        3,
		SampleMul:     10,
		SensorWidth:   8,
		Width:         4,
		Height:        4,
		Magnification: -1,
	}
	in := uniformImage(2, 2, lmath.Vec3{1, 1, 1})

	cases := []struct {
		name string
		mod  func(*Params)
	}{
		{"nil system", func(p *Params) { p.System = nil }},
		{"wrong shape", func(p *Params) { p.System = poly.NewSystem(4, 3, 3) }},
		{"nil spectrum", func(p *Params) { p.Spectrum = nil }},
		{"bad degree", func(p *Params) { p.Degree = 0 }},
		{"bad multiplier", func(p *Params) { p.SampleMul = 0 }},
		{"negative pupil", func(p *Params) { p.PupilRadius = -1 }},
		{"bad sensor", func(p *Params) { p.SensorWidth = 0 }},
		{"bad resolution", func(p *Params) { p.Width = 0 }},
		{"zero magnification", func(p *Params) { p.Magnification = 0 }},
	}
	for _, c := range cases {
		p := good
		c.mod(&p)
		if _, _, err := Render(p, in); err == nil {
			t.Errorf("%s: no error", c.name)
		}
	}
	if _, _, err := Render(good, NewImage(0, 0)); err == nil {
		t.Errorf("empty input: no error")
	}
	if _, _, err := Render(good, in); err != nil {
		t.Errorf("good params rejected: %v", err)
	}
}

func TestSampleBudget(t *testing.T) {
	cases := []struct {
		power, mul float64
		n          int
		weight     float64
	}{
		{0.5, 1000, 500, 0.001},
		{2.7, 10, 27, 0.1},
		{1, 1, 1, 1},
		{0.0001, 100, 1, 0.0001},
		{0, 1000, 1, 0},
		{-0.3, 1000, 1, -0.3},
	}
	for _, c := range cases {
		n, w := SampleBudget(c.power, c.mul)
		if n != c.n || !near(w, c.weight, 1e-12) {
			t.Errorf("SampleBudget(%g, %g) = (%d, %g), want (%d, %g)",
				c.power, c.mul, n, w, c.n, c.weight)
		}
		if c.power > 0 && !near(float64(n)*w, c.power, 1e-12) {
			t.Errorf("SampleBudget(%g, %g): n*weight = %g, want the full power",
				c.power, c.mul, float64(n)*w)
		}
	}
}

func TestSamplePupil(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const r = 3.0
	for i := 0; i < 1000; i++ {
		x, y := samplePupil(rng, r)
		if x*x+y*y > r*r {
			t.Fatalf("draw %d: (%g,%g) outside the pupil", i, x, y)
		}
	}

	if x, y := samplePupil(rng, 0); x != 0 || y != 0 {
		t.Errorf("pinhole drew (%g,%g)", x, y)
	}
}

// stuckSource always returns the same value, so rejection sampling
// can never succeed and has to fall back to the rim clamp.
type stuckSource struct{}

func (stuckSource)Int63() int64 { return 0x7000000000000000 }
func (stuckSource)Seed(int64)   {}

func TestSamplePupilStuckRNG(t *testing.T) {
	rng := rand.New(stuckSource{})
	const r = 2.0
	x, y := samplePupil(rng, r)
	if !near(x*x+y*y, r*r, 1e-9) {
		t.Errorf("stuck RNG should clamp to the rim, got (%g,%g)", x, y)
	}
	if x <= 0 || y <= 0 {
		t.Errorf("clamp moved the quadrant: (%g,%g)", x, y)
	}
}

func TestClassifyLambert(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0, 1},
		{0.19, 0.9},
		{1, 0},
		{1.5, 0},      // overshoot past 1: sqrt goes invalid
		{-0.5, 1},     // undershoot: clamp to full brightness
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 1},
	}
	for _, c := range cases {
		got := classifyLambert(c.in)
		if !near(got, c.want, 1e-12) {
			t.Errorf("classifyLambert(%g) = %g, want %g", c.in, got, c.want)
		}
		if got < 0 || got > 1 {
			t.Errorf("classifyLambert(%g) = %g outside [0,1]", c.in, got)
		}
	}
}

func TestJobSeedsDistinct(t *testing.T) {
	seen := map[int64]bool{}
	for bin := 0; bin < 3; bin++ {
		for row := 0; row < 100; row++ {
			s := jobSeed(7, bin, row)
			if seen[s] {
				t.Fatalf("seed collision at bin %d row %d", bin, row)
			}
			seen[s] = true
		}
	}
	if jobSeed(7, 1, 2) == jobSeed(8, 1, 2) {
		t.Errorf("run seed ignored")
	}
}
