package spectrum

import (
	"math"
	"testing"

	"github.com/abworrall/lensblur/pkg/lmath"
)

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestCMFShape(t *testing.T) {
	// Spot values from the tabulated 1931 observer; the fit is good
	// to about 1% of peak.
	x550, y550, z550 := CMF(550)
	if !near(x550, 0.4334, 0.02) {
		t.Errorf("xbar(550) = %g, want about 0.433", x550)
	}
	if !near(y550, 0.9950, 0.02) {
		t.Errorf("ybar(550) = %g, want about 0.995", y550)
	}
	if !near(z550, 0.0088, 0.02) {
		t.Errorf("zbar(550) = %g, want about 0.009", z550)
	}

	// Luminance peaks near 555nm.
	_, yPeak, _ := CMF(555)
	if yPeak < 0.95 || yPeak > 1.05 {
		t.Errorf("ybar(555) = %g, want about 1", yPeak)
	}
	_, y500, _ := CMF(500)
	_, y610, _ := CMF(610)
	if yPeak <= y500 || yPeak <= y610 {
		t.Errorf("ybar should peak near 555nm: y(500)=%g y(555)=%g y(610)=%g", y500, yPeak, y610)
	}

	// xbar has a secondary blue lobe and a valley near 510nm.
	x445, _, _ := CMF(445)
	x510, _, _ := CMF(510)
	if x445 < 0.25 {
		t.Errorf("xbar(445) = %g, want the secondary lobe > 0.25", x445)
	}
	if math.Abs(x510) > 0.05 {
		t.Errorf("xbar(510) = %g, want a valley near 0", x510)
	}

	// zbar is blue-only.
	_, _, z450 := CMF(450)
	if z450 < 1.0 {
		t.Errorf("zbar(450) = %g, want > 1", z450)
	}
	if z550 > 0.05 {
		t.Errorf("zbar(550) = %g, want near 0", z550)
	}
}

func TestResponseOutOfGamut(t *testing.T) {
	// Pure 550nm green is far outside sRGB: strongly positive green,
	// negative red and blue.
	g550 := Response(550)
	if g550[0] >= 0 || g550[1] <= 1 || g550[2] >= 0 {
		t.Errorf("Response(550) = %v, want (neg, >1, neg)", g550)
	}

	// Deep red: positive red, negative green.
	r650 := Response(650)
	if r650[0] < 0.5 || r650[1] >= 0 {
		t.Errorf("Response(650) = %v, want (>0.5, neg, _)", r650)
	}
}

func TestNewBinPlacement(t *testing.T) {
	s, err := New(12, 440, 660)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(s.Samples) != 12 {
		t.Fatalf("got %d bins, want 12", len(s.Samples))
	}
	if !near(s.Samples[0].Lambda, 440, 1e-9) || !near(s.Samples[11].Lambda, 660, 1e-9) {
		t.Errorf("bins should include both endpoints, got %g..%g",
			s.Samples[0].Lambda, s.Samples[11].Lambda)
	}
	for i := 1; i < 12; i++ {
		step := s.Samples[i].Lambda - s.Samples[i-1].Lambda
		if !near(step, 20, 1e-9) {
			t.Errorf("bin %d: step %g, want 20", i, step)
		}
	}
}

func TestNewSingleBin(t *testing.T) {
	s, err := New(1, 440, 660)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.Samples[0].Lambda; got != 550 {
		t.Errorf("single bin sits at %gnm, want the central 550", got)
	}
	if w := s.Samples[0].Weight; w[0] != 1 || w[1] != 1 || w[2] != 1 {
		t.Errorf("single bin weight = %v, want (1,1,1)", w)
	}

	// With one bin the only consistent power is the channel mean.
	rgb := lmath.Vec3{0.3, 0.6, 0.9}
	if p := s.Power(550, rgb); !near(p, 0.6, 1e-9) {
		t.Errorf("Power(550, %v) = %g, want 0.6", rgb, p)
	}
}

func TestNewErrors(t *testing.T) {
	cases := []struct {
		n        int
		from, to float64
	}{
		{0, 440, 660},
		{-3, 440, 660},
		{12, 660, 440},
		{12, 550, 550},
		{12, 200, 660},
		{12, 440, 900},
	}
	for _, c := range cases {
		if _, err := New(c.n, c.from, c.to); err == nil {
			t.Errorf("New(%d, %g, %g) should fail", c.n, c.from, c.to)
		}
	}
}

func TestWeightsSumToOne(t *testing.T) {
	for _, n := range []int{3, 12} {
		s, err := New(n, 440, 660)
		if err != nil {
			t.Fatalf("New(%d): %v", n, err)
		}
		var sum lmath.Vec3
		for _, smp := range s.Samples {
			for c := 0; c < 3; c++ {
				sum[c] += smp.Weight[c]
			}
		}
		for c := 0; c < 3; c++ {
			if !near(sum[c], 1, 1e-12) {
				t.Errorf("n=%d: channel %d weights sum to %g, want 1", n, c, sum[c])
			}
		}
	}
}

// Splitting an RGB value into per-bin powers and re-summing the
// weighted bins must reproduce the value whenever the bin set spans
// color space.
func TestPowerRoundtrip(t *testing.T) {
	rgbs := []lmath.Vec3{
		{1, 1, 1},
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{0.2, 1.5, 0.7},
	}
	for _, n := range []int{3, 5, 12} {
		s, err := New(n, 440, 660)
		if err != nil {
			t.Fatalf("New(%d): %v", n, err)
		}
		for _, rgb := range rgbs {
			var got lmath.Vec3
			for _, smp := range s.Samples {
				p := s.Power(smp.Lambda, rgb)
				for c := 0; c < 3; c++ {
					got[c] += p * smp.Weight[c]
				}
			}
			for c := 0; c < 3; c++ {
				if !near(got[c], rgb[c], 1e-8) {
					t.Errorf("n=%d rgb=%v: reassembled %v", n, rgb, got)
					break
				}
			}
		}
	}
}

// Saturated colors legitimately go negative at off-hue wavelengths;
// the sign must survive the power query.
func TestPowerCanBeNegative(t *testing.T) {
	s, err := New(12, 440, 660)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	red := lmath.Vec3{1, 0, 0}
	sawNegative := false
	for _, smp := range s.Samples {
		if s.Power(smp.Lambda, red) < 0 {
			sawNegative = true
		}
	}
	if !sawNegative {
		t.Errorf("pure red should need negative power somewhere in 440-660nm")
	}
}
