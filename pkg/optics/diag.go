package optics

// Spot diagrams: the optical engineer's scatter plot. For a few field
// positions and wavelengths, a fan of rays across the pupil is pushed
// through both the polynomial transform and the exact tracer, and the
// sensor-plane hits are drawn side by side. If the polynomial dots
// drift off the exact circles, the truncation degree is too low for the
// aperture in use.

import(
	"fmt"
	"math"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/abworrall/lensblur/pkg/poly"
)

type SpotConfig struct {
	Prescription Prescription
	FocusDist    float64
	Degree       int
	Lambdas      []float64 // nm, one tint per wavelength
	FieldXs      []float64 // world-plane x offsets (mm), one panel per field
	PupilRadius  float64
	Rings, Arms  int     // pupil sampling density
	PanelPx      int     // square panel size in pixels
	SpotScale    float64 // sensor mm per panel half-width

	// Tint maps a wavelength to a linear RGB color for its dots. When
	// nil everything is drawn gray.
	Tint func(lambdaNm float64) (r, g, b float64)
}

// SpotDiagram writes a PNG of polynomial (solid dot) vs exact (open
// circle) sensor hits, one panel per field position, labelled with the
// center-wavelength spot radius.
func SpotDiagram(cfg SpotConfig, filename string) error {
	if cfg.Rings < 1 || cfg.Arms < 1 {
		return fmt.Errorf("spot diagram: need at least 1 ring and 1 arm")
	}
	if cfg.PanelPx == 0 {
		cfg.PanelPx = 256
	}
	if cfg.SpotScale == 0 {
		cfg.SpotScale = 0.2
	}

	// One focused system per wavelength; they do not depend on field.
	prop, err := Propagation(cfg.FocusDist, cfg.Degree)
	if err != nil {
		return err
	}
	systems := map[float64]*poly.System{}
	for _, lambda := range cfg.Lambdas {
		sys, err := cfg.Prescription.Build(lambda, cfg.Degree)
		if err != nil {
			return err
		}
		if systems[lambda], err = sys.Compose(prop); err != nil {
			return err
		}
	}

	centerLambda := centerOf(cfg.Lambdas)
	mag, err := Magnification(systems[centerLambda])
	if err != nil {
		return err
	}

	w := cfg.PanelPx * len(cfg.FieldXs)
	h := cfg.PanelPx
	dc := gg.NewContext(w, h)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	pxPerMm := float64(cfg.PanelPx) / 2 / cfg.SpotScale

	for fi, fieldX := range cfg.FieldXs {
		cx := float64(fi*cfg.PanelPx + cfg.PanelPx/2)
		cy := float64(cfg.PanelPx / 2)
		centerX := mag * fieldX // paraxial image point this panel is centered on

		dc.SetRGB(0.3, 0.3, 0.3)
		dc.DrawLine(cx-10, cy, cx+10, cy)
		dc.DrawLine(cx, cy-10, cx, cy+10)
		dc.Stroke()

		for _, lambda := range cfg.Lambdas {
			sys := systems[lambda]

			r, g, b := 0.7, 0.7, 0.7
			if cfg.Tint != nil {
				r, g, b = cfg.Tint(lambda)
			}
			col := colorful.Color{R: r, G: g, B: b}.Clamped()

			forEachPupilSample(cfg.PupilRadius, cfg.Rings, cfg.Arms, func(apX, apY float64) {
				out, err := sys.Evaluate([]float64{fieldX, 0, apX, apY})
				if err != nil {
					return
				}
				dc.SetRGB(col.R, col.G, col.B)
				dc.DrawCircle(cx+(out[0]-centerX)*pxPerMm, cy+out[1]*pxPerMm, 1.5)
				dc.Fill()

				exact, err := cfg.Prescription.TraceEntry(lambda, fieldX, 0, apX, apY)
				if err != nil {
					return
				}
				ex := exact.propagate(cfg.FocusDist)
				dc.SetRGB(col.R*0.6, col.G*0.6, col.B*0.6)
				dc.DrawCircle(cx+(ex.X-centerX)*pxPerMm, cy+ex.Y*pxPerMm, 2.5)
				dc.Stroke()
			})
		}

		spot := spotRadius(systems[centerLambda], fieldX, cfg.PupilRadius, cfg.Rings, cfg.Arms)
		dc.SetRGB(1, 1, 1)
		dc.DrawString(fmt.Sprintf("x=%.1fmm spot=%.3fmm", fieldX, spot), float64(fi*cfg.PanelPx)+8, 16)
	}

	return dc.SavePNG(filename)
}

func centerOf(lambdas []float64) float64 {
	if len(lambdas) == 0 {
		return 550
	}
	return lambdas[len(lambdas)/2]
}

func forEachPupilSample(radius float64, rings, arms int, f func(apX, apY float64)) {
	f(0, 0)
	for ri := 1; ri <= rings; ri++ {
		r := radius * float64(ri) / float64(rings)
		for ai := 0; ai < arms; ai++ {
			th := 2 * math.Pi * float64(ai) / float64(arms)
			f(r*math.Cos(th), r*math.Sin(th))
		}
	}
}

// spotRadius is the max distance of any pupil sample's hit from the
// centroid of all hits, at one field position.
func spotRadius(sys *poly.System, fieldX, pupil float64, rings, arms int) float64 {
	var cx, cy, n float64
	forEachPupilSample(pupil, rings, arms, func(apX, apY float64) {
		out, err := sys.Evaluate([]float64{fieldX, 0, apX, apY})
		if err != nil {
			return
		}
		cx += out[0]
		cy += out[1]
		n++
	})
	if n == 0 {
		return 0
	}
	cx /= n
	cy /= n

	maxR := 0.0
	forEachPupilSample(pupil, rings, arms, func(apX, apY float64) {
		out, err := sys.Evaluate([]float64{fieldX, 0, apX, apY})
		if err != nil {
			return
		}
		dx, dy := out[0]-cx, out[1]-cy
		if r := math.Sqrt(dx*dx + dy*dy); r > maxR {
			maxR = r
		}
	})
	return maxR
}
