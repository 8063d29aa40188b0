package lensblur

import(
	"fmt"
	"log"
	"math"

	"github.com/abworrall/lensblur/pkg/lmath"
	"github.com/abworrall/lensblur/pkg/optics"
	"github.com/abworrall/lensblur/pkg/render"
	"github.com/abworrall/lensblur/pkg/spectrum"
)

// A Job runs the whole pipeline over one input image: solve the lens,
// spread it across the spectrum, render, floor the gamut. Holds the
// intermediate results so the caller can save, preview, or dump
// diagnostics afterwards.
type Job struct {
	Config

	In        *render.Image
	Out       *render.Image
	Stats     *render.Stats
	FocusDist float64 // mm behind the back vertex
	Mag       float64
}

func NewJob(cfg Config) *Job {
	return &Job{Config: cfg}
}

func (j *Job)LoadInput(filename string) error {
	im, err := LoadRadiance(filename)
	if err != nil {
		return err
	}
	j.In = im
	log.Printf("loaded %s (%dx%d)", filename, im.W, im.H)
	return nil
}

// solveFocus builds the lens at the focus wavelength and finds the
// sensor plane and magnification. Idempotent.
func (j *Job)solveFocus() error {
	if j.FocusDist != 0 {
		return nil
	}

	presc := j.Config.Prescription()
	ref, err := presc.Build(j.Config.FocusAt, j.Config.Degree)
	if err != nil {
		return fmt.Errorf("build at %gnm: %v", j.Config.FocusAt, err)
	}

	if j.FocusDist, err = optics.FindFocus(ref); err != nil {
		return fmt.Errorf("focusing %s: %v", presc.Name, err)
	}

	prop, err := optics.Propagation(j.FocusDist, j.Config.Degree)
	if err != nil {
		return err
	}
	focused, err := ref.Compose(prop)
	if err != nil {
		return err
	}
	if j.Mag, err = optics.Magnification(focused); err != nil {
		return err
	}

	log.Printf("%s: focus %.3fmm behind the back vertex, magnification %.3g", presc.Name, j.FocusDist, j.Mag)
	return nil
}

// Render runs the optical pipeline over the loaded input.
func (j *Job)Render() error {
	if j.In == nil {
		return fmt.Errorf("no input loaded")
	}
	if err := j.Config.Validate(); err != nil {
		return fmt.Errorf("config: %v", err)
	}
	if err := j.solveFocus(); err != nil {
		return err
	}

	presc := j.Config.Prescription()
	chrom, err := optics.BuildChromatic(presc, j.FocusDist, j.Config.BlendLo, j.Config.BlendHi, j.Config.Degree)
	if err != nil {
		return fmt.Errorf("chromatic blend: %v", err)
	}

	spec, err := spectrum.New(j.Config.SpectralBins, j.Config.SpectrumFrom, j.Config.SpectrumTo)
	if err != nil {
		return fmt.Errorf("spectrum: %v", err)
	}
	if j.Config.Verbosity > 0 {
		log.Printf("spectral bins:\n%s", spec)
		log.Printf("input power distribution (quarter EVs): %v", render.PowerHistogram(j.In, spec))
	}

	out, stats, err := render.Render(render.Params{
		System:        chrom,
		Spectrum:      spec,
		Degree:        j.Config.Degree,
		PupilRadius:   j.Config.Lens.PupilRadius,
		SampleMul:     j.Config.SampleMul,
		SensorWidth:   j.Config.SensorWidth,
		Width:         j.Config.OutputWidth,
		Height:        j.Config.OutputHeight,
		Magnification: j.Mag,
		Seed:          j.Config.Seed,
		Workers:       j.Config.Workers,
	}, j.In)
	if err != nil {
		return fmt.Errorf("render: %v", err)
	}
	j.Out, j.Stats = out, stats

	render.FloorToGamut(j.Out, j.Config.GamutFloor)
	return nil
}

func (j *Job)SaveOutput(filename string) error {
	if j.Out == nil {
		return fmt.Errorf("nothing rendered yet")
	}
	log.Printf("writing %s", filename)
	return SaveRadiance(j.Out, filename)
}

// WriteDiagnostics dumps two images under the given filename prefix: a
// spot diagram of the focused lens across the spectrum, and the
// per-pixel ray budget the input implies. Neither needs a render to
// have happened.
func (j *Job)WriteDiagnostics(prefix string) error {
	if j.In == nil {
		return fmt.Errorf("no input loaded")
	}
	if err := j.Config.Validate(); err != nil {
		return fmt.Errorf("config: %v", err)
	}
	if err := j.solveFocus(); err != nil {
		return err
	}

	// Field positions from the axis out to the edge of the sensor.
	xwMax := j.Config.SensorWidth / 2 / math.Abs(j.Mag)
	spots := optics.SpotConfig{
		Prescription: j.Config.Prescription(),
		FocusDist:    j.FocusDist,
		Degree:       j.Config.Degree,
		Lambdas:      []float64{j.Config.SpectrumFrom, j.Config.FocusAt, j.Config.SpectrumTo},
		FieldXs:      []float64{0, xwMax / 2, xwMax},
		PupilRadius:  j.Config.Lens.PupilRadius,
		Rings:        6,
		Arms:         12,
		Tint: func(lambdaNm float64) (float64, float64, float64) {
			v := spectrum.Response(lambdaNm)
			return v[0], v[1], v[2]
		},
	}
	if err := optics.SpotDiagram(spots, prefix+"-spots.png"); err != nil {
		return fmt.Errorf("spot diagram: %v", err)
	}

	spec, err := spectrum.New(j.Config.SpectralBins, j.Config.SpectrumFrom, j.Config.SpectrumTo)
	if err != nil {
		return err
	}
	fg := lmath.NewFloatGrid(j.In.W, j.In.H)
	for y := 0; y < j.In.H; y++ {
		for x := 0; x < j.In.W; x++ {
			total := 0
			for _, s := range spec.Samples {
				n, _ := render.SampleBudget(spec.Power(s.Lambda, j.In.RGBAt(x, y)), j.Config.SampleMul)
				total += n
			}
			fg.Set(x, y, float64(total))
		}
	}
	log.Printf("ray budget: %s", fg.Stats())
	return fg.ToImg("ray budget", prefix+"-rays.png")
}
