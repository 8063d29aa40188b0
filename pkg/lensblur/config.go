package lensblur

import(
	"fmt"
	"io/ioutil"
	"log"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/lensblur/pkg/optics"
	"github.com/abworrall/lensblur/pkg/spectrum"
)

// A LensSpec is the YAML-friendly shape of a cemented achromatic
// doublet: three surface radii, two center thicknesses, two glasses,
// and the aperture stop. Millimeters throughout.
type LensSpec struct {
	Name        string
	ObjectDist  float64 // world plane to front vertex
	R1, D1      float64
	Glass1      string
	R2, D2      float64
	Glass2      string
	R3          float64
	PupilRadius float64
}

type Config struct {
	Verbosity int

	Lens LensSpec

	// Spectral sampling. FocusAt is where focus and magnification are
	// solved; BlendLo/BlendHi are the wavelengths the lens transform is
	// built at and interpolated between. All nm.
	SpectralBins int
	SpectrumFrom float64
	SpectrumTo   float64
	FocusAt      float64
	BlendLo      float64
	BlendHi      float64

	// Render geometry and effort.
	Degree       int
	SampleMul    float64 // rays per unit of measured spectral power
	SensorWidth  float64 // mm
	OutputWidth  int
	OutputHeight int
	GamutFloor   float64 // channels lifted to this fraction of the pixel max

	Seed       int64
	Workers    int // 0 = one per CPU
	Tonemapper string
}

// NewConfig carries the reference design: an Edmund NT32-921 style
// achromat imaging a plane 5km away onto a 36mm sensor.
func NewConfig() Config {
	return Config{
		Lens: LensSpec{
			Name:        "NT32-921",
			ObjectDist:  5.0e6,
			R1:          65.22,
			D1:          9.60,
			Glass1:      "N-SSK8",
			R2:          -62.03,
			D2:          4.20,
			Glass2:      "N-SF10",
			R3:          -1240.67,
			PupilRadius: 19.5,
		},
		SpectralBins: 12,
		SpectrumFrom: 440,
		SpectrumTo:   660,
		FocusAt:      550,
		BlendLo:      500,
		BlendHi:      600,
		Degree:       3,
		SampleMul:    1000,
		SensorWidth:  36,
		OutputWidth:  1920,
		OutputHeight: 1080,
		GamutFloor:   0.02,
		Seed:         1,
		Tonemapper:   "linear",
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.Unmarshal(b, &c)
	return c, err
}

// LoadConfig reads a YAML file over the top of the built-in defaults,
// so a config file only needs to name what it changes.
func LoadConfig(filename string) (Config, error) {
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return NewConfig(), fmt.Errorf("config read %s: %v", filename, err)
	}
	c, err := newConfigFromYaml(contents)
	if err != nil {
		return c, fmt.Errorf("config parse %s: %v", filename, err)
	}
	return c, nil
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("can't marshal config yaml: %v", err)
	}
	return string(b)
}

// Prescription lifts the lens spec into an optical prescription.
func (c Config)Prescription() optics.Prescription {
	return optics.NewAchromatPrescription(c.Lens.Name,
		c.Lens.ObjectDist,
		c.Lens.R1, c.Lens.D1, optics.Glass(c.Lens.Glass1),
		c.Lens.R2, c.Lens.D2, optics.Glass(c.Lens.Glass2),
		c.Lens.R3)
}

// Validate fails fast on configs that would only blow up mid-render.
func (c Config)Validate() error {
	if c.Degree < 1 {
		return fmt.Errorf("degree %d, need at least 1", c.Degree)
	}
	if c.OutputWidth < 1 || c.OutputHeight < 1 {
		return fmt.Errorf("output resolution %dx%d", c.OutputWidth, c.OutputHeight)
	}
	if c.SampleMul <= 0 {
		return fmt.Errorf("sample multiplier %g, need > 0", c.SampleMul)
	}
	if c.SensorWidth <= 0 {
		return fmt.Errorf("sensor width %gmm", c.SensorWidth)
	}
	if c.GamutFloor < 0 || c.GamutFloor >= 1 {
		return fmt.Errorf("gamut floor %g outside [0,1)", c.GamutFloor)
	}
	if c.Tonemapper != "all" && !knownTonemapper(c.Tonemapper) {
		return fmt.Errorf("tonemapper %q not recognized, wanted one of %s", c.Tonemapper, ListTonemappers())
	}

	l := c.Lens
	if l.ObjectDist <= 0 {
		return fmt.Errorf("lens %s: object distance %gmm", l.Name, l.ObjectDist)
	}
	if l.PupilRadius < 0 {
		return fmt.Errorf("lens %s: pupil radius %gmm", l.Name, l.PupilRadius)
	}
	for i, r := range []float64{l.R1, l.R2, l.R3} {
		if r == 0 {
			return fmt.Errorf("lens %s: surface %d has zero radius", l.Name, i+1)
		}
	}
	if c.BlendLo >= c.BlendHi {
		return fmt.Errorf("blend anchors %gnm..%gnm don't span anything", c.BlendLo, c.BlendHi)
	}

	// Every wavelength the lens gets built at must resolve to indices
	// for both glasses. This also catches unknown glass names.
	for _, g := range []string{l.Glass1, l.Glass2} {
		for _, nm := range []float64{c.BlendLo, c.FocusAt, c.BlendHi} {
			if _, err := optics.IndexAt(optics.Glass(g), nm); err != nil {
				return fmt.Errorf("lens %s: %v", l.Name, err)
			}
		}
	}

	// The spectrum constructor does its own feasibility checks (bin
	// count, range, observer coverage, normalization); borrow them.
	if _, err := spectrum.New(c.SpectralBins, c.SpectrumFrom, c.SpectrumTo); err != nil {
		return fmt.Errorf("spectrum: %v", err)
	}

	return nil
}
