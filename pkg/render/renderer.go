// Monte Carlo sampling of a polynomial optical system. The input
// image lives on the world plane; for every wavelength bin and every
// input pixel, rays are drawn through the lens aperture and splatted
// onto the sensor, weighted by the pixel's spectral power and the
// exit ray's Lambertian falloff.
package render

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/abworrall/lensblur/pkg/lmath"
	"github.com/abworrall/lensblur/pkg/poly"
	"github.com/abworrall/lensblur/pkg/spectrum"
)

// Params configures a render: the wavelength-interpolated optical
// system, plus the scalar facts derived from it.
type Params struct {
	System        *poly.System       // (xw, yw, xa, ya, lambda) -> (x', y', 1-cos^2)
	Spectrum      *spectrum.Spectrum // wavelength bins to trace
	Degree        int                // working truncation degree
	PupilRadius   float64            // mm; 0 is a pinhole
	SampleMul     float64            // rays per unit of pixel power
	SensorWidth   float64            // mm
	Width, Height int                // output resolution, px
	Magnification float64            // sensor/world; negative for an inverting lens
	Seed          int64              // runs with equal seeds draw equal samples
	Workers       int                // <1 means NumCPU
}

func (p Params)validate(in *Image) error {
	if p.System == nil {
		return fmt.Errorf("render: no optical system")
	}
	if p.System.In != 5 || p.System.Out != 3 {
		return fmt.Errorf("render: optical system maps %d->%d vars, need 5->3", p.System.In, p.System.Out)
	}
	if p.Spectrum == nil || len(p.Spectrum.Samples) == 0 {
		return fmt.Errorf("render: no spectrum bins")
	}
	if p.Degree < 1 {
		return fmt.Errorf("render: bad working degree %d", p.Degree)
	}
	if p.SampleMul <= 0 {
		return fmt.Errorf("render: sample multiplier must be positive, not %g", p.SampleMul)
	}
	if p.PupilRadius < 0 {
		return fmt.Errorf("render: negative pupil radius %gmm", p.PupilRadius)
	}
	if p.SensorWidth <= 0 {
		return fmt.Errorf("render: bad sensor width %gmm", p.SensorWidth)
	}
	if p.Width < 1 || p.Height < 1 {
		return fmt.Errorf("render: bad output resolution %dx%d", p.Width, p.Height)
	}
	if p.Magnification == 0 {
		return fmt.Errorf("render: zero magnification")
	}
	if in == nil || in.W < 1 || in.H < 1 {
		return fmt.Errorf("render: empty input image")
	}
	return nil
}

const numShards = 4096 // power of two is nice

// shardLocks spreads pixel ownership over a fixed pool of mutexes,
// so concurrent splats into the shared image stay cheap.
type shardLocks struct{ mu [numShards]sync.Mutex }

func (sl *shardLocks)lock(idx int)   { sl.mu[idx&(numShards-1)].Lock() }
func (sl *shardLocks)unlock(idx int) { sl.mu[idx&(numShards-1)].Unlock() }

type renderer struct {
	p     Params
	in    *Image
	out   *Image
	locks *shardLocks // nil when a single worker owns the image

	rowsDone  int64
	totalRows int64
	logEvery  int64
}

// A rowJob renders one (wavelength bin, input row) pair.
type rowJob struct {
	bin    int
	row    int
	sys    *poly.System // the bin's baked system, shared read-only
	lambda float64
	weight lmath.Vec3

	err error // filled in by the worker
}

// Render runs the sampling loops over bin x row x column x sample,
// and returns the accumulated sensor image.
func Render(p Params, in *Image) (*Image, *Stats, error) {
	if err := p.validate(in); err != nil {
		return nil, nil, err
	}
	workers := p.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	// Bake each bin's wavelength up front. Baking the interpolation
	// variable leaves terms above the working degree, so truncate
	// back down to keep the row systems consistent.
	binSys := make([]*poly.System, len(p.Spectrum.Samples))
	for i, smp := range p.Spectrum.Samples {
		sys, err := p.System.Bake(4, smp.Lambda)
		if err != nil {
			return nil, nil, fmt.Errorf("render: bake %gnm: %v", smp.Lambda, err)
		}
		binSys[i] = sys.Truncate(p.Degree)
		log.Printf("render: bin %2d at %gnm, weight %s", i, smp.Lambda, smp.Weight)
	}

	rc := &renderer{p: p, in: in, out: NewImage(p.Width, p.Height)}
	if workers > 1 {
		rc.locks = &shardLocks{}
	}
	rc.totalRows = int64(len(binSys)) * int64(in.H)
	rc.logEvery = rc.totalRows / 10
	if rc.logEvery < 1 {
		rc.logEvery = 1
	}

	var wg sync.WaitGroup
	jobsChan := make(chan rowJob, rc.totalRows)
	resultsChan := make(chan rowJob, rc.totalRows)

	// Kick off worker pool
	stats := make([]*Stats, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		stats[i] = newStats()

		go func(wid int) {
			defer wg.Done()
			for job := range jobsChan {
				job.err = rc.renderRow(&job, stats[wid])
				resultsChan<- job
			}
		}(i)
	}

	// Feed in jobs, bin major like the sequential loops would run
	for i, smp := range p.Spectrum.Samples {
		for j := 0; j < in.H; j++ {
			jobsChan<- rowJob{bin: i, row: j, sys: binSys[i], lambda: smp.Lambda, weight: smp.Weight}
		}
	}
	close(jobsChan)
	wg.Wait()
	close(resultsChan)

	st := stats[0]
	for i := 1; i < workers; i++ {
		st.merge(stats[i])
	}
	for job := range resultsChan {
		if job.err != nil {
			return nil, nil, fmt.Errorf("render: bin %gnm row %d: %v", job.lambda, job.row, job.err)
		}
	}
	log.Printf("render: done, %s", st)

	return rc.out, st, nil
}

// renderRow bakes the row's world-plane position into the bin system
// and samples every column of that input row.
func (rc *renderer)renderRow(job *rowJob, st *Stats) error {
	p := rc.p
	w, h := rc.in.W, rc.in.H

	// Row position on the sensor, then back through the lens to the
	// world plane.
	ySensor := float64(job.row-h/2) / float64(w) * p.SensorWidth
	rowSys, err := job.sys.Bake(1, ySensor/p.Magnification)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(jobSeed(p.Seed, job.bin, job.row)))

	// A source pixel's footprint in the world plane, for jitter.
	pixelSize := p.SensorWidth / float64(w) / p.Magnification
	scale := float64(p.Width) / p.SensorWidth
	halfX := float64(p.Width / 2)
	halfY := float64(p.Height / 2)

	in := make([]float64, 3)
	out := make([]float64, 3)
	for i := 0; i < w; i++ {
		xWorld := (float64(i)/float64(w) - 0.5) * p.SensorWidth / p.Magnification
		rgb := rc.in.BilinearAt(float64(i), float64(job.row))
		power := p.Spectrum.Power(job.lambda, rgb)
		n, weight := SampleBudget(power, p.SampleMul)
		st.record(n)
		st.Rays += int64(n)

		for s := 0; s < n; s++ {
			xa, ya := samplePupil(rng, p.PupilRadius)
			in[0] = xWorld + pixelSize*(rng.Float64()-0.5)
			in[1] = xa
			in[2] = ya
			rowSys.EvaluateInto(in, out)

			lambert := classifyLambert(out[2])
			if lambert == 0 {
				st.DarkRays++
				continue
			}
			rc.splat(out[0]*scale+halfX, out[1]*scale+halfY, job.weight.Scale(lambert*weight))
		}
	}

	done := atomic.AddInt64(&rc.rowsDone, 1)
	if done%rc.logEvery == 0 {
		log.Printf("render: %d/%d rows", done, rc.totalRows)
	}
	return nil
}

// splat adds into the shared output image, locking per footprint
// corner when more than one worker is writing.
func (rc *renderer)splat(x, y float64, v lmath.Vec3) {
	if rc.locks == nil {
		rc.out.Splat(x, y, v)
		return
	}
	var buf [4]tap
	n := rc.out.taps(x, y, &buf)
	for i := 0; i < n; i++ {
		rc.locks.lock(buf[i].idx)
		rc.out.Pix[buf[i].idx+0] += v[0] * buf[i].w
		rc.out.Pix[buf[i].idx+1] += v[1] * buf[i].w
		rc.out.Pix[buf[i].idx+2] += v[2] * buf[i].w
		rc.locks.unlock(buf[i].idx)
	}
}

// SampleBudget is the importance-sampling law: a pixel of spectral
// power L gets max(1, floor(L*mul)) rays, each carrying L/n, so
// bright pixels spend more rays on the same expected energy.
func SampleBudget(power, mul float64) (int, float64) {
	n := int(power * mul)
	if n < 1 {
		n = 1
	}
	return n, power / float64(n)
}

// samplePupil rejection-samples a point on the aperture disc. A
// pinhole collapses to the axis point. After 64 misses the last
// candidate is clamped onto the rim, so the loop always terminates.
func samplePupil(rng *rand.Rand, r float64) (x, y float64) {
	if r == 0 {
		return 0, 0
	}
	for i := 0; i < 64; i++ {
		x = (rng.Float64() - 0.5) * 2 * r
		y = (rng.Float64() - 0.5) * 2 * r
		if x*x+y*y <= r*r {
			return x, y
		}
	}
	d := math.Hypot(x, y)
	return x * r / d, y * r / d
}

// classifyLambert maps the system's "one minus cos^2" output to the
// Lambertian falloff factor, always in [0,1]. Past the expansion's
// region of validity the term overshoots 1 and the square root goes
// invalid; such samples carry no light. Truncation dust below zero
// clamps to a falloff of 1.
func classifyLambert(oneMinusCos2 float64) float64 {
	l := math.Sqrt(1 - oneMinusCos2)
	switch {
	case math.IsNaN(l):
		return 0
	case l > 1:
		return 1
	}
	return l
}

// jobSeed derives an independent RNG stream for each (bin, row) job
// from the run seed, so output does not depend on which worker runs
// which job. splitmix64 finalizer.
func jobSeed(seed int64, bin, row int) int64 {
	z := uint64(seed) + uint64(bin+1)*0x9e3779b97f4a7c15 + uint64(row+1)*0xbf58476d1ce4e5b9
	z ^= z >> 30
	z *= 0xbf58476d1ce4e5b9
	z ^= z >> 27
	z *= 0x94d049bb133111eb
	z ^= z >> 31
	return int64(z)
}
