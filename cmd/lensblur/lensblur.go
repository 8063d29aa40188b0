package main

import(
	"flag"
	"log"

	"github.com/abworrall/lensblur/pkg/lensblur"
)

var(
	fVerbosity  int
	fConfig     string
	fOutput     string
	fPreview    string
	fDiag       string
	fTonemapper string
	fSeed       int64
	fWorkers    int
	fSampleMul  float64
)

func init() {
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fConfig, "config", "", "YAML file overriding the built-in lens and render settings")
	flag.StringVar(&fOutput, "o", "out.hdr", "output radiance image (.pfm, else Radiance RGBE)")
	flag.StringVar(&fPreview, "preview", "", "also write a tonemapped LDR preview PNG here")
	flag.StringVar(&fDiag, "diag", "", "write diagnostic images under this filename prefix")
	flag.StringVar(&fTonemapper, "tonemapper", "", "preview operator, one of "+lensblur.ListTonemappers()+", or all")
	flag.Int64Var(&fSeed, "seed", 0, "random seed (0 keeps the config value)")
	flag.IntVar(&fWorkers, "workers", 0, "render workers (0 = one per CPU)")
	flag.Float64Var(&fSampleMul, "samplemul", 0, "rays per unit spectral power (0 keeps the config value)")
	flag.Parse()

	log.Printf("lensblur starting\n")
}

func main() {
	if flag.NArg() != 1 {
		log.Fatal("usage: lensblur [flags] input.{pfm,hdr,tif}")
	}

	cfg := lensblur.NewConfig()
	if fConfig != "" {
		var err error
		if cfg, err = lensblur.LoadConfig(fConfig); err != nil {
			log.Fatal(err)
		}
	}

	cfg.Verbosity = fVerbosity
	if fSeed != 0 {
		cfg.Seed = fSeed
	}
	if fWorkers != 0 {
		cfg.Workers = fWorkers
	}
	if fSampleMul != 0 {
		cfg.SampleMul = fSampleMul
	}
	if fTonemapper != "" {
		cfg.Tonemapper = fTonemapper
	}

	if cfg.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
	}

	job := lensblur.NewJob(cfg)
	if err := job.LoadInput(flag.Arg(0)); err != nil {
		log.Fatal(err)
	}
	if err := job.Render(); err != nil {
		log.Fatal(err)
	}
	if err := job.SaveOutput(fOutput); err != nil {
		log.Fatal(err)
	}

	if fPreview != "" {
		if err := job.WritePreview(fPreview); err != nil {
			log.Fatal(err)
		}
	}
	if fDiag != "" {
		if err := job.WriteDiagnostics(fDiag); err != nil {
			log.Fatal(err)
		}
	}
}
