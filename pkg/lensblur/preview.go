package lensblur

import(
	"fmt"
	"log"
	"strings"

	"github.com/mdouchement/hdr/tmo"
)

var(
	Tonemappers = []string{"drago03", "durand", "icam06", "linear", "reinhard05"}
)

func ListTonemappers() string {
	return fmt.Sprintf("%v", Tonemappers)
}

func knownTonemapper(name string) bool {
	for _, t := range Tonemappers {
		if t == name {
			return true
		}
	}
	return false
}

// WritePreview tonemaps the rendered radiance down to an LDR PNG,
// using the operator named in the config. "all" writes one PNG per
// operator, suffixing the operator name onto the filename.
func (j *Job)WritePreview(filename string) error {
	if j.Out == nil {
		return fmt.Errorf("nothing rendered yet")
	}

	if j.Config.Tonemapper != "all" {
		return j.writePreviewWith(j.Config.Tonemapper, filename)
	}

	base := strings.TrimSuffix(filename, ".png")
	for _, name := range Tonemappers {
		if err := j.writePreviewWith(name, fmt.Sprintf("%s-%s.png", base, name)); err != nil {
			return err
		}
	}
	return nil
}

func (j *Job)writePreviewWith(name, filename string) error {
	op, err := j.setupTonemapper(name)
	if err != nil {
		return err
	}
	log.Printf("tonemapping: %s -> %s", name, filename)
	return WritePNG(op.Perform(), filename)
}

func (j *Job)setupTonemapper(name string) (tmo.ToneMappingOperator, error) {
	switch name {
	case "drago03":
		return tmo.NewDefaultDrago03(j.Out), nil
	case "durand":
		return tmo.NewDefaultDurand(j.Out), nil
	case "icam06":
		return tmo.NewDefaultICam06(j.Out), nil
	case "linear":
		return tmo.NewLinear(j.Out), nil
	case "reinhard05":
		return tmo.NewDefaultReinhard05(j.Out), nil
	}
	return nil, fmt.Errorf("tonemapper %q not recognized, wanted one of %s", name, ListTonemappers())
}
