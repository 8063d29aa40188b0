package lensblur

import(
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdouchement/hdr/codec/pfm"
	"github.com/mdouchement/hdr/codec/rgbe"

	"github.com/abworrall/lensblur/pkg/render"
)

// SaveRadiance writes the image as PFM when the filename says so, and
// Radiance RGBE otherwise. Both load into the usual HDR tools.
func SaveRadiance(im *render.Image, filename string) error {
	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	}
	defer writer.Close()

	if strings.ToLower(filepath.Ext(filename)) == ".pfm" {
		err = pfm.Encode(writer, im)
	} else {
		err = rgbe.Encode(writer, im)
	}
	if err != nil {
		return fmt.Errorf("encoding '%s': %v", filename, err)
	}
	return nil
}

func WritePNG(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return png.Encode(writer, img)
	}
}
