package lensblur

import (
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdouchement/hdr"
	_ "github.com/mdouchement/hdr/codec/pfm"
	_ "github.com/mdouchement/hdr/codec/rgbe"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/tiff"

	"github.com/abworrall/lensblur/pkg/lmath"
	"github.com/abworrall/lensblur/pkg/render"
)

// LoadRadiance reads filename into a radiance image, keyed off the
// extension. True HDR formats carry radiance directly; a TIFF
// photograph gets linearized and, when EXIF exposure data is present,
// scaled back up to the illuminance the exposure recorded.
func LoadRadiance(filename string) (*render.Image, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tif", ".tiff":
		return loadTIFF(filename)
	case ".pfm", ".hdr", ".rgbe", ".xyze":
		return loadHDR(filename)
	}
	return nil, fmt.Errorf("load %s: don't know this extension", filename)
}

func loadHDR(filename string) (*render.Image, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r '%s': %v", filename, err)
	}
	defer reader.Close()

	img, _, err := image.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("hdr decoding '%s': %v", filename, err)
	}
	hdrImg, ok := img.(hdr.Image)
	if !ok {
		return nil, fmt.Errorf("'%s' decoded to %T, not a radiance image", filename, img)
	}
	return fromHDR(hdrImg), nil
}

func fromHDR(src hdr.Image) *render.Image {
	b := src.Bounds()
	im := render.NewImage(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bb, _ := src.HDRAt(b.Min.X+x, b.Min.Y+y).HDRRGBA()
			im.SetRGB(x, y, lmath.Vec3{r, g, bb})
		}
	}
	return im
}

func loadTIFF(filename string) (*render.Image, error) {
	scale := 1.0
	if ev, err := exifExposure(filename); err != nil {
		log.Printf("%s: no usable EXIF exposure (%v), keeping unit scale", filename, err)
	} else {
		log.Printf("%s: %s", filename, ev)
		scale = ev.LuxAtFullScale
	}

	reader, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r img '%s': %v", filename, err)
	}
	defer reader.Close()

	img, err := tiff.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("tiff loading '%s': %v", filename, err)
	}
	return fromLDR(img, scale), nil
}

// exifExposure digs the (ISO, f-number, shutter) triple out of the
// file's EXIF block. Exposure compensation is ignored; it is
// informational, the triple fully defines the exposure.
func exifExposure(filename string) (Exposure, error) {
	e := Exposure{}

	reader, err := os.Open(filename)
	if err != nil {
		return e, fmt.Errorf("open+r exif: %v", err)
	}
	defer reader.Close()

	ex, err := exif.Decode(reader)
	if err != nil {
		return e, fmt.Errorf("exif parsing: %v", err)
	}

	if tag, err := ex.Get(exif.ISOSpeedRatings); err != nil {
		return e, fmt.Errorf("exif ISO: %v", err)
	} else if e.ISO, err = tag.Int64(0); err != nil {
		return e, fmt.Errorf("exif ISO: %v", err)
	}

	if tag, err := ex.Get(exif.FNumber); err != nil {
		return e, fmt.Errorf("exif FNumber: %v", err)
	} else if num, denom, err := tag.Rat2(0); err != nil {
		return e, fmt.Errorf("exif FNumber: %v", err)
	} else if denom != 0 && (10*num)%denom == 0 {
		e.FNumberX10 = 10 * num / denom
	} else {
		return e, fmt.Errorf("exif FNumber %d/%d unhandled", num, denom)
	}

	if tag, err := ex.Get(exif.ExposureTime); err != nil {
		return e, fmt.Errorf("exif ExposureTime: %v", err)
	} else if e.ShutterNum, e.ShutterDenom, err = tag.Rat2(0); err != nil {
		return e, fmt.Errorf("exif ExposureTime: %v", err)
	}

	if err := e.Resolve(); err != nil {
		return e, err
	}
	return e, nil
}

func fromLDR(src image.Image, scale float64) *render.Image {
	b := src.Bounds()
	im := render.NewImage(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bb, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			v := lmath.GammaContract_sRGB(lmath.Vec3{
				float64(r) / 0xffff,
				float64(g) / 0xffff,
				float64(bb) / 0xffff,
			})
			im.SetRGB(x, y, v.Scale(scale))
		}
	}
	return im
}
