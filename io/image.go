package io

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"

	"github.com/phil-mansfield/caustic/geom"
)

// Mapping describes how grid values are mapped to pixel intensities.
type Mapping int

const (
	// Auto uses Clamp for intensities and MinMax for everything else.
	Auto Mapping = iota
	// Clamp clamps values to [0, 1].
	Clamp
	// MinMax maps the smallest value of a channel to 0 and the largest to 1.
	MinMax
	// Sine maps v to 0.5 + 0.5 sin(v).
	Sine
	EndMapping
)

var mappingNames = [...]string{"Auto", "Clamp", "MinMax", "Sine"}

func (m Mapping) String() string {
	if m < 0 || m >= EndMapping {
		return fmt.Sprintf("Mapping(%d)", int(m))
	}
	return mappingNames[m]
}

// ParseMapping returns the Mapping with the given name. Case is ignored.
func ParseMapping(name string) (Mapping, error) {
	for m := Mapping(0); m < EndMapping; m++ {
		if strings.EqualFold(m.String(), name) {
			return m, nil
		}
	}
	return -1, fmt.Errorf(
		"Unrecognized mapping '%s'. Only recognized values are 'Auto', "+
			"'Clamp', 'MinMax' and 'Sine'.", name,
	)
}

// Resolve replaces Auto with the mapping used for the given grid type.
func (m Mapping) Resolve(flag GridFlag) Mapping {
	if m != Auto {
		return m
	}
	switch flag {
	case Lightmap, Warped, TransportUV, Image:
		return Clamp
	}
	return MinMax
}

// ImageGrid converts img to a one-channel grid of luminances in [0, 1].
// Non-square images are resampled to a square with the width of their
// longer side. Row 0 of the grid is the top row of the image.
func ImageGrid(img image.Image) *geom.Grid {
	b := img.Bounds()
	if b.Dx() != b.Dy() {
		side := b.Dx()
		if b.Dy() > side {
			side = b.Dy()
		}
		sq := image.NewRGBA64(image.Rect(0, 0, side, side))
		draw.CatmullRom.Scale(sq, sq.Bounds(), img, b, draw.Src, nil)
		img, b = sq, sq.Bounds()
	}

	g := geom.NewGrid(b.Dx(), 1)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			gray := color.Gray16Model.Convert(c).(color.Gray16)
			g.Set(x, y, 0, float64(gray.Y)/math.MaxUint16)
		}
	}
	return g
}

// ReadImage reads a PNG, JPEG, GIF, BMP or TIFF image as a one-channel
// grid. See ImageGrid.
func ReadImage(file string) (*geom.Grid, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("Could not decode image %s: %w", file, err)
	}
	return ImageGrid(img), nil
}

// channelRange returns a function mapping the values of channel c of g to
// [0, 1]. NaNs are ignored by MinMax and written as 0.
func channelRange(g *geom.Grid, c int, m Mapping) func(float64) float64 {
	switch m {
	case Sine:
		return func(v float64) float64 { return 0.5 + 0.5*math.Sin(v) }
	case MinMax:
		lo, hi := math.Inf(+1), math.Inf(-1)
		for i := c; i < len(g.Vals); i += g.Channels() {
			if v := g.Vals[i]; !math.IsNaN(v) {
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
		}
		if !(hi > lo) {
			return func(float64) float64 { return 0 }
		}
		return func(v float64) float64 { return (v - lo) / (hi - lo) }
	}
	return func(v float64) float64 { return v }
}

func toUint16(v float64) uint16 {
	if !(v > 0) {
		return 0
	} else if v >= 1 {
		return math.MaxUint16
	}
	return uint16(math.Round(v * math.MaxUint16))
}

// GridImage converts g to an opaque image. One-channel grids become gray
// images. Two-channel grids are written to the red and green channels and
// four-channel grids to red, green and blue. Values are mapped to [0, 1]
// with m, which must not be Auto, and the image is scaled up by scale.
func GridImage(g *geom.Grid, m Mapping, scale int) image.Image {
	if m == Auto || m < 0 || m >= EndMapping {
		panic(fmt.Sprintf("Mapping %s cannot be used to write images.", m))
	} else if scale < 1 {
		panic(fmt.Sprintf("Image scale %d must be positive.", scale))
	}

	fs := make([]func(float64) float64, g.Channels())
	for c := range fs {
		fs[c] = channelRange(g, c, m)
	}

	w := g.Width()
	var img draw.Image
	if g.Channels() == 1 {
		gray := image.NewGray16(image.Rect(0, 0, w, w))
		for y := 0; y < w; y++ {
			for x := 0; x < w; x++ {
				v := toUint16(fs[0](g.At(x, y, 0)))
				gray.SetGray16(x, y, color.Gray16{Y: v})
			}
		}
		img = gray
	} else {
		rgba := image.NewRGBA64(image.Rect(0, 0, w, w))
		for y := 0; y < w; y++ {
			for x := 0; x < w; x++ {
				c := color.RGBA64{A: math.MaxUint16}
				t := g.Texel(x, y)
				c.R = toUint16(fs[0](t[0]))
				c.G = toUint16(fs[1](t[1]))
				if len(t) == 4 {
					c.B = toUint16(fs[2](t[2]))
				}
				rgba.SetRGBA64(x, y, c)
			}
		}
		img = rgba
	}

	if scale == 1 {
		return img
	}
	big := image.NewRGBA64(image.Rect(0, 0, w*scale, w*scale))
	draw.NearestNeighbor.Scale(big, big.Bounds(), img, img.Bounds(),
		draw.Src, nil)
	return big
}

// WritePNG writes g to the given file as a PNG image. See GridImage.
func WritePNG(file string, g *geom.Grid, m Mapping, scale int) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err = png.Encode(f, GridImage(g, m, scale)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
