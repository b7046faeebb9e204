package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrUnknownColorSpace is returned for a color space name that is not supported.
var ErrUnknownColorSpace = errors.New("unknown color space")

// ColorSpace names a target of ConvertColorSpace.
type ColorSpace string

const (
	SpaceRGB  ColorSpace = "RGB"
	SpaceGray ColorSpace = "GRAY"
	SpaceHSV  ColorSpace = "HSV"
	SpaceLab  ColorSpace = "Lab"
	SpaceYUV  ColorSpace = "YUV"
)

// ParseColorSpace maps a case-insensitive name to a ColorSpace.
func ParseColorSpace(name string) (ColorSpace, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "RGB":
		return SpaceRGB, nil
	case "GRAY", "GREY":
		return SpaceGray, nil
	case "HSV":
		return SpaceHSV, nil
	case "LAB":
		return SpaceLab, nil
	case "YUV":
		return SpaceYUV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownColorSpace, name)
}

// ConvertColorSpace converts img into the given space.
//
// GRAY yields an *image.Gray holding BT.601 luma. Every other space yields an
// *image.NRGBA whose R, G and B samples carry the three channels in 8-bit form,
// the same packing OpenCV uses for 8-bit images:
//
//	HSV  H/2 (0..179), S*255, V*255
//	Lab  L*255/100, a+128, b+128
//	YUV  Y, U+128, V+128
//
// Alpha is preserved.
func ConvertColorSpace(img image.Image, space ColorSpace) (image.Image, error) {
	b := img.Bounds()

	if space == SpaceGray {
		gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				gray.Pix[(y-b.Min.Y)*gray.Stride+(x-b.Min.X)] = Luma(c.R, c.G, c.B)
			}
		}
		return gray, nil
	}

	var convert func(c color.NRGBA) (uint8, uint8, uint8)
	switch space {
	case SpaceRGB:
		convert = func(c color.NRGBA) (uint8, uint8, uint8) { return c.R, c.G, c.B }
	case SpaceHSV:
		convert = toHSV
	case SpaceLab:
		convert = toLab
	case SpaceYUV:
		convert = toYUV
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownColorSpace, space)
	}

	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			c0, c1, c2 := convert(c)
			i := out.PixOffset(x-b.Min.X, y-b.Min.Y)
			out.Pix[i+0] = c0
			out.Pix[i+1] = c1
			out.Pix[i+2] = c2
			out.Pix[i+3] = c.A
		}
	}
	return out, nil
}

// Luma returns the BT.601 luma of an 8-bit RGB triple.
func Luma(r, g, b uint8) uint8 {
	return clamp8(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b))
}

func colorfulOf(c color.NRGBA) colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

func toHSV(c color.NRGBA) (uint8, uint8, uint8) {
	h, s, v := colorfulOf(c).Hsv()
	return clamp8(h / 2), clamp8(s * 255), clamp8(v * 255)
}

// go-colorful scales Lab by 1/100 relative to CIE units.
func toLab(c color.NRGBA) (uint8, uint8, uint8) {
	l, a, bb := colorfulOf(c).Lab()
	return clamp8(l * 255), clamp8(a*100 + 128), clamp8(bb*100 + 128)
}

func toYUV(c color.NRGBA) (uint8, uint8, uint8) {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)
	y := 0.299*r + 0.587*g + 0.114*b
	u := 0.492*(b-y) + 128
	v := 0.877*(r-y) + 128
	return clamp8(y), clamp8(u), clamp8(v)
}

func clamp8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
