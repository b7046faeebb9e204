package rectify

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"

	"github.com/ironsheep/doc-tools-mcp/internal/imaging"
)

// Foreground and Background are the two values of a binary image.
const (
	Foreground = 255
	Background = 0
)

// Grayscale converts img to BT.601 luma with bounds anchored at (0,0).
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[(y-b.Min.Y)*gray.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			row[x-b.Min.X] = imaging.Luma(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
		}
	}
	return gray
}

// OtsuThreshold returns the gray level maximizing the between-class variance
// of gray's histogram. Pixels strictly above it belong to the foreground.
// A single-valued image yields 0.
func OtsuThreshold(gray *image.Gray) uint8 {
	var hist [256]float64
	b := gray.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[gray.GrayAt(x, y).Y]++
		}
	}

	total := float64(b.Dx() * b.Dy())
	if total == 0 {
		return 0
	}

	var mu float64
	for i, n := range hist {
		mu += float64(i) * n / total
	}

	const eps = 1e-6
	var (
		q1, mu1  float64
		maxSigma float64
		best     int
	)
	for i := 0; i < 256; i++ {
		p := hist[i] / total
		q1 += p
		mu1 += float64(i) * p
		q2 := 1 - q1
		if math.Min(q1, q2) < eps || math.Max(q1, q2) > 1-eps {
			continue
		}
		m1 := mu1 / q1
		m2 := (mu - mu1) / q2
		sigma := q1 * q2 * (m1 - m2) * (m1 - m2)
		if sigma > maxSigma {
			maxSigma = sigma
			best = i
		}
	}
	return uint8(best)
}

// BinarizeOtsu thresholds img with Otsu's method and closes small gaps with a
// 3x3 dilation followed by a 3x3 erosion.
func BinarizeOtsu(img image.Image) *image.Gray {
	gray := Grayscale(img)
	t := OtsuThreshold(gray)

	bin := image.NewGray(gray.Bounds())
	for i, v := range gray.Pix {
		if v > t {
			bin.Pix[i] = Foreground
		}
	}
	return erode(dilate(bin))
}

// BinarizeAdaptive thresholds each pixel against the Gaussian-weighted mean of
// its blockSize x blockSize neighborhood: a pixel is foreground when it is
// brighter than the mean minus c. Isolated specks are then removed with a
// 3x3 erosion followed by a 3x3 dilation.
//
// blockSize must be odd and at least 3; other values are rounded up.
func BinarizeAdaptive(img image.Image, blockSize int, c float64) *image.Gray {
	if blockSize < 3 {
		blockSize = 3
	}
	if blockSize%2 == 0 {
		blockSize++
	}

	gray := Grayscale(img)
	mean := gaussianMean(gray, blockSize)
	delta := math.Ceil(c)

	bin := image.NewGray(gray.Bounds())
	for i, v := range gray.Pix {
		if float64(v)-float64(mean.Pix[i]) > -delta {
			bin.Pix[i] = Foreground
		}
	}
	return dilate(erode(bin))
}

// gaussianKernel returns the normalized 1-D Gaussian for size, with the sigma
// OpenCV derives when none is given.
func gaussianKernel(size int) []float64 {
	sigma := 0.3*((float64(size)-1)*0.5-1) + 0.8
	k := make([]float64, size)
	r := size / 2
	var sum float64
	for i := range k {
		d := float64(i - r)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// gaussianMean blurs gray with replicated borders.
func gaussianMean(gray *image.Gray, size int) *image.Gray {
	g := gaussianKernel(size)
	kernel := convolution.NewKernel(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			kernel.Matrix[y*size+x] = g[x] * g[y]
		}
	}

	r := size / 2
	padded := clone.Pad(gray, r, r, clone.EdgeExtend)
	blurred := convolution.Convolve(padded, kernel, &convolution.Options{Wrap: false})

	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x] = blurred.RGBAAt(x+r, y+r).R
		}
	}
	return out
}

func dilate(bin *image.Gray) *image.Gray {
	return redChannel(effect.Dilate(bin, 1))
}

func erode(bin *image.Gray) *image.Gray {
	return redChannel(effect.Erode(bin, 1))
}

func redChannel(img *image.RGBA) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Pix[y*out.Stride+x] = img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)]
		}
	}
	return out
}
