package imaging

import (
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
)

// PDFOptions control ImagesToPDF.
type PDFOptions struct {
	Width  int     // resized page image width in pixels (default 2000)
	Height int     // resized page image height in pixels (default 1500)
	DPI    float64 // page resolution (default 100)
}

const mmPerInch = 25.4

// ImagesToPDF resizes each image to the configured size and writes it as a
// single-page PDF named <outPrefix><n>.pdf, numbering from 0 in input order.
// It returns the written paths.
func ImagesToPDF(paths []string, outPrefix string, opts PDFOptions) ([]string, error) {
	if opts.Width <= 0 {
		opts.Width = 2000
	}
	if opts.Height <= 0 {
		opts.Height = 1500
	}
	if opts.DPI <= 0 {
		opts.DPI = 100
	}

	written := make([]string, 0, len(paths))
	for i, p := range paths {
		img, _, err := Decode(p)
		if err != nil {
			return written, err
		}
		resized := imaging.Resize(img, opts.Width, opts.Height, imaging.Lanczos)

		out := fmt.Sprintf("%s%d.pdf", outPrefix, i)
		if err := writeImagePDF(out, resized, opts.DPI); err != nil {
			return written, err
		}
		written = append(written, out)
	}
	return written, nil
}

func writeImagePDF(path string, img *image.NRGBA, dpi float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create pdf: %w", err)
	}
	defer f.Close()

	scale := mmPerInch / dpi
	w := float64(img.Bounds().Dx()) * scale
	h := float64(img.Bounds().Dy()) * scale

	r := pdf.New(f, w, h, nil)
	r.RenderImage(img, canvas.Identity.Scale(scale, scale))
	if err := r.Close(); err != nil {
		return fmt.Errorf("failed to write pdf %s: %w", path, err)
	}
	return f.Close()
}
