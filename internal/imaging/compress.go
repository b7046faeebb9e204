package imaging

import (
	"fmt"
	"os"

	"github.com/disintegration/imaging"
)

// CompressOptions control Compress.
type CompressOptions struct {
	// Scale multiplies both sides; values outside (0,1] mean 0.5.
	Scale float64

	// Quality is the JPEG quality; values outside 1..100 mean 75.
	Quality int
}

// CompressResult reports what Compress did.
type CompressResult struct {
	Output         string `json:"output"`
	OriginalWidth  int    `json:"original_width"`
	OriginalHeight int    `json:"original_height"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	OriginalBytes  int64  `json:"original_bytes"`
	Bytes          int64  `json:"bytes"`
}

// Compress shrinks the image at src and re-encodes it as JPEG at dst.
func Compress(src, dst string, opts CompressOptions) (*CompressResult, error) {
	if opts.Scale <= 0 || opts.Scale > 1 {
		opts.Scale = 0.5
	}
	if opts.Quality < 1 || opts.Quality > 100 {
		opts.Quality = 75
	}

	img, _, err := Decode(src)
	if err != nil {
		return nil, err
	}
	srcStat, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source: %w", err)
	}

	b := img.Bounds()
	w := max(1, int(float64(b.Dx())*opts.Scale))
	h := max(1, int(float64(b.Dy())*opts.Scale))
	resized := imaging.Resize(img, w, h, imaging.Lanczos)

	if err := imaging.Save(resized, dst, imaging.JPEGQuality(opts.Quality)); err != nil {
		return nil, fmt.Errorf("failed to save compressed image: %w", err)
	}
	dstStat, err := os.Stat(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to stat output: %w", err)
	}

	return &CompressResult{
		Output:         dst,
		OriginalWidth:  b.Dx(),
		OriginalHeight: b.Dy(),
		Width:          w,
		Height:         h,
		OriginalBytes:  srcStat.Size(),
		Bytes:          dstStat.Size(),
	}, nil
}
