package rectify

import (
	"errors"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/doc-tools-mcp/internal/config"
)

// Options control rectification.
type Options struct {
	Width          int     // output width (default 800)
	Height         int     // output height (default 600)
	AgreementRatio float64 // merge threshold as a fraction of image width (default 1/20)
	BlockSize      int     // adaptive threshold neighborhood (default 11)
	C              float64 // adaptive threshold offset (default 2)

	// Suffixes selects files in ProcessDir and Watch.
	Suffixes []string
	// Workers bounds ProcessDir concurrency; zero means one per CPU.
	Workers int
	// Settle is how long Watch waits after the last event for a file before
	// processing it (default 300ms).
	Settle time.Duration

	Logger *zap.Logger
}

// OptionsFromConfig converts the rectify configuration section.
func OptionsFromConfig(c config.RectifyConfig, logger *zap.Logger) Options {
	return Options{
		Width:          c.Width,
		Height:         c.Height,
		AgreementRatio: c.AgreementRatio,
		BlockSize:      c.BlockSize,
		C:              c.C,
		Suffixes:       c.Suffixes,
		Workers:        c.Workers,
		Logger:         logger,
	}
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 600
	}
	if o.AgreementRatio <= 0 {
		o.AgreementRatio = 1.0 / 20.0
	}
	if o.BlockSize <= 0 {
		o.BlockSize = 11
	}
	if o.C == 0 {
		o.C = 2
	}
	if len(o.Suffixes) == 0 {
		o.Suffixes = []string{".jpg", ".jpeg", ".png"}
	}
	if o.Settle <= 0 {
		o.Settle = 300 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Detection holds both corner estimates and their reconciliation.
type Detection struct {
	Otsu      Quad          `json:"otsu"`
	Adaptive  Quad          `json:"adaptive"`
	Merged    Quad          `json:"merged"`
	Strategy  MergeStrategy `json:"strategy"`
	Threshold float64       `json:"threshold"`
}

// Result is a Detection plus the rectified image.
type Result struct {
	Detection
	Image *image.NRGBA `json:"-"`
}

// Detect estimates the slide corners of img.
//
// When only one binarization finds a contour, its corners are used directly
// and Strategy names that estimate. ErrNoContour is returned when neither does.
func Detect(img image.Image, opts Options) (*Detection, error) {
	opts = opts.withDefaults()

	otsu, otsuErr := FindCorners(BinarizeOtsu(img))
	adaptive, adaptiveErr := FindCorners(BinarizeAdaptive(img, opts.BlockSize, opts.C))

	d := &Detection{
		Otsu:      otsu,
		Adaptive:  adaptive,
		Threshold: float64(img.Bounds().Dx()) * opts.AgreementRatio,
	}

	switch {
	case otsuErr != nil && adaptiveErr != nil:
		return nil, fmt.Errorf("detecting corners: %w", errors.Join(otsuErr, adaptiveErr))
	case otsuErr != nil:
		d.Merged, d.Strategy = adaptive, MergeAdaptive
	case adaptiveErr != nil:
		d.Merged, d.Strategy = otsu, MergeOtsu
	default:
		d.Merged, d.Strategy = MergeCorners(otsu, adaptive, d.Threshold)
	}

	opts.Logger.Debug("corners detected",
		zap.Stringer("otsu", quadStringer(d.Otsu)),
		zap.Stringer("adaptive", quadStringer(d.Adaptive)),
		zap.Stringer("merged", quadStringer(d.Merged)),
		zap.String("strategy", string(d.Strategy)),
		zap.Float64("threshold", d.Threshold))

	return d, nil
}

// Rectify detects the slide in img and warps it onto an upright rectangle of
// opts.Width x opts.Height.
func Rectify(img image.Image, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	d, err := Detect(img, opts)
	if err != nil {
		return nil, err
	}

	m, err := PerspectiveTransform(d.Merged, Rect(opts.Width, opts.Height))
	if err != nil {
		return nil, fmt.Errorf("computing transform for %v: %w", d.Merged, err)
	}
	out, err := Warp(img, m, opts.Width, opts.Height)
	if err != nil {
		return nil, err
	}

	return &Result{Detection: *d, Image: out}, nil
}

type quadStringer Quad

func (q quadStringer) String() string {
	return fmt.Sprintf("%v %v %v %v", q[0], q[1], q[2], q[3])
}
