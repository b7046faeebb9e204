package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"

	"github.com/ironsheep/doc-tools-mcp/internal/config"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// TextRegion is a recognized word with its location and confidence.
type TextRegion struct {
	Text string `json:"text"`

	// Confidence is Tesseract's score scaled to 0.0-1.0.
	Confidence float64 `json:"confidence"`

	Bounds Bounds `json:"bounds"`
}

// OCRResult contains the text recognized in one image.
type OCRResult struct {
	// FullText keeps Tesseract's line breaks.
	FullText string `json:"full_text"`

	// Regions may be empty when word boxes are unavailable; FullText is still set.
	Regions []TextRegion `json:"regions"`
}

// Engine runs Tesseract with a fixed language and data directory.
type Engine struct {
	// Language is a Tesseract language code such as "eng" or "chi_sim".
	// Several languages are joined with '+'.
	Language string

	// TessdataPrefix is the directory holding *.traineddata files. Empty uses
	// the Tesseract default (or the TESSDATA_PREFIX environment variable).
	TessdataPrefix string

	Logger *zap.Logger
}

// NewEngine builds an Engine from the OCR configuration section.
func NewEngine(cfg config.OCRConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Language:       cfg.Language,
		TessdataPrefix: cfg.TessdataPath,
		Logger:         logger,
	}
}

// WithLanguage returns a copy of e using lang, or e itself when lang is empty.
func (e *Engine) WithLanguage(lang string) *Engine {
	if lang == "" || lang == e.Language {
		return e
	}
	c := *e
	c.Language = lang
	return &c
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Engine) newClient() (*gosseract.Client, error) {
	client := gosseract.NewClient()
	if e.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	lang := e.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	return client, nil
}

// recognize reads the text and word boxes of the image already set on client.
func recognize(client *gosseract.Client) (*OCRResult, error) {
	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	result := &OCRResult{FullText: text, Regions: []TextRegion{}}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return result, nil
	}
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		result.Regions = append(result.Regions, TextRegion{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds:     boundsOf(box.Box),
		})
	}
	return result, nil
}

func boundsOf(r image.Rectangle) Bounds {
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// ExtractText performs OCR on an image file.
func (e *Engine) ExtractText(imagePath string) (*OCRResult, error) {
	client, err := e.newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	return recognize(client)
}

// ExtractTextFromImage performs OCR on a decoded image. The image is handed to
// Tesseract as an in-memory PNG.
func (e *Engine) ExtractTextFromImage(img image.Image) (*OCRResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	client, err := e.newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	return recognize(client)
}

// ExtractTextFromRegion performs OCR on region of img, clamped to the image
// bounds. Word bounds in the result are in img coordinates.
func (e *Engine) ExtractTextFromRegion(img image.Image, region image.Rectangle) (*OCRResult, error) {
	region = region.Canon().Intersect(img.Bounds())
	if region.Empty() {
		return nil, fmt.Errorf("region %v does not overlap image bounds %v", region, img.Bounds())
	}

	result, err := e.ExtractTextFromImage(imaging.Crop(img, region))
	if err != nil {
		return nil, err
	}
	for i := range result.Regions {
		b := &result.Regions[i].Bounds
		b.X1 += region.Min.X
		b.Y1 += region.Min.Y
		b.X2 += region.Min.X
		b.Y2 += region.Min.Y
	}
	return result, nil
}

// OCRInfo describes the OCR engine.
type OCRInfo struct {
	Available      bool   `json:"available"`
	Version        string `json:"version,omitempty"`
	Backend        string `json:"backend"`
	Language       string `json:"language"`
	TessdataPrefix string `json:"tessdata_prefix,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Info reports the Tesseract version and whether the engine's language data
// can be loaded.
func (e *Engine) Info() OCRInfo {
	info := OCRInfo{
		Backend:        "gosseract",
		Language:       e.Language,
		TessdataPrefix: e.TessdataPrefix,
	}

	client, err := e.newClient()
	if err != nil {
		info.Error = err.Error()
		return info
	}
	defer client.Close()

	info.Version = client.Version()
	blank := image.NewGray(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	if err := png.Encode(&buf, blank); err == nil {
		if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
			info.Error = err.Error()
			return info
		}
		if _, err := client.Text(); err != nil {
			info.Error = err.Error()
			return info
		}
	}
	info.Available = true
	return info
}
