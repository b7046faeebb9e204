package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// PageText is the text recognized on one PDF page (1-based).
type PageText struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// PDFResult holds per-page text and its concatenation.
type PDFResult struct {
	Pages []PageText `json:"pages"`
	Text  string     `json:"text"`
}

// RenderPDF rasterizes every page of the PDF at dpi.
func RenderPDF(path string, dpi float64) ([]image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := make([]image.Image, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		img, err := doc.ImageDPI(n, dpi)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", n+1, err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}

// OCRPDF renders each page at dpi and runs OCR on it. Pages are rendered one
// at a time; ctx is checked between pages.
func (e *Engine) OCRPDF(ctx context.Context, path string, dpi float64) (*PDFResult, error) {
	if dpi <= 0 {
		dpi = 200
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	res := &PDFResult{Pages: make([]PageText, 0, doc.NumPage())}
	var all strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := doc.ImageDPI(n, dpi)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", n+1, err)
		}
		page, err := e.ExtractTextFromImage(img)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", n+1, err)
		}

		e.logger().Debug("page recognized",
			zap.String("file", path),
			zap.Int("page", n+1),
			zap.Int("chars", len(page.FullText)))
		res.Pages = append(res.Pages, PageText{Page: n + 1, Text: page.FullText})
		all.WriteString(page.FullText)
	}
	res.Text = all.String()
	return res, nil
}

// PDFText returns the embedded text layer of each page without OCR. Scanned
// documents usually have none.
func PDFText(path string) (*PDFResult, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	res := &PDFResult{Pages: make([]PageText, 0, doc.NumPage())}
	var all strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		text, err := doc.Text(n)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", n+1, err)
		}
		res.Pages = append(res.Pages, PageText{Page: n + 1, Text: text})
		all.WriteString(text)
	}
	res.Text = all.String()
	return res, nil
}
