// Package ocr extracts text from images and scanned PDFs with Tesseract.
//
// An Engine binds a language and a tessdata directory; each call opens its own
// gosseract client, so an Engine may be shared between goroutines. PDFs are
// rasterized page by page with MuPDF (go-fitz) before recognition.
//
// # Prerequisites
//
// Tesseract and the language data must be installed:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-chi-sim
//   - macOS: brew install tesseract tesseract-lang
//
// The data directory can be overridden with the TESSDATA_PREFIX environment
// variable or the ocr.tessdata_path configuration key.
//
// # Languages
//
// The default language is Simplified Chinese ("chi_sim"). Any Tesseract code
// works, and several can be combined with '+', e.g. "chi_sim+eng".
//
// # Line Filtering
//
// ExtractLines picks the lines of recognized text that start with a prefix,
// which is how specific fields are pulled out of scanned standards documents.
package ocr
