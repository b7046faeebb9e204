package imaging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestImagesToPDF(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", createPatternImage(40, 30))
	b := writePNG(t, dir, "b.png", createPatternImage(30, 40))

	prefix := filepath.Join(dir, "out")
	written, err := ImagesToPDF([]string{a, b}, prefix, PDFOptions{Width: 80, Height: 60})
	if err != nil {
		t.Fatalf("ImagesToPDF failed: %v", err)
	}

	want := []string{prefix + "0.pdf", prefix + "1.pdf"}
	if len(written) != len(want) {
		t.Fatalf("written: got %v, want %v", written, want)
	}
	for i, p := range want {
		if written[i] != p {
			t.Errorf("written[%d]: got %s, want %s", i, written[i], p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if !bytes.HasPrefix(data, []byte("%PDF-")) {
			t.Errorf("%s does not start with a PDF header", p)
		}
	}
}

func TestImagesToPDF_StopsOnBadInput(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", createPatternImage(10, 10))
	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	written, err := ImagesToPDF([]string{a, bad}, filepath.Join(dir, "p"), PDFOptions{})
	if err == nil {
		t.Fatal("expected an error for the undecodable input")
	}
	if len(written) != 1 {
		t.Errorf("expected the first PDF to be reported, got %v", written)
	}
}
