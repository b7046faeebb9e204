package rectify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/doc-tools-mcp/internal/folder"
	"github.com/ironsheep/doc-tools-mcp/internal/imaging"
)

// ErrSameDir is returned when the output directory is the source directory.
var ErrSameDir = errors.New("output directory must differ from source directory")

func checkDirs(srcDir, dstDir string) error {
	src, err := filepath.Abs(srcDir)
	if err != nil {
		return err
	}
	dst, err := filepath.Abs(dstDir)
	if err != nil {
		return err
	}
	if src == dst {
		return ErrSameDir
	}
	return nil
}

// FileResult reports the outcome for one file.
type FileResult struct {
	Source   string        `json:"source"`
	Output   string        `json:"output,omitempty"`
	Strategy MergeStrategy `json:"strategy,omitempty"`
	Merged   *Quad         `json:"merged,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// RectifyFile rectifies the image at src and saves it to dst.
func RectifyFile(src, dst string, opts Options) (*Result, error) {
	img, _, err := imaging.Decode(src)
	if err != nil {
		return nil, err
	}
	res, err := Rectify(img, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(src), err)
	}
	if err := imaging.Save(res.Image, dst, 95); err != nil {
		return nil, err
	}
	return res, nil
}

func processOne(src, dstDir string, opts Options) FileResult {
	out := filepath.Join(dstDir, filepath.Base(src))
	fr := FileResult{Source: src}

	res, err := RectifyFile(src, out, opts)
	if err != nil {
		fr.Error = err.Error()
		opts.Logger.Warn("rectify failed", zap.String("file", src), zap.Error(err))
		return fr
	}

	fr.Output = out
	fr.Strategy = res.Strategy
	merged := res.Merged
	fr.Merged = &merged
	opts.Logger.Info("rectified",
		zap.String("file", src),
		zap.String("output", out),
		zap.String("strategy", string(res.Strategy)))
	return fr
}

// ProcessDir rectifies every matching image directly inside srcDir into
// dstDir under the same file name. Files are processed concurrently; a failing
// file is reported in its FileResult and does not stop the others. Results
// follow the sorted order of the source files.
func ProcessDir(ctx context.Context, srcDir, dstDir string, opts Options) ([]FileResult, error) {
	opts = opts.withDefaults()

	if err := checkDirs(srcDir, dstDir); err != nil {
		return nil, err
	}

	files, err := folder.List(srcDir, opts.Suffixes, false)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]FileResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = processOne(f, dstDir, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
