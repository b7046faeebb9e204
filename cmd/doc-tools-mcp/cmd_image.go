package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/doc-tools-mcp/internal/imaging"
	"github.com/ironsheep/doc-tools-mcp/internal/rectify"
)

var (
	rectWidth  int
	rectHeight int
	rectWatch  bool

	compressScale   float64
	compressQuality int

	pdfWidth  int
	pdfHeight int
	pdfDPI    float64
)

var rectifyCmd = &cobra.Command{
	Use:   "rectify <src> <dst>",
	Short: "Straighten slide photos",
	Long: `Detect the projected slide in each photo and warp it onto an upright
rectangle.

With a file, <dst> is the output file. With a directory, every image directly
inside it is written to <dst> under the same name; --watch keeps running and
handles new files as they appear.`,
	Args: cobra.ExactArgs(2),
	RunE: runRectify,
}

var cornersCmd = &cobra.Command{
	Use:   "corners <image>",
	Short: "Print the detected slide corners",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, _, err := imaging.Decode(args[0])
		if err != nil {
			return err
		}
		d, err := rectify.Detect(img, rectifyOptions())
		if err != nil {
			return err
		}
		return printJSON(cmd, d)
	},
}

var colorSpaceCmd = &cobra.Command{
	Use:   "colorspace <image> <RGB|GRAY|HSV|Lab|YUV> <output>",
	Short: "Convert an image to another color space",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		space, err := imaging.ParseColorSpace(args[1])
		if err != nil {
			return err
		}
		img, _, err := imaging.Decode(args[0])
		if err != nil {
			return err
		}
		out, err := imaging.ConvertColorSpace(img, space)
		if err != nil {
			return err
		}
		return imaging.Save(out, args[2], 95)
	},
}

var compressCmd = &cobra.Command{
	Use:   "compress <src> <dst>",
	Short: "Downscale an image and save it as JPEG",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := imaging.Compress(args[0], args[1], imaging.CompressOptions{Scale: compressScale, Quality: compressQuality})
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

var toPDFCmd = &cobra.Command{
	Use:   "topdf <output-prefix> <image>...",
	Short: "Write each image as a one-page PDF",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		written, err := imaging.ImagesToPDF(args[1:], args[0], imaging.PDFOptions{Width: pdfWidth, Height: pdfHeight, DPI: pdfDPI})
		for _, p := range written {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return err
	},
}

func init() {
	rectifyCmd.Flags().IntVar(&rectWidth, "width", 0, "Output width (default from config)")
	rectifyCmd.Flags().IntVar(&rectHeight, "height", 0, "Output height (default from config)")
	rectifyCmd.Flags().BoolVarP(&rectWatch, "watch", "w", false, "Keep watching the source directory")

	compressCmd.Flags().Float64Var(&compressScale, "scale", 0.5, "Scale factor in (0,1]")
	compressCmd.Flags().IntVar(&compressQuality, "quality", 75, "JPEG quality 1-100")

	toPDFCmd.Flags().IntVar(&pdfWidth, "width", 2000, "Page image width in pixels")
	toPDFCmd.Flags().IntVar(&pdfHeight, "height", 1500, "Page image height in pixels")
	toPDFCmd.Flags().Float64Var(&pdfDPI, "dpi", 100, "Pixels per inch of the page")

	rootCmd.AddCommand(rectifyCmd)
	rootCmd.AddCommand(cornersCmd)
	rootCmd.AddCommand(colorSpaceCmd)
	rootCmd.AddCommand(compressCmd)
	rootCmd.AddCommand(toPDFCmd)
}

func rectifyOptions() rectify.Options {
	opts := rectify.OptionsFromConfig(cfg.Rectify, logger.Named("rectify"))
	if rectWidth > 0 {
		opts.Width = rectWidth
	}
	if rectHeight > 0 {
		opts.Height = rectHeight
	}
	return opts
}

func runRectify(cmd *cobra.Command, args []string) error {
	src, dst := args[0], args[1]
	opts := rectifyOptions()

	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		res, err := rectify.RectifyFile(src, dst, opts)
		if err != nil {
			return err
		}
		logger.Info("rectified", zap.String("output", dst), zap.String("strategy", string(res.Strategy)))
		return nil
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	results, err := rectify.ProcessDir(ctx, src, dst, opts)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	logger.Info("batch finished", zap.Int("processed", len(results)-failed), zap.Int("failed", failed))

	if !rectWatch {
		if failed > 0 {
			return fmt.Errorf("%d of %d images failed", failed, len(results))
		}
		return nil
	}
	return rectify.Watch(ctx, src, dst, opts, nil)
}
