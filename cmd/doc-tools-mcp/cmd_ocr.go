package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/doc-tools-mcp/internal/ocr"
)

var (
	ocrLang      string
	ocrDPI       float64
	ocrPrefix    string
	ocrTextLayer bool
)

var ocrCmd = &cobra.Command{
	Use:   "ocr <image-or-pdf>",
	Short: "Recognize text in an image or PDF",
	Long: `Run Tesseract on an image, or on every page of a PDF rendered at --dpi.

With --prefix only the lines starting with that prefix are printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

var ocrInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Report whether Tesseract and the language data are usable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := ocr.NewEngine(cfg.OCR, logger).WithLanguage(ocrLang)
		return printJSON(cmd, engine.Info())
	},
}

func init() {
	ocrCmd.PersistentFlags().StringVarP(&ocrLang, "lang", "l", "", "Tesseract language (default from config)")
	ocrCmd.Flags().Float64Var(&ocrDPI, "dpi", 0, "PDF render resolution (default from config)")
	ocrCmd.Flags().StringVar(&ocrPrefix, "prefix", "", "Print only lines starting with this prefix")
	ocrCmd.Flags().BoolVar(&ocrTextLayer, "text-layer", false, "Read a PDF's embedded text instead of running OCR")

	ocrCmd.AddCommand(ocrInfoCmd)
	rootCmd.AddCommand(ocrCmd)
}

func runOCR(cmd *cobra.Command, args []string) error {
	path := args[0]
	engine := ocr.NewEngine(cfg.OCR, logger.Named("ocr")).WithLanguage(ocrLang)

	var text string
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		dpi := ocrDPI
		if dpi <= 0 {
			dpi = float64(cfg.OCR.DPI)
		}
		ctx, stop := signalContext(cmd)
		defer stop()

		var (
			res *ocr.PDFResult
			err error
		)
		if ocrTextLayer {
			res, err = ocr.PDFText(path)
		} else {
			res, err = engine.OCRPDF(ctx, path, dpi)
		}
		if err != nil {
			return err
		}
		text = res.Text
	} else {
		res, err := engine.ExtractText(path)
		if err != nil {
			return err
		}
		text = res.FullText
	}

	if !cmd.Flags().Changed("prefix") {
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	}
	for _, line := range ocr.ExtractLines(text, ocrPrefix) {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
