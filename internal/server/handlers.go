package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/ironsheep/doc-tools-mcp/internal/imaging"
	"github.com/ironsheep/doc-tools-mcp/internal/ocr"
	"github.com/ironsheep/doc-tools-mcp/internal/rectify"
)

// previewMaxDim bounds the longer side of base64 previews returned to clients.
const previewMaxDim = 1024

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_rectify", "sheet_read").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", zap.String("tool", params.Name), zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies configured defaults for omitted parameters
//  3. Calls the imaging/rectify/ocr/sheet/sqltool/folder/llm function
//  4. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Images
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_rectify":
		return s.handleImageRectify(ctx, args)
	case "image_detect_corners":
		return s.handleImageDetectCorners(args)
	case "image_color_space":
		return s.handleImageColorSpace(args)
	case "image_compress":
		return s.handleImageCompress(args)
	case "images_to_pdf":
		return s.handleImagesToPDF(args)

	// OCR
	case "ocr_image":
		return s.handleOCRImage(args)
	case "ocr_pdf":
		return s.handleOCRPDF(ctx, args)
	case "text_extract_lines":
		return s.handleTextExtractLines(args)

	// Spreadsheets
	case "sheet_read":
		return s.handleSheetRead(args)
	case "sheet_columns":
		return s.handleSheetColumns(args)
	case "sheet_transform":
		return s.handleSheetTransform(args)
	case "sheet_write":
		return s.handleSheetWrite(args)

	// Database
	case "sql_query":
		return s.handleSQLQuery(ctx, args)
	case "sql_columns":
		return s.handleSQLColumns(ctx, args)
	case "sql_all_columns":
		return s.handleSQLAllColumns(ctx, args)
	case "sql_column_counts":
		return s.handleSQLColumnCounts(ctx, args)
	case "sql_property_values":
		return s.handleSQLPropertyValues(ctx, args)
	case "sql_rows_where":
		return s.handleSQLRowsWhere(ctx, args)
	case "sql_exec_file":
		return s.handleSQLExecFile(ctx, args)

	// Files
	case "folder_list":
		return s.handleFolderList(args)
	case "folder_delete":
		return s.handleFolderDelete(args)
	case "notebook_to_script":
		return s.handleNotebookToScript(args)

	// Code analysis
	case "code_to_uml":
		return s.handleCodeToUML(ctx, args)
	case "code_model_params":
		return s.handleCodeModelParams(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// requireArg fails when a required string argument is empty.
func requireArg(name, value string) error {
	if value == "" {
		return fmt.Errorf("missing required argument %q", name)
	}
	return nil
}

// === Image Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

func (s *Server) rectifyOptions(width, height int) rectify.Options {
	opts := rectify.OptionsFromConfig(s.cfg.Rectify, s.logger.Named("rectify"))
	if width > 0 {
		opts.Width = width
	}
	if height > 0 {
		opts.Height = height
	}
	return opts
}

type imageRectifyArgs struct {
	Path    string `json:"path"`
	Output  string `json:"output"`
	SrcDir  string `json:"src_dir"`
	DstDir  string `json:"dst_dir"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Preview bool   `json:"preview"`
}

type rectifyResult struct {
	rectify.Detection
	Output  string                `json:"output"`
	Preview *imaging.EncodedImage `json:"preview,omitempty"`
}

type rectifyBatchResult struct {
	Processed int                  `json:"processed"`
	Failed    int                  `json:"failed"`
	Files     []rectify.FileResult `json:"files"`
}

func (s *Server) handleImageRectify(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageRectifyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts := s.rectifyOptions(a.Width, a.Height)

	if a.SrcDir != "" || a.DstDir != "" {
		if err := requireArg("src_dir", a.SrcDir); err != nil {
			return nil, err
		}
		if err := requireArg("dst_dir", a.DstDir); err != nil {
			return nil, err
		}
		files, err := rectify.ProcessDir(ctx, a.SrcDir, a.DstDir, opts)
		if err != nil {
			return nil, err
		}
		out := &rectifyBatchResult{Files: files}
		for _, f := range files {
			if f.Error != "" {
				out.Failed++
			} else {
				out.Processed++
			}
		}
		return out, nil
	}

	if err := requireArg("path", a.Path); err != nil {
		return nil, err
	}
	if err := requireArg("output", a.Output); err != nil {
		return nil, err
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := rectify.Rectify(img, opts)
	if err != nil {
		return nil, err
	}
	if err := imaging.Save(res.Image, a.Output, 95); err != nil {
		return nil, err
	}
	s.cache.Evict(a.Output)

	out := &rectifyResult{Detection: res.Detection, Output: a.Output}
	if a.Preview {
		if out.Preview, err = imaging.EncodePNGBase64(res.Image, previewMaxDim); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type imageDetectCornersArgs struct {
	Path      string  `json:"path"`
	BlockSize int     `json:"block_size"`
	C         float64 `json:"c"`
}

func (s *Server) handleImageDetectCorners(args json.RawMessage) (interface{}, error) {
	var a imageDetectCornersArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	opts := s.rectifyOptions(0, 0)
	if a.BlockSize > 0 {
		opts.BlockSize = a.BlockSize
	}
	if a.C != 0 {
		opts.C = a.C
	}
	return rectify.Detect(img, opts)
}

type imageColorSpaceArgs struct {
	Path   string `json:"path"`
	Space  string `json:"space"`
	Output string `json:"output"`
}

type colorSpaceResult struct {
	Space   imaging.ColorSpace    `json:"space"`
	Output  string                `json:"output,omitempty"`
	Preview *imaging.EncodedImage `json:"preview,omitempty"`
}

func (s *Server) handleImageColorSpace(args json.RawMessage) (interface{}, error) {
	var a imageColorSpaceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	space, err := imaging.ParseColorSpace(a.Space)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	converted, err := imaging.ConvertColorSpace(img, space)
	if err != nil {
		return nil, err
	}

	res := &colorSpaceResult{Space: space}
	if a.Output != "" {
		if err := imaging.Save(converted, a.Output, 95); err != nil {
			return nil, err
		}
		s.cache.Evict(a.Output)
		res.Output = a.Output
		return res, nil
	}
	if res.Preview, err = imaging.EncodePNGBase64(converted, previewMaxDim); err != nil {
		return nil, err
	}
	return res, nil
}

type imageCompressArgs struct {
	Path    string  `json:"path"`
	Output  string  `json:"output"`
	Scale   float64 `json:"scale"`
	Quality int     `json:"quality"`
}

func (s *Server) handleImageCompress(args json.RawMessage) (interface{}, error) {
	var a imageCompressArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := requireArg("output", a.Output); err != nil {
		return nil, err
	}
	res, err := imaging.Compress(a.Path, a.Output, imaging.CompressOptions{Scale: a.Scale, Quality: a.Quality})
	if err != nil {
		return nil, err
	}
	s.cache.Evict(a.Output)
	return res, nil
}

type imagesToPDFArgs struct {
	Paths        []string `json:"paths"`
	OutputPrefix string   `json:"output_prefix"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	DPI          float64  `json:"dpi"`
}

func (s *Server) handleImagesToPDF(args json.RawMessage) (interface{}, error) {
	var a imagesToPDFArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, errors.New("paths must not be empty")
	}
	if err := requireArg("output_prefix", a.OutputPrefix); err != nil {
		return nil, err
	}
	written, err := imaging.ImagesToPDF(a.Paths, a.OutputPrefix, imaging.PDFOptions{Width: a.Width, Height: a.Height, DPI: a.DPI})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"files": written}, nil
}

// === OCR Handlers ===

type ocrImageArgs struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	Region   *struct {
		X1 int `json:"x1"`
		Y1 int `json:"y1"`
		X2 int `json:"x2"`
		Y2 int `json:"y2"`
	} `json:"region,omitempty"`
}

func (s *Server) handleOCRImage(args json.RawMessage) (interface{}, error) {
	var a ocrImageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	engine := s.ocr.WithLanguage(a.Language)
	if a.Region == nil {
		return engine.ExtractText(a.Path)
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return engine.ExtractTextFromRegion(img, image.Rect(a.Region.X1, a.Region.Y1, a.Region.X2, a.Region.Y2))
}

type ocrPDFArgs struct {
	Path       string  `json:"path"`
	Language   string  `json:"language"`
	DPI        float64 `json:"dpi"`
	LinePrefix *string `json:"line_prefix,omitempty"`
	TextLayer  bool    `json:"text_layer"`
}

type ocrPDFResult struct {
	*ocr.PDFResult
	Lines []string `json:"lines,omitempty"`
}

func (s *Server) handleOCRPDF(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a ocrPDFArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.DPI <= 0 {
		a.DPI = float64(s.cfg.OCR.DPI)
	}

	var (
		res *ocr.PDFResult
		err error
	)
	if a.TextLayer {
		res, err = ocr.PDFText(a.Path)
	} else {
		res, err = s.ocr.WithLanguage(a.Language).OCRPDF(ctx, a.Path, a.DPI)
	}
	if err != nil {
		return nil, err
	}

	out := &ocrPDFResult{PDFResult: res}
	if a.LinePrefix != nil {
		out.Lines = ocr.ExtractLines(res.Text, *a.LinePrefix)
	}
	return out, nil
}

type textExtractLinesArgs struct {
	Text   string  `json:"text"`
	Prefix *string `json:"prefix,omitempty"`
}

func (s *Server) handleTextExtractLines(args json.RawMessage) (interface{}, error) {
	var a textExtractLinesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	prefix := s.cfg.OCR.LinePrefix
	if a.Prefix != nil {
		prefix = *a.Prefix
	}
	return map[string]interface{}{"lines": ocr.ExtractLines(a.Text, prefix)}, nil
}
