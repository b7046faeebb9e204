package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// object builds an object schema. required may be nil.
func object(props map[string]interface{}, required ...string) map[string]interface{} {
	if required == nil {
		required = []string{}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

func propDefault(typ, description string, def interface{}) map[string]interface{} {
	p := prop(typ, description)
	p["default"] = def
	return p
}

func stringList(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": description,
	}
}

var (
	pathProp      = prop("string", "Absolute path to the image file")
	sheetPathProp = prop("string", "Path to a .xlsx or .csv file")
	sheetProp     = propDefault("string", "Worksheet name (xlsx only)", "Sheet1")
	headerProp    = propDefault("integer", "0-based row holding column labels; earlier rows are skipped", 0)
	encodingProp  = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"gbk", "gb18030", "utf-8"},
		"description": "CSV text encoding",
		"default":     "gbk",
	}
	tableProp = prop("string", "Table name, optionally schema-qualified (schema.table)")
)

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Images
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, decoded format, color model and file size.",
			InputSchema: object(map[string]interface{}{"path": pathProp}, "path"),
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: object(map[string]interface{}{"path": pathProp}, "path"),
		},
		{
			Name: "image_rectify",
			Description: "Detect a projected slide or document in a photo and warp it to an upright rectangle. " +
				"Give path and output for one image, or src_dir and dst_dir to process every image in a directory.",
			InputSchema: object(map[string]interface{}{
				"path":    pathProp,
				"output":  prop("string", "Where to save the rectified image"),
				"src_dir": prop("string", "Directory of photos to rectify"),
				"dst_dir": prop("string", "Output directory; must differ from src_dir"),
				"width":   propDefault("integer", "Output width in pixels", 800),
				"height":  propDefault("integer", "Output height in pixels", 600),
				"preview": propDefault("boolean", "Also return the result as base64 PNG", false),
			}),
		},
		{
			Name: "image_detect_corners",
			Description: "Estimate the four corners of the slide in a photo with both Otsu and adaptive thresholding " +
				"and report how the estimates were merged.",
			InputSchema: object(map[string]interface{}{
				"path":       pathProp,
				"block_size": propDefault("integer", "Adaptive threshold neighborhood (odd)", 11),
				"c":          propDefault("number", "Adaptive threshold offset", 2),
			}, "path"),
		},
		{
			Name:        "image_color_space",
			Description: "Convert an image to another color space. Saves to output when given, otherwise returns a base64 PNG preview.",
			InputSchema: object(map[string]interface{}{
				"path": pathProp,
				"space": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"RGB", "GRAY", "HSV", "Lab", "YUV"},
					"description": "Target color space",
				},
				"output": prop("string", "Optional output path"),
			}, "path", "space"),
		},
		{
			Name:        "image_compress",
			Description: "Downscale an image and re-encode it as JPEG.",
			InputSchema: object(map[string]interface{}{
				"path":    pathProp,
				"output":  prop("string", "Output JPEG path"),
				"scale":   propDefault("number", "Scale factor in (0,1]", 0.5),
				"quality": propDefault("integer", "JPEG quality 1-100", 75),
			}, "path", "output"),
		},
		{
			Name:        "images_to_pdf",
			Description: "Write each image as a one-page PDF named <output_prefix><n>.pdf, numbered from 0.",
			InputSchema: object(map[string]interface{}{
				"paths":         stringList("Image files, in page order"),
				"output_prefix": prop("string", "Output path prefix, e.g. /out/page"),
				"width":         propDefault("integer", "Image is resized to this width", 2000),
				"height":        propDefault("integer", "Image is resized to this height", 1500),
				"dpi":           propDefault("number", "Resolution used to size the PDF page", 100),
			}, "paths", "output_prefix"),
		},

		// OCR
		{
			Name:        "ocr_image",
			Description: "Extract text and word bounding boxes from an image with Tesseract, optionally limited to a region.",
			InputSchema: object(map[string]interface{}{
				"path":     pathProp,
				"language": propDefault("string", "Tesseract language code, e.g. chi_sim, eng, chi_sim+eng", "chi_sim"),
				"region": object(map[string]interface{}{
					"x1": prop("integer", "Left edge"),
					"y1": prop("integer", "Top edge"),
					"x2": prop("integer", "Right edge (exclusive)"),
					"y2": prop("integer", "Bottom edge (exclusive)"),
				}, "x1", "y1", "x2", "y2"),
			}, "path"),
		},
		{
			Name:        "ocr_pdf",
			Description: "Render every page of a PDF and OCR it, returning per-page and concatenated text. Set line_prefix to also return matching lines.",
			InputSchema: object(map[string]interface{}{
				"path":        prop("string", "Path to the PDF"),
				"language":    propDefault("string", "Tesseract language code", "chi_sim"),
				"dpi":         propDefault("number", "Rendering resolution", 200),
				"line_prefix": prop("string", "Return lines starting with this prefix"),
				"text_layer":  propDefault("boolean", "Read the embedded text layer instead of running OCR", false),
			}, "path"),
		},
		{
			Name:        "text_extract_lines",
			Description: "Return the lines of text that start with a prefix.",
			InputSchema: object(map[string]interface{}{
				"text":   prop("string", "Text to filter"),
				"prefix": propDefault("string", "Line prefix; empty returns every non-empty line", "Hello"),
			}, "text"),
		},

		// Spreadsheets
		{
			Name:        "sheet_read",
			Description: "Read a spreadsheet (.xlsx or .csv) as columns and rows.",
			InputSchema: object(map[string]interface{}{
				"path":     sheetPathProp,
				"sheet":    sheetProp,
				"header":   headerProp,
				"encoding": encodingProp,
				"limit":    propDefault("integer", "Maximum rows to return; 0 for all", 0),
			}, "path"),
		},
		{
			Name:        "sheet_columns",
			Description: "List the column labels of a spreadsheet.",
			InputSchema: object(map[string]interface{}{
				"path":     sheetPathProp,
				"sheet":    sheetProp,
				"header":   headerProp,
				"encoding": encodingProp,
			}, "path"),
		},
		{
			Name: "sheet_transform",
			Description: "Apply an operation to every cell of a column. Returns the transformed table, " +
				"or writes it to output when given.",
			InputSchema: object(map[string]interface{}{
				"path":   sheetPathProp,
				"column": prop("string", "Column label"),
				"op": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"multiply", "add", "subtract", "divide", "upper", "lower", "trim"},
					"description": "Operation to apply",
				},
				"operand":  prop("number", "Operand for arithmetic operations"),
				"output":   prop("string", "Optional .xlsx or .csv path for the result"),
				"sheet":    sheetProp,
				"header":   headerProp,
				"encoding": encodingProp,
				"limit":    propDefault("integer", "Maximum rows to return; 0 for all", 0),
			}, "path", "column", "op"),
		},
		{
			Name:        "sheet_write",
			Description: "Write columns and rows to a .xlsx or .csv file.",
			InputSchema: object(map[string]interface{}{
				"path":    sheetPathProp,
				"columns": stringList("Column labels"),
				"rows": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					"description": "Rows of cells, each as long as columns",
				},
				"sheet":    sheetProp,
				"encoding": encodingProp,
				"index":    propDefault("boolean", "Prepend a 0-based row index column", false),
			}, "path", "columns", "rows"),
		},

		// Database
		{
			Name:        "sql_query",
			Description: "Run a SQL query against the configured database and return all rows.",
			InputSchema: object(map[string]interface{}{
				"query": prop("string", "SQL text; use $1 (PostgreSQL) or ? (SQLite) for args"),
				"args":  map[string]interface{}{"type": "array", "description": "Bind parameters"},
			}, "query"),
		},
		{
			Name:        "sql_columns",
			Description: "List the columns of a table in declaration order.",
			InputSchema: object(map[string]interface{}{"table": tableProp}, "table"),
		},
		{
			Name:        "sql_all_columns",
			Description: "List every table in a schema with its columns.",
			InputSchema: object(map[string]interface{}{
				"schema": propDefault("string", "Schema name (PostgreSQL)", "public"),
			}),
		},
		{
			Name:        "sql_column_counts",
			Description: "Count the distinct values of a column, most frequent first.",
			InputSchema: object(map[string]interface{}{
				"table":  tableProp,
				"column": prop("string", "Column name"),
			}, "table", "column"),
		},
		{
			Name:        "sql_property_values",
			Description: "Return id, collect_time and one property for the rows where column equals value.",
			InputSchema: object(map[string]interface{}{
				"table":    tableProp,
				"column":   prop("string", "Filter column"),
				"value":    map[string]interface{}{"description": "Value the filter column must equal"},
				"property": prop("string", "Column to return"),
				"order_by": prop("string", "Optional column to sort by"),
				"limit":    propDefault("integer", "Maximum rows; 0 for all", 0),
			}, "table", "column", "value", "property"),
		},
		{
			Name:        "sql_rows_where",
			Description: "Return every column of the rows where column equals value.",
			InputSchema: object(map[string]interface{}{
				"table":  tableProp,
				"column": prop("string", "Filter column"),
				"value":  map[string]interface{}{"description": "Value the filter column must equal"},
				"limit":  propDefault("integer", "Maximum rows; 0 for all", 10),
			}, "table", "column", "value"),
		},
		{
			Name:        "sql_exec_file",
			Description: "Execute every statement in a SQL script file.",
			InputSchema: object(map[string]interface{}{"path": prop("string", "Path to the .sql file")}, "path"),
		},

		// Files
		{
			Name:        "folder_list",
			Description: "List files in a directory whose names end with one of the suffixes.",
			InputSchema: object(map[string]interface{}{
				"dir":       prop("string", "Directory to list"),
				"suffixes":  stringList("File name suffixes, e.g. [\".py\"]; empty matches all"),
				"recursive": propDefault("boolean", "Descend into subdirectories", false),
			}, "dir"),
		},
		{
			Name:        "folder_delete",
			Description: "Delete the files in a directory whose names end with one of the suffixes.",
			InputSchema: object(map[string]interface{}{
				"dir":       prop("string", "Directory to clean"),
				"suffixes":  stringList("File name suffixes; required"),
				"recursive": propDefault("boolean", "Descend into subdirectories", false),
			}, "dir", "suffixes"),
		},
		{
			Name:        "notebook_to_script",
			Description: "Convert a Jupyter notebook to a Python script next to it.",
			InputSchema: object(map[string]interface{}{"path": prop("string", "Path to the .ipynb file")}, "path"),
		},

		// Code analysis
		{
			Name: "code_to_uml",
			Description: "Ask the configured language model for a PlantUML activity diagram of some code. " +
				"With path and output_dir the diagram is also written to <output_dir>/<name>.puml.",
			InputSchema: object(map[string]interface{}{
				"path":       prop("string", "Source file (.py or .txt)"),
				"code":       prop("string", "Inline source, used instead of path"),
				"output_dir": prop("string", "Directory for the .puml file"),
			}),
		},
		{
			Name:        "code_model_params",
			Description: "Ask the configured language model to list a model implementation's parameters, ranges and examples.",
			InputSchema: object(map[string]interface{}{
				"path": prop("string", "Source file (.py or .txt)"),
				"code": prop("string", "Inline source, used instead of path"),
			}),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
