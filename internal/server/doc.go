// Package server implements the MCP (Model Context Protocol) server for the
// document tools.
//
// This package provides a JSON-RPC 2.0 server that exposes slide rectification,
// OCR, spreadsheet, database, folder and code-analysis helpers through the MCP
// protocol.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// Lines that are not valid JSON get a -32700 parse error response.
//
// # Available Tools
//
// Images:
//   - image_load, image_dimensions: Metadata and size
//   - image_rectify: Detect a slide and warp it upright (single file or directory)
//   - image_detect_corners: Corner estimates without warping
//   - image_color_space: Convert to GRAY, HSV, Lab, YUV or RGB
//   - image_compress: Downscale and re-encode as JPEG
//   - images_to_pdf: One PDF page per image
//
// OCR:
//   - ocr_image: Tesseract text and word boxes, optionally for a region
//   - ocr_pdf: Render and recognize every page, or read the text layer
//   - text_extract_lines: Keep lines starting with a prefix
//
// Spreadsheets:
//   - sheet_read, sheet_columns, sheet_transform, sheet_write
//
// Database:
//   - sql_query, sql_columns, sql_all_columns, sql_column_counts,
//     sql_property_values, sql_rows_where, sql_exec_file
//
// Files:
//   - folder_list, folder_delete, notebook_to_script
//
// Code analysis:
//   - code_to_uml, code_model_params
//
// # Lazy Resources
//
// The database connection and the LLM client are created on the first tool
// call that needs them. When the DSN or API key is missing, those tools fail
// with an error naming the setting; every other tool keeps working.
//
// # Image Caching
//
// Decoded images are cached by path for the lifetime of the server. Tools that
// write an image evict the output path so later reads see the new file.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(cfg, logger)
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal("server error", zap.Error(err))
//	}
package server
