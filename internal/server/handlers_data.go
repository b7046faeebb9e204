package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ironsheep/doc-tools-mcp/internal/folder"
	"github.com/ironsheep/doc-tools-mcp/internal/llm"
	"github.com/ironsheep/doc-tools-mcp/internal/sheet"
	"github.com/ironsheep/doc-tools-mcp/internal/sqltool"
)

// === Spreadsheet Handlers ===

type sheetReadArgs struct {
	Path     string `json:"path"`
	Sheet    string `json:"sheet"`
	Header   int    `json:"header"`
	Encoding string `json:"encoding"`
	Limit    int    `json:"limit"`
}

func (s *Server) readOptions(a sheetReadArgs) sheet.ReadOptions {
	opts := sheet.ReadOptions{Sheet: a.Sheet, Header: a.Header, Encoding: a.Encoding}
	if opts.Sheet == "" {
		opts.Sheet = s.cfg.Sheet.Sheet
	}
	if opts.Encoding == "" {
		opts.Encoding = s.cfg.Sheet.Encoding
	}
	return opts
}

type sheetResult struct {
	*sheet.Table
	TotalRows int  `json:"total_rows"`
	Truncated bool `json:"truncated,omitempty"`
}

// limitRows keeps at most limit rows; 0 keeps all.
func limitRows(t *sheet.Table, limit int) *sheetResult {
	res := &sheetResult{Table: t, TotalRows: t.Len()}
	if limit > 0 && t.Len() > limit {
		res.Table = &sheet.Table{Columns: t.Columns, Rows: t.Rows[:limit]}
		res.Truncated = true
	}
	return res
}

func (s *Server) handleSheetRead(args json.RawMessage) (interface{}, error) {
	var a sheetReadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	t, err := sheet.Read(a.Path, s.readOptions(a))
	if err != nil {
		return nil, err
	}
	return limitRows(t, a.Limit), nil
}

func (s *Server) handleSheetColumns(args json.RawMessage) (interface{}, error) {
	var a sheetReadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cols, err := sheet.Columns(a.Path, s.readOptions(a))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"columns": cols}, nil
}

type sheetTransformArgs struct {
	sheetReadArgs
	Column  string  `json:"column"`
	Op      string  `json:"op"`
	Operand float64 `json:"operand"`
	Output  string  `json:"output"`
}

func (s *Server) handleSheetTransform(args json.RawMessage) (interface{}, error) {
	var a sheetTransformArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	fn, err := sheet.Operation(a.Op, a.Operand)
	if err != nil {
		return nil, err
	}
	t, err := sheet.Transform(a.Path, a.Column, fn, s.readOptions(a.sheetReadArgs))
	if err != nil {
		return nil, err
	}
	if a.Output != "" {
		if err := sheet.Write(a.Output, t, sheet.WriteOptions{Sheet: a.Sheet, Encoding: s.readOptions(a.sheetReadArgs).Encoding}); err != nil {
			return nil, err
		}
		return map[string]interface{}{"output": a.Output, "rows": t.Len()}, nil
	}
	return limitRows(t, a.Limit), nil
}

type sheetWriteArgs struct {
	Path     string     `json:"path"`
	Columns  []string   `json:"columns"`
	Rows     [][]string `json:"rows"`
	Sheet    string     `json:"sheet"`
	Encoding string     `json:"encoding"`
	Index    bool       `json:"index"`
}

func (s *Server) handleSheetWrite(args json.RawMessage) (interface{}, error) {
	var a sheetWriteArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Columns) == 0 {
		return nil, errors.New("columns must not be empty")
	}
	for i, r := range a.Rows {
		if len(r) != len(a.Columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(r), len(a.Columns))
		}
	}
	enc := a.Encoding
	if enc == "" {
		enc = s.cfg.Sheet.Encoding
	}
	t := &sheet.Table{Columns: a.Columns, Rows: a.Rows}
	if err := sheet.Write(a.Path, t, sheet.WriteOptions{Sheet: a.Sheet, Encoding: enc, Index: a.Index}); err != nil {
		return nil, err
	}
	return map[string]interface{}{"output": a.Path, "rows": t.Len()}, nil
}

// === Database Handlers ===

type sqlQueryArgs struct {
	Query string        `json:"query"`
	Args  []interface{} `json:"args"`
}

func (s *Server) handleSQLQuery(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sqlQueryArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := requireArg("query", a.Query); err != nil {
		return nil, err
	}
	db, err := s.database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Query(ctx, a.Query, a.Args...)
}

type sqlTableArgs struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Schema string `json:"schema"`
}

func (s *Server) handleSQLColumns(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sqlTableArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	db, err := s.database(ctx)
	if err != nil {
		return nil, err
	}
	cols, err := db.ColumnNames(ctx, a.Table)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"table": a.Table, "columns": cols}, nil
}

func (s *Server) handleSQLAllColumns(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sqlTableArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Schema == "" {
		a.Schema = s.cfg.Database.Schema
	}
	db, err := s.database(ctx)
	if err != nil {
		return nil, err
	}
	tables, err := db.AllColumnNames(ctx, a.Schema)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"tables": tables}, nil
}

func (s *Server) handleSQLColumnCounts(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sqlTableArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	db, err := s.database(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := db.ColumnCounts(ctx, a.Table, a.Column)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"counts": counts}, nil
}

type sqlPropertyArgs struct {
	Table    string      `json:"table"`
	Column   string      `json:"column"`
	Value    interface{} `json:"value"`
	Property string      `json:"property"`
	OrderBy  string      `json:"order_by"`
	Limit    int         `json:"limit"`
}

func (s *Server) handleSQLPropertyValues(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sqlPropertyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	db, err := s.database(ctx)
	if err != nil {
		return nil, err
	}
	records, err := db.PropertyValues(ctx, sqltool.PropertyQuery{
		Table:    a.Table,
		Column:   a.Column,
		Value:    a.Value,
		Property: a.Property,
		OrderBy:  a.OrderBy,
		Limit:    a.Limit,
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"records": records}, nil
}

func (s *Server) handleSQLRowsWhere(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sqlPropertyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	db, err := s.database(ctx)
	if err != nil {
		return nil, err
	}
	return db.RowsWhere(ctx, a.Table, a.Column, a.Value, a.Limit)
}

type pathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleSQLExecFile(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	db, err := s.database(ctx)
	if err != nil {
		return nil, err
	}
	if err := db.ExecFile(ctx, a.Path); err != nil {
		return nil, err
	}
	return map[string]interface{}{"executed": a.Path}, nil
}

// === Folder Handlers ===

type folderArgs struct {
	Dir       string   `json:"dir"`
	Suffixes  []string `json:"suffixes"`
	Recursive bool     `json:"recursive"`
}

func (s *Server) handleFolderList(args json.RawMessage) (interface{}, error) {
	var a folderArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	files, err := folder.List(a.Dir, a.Suffixes, a.Recursive)
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []string{}
	}
	return map[string]interface{}{"files": files, "count": len(files)}, nil
}

func (s *Server) handleFolderDelete(args json.RawMessage) (interface{}, error) {
	var a folderArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Suffixes) == 0 {
		return nil, errors.New("suffixes must not be empty; refusing to delete every file")
	}
	files, err := folder.List(a.Dir, a.Suffixes, a.Recursive)
	if err != nil {
		return nil, err
	}
	removed, err := folder.Delete(files)
	if err != nil {
		return nil, err
	}
	for _, p := range removed {
		s.cache.Evict(p)
	}
	return map[string]interface{}{"deleted": removed, "count": len(removed)}, nil
}

func (s *Server) handleNotebookToScript(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	out, err := folder.NotebookToScript(a.Path)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"output": out}, nil
}

// === Code Analysis Handlers ===

type codeArgs struct {
	Path      string `json:"path"`
	Code      string `json:"code"`
	OutputDir string `json:"output_dir"`
}

// source returns the inline code or the contents of Path.
func (a codeArgs) source() (string, error) {
	if a.Code != "" {
		return a.Code, nil
	}
	if a.Path == "" {
		return "", errors.New("either code or path is required")
	}
	return llm.ReadCode(a.Path)
}

func (s *Server) handleCodeToUML(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a codeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	analyzer, err := s.llmAnalyzer(ctx)
	if err != nil {
		return nil, err
	}

	if a.OutputDir != "" && a.Path != "" {
		out, err := analyzer.ConvertFile(ctx, a.Path, a.OutputDir)
		if err != nil {
			return nil, err
		}
		uml, err := os.ReadFile(out)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"output": out, "uml": string(uml)}, nil
	}

	code, err := a.source()
	if err != nil {
		return nil, err
	}
	uml, err := analyzer.CodeToUML(ctx, code)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"uml": uml}, nil
}

func (s *Server) handleCodeModelParams(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a codeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	analyzer, err := s.llmAnalyzer(ctx)
	if err != nil {
		return nil, err
	}
	code, err := a.source()
	if err != nil {
		return nil, err
	}
	params, err := analyzer.ModelParams(ctx, code)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"params": params}, nil
}
