package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/ironsheep/doc-tools-mcp/internal/config"
	"github.com/ironsheep/doc-tools-mcp/internal/imaging"
	"github.com/ironsheep/doc-tools-mcp/internal/llm"
	"github.com/ironsheep/doc-tools-mcp/internal/ocr"
	"github.com/ironsheep/doc-tools-mcp/internal/sqltool"
)

// Name is reported to clients in serverInfo.
const Name = "doc-tools-mcp"

// Version is reported to clients in serverInfo; main overrides it from ldflags.
var Version = "0.1.0"

// Server handles MCP protocol communication
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	cache  *imaging.ImageCache
	ocr    *ocr.Engine

	// Opened on first use so the server starts without a database or API key.
	mu       sync.Mutex
	db       *sqltool.DB
	analyzer *llm.Analyzer
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// New creates a new MCP server instance. A nil cfg uses config.Default and a
// nil logger discards output.
func New(cfg *config.Config, logger *zap.Logger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		cache:  imaging.NewImageCache(),
		ocr:    ocr.NewEngine(cfg.OCR, logger.Named("ocr")),
	}
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve processes newline-delimited requests from r until EOF or ctx is done.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	defer s.Close()

	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", zap.Error(err))
			if err := encoder.Encode(s.errorResponse(nil, -32700, "Parse error", err.Error())); err != nil {
				s.logger.Error("failed to encode response", zap.Error(err))
			}
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Error("failed to encode response", zap.Error(err))
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// Close releases the database connection, if one was opened.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	s.logger.Debug("request", zap.String("method", req.Method), zap.Any("id", req.ID))

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    Name,
				"version": Version,
			},
		},
	}
}

// ErrNotConfigured is wrapped by errors for tools whose backend has no settings.
var ErrNotConfigured = errors.New("not configured")

// database opens the configured database on first use.
func (s *Server) database(ctx context.Context) (*sqltool.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	if s.cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database %w: set database.dsn or DOC_TOOLS_DB_DSN", ErrNotConfigured)
	}

	db, err := sqltool.Open(ctx, sqltool.Config{Driver: s.cfg.Database.Driver, DSN: s.cfg.Database.DSN})
	if err != nil {
		return nil, err
	}
	s.logger.Info("database opened", zap.String("driver", db.Driver()))
	s.db = db
	return db, nil
}

// llmAnalyzer builds the language model client on first use.
func (s *Server) llmAnalyzer(ctx context.Context) (*llm.Analyzer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analyzer != nil {
		return s.analyzer, nil
	}
	if s.cfg.LLM.APIKey == "" {
		key := "DASHSCOPE_API_KEY"
		if s.cfg.LLM.Provider == "gemini" {
			key = "GEMINI_API_KEY"
		}
		return nil, fmt.Errorf("llm %w: set llm.api_key or %s", ErrNotConfigured, key)
	}

	p, err := llm.NewProvider(ctx, s.cfg.LLM)
	if err != nil {
		return nil, err
	}
	s.analyzer = llm.NewAnalyzer(p, s.cfg.LLM.Timeout, s.logger.Named("llm"))
	return s.analyzer, nil
}
