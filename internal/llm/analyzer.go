package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrUnsupportedFile is returned by ReadCode for extensions it does not accept.
var ErrUnsupportedFile = errors.New("unsupported file type")

const umlPrompt = `You are a professional Python code analyst. You will be given source code from the darts library; convert it into PlantUML activity diagram code.
Steps: 1. Read the input and analyze the logic of the code. 2. Convert the analysis into a PlantUML activity diagram.
3. Output only content that can be rendered directly as a PlantUML diagram, without the analysis or any other extra text.`

const paramsPrompt = `You are a professional Python code analyst. You will be given the implementation of a darts forecasting model.
Analyze how the model's input parameters are set, and give the required parameter ranges and usage examples.
Steps: 1. Analyze the model implementation. 2. List every parameter. 3. Output the required parameter ranges and usage examples.
Output the parameters, examples and value ranges each as a list, and explain the model logic through the usage examples. Include nothing else.`

// Analyzer asks a Provider about source code.
type Analyzer struct {
	Provider Provider
	Timeout  time.Duration // per request; 0 means none
	Logger   *zap.Logger
}

// NewAnalyzer returns an Analyzer using p.
func NewAnalyzer(p Provider, timeout time.Duration, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{Provider: p, Timeout: timeout, Logger: logger}
}

func (a *Analyzer) ask(ctx context.Context, system, code string) (string, error) {
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := a.Provider.Complete(ctx, system, "Code snippet:\n"+code)
	if err != nil {
		return "", err
	}
	if a.Logger != nil {
		a.Logger.Debug("llm reply", zap.Int("chars", len(reply)), zap.Duration("elapsed", time.Since(start)))
	}
	return reply, nil
}

// CodeToUML returns a PlantUML activity diagram describing code.
func (a *Analyzer) CodeToUML(ctx context.Context, code string) (string, error) {
	reply, err := a.ask(ctx, umlPrompt, code)
	if err != nil {
		return "", err
	}
	return StripFence(reply), nil
}

// ModelParams returns the model's summary of parameters, ranges and examples.
func (a *Analyzer) ModelParams(ctx context.Context, code string) (string, error) {
	return a.ask(ctx, paramsPrompt, code)
}

// ConvertFile reads the source at in, converts it with CodeToUML and writes
// <outDir>/<base>.puml, returning the written path.
func (a *Analyzer) ConvertFile(ctx context.Context, in, outDir string) (string, error) {
	code, err := ReadCode(in)
	if err != nil {
		return "", err
	}
	uml, err := a.CodeToUML(ctx, code)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	out := filepath.Join(outDir, base+".puml")
	if err := os.WriteFile(out, []byte(uml), 0644); err != nil {
		return "", fmt.Errorf("failed to write diagram: %w", err)
	}
	return out, nil
}

// StripFence removes a Markdown code fence wrapping reply: the first line
// when it opens a fence and the last non-blank line when it closes one.
// Unfenced replies are returned trimmed but otherwise unchanged.
func StripFence(reply string) string {
	lines := strings.Split(strings.TrimSpace(reply), "\n")
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[0]), "```") {
		lines = lines[1:]
	}
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}

// ReadCode returns the contents of a source file whose extension is one of
// exts (default .py and .txt).
func ReadCode(path string, exts ...string) (string, error) {
	if len(exts) == 0 {
		exts = []string{".py", ".txt"}
	}
	ext := strings.ToLower(filepath.Ext(path))
	ok := false
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			ok = true
			break
		}
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read source: %w", err)
	}
	return string(data), nil
}
