package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ironsheep/doc-tools-mcp/internal/config"
)

type fakeProvider struct {
	reply  string
	err    error
	system string
	user   string
}

func (f *fakeProvider) Complete(ctx context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	if f.err != nil {
		return "", f.err
	}
	return f.reply, ctx.Err()
}

const fencedUML = "```plantuml\n@startuml\nstart\n:fit;\nstop\n@enduml\n```"

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fenced", fencedUML, "@startuml\nstart\n:fit;\nstop\n@enduml"},
		{"trailing newline", fencedUML + "\n", "@startuml\nstart\n:fit;\nstop\n@enduml"},
		{"unfenced", "@startuml\nstop\n@enduml", "@startuml\nstop\n@enduml"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFence(tt.in))
		})
	}
}

func TestCodeToUML(t *testing.T) {
	p := &fakeProvider{reply: fencedUML}
	a := NewAnalyzer(p, time.Second, zaptest.NewLogger(t))

	uml, err := a.CodeToUML(context.Background(), "def fit(x):\n    return x\n")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(uml, "@startuml"))
	assert.True(t, strings.HasSuffix(uml, "@enduml"))
	assert.Contains(t, p.system, "PlantUML activity diagram")
	assert.Contains(t, p.user, "def fit(x)")
}

func TestModelParams(t *testing.T) {
	p := &fakeProvider{reply: "- p: int, 0..5"}
	got, err := NewAnalyzer(p, 0, nil).ModelParams(context.Background(), "class ARIMA: ...")
	require.NoError(t, err)
	assert.Equal(t, "- p: int, 0..5", got)
	assert.Contains(t, p.system, "parameter")
}

func TestAnalyzer_ProviderError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewAnalyzer(&fakeProvider{err: boom}, 0, nil).CodeToUML(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "resample.py")
	require.NoError(t, os.WriteFile(src, []byte("def resample(): pass\n"), 0644))

	a := NewAnalyzer(&fakeProvider{reply: fencedUML}, 0, nil)
	out, err := a.ConvertFile(context.Background(), src, filepath.Join(dir, "uml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "uml", "resample.puml"), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "@startuml\nstart\n:fit;\nstop\n@enduml", string(data))
}

func TestReadCode(t *testing.T) {
	dir := t.TempDir()
	py := filepath.Join(dir, "arima.py")
	require.NoError(t, os.WriteFile(py, []byte("import numpy"), 0644))

	code, err := ReadCode(py)
	require.NoError(t, err)
	assert.Equal(t, "import numpy", code)

	_, err = ReadCode(filepath.Join(dir, "model.go"))
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = ReadCode(py, ".txt")
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = ReadCode(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedFile)
}

// chatServer answers /chat/completions with reply and records the request.
func chatServer(t *testing.T, status int, reply string, got *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got != nil {
			json.NewDecoder(r.Body).Decode(got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": reply, "type": "invalid_request_error", "code": "InvalidApiKey"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "qwen-plus",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var req map[string]any
	srv := chatServer(t, http.StatusOK, "hi there", &req)

	p, err := NewOpenAIProvider("sk-test", srv.URL, "")
	require.NoError(t, err)

	got, err := p.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "hi there", got)

	assert.Equal(t, "qwen-plus", req["model"])
	msgs, ok := req["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["content"])
}

func TestOpenAIProvider_Error(t *testing.T) {
	srv := chatServer(t, http.StatusUnauthorized, "bad key", nil)

	p, err := NewOpenAIProvider("sk-test", srv.URL, "qwen-plus")
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), DashScopeErrorDocs, "docs link is only for DashScope")
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	_, err := NewProvider(ctx, config.LLMConfig{Provider: "openai"})
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, err = NewProvider(ctx, config.LLMConfig{Provider: "gemini"})
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, err = NewProvider(ctx, config.LLMConfig{Provider: "claude", APIKey: "k"})
	assert.Error(t, err)

	p, err := NewProvider(ctx, config.LLMConfig{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIProvider{}, p)

	p, err = NewProvider(ctx, config.LLMConfig{Provider: "gemini", APIKey: "k"})
	require.NoError(t, err)
	require.IsType(t, &GeminiProvider{}, p)
	assert.Equal(t, config.DefaultGeminiModel, p.(*GeminiProvider).model)
}
