package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ironsheep/doc-tools-mcp/internal/server"
	"github.com/ironsheep/doc-tools-mcp/internal/sheet"
)

// execute runs the root command with a config path that does not exist, so
// only defaults and the environment apply.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, server.Name+" "+server.Version+"\n"), "got %q", out)
	assert.Contains(t, out, "Git commit:")
}

func TestVersionFlag(t *testing.T) {
	t.Cleanup(func() { _ = rootCmd.Flags().Set("version", "false") })

	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, versionInfo(), out)
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("warn", false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = newLogger("warn", true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = newLogger("loud", false)
	assert.Error(t, err)
}

func TestFolderCmds(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.TXT", "c.py"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	out, err := execute(t, "folder", "list", dir, "--suffix", ".txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.txt")+"\n"+filepath.Join(dir, "b.TXT")+"\n", out)

	_, err = execute(t, "folder", "delete", dir, "--suffix", ".txt")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "a.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "c.py"))
	assert.NoError(t, err)
}

func TestSheetColumnsCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, sheet.Write(path, &sheet.Table{
		Columns: []string{"编号", "温度"},
		Rows:    [][]string{{"1", "20"}},
	}, sheet.WriteOptions{}))

	out, err := execute(t, "sheet", "columns", path)
	require.NoError(t, err)
	assert.Equal(t, "编号\n温度\n", out)
}

func TestSQLCmds(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "cli.db")
	script := filepath.Join(dir, "init.sql")
	require.NoError(t, os.WriteFile(script, []byte(`
CREATE TABLE sensors (id INTEGER PRIMARY KEY, name TEXT);
INSERT INTO sensors (name) VALUES ('a'), ('b'), ('a');
`), 0644))

	_, err := execute(t, "sql", "exec", script, "--driver", "sqlite", "--dsn", dsn)
	require.NoError(t, err)

	out, err := execute(t, "sql", "columns", "sensors", "--driver", "sqlite", "--dsn", dsn)
	require.NoError(t, err)
	assert.Equal(t, "id\nname\n", out)

	out, err = execute(t, "sql", "counts", "sensors", "name", "--driver", "sqlite", "--dsn", dsn)
	require.NoError(t, err)
	assert.Equal(t, "a\t2\nb\t1\n", out)
}

func TestRectifyCmd_MissingSource(t *testing.T) {
	_, err := execute(t, "rectify", filepath.Join(t.TempDir(), "nope.jpg"), "out.jpg")
	assert.Error(t, err)
}
