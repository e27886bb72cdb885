package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRunCapturesOutputAndExitCode(t *testing.T) {
	e := NewLocalExecutor()

	res, err := e.Run(context.Background(), "echo out; echo err >&2")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.True(t, res.Ok())

	// 非零退出是数据不是 error
	res, err = e.Run(context.Background(), "exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Ok())
}

func TestLocalStreamCallsBackPerLine(t *testing.T) {
	e := NewLocalExecutor()

	var lines []string
	res, err := e.Stream(context.Background(), "printf 'a\\nb\\nc\\n'", func(line string) {
		lines = append(lines, line)
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, []string{"a", "b", "c"}, lines)
}

// stubSudo 在 PATH 前面插一个跳过自身参数后原样执行命令的 sudo 替身
func stubSudo(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	script := `#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
  -*) shift ;;
  *) break ;;
  esac
done
exec "$@"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sudo"), []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestLocalRunSudoExecutesCompoundCommand(t *testing.T) {
	stubSudo(t)
	e := NewLocalExecutor()

	// cd && 后续命令必须都在提权 shell 里执行到
	dir := t.TempDir()
	res, err := e.RunSudo(context.Background(), "cd "+dir+" && touch marker")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode, "stderr: %s", res.Stderr)
	_, statErr := os.Stat(filepath.Join(dir, "marker"))
	assert.NoError(t, statErr)
}

func TestLocalStreamSudoExecutesCompoundCommand(t *testing.T) {
	stubSudo(t)
	e := NewLocalExecutor()

	var lines []string
	res, err := e.StreamSudo(context.Background(), "cd /tmp && echo first && echo second", func(line string) {
		lines = append(lines, line)
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, []string{"first", "second"}, lines)
}

func TestLocalSudoCommandQuoting(t *testing.T) {
	assert.Equal(t, `sudo -n sh -c 'cd /opt/app && docker compose build'`,
		localSudoCommand("cd /opt/app && docker compose build"))
	assert.Equal(t, `sudo -n sh -c 'echo '\''x'\'''`, localSudoCommand(`echo 'x'`))
}

func TestLocalRunCancelledContext(t *testing.T) {
	e := NewLocalExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Run(ctx, "sleep 10")
	require.Error(t, err)
	assert.Nil(t, res)
}

func TestResultOkOnNil(t *testing.T) {
	var res *Result
	assert.False(t, res.Ok())
}
