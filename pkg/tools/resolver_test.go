package tools

import (
	"context"
	"errors"
	"testing"

	"example.com/DeployTools/pkg/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExec 按命令串返回预设结果,并记录调用顺序
type fakeExec struct {
	results map[string]*executor.Result
	errs    map[string]error
	calls   []string
}

func newFakeExec() *fakeExec {
	return &fakeExec{
		results: make(map[string]*executor.Result),
		errs:    make(map[string]error),
	}
}

func (f *fakeExec) on(cmd string, res *executor.Result) {
	f.results[cmd] = res
}

func (f *fakeExec) onErr(cmd string, err error) {
	f.errs[cmd] = err
}

func (f *fakeExec) Run(ctx context.Context, cmd string) (*executor.Result, error) {
	f.calls = append(f.calls, cmd)
	if err, ok := f.errs[cmd]; ok {
		return nil, err
	}
	if res, ok := f.results[cmd]; ok {
		return res, nil
	}
	return &executor.Result{ExitCode: 127, Stderr: "bash: " + cmd + ": command not found"}, nil
}

func (f *fakeExec) RunSudo(ctx context.Context, cmd string) (*executor.Result, error) {
	return f.Run(ctx, "sudo "+cmd)
}

func (f *fakeExec) Stream(ctx context.Context, cmd string, onLine func(string)) (*executor.Result, error) {
	return f.Run(ctx, cmd)
}

func (f *fakeExec) StreamSudo(ctx context.Context, cmd string, onLine func(string)) (*executor.Result, error) {
	return f.RunSudo(ctx, cmd)
}

func TestResolvePicksFirstWorkingCandidate(t *testing.T) {
	exec := newFakeExec()
	exec.on("docker --version", &executor.Result{ExitCode: 0, Stdout: "Docker version 26.1.0, build 9714adc\n"})

	r := NewResolver(exec)
	resolved, err := r.Resolve(context.Background(), Family{
		Name:       "engine",
		ProbeArgs:  "--version",
		Candidates: []string{"docker", "/usr/local/bin/docker", "podman"},
	})
	require.NoError(t, err)
	assert.Equal(t, "docker", resolved.Command)
	assert.Equal(t, "Docker version 26.1.0, build 9714adc", resolved.Version)
	// 第一个候选已命中,后面的不再探测
	assert.Equal(t, []string{"docker --version"}, exec.calls)
}

func TestResolveFallsThroughToLaterCandidate(t *testing.T) {
	exec := newFakeExec()
	exec.on("/usr/local/bin/docker --version", &executor.Result{ExitCode: 0, Stdout: "Docker version 24.0.7\n"})

	r := NewResolver(exec)
	resolved, err := r.Resolve(context.Background(), Family{
		Name:       "engine",
		ProbeArgs:  "--version",
		Candidates: []string{"docker", "/usr/local/bin/docker"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/docker", resolved.Command)
	assert.Len(t, exec.calls, 2)
}

func TestResolveNotFoundEnumeratesAllAttempts(t *testing.T) {
	exec := newFakeExec()

	r := NewResolver(exec)
	_, err := r.Resolve(context.Background(), Family{
		Name:       "compose",
		ProbeArgs:  "--version",
		Candidates: []string{"docker compose", "docker-compose", "podman-compose"},
	})
	require.Error(t, err)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "compose", nf.Family)
	require.Len(t, nf.Attempts, 3)
	assert.Equal(t, "docker compose", nf.Attempts[0].Candidate)
	assert.Contains(t, nf.Attempts[0].Detail, "exit 127")
	assert.Contains(t, err.Error(), "podman-compose")
}

func TestResolveCachesResult(t *testing.T) {
	exec := newFakeExec()
	exec.on("podman --version", &executor.Result{ExitCode: 0, Stdout: "podman version 4.9.3\n"})

	r := NewResolver(exec)
	family := Family{Name: "engine", ProbeArgs: "--version", Candidates: []string{"podman"}}

	first, err := r.Resolve(context.Background(), family)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), family)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, exec.calls, 1)
}

func TestResolveAbortsOnTransportError(t *testing.T) {
	exec := newFakeExec()
	transportErr := errors.New("connection lost")
	exec.onErr("docker --version", transportErr)

	r := NewResolver(exec)
	_, err := r.Resolve(context.Background(), Family{
		Name:       "engine",
		ProbeArgs:  "--version",
		Candidates: []string{"docker", "podman"},
	})
	require.ErrorIs(t, err, transportErr)
	// 会话已不可用,不应继续探测后面的候选
	assert.Equal(t, []string{"docker --version"}, exec.calls)
}
