package executor

import (
	"context"
	"time"

	"example.com/DeployTools/pkg/ssh"
)

// SSHExecutor 包装 ssh.Client 以满足 Executor 接口
type SSHExecutor struct {
	client  *ssh.Client
	sudoPwd string
}

func NewSSHExecutor(client *ssh.Client, sudoPwd string) *SSHExecutor {
	return &SSHExecutor{client: client, sudoPwd: sudoPwd}
}

func (e *SSHExecutor) Run(ctx context.Context, cmd string) (*Result, error) {
	start := time.Now()
	code, stdout, stderr, err := e.client.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return &Result{ExitCode: code, Stdout: stdout, Stderr: stderr, Duration: time.Since(start)}, nil
}

func (e *SSHExecutor) RunSudo(ctx context.Context, cmd string) (*Result, error) {
	start := time.Now()
	code, stdout, stderr, err := e.client.RunWithSudo(ctx, cmd, e.sudoPwd)
	if err != nil {
		return nil, err
	}
	return &Result{ExitCode: code, Stdout: stdout, Stderr: stderr, Duration: time.Since(start)}, nil
}

func (e *SSHExecutor) Stream(ctx context.Context, cmd string, onLine func(string)) (*Result, error) {
	start := time.Now()
	code, stderr, err := e.client.Stream(ctx, cmd, onLine)
	if err != nil {
		return nil, err
	}
	return &Result{ExitCode: code, Stderr: stderr, Duration: time.Since(start)}, nil
}

func (e *SSHExecutor) StreamSudo(ctx context.Context, cmd string, onLine func(string)) (*Result, error) {
	start := time.Now()
	code, stderr, err := e.client.StreamWithSudo(ctx, cmd, e.sudoPwd, onLine)
	if err != nil {
		return nil, err
	}
	return &Result{ExitCode: code, Stderr: stderr, Duration: time.Since(start)}, nil
}
