package executor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// LocalExecutor 本地执行器,主要用于本机部署和测试
type LocalExecutor struct{}

func NewLocalExecutor() *LocalExecutor {
	return &LocalExecutor{}
}

func (e *LocalExecutor) Run(ctx context.Context, cmd string) (*Result, error) {
	return e.run(ctx, cmd)
}

// RunSudo 本地提权假设当前用户是免密 sudoer
func (e *LocalExecutor) RunSudo(ctx context.Context, cmd string) (*Result, error) {
	return e.run(ctx, localSudoCommand(cmd))
}

// localSudoCommand 复合命令整体进提权 shell
// 裸前缀 sudo 只作用于第一个词,"cd x && y" 会在 cd 上就失败
func localSudoCommand(cmd string) string {
	return fmt.Sprintf("sudo -n sh -c '%s'", strings.ReplaceAll(cmd, "'", `'\''`))
}

func (e *LocalExecutor) run(ctx context.Context, cmd string) (*Result, error) {
	start := time.Now()
	// 使用 bash -c 执行以支持复杂的 shell 语法
	c := exec.CommandContext(ctx, "bash", "-c", cmd)
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	err := c.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
	if cerr := classifyExecErr(err, res); cerr != nil {
		return nil, cerr
	}
	return res, nil
}

func (e *LocalExecutor) Stream(ctx context.Context, cmd string, onLine func(string)) (*Result, error) {
	return e.streamRun(ctx, cmd, onLine)
}

func (e *LocalExecutor) StreamSudo(ctx context.Context, cmd string, onLine func(string)) (*Result, error) {
	return e.streamRun(ctx, localSudoCommand(cmd), onLine)
}

func (e *LocalExecutor) streamRun(ctx context.Context, cmd string, onLine func(string)) (*Result, error) {
	start := time.Now()
	c := exec.CommandContext(ctx, "bash", "-c", cmd)
	stdout, err := c.StdoutPipe()
	if err != nil {
		return nil, err
	}
	var stderr bytes.Buffer
	c.Stderr = &stderr
	if err := c.Start(); err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		onLine(scanner.Text())
	}
	err = c.Wait()
	res := &Result{Stderr: stderr.String(), Duration: time.Since(start)}
	if cerr := classifyExecErr(err, res); cerr != nil {
		return nil, cerr
	}
	return res, nil
}

func classifyExecErr(err error, res *Result) error {
	if err == nil {
		res.ExitCode = 0
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return nil
	}
	return err
}
