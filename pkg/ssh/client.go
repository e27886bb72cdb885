package ssh

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"example.com/DeployTools/pkg/models"
	"golang.org/x/crypto/ssh"
)

// Client 包装一条已认证的 SSH 连接
// 一个 Client 只对应一条底层传输,关闭后所有命令返回 ErrSessionClosed
type Client struct {
	sshClient *ssh.Client
	node      *models.Node
	addr      string
	closed    atomic.Bool
}

func NewClient(raw *ssh.Client, node *models.Node, addr string) *Client {
	return &Client{
		sshClient: raw,
		node:      node,
		addr:      addr,
	}
}

// Close 关闭连接,幂等
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.sshClient.Close()
}

// SSHClient 暴露底层的 ssh.Client (供 SFTP 等子系统使用)
func (c *Client) SSHClient() *ssh.Client {
	return c.sshClient
}

// Node 返回当前连接对应的节点配置
func (c *Client) Node() *models.Node {
	return c.node
}

// Addr 返回目标地址 host:port
func (c *Client) Addr() string {
	return c.addr
}

// Run 缓冲执行: 等待命令结束后一次性返回退出码和完整输出
// 命令非零退出不是 error,只有传输层问题才返回 error
func (c *Client) Run(ctx context.Context, cmd string) (int, string, string, error) {
	return c.run(ctx, cmd, "")
}

// RunWithSudo 通过 sudo -S 执行,密码经 stdin 注入
// -p '' 将提示符置空,保证输出里没有 "Password:" 杂质
func (c *Client) RunWithSudo(ctx context.Context, cmd string, password string) (int, string, string, error) {
	return c.run(ctx, sudoCommand(cmd), password)
}

// sudoCommand 把完整命令交给提权后的 shell 执行
// 直接前缀 sudo 只会提权第一个词: "sudo cd x && y" 里 y 不经过 sudo,
// 而 cd 根本不是可执行文件,复合命令必须整体进 sh -c
func sudoCommand(cmd string) string {
	return fmt.Sprintf("sudo -S -p '' sh -c '%s'", strings.ReplaceAll(cmd, "'", `'\''`))
}

func (c *Client) run(ctx context.Context, cmd string, stdinPwd string) (int, string, string, error) {
	if c.closed.Load() {
		return -1, "", "", ErrSessionClosed
	}
	session, err := c.sshClient.NewSession()
	if err != nil {
		return -1, "", "", &ConnectionError{Host: c.addr, Err: err}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if stdinPwd != "" {
		session.Stdin = strings.NewReader(stdinPwd + "\n")
	}

	if err := session.Start(cmd); err != nil {
		return -1, "", "", &ConnectionError{Host: c.addr, Err: err}
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case err := <-done:
		code, cerr := c.classify(err)
		return code, stdout.String(), stderr.String(), cerr
	case <-ctx.Done():
		// 上下文取消,尝试终止远端进程
		_ = session.Signal(ssh.SIGKILL)
		return -1, stdout.String(), stderr.String(), &CommandTimeout{Command: cmd, Err: ctx.Err()}
	}
}

// Stream 流式执行: 每产生一行 stdout 就回调一次 onLine
// 读到 EOF 之后才去取退出状态,避免管道缓冲区写满导致的经典死锁
// stderr 仍然缓冲捕获,随结果一并返回
func (c *Client) Stream(ctx context.Context, cmd string, onLine func(string)) (int, string, error) {
	return c.stream(ctx, cmd, "", onLine)
}

// StreamWithSudo 同 Stream,但命令经 sudo -S 提权执行
func (c *Client) StreamWithSudo(ctx context.Context, cmd string, password string, onLine func(string)) (int, string, error) {
	return c.stream(ctx, sudoCommand(cmd), password, onLine)
}

func (c *Client) stream(ctx context.Context, cmd string, stdinPwd string, onLine func(string)) (int, string, error) {
	if c.closed.Load() {
		return -1, "", ErrSessionClosed
	}
	session, err := c.sshClient.NewSession()
	if err != nil {
		return -1, "", &ConnectionError{Host: c.addr, Err: err}
	}
	defer session.Close()

	stdout, err := session.StdoutPipe()
	if err != nil {
		return -1, "", &ConnectionError{Host: c.addr, Err: err}
	}
	var stderr bytes.Buffer
	session.Stderr = &stderr
	if stdinPwd != "" {
		session.Stdin = strings.NewReader(stdinPwd + "\n")
	}

	if err := session.Start(cmd); err != nil {
		return -1, "", &ConnectionError{Host: c.addr, Err: err}
	}

	// 读协程: 逐行消费直到 EOF
	readDone := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			onLine(scanner.Text())
		}
		readDone <- scanner.Err()
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		session.Close()
		// 等读协程因管道关闭退出,保证返回后不再触发 onLine
		<-readDone
		return -1, stderr.String(), &CommandTimeout{Command: cmd, Err: ctx.Err()}
	case rerr := <-readDone:
		if rerr != nil {
			return -1, stderr.String(), &ConnectionError{Host: c.addr, Err: rerr}
		}
		// EOF 是取退出状态的信号,顺序不能反过来
		code, cerr := c.classify(session.Wait())
		return code, stderr.String(), cerr
	}
}

// classify 区分 "命令执行了但失败" 和 "无法确定命令是否执行"
func (c *Client) classify(waitErr error) (int, error) {
	if waitErr == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	// ExitMissingError 或其他错误: 连接中断,退出状态未知
	return -1, &ConnectionError{Host: c.addr, Err: waitErr}
}
