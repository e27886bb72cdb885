package transfer

import (
	"fmt"
	"io"
	"os"

	dssh "example.com/DeployTools/pkg/ssh"
	"github.com/pkg/sftp"
)

const (
	DefaultConcurrentFiles = 5
	copyBufferSize         = 32 * 1024 // 对齐 SFTP 默认包大小
)

// Option 定义配置函数的类型
type Option func(*Client)

func WithConcurrentFiles(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrentFiles = n
		}
	}
}

// ProgressCallback 进度回调,n 为本次增量传输的字节数
// 必须是并发安全的
type ProgressCallback func(n int)

// remoteFS 抽象远程文件系统操作,生产实现是 SFTP 子系统
type remoteFS interface {
	Create(path string) (io.WriteCloser, error)
	MkdirAll(path string) error
	Chmod(path string, mode os.FileMode) error
	Join(elem ...string) string
	Close() error
}

// sftpFS 把 *sftp.Client 适配成 remoteFS
type sftpFS struct {
	c *sftp.Client
}

func (f sftpFS) Create(path string) (io.WriteCloser, error) {
	return f.c.Create(path)
}

func (f sftpFS) MkdirAll(path string) error {
	return f.c.MkdirAll(path)
}

func (f sftpFS) Chmod(path string, mode os.FileMode) error {
	return f.c.Chmod(path, mode)
}

func (f sftpFS) Join(elem ...string) string {
	return f.c.Join(elem...)
}

func (f sftpFS) Close() error {
	return f.c.Close()
}

// Client 在现有 SSH 连接上打开 SFTP 传输子系统
// 复用 pkg/ssh 建立的连接(包括跳板机隧道)
type Client struct {
	fs              remoteFS
	concurrentFiles int
}

func NewClient(sshCli *dssh.Client, opts ...Option) (*Client, error) {
	client, err := sftp.NewClient(sshCli.SSHClient())
	if err != nil {
		return nil, fmt.Errorf("failed to create sftp subsystem: %w", err)
	}
	return newClientWithFS(sftpFS{c: client}, opts...), nil
}

func newClientWithFS(fs remoteFS, opts ...Option) *Client {
	c := &Client{
		fs:              fs,
		concurrentFiles: DefaultConcurrentFiles,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close 关闭 SFTP 会话 (不关闭底层 SSH 连接)
func (c *Client) Close() error {
	return c.fs.Close()
}

// JoinPath 远程路径拼接 (SFTP 协议强制使用 forward slash)
func (c *Client) JoinPath(elem ...string) string {
	return c.fs.Join(elem...)
}

// EnsureDirs 幂等创建远程目录,目录已存在不算错误
func (c *Client) EnsureDirs(paths ...string) error {
	for _, p := range paths {
		if err := c.fs.MkdirAll(p); err != nil {
			// MkdirAll 已容忍存在的目录,报错说明是权限或路径问题
			return fmt.Errorf("mkdir remote '%s': %w", p, err)
		}
	}
	return nil
}
