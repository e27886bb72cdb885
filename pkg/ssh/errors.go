package ssh

import (
	"errors"
	"fmt"
)

// ErrSessionClosed 在连接已显式关闭后继续执行命令时返回
var ErrSessionClosed = errors.New("ssh connection closed")

// ConnectionError 表示无法建立或维持远程通道
// 与命令非零退出严格区分: 收到此错误时无法确定命令是否执行过
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error on '%s': %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// CommandTimeout 表示命令在超时或取消前未能完成
type CommandTimeout struct {
	Command string
	Err     error
}

func (e *CommandTimeout) Error() string {
	return fmt.Sprintf("command timed out: %s: %v", e.Command, e.Err)
}

func (e *CommandTimeout) Unwrap() error {
	return e.Err
}
