package executor

import (
	"context"
	"time"
)

// Result 是一次远程命令执行的完整结果
// 命令非零退出体现在 ExitCode 上,不是 error
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Ok 表示命令确实执行了且退出码为零
func (r *Result) Ok() bool {
	return r != nil && r.ExitCode == 0
}

// Executor 抽象命令执行通道,SSH 与本地实现共用
// error 只表示 "无法确定命令是否执行" (连接断开/超时等)
type Executor interface {
	Run(ctx context.Context, cmd string) (*Result, error)
	RunSudo(ctx context.Context, cmd string) (*Result, error)
	// Stream 逐行回调 stdout,命令结束后返回完整结果(Stdout 为空,由调用方按需保留)
	Stream(ctx context.Context, cmd string, onLine func(string)) (*Result, error)
	StreamSudo(ctx context.Context, cmd string, onLine func(string)) (*Result, error)
}
