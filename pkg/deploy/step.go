package deploy

import (
	"strings"
	"time"
)

// State 是部署状态机的状态
type State string

const (
	StateIdle       State = "idle"
	StateStopping   State = "stopping"
	StateRebuilding State = "rebuilding"
	StateStarting   State = "starting"
	StateVerifying  State = "verifying"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Step 描述状态机中一步要执行的命令
type Step struct {
	Name     string
	Command  string
	Tolerant bool // 非零退出不中断状态机 (如停止一个不存在的容器)
	Stream   bool // 逐行流式输出而不是缓冲读取
	Timeout  time.Duration
}

// StepResult 是一步执行的结果,每个执行过的步骤恰好产生一条
// 流式步骤的 Stdout 只保留末尾若干行
type StepResult struct {
	Name     string
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// tailBuffer 只保留最近 N 行的环形缓冲
// 构建输出动辄上万行,报告里只需要末尾部分
type tailBuffer struct {
	lines []string
	max   int
	next  int
	full  bool
}

func newTailBuffer(max int) *tailBuffer {
	if max <= 0 {
		max = 50
	}
	return &tailBuffer{lines: make([]string, max), max: max}
}

func (t *tailBuffer) Add(line string) {
	t.lines[t.next] = line
	t.next = (t.next + 1) % t.max
	if t.next == 0 {
		t.full = true
	}
}

func (t *tailBuffer) String() string {
	if !t.full {
		return strings.Join(t.lines[:t.next], "\n")
	}
	out := make([]string, 0, t.max)
	out = append(out, t.lines[t.next:]...)
	out = append(out, t.lines[:t.next]...)
	return strings.Join(out, "\n")
}
