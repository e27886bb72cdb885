package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"example.com/DeployTools/pkg/executor"
	"example.com/DeployTools/pkg/logger"
)

const probeTimeout = 10 * time.Second

// Family 描述一类外部工具及其候选调用方式
// 候选按优先级排列,探测在第一个成功处短路
type Family struct {
	Name       string   // 工具族名,如 "engine" / "compose"
	ProbeArgs  string   // 能力探测参数,如 "version"
	Candidates []string // 候选调用串,如 ["docker", "/usr/local/bin/docker"]
}

// Resolved 是一次成功探测的结果,对一个会话不可变
type Resolved struct {
	Family  string
	Command string // 实际可用的调用串
	Version string // 仅用于诊断输出
	Elevate bool   // 是否需要提权执行,由 Privilege 探测后回填
}

// Attempt 记录一次失败的候选探测,用于 NotFoundError 诊断
type Attempt struct {
	Candidate string
	Detail    string
}

// NotFoundError 表示工具族的所有候选都探测失败
type NotFoundError struct {
	Family   string
	Attempts []Attempt
}

func (e *NotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no usable %s tool found, tried:", e.Family)
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "\n  %s: %s", a.Candidate, a.Detail)
	}
	return b.String()
}

// Resolver 在一条远程会话上探测外部工具
// 结果按工具族缓存,会话存续期内不重复探测
type Resolver struct {
	exec  executor.Executor
	cache map[string]*Resolved
}

func NewResolver(exec executor.Executor) *Resolver {
	return &Resolver{
		exec:  exec,
		cache: make(map[string]*Resolved),
	}
}

// Resolve 按候选顺序探测,返回第一个探测成功的工具
// 排在后面的候选即使可用也不会被探测
func (r *Resolver) Resolve(ctx context.Context, family Family) (*Resolved, error) {
	if cached, ok := r.cache[family.Name]; ok {
		return cached, nil
	}

	attempts := make([]Attempt, 0, len(family.Candidates))
	for _, candidate := range family.Candidates {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		res, err := r.exec.Run(probeCtx, candidate+" "+family.ProbeArgs)
		cancel()
		if err != nil {
			// 传输层错误意味着整个会话不可用,不再继续探测
			return nil, err
		}
		if res.Ok() {
			resolved := &Resolved{
				Family:  family.Name,
				Command: candidate,
				Version: firstLine(res.Stdout),
			}
			r.cache[family.Name] = resolved
			logger.Logger.Debug("tool resolved", "family", family.Name, "command", candidate, "version", resolved.Version)
			return resolved, nil
		}
		attempts = append(attempts, Attempt{
			Candidate: candidate,
			Detail:    probeDetail(res),
		})
	}
	return nil, &NotFoundError{Family: family.Name, Attempts: attempts}
}

func probeDetail(res *executor.Result) string {
	detail := strings.TrimSpace(res.Stderr)
	if detail == "" {
		detail = strings.TrimSpace(res.Stdout)
	}
	if detail == "" {
		detail = "no output"
	}
	return fmt.Sprintf("exit %d: %s", res.ExitCode, firstLine(detail))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
