package deploy

import (
	"fmt"
	"strings"
	"time"

	"example.com/DeployTools/pkg/health"
)

// Report 是一次部署运行的完整结果
// 无论在哪一步失败,之前执行过的步骤都保留在 Steps 里,部分进展不丢弃
type Report struct {
	Deployment string
	State      State
	Steps      []StepResult
	Health     *health.Status
	// 就绪验证失败时抓取的目标服务日志尾部,用于免登录诊断
	ServiceLogs string
	Err         error
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Succeeded 表示状态机走到了终态 Succeeded
func (r *Report) Succeeded() bool {
	return r.State == StateSucceeded
}

// Render 生成人读的多行报告,呈现层直接打印
func (r *Report) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "deployment %s: %s (%.1fs)\n", r.Deployment, r.State,
		r.FinishedAt.Sub(r.StartedAt).Seconds())
	for _, s := range r.Steps {
		mark := "ok"
		if s.ExitCode != 0 {
			mark = fmt.Sprintf("exit %d", s.ExitCode)
		}
		fmt.Fprintf(&b, "  [%s] %s (%.1fs)\n", mark, s.Name, s.Duration.Seconds())
	}
	if r.Health != nil {
		fmt.Fprintf(&b, "  health: running=%v http=%d\n", r.Health.Running, r.Health.HTTPCode)
	}
	if r.Err != nil {
		fmt.Fprintf(&b, "  error: %v\n", r.Err)
	}
	if r.ServiceLogs != "" {
		fmt.Fprintf(&b, "--- service logs ---\n%s\n", r.ServiceLogs)
	}
	return b.String()
}
