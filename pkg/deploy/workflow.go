package deploy

import (
	"context"
	"fmt"
	"time"

	"example.com/DeployTools/pkg/config"
	"example.com/DeployTools/pkg/executor"
	"example.com/DeployTools/pkg/health"
	"example.com/DeployTools/pkg/logger"
	"example.com/DeployTools/pkg/tools"
)

const defaultStepTimeout = 2 * time.Minute

// HealthChecker 抽象就绪验证,便于测试替换
type HealthChecker interface {
	Verify(ctx context.Context, target health.Target, timeout time.Duration) (health.Status, error)
}

// VerifierFactory 在引擎解析完成后构造 HealthChecker
type VerifierFactory func(exec executor.Executor, engine string, elevate bool) HealthChecker

// Option 配置 Workflow
type Option func(*Workflow)

// WithVerifierFactory 替换默认的就绪验证器(测试用)
func WithVerifierFactory(f VerifierFactory) Option {
	return func(w *Workflow) {
		w.newVerifier = f
	}
}

// WithBuildOutput 注册构建输出的逐行回调,呈现层用来实时打印
func WithBuildOutput(onLine func(string)) Option {
	return func(w *Workflow) {
		w.onBuildLine = onLine
	}
}

// Workflow 是 stop → rebuild → start → verify 的顺序状态机
// 工具解析和提权探测只在启动时做一次,结果对整个运行生效
// 一次运行内严格串行,每一步依赖上一步的副作用
type Workflow struct {
	name     string
	spec     config.DeploymentSpec
	exec     executor.Executor
	resolver *tools.Resolver
	hostAddr string // 目标主机地址,用于 HTTP 探测

	newVerifier VerifierFactory
	onBuildLine func(string)

	state   State
	engine  *tools.Resolved
	compose *tools.Resolved
}

func NewWorkflow(name string, spec config.DeploymentSpec, exec executor.Executor, hostAddr string, opts ...Option) *Workflow {
	w := &Workflow{
		name:     name,
		spec:     spec.Normalize(),
		exec:     exec,
		resolver: tools.NewResolver(exec),
		hostAddr: hostAddr,
		state:    StateIdle,
		newVerifier: func(exec executor.Executor, engine string, elevate bool) HealthChecker {
			return health.NewVerifier(exec, engine, elevate)
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State 返回状态机当前状态
func (w *Workflow) State() State {
	return w.state
}

// Run 执行完整的部署流程
// 返回的 Report 总是包含所有已执行步骤,即使中途失败
// 对已处于目标状态的部署重复执行仍然成功(幂等)
func (w *Workflow) Run(ctx context.Context) *Report {
	report := &Report{
		Deployment: w.name,
		State:      StateIdle,
		StartedAt:  time.Now(),
	}
	defer func() {
		report.FinishedAt = time.Now()
		report.State = w.state
	}()

	// 工具发现和提权探测,整个运行只做一次
	engine, compose, err := w.resolveTools(ctx)
	if err != nil {
		w.state = StateFailed
		report.Err = err
		return report
	}

	log := logger.Logger.With("deployment", w.name)
	log.Info("deployment workflow starting", "engine", engine.Command, "compose", compose.Command, "elevate", engine.Elevate)

	// Stopping: 停止一个本来就没运行的服务不是错误
	w.state = StateStopping
	stop := Step{
		Name:     "stop",
		Command:  w.composeCmd(compose, "stop"),
		Tolerant: true,
	}
	if res, err := w.runStep(ctx, report, stop); err != nil {
		return w.fail(report, err)
	} else if res.ExitCode != 0 {
		log.Debug("stop step reported non-zero exit, continuing", "exit", res.ExitCode, "stderr", res.Stderr)
	}

	// Rebuilding: 输出流式回传,构建耗时以分钟计
	// 构建日志只用于呈现,状态转移只看退出码
	w.state = StateRebuilding
	rebuild := Step{
		Name:    "rebuild",
		Command: w.composeCmd(compose, "build"),
		Stream:  true,
		Timeout: w.spec.BuildTimeout.Duration,
	}
	if res, err := w.runStep(ctx, report, rebuild); err != nil {
		return w.fail(report, err)
	} else if res.ExitCode != 0 {
		return w.fail(report, fmt.Errorf("rebuild failed with exit %d: %s", res.ExitCode, res.Stderr))
	}

	// Starting
	w.state = StateStarting
	start := Step{
		Name:    "start",
		Command: w.composeCmd(compose, "up -d"),
	}
	if res, err := w.runStep(ctx, report, start); err != nil {
		return w.fail(report, err)
	} else if res.ExitCode != 0 {
		return w.fail(report, fmt.Errorf("start failed with exit %d: %s", res.ExitCode, res.Stderr))
	}

	// Verifying
	w.state = StateVerifying
	verifier := w.newVerifier(w.exec, engine.Command, engine.Elevate)
	target := health.Target{
		Container:      w.spec.Container,
		URL:            health.ProbeURL(w.hostAddr, w.spec.Health.Port, w.spec.Health.Path),
		Match:          w.spec.Health.Match,
		RunningPattern: w.spec.Health.RunningPattern,
		Interval:       w.spec.Health.Interval.Duration,
	}
	status, err := verifier.Verify(ctx, target, w.spec.Health.Timeout.Duration)
	report.Health = &status
	if err != nil {
		// 超时时附带服务日志尾部,省掉一次手工登录排查
		report.ServiceLogs = w.fetchServiceLogs(ctx, engine)
		return w.fail(report, err)
	}

	w.state = StateSucceeded
	log.Info("deployment workflow succeeded", "steps", len(report.Steps))
	return report
}

// resolveTools 解析容器引擎和编排工具,并做一次提权探测
// 编排工具与引擎共用守护进程套接字,继承引擎的提权结论
func (w *Workflow) resolveTools(ctx context.Context) (*tools.Resolved, *tools.Resolved, error) {
	engine, err := w.resolver.Resolve(ctx, tools.Family{
		Name:       "engine",
		ProbeArgs:  "--version",
		Candidates: w.spec.EngineCandidates,
	})
	if err != nil {
		return nil, nil, err
	}
	if _, err := w.resolver.RequiresElevation(ctx, engine); err != nil {
		return nil, nil, err
	}
	compose, err := w.resolver.Resolve(ctx, tools.Family{
		Name:       "compose",
		ProbeArgs:  "--version",
		Candidates: w.spec.ComposeCandidates,
	})
	if err != nil {
		return nil, nil, err
	}
	compose.Elevate = engine.Elevate
	w.engine, w.compose = engine, compose
	return engine, compose, nil
}

// composeCmd 在部署根目录下拼接编排命令
func (w *Workflow) composeCmd(compose *tools.Resolved, args string) string {
	return fmt.Sprintf("cd %s && %s %s", w.spec.RemoteRoot, compose.Command, args)
}

// runStep 执行一步并把结果追加到报告
// 返回 error 仅代表传输层故障,此时也会留下一条 StepResult
func (w *Workflow) runStep(ctx context.Context, report *Report, step Step) (*StepResult, error) {
	timeout := step.Timeout
	if timeout <= 0 {
		timeout = defaultStepTimeout
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	elevate := w.elevated()
	var res *executor.Result
	var err error
	if step.Stream {
		tail := newTailBuffer(w.spec.LogTail)
		onLine := func(line string) {
			tail.Add(line)
			if w.onBuildLine != nil {
				w.onBuildLine(line)
			}
		}
		if elevate {
			res, err = w.exec.StreamSudo(stepCtx, step.Command, onLine)
		} else {
			res, err = w.exec.Stream(stepCtx, step.Command, onLine)
		}
		if res != nil {
			res.Stdout = tail.String()
		}
	} else {
		if elevate {
			res, err = w.exec.RunSudo(stepCtx, step.Command)
		} else {
			res, err = w.exec.Run(stepCtx, step.Command)
		}
	}

	if err != nil {
		// 传输层故障,退出状态未知; 步骤仍然计入报告
		report.Steps = append(report.Steps, StepResult{
			Name:     step.Name,
			Command:  step.Command,
			ExitCode: -1,
			Stderr:   err.Error(),
		})
		return nil, err
	}

	result := StepResult{
		Name:     step.Name,
		Command:  step.Command,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Duration: res.Duration,
	}
	report.Steps = append(report.Steps, result)
	return &result, nil
}

// elevated 返回启动时探测出的提权结论,运行期间不再变化
func (w *Workflow) elevated() bool {
	return w.engine != nil && w.engine.Elevate
}

// fetchServiceLogs 抓取目标容器日志尾部,失败只记 debug 不影响报告
func (w *Workflow) fetchServiceLogs(ctx context.Context, engine *tools.Resolved) string {
	cmd := fmt.Sprintf("%s logs --tail %d %s", engine.Command, w.spec.LogTail, w.spec.Container)
	var res *executor.Result
	var err error
	if engine.Elevate {
		res, err = w.exec.RunSudo(ctx, cmd)
	} else {
		res, err = w.exec.Run(ctx, cmd)
	}
	if err != nil || res == nil {
		logger.Logger.Debug("failed to fetch service logs", "error", err)
		return ""
	}
	// 容器日志可能走 stderr (docker logs 的历史行为)
	if res.Stdout != "" {
		return res.Stdout
	}
	return res.Stderr
}

func (w *Workflow) fail(report *Report, err error) *Report {
	w.state = StateFailed
	report.Err = err
	logger.Logger.Warn("deployment workflow failed", "deployment", w.name, "error", err)
	return report
}
