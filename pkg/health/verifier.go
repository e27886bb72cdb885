package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/DeployTools/pkg/config"
	"example.com/DeployTools/pkg/executor"
	"example.com/DeployTools/pkg/logger"
)

// Status 是一次就绪检查的观测快照,不跨检查持久化
type Status struct {
	Running   bool // 容器列表中观测到目标在运行
	HTTPCode  int  // HTTP 探测返回的状态码,0 表示请求失败
	CheckedAt time.Time
}

// Ready 表示容器在运行且 HTTP 状态码在就绪集合内
func (s Status) Ready() bool {
	switch s.HTTPCode {
	case http.StatusOK, http.StatusMovedPermanently, http.StatusFound:
		return s.Running
	}
	return false
}

// TimeoutError 表示在允许的时间内未观测到就绪信号
// Last 保留最后一次观测,调用方可用于记录部分进展
type TimeoutError struct {
	Target string
	Last   Status
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("health check timed out for '%s' (last: running=%v http=%d)",
		e.Target, e.Last.Running, e.Last.HTTPCode)
}

// ProbeURL 拼接 HTTP 探测地址
// JoinHostPort 负责给 IPv6 字面量加方括号,手拼会生成非法 URL
func ProbeURL(host string, port uint16, path string) string {
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(int(port))) + path
}

// Target 描述一次验证的目标
type Target struct {
	Container      string
	URL            string // 完整探测地址,如 http://10.0.0.2:8080/
	Match          config.MatchMode
	RunningPattern string
	Interval       time.Duration
}

// Verifier 轮询容器状态和 HTTP 端点直到就绪或超时
type Verifier struct {
	exec    executor.Executor
	engine  string // 已解析的容器引擎调用串
	elevate bool
	httpc   *http.Client
}

func NewVerifier(exec executor.Executor, engine string, elevate bool) *Verifier {
	return &Verifier{
		exec:    exec,
		engine:  engine,
		elevate: elevate,
		httpc: &http.Client{
			Timeout: 5 * time.Second,
			// 301/302 本身就算就绪信号,不跟随跳转
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Verify 以固定间隔轮询,成功和超时都返回最后一次观测到的 Status
func (v *Verifier) Verify(ctx context.Context, target Target, timeout time.Duration) (Status, error) {
	interval := target.Interval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	deadline := time.Now().Add(timeout)

	var last Status
	for {
		status, err := v.check(ctx, target)
		if err != nil {
			// 传输层问题,无法继续观测
			return last, err
		}
		last = status
		if status.Ready() {
			return last, nil
		}
		logger.Logger.Debug("health poll", "container", target.Container,
			"running", status.Running, "http", status.HTTPCode)

		if time.Now().After(deadline) {
			return last, &TimeoutError{Target: target.Container, Last: last}
		}
		select {
		case <-ctx.Done():
			return last, &TimeoutError{Target: target.Container, Last: last}
		case <-time.After(interval):
		}
	}
}

// check 做一轮观测: 先查容器列表,再打 HTTP 探测
func (v *Verifier) check(ctx context.Context, target Target) (Status, error) {
	status := Status{CheckedAt: time.Now()}

	running, err := v.containerRunning(ctx, target)
	if err != nil {
		return status, err
	}
	status.Running = running
	if !running {
		// 容器都没起来,HTTP 探测只会白等超时
		return status, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		// URL 不合法等同于探测不到,算未就绪而不是中断整次验证
		logger.Logger.Warn("health probe url invalid", "url", target.URL, "err", err)
		return status, nil
	}
	resp, err := v.httpc.Do(req)
	if err != nil {
		// 服务尚未监听属于正常的未就绪状态
		return status, nil
	}
	resp.Body.Close()
	status.HTTPCode = resp.StatusCode
	return status, nil
}

// containerRunning 按配置的匹配策略判断容器是否在运行
// 不同工具版本的 ps 输出格式不一致,所以匹配方式是策略而不是硬编码
func (v *Verifier) containerRunning(ctx context.Context, target Target) (bool, error) {
	var cmd string
	switch target.Match {
	case config.MatchFilter:
		cmd = fmt.Sprintf("%s ps --filter status=running --filter name=%s --format '{{.Names}}'",
			v.engine, target.Container)
	default: // MatchSubstring
		cmd = fmt.Sprintf("%s ps --filter name=%s", v.engine, target.Container)
	}

	var res *executor.Result
	var err error
	if v.elevate {
		res, err = v.exec.RunSudo(ctx, cmd)
	} else {
		res, err = v.exec.Run(ctx, cmd)
	}
	if err != nil {
		return false, err
	}
	if !res.Ok() {
		return false, nil
	}

	switch target.Match {
	case config.MatchFilter:
		for _, line := range strings.Split(res.Stdout, "\n") {
			if strings.TrimSpace(line) == target.Container {
				return true, nil
			}
		}
		return false, nil
	default:
		return strings.Contains(res.Stdout, target.RunningPattern) &&
			strings.Contains(res.Stdout, target.Container), nil
	}
}
