package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"example.com/DeployTools/pkg/config"
	"example.com/DeployTools/pkg/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	psResult *executor.Result
	psErr    error
	sudoUsed bool
	calls    int
}

func (f *fakeExec) Run(ctx context.Context, cmd string) (*executor.Result, error) {
	f.calls++
	return f.psResult, f.psErr
}

func (f *fakeExec) RunSudo(ctx context.Context, cmd string) (*executor.Result, error) {
	f.sudoUsed = true
	return f.Run(ctx, cmd)
}

func (f *fakeExec) Stream(ctx context.Context, cmd string, onLine func(string)) (*executor.Result, error) {
	return f.Run(ctx, cmd)
}

func (f *fakeExec) StreamSudo(ctx context.Context, cmd string, onLine func(string)) (*executor.Result, error) {
	return f.RunSudo(ctx, cmd)
}

func runningPS(container string) *executor.Result {
	return &executor.Result{
		ExitCode: 0,
		Stdout: "CONTAINER ID   IMAGE     STATUS         NAMES\n" +
			"3f0c9a1b2c3d   app:dev   Up 2 minutes   " + container + "\n",
	}
}

func TestStatusReady(t *testing.T) {
	cases := []struct {
		name    string
		status  Status
		want   bool
	}{
		{"running with 200", Status{Running: true, HTTPCode: 200}, true},
		{"running with 301", Status{Running: true, HTTPCode: 301}, true},
		{"running with 302", Status{Running: true, HTTPCode: 302}, true},
		{"running with 404", Status{Running: true, HTTPCode: 404}, false},
		{"running with 503", Status{Running: true, HTTPCode: 503}, false},
		{"not running with 200", Status{Running: false, HTTPCode: 200}, false},
		{"no response", Status{Running: true, HTTPCode: 0}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.status.Ready())
		})
	}
}

func TestVerifyReadyOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	exec := &fakeExec{psResult: runningPS("app")}
	v := NewVerifier(exec, "docker", false)
	status, err := v.Verify(context.Background(), Target{
		Container:      "app",
		URL:            srv.URL,
		Match:          config.MatchSubstring,
		RunningPattern: "Up",
		Interval:       10 * time.Millisecond,
	}, time.Second)
	require.NoError(t, err)
	assert.True(t, status.Ready())
	assert.Equal(t, 200, status.HTTPCode)
	assert.False(t, status.CheckedAt.IsZero())
}

func TestVerifyRedirectCountsAsReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	}))
	defer srv.Close()

	exec := &fakeExec{psResult: runningPS("app")}
	v := NewVerifier(exec, "docker", false)
	status, err := v.Verify(context.Background(), Target{
		Container:      "app",
		URL:            srv.URL,
		Match:          config.MatchSubstring,
		RunningPattern: "Up",
	}, time.Second)
	require.NoError(t, err)
	// 302 是就绪信号,不跟随跳转
	assert.Equal(t, 302, status.HTTPCode)
	assert.True(t, status.Ready())
}

func TestVerifyTimeoutReturnsLastStatus(t *testing.T) {
	// 容器一直没起来,HTTP 探测不应该发生
	exec := &fakeExec{psResult: &executor.Result{ExitCode: 0, Stdout: "CONTAINER ID   IMAGE   STATUS   NAMES\n"}}
	v := NewVerifier(exec, "docker", false)
	status, err := v.Verify(context.Background(), Target{
		Container:      "app",
		URL:            "http://127.0.0.1:1/",
		Match:          config.MatchSubstring,
		RunningPattern: "Up",
		Interval:       time.Millisecond,
	}, 0)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	// 超时也要返回最后一次观测
	assert.False(t, status.Running)
	assert.Equal(t, 0, status.HTTPCode)
	assert.Equal(t, status, te.Last)
	assert.Contains(t, te.Error(), "app")
}

func TestProbeURL(t *testing.T) {
	cases := []struct {
		name string
		host string
		port uint16
		path string
		want string
	}{
		{"ipv4", "10.0.0.2", 8080, "/health", "http://10.0.0.2:8080/health"},
		{"hostname", "app.internal", 80, "/", "http://app.internal:80/"},
		// IPv6 字面量必须带方括号,否则冒号会被当成端口分隔符
		{"ipv6", "fd00::2", 8080, "/health", "http://[fd00::2]:8080/health"},
		{"ipv6 loopback", "::1", 443, "/", "http://[::1]:443/"},
		{"empty path", "10.0.0.2", 8080, "", "http://10.0.0.2:8080/"},
		{"relative path", "10.0.0.2", 8080, "health", "http://10.0.0.2:8080/health"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ProbeURL(tc.host, tc.port, tc.path))
		})
	}
}

func TestVerifyInvalidURLCountsAsNotReady(t *testing.T) {
	// URL 不合法时不能当传输错误中断,按未就绪等到超时
	exec := &fakeExec{psResult: runningPS("app")}
	v := NewVerifier(exec, "docker", false)
	status, err := v.Verify(context.Background(), Target{
		Container:      "app",
		URL:            "http://fd00::2:8080/health", // 缺方括号的 IPv6 地址
		Match:          config.MatchSubstring,
		RunningPattern: "Up",
		Interval:       time.Millisecond,
	}, 0)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	// 容器观测结果要保留在最后状态里
	assert.True(t, status.Running)
	assert.Equal(t, 0, status.HTTPCode)
}

func TestVerifyTransportErrorAborts(t *testing.T) {
	exec := &fakeExec{psErr: context.DeadlineExceeded}
	v := NewVerifier(exec, "docker", false)
	_, err := v.Verify(context.Background(), Target{
		Container: "app",
		URL:       "http://127.0.0.1:1/",
	}, time.Second)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, exec.calls)
}

func TestVerifyUsesSudoWhenElevated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	exec := &fakeExec{psResult: runningPS("app")}
	v := NewVerifier(exec, "docker", true)
	_, err := v.Verify(context.Background(), Target{
		Container:      "app",
		URL:            srv.URL,
		Match:          config.MatchSubstring,
		RunningPattern: "Up",
	}, time.Second)
	require.NoError(t, err)
	assert.True(t, exec.sudoUsed)
}

func TestContainerRunningFilterMode(t *testing.T) {
	exec := &fakeExec{psResult: &executor.Result{ExitCode: 0, Stdout: "app\nother\n"}}
	v := NewVerifier(exec, "docker", false)
	running, err := v.containerRunning(context.Background(), Target{
		Container: "app",
		Match:     config.MatchFilter,
	})
	require.NoError(t, err)
	assert.True(t, running)

	// 过滤模式下名称必须整行匹配,前缀相同的容器不算
	exec.psResult = &executor.Result{ExitCode: 0, Stdout: "app-worker\n"}
	running, err = v.containerRunning(context.Background(), Target{
		Container: "app",
		Match:     config.MatchFilter,
	})
	require.NoError(t, err)
	assert.False(t, running)
}

func TestContainerRunningSubstringNeedsBothPatternAndName(t *testing.T) {
	// 输出里有 Up 但不是目标容器
	out := "3f0c  other:dev  Up 2 minutes  other\n"
	exec := &fakeExec{psResult: &executor.Result{ExitCode: 0, Stdout: out}}
	v := NewVerifier(exec, "docker", false)
	running, err := v.containerRunning(context.Background(), Target{
		Container:      "app",
		Match:          config.MatchSubstring,
		RunningPattern: "Up",
	})
	require.NoError(t, err)
	assert.False(t, running)

	exec.psResult = &executor.Result{ExitCode: 0, Stdout: strings.Replace(out, "other", "app", -1)}
	running, err = v.containerRunning(context.Background(), Target{
		Container:      "app",
		Match:          config.MatchSubstring,
		RunningPattern: "Up",
	})
	require.NoError(t, err)
	assert.True(t, running)
}
