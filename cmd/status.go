package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"example.com/DeployTools/pkg/health"
	"example.com/DeployTools/pkg/tools"
	"github.com/spf13/cobra"
)

type StatusOptions struct {
	Name string
}

func NewCmdStatus() *cobra.Command {
	o := &StatusOptions{}
	cmd := &cobra.Command{
		Use:   "status <deployment>",
		Short: "对部署目标做一次就绪检查并输出结果",
		Long: `对部署目标做一次就绪检查并输出结果。
检查内容与部署后的就绪验证一致: 容器运行状态 + HTTP 探测。
用法示例:
dtool status myapp`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Name = args[0]
			return o.Run(cmd.Context())
		},
	}
	return cmd
}

func (o *StatusOptions) Run(ctx context.Context) error {
	out, err := statusSummary(ctx, o.Name)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

// statusSummary 做一轮就绪观测并返回可读摘要,status/mcp 共用
func statusSummary(ctx context.Context, name string) (string, error) {
	env, err := newRuntimeEnv()
	if err != nil {
		return "", err
	}
	defer env.Close()

	spec, host, err := env.lookupDeployment(name)
	if err != nil {
		return "", err
	}
	exec, _, err := env.connectExecutor(ctx, spec)
	if err != nil {
		return "", err
	}

	resolver := tools.NewResolver(exec)
	engine, err := resolver.Resolve(ctx, tools.Family{
		Name:       "engine",
		ProbeArgs:  "--version",
		Candidates: spec.EngineCandidates,
	})
	if err != nil {
		return "", err
	}
	if _, err := resolver.RequiresElevation(ctx, engine); err != nil {
		return "", err
	}

	verifier := health.NewVerifier(exec, engine.Command, engine.Elevate)
	target := health.Target{
		Container:      spec.Container,
		URL:            health.ProbeURL(host.Address, spec.Health.Port, spec.Health.Path),
		Match:          spec.Health.Match,
		RunningPattern: spec.Health.RunningPattern,
	}
	// 超时设为 0 只做一轮观测
	status, err := verifier.Verify(ctx, target, 0)
	var te *health.TimeoutError
	if err != nil && !errors.As(err, &te) {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "部署:     %s\n", name)
	fmt.Fprintf(&b, "容器:     %s (running=%v)\n", spec.Container, status.Running)
	fmt.Fprintf(&b, "HTTP:     %d (%s)\n", status.HTTPCode, target.URL)
	fmt.Fprintf(&b, "就绪:     %v\n", status.Ready())
	return b.String(), nil
}

func init() {
	rootCmd.AddCommand(NewCmdStatus())
}
