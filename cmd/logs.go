package cmd

import (
	"context"
	"fmt"

	"example.com/DeployTools/pkg/tools"
	"github.com/spf13/cobra"
)

type LogsOptions struct {
	Name string
	Tail int
}

func NewCmdLogs() *cobra.Command {
	o := &LogsOptions{}
	cmd := &cobra.Command{
		Use:   "logs <deployment>",
		Short: "查看部署目标的容器日志尾部",
		Long: `查看部署目标的容器日志尾部。
用法示例:
dtool logs myapp
dtool logs myapp --tail 200`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Name = args[0]
			return o.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&o.Tail, "tail", 0, "日志行数,缺省用部署配置里的 log_tail")
	return cmd
}

func (o *LogsOptions) Run(ctx context.Context) error {
	out, err := fetchLogs(ctx, o.Name, o.Tail)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

// fetchLogs 抓取容器日志尾部,status/logs/mcp 共用
func fetchLogs(ctx context.Context, name string, tail int) (string, error) {
	env, err := newRuntimeEnv()
	if err != nil {
		return "", err
	}
	defer env.Close()

	spec, _, err := env.lookupDeployment(name)
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

	if tail <= 0 {
		tail = spec.LogTail
	}
	cmd := fmt.Sprintf("%s logs --tail %d %s", engine.Command, tail, spec.Container)
	run := exec.Run
	if engine.Elevate {
		run = exec.RunSudo
	}
	res, err := run(ctx, cmd)
	if err != nil {
		return "", err
	}
	if !res.Ok() {
		return "", fmt.Errorf("获取日志失败 (exit %d): %s", res.ExitCode, res.Stderr)
	}
	// docker logs 历史上把日志打到 stderr
	if res.Stdout != "" {
		return res.Stdout, nil
	}
	return res.Stderr, nil
}

func init() {
	rootCmd.AddCommand(NewCmdLogs())
}
