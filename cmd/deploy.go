package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"example.com/DeployTools/global"
	"example.com/DeployTools/pkg/config"
	"example.com/DeployTools/pkg/deploy"
	"example.com/DeployTools/pkg/health"
	"example.com/DeployTools/pkg/runner"
	"example.com/DeployTools/pkg/ssh"
	"example.com/DeployTools/pkg/transfer"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type DeployOptions struct {
	Names         []string
	Tag           string
	TaskCount     int
	SkipUpload    bool
	SkipPreflight bool
}

func NewDeployOptions() *DeployOptions {
	return &DeployOptions{TaskCount: 3}
}

func NewCmdDeploy() *cobra.Command {
	o := NewDeployOptions()
	cmd := &cobra.Command{
		Use:   "deploy <deployment>...",
		Short: "对一个或多个部署目标执行完整的部署流程",
		Long: `对一个或多个部署目标执行完整的部署流程。
流程: 可达性预检 → 同步应用文件 → 停止 → 重建 → 启动 → 就绪验证。
多个部署目标之间相互独立,并发执行。
用法示例:
dtool deploy myapp
dtool deploy myapp otherapp --task 2
dtool deploy --tag prod
dtool deploy myapp --skip-upload`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.Names = args
			if len(o.Names) == 0 && o.Tag == "" {
				return fmt.Errorf("需要指定部署名称或 --tag")
			}
			return o.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&o.Tag, "tag", "t", "", "部署目标节点带指定标签的全部部署")
	cmd.Flags().IntVar(&o.TaskCount, "task", 3, "并行执行的部署数")
	cmd.Flags().BoolVar(&o.SkipUpload, "skip-upload", false, "跳过文件同步,只执行部署流程")
	cmd.Flags().BoolVar(&o.SkipPreflight, "skip-preflight", false, "跳过主机可达性预检")
	return cmd
}

func (o *DeployOptions) Run(ctx context.Context) error {
	env, err := newRuntimeEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	if o.Tag != "" {
		names, err := deploymentsByTag(env, o.Tag)
		if err != nil {
			return err
		}
		seen := make(map[string]bool, len(o.Names))
		for _, n := range o.Names {
			seen[n] = true
		}
		for _, n := range names {
			if !seen[n] {
				o.Names = append(o.Names, n)
			}
		}
	}

	parallel := len(o.Names) > 1
	results := runner.RunParallel(ctx, o.Names, uint(o.TaskCount), func(ctx context.Context, name string) *deploy.Report {
		return o.runOne(ctx, env, name, parallel)
	})

	failed := 0
	for res := range results {
		fmt.Print(res.Report.Render())
		if !res.Report.Succeeded() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d/%d 个部署失败", failed, len(o.Names))
	}
	return nil
}

// deploymentsByTag 展开目标节点带指定标签的全部部署,已显式指定的不重复
func deploymentsByTag(env *runtimeEnv, tag string) ([]string, error) {
	tagged := env.provider.GetNodesByTag(tag)
	if len(tagged) == 0 {
		return nil, fmt.Errorf("没有节点带标签 '%s'", tag)
	}
	var names []string
	for name, spec := range env.provider.ListDeployments() {
		nodeId := env.provider.Find(spec.Node)
		if nodeId == "" {
			nodeId = spec.Node
		}
		if _, ok := tagged[nodeId]; ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("标签 '%s' 下没有任何部署", tag)
	}
	sort.Strings(names)
	return names, nil
}

// runOne 对单个部署目标执行完整流程,任何阶段失败都会体现在返回的报告里
func (o *DeployOptions) runOne(ctx context.Context, env *runtimeEnv, name string, parallel bool) *deploy.Report {
	failed := func(err error) *deploy.Report {
		return &deploy.Report{Deployment: name, State: deploy.StateFailed, Err: err,
			StartedAt: time.Now(), FinishedAt: time.Now()}
	}

	spec, host, err := env.lookupDeployment(name)
	if err != nil {
		return failed(err)
	}

	if !o.SkipPreflight {
		if err := health.Preflight(host.Address, host.Port, 5*time.Second); err != nil {
			return failed(err)
		}
	}

	exec, client, err := env.connectExecutor(ctx, spec)
	if err != nil {
		return failed(err)
	}

	if !o.SkipUpload {
		if err := uploadArtifacts(ctx, client, spec, parallel); err != nil {
			return failed(err)
		}
	}

	opts := []deploy.Option{}
	if parallel {
		// 并发输出时加目标前缀,避免构建日志互相穿插无法辨认
		opts = append(opts, deploy.WithBuildOutput(func(line string) {
			fmt.Printf("[%s] %s\n", name, line)
		}))
	} else {
		opts = append(opts, deploy.WithBuildOutput(func(line string) {
			fmt.Println(line)
		}))
	}

	wf := deploy.NewWorkflow(name, spec, exec, host.Address, opts...)
	return wf.Run(ctx)
}

// uploadArtifacts 同步应用文件并幂等创建持久化目录
func uploadArtifacts(ctx context.Context, client *ssh.Client, spec config.DeploymentSpec, parallel bool) error {
	tc, err := transfer.NewClient(client)
	if err != nil {
		return err
	}
	defer tc.Close()

	dirs := []string{spec.RemoteRoot}
	for _, d := range spec.StateDirs {
		dirs = append(dirs, tc.JoinPath(spec.RemoteRoot, d))
	}
	if err := tc.EnsureDirs(dirs...); err != nil {
		return err
	}

	manifest := make(transfer.Manifest, 0, len(spec.Artifacts))
	for _, a := range spec.Artifacts {
		manifest = append(manifest, transfer.Entry{
			Local:  a.Local,
			Remote: tc.JoinPath(spec.RemoteRoot, a.Remote),
		})
	}
	if len(manifest) == 0 {
		return nil
	}

	var progress transfer.ProgressCallback
	if global.IsTerminal && !parallel {
		bar := progressbar.DefaultBytes(-1, "Uploading")
		progress = func(n int) {
			_ = bar.Add(n)
		}
	}

	report, err := tc.Upload(ctx, manifest, progress)
	if err != nil {
		return err
	}
	// 部分失败不中断其余文件,但任何失败都阻止继续部署
	if !report.Ok() {
		for _, f := range report.Failed() {
			fmt.Printf("传输失败: %s -> %s: %v\n", f.Local, f.Remote, f.Err)
		}
		return fmt.Errorf("文件同步未完成: %s", report.Summary())
	}
	return nil
}

func init() {
	rootCmd.AddCommand(NewCmdDeploy())
}
