package runner

import (
	"context"

	"example.com/DeployTools/pkg/deploy"
	"example.com/DeployTools/pkg/utils"
)

// TaskFunc 对单个部署目标执行完整流程并返回报告
type TaskFunc func(ctx context.Context, name string) *deploy.Report

// Result 汇聚一个部署目标的运行结果
type Result struct {
	Name   string
	Report *deploy.Report
}

// RunParallel 并发执行多个相互独立的部署
// 每个目标拥有独立的远程会话和文件系统,互相之间无共享可变状态,
// 所以除并发度限制外不需要任何协调
func RunParallel(ctx context.Context, names []string, concurrency uint, task TaskFunc) <-chan Result {
	wp := utils.NewWorkerPool(concurrency)
	// 缓冲区大小设为目标数量,防止阻塞 worker
	results := make(chan Result, len(names))
	go func() {
		for _, name := range names {
			wp.Execute(func() {
				results <- Result{Name: name, Report: task(ctx, name)}
			})
		}
		wp.Wait()
		close(results)
	}()
	return results
}
