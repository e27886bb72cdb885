package tools

import (
	"context"
	"strings"

	"example.com/DeployTools/pkg/logger"
)

// 容器工具权限不足时 stderr 中出现的典型特征
// 覆盖 docker/podman 的常见版本差异
var permissionSignatures = []string{
	"permission denied",
	"got permission denied while trying to connect",
	"dial unix /var/run/docker.sock",
	"operation not permitted",
}

// RequiresElevation 判断工具是否需要提权执行
// 用一条无副作用的只读命令(列出运行中的容器)做一次性探测,
// 结果对整个会话生效,后续步骤不再重复探测
func (r *Resolver) RequiresElevation(ctx context.Context, tool *Resolved) (bool, error) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	res, err := r.exec.Run(probeCtx, tool.Command+" ps")
	if err != nil {
		return false, err
	}
	if res.Ok() {
		return false, nil
	}
	if matchesPermissionDenied(res.Stderr) || matchesPermissionDenied(res.Stdout) {
		logger.Logger.Debug("tool requires elevation", "family", tool.Family, "command", tool.Command)
		tool.Elevate = true
		return true, nil
	}
	// 失败但不是权限问题,按无需提权处理,让后续步骤暴露真实错误
	return false, nil
}

func matchesPermissionDenied(output string) bool {
	lower := strings.ToLower(output)
	for _, sig := range permissionSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
