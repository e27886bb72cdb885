package tools

import (
	"context"
	"testing"

	"example.com/DeployTools/pkg/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiresElevationOnPermissionDenied(t *testing.T) {
	exec := newFakeExec()
	exec.on("docker ps", &executor.Result{
		ExitCode: 1,
		Stderr:   "permission denied while trying to connect to the Docker daemon socket at unix:///var/run/docker.sock",
	})

	r := NewResolver(exec)
	tool := &Resolved{Family: "engine", Command: "docker"}
	elevate, err := r.RequiresElevation(context.Background(), tool)
	require.NoError(t, err)
	assert.True(t, elevate)
	assert.True(t, tool.Elevate)
}

func TestRequiresElevationFalseWhenAccessible(t *testing.T) {
	exec := newFakeExec()
	exec.on("docker ps", &executor.Result{ExitCode: 0, Stdout: "CONTAINER ID   IMAGE   ...\n"})

	r := NewResolver(exec)
	tool := &Resolved{Family: "engine", Command: "docker"}
	elevate, err := r.RequiresElevation(context.Background(), tool)
	require.NoError(t, err)
	assert.False(t, elevate)
	assert.False(t, tool.Elevate)
}

func TestRequiresElevationIgnoresUnrelatedFailure(t *testing.T) {
	exec := newFakeExec()
	exec.on("docker ps", &executor.Result{ExitCode: 1, Stderr: "Cannot connect to the Docker daemon. Is the docker daemon running?"})

	r := NewResolver(exec)
	tool := &Resolved{Family: "engine", Command: "docker"}
	elevate, err := r.RequiresElevation(context.Background(), tool)
	require.NoError(t, err)
	// 失败但不是权限问题,留给后续步骤暴露真实错误
	assert.False(t, elevate)
}
