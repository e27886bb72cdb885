package cmd

import (
	"context"

	"example.com/DeployTools/cmd/version"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

func NewCmdMCP() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "以 MCP stdio 服务方式暴露部署能力",
		Long: `以 MCP stdio 服务方式暴露部署能力,供 AI 助手调用。
提供 deploy / deploy_status / deploy_logs 三个工具。
用法示例:
dtool mcp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCPServer(cmd.Context())
		},
	}
}

type deployInput struct {
	Deployment string `json:"deployment" jsonschema:"要执行的部署名称"`
	SkipUpload bool   `json:"skip_upload,omitempty" jsonschema:"跳过文件同步"`
}

type statusInput struct {
	Deployment string `json:"deployment" jsonschema:"部署名称"`
}

type logsInput struct {
	Deployment string `json:"deployment" jsonschema:"部署名称"`
	Tail       int    `json:"tail,omitempty" jsonschema:"日志行数,0 用部署配置缺省值"`
}

func runMCPServer(ctx context.Context) error {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "dtool",
		Version: version.Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "deploy",
		Description: "对部署目标执行完整的部署流程并返回报告",
	}, handleDeploy)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "deploy_status",
		Description: "对部署目标做一次就绪检查",
	}, handleStatus)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "deploy_logs",
		Description: "获取部署目标的容器日志尾部",
	}, handleLogs)

	return server.Run(ctx, &mcp.StdioTransport{})
}

func handleDeploy(ctx context.Context, req *mcp.CallToolRequest, in deployInput) (*mcp.CallToolResult, any, error) {
	env, err := newRuntimeEnv()
	if err != nil {
		return nil, nil, err
	}
	defer env.Close()

	o := &DeployOptions{SkipUpload: in.SkipUpload}
	report := o.runOne(ctx, env, in.Deployment, false)
	return textResult(report.Render(), !report.Succeeded()), nil, nil
}

func handleStatus(ctx context.Context, req *mcp.CallToolRequest, in statusInput) (*mcp.CallToolResult, any, error) {
	out, err := statusSummary(ctx, in.Deployment)
	if err != nil {
		return nil, nil, err
	}
	return textResult(out, false), nil, nil
}

func handleLogs(ctx context.Context, req *mcp.CallToolRequest, in logsInput) (*mcp.CallToolResult, any, error) {
	out, err := fetchLogs(ctx, in.Deployment, in.Tail)
	if err != nil {
		return nil, nil, err
	}
	return textResult(out, false), nil, nil
}

func textResult(text string, isErr bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: isErr,
	}
}

func init() {
	rootCmd.AddCommand(NewCmdMCP())
}
